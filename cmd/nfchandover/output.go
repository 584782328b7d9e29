// go-nfc-handover
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-nfc-handover.
//
// go-nfc-handover is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-nfc-handover is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-nfc-handover; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package main

import (
	"fmt"
	"io"
	"strings"

	handover "github.com/ZaparooProject/go-nfc-handover"
	"github.com/ZaparooProject/go-nfc-handover/wlc"
)

// Output handles consistent formatting of messages
type Output struct {
	w       io.Writer
	verbose bool
}

// NewOutput creates a new output handler
func NewOutput(w io.Writer, verbose bool) *Output {
	return &Output{w: w, verbose: verbose}
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, format, args...)
}

// Message prints every record of msg
func (o *Output) Message(msg *handover.Message) {
	o.printf("NDEF: %d record(s)\n", len(msg.Records))
	for i, r := range msg.Records {
		o.printf("   Record %d: TNF=%d Type=%s", i, r.TNF, r.Type)
		if r.ID != "" {
			o.printf(" ID=%s", r.ID)
		}
		o.printf(" Length=%d\n", len(r.Payload))
		o.Verbose("      Payload: %s", wlc.BytesToHex(r.Payload))
	}
}

// Carrier prints a parsed Bluetooth carrier
func (o *Output) Carrier(c *handover.CarrierDescriptor) {
	if !c.Valid {
		o.Warning("Bluetooth carrier is not valid")
		return
	}
	o.printf("CARRIER: %s\n", c.Device)
	if name := c.DisplayName(); name != "" {
		o.printf("   Name: %s\n", name)
	}
	o.printf("   Transport: %s\n", c.Transport)
	if c.Transport == handover.TransportLE {
		o.printf("   Role: %s\n", c.LERole)
	}
	if c.HasClass {
		o.printf("   Class: 0x%06X (major 0x%02X)\n", uint32(c.DeviceClass), c.DeviceClass.MajorClass()>>8)
	}
	if len(c.UUIDs) > 0 {
		uuids := make([]string, 0, len(c.UUIDs))
		for _, u := range c.UUIDs {
			uuids = append(uuids, u.String())
		}
		o.printf("   UUIDs: %s\n", strings.Join(uuids, ", "))
	}
	o.printf("   Activating: %t\n", c.CarrierActivating)
	if oob := c.OOBData(); oob != nil {
		o.printf("   OOB: tk=%t confirm=%t random=%t\n", oob.TK != nil, oob.Confirm != nil, oob.Random != nil)
	}
}

// Hex prints an encoded message
func (o *Output) Hex(label, data string) {
	o.printf("%s: %s\n", label, data)
}

// Error prints an error message
func (o *Output) Error(format string, args ...any) {
	o.printf("ERROR: "+format+"\n", args...)
}

// Warning prints a warning message
func (o *Output) Warning(format string, args ...any) {
	o.printf("WARNING: "+format+"\n", args...)
}

// Info prints an info message
func (o *Output) Info(format string, args ...any) {
	o.printf("INFO: "+format+"\n", args...)
}

// OK prints a success message
func (o *Output) OK(format string, args ...any) {
	o.printf("OK: "+format+"\n", args...)
}

// Verbose prints only if verbose mode is enabled
func (o *Output) Verbose(format string, args ...any) {
	if o.verbose {
		o.printf(format+"\n", args...)
	}
}
