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

/*
Package handover decodes and encodes NFC Forum Connection Handover messages
that carry Bluetooth pairing data.

A phone tapped against a headset, keyboard or speaker reads an NDEF message
from the peripheral. The message either carries a Bluetooth out-of-band (OOB)
record directly or wraps it in a Handover Select record. This package turns
such messages into a CarrierDescriptor that the peripheral and coordinator
packages use to bond and connect the device.

Features:
  - Bluetooth BR/EDR OOB records (application/vnd.bluetooth.ep.oob)
  - Bluetooth LE OOB records (application/vnd.bluetooth.le.oob)
  - Legacy Nokia external records (nokia.com:bt)
  - Handover Request/Select and Alternative Carrier records
  - Class of Device and service UUID decoding
  - Address helpers for wire order and log anonymization

Basic Usage:

	msg, err := handover.ParseMessage(raw)
	if err != nil {
	    return err
	}

	carrier := handover.ClassifyAndParse(msg)
	if carrier == nil || !carrier.Valid {
	    return errors.New("not a bluetooth handover tag")
	}

	fmt.Printf("Device %s (%s)\n", carrier.Device, carrier.DisplayName())

Malformed Payloads:

Truncated and corrupt tags are common. The parsers never return errors for
carrier payloads; they return a descriptor with Valid set to false instead.
Only malformed inputs supplied by the caller, such as an address string with
invalid hex digits, return errors:

	if errors.Is(err, handover.ErrInvalidAddressHex) {
	    // Handle bad address
	}

Thread Safety:

All functions are stateless. A Parser may be shared between goroutines as long
as its CarrierActivationChecker is safe for concurrent use.
*/
package handover
