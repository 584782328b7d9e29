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

package handover

import (
	"github.com/google/uuid"
)

// Transport identifies the Bluetooth transport a carrier should be reached on
type Transport int

const (
	// TransportDualAuto lets the stack pick BR/EDR or LE
	TransportDualAuto Transport = iota
	// TransportClassic forces BR/EDR
	TransportClassic
	// TransportLE forces Bluetooth Low Energy
	TransportLE
)

// String returns a human readable transport name
func (t Transport) String() string {
	switch t {
	case TransportDualAuto:
		return "auto"
	case TransportClassic:
		return "classic"
	case TransportLE:
		return "le"
	default:
		return "unknown"
	}
}

// LERole is the LE role advertised in an LE OOB record
type LERole int

const (
	LERoleUnknown LERole = iota
	LERolePeripheral
	LERoleCentral
	LERoleBothPeripheralPreferred
	LERoleBothCentralPreferred
)

// String returns a human readable role name
func (r LERole) String() string {
	switch r {
	case LERolePeripheral:
		return "peripheral"
	case LERoleCentral:
		return "central"
	case LERoleBothPeripheralPreferred:
		return "both (peripheral preferred)"
	case LERoleBothCentralPreferred:
		return "both (central preferred)"
	default:
		return "unknown"
	}
}

// OOBData is the pairing material handed to the Bluetooth stack when bonding
// out of band.
type OOBData struct {
	TK          []byte
	Confirm     []byte
	Random      []byte
	AddressType byte
}

// CarrierDescriptor is the result of parsing a Bluetooth carrier.
//
// When Valid is false every other field holds its zero value. When Valid is
// true Device is a well formed XX:XX:XX:XX:XX:XX address and Name is non-nil.
type CarrierDescriptor struct {
	Name              *string
	Device            string
	UUIDs             []uuid.UUID
	SecurityManagerTK []byte
	LESCConfirm       []byte
	LESCRandom        []byte
	DeviceClass       DeviceClass
	Transport         Transport
	LERole            LERole
	AddressType       byte
	HasClass          bool
	Valid             bool
	CarrierActivating bool
}

// DisplayName returns the advertised name or an empty string
func (d *CarrierDescriptor) DisplayName() string {
	if d == nil || d.Name == nil {
		return ""
	}
	return *d.Name
}

// OOBData returns the LE pairing material carried by the descriptor, or nil
// when the carrier had none.
func (d *CarrierDescriptor) OOBData() *OOBData {
	if d == nil || (d.SecurityManagerTK == nil && d.LESCConfirm == nil && d.LESCRandom == nil) {
		return nil
	}
	return &OOBData{
		AddressType: d.AddressType,
		TK:          d.SecurityManagerTK,
		Confirm:     d.LESCConfirm,
		Random:      d.LESCRandom,
	}
}

// HasUUID reports whether u was advertised by the carrier
func (d *CarrierDescriptor) HasUUID(u uuid.UUID) bool {
	return containsUUID(d.UUIDs, u)
}

func (d *CarrierDescriptor) addUUID(u uuid.UUID) {
	if !containsUUID(d.UUIDs, u) {
		d.UUIDs = append(d.UUIDs, u)
	}
}

func containsUUID(list []uuid.UUID, u uuid.UUID) bool {
	for _, v := range list {
		if v == u {
			return true
		}
	}
	return false
}

// ContainsUUID reports whether list holds u
func ContainsUUID(list []uuid.UUID, u uuid.UUID) bool {
	return containsUUID(list, u)
}

func stringPtr(s string) *string {
	return &s
}
