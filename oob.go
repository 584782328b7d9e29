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
	"encoding/binary"
	"strings"
)

// EIR and AD data types found in Bluetooth OOB payloads
const (
	eirIncomplete16      = 0x02
	eirComplete16        = 0x03
	eirIncomplete32      = 0x04
	eirComplete32        = 0x05
	eirIncomplete128     = 0x06
	eirComplete128       = 0x07
	eirShortName         = 0x08
	eirLongName          = 0x09
	eirClassOfDevice     = 0x0D
	eirSecurityManagerTK = 0x10
	eirLEDeviceAddress   = 0x1B
	eirLERole            = 0x1C
	eirLESCConfirm       = 0x22
	eirLESCRandom        = 0x23
)

const (
	btOobLengthLen = 2
	btOobHeaderLen = btOobLengthLen + addressLen
	leAddressLen   = addressLen + 1
	leSCValueLen   = 16
	classLen       = 3
)

// LE role values
const (
	leRolePeripheralOnly      = 0x00
	leRoleCentralOnly         = 0x01
	leRoleBothPeripheralFirst = 0x02
	leRoleBothCentralFirst    = 0x03
)

// eachEIR walks {length, type, data} elements. It stops at a zero length
// element or at an element that runs past the end of buf.
func eachEIR(buf []byte, fn func(typ byte, data []byte)) {
	for i := 0; i < len(buf); {
		length := int(buf[i])
		if length == 0 || i+1+length > len(buf) {
			return
		}
		fn(buf[i+1], buf[i+2:i+1+length])
		i += 1 + length
	}
}

func decodeName(data []byte) string {
	return strings.ToValidUTF8(string(data), "\uFFFD")
}

// ParseBtOob parses an application/vnd.bluetooth.ep.oob payload.
//
// The payload is a 2 byte little-endian length, the 6 byte device address in
// wire order and a list of EIR elements. Payloads too short to hold the
// address return an invalid descriptor. An element that runs past the end of
// the payload ends parsing but keeps what was already decoded.
func ParseBtOob(payload []byte) CarrierDescriptor {
	if len(payload) < btOobHeaderLen {
		return CarrierDescriptor{}
	}
	address, ok := addressFromWire(payload[btOobLengthLen:btOobHeaderLen])
	if !ok {
		return CarrierDescriptor{}
	}

	d := CarrierDescriptor{
		Valid:     true,
		Device:    address,
		Transport: TransportDualAuto,
	}

	var shortName, longName *string
	eachEIR(payload[btOobHeaderLen:], func(typ byte, data []byte) {
		switch typ {
		case eirShortName:
			shortName = stringPtr(decodeName(data))
		case eirLongName:
			longName = stringPtr(decodeName(data))
		case eirIncomplete16, eirComplete16:
			for i := 0; i+2 <= len(data); i += 2 {
				d.addUUID(UUIDFrom16(binary.LittleEndian.Uint16(data[i:])))
			}
		case eirIncomplete32, eirComplete32:
			for i := 0; i+4 <= len(data); i += 4 {
				d.addUUID(UUIDFrom32(binary.LittleEndian.Uint32(data[i:])))
			}
		case eirIncomplete128, eirComplete128:
			for i := 0; i+16 <= len(data); i += 16 {
				if u, ok := uuidFrom128LE(data[i : i+16]); ok {
					d.addUUID(u)
				}
			}
		case eirClassOfDevice:
			if len(data) >= classLen {
				d.DeviceClass = DeviceClass(uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16)
				d.HasClass = true
			}
		}
	})

	// The shortened name is preferred when both are present
	switch {
	case shortName != nil:
		d.Name = shortName
	case longName != nil:
		d.Name = longName
	default:
		d.Name = stringPtr("")
	}
	return d
}

// ParseBleOob parses an application/vnd.bluetooth.le.oob payload.
//
// The descriptor is valid only when an LE device address element is present
// and the device does not advertise the central-only role.
func ParseBleOob(payload []byte) CarrierDescriptor {
	d := CarrierDescriptor{Transport: TransportLE}
	var name *string
	centralOnly := false

	eachEIR(payload, func(typ byte, data []byte) {
		switch typ {
		case eirLEDeviceAddress:
			// The address type octet is optional; a bare address is public.
			if len(data) < addressLen {
				return
			}
			address, ok := addressFromWire(data[:addressLen])
			if !ok {
				return
			}
			d.Device = address
			if len(data) >= leAddressLen {
				d.AddressType = data[addressLen]
			}
			d.Valid = true
		case eirLERole:
			if len(data) < 1 {
				return
			}
			switch data[0] {
			case leRolePeripheralOnly:
				d.LERole = LERolePeripheral
			case leRoleCentralOnly:
				d.LERole = LERoleCentral
				centralOnly = true
			case leRoleBothPeripheralFirst:
				d.LERole = LERoleBothPeripheralPreferred
			case leRoleBothCentralFirst:
				d.LERole = LERoleBothCentralPreferred
			default:
				d.LERole = LERoleUnknown
			}
		case eirSecurityManagerTK:
			d.SecurityManagerTK = append([]byte(nil), data...)
		case eirLESCConfirm:
			if len(data) == leSCValueLen {
				d.LESCConfirm = append([]byte(nil), data...)
			}
		case eirLESCRandom:
			if len(data) == leSCValueLen {
				d.LESCRandom = append([]byte(nil), data...)
			}
		case eirShortName, eirLongName:
			name = stringPtr(decodeName(data))
		}
	})

	if !d.Valid || centralOnly {
		return CarrierDescriptor{}
	}
	if name == nil {
		name = stringPtr("")
	}
	d.Name = name
	return d
}

// Legacy Nokia layout offsets
const (
	legacyAddressOffset    = 1
	legacyNameLengthOffset = 14
	legacyNameOffset       = legacyNameLengthOffset + 1
)

// ParseLegacy parses the nokia.com:bt external record found on some older
// headsets. Any underflow returns an invalid descriptor.
func ParseLegacy(payload []byte) CarrierDescriptor {
	if len(payload) < legacyNameOffset {
		return CarrierDescriptor{}
	}
	address, ok := addressFromWire(payload[legacyAddressOffset : legacyAddressOffset+addressLen])
	if !ok {
		return CarrierDescriptor{}
	}
	nameLen := int(payload[legacyNameLengthOffset])
	if len(payload) < legacyNameOffset+nameLen {
		return CarrierDescriptor{}
	}

	return CarrierDescriptor{
		Valid:     true,
		Device:    address,
		Name:      stringPtr(decodeName(payload[legacyNameOffset : legacyNameOffset+nameLen])),
		Transport: TransportDualAuto,
	}
}
