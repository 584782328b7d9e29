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

	"github.com/google/uuid"
)

// BaseUUID is the Bluetooth SIG base UUID that 16 and 32 bit service UUIDs
// are expanded into.
var BaseUUID = uuid.MustParse("00000000-0000-1000-8000-00805F9B34FB")

// Well known profile UUIDs
var (
	UUIDHeadset      = UUIDFrom16(0x1108)
	UUIDAudioSink    = UUIDFrom16(0x110B)
	UUIDAdvAudioDist = UUIDFrom16(0x110D)
	UUIDHandsfree    = UUIDFrom16(0x111E)
	UUIDHID          = UUIDFrom16(0x1124)
)

// UUIDFrom16 expands a 16 bit service UUID
func UUIDFrom16(v uint16) uuid.UUID {
	u := BaseUUID
	binary.BigEndian.PutUint16(u[2:4], v)
	return u
}

// UUIDFrom32 expands a 32 bit service UUID
func UUIDFrom32(v uint32) uuid.UUID {
	u := BaseUUID
	binary.BigEndian.PutUint32(u[0:4], v)
	return u
}

// uuidFrom128LE converts a 128 bit UUID in EIR (little-endian) order
func uuidFrom128LE(b []byte) (uuid.UUID, bool) {
	var u uuid.UUID
	if len(b) != len(u) {
		return u, false
	}
	copy(u[:], ReverseBytes(b))
	return u, true
}
