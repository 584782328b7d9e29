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

import "errors"

// Address errors
var (
	ErrInvalidAddressLength = errors.New("invalid bluetooth address length")
	ErrInvalidAddressHex    = errors.New("invalid hex digit in bluetooth address")
)

// Message errors
var (
	ErrEmptyMessage       = errors.New("empty NDEF message")
	ErrMalformedMessage   = errors.New("malformed NDEF message")
	ErrNotHandoverRequest = errors.New("message is not a handover request")
	ErrNoBluetoothCarrier = errors.New("no bluetooth carrier in message")
)
