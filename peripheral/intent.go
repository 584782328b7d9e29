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

package peripheral

// IntentKind identifies a platform broadcast delivered to the machines
type IntentKind int

const (
	IntentBondStateChanged IntentKind = iota
	IntentConnectionStateChanged
	IntentPairingRequest
	IntentUserConsent
	IntentAdapterStateChanged
)

func (k IntentKind) String() string {
	switch k {
	case IntentBondStateChanged:
		return "bond-state-changed"
	case IntentConnectionStateChanged:
		return "connection-state-changed"
	case IntentPairingRequest:
		return "pairing-request"
	case IntentUserConsent:
		return "user-consent"
	case IntentAdapterStateChanged:
		return "adapter-state-changed"
	default:
		return "unknown"
	}
}

// Intent is one platform event. Device is empty for adapter events.
type Intent struct {
	Device          string
	Kind            IntentKind
	Profile         Profile
	BondState       BondState
	ConnectionState ConnectionState
	PairingVariant  PairingVariant
	Allow           bool
	AdapterOn       bool
}
