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

import (
	"github.com/google/uuid"

	handover "github.com/ZaparooProject/go-nfc-handover"
)

// Profile identifies a Bluetooth profile the machine can connect
type Profile int

const (
	ProfileHID Profile = iota
	ProfileHFP
	ProfileA2DP
)

// String returns the short profile name
func (p Profile) String() string {
	switch p {
	case ProfileHID:
		return "HID"
	case ProfileHFP:
		return "HFP"
	case ProfileA2DP:
		return "A2DP"
	default:
		return "unknown"
	}
}

// UUID returns the service class UUID used to reach the profile
func (p Profile) UUID() uuid.UUID {
	switch p {
	case ProfileHID:
		return handover.UUIDHID
	case ProfileHFP:
		return handover.UUIDHandsfree
	case ProfileA2DP:
		return handover.UUIDAudioSink
	default:
		return uuid.Nil
	}
}

// BondState mirrors the platform bond state of a remote device
type BondState int

const (
	BondNone BondState = iota
	BondBonding
	BondBonded
)

func (b BondState) String() string {
	switch b {
	case BondNone:
		return "none"
	case BondBonding:
		return "bonding"
	case BondBonded:
		return "bonded"
	default:
		return "unknown"
	}
}

// ConnectionState is the per-profile connection state of a remote device
type ConnectionState int

const (
	ConnDisconnected ConnectionState = iota
	ConnConnecting
	ConnConnected
	ConnDisconnecting
)

func (c ConnectionState) String() string {
	switch c {
	case ConnDisconnected:
		return "disconnected"
	case ConnConnecting:
		return "connecting"
	case ConnConnected:
		return "connected"
	case ConnDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// ConnectionPolicy is the per-profile auto-connect policy of a device
type ConnectionPolicy int

const (
	PolicyUnknown ConnectionPolicy = iota
	PolicyForbidden
	PolicyAllowed
)

// Result is the outcome tracked for each enabled profile
type Result int

const (
	ResultNone Result = iota
	ResultPending
	ResultConnected
	ResultDisconnected
)

func (r Result) String() string {
	switch r {
	case ResultNone:
		return "none"
	case ResultPending:
		return "pending"
	case ResultConnected:
		return "connected"
	case ResultDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

func (r Result) terminal() bool {
	return r == ResultConnected || r == ResultDisconnected
}

// State is the handover machine state
type State int

const (
	StateInit State = iota
	StateWaitingForProxies
	StateInitComplete
	StateWaitingForBondConfirmation
	StateBonding
	StateConnecting
	StateDisconnecting
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateWaitingForProxies:
		return "WaitingForProxies"
	case StateInitComplete:
		return "InitComplete"
	case StateWaitingForBondConfirmation:
		return "WaitingForBondConfirmation"
	case StateBonding:
		return "Bonding"
	case StateConnecting:
		return "Connecting"
	case StateDisconnecting:
		return "Disconnecting"
	case StateComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Action is what the machine is trying to achieve for the device
type Action int

const (
	ActionInit Action = iota
	ActionConnect
	ActionDisconnect
)

func (a Action) String() string {
	switch a {
	case ActionInit:
		return "init"
	case ActionConnect:
		return "connect"
	case ActionDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// PairingVariant is the kind of pairing request raised by the platform
type PairingVariant int

const (
	PairingPin PairingVariant = iota
	PairingPasskey
	PairingPasskeyConfirmation
	PairingConsent
	PairingDisplayPasskey
	PairingDisplayPin
	PairingOOBConsent
)
