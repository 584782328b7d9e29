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
	"time"

	handover "github.com/ZaparooProject/go-nfc-handover"
)

// Device is the platform view of one remote Bluetooth device
type Device interface {
	Address() string
	BondState() BondState
	// CreateBond starts bonding and returns once the request was accepted.
	// The outcome arrives later as a BondStateChanged intent.
	CreateBond(transport handover.Transport) error
	CreateBondOutOfBand(transport handover.Transport, oob *handover.OOBData) error
	SetPairingConfirmation(confirm bool) error
	SetAlias(alias string) error
	Disconnect() error
}

// ProfileProxy is a connected handle on one profile service
type ProfileProxy interface {
	ConnectedDevices() []string
	ConnectionState(address string) ConnectionState
	ConnectionPolicy(address string) ConnectionPolicy
	// SetConnectionPolicy with PolicyAllowed connects the profile and
	// PolicyForbidden disconnects it.
	SetConnectionPolicy(address string, policy ConnectionPolicy) error
}

// ProxyCallbacks receive asynchronous proxy availability. They may be
// invoked from any goroutine.
type ProxyCallbacks struct {
	OnConnected    func(ProfileProxy)
	OnDisconnected func()
}

// Adapter hands out profile proxies
type Adapter interface {
	GetProfileProxy(profile Profile, callbacks ProxyCallbacks) error
	CloseProfileProxy(profile Profile, proxy ProfileProxy)
}

// PairingPrompter is implemented by adapters that can ask the user to
// accept a pairing. The answer comes back as a UserConsent intent.
type PairingPrompter interface {
	RequestPairConfirmation(address, name string) error
}

// Timer is a cancellable scheduled callback
type Timer interface {
	// Stop prevents the callback from running. It returns false when the
	// callback already ran or was already stopped.
	Stop() bool
}

// Scheduler runs callbacks on the single goroutine that owns the machines
type Scheduler interface {
	Post(fn func())
	AfterFunc(d time.Duration, fn func()) Timer
}
