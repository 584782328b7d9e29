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

package bluez

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ZaparooProject/go-nfc-handover/peripheral"
)

// ProfileProxy is the view of one profile UUID across the controller's devices
type ProfileProxy struct {
	adapter *Adapter
	profile peripheral.Profile
}

// Profile returns the proxied profile
func (p *ProfileProxy) Profile() peripheral.Profile {
	return p.profile
}

// ConnectedDevices returns connected devices that offer the profile
func (p *ProfileProxy) ConnectedDevices() []string {
	devices, err := p.adapter.managedDevices()
	if err != nil {
		p.adapter.logger.Warn("failed to list devices", zap.Error(err))
		return nil
	}

	var out []string
	for _, d := range devices {
		if d.connected && hasUUID(d.uuids, p.profile.UUID()) {
			out = append(out, d.address)
		}
	}
	return out
}

// ConnectionState reports Connected when the device is connected and offers the profile
func (p *ProfileProxy) ConnectionState(address string) peripheral.ConnectionState {
	devices, err := p.adapter.managedDevices()
	if err != nil {
		return peripheral.ConnDisconnected
	}
	for _, d := range devices {
		if !strings.EqualFold(d.address, address) {
			continue
		}
		if d.connected && hasUUID(d.uuids, p.profile.UUID()) {
			return peripheral.ConnConnected
		}
		return peripheral.ConnDisconnected
	}
	return peripheral.ConnDisconnected
}

// ConnectionPolicy maps Device1.Blocked to Forbidden
func (p *ProfileProxy) ConnectionPolicy(address string) peripheral.ConnectionPolicy {
	d, err := p.adapter.Device(address)
	if err != nil {
		return peripheral.PolicyUnknown
	}
	blocked, err := d.Blocked()
	if err != nil {
		return peripheral.PolicyUnknown
	}
	if blocked {
		return peripheral.PolicyForbidden
	}
	return peripheral.PolicyAllowed
}

// SetConnectionPolicy connects the profile for Allowed and disconnects it
// for Forbidden. The calls run asynchronously; the outcome is reported as
// a connection state intent.
func (p *ProfileProxy) SetConnectionPolicy(address string, policy peripheral.ConnectionPolicy) error {
	d, err := p.adapter.Device(address)
	if err != nil {
		return err
	}

	var method string
	var onSuccess, onFailure peripheral.ConnectionState
	switch policy {
	case peripheral.PolicyAllowed:
		if err := p.adapter.setProp(d.path, deviceIface, "Blocked", false); err != nil {
			return err
		}
		method = "ConnectProfile"
		onSuccess, onFailure = peripheral.ConnConnected, peripheral.ConnDisconnected
	case peripheral.PolicyForbidden:
		method = "DisconnectProfile"
		onSuccess, onFailure = peripheral.ConnDisconnected, peripheral.ConnConnected
	default:
		return fmt.Errorf("%w: connection policy %d", ErrNotSupported, policy)
	}

	obj := p.adapter.conn.Object(busName, d.path)
	uuid := strings.ToLower(p.profile.UUID().String())
	go func() {
		state := onSuccess
		if err := obj.Call(deviceIface+"."+method, 0, uuid).Err; err != nil {
			d.logger.Warn("profile call failed",
				zap.String("method", method),
				zap.Stringer("profile", p.profile),
				zap.Error(err))
			state = onFailure
		}
		p.adapter.emit(peripheral.Intent{
			Device:          d.address,
			Kind:            peripheral.IntentConnectionStateChanged,
			Profile:         p.profile,
			ConnectionState: state,
		})
	}()
	return nil
}
