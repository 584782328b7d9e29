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
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ZaparooProject/go-nfc-handover/peripheral"
)

// Address returns the controller address
func (a *Adapter) Address() string {
	address, err := a.getString(a.path, adapterIface, "Address")
	if err != nil {
		a.logger.Warn("failed to read adapter address", zap.Error(err))
		return ""
	}
	return address
}

// IsEnabled reports whether the controller is powered
func (a *Adapter) IsEnabled() bool {
	powered, err := a.getBool(a.path, adapterIface, "Powered")
	if err != nil {
		a.logger.Debug("failed to read adapter power", zap.Error(err))
		return false
	}
	return powered
}

// Enable powers the controller on. The Watcher reports completion.
func (a *Adapter) Enable() error {
	a.logger.Info("powering adapter on")
	return a.setProp(a.path, adapterIface, "Powered", true)
}

// Disable powers the controller off
func (a *Adapter) Disable() error {
	a.logger.Info("powering adapter off")
	return a.setProp(a.path, adapterIface, "Powered", false)
}

// HasConnectedDevices reports whether any device of this controller is connected
func (a *Adapter) HasConnectedDevices() bool {
	devices, err := a.managedDevices()
	if err != nil {
		a.logger.Warn("failed to list devices", zap.Error(err))
		return false
	}
	for _, d := range devices {
		if d.connected {
			return true
		}
	}
	return false
}

// RemoteDevice returns the device with address
func (a *Adapter) RemoteDevice(address string) (peripheral.Device, error) {
	return a.Device(address)
}

// GetProfileProxy hands out a proxy for profile. BlueZ profiles need no
// binding, so the proxy is delivered right away on another goroutine.
func (a *Adapter) GetProfileProxy(profile peripheral.Profile, callbacks peripheral.ProxyCallbacks) error {
	if profile.UUID() == uuid.Nil {
		return ErrNoProfileUUID
	}
	proxy := &ProfileProxy{adapter: a, profile: profile}
	if callbacks.OnConnected != nil {
		go callbacks.OnConnected(proxy)
	}
	return nil
}

// CloseProfileProxy releases a proxy
func (a *Adapter) CloseProfileProxy(profile peripheral.Profile, _ peripheral.ProfileProxy) {
	a.logger.Debug("profile proxy closed", zap.Stringer("profile", profile))
}
