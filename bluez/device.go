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

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	handover "github.com/ZaparooProject/go-nfc-handover"
	"github.com/ZaparooProject/go-nfc-handover/peripheral"
)

// Device is one remote device known to the controller
type Device struct {
	adapter *Adapter
	logger  *zap.Logger
	address string
	path    dbus.ObjectPath
}

// Device returns the device with address
func (a *Adapter) Device(address string) (*Device, error) {
	if !handover.IsValidAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	address = strings.ToUpper(address)
	return &Device{
		adapter: a,
		logger:  a.logger.With(zap.String("device", handover.MaskAddress(address))),
		address: address,
		path:    deviceObjectPath(a.path, address),
	}, nil
}

// Address returns the uppercase device address
func (d *Device) Address() string {
	return d.address
}

// Path returns the device object path
func (d *Device) Path() dbus.ObjectPath {
	return d.path
}

// BondState maps Paired and an in-flight Pair call to a bond state
func (d *Device) BondState() peripheral.BondState {
	d.adapter.mu.Lock()
	pairing := d.adapter.pairing[d.address]
	d.adapter.mu.Unlock()
	if pairing {
		return peripheral.BondBonding
	}

	paired, err := d.adapter.getBool(d.path, deviceIface, "Paired")
	if err != nil {
		d.logger.Debug("failed to read pairing state", zap.Error(err))
		return peripheral.BondNone
	}
	if paired {
		return peripheral.BondBonded
	}
	return peripheral.BondNone
}

// CreateBond starts Device1.Pair. The result is reported as a bond state
// intent once the call returns.
func (d *Device) CreateBond(transport handover.Transport) error {
	a := d.adapter
	a.mu.Lock()
	if a.pairing[d.address] {
		a.mu.Unlock()
		return nil
	}
	a.pairing[d.address] = true
	a.mu.Unlock()

	d.logger.Info("pairing", zap.Stringer("transport", transport))
	obj := a.conn.Object(busName, d.path)
	go func() {
		err := obj.Call(deviceIface+".Pair", 0).Err

		a.mu.Lock()
		delete(a.pairing, d.address)
		a.mu.Unlock()

		state := peripheral.BondBonded
		if err != nil && errorName(err) != errAlreadyExists {
			d.logger.Warn("pairing failed", zap.Error(err))
			state = peripheral.BondNone
		}
		a.emit(peripheral.Intent{
			Device:    d.address,
			Kind:      peripheral.IntentBondStateChanged,
			BondState: state,
		})
	}()
	return nil
}

// CreateBondOutOfBand pairs without the OOB data. The BlueZ D-Bus API has
// no out-of-band pairing call for remote data.
func (d *Device) CreateBondOutOfBand(transport handover.Transport, oob *handover.OOBData) error {
	if oob != nil {
		d.logger.Debug("ignoring OOB data", zap.Bool("has_tk", len(oob.TK) > 0))
	}
	return d.CreateBond(transport)
}

// SetPairingConfirmation needs a registered pairing agent
func (*Device) SetPairingConfirmation(bool) error {
	return ErrNotSupported
}

// SetAlias sets Device1.Alias
func (d *Device) SetAlias(alias string) error {
	return d.adapter.setProp(d.path, deviceIface, "Alias", alias)
}

// Disconnect calls Device1.Disconnect
func (d *Device) Disconnect() error {
	if err := d.adapter.conn.Object(busName, d.path).Call(deviceIface+".Disconnect", 0).Err; err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

// Connected reads Device1.Connected
func (d *Device) Connected() (bool, error) {
	return d.adapter.getBool(d.path, deviceIface, "Connected")
}

// Blocked reads Device1.Blocked
func (d *Device) Blocked() (bool, error) {
	return d.adapter.getBool(d.path, deviceIface, "Blocked")
}

// UUIDs reads the service UUIDs of the device
func (d *Device) UUIDs() ([]uuid.UUID, error) {
	v, err := d.adapter.getProp(d.path, deviceIface, "UUIDs")
	if err != nil {
		return nil, err
	}
	raw, ok := v.Value().([]string)
	if !ok {
		return nil, fmt.Errorf("%w: UUIDs is %s", ErrUnexpectedType, v.Signature())
	}
	return parseUUIDs(raw), nil
}

func parseUUIDs(raw []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		if u, err := uuid.Parse(s); err == nil {
			out = append(out, u)
		}
	}
	return out
}

func hasUUID(raw []string, want uuid.UUID) bool {
	for _, u := range parseUUIDs(raw) {
		if u == want {
			return true
		}
	}
	return false
}
