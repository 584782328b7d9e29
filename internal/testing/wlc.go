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

package testing

import (
	"errors"
	"sync"
	"time"

	handover "github.com/ZaparooProject/go-nfc-handover"
)

// ErrListenerRemoved is returned by tag I/O once the listener left the field
var ErrListenerRemoved = errors.New("listener not present")

// VirtualListener simulates a WLC listener tag
type VirtualListener struct {
	ReadErr       error
	WriteErr      error
	DisconnectErr error
	// OnWrite is called after each successful write, outside the lock, so
	// tests can emulate the listener answer
	OnWrite func(data []byte)

	onRemoved      func()
	ndef           []byte
	writes         [][]byte
	interval       time.Duration
	disconnects    int
	presenceStarts int
	presenceStops  int
	mu             sync.Mutex
	present        bool
	checking       bool
}

// NewVirtualListener creates a present listener with an empty NDEF area
func NewVirtualListener() *VirtualListener {
	return &VirtualListener{present: true}
}

// SetRecords stores an NDEF message made of records
func (v *VirtualListener) SetRecords(records ...handover.Record) error {
	data, err := handover.NewMessage(records...).Marshal()
	if err != nil {
		return err
	}
	v.SetNDEF(data)
	return nil
}

// SetNDEF stores raw NDEF bytes
func (v *VirtualListener) SetNDEF(data []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ndef = append([]byte(nil), data...)
}

// ReadNdef returns the stored message
func (v *VirtualListener) ReadNdef() ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.present {
		return nil, ErrListenerRemoved
	}
	if v.ReadErr != nil {
		return nil, v.ReadErr
	}
	return append([]byte(nil), v.ndef...), nil
}

// WriteNdef replaces the stored message and records the write
func (v *VirtualListener) WriteNdef(data []byte) error {
	v.mu.Lock()
	if !v.present {
		v.mu.Unlock()
		return ErrListenerRemoved
	}
	if v.WriteErr != nil {
		err := v.WriteErr
		v.mu.Unlock()
		return err
	}
	v.ndef = append([]byte(nil), data...)
	v.writes = append(v.writes, append([]byte(nil), data...))
	hook := v.OnWrite
	v.mu.Unlock()

	if hook != nil {
		hook(data)
	}
	return nil
}

// Writes returns every message written so far
func (v *VirtualListener) Writes() [][]byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([][]byte, len(v.writes))
	copy(out, v.writes)
	return out
}

// StartPresenceChecking remembers the removal callback
func (v *VirtualListener) StartPresenceChecking(interval time.Duration, onDisconnected func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.checking = true
	v.interval = interval
	v.onRemoved = onDisconnected
	v.presenceStarts++
}

// StopPresenceChecking drops the removal callback
func (v *VirtualListener) StopPresenceChecking() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.checking = false
	v.onRemoved = nil
	v.presenceStops++
}

// PresenceChecking returns whether presence checking runs and its interval
func (v *VirtualListener) PresenceChecking() (bool, time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.checking, v.interval
}

// PresenceStarts returns how often presence checking was started
func (v *VirtualListener) PresenceStarts() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.presenceStarts
}

// Disconnect records a disconnect
func (v *VirtualListener) Disconnect() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.disconnects++
	return v.DisconnectErr
}

// Disconnects returns how often Disconnect was called
func (v *VirtualListener) Disconnects() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.disconnects
}

// IsPresent reports whether the listener is in the field
func (v *VirtualListener) IsPresent() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.present
}

// Remove takes the listener out of the field and fires the removal
// callback when presence checking is active
func (v *VirtualListener) Remove() {
	v.mu.Lock()
	v.present = false
	cb := v.onRemoved
	if !v.checking {
		cb = nil
	}
	v.checking = false
	v.onRemoved = nil
	v.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Insert puts the listener back into the field
func (v *VirtualListener) Insert() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.present = true
}

// WptCall records one StartWpt invocation
type WptCall struct {
	PowerAdjust byte
	TimeInt     byte
}

// VirtualChargingHost simulates the NFC controller side of WLC
type VirtualChargingHost struct {
	StartWptErr    error
	calls          []WptCall
	screenMessages int
	mu             sync.Mutex
}

// StartWpt records the call
func (h *VirtualChargingHost) StartWpt(powerAdjust, timeInt byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.StartWptErr != nil {
		return h.StartWptErr
	}
	h.calls = append(h.calls, WptCall{PowerAdjust: powerAdjust, TimeInt: timeInt})
	return nil
}

// SendScreenMessageAfterNfcCharging counts the notification
func (h *VirtualChargingHost) SendScreenMessageAfterNfcCharging() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.screenMessages++
}

// WptCalls returns the recorded StartWpt calls
func (h *VirtualChargingHost) WptCalls() []WptCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]WptCall(nil), h.calls...)
}

// ScreenMessages returns how often normal NFC behavior was restored
func (h *VirtualChargingHost) ScreenMessages() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.screenMessages
}
