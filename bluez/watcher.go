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
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/ZaparooProject/go-nfc-handover/peripheral"
)

var ErrWatcherRunning = errors.New("watcher is already running")

var watchedProfiles = []peripheral.Profile{peripheral.ProfileHID, peripheral.ProfileHFP, peripheral.ProfileA2DP}

// Watcher turns BlueZ PropertiesChanged signals into intents
type Watcher struct {
	conn       Conn
	logger     *zap.Logger
	handle     func(peripheral.Intent)
	cancelFunc context.CancelFunc
	done       chan struct{}
	path       dbus.ObjectPath
	stopMutex  sync.Mutex
	running    atomic.Bool
}

// NewWatcher watches the controller of a. handle runs on the watcher goroutine.
func NewWatcher(a *Adapter, handle func(peripheral.Intent)) *Watcher {
	return &Watcher{
		conn:   a.conn,
		logger: a.logger.With(zap.String("component", "bluez-watcher")),
		handle: handle,
		path:   a.path,
	}
}

func (w *Watcher) matchOptions() []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchInterface(propsIface),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchPathNamespace("/org/bluez"),
	}
}

// Start subscribes to property changes
func (w *Watcher) Start(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrWatcherRunning
	}
	if err := w.conn.AddMatchSignal(w.matchOptions()...); err != nil {
		w.running.Store(false)
		return fmt.Errorf("subscribe to BlueZ signals: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	w.conn.Signal(signals)

	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.stopMutex.Lock()
	w.cancelFunc = cancel
	w.done = done
	w.stopMutex.Unlock()

	go func() {
		defer func() {
			w.conn.RemoveSignal(signals)
			if err := w.conn.RemoveMatchSignal(w.matchOptions()...); err != nil {
				w.logger.Debug("failed to remove signal match", zap.Error(err))
			}
			w.running.Store(false)
			close(done)
		}()
		w.run(watchCtx, signals)
	}()
	return nil
}

// Stop unsubscribes and waits for the watcher goroutine
func (w *Watcher) Stop() error {
	w.stopMutex.Lock()
	cancel, done := w.cancelFunc, w.done
	w.cancelFunc = nil
	w.stopMutex.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// IsRunning returns whether the watcher goroutine is active
func (w *Watcher) IsRunning() bool {
	return w.running.Load()
}

func (w *Watcher) run(ctx context.Context, signals <-chan *dbus.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			for _, intent := range decodePropertiesChanged(w.path, sig) {
				w.logger.Debug("bluez intent",
					zap.Stringer("kind", intent.Kind),
					zap.Stringer("profile", intent.Profile))
				w.handle(intent)
			}
		}
	}
}

// decodePropertiesChanged maps one signal to intents. Body layout is
// [interface string, changed map[string]Variant, invalidated []string].
func decodePropertiesChanged(adapter dbus.ObjectPath, sig *dbus.Signal) []peripheral.Intent {
	if sig == nil || sig.Name != propsSignal || len(sig.Body) < 2 {
		return nil
	}
	iface, ok := sig.Body[0].(string)
	if !ok {
		return nil
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return nil
	}

	switch iface {
	case adapterIface:
		if sig.Path != adapter {
			return nil
		}
		powered, ok := boolProp(changed, "Powered")
		if !ok {
			return nil
		}
		return []peripheral.Intent{{Kind: peripheral.IntentAdapterStateChanged, AdapterOn: powered}}

	case deviceIface:
		address := addressFromPath(adapter, sig.Path)
		if address == "" {
			return nil
		}

		var intents []peripheral.Intent
		if paired, ok := boolProp(changed, "Paired"); ok {
			state := peripheral.BondNone
			if paired {
				state = peripheral.BondBonded
			}
			intents = append(intents, peripheral.Intent{
				Device:    address,
				Kind:      peripheral.IntentBondStateChanged,
				BondState: state,
			})
		}
		if connected, ok := boolProp(changed, "Connected"); ok {
			state := peripheral.ConnDisconnected
			if connected {
				state = peripheral.ConnConnected
			}
			for _, profile := range watchedProfiles {
				intents = append(intents, peripheral.Intent{
					Device:          address,
					Kind:            peripheral.IntentConnectionStateChanged,
					Profile:         profile,
					ConnectionState: state,
				})
			}
		}
		return intents
	}
	return nil
}

func boolProp(changed map[string]dbus.Variant, name string) (bool, bool) {
	v, ok := changed[name]
	if !ok {
		return false, false
	}
	b, ok := v.Value().(bool)
	return b, ok
}
