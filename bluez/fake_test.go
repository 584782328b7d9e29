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
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
)

type fakeCall struct {
	method string
	path   dbus.ObjectPath
	args   []any
}

// fakeBus is an in-memory BlueZ object tree
type fakeBus struct {
	props   map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	errs    map[string][]error
	gates   map[string]chan struct{}
	calls   []fakeCall
	signals []chan<- *dbus.Signal
	matches int
	removed int
	closed  bool
	mu      sync.Mutex
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		props: make(map[dbus.ObjectPath]map[string]map[string]dbus.Variant),
		errs:  make(map[string][]error),
		gates: make(map[string]chan struct{}),
	}
}

func (b *fakeBus) set(path dbus.ObjectPath, iface, prop string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.props[path] == nil {
		b.props[path] = make(map[string]map[string]dbus.Variant)
	}
	if b.props[path][iface] == nil {
		b.props[path][iface] = make(map[string]dbus.Variant)
	}
	b.props[path][iface][prop] = dbus.MakeVariant(value)
}

func (b *fakeBus) get(path dbus.ObjectPath, iface, prop string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.props[path][iface][prop]
	if !ok {
		return nil, false
	}
	return v.Value(), true
}

// fail queues errors returned by the next calls of method
func (b *fakeBus) fail(method string, errs ...error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs[method] = append(b.errs[method], errs...)
}

// gate blocks calls of method until the returned channel is closed
func (b *fakeBus) gate(method string) chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan struct{})
	b.gates[method] = ch
	return ch
}

func (b *fakeBus) callsOf(method string) []fakeCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []fakeCall
	for _, c := range b.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func (b *fakeBus) call(path dbus.ObjectPath, method string, args []any) *dbus.Call {
	b.mu.Lock()
	b.calls = append(b.calls, fakeCall{method: method, path: path, args: args})
	gate := b.gates[method]
	var err error
	if queued := b.errs[method]; len(queued) > 0 {
		err = queued[0]
		b.errs[method] = queued[1:]
	}
	b.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return &dbus.Call{Err: err}
	}

	switch method {
	case propsIface + ".Get":
		iface, _ := args[0].(string)
		prop, _ := args[1].(string)
		b.mu.Lock()
		v, ok := b.props[path][iface][prop]
		b.mu.Unlock()
		if !ok {
			return &dbus.Call{Err: dbus.Error{Name: "org.freedesktop.DBus.Error.InvalidArgs"}}
		}
		return &dbus.Call{Body: []any{v}}
	case propsIface + ".Set":
		iface, _ := args[0].(string)
		prop, _ := args[1].(string)
		v, _ := args[2].(dbus.Variant)
		b.set(path, iface, prop, v.Value())
		return &dbus.Call{}
	case objectManagerIface + ".GetManagedObjects":
		b.mu.Lock()
		defer b.mu.Unlock()
		objects := make(map[dbus.ObjectPath]map[string]map[string]dbus.Variant, len(b.props))
		for p, ifaces := range b.props {
			if !strings.HasPrefix(string(p), "/org/bluez") {
				continue
			}
			objects[p] = ifaces
		}
		return &dbus.Call{Body: []any{objects}}
	default:
		return &dbus.Call{}
	}
}

func (b *fakeBus) Object(_ string, path dbus.ObjectPath) dbus.BusObject {
	return &fakeObject{bus: b, path: path}
}

func (b *fakeBus) BusObject() dbus.BusObject {
	return &fakeObject{bus: b, path: "/org/freedesktop/DBus"}
}

func (b *fakeBus) AddMatchSignal(...dbus.MatchOption) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.matches++
	return nil
}

func (b *fakeBus) RemoveMatchSignal(...dbus.MatchOption) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.matches--
	return nil
}

func (b *fakeBus) Signal(ch chan<- *dbus.Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signals = append(b.signals, ch)
}

func (b *fakeBus) RemoveSignal(ch chan<- *dbus.Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, c := range b.signals {
		if c == ch {
			b.signals = append(b.signals[:i], b.signals[i+1:]...)
			b.removed++
			return
		}
	}
}

func (b *fakeBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *fakeBus) emit(sig *dbus.Signal) {
	b.mu.Lock()
	subscribers := append([]chan<- *dbus.Signal(nil), b.signals...)
	b.mu.Unlock()
	for _, ch := range subscribers {
		ch <- sig
	}
}

func (b *fakeBus) subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.signals)
}

// fakeObject forwards Call to the bus; other BusObject methods are unused
type fakeObject struct {
	dbus.BusObject
	bus  *fakeBus
	path dbus.ObjectPath
}

func (o *fakeObject) Call(method string, _ dbus.Flags, args ...any) *dbus.Call {
	return o.bus.call(o.path, method, args)
}

func (o *fakeObject) Path() dbus.ObjectPath {
	return o.path
}

func (*fakeObject) Destination() string {
	return busName
}
