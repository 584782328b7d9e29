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

// Package bluez binds the handover machines to the Linux BlueZ daemon over
// the system D-Bus.
//
// Adapter implements the platform ports of the peripheral and coordinator
// packages. BlueZ reports results as property changes, so a Watcher must
// run alongside it to turn PropertiesChanged signals into intents.
package bluez

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	handover "github.com/ZaparooProject/go-nfc-handover"
	"github.com/ZaparooProject/go-nfc-handover/internal/retry"
	"github.com/ZaparooProject/go-nfc-handover/peripheral"
)

const (
	busName            = "org.bluez"
	adapterIface       = "org.bluez.Adapter1"
	deviceIface        = "org.bluez.Device1"
	propsIface         = "org.freedesktop.DBus.Properties"
	propsSignal        = propsIface + ".PropertiesChanged"
	objectManagerIface = "org.freedesktop.DBus.ObjectManager"

	// DefaultAdapterPath is the object path of the first controller
	DefaultAdapterPath dbus.ObjectPath = "/org/bluez/hci0"
)

// BlueZ error names
const (
	errInProgress    = "org.bluez.Error.InProgress"
	errNotReady      = "org.bluez.Error.NotReady"
	errBusy          = "org.bluez.Error.Busy"
	errAlreadyExists = "org.bluez.Error.AlreadyExists"
)

var (
	ErrNilConn        = errors.New("D-Bus connection cannot be nil")
	ErrBluezNotFound  = errors.New("org.bluez not found on system bus")
	ErrUnexpectedType = errors.New("unexpected property type")
	ErrNotSupported   = errors.New("not supported by BlueZ")
	ErrNoProfileUUID  = errors.New("profile has no service UUID")
	ErrInvalidAddress = errors.New("invalid device address")
)

// Conn is the part of *dbus.Conn the binding uses
type Conn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	BusObject() dbus.BusObject
	AddMatchSignal(options ...dbus.MatchOption) error
	RemoveMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
	Close() error
}

// DefaultRetryConfig is used for property access on a busy controller
func DefaultRetryConfig() retry.Config {
	return retry.Config{
		MaxRetries: 3,
		RetryDelay: 100 * time.Millisecond,
		MaxDelay:   time.Second,
	}
}

// Adapter is one BlueZ controller
type Adapter struct {
	conn     Conn
	logger   *zap.Logger
	onIntent func(peripheral.Intent)
	pairing  map[string]bool
	path     dbus.ObjectPath
	retry    retry.Config
	mu       sync.Mutex
}

// Option configures an Adapter
type Option func(*Adapter) error

// WithAdapterPath selects a controller other than hci0
func WithAdapterPath(path dbus.ObjectPath) Option {
	return func(a *Adapter) error {
		if !path.IsValid() {
			return fmt.Errorf("invalid adapter path %q", path)
		}
		a.path = path
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) error {
		if logger != nil {
			a.logger = logger
		}
		return nil
	}
}

// WithIntentHandler receives results of asynchronous calls such as Pair.
// It may be called from any goroutine.
func WithIntentHandler(fn func(peripheral.Intent)) Option {
	return func(a *Adapter) error {
		a.onIntent = fn
		return nil
	}
}

// WithRetry replaces the property access retry policy
func WithRetry(cfg retry.Config) Option {
	return func(a *Adapter) error {
		a.retry = cfg
		return nil
	}
}

// New binds an adapter to conn
func New(conn Conn, opts ...Option) (*Adapter, error) {
	if conn == nil {
		return nil, ErrNilConn
	}
	a := &Adapter{
		conn:    conn,
		logger:  zap.NewNop(),
		pairing: make(map[string]bool),
		path:    DefaultAdapterPath,
		retry:   DefaultRetryConfig(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	a.logger = a.logger.With(zap.String("component", "bluez"), zap.String("adapter", string(a.path)))
	return a, nil
}

// Dial connects to the system bus and checks that BlueZ is running
func Dial(opts ...Option) (*Adapter, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}

	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("list bus names: %w", err)
	}
	found := false
	for _, n := range names {
		if n == busName {
			found = true
			break
		}
	}
	if !found {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: is bluetooth.service running?", ErrBluezNotFound)
	}

	a, err := New(conn, opts...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the bus connection
func (a *Adapter) Close() error {
	return a.conn.Close()
}

// Path returns the adapter object path
func (a *Adapter) Path() dbus.ObjectPath {
	return a.path
}

// deviceObjectPath converts "AA:BB:CC:DD:EE:FF" to <adapter>/dev_AA_BB_CC_DD_EE_FF
func deviceObjectPath(adapter dbus.ObjectPath, address string) dbus.ObjectPath {
	escaped := strings.ReplaceAll(strings.ToUpper(address), ":", "_")
	return dbus.ObjectPath(string(adapter) + "/dev_" + escaped)
}

// addressFromPath extracts the device address of a BlueZ device object path
func addressFromPath(adapter, path dbus.ObjectPath) string {
	prefix := string(adapter) + "/dev_"
	s := string(path)
	if !strings.HasPrefix(s, prefix) {
		return ""
	}
	address := strings.ReplaceAll(s[len(prefix):], "_", ":")
	if !handover.IsValidAddress(address) {
		return ""
	}
	return address
}

// errorName returns the D-Bus error name of err, if any
func errorName(err error) string {
	var value dbus.Error
	if errors.As(err, &value) {
		return value.Name
	}
	var ptr *dbus.Error
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Name
	}
	return ""
}

func transient(err error) bool {
	switch errorName(err) {
	case errInProgress, errNotReady, errBusy:
		return true
	default:
		return false
	}
}

func (a *Adapter) emit(intent peripheral.Intent) {
	if a.onIntent != nil {
		a.onIntent(intent)
	}
}

func (a *Adapter) retryConfig(description string) retry.Config {
	cfg := a.retry
	cfg.Description = description
	return cfg
}

func (a *Adapter) getProp(path dbus.ObjectPath, iface, prop string) (dbus.Variant, error) {
	return retry.WithRetry(context.Background(), a.retryConfig("get "+prop),
		func() (dbus.Variant, bool, error) {
			var v dbus.Variant
			err := a.conn.Object(busName, path).Call(propsIface+".Get", 0, iface, prop).Store(&v)
			if err != nil {
				if transient(err) {
					return v, true, nil
				}
				return v, false, fmt.Errorf("get %s.%s: %w", iface, prop, err)
			}
			return v, false, nil
		})
}

func (a *Adapter) setProp(path dbus.ObjectPath, iface, prop string, val any) error {
	_, err := retry.WithRetry(context.Background(), a.retryConfig("set "+prop),
		func() (struct{}, bool, error) {
			err := a.conn.Object(busName, path).Call(propsIface+".Set", 0, iface, prop, dbus.MakeVariant(val)).Err
			if err != nil {
				if transient(err) {
					return struct{}{}, true, nil
				}
				return struct{}{}, false, fmt.Errorf("set %s.%s: %w", iface, prop, err)
			}
			return struct{}{}, false, nil
		})
	return err
}

func (a *Adapter) getBool(path dbus.ObjectPath, iface, prop string) (bool, error) {
	v, err := a.getProp(path, iface, prop)
	if err != nil {
		return false, err
	}
	val, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s is %s", ErrUnexpectedType, prop, v.Signature())
	}
	return val, nil
}

func (a *Adapter) getString(path dbus.ObjectPath, iface, prop string) (string, error) {
	v, err := a.getProp(path, iface, prop)
	if err != nil {
		return "", err
	}
	val, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %s", ErrUnexpectedType, prop, v.Signature())
	}
	return val, nil
}

// managedDevice is the Device1 state of one object
type managedDevice struct {
	address   string
	uuids     []string
	connected bool
}

func (a *Adapter) managedDevices() ([]managedDevice, error) {
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	err := a.conn.Object(busName, "/").Call(objectManagerIface+".GetManagedObjects", 0).Store(&objects)
	if err != nil {
		return nil, fmt.Errorf("get managed objects: %w", err)
	}

	var devices []managedDevice
	for path, ifaces := range objects {
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}
		address := addressFromPath(a.path, path)
		if address == "" {
			continue
		}
		d := managedDevice{address: address}
		if v, ok := props["Connected"]; ok {
			d.connected, _ = v.Value().(bool)
		}
		if v, ok := props["UUIDs"]; ok {
			d.uuids, _ = v.Value().([]string)
		}
		devices = append(devices, d)
	}
	return devices, nil
}
