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
	"strings"
	"sync"

	handover "github.com/ZaparooProject/go-nfc-handover"
	"github.com/ZaparooProject/go-nfc-handover/peripheral"
)

// Test addresses
const (
	TestDeviceAddress = "00:11:22:33:44:55"
	TestOtherAddress  = "66:77:88:99:AA:BB"
	TestLocalAddress  = "01:23:45:67:89:AB"
)

// PolicyCall records one SetConnectionPolicy call
type PolicyCall struct {
	Address string
	Policy  peripheral.ConnectionPolicy
}

// VirtualDevice is a simulated remote Bluetooth device
type VirtualDevice struct {
	CreateBondErr error
	SetAliasErr   error
	DisconnectErr error
	// OnCreateBond runs after a successful bond request
	OnCreateBond  func()
	lastOOB       *handover.OOBData
	address       string
	alias         string
	confirmations []bool
	bondCalls     int
	oobBondCalls  int
	disconnects   int
	bond          peripheral.BondState
	mu            sync.Mutex
}

// NewVirtualDevice creates an unbonded device
func NewVirtualDevice(address string) *VirtualDevice {
	return &VirtualDevice{address: strings.ToUpper(address)}
}

func (d *VirtualDevice) Address() string {
	return d.address
}

func (d *VirtualDevice) BondState() peripheral.BondState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bond
}

// SetBondState changes the simulated bond state
func (d *VirtualDevice) SetBondState(state peripheral.BondState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bond = state
}

func (d *VirtualDevice) CreateBond(handover.Transport) error {
	d.mu.Lock()
	d.bondCalls++
	err := d.CreateBondErr
	if err == nil {
		d.bond = peripheral.BondBonding
	}
	hook := d.OnCreateBond
	d.mu.Unlock()

	if err == nil && hook != nil {
		hook()
	}
	return err
}

func (d *VirtualDevice) CreateBondOutOfBand(_ handover.Transport, oob *handover.OOBData) error {
	d.mu.Lock()
	d.oobBondCalls++
	d.lastOOB = oob
	err := d.CreateBondErr
	if err == nil {
		d.bond = peripheral.BondBonding
	}
	hook := d.OnCreateBond
	d.mu.Unlock()

	if err == nil && hook != nil {
		hook()
	}
	return err
}

func (d *VirtualDevice) SetPairingConfirmation(confirm bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.confirmations = append(d.confirmations, confirm)
	return nil
}

func (d *VirtualDevice) SetAlias(alias string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.SetAliasErr != nil {
		return d.SetAliasErr
	}
	d.alias = alias
	return nil
}

func (d *VirtualDevice) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disconnects++
	return d.DisconnectErr
}

// BondCalls returns the number of CreateBond calls
func (d *VirtualDevice) BondCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bondCalls
}

// OOBBondCalls returns the number of CreateBondOutOfBand calls
func (d *VirtualDevice) OOBBondCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.oobBondCalls
}

// LastOOB returns the OOB data of the last out-of-band bond request
func (d *VirtualDevice) LastOOB() *handover.OOBData {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastOOB
}

// Alias returns the alias set on the device
func (d *VirtualDevice) Alias() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.alias
}

// Disconnects returns the number of Disconnect calls
func (d *VirtualDevice) Disconnects() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disconnects
}

// Confirmations returns the pairing confirmations sent
func (d *VirtualDevice) Confirmations() []bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]bool(nil), d.confirmations...)
}

// VirtualProxy is a simulated profile proxy
type VirtualProxy struct {
	SetPolicyErr error
	states       map[string]peripheral.ConnectionState
	policies     map[string]peripheral.ConnectionPolicy
	calls        []PolicyCall
	profile      peripheral.Profile
	mu           sync.Mutex

	// AutoConnect makes an allowed policy connect the device at once
	AutoConnect    bool
	// AutoDisconnect makes a forbidden policy disconnect the device at once
	AutoDisconnect bool
}

// NewVirtualProxy creates a proxy with no connected device
func NewVirtualProxy(profile peripheral.Profile) *VirtualProxy {
	return &VirtualProxy{
		profile:  profile,
		states:   make(map[string]peripheral.ConnectionState),
		policies: make(map[string]peripheral.ConnectionPolicy),
	}
}

// Profile returns the profile the proxy serves
func (p *VirtualProxy) Profile() peripheral.Profile {
	return p.profile
}

func (p *VirtualProxy) ConnectedDevices() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []string
	for addr, state := range p.states {
		if state == peripheral.ConnConnected {
			out = append(out, addr)
		}
	}
	return out
}

func (p *VirtualProxy) ConnectionState(address string) peripheral.ConnectionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.states[strings.ToUpper(address)]
}

func (p *VirtualProxy) ConnectionPolicy(address string) peripheral.ConnectionPolicy {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.policies[strings.ToUpper(address)]
}

func (p *VirtualProxy) SetConnectionPolicy(address string, policy peripheral.ConnectionPolicy) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	address = strings.ToUpper(address)
	p.calls = append(p.calls, PolicyCall{Address: address, Policy: policy})
	if p.SetPolicyErr != nil {
		return p.SetPolicyErr
	}
	p.policies[address] = policy

	switch {
	case policy == peripheral.PolicyAllowed && p.AutoConnect:
		p.states[address] = peripheral.ConnConnected
	case policy == peripheral.PolicyForbidden && p.AutoDisconnect:
		p.states[address] = peripheral.ConnDisconnected
	}
	return nil
}

// SetState sets the connection state reported for address
func (p *VirtualProxy) SetState(address string, state peripheral.ConnectionState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states[strings.ToUpper(address)] = state
}

// SetPolicy sets the connection policy reported for address
func (p *VirtualProxy) SetPolicy(address string, policy peripheral.ConnectionPolicy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.policies[strings.ToUpper(address)] = policy
}

// PolicyCalls returns the recorded SetConnectionPolicy calls
func (p *VirtualProxy) PolicyCalls() []PolicyCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PolicyCall(nil), p.calls...)
}

// VirtualAdapter is a simulated local Bluetooth adapter
type VirtualAdapter struct {
	EnableErr error
	proxies   map[peripheral.Profile]*VirtualProxy
	proxyErrs map[peripheral.Profile]error
	callbacks map[peripheral.Profile]peripheral.ProxyCallbacks
	devices   map[string]*VirtualDevice
	closed    map[peripheral.Profile]int
	prompts   []string
	enables   int
	disables  int
	mu        sync.Mutex
	enabled   bool

	// Deferred holds proxy delivery until DeliverProxies
	Deferred bool
}

// NewVirtualAdapter creates a powered adapter serving HID, HFP and A2DP
func NewVirtualAdapter() *VirtualAdapter {
	a := &VirtualAdapter{
		proxies:   make(map[peripheral.Profile]*VirtualProxy),
		proxyErrs: make(map[peripheral.Profile]error),
		callbacks: make(map[peripheral.Profile]peripheral.ProxyCallbacks),
		devices:   make(map[string]*VirtualDevice),
		closed:    make(map[peripheral.Profile]int),
		enabled:   true,
	}
	for _, profile := range []peripheral.Profile{
		peripheral.ProfileHID, peripheral.ProfileHFP, peripheral.ProfileA2DP,
	} {
		a.proxies[profile] = NewVirtualProxy(profile)
	}
	return a
}

// Proxy returns the simulated proxy for profile
func (a *VirtualAdapter) Proxy(profile peripheral.Profile) *VirtualProxy {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.proxies[profile]
}

// AddDevice registers a remote device
func (a *VirtualAdapter) AddDevice(address string) *VirtualDevice {
	a.mu.Lock()
	defer a.mu.Unlock()

	d := NewVirtualDevice(address)
	a.devices[d.Address()] = d
	return d
}

// Device returns a registered device or nil
func (a *VirtualAdapter) Device(address string) *VirtualDevice {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.devices[strings.ToUpper(address)]
}

// FailProxy makes GetProfileProxy fail for profile
func (a *VirtualAdapter) FailProxy(profile peripheral.Profile, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.proxyErrs[profile] = err
}

func (a *VirtualAdapter) GetProfileProxy(profile peripheral.Profile, callbacks peripheral.ProxyCallbacks) error {
	a.mu.Lock()
	if err := a.proxyErrs[profile]; err != nil {
		a.mu.Unlock()
		return err
	}
	a.callbacks[profile] = callbacks
	proxy := a.proxies[profile]
	deferred := a.Deferred
	a.mu.Unlock()

	if !deferred && callbacks.OnConnected != nil {
		callbacks.OnConnected(proxy)
	}
	return nil
}

// DeliverProxies connects every proxy requested so far
func (a *VirtualAdapter) DeliverProxies() {
	a.mu.Lock()
	type pending struct {
		cb    peripheral.ProxyCallbacks
		proxy *VirtualProxy
	}
	var out []pending
	for _, profile := range []peripheral.Profile{
		peripheral.ProfileHID, peripheral.ProfileHFP, peripheral.ProfileA2DP,
	} {
		if cb, ok := a.callbacks[profile]; ok && cb.OnConnected != nil {
			out = append(out, pending{cb: cb, proxy: a.proxies[profile]})
		}
	}
	a.mu.Unlock()

	for _, p := range out {
		p.cb.OnConnected(p.proxy)
	}
}

// DropProxy reports profile's proxy as disconnected
func (a *VirtualAdapter) DropProxy(profile peripheral.Profile) {
	a.mu.Lock()
	cb, ok := a.callbacks[profile]
	a.mu.Unlock()

	if ok && cb.OnDisconnected != nil {
		cb.OnDisconnected()
	}
}

func (a *VirtualAdapter) CloseProfileProxy(profile peripheral.Profile, _ peripheral.ProfileProxy) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed[profile]++
}

// Closed returns how many times profile's proxy was closed
func (a *VirtualAdapter) Closed(profile peripheral.Profile) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed[profile]
}

// RequestPairConfirmation records the prompt
func (a *VirtualAdapter) RequestPairConfirmation(address, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prompts = append(a.prompts, strings.ToUpper(address))
	return nil
}

// Prompts returns the addresses a confirmation was requested for
func (a *VirtualAdapter) Prompts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.prompts...)
}

// RemoteDevice returns the registered device, adding it when unknown
func (a *VirtualAdapter) RemoteDevice(address string) (peripheral.Device, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	address = strings.ToUpper(address)
	d, ok := a.devices[address]
	if !ok {
		d = NewVirtualDevice(address)
		a.devices[address] = d
	}
	return d, nil
}

func (a *VirtualAdapter) IsEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// Enable records the request; the adapter stays off until SetEnabled
func (a *VirtualAdapter) Enable() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enables++
	return a.EnableErr
}

func (a *VirtualAdapter) Disable() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.disables++
	a.enabled = false
	return nil
}

// SetEnabled changes the simulated power state
func (a *VirtualAdapter) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// Enables returns the number of Enable calls
func (a *VirtualAdapter) Enables() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enables
}

// Disables returns the number of Disable calls
func (a *VirtualAdapter) Disables() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.disables
}

// Address returns the local adapter address
func (a *VirtualAdapter) Address() string {
	return TestLocalAddress
}

func (a *VirtualAdapter) HasConnectedDevices() bool {
	a.mu.Lock()
	proxies := make([]*VirtualProxy, 0, len(a.proxies))
	for _, p := range a.proxies {
		proxies = append(proxies, p)
	}
	a.mu.Unlock()

	for _, p := range proxies {
		if len(p.ConnectedDevices()) > 0 {
			return true
		}
	}
	return false
}
