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

// Package peripheral pairs with and connects a Bluetooth peripheral that was
// discovered through an NFC connection handover.
//
// A Machine is not safe for concurrent use. Every method, and every callback
// it schedules, must run on the goroutine behind its Scheduler. EventLoop is
// the Scheduler used outside of tests.
package peripheral

import (
	"strings"

	"go.uber.org/zap"

	handover "github.com/ZaparooProject/go-nfc-handover"
)

var allProfiles = []Profile{ProfileHID, ProfileHFP, ProfileA2DP}

// Machine drives one handover attempt for one device. A finished machine is
// never reused.
type Machine struct {
	adapter      Adapter
	sched        Scheduler
	timeoutTimer Timer
	retryTimer   Timer
	onComplete   func(success bool)
	logger       *zap.Logger
	proxies      map[Profile]ProfileProxy
	results      map[Profile]Result
	req          Request
	address      string
	enabled      []Profile
	cfg          Config
	state        State
	action       Action
	epoch        uint64
	retrySeq     uint64
	retryCount   int
	polling      bool
	awaitingUser bool
	completed    bool
}

// New creates a machine for req. onComplete is called once, on the
// scheduler goroutine, unless the machine is cancelled first.
func New(
	req Request,
	adapter Adapter,
	sched Scheduler,
	onComplete func(success bool),
	opts ...Option,
) (*Machine, error) {
	if req.Device == nil {
		return nil, ErrNilDevice
	}
	if adapter == nil {
		return nil, ErrNilAdapter
	}
	if sched == nil {
		return nil, ErrNilScheduler
	}

	m := &Machine{
		adapter:    adapter,
		sched:      sched,
		onComplete: onComplete,
		logger:     zap.NewNop(),
		proxies:    make(map[Profile]ProfileProxy),
		results:    make(map[Profile]Result),
		req:        req,
		address:    strings.ToUpper(req.Device.Address()),
		cfg:        DefaultConfig(),
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	m.logger = m.logger.With(
		zap.String("component", "peripheral-handover"),
		zap.String("device", handover.MaskAddress(m.address)),
		zap.Stringer("transport", req.Transport),
	)
	return m, nil
}

// Address returns the uppercase address of the device
func (m *Machine) Address() string {
	return m.address
}

// State returns the current state
func (m *Machine) State() State {
	return m.state
}

// Action returns the current action
func (m *Machine) Action() Action {
	return m.action
}

// Result returns the tracked result of profile
func (m *Machine) Result(profile Profile) Result {
	return m.results[profile]
}

// EnabledProfiles returns the profiles the machine acts on
func (m *Machine) EnabledProfiles() []Profile {
	return append([]Profile(nil), m.enabled...)
}

// HasStarted reports whether Start was called
func (m *Machine) HasStarted() bool {
	return m.state != StateInit
}

// IsComplete reports whether the machine finished or was cancelled
func (m *Machine) IsComplete() bool {
	return m.completed
}

// Start arms the overall timeout and requests the profile proxies the
// transport needs. It returns false when the machine already started or a
// proxy request failed, in which case the machine completed unsuccessfully.
//
// A timeout during connection polling resolves like an exhausted retry
// budget. In any earlier state it fails the handover.
func (m *Machine) Start() bool {
	if m.state != StateInit {
		return false
	}

	m.logger.Info("starting peripheral handover",
		zap.String("name", m.req.Name),
		zap.Bool("oob", m.req.OOB != nil))

	epoch := m.epoch
	m.timeoutTimer = m.sched.AfterFunc(m.cfg.Timeout, func() {
		if m.stale(epoch) {
			return
		}
		m.logger.Warn("peripheral handover timed out", zap.Stringer("state", m.state))
		if m.polling {
			// Same outcome as running out of retries
			m.giveUpPending()
			m.finish()
			return
		}
		m.complete(false)
	})

	m.state = StateWaitingForProxies
	for _, profile := range requiredProfiles(m.req.Transport) {
		if err := m.adapter.GetProfileProxy(profile, m.proxyCallbacks(profile, epoch)); err != nil {
			m.logger.Error("profile proxy request failed",
				zap.Stringer("profile", profile), zap.Error(err))
			m.complete(false)
			return false
		}
	}
	return true
}

// Cancel tears the machine down without calling the completion func
func (m *Machine) Cancel() {
	if m.completed {
		return
	}
	m.logger.Info("peripheral handover cancelled", zap.Stringer("state", m.state))
	m.shutdown()
}

// HandleIntent applies a platform event addressed to this machine's device.
// It returns false when the event was not for this machine.
func (m *Machine) HandleIntent(intent Intent) bool {
	if m.completed || !strings.EqualFold(intent.Device, m.address) {
		return false
	}

	switch intent.Kind {
	case IntentBondStateChanged:
		m.onBondStateChanged(intent.BondState)
	case IntentConnectionStateChanged:
		m.onConnectionStateChanged(intent.Profile, intent.ConnectionState)
	case IntentPairingRequest:
		m.onPairingRequest(intent.PairingVariant)
	case IntentUserConsent:
		m.OnUserConsent(intent.Allow)
	default:
		return false
	}
	return true
}

// OnUserConsent answers a pairing confirmation prompt
func (m *Machine) OnUserConsent(allow bool) {
	if m.completed {
		return
	}
	if !allow {
		m.logger.Info("user denied pairing")
		m.complete(false)
		return
	}
	if !m.awaitingUser {
		return
	}
	m.awaitingUser = false
	m.startBonding()
}

func (m *Machine) stale(epoch uint64) bool {
	return m.completed || m.epoch != epoch
}

func (m *Machine) proxyCallbacks(profile Profile, epoch uint64) ProxyCallbacks {
	return ProxyCallbacks{
		OnConnected: func(proxy ProfileProxy) {
			m.sched.Post(func() {
				if m.stale(epoch) {
					m.adapter.CloseProfileProxy(profile, proxy)
					return
				}
				m.onProxyConnected(profile, proxy)
			})
		},
		OnDisconnected: func() {
			m.sched.Post(func() {
				if m.stale(epoch) {
					return
				}
				m.onProxyDisconnected(profile)
			})
		},
	}
}

func (m *Machine) onProxyConnected(profile Profile, proxy ProfileProxy) {
	if old, ok := m.proxies[profile]; ok && old != proxy {
		m.adapter.CloseProfileProxy(profile, old)
	}
	m.proxies[profile] = proxy

	if m.state != StateWaitingForProxies {
		return
	}
	for _, required := range requiredProfiles(m.req.Transport) {
		if _, ok := m.proxies[required]; !ok {
			return
		}
	}
	m.nextStepInit()
}

func (m *Machine) onProxyDisconnected(profile Profile) {
	delete(m.proxies, profile)
	m.logger.Debug("profile proxy lost", zap.Stringer("profile", profile))

	if m.polling && m.results[profile] == ResultPending {
		m.results[profile] = m.failureResult()
		m.checkResults()
	}
}

func (m *Machine) nextStepInit() {
	m.state = StateInitComplete
	m.enabled = m.req.capabilities()

	if m.deviceConnected() {
		m.action = ActionDisconnect
		m.logger.Info("device already connected, disconnecting")
		m.nextStepDisconnect()
		return
	}

	m.action = ActionConnect
	allowed := make([]Profile, 0, len(m.enabled))
	for _, profile := range m.enabled {
		if m.proxies[profile].ConnectionPolicy(m.address) == PolicyForbidden {
			m.logger.Debug("profile connection forbidden", zap.Stringer("profile", profile))
			continue
		}
		allowed = append(allowed, profile)
	}
	m.enabled = allowed

	if len(allowed) == 0 {
		m.logger.Info("no profile allowed to connect")
		m.complete(false)
		return
	}
	m.nextStepConnect()
}

func (m *Machine) deviceConnected() bool {
	for _, profile := range m.enabled {
		proxy, ok := m.proxies[profile]
		if !ok {
			continue
		}
		for _, addr := range proxy.ConnectedDevices() {
			if strings.EqualFold(addr, m.address) {
				return true
			}
		}
	}
	return false
}

func (m *Machine) nextStepConnect() {
	switch m.req.Device.BondState() {
	case BondBonded:
		m.state = StateBonding
		m.startConnecting()
	case BondBonding:
		m.state = StateWaitingForBondConfirmation
	default:
		if prompter, ok := m.adapter.(PairingPrompter); ok && m.cfg.RequireConfirmation {
			m.state = StateWaitingForBondConfirmation
			m.awaitingUser = true
			if err := prompter.RequestPairConfirmation(m.address, m.req.Name); err != nil {
				m.logger.Error("pairing confirmation request failed", zap.Error(err))
				m.complete(false)
			}
			return
		}
		m.startBonding()
	}
}

func (m *Machine) startBonding() {
	m.state = StateBonding
	m.logger.Info("bonding", zap.Bool("oob", m.req.OOB != nil))

	var err error
	if m.req.OOB != nil {
		err = m.req.Device.CreateBondOutOfBand(m.req.Transport, m.req.OOB)
	} else {
		err = m.req.Device.CreateBond(m.req.Transport)
	}
	if err != nil {
		m.logger.Error("bond request failed", zap.Error(err))
		m.complete(false)
	}
}

func (m *Machine) onBondStateChanged(state BondState) {
	if m.polling || m.awaitingUser {
		return
	}
	if m.state != StateWaitingForBondConfirmation && m.state != StateBonding {
		return
	}

	switch state {
	case BondBonded:
		m.state = StateBonding
		m.startConnecting()
	case BondNone:
		m.logger.Info("bonding failed")
		m.complete(false)
	case BondBonding:
	}
}

func (m *Machine) onPairingRequest(variant PairingVariant) {
	if variant != PairingConsent {
		return
	}
	if err := m.req.Device.SetPairingConfirmation(true); err != nil {
		m.logger.Warn("pairing confirmation failed", zap.Error(err))
	}
}

func (m *Machine) startConnecting() {
	m.polling = true
	m.retryCount = m.cfg.MaxRetries

	for _, profile := range m.enabled {
		proxy, ok := m.proxies[profile]
		if !ok {
			m.results[profile] = ResultDisconnected
			continue
		}
		if proxy.ConnectionState(m.address) == ConnConnected {
			m.results[profile] = ResultConnected
			continue
		}
		m.results[profile] = ResultPending
		if err := proxy.SetConnectionPolicy(m.address, PolicyAllowed); err != nil {
			m.logger.Warn("profile connect failed", zap.Stringer("profile", profile), zap.Error(err))
			m.results[profile] = ResultDisconnected
		}
	}

	m.state = StateConnecting
	m.checkResults()
}

func (m *Machine) nextStepDisconnect() {
	m.state = StateDisconnecting
	m.polling = true
	m.retryCount = m.cfg.MaxRetries

	for _, profile := range m.enabled {
		proxy, ok := m.proxies[profile]
		if !ok || proxy.ConnectionState(m.address) == ConnDisconnected {
			m.results[profile] = ResultDisconnected
			continue
		}

		m.results[profile] = ResultPending
		var err error
		if m.req.Transport == handover.TransportLE {
			err = m.req.Device.Disconnect()
		} else {
			err = proxy.SetConnectionPolicy(m.address, PolicyForbidden)
		}
		if err != nil {
			m.logger.Warn("profile disconnect failed", zap.Stringer("profile", profile), zap.Error(err))
			m.results[profile] = ResultConnected
		}
	}

	m.checkResults()
}

func (m *Machine) onConnectionStateChanged(profile Profile, state ConnectionState) {
	if !m.polling || !m.isEnabled(profile) {
		return
	}

	switch {
	case state == ConnConnected && m.action == ActionConnect:
		m.results[profile] = ResultConnected
	case state == ConnDisconnected:
		m.results[profile] = ResultDisconnected
	default:
		return
	}
	m.checkResults()
}

func (m *Machine) isEnabled(profile Profile) bool {
	for _, p := range m.enabled {
		if p == profile {
			return true
		}
	}
	return false
}

// failureResult is what a pending profile becomes when it is given up
func (m *Machine) failureResult() Result {
	if m.action == ActionDisconnect {
		return ResultConnected
	}
	return ResultDisconnected
}

func (m *Machine) anyPending() bool {
	for _, profile := range m.enabled {
		if !m.results[profile].terminal() {
			return true
		}
	}
	return false
}

func (m *Machine) checkResults() {
	if m.completed {
		return
	}
	if m.anyPending() {
		m.scheduleRetry()
		return
	}
	m.finish()
}

func (m *Machine) scheduleRetry() {
	if m.retryTimer != nil {
		return
	}

	m.retrySeq++
	seq, epoch := m.retrySeq, m.epoch
	m.retryTimer = m.sched.AfterFunc(m.cfg.RetryDelay, func() {
		if m.stale(epoch) || seq != m.retrySeq {
			return
		}
		m.retryTimer = nil
		m.onRetry()
	})
}

func (m *Machine) onRetry() {
	m.pollPending()
	if !m.anyPending() {
		m.finish()
		return
	}

	if m.retryCount > 0 {
		m.retryCount--
		m.logger.Debug("profiles still pending", zap.Int("retries_left", m.retryCount))
		m.scheduleRetry()
		return
	}

	m.giveUpPending()
	m.finish()
}

func (m *Machine) giveUpPending() {
	failure := m.failureResult()
	for _, profile := range m.enabled {
		if m.results[profile] == ResultPending {
			m.logger.Info("giving up on profile", zap.Stringer("profile", profile))
			m.results[profile] = failure
		}
	}
}

func (m *Machine) pollPending() {
	for _, profile := range m.enabled {
		if m.results[profile] != ResultPending {
			continue
		}
		proxy, ok := m.proxies[profile]
		if !ok {
			continue
		}

		switch proxy.ConnectionState(m.address) {
		case ConnConnected:
			if m.action == ActionConnect {
				m.results[profile] = ResultConnected
			}
		case ConnDisconnected:
			if m.action == ActionDisconnect {
				m.results[profile] = ResultDisconnected
			}
		case ConnConnecting, ConnDisconnecting:
		}
	}
}

func (m *Machine) finish() {
	if m.action == ActionDisconnect {
		for _, profile := range m.enabled {
			if m.results[profile] != ResultDisconnected {
				m.complete(false)
				return
			}
		}
		m.complete(true)
		return
	}

	for _, profile := range m.enabled {
		if m.results[profile] == ResultConnected {
			m.complete(true)
			return
		}
	}
	m.complete(false)
}

func (m *Machine) complete(success bool) {
	if m.completed {
		return
	}
	m.shutdown()

	if success && m.action == ActionConnect && m.req.Name != "" {
		if err := m.req.Device.SetAlias(m.req.Name); err != nil {
			m.logger.Warn("setting device alias failed", zap.Error(err))
		}
	}

	m.logger.Info("peripheral handover complete",
		zap.Bool("success", success),
		zap.Stringer("action", m.action))

	if m.onComplete != nil {
		m.onComplete(success)
	}
}

// shutdown moves to Complete, invalidates pending timers and callbacks and
// releases every proxy.
func (m *Machine) shutdown() {
	m.completed = true
	m.state = StateComplete
	m.epoch++
	m.polling = false
	m.awaitingUser = false

	if m.timeoutTimer != nil {
		m.timeoutTimer.Stop()
		m.timeoutTimer = nil
	}
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}

	for _, profile := range allProfiles {
		if proxy, ok := m.proxies[profile]; ok {
			m.adapter.CloseProfileProxy(profile, proxy)
			delete(m.proxies, profile)
		}
	}
}
