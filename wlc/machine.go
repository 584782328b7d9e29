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

// Package wlc negotiates NFC wireless charging with a WLC listener tag.
//
// The Machine runs the poller side of the NFC Forum WLC exchange: it reads
// the listener capability (WLCCAP), writes and reads control records
// (WLCCTL), reports listener status and starts wireless power transfer on the
// host controller. Like the peripheral machine it must only be used from the
// goroutine behind its Scheduler. Session drives it step by step.
package wlc

import (
	"time"

	"go.uber.org/zap"

	handover "github.com/ZaparooProject/go-nfc-handover"
	"github.com/ZaparooProject/go-nfc-handover/metrics"
	"github.com/ZaparooProject/go-nfc-handover/peripheral"
)

// Machine is the WLC poller state machine for one listener at a time
type Machine struct {
	tag         TagEndpoint
	host        Host
	sched       peripheral.Scheduler
	logger      *zap.Logger
	metrics     *metrics.Collector
	onData      func(DeviceInfo)
	wake        func()
	watchdog    *Watchdog
	discovered  *handover.Message
	info        DeviceInfo
	capability  Capability
	control     Control
	cfg         Config
	wptDuration time.Duration
	epoch       uint64
	state       int
	counter     int
	battery     int
	negoRetries int
	ctlRetries  int
	presence    bool
	first       bool
	charging    bool
	attached    bool
}

// New creates a charging machine for tag
func New(tag TagEndpoint, host Host, sched peripheral.Scheduler, opts ...Option) (*Machine, error) {
	if tag == nil {
		return nil, ErrNilTag
	}
	if host == nil {
		return nil, ErrNilHost
	}
	if sched == nil {
		return nil, ErrNilScheduler
	}

	m := &Machine{
		tag:    tag,
		host:   host,
		sched:  sched,
		logger: zap.NewNop(),
		cfg:    DefaultConfig(),
		info:   unknownDeviceInfo(),
		first:  true,
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	m.logger = m.logger.With(zap.String("component", "wlc"))
	m.ResetInternalValues()
	return m, nil
}

// Begin attaches the machine to a newly discovered listener. discovered is
// the NDEF message read during discovery and may be nil.
func (m *Machine) Begin(discovered *handover.Message) {
	m.epoch++
	m.attached = true
	m.discovered = discovered
	m.first = true
	m.presence = false
	m.ctlRetries = 0
	m.capability = Capability{}
	m.control = Control{}
	m.info = unknownDeviceInfo()
	m.ResetInternalValues()
	m.setState(StateReadCapability)
}

// State returns the current state number
func (m *Machine) State() int { return m.state }

// Presence reports whether the last read found the expected records
func (m *Machine) Presence() bool { return m.presence }

// Charging reports whether power transfer is ongoing
func (m *Machine) Charging() bool { return m.charging }

// FirstOccurrence reports whether the next WLCCAP starts a fresh negotiation
func (m *Machine) FirstOccurrence() bool { return m.first }

// Attached reports whether a listener session is in progress
func (m *Machine) Attached() bool { return m.attached }

// NegoRetries returns the remaining nego-wait retries
func (m *Machine) NegoRetries() int { return m.negoRetries }

// ControlRetries returns how often the WLCCTL answer was missing in a row
func (m *Machine) ControlRetries() int { return m.ctlRetries }

// Counter returns the WLCCTL counter, -1 before the first write
func (m *Machine) Counter() int { return m.counter }

// BatteryLevel returns the battery level from the last WLCCTL, -1 if unknown
func (m *Machine) BatteryLevel() int { return m.battery }

// Capability returns the last WLCCAP read
func (m *Machine) Capability() Capability { return m.capability }

// Control returns the last WLCCTL read
func (m *Machine) Control() Control { return m.control }

// DeviceInfo returns the listener info gathered so far
func (m *Machine) DeviceInfo() DeviceInfo { return m.info }

// WptDuration returns the power transfer time requested by the listener
func (m *Machine) WptDuration() time.Duration { return m.wptDuration }

// PresenceCheckingActive reports whether the charging watchdog runs
func (m *Machine) PresenceCheckingActive() bool { return m.watchdog != nil }

// HandleWLCState runs the step of the current state
func (m *Machine) HandleWLCState() {
	m.logger.Debug("WLC step", zap.Int("state", m.state), zap.String("label", StateString(m.state)))

	switch m.state {
	case StateReadCapability:
		m.readCapability()
	case StateHandleModeRequest:
		if m.capability.ModeReq != 0 {
			m.setState(StateHandleNegoWait)
		} else {
			m.setState(StateHandleWpt)
		}
	case StateHandleNegoWait:
		m.handleNegoWait()
	case StateWriteControl:
		m.writeControl()
	case StateReadControl:
		m.readControl()
	case StateReadConfirmation:
		if err := m.writeControlRecord(true); err != nil {
			m.logger.Warn("failed to write WLCCTL confirmation", zap.Error(err))
			m.presence = false
			m.setState(StateReadCapability)
			return
		}
		m.setState(StateCheckWptRequest)
	case StateCheckWptRequest:
		m.checkWptRequest()
	case StateHandleWpt:
		m.handleWpt()
	case StateHandleInfoRequest:
		if m.control.InfoReq {
			m.setState(StateWriteControl)
		} else {
			m.setState(StateReadControl)
		}
	case StateRemovalDetection:
		m.tag.StopPresenceChecking()
		m.setState(StateReadCapability)
	case StateWptTimeCompleted:
		m.StopNfcChargingPresenceChecking()
		m.setCharging(false)
		m.setState(StateHandleInfoRequest)
	case StateFodDetection:
		m.StopNfcChargingPresenceChecking()
		m.setCharging(false)
		m.ResetInternalValues()
		m.setState(StateReadCapability)
	default:
		m.logger.Warn("unknown WLC state", zap.Int("state", m.state))
		m.setState(StateReadCapability)
	}
}

func (m *Machine) readCapability() {
	fresh := m.first
	msg := m.readMessage()

	var capability Capability
	rec, ok := findRecord(msg, TypeCapability)
	if ok {
		capability, ok = ParseCapability(rec.Payload)
	}
	if !ok {
		m.presence = false
		m.logger.Debug("no WLC capability on tag")
		return
	}

	m.capability = capability
	if fresh {
		m.negoRetries = min(capability.NegoWaitRetries, m.cfg.MaxNegoRetries)
	}
	m.presence = true
	m.setState(StateHandleModeRequest)
}

func (m *Machine) handleNegoWait() {
	if m.capability.NegoWait != m.cfg.NegoWaitValue {
		m.setState(StateWriteControl)
		return
	}

	m.presence = false
	if m.negoRetries > 0 {
		m.negoRetries--
		m.logger.Debug("listener asked to wait", zap.Int("retries_left", m.negoRetries))
	} else {
		m.logger.Info("WLC negotiation retries exhausted")
		m.ResetInternalValues()
	}
	m.setState(StateReadCapability)
}

func (m *Machine) writeControl() {
	m.counter = (m.counter + 1) & 0x07
	if err := m.writeControlRecord(false); err != nil {
		m.logger.Warn("failed to write WLCCTL", zap.Error(err))
		m.presence = false
		m.setState(StateReadCapability)
		return
	}
	m.setState(StateReadControl)
}

func (m *Machine) writeControlRecord(confirm bool) error {
	counter := max(m.counter, 0)
	data, err := handover.NewMessage(NewRecord(TypeControl, encodeControl(counter, confirm))).Marshal()
	if err != nil {
		return err
	}
	return m.tag.WriteNdef(data)
}

func (m *Machine) readControl() {
	msg := m.readMessage()

	var control Control
	ctlRec, okCtl := findRecord(msg, TypeControl)
	if okCtl {
		control, okCtl = ParseControl(ctlRec.Payload)
	}
	var status StatusInfo
	staiRec, okStai := findRecord(msg, TypeStatusInfo)
	if okStai {
		status, okStai = ParseStatusInfo(staiRec.Payload)
	}

	if !okCtl || !okStai {
		m.presence = false
		if m.ctlRetries < m.cfg.MaxControlRetries {
			m.ctlRetries++
			m.logger.Debug("WLCCTL answer missing", zap.Int("retry", m.ctlRetries))
			return
		}
		m.logger.Info("no WLCCTL answer, restarting negotiation")
		m.ctlRetries = 0
		m.ResetInternalValues()
		m.setState(StateReadCapability)
		return
	}

	m.ctlRetries = 0
	m.presence = true
	m.control = control
	m.counter = control.Counter
	m.battery = control.BatteryLevel
	m.wptDuration = control.Duration()

	m.info.BatteryLevel = control.BatteryLevel
	if status.BatteryLevel >= 0 {
		m.info.BatteryLevel = status.BatteryLevel
	}
	m.info.Temperature = status.Temperature
	if rec, ok := findRecord(msg, TypeListenerInfo); ok {
		if vendor, ok := ParseListenerInfo(rec.Payload); ok {
			m.info.VendorID = vendor
		}
	}
	if m.charging {
		m.info.State = DeviceStateConnectedCharging
	} else {
		m.info.State = DeviceStateConnectedDischarging
	}

	m.metrics.WLCData()
	if m.onData != nil {
		m.onData(m.info)
	}

	if control.ReadConf {
		m.setState(StateReadConfirmation)
	} else {
		m.setState(StateCheckWptRequest)
	}
}

func (m *Machine) checkWptRequest() {
	if m.control.WptReq != 0 {
		m.setState(StateHandleWpt)
		return
	}

	epoch := m.epoch
	m.tag.StartPresenceChecking(m.wptDuration, func() {
		m.sched.Post(func() {
			if epoch == m.epoch && m.attached {
				m.OnTagDisconnected()
			}
		})
	})
	m.setState(StateRemovalDetection)
}

func (m *Machine) handleWpt() {
	powerAdjust := m.control.PowerAdjust
	timeInt := byte(m.control.WptDuration)
	if err := ValidateWptParams(powerAdjust, timeInt); err != nil {
		m.logger.Warn("listener requested invalid power transfer", zap.Error(err))
		m.presence = false
		m.ResetInternalValues()
		m.setState(StateReadCapability)
		return
	}
	if err := m.host.StartWpt(powerAdjust, timeInt); err != nil {
		m.logger.Warn("failed to start power transfer", zap.Error(err))
		m.setState(StateReadCapability)
		return
	}

	m.logger.Info("wireless power transfer started",
		zap.Uint8("power_adjust", powerAdjust),
		zap.Duration("duration", m.wptDuration))
	m.setCharging(true)
	m.StartNfcChargingPresenceChecking(m.cfg.PresenceInterval)
	m.setState(StateRemovalDetection)
}

// OnWlcStopped handles the end of power transfer reported by the controller
func (m *Machine) OnWlcStopped(reason int) {
	m.logger.Info("wireless power transfer stopped", zap.String("reason", stopReasonString(reason)))
	m.metrics.WLCStopped(stopReasonString(reason))

	switch reason {
	case StopReasonTimeCompleted:
		if m.capability.ModeReq != 0 {
			m.setState(StateWptTimeCompleted)
		} else {
			m.setState(StateReadCapability)
		}
	case StopReasonFodDetected:
		if m.capability.ModeReq != 0 {
			m.setState(StateFodDetection)
		} else {
			m.setState(StateReadCapability)
		}
	default:
		m.setState(StateFodDetection)
	}

	if m.watchdog != nil {
		m.watchdog.Interrupt()
	}
}

// OnTagDisconnected tears the session down after the listener left the field
func (m *Machine) OnTagDisconnected() {
	m.logger.Info("WLC listener removed")
	m.detach()
	m.host.SendScreenMessageAfterNfcCharging()
}

// OnEndpointRemoved restarts negotiation when the NFC endpoint goes away
func (m *Machine) OnEndpointRemoved() {
	m.setState(StateReadCapability)
	if m.watchdog != nil {
		m.watchdog.Interrupt()
	}
}

// StopNfcCharging ends the session and disconnects the tag
func (m *Machine) StopNfcCharging() {
	m.logger.Debug("stopping NFC charging")
	m.detach()
}

func (m *Machine) detach() {
	m.tag.StopPresenceChecking()
	m.StopNfcChargingPresenceChecking()
	if err := m.tag.Disconnect(); err != nil {
		m.logger.Debug("tag disconnect failed", zap.Error(err))
	}
	m.epoch++
	m.attached = false
	m.discovered = nil
	m.setCharging(false)
	m.info.State = DeviceStateDisconnected
	m.setState(StateReadCapability)
	m.first = true
}

// StartNfcChargingPresenceChecking starts a new watchdog, ending the old one
func (m *Machine) StartNfcChargingPresenceChecking(interval time.Duration) {
	if m.watchdog != nil {
		m.watchdog.End(false)
	}

	var w *Watchdog
	w = newWatchdog(interval, m.tag.IsPresent,
		func() {
			m.sched.Post(func() {
				if m.watchdog == w {
					m.OnTagDisconnected()
				}
			})
		},
		func() {
			m.sched.Post(func() {
				if m.watchdog == w && m.wake != nil {
					m.wake()
				}
			})
		})
	m.watchdog = w
	w.start()
}

// StopNfcChargingPresenceChecking ends the watchdog and waits for it
func (m *Machine) StopNfcChargingPresenceChecking() {
	if m.watchdog == nil {
		return
	}
	w := m.watchdog
	m.watchdog = nil
	w.End(true)
}

// ResetInternalValues clears the counter and battery readings
func (m *Machine) ResetInternalValues() {
	m.counter = -1
	m.battery = -1
	m.info.BatteryLevel = -1
}

func (m *Machine) readMessage() *handover.Message {
	if m.first {
		m.first = false
		if m.discovered != nil {
			msg := m.discovered
			m.discovered = nil
			return msg
		}
	}

	data, err := m.tag.ReadNdef()
	if err != nil {
		m.logger.Debug("NDEF read failed", zap.Error(err))
		return nil
	}
	msg, err := handover.ParseMessage(data)
	if err != nil {
		m.logger.Debug("invalid NDEF on listener", zap.Error(err))
		return nil
	}
	return msg
}

// nextStep returns the delay before the next step, or false while the
// machine waits for an event
func (m *Machine) nextStep() (time.Duration, bool) {
	if !m.attached {
		return 0, false
	}
	if m.state == StateRemovalDetection {
		if m.charging {
			return 0, false
		}
		return m.wptDuration, true
	}
	if m.capability.NdefReadWait > 0 {
		return m.capability.NdefReadWait, true
	}
	return m.cfg.StepDelay, true
}

func (m *Machine) setState(state int) {
	if m.state == state {
		return
	}
	m.state = state
	m.metrics.WLCState(StateString(state))
}

func (m *Machine) setCharging(charging bool) {
	if m.charging == charging {
		return
	}
	m.charging = charging
	m.metrics.SetCharging(charging)
}
