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

// Package coordinator owns the Bluetooth peripheral handover machines of a
// process: one per device, all driven from a single scheduler goroutine.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	handover "github.com/ZaparooProject/go-nfc-handover"
	"github.com/ZaparooProject/go-nfc-handover/metrics"
	"github.com/ZaparooProject/go-nfc-handover/peripheral"
)

var (
	ErrNilAdapter     = errors.New("adapter cannot be nil")
	ErrInvalidAddress = errors.New("invalid device address")
)

// Adapter is the local Bluetooth adapter
type Adapter interface {
	peripheral.Adapter
	RemoteDevice(address string) (peripheral.Device, error)
	IsEnabled() bool
	// Enable powers the adapter on. Completion is reported as an
	// AdapterStateChanged intent.
	Enable() error
	Disable() error
	HasConnectedDevices() bool
}

// PollingControl pauses and resumes NFC discovery
type PollingControl interface {
	PausePolling(timeout time.Duration)
	ResumePolling()
}

// Handover describes the peer of a handover request
type Handover struct {
	OOB       *handover.OOBData
	Address   string
	Name      string
	UUIDs     []uuid.UUID
	Class     handover.DeviceClass
	Transport handover.Transport
	HasClass  bool
}

// HandoverFromCarrier builds a handover for a parsed carrier
func HandoverFromCarrier(carrier *handover.CarrierDescriptor) Handover {
	return Handover{
		OOB:       carrier.OOBData(),
		Address:   carrier.Device,
		Name:      carrier.DisplayName(),
		UUIDs:     carrier.UUIDs,
		Class:     carrier.DeviceClass,
		HasClass:  carrier.HasClass,
		Transport: carrier.Transport,
	}
}

type activeHandover struct {
	machine   *peripheral.Machine
	started   time.Time
	transport string
}

type pendingHandover struct {
	reply func(bool)
	req   Handover
}

// Coordinator starts, supersedes and cancels handover machines and routes
// platform intents to them.
type Coordinator struct {
	adapter      Adapter
	sched        peripheral.Scheduler
	polling      PollingControl
	loop         *peripheral.EventLoop
	metrics      *metrics.Collector
	logger       *zap.Logger
	active       map[string]*activeHandover
	pending      map[string]*pendingHandover
	cfg          Config
	mu           sync.Mutex
	enabledByNfc bool
}

// New creates a coordinator. Unless WithScheduler is given it owns an
// EventLoop that Start and Stop control.
func New(adapter Adapter, opts ...Option) (*Coordinator, error) {
	if adapter == nil {
		return nil, ErrNilAdapter
	}

	c := &Coordinator{
		adapter: adapter,
		logger:  zap.NewNop(),
		active:  make(map[string]*activeHandover),
		pending: make(map[string]*pendingHandover),
		cfg:     DefaultConfig(),
	}
	c.loop = peripheral.NewEventLoop(nil)
	c.sched = c.loop

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	c.logger = c.logger.With(zap.String("component", "handover-coordinator"))
	return c, nil
}

// Start runs the owned event loop. It is a no-op with an external scheduler.
func (c *Coordinator) Start(ctx context.Context) error {
	if c.loop == nil {
		return nil
	}
	if err := c.loop.Start(ctx); err != nil {
		return fmt.Errorf("failed to start coordinator: %w", err)
	}
	return nil
}

// Stop cancels every handover and stops the owned event loop
func (c *Coordinator) Stop() error {
	if c.loop == nil {
		c.sched.Post(c.cancelAll)
		return nil
	}
	if c.loop.IsRunning() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.loop.Do(ctx, c.cancelAll); err != nil {
			c.logger.Warn("cancelling handovers on stop failed", zap.Error(err))
		}
	}
	return c.loop.Stop()
}

// StartHandover queues a handover for req and returns immediately. reply
// is called once with the outcome unless the handover is superseded or
// cancelled.
func (c *Coordinator) StartHandover(req Handover, reply func(success bool)) error {
	if !handover.IsValidAddress(req.Address) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, req.Address)
	}
	req.Address = strings.ToUpper(req.Address)
	c.sched.Post(func() { c.startHandover(req, reply) })
	return nil
}

// CancelHandover tears down the handover for address without a reply
func (c *Coordinator) CancelHandover(address string) {
	key := strings.ToUpper(address)
	c.sched.Post(func() { c.cancelHandover(key) })
}

// OnPlatformIntent routes a platform event to the machine of its device
func (c *Coordinator) OnPlatformIntent(intent peripheral.Intent) {
	c.sched.Post(func() { c.onPlatformIntent(intent) })
}

// ActiveCount returns the number of running machines
func (c *Coordinator) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

// PendingCount returns the number of handovers waiting for the adapter
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// IsActive reports whether a machine runs for address
func (c *Coordinator) IsActive(address string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[strings.ToUpper(address)]
	return ok
}

func (c *Coordinator) startHandover(req Handover, reply func(bool)) {
	key := req.Address
	log := c.logger.With(zap.String("device", handover.MaskAddress(key)))

	if superseded := c.takeActive(key); superseded != nil {
		log.Info("superseding running handover")
		superseded.machine.Cancel()
		c.metrics.HandoverFinished(metrics.ResultSuperseded, time.Since(superseded.started))
	}
	c.takePending(key)

	if !c.adapter.IsEnabled() {
		log.Info("bluetooth is off, enabling")
		if err := c.adapter.Enable(); err != nil {
			log.Error("failed to enable bluetooth", zap.Error(err))
			c.replyTo(reply, false)
			return
		}
		c.enabledByNfc = true
		c.mu.Lock()
		c.pending[key] = &pendingHandover{req: req, reply: reply}
		c.mu.Unlock()
		return
	}

	c.launch(req, reply)
}

func (c *Coordinator) launch(req Handover, reply func(bool)) {
	key := req.Address
	log := c.logger.With(zap.String("device", handover.MaskAddress(key)))

	device, err := c.adapter.RemoteDevice(key)
	if err != nil {
		log.Error("remote device unavailable", zap.Error(err))
		c.replyTo(reply, false)
		return
	}

	entry := &activeHandover{started: time.Now(), transport: req.Transport.String()}
	machine, err := peripheral.New(
		peripheral.Request{
			Device:    device,
			OOB:       req.OOB,
			Name:      req.Name,
			UUIDs:     req.UUIDs,
			Class:     req.Class,
			HasClass:  req.HasClass,
			Transport: req.Transport,
		},
		c.adapter,
		c.sched,
		func(success bool) { c.onMachineComplete(key, entry, success, reply) },
		peripheral.WithConfig(c.cfg.Machine),
		peripheral.WithLogger(c.logger),
	)
	if err != nil {
		log.Error("failed to create handover machine", zap.Error(err))
		c.replyTo(reply, false)
		return
	}
	entry.machine = machine

	c.mu.Lock()
	c.active[key] = entry
	c.mu.Unlock()

	c.metrics.HandoverStarted(entry.transport)
	if c.polling != nil {
		c.polling.PausePolling(c.cfg.PollingPause)
	}
	machine.Start()
}

func (c *Coordinator) onMachineComplete(key string, entry *activeHandover, success bool, reply func(bool)) {
	c.mu.Lock()
	if c.active[key] == entry {
		delete(c.active, key)
	}
	c.mu.Unlock()

	result := metrics.ResultFailure
	if success {
		result = metrics.ResultSuccess
	}
	c.metrics.HandoverFinished(result, time.Since(entry.started))

	if c.polling != nil {
		c.polling.ResumePolling()
	}
	c.disableBluetoothIfNeeded()
	c.replyTo(reply, success)
}

func (c *Coordinator) cancelHandover(key string) {
	if entry := c.takeActive(key); entry != nil {
		c.logger.Info("cancelling handover", zap.String("device", handover.MaskAddress(key)))
		entry.machine.Cancel()
		c.metrics.HandoverFinished(metrics.ResultCancelled, time.Since(entry.started))
		if c.polling != nil {
			c.polling.ResumePolling()
		}
	}
	c.takePending(key)
	c.disableBluetoothIfNeeded()
}

func (c *Coordinator) cancelAll() {
	c.mu.Lock()
	keys := make([]string, 0, len(c.active))
	for key := range c.active {
		keys = append(keys, key)
	}
	c.pending = make(map[string]*pendingHandover)
	c.mu.Unlock()

	for _, key := range keys {
		c.cancelHandover(key)
	}
}

func (c *Coordinator) onPlatformIntent(intent peripheral.Intent) {
	if intent.Kind == peripheral.IntentAdapterStateChanged {
		c.onAdapterStateChanged(intent.AdapterOn)
		return
	}

	key := strings.ToUpper(intent.Device)
	c.mu.Lock()
	entry := c.active[key]
	c.mu.Unlock()

	if entry == nil {
		c.logger.Debug("no handover for intent",
			zap.Stringer("kind", intent.Kind),
			zap.String("device", handover.MaskAddress(key)))
		return
	}
	entry.machine.HandleIntent(intent)
}

func (c *Coordinator) onAdapterStateChanged(on bool) {
	c.mu.Lock()
	keys := make([]string, 0, len(c.pending))
	for key := range c.pending {
		keys = append(keys, key)
	}
	c.mu.Unlock()
	sort.Strings(keys)

	if !on {
		c.enabledByNfc = false
	}

	for _, key := range keys {
		p := c.takePending(key)
		if p == nil {
			continue
		}
		if !on {
			c.logger.Info("bluetooth turned off, dropping pending handover",
				zap.String("device", handover.MaskAddress(key)))
			c.replyTo(p.reply, false)
			continue
		}
		c.launch(p.req, p.reply)
	}
}

func (c *Coordinator) disableBluetoothIfNeeded() {
	if !c.enabledByNfc {
		return
	}

	c.mu.Lock()
	busy := len(c.active) > 0 || len(c.pending) > 0
	c.mu.Unlock()
	if busy || c.adapter.HasConnectedDevices() {
		return
	}

	c.enabledByNfc = false
	c.logger.Info("disabling bluetooth enabled for handover")
	if err := c.adapter.Disable(); err != nil {
		c.logger.Warn("failed to disable bluetooth", zap.Error(err))
	}
}

func (c *Coordinator) takeActive(key string) *activeHandover {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.active[key]
	delete(c.active, key)
	return entry
}

func (c *Coordinator) takePending(key string) *pendingHandover {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pending[key]
	delete(c.pending, key)
	return p
}

func (c *Coordinator) replyTo(reply func(bool), success bool) {
	if reply != nil {
		reply(success)
	}
}
