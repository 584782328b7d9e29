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

package wlc

import (
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-nfc-handover/metrics"
	"go.uber.org/zap"
)

var (
	ErrNilTag        = errors.New("tag endpoint cannot be nil")
	ErrNilHost       = errors.New("charging host cannot be nil")
	ErrNilScheduler  = errors.New("scheduler cannot be nil")
	ErrInvalidConfig = errors.New("invalid WLC configuration")
)

// Config holds the negotiation thresholds of the charging machine
type Config struct {
	// NegoWaitValue is the WLCCAP nego-wait flag value that asks the poller to wait
	NegoWaitValue int
	// MaxNegoRetries caps the nego-wait retries announced by the listener
	MaxNegoRetries int
	// MaxControlRetries is how often a missing WLCCTL answer is re-read
	MaxControlRetries int
	// PresenceInterval is the watchdog period while power is transferred
	PresenceInterval time.Duration
	// StepDelay separates steps when the listener gives no read wait time
	StepDelay time.Duration
}

// DefaultConfig returns the thresholds used by NFC Forum WLC listeners
func DefaultConfig() Config {
	return Config{
		NegoWaitValue:     1,
		MaxNegoRetries:    15,
		MaxControlRetries: 3,
		PresenceInterval:  250 * time.Millisecond,
		StepDelay:         30 * time.Millisecond,
	}
}

// Validate checks the configuration values
func (c Config) Validate() error {
	if c.MaxNegoRetries < 0 || c.MaxControlRetries < 0 {
		return fmt.Errorf("%w: retry limits must not be negative", ErrInvalidConfig)
	}
	if c.PresenceInterval <= 0 {
		return fmt.Errorf("%w: presence interval must be positive", ErrInvalidConfig)
	}
	if c.StepDelay <= 0 {
		return fmt.Errorf("%w: step delay must be positive", ErrInvalidConfig)
	}
	return nil
}

// Option configures a Machine
type Option func(*Machine) error

// WithConfig replaces the default thresholds
func WithConfig(cfg Config) Option {
	return func(m *Machine) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		m.cfg = cfg
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Machine) error {
		if logger != nil {
			m.logger = logger
		}
		return nil
	}
}

// WithMetrics records state transitions and stops
func WithMetrics(c *metrics.Collector) Option {
	return func(m *Machine) error {
		m.metrics = c
		return nil
	}
}

// WithDataListener receives listener device info after each WLCCTL exchange
func WithDataListener(fn func(DeviceInfo)) Option {
	return func(m *Machine) error {
		m.onData = fn
		return nil
	}
}
