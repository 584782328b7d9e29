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

package coordinator

import (
	"time"

	"go.uber.org/zap"

	"github.com/ZaparooProject/go-nfc-handover/metrics"
	"github.com/ZaparooProject/go-nfc-handover/peripheral"
)

// Config holds coordinator settings
type Config struct {
	Machine peripheral.Config
	// PollingPause is how long NFC polling stays paused for a handover
	PollingPause time.Duration
}

// DefaultConfig returns the default coordinator settings
func DefaultConfig() Config {
	return Config{
		Machine:      peripheral.DefaultConfig(),
		PollingPause: 35 * time.Second,
	}
}

// Option is a functional option for configuring a Coordinator
type Option func(*Coordinator) error

// WithConfig replaces the default settings
func WithConfig(config Config) Option {
	return func(c *Coordinator) error {
		if err := config.Machine.Validate(); err != nil {
			return err
		}
		c.cfg = config
		return nil
	}
}

// WithScheduler runs machines on sched instead of an owned EventLoop
func WithScheduler(sched peripheral.Scheduler) Option {
	return func(c *Coordinator) error {
		if sched == nil {
			return peripheral.ErrNilScheduler
		}
		c.sched = sched
		c.loop = nil
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithMetrics records handover outcomes on collector
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *Coordinator) error {
		c.metrics = collector
		return nil
	}
}

// WithPollingControl pauses NFC polling while a handover runs
func WithPollingControl(polling PollingControl) Option {
	return func(c *Coordinator) error {
		c.polling = polling
		return nil
	}
}
