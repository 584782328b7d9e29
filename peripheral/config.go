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

package peripheral

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNilDevice     = errors.New("request has no device")
	ErrNilAdapter    = errors.New("adapter cannot be nil")
	ErrNilScheduler  = errors.New("scheduler cannot be nil")
	ErrInvalidConfig = errors.New("invalid machine configuration")
)

// Config holds the retry and timeout policy of a handover machine
type Config struct {
	// MaxRetries is how many connection-state polls follow the first one
	MaxRetries int
	// RetryDelay is the wait between polls
	RetryDelay time.Duration
	// Timeout bounds the whole handover
	Timeout time.Duration
	// RequireConfirmation asks the user before bonding with a new device
	RequireConfirmation bool
}

// DefaultConfig returns the default handover policy
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		RetryDelay: 5 * time.Second,
		Timeout:    20 * time.Second,
	}
}

// Validate checks the configuration values
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries %d", ErrInvalidConfig, c.MaxRetries)
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("%w: retry delay %v", ErrInvalidConfig, c.RetryDelay)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout %v", ErrInvalidConfig, c.Timeout)
	}
	return nil
}

// Option is a functional option for configuring a Machine
type Option func(*Machine) error

// WithConfig replaces the default policy
func WithConfig(config Config) Option {
	return func(m *Machine) error {
		if err := config.Validate(); err != nil {
			return err
		}
		m.cfg = config
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
