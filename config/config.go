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

// Package config loads the settings of the nfchandover tool.
//
// The file is YAML and lives at $XDG_CONFIG_HOME/nfchandover/config.yaml
// unless a path is given. Missing keys keep their defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/ZaparooProject/go-nfc-handover/coordinator"
	"github.com/ZaparooProject/go-nfc-handover/peripheral"
	"github.com/ZaparooProject/go-nfc-handover/wlc"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete tool configuration
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	WLC      WLCConfig      `yaml:"wlc"`
	Handover HandoverConfig `yaml:"handover"`
}

// HandoverConfig is the Bluetooth handover policy
type HandoverConfig struct {
	MaxRetries          int           `yaml:"max_retries"`
	RetryDelay          time.Duration `yaml:"retry_delay"`
	Timeout             time.Duration `yaml:"timeout"`
	PollingPause        time.Duration `yaml:"polling_pause"`
	RequireConfirmation bool          `yaml:"require_confirmation"`
}

// WLCConfig holds the wireless charging thresholds
type WLCConfig struct {
	NegoWaitValue     int           `yaml:"nego_wait_value"`
	MaxNegoRetries    int           `yaml:"max_nego_retries"`
	MaxControlRetries int           `yaml:"max_control_retries"`
	PresenceInterval  time.Duration `yaml:"presence_interval"`
	StepDelay         time.Duration `yaml:"step_delay"`
}

// LoggingConfig selects the zap logger
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// MetricsConfig configures the Prometheus collectors
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
	// Listen is the address of the /metrics endpoint, empty to disable it
	Listen string `yaml:"listen"`
}

// Default returns the built-in configuration
func Default() *Config {
	machine := peripheral.DefaultConfig()
	coord := coordinator.DefaultConfig()
	charging := wlc.DefaultConfig()

	return &Config{
		Handover: HandoverConfig{
			MaxRetries:          machine.MaxRetries,
			RetryDelay:          machine.RetryDelay,
			Timeout:             machine.Timeout,
			PollingPause:        coord.PollingPause,
			RequireConfirmation: machine.RequireConfirmation,
		},
		WLC: WLCConfig{
			NegoWaitValue:     charging.NegoWaitValue,
			MaxNegoRetries:    charging.MaxNegoRetries,
			MaxControlRetries: charging.MaxControlRetries,
			PresenceInterval:  charging.PresenceInterval,
			StepDelay:         charging.StepDelay,
		},
		Logging: LoggingConfig{Level: "info"},
		Metrics: MetricsConfig{Namespace: "nfc"},
	}
}

// Path returns the default config file location
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".config", "nfchandover", "config.yaml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "nfchandover", "config.yaml")
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = Path()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	var errs []string

	if err := c.Handover.Coordinator().Machine.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Handover.PollingPause < 0 {
		errs = append(errs, "polling_pause must not be negative")
	}
	if err := c.WLC.Machine().Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Sprintf("logging level %q", c.Logging.Level))
	}
	if c.Metrics.Namespace == "" {
		errs = append(errs, "metrics namespace is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// Coordinator converts the handover section
func (h HandoverConfig) Coordinator() coordinator.Config {
	return coordinator.Config{
		Machine: peripheral.Config{
			MaxRetries:          h.MaxRetries,
			RetryDelay:          h.RetryDelay,
			Timeout:             h.Timeout,
			RequireConfirmation: h.RequireConfirmation,
		},
		PollingPause: h.PollingPause,
	}
}

// Machine converts the wlc section
func (w WLCConfig) Machine() wlc.Config {
	return wlc.Config{
		NegoWaitValue:     w.NegoWaitValue,
		MaxNegoRetries:    w.MaxNegoRetries,
		MaxControlRetries: w.MaxControlRetries,
		PresenceInterval:  w.PresenceInterval,
		StepDelay:         w.StepDelay,
	}
}

// NewLogger builds the zap logger described by l
func NewLogger(l LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: logging level %q", ErrInvalidConfig, l.Level)
	}

	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
