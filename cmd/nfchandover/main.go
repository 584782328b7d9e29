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

// Command nfchandover inspects and drives NFC connection handover and NFC
// wireless charging messages.
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	handover "github.com/ZaparooProject/go-nfc-handover"
	"github.com/ZaparooProject/go-nfc-handover/config"
)

var (
	ErrNoCarrier      = errors.New("message has no Bluetooth carrier")
	ErrInvalidCarrier = errors.New("bluetooth carrier is invalid")
	ErrHandoverFailed = errors.New("handover failed")
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

// app holds the state shared by every subcommand
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	configPath string
	debug      bool
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.debug {
		cfg.Logging.Level = "debug"
	}
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func rootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:           "nfchandover",
		Short:         "NFC connection handover and wireless charging tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "",
		"Config file (default $XDG_CONFIG_HOME/nfchandover/config.yaml)")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(parseCmd(a))
	cmd.AddCommand(requestCmd(a))
	cmd.AddCommand(selectCmd(a))
	cmd.AddCommand(respondCmd(a))
	cmd.AddCommand(pairCmd(a))
	cmd.AddCommand(wlcCmd(a))
	return cmd
}

// decodeHex accepts "0x" prefixes, spaces and colons between bytes
func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	s = strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(s)
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return data, nil
}

func decodeMessage(s string) (*handover.Message, error) {
	data, err := decodeHex(s)
	if err != nil {
		return nil, err
	}
	msg, err := handover.ParseMessage(data)
	if err != nil {
		return nil, fmt.Errorf("parse NDEF message: %w", err)
	}
	return msg, nil
}

func encodeMessage(msg *handover.Message) (string, error) {
	data, err := msg.Marshal()
	if err != nil {
		return "", fmt.Errorf("encode NDEF message: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(data)), nil
}
