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

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	handover "github.com/ZaparooProject/go-nfc-handover"
)

func parseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <hex>",
		Short: "Decode the Bluetooth carrier of a handover NDEF message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := decodeMessage(args[0])
			if err != nil {
				return err
			}
			out := NewOutput(cmd.OutOrStdout(), a.debug)
			out.Message(msg)

			parser := handover.NewParser(handover.WithParserLogger(a.logger))
			carrier := parser.Parse(msg)
			if carrier == nil {
				return ErrNoCarrier
			}
			out.Carrier(carrier)
			return nil
		},
	}
}

func requestCmd(*app) *cobra.Command {
	return &cobra.Command{
		Use:   "request <local-address>",
		Short: "Encode a Handover Request for the local adapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := handover.EncodeHandoverRequest(args[0])
			if err != nil {
				return fmt.Errorf("encode handover request: %w", err)
			}
			data, err := encodeMessage(msg)
			if err != nil {
				return err
			}
			NewOutput(cmd.OutOrStdout(), false).Hex("Hr", data)
			return nil
		},
	}
}

func selectCmd(*app) *cobra.Command {
	var activating bool

	cmd := &cobra.Command{
		Use:   "select <local-address>",
		Short: "Encode a Handover Select for the local adapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := handover.EncodeBluetoothHandoverSelect(args[0], activating)
			if err != nil {
				return fmt.Errorf("encode handover select: %w", err)
			}
			data, err := encodeMessage(msg)
			if err != nil {
				return err
			}
			NewOutput(cmd.OutOrStdout(), false).Hex("Hs", data)
			return nil
		},
	}
	cmd.Flags().BoolVar(&activating, "activating", false, "Mark the carrier as activating")
	return cmd
}

// staticAdapter answers handover requests for a fixed local adapter
type staticAdapter struct {
	address string
	enabled bool
}

func (s staticAdapter) Address() string { return s.address }
func (s staticAdapter) IsEnabled() bool { return s.enabled }

func respondCmd(a *app) *cobra.Command {
	var local staticAdapter
	var off bool

	cmd := &cobra.Command{
		Use:   "respond <hex>",
		Short: "Answer a Handover Request with a Handover Select",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := decodeMessage(args[0])
			if err != nil {
				return err
			}
			local.enabled = !off

			parser := handover.NewParser(handover.WithParserLogger(a.logger))
			incoming, err := parser.IncomingHandoverRequest(msg, local)
			if err != nil {
				return fmt.Errorf("answer handover request: %w", err)
			}
			data, err := encodeMessage(incoming.Select)
			if err != nil {
				return err
			}

			out := NewOutput(cmd.OutOrStdout(), a.debug)
			out.Carrier(&incoming.Carrier)
			out.Hex("Hs", data)
			return nil
		},
	}
	cmd.Flags().StringVar(&local.address, "address", "", "Local adapter address")
	cmd.Flags().BoolVar(&off, "off", false, "Answer as if the local adapter were powered off")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}
