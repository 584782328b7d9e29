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
	"github.com/spf13/cobra"

	handover "github.com/ZaparooProject/go-nfc-handover"
	"github.com/ZaparooProject/go-nfc-handover/wlc"
)

func wlcCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wlc",
		Short: "Inspect NFC wireless charging messages",
	}
	cmd.AddCommand(wlcStatesCmd())
	cmd.AddCommand(wlcDecodeCmd(a))
	return cmd
}

func wlcStatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "states",
		Short: "List the charging state machine states",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := NewOutput(cmd.OutOrStdout(), false)
			for state := wlc.StateReadCapability; state <= wlc.StateFodDetection; state++ {
				out.printf("%2d  %s\n", state, wlc.StateString(state))
			}
			return nil
		},
	}
}

func wlcDecodeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode the WLC records of an NDEF message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := decodeMessage(args[0])
			if err != nil {
				return err
			}
			out := NewOutput(cmd.OutOrStdout(), a.debug)
			out.Message(msg)

			found := 0
			for _, r := range msg.Records {
				if r.TNF != handover.TNFWellKnown {
					continue
				}
				if out.wlcRecord(r) {
					found++
				}
			}
			if found == 0 {
				out.Warning("no WLC records")
			}
			return nil
		},
	}
}

func (o *Output) wlcRecord(r handover.Record) bool {
	switch r.Type {
	case wlc.TypeCapability:
		c, ok := wlc.ParseCapability(r.Payload)
		if !ok {
			o.Warning("short %s record", r.Type)
			return false
		}
		o.printf("%s: version=0x%02X mode_req=%d nego_wait=%d retries=%d read_wait=%s\n",
			r.Type, c.Version, c.ModeReq, c.NegoWait, c.NegoWaitRetries, c.NdefReadWait)
	case wlc.TypeControl:
		c, ok := wlc.ParseControl(r.Payload)
		if !ok {
			o.Warning("short %s record", r.Type)
			return false
		}
		o.printf("%s: counter=%d wpt_req=%d duration=%s power_adjust=0x%02X battery=%d info_req=%t read_conf=%t\n",
			r.Type, c.Counter, c.WptReq, c.Duration(), c.PowerAdjust, c.BatteryLevel, c.InfoReq, c.ReadConf)
		if err := wlc.ValidateWptParams(c.PowerAdjust, byte(c.WptDuration)); err != nil {
			o.Warning("%v", err)
		}
	case wlc.TypeStatusInfo:
		s, ok := wlc.ParseStatusInfo(r.Payload)
		if !ok {
			o.Warning("empty %s record", r.Type)
			return false
		}
		o.printf("%s: battery=%d receive_power=%d temperature=%d\n",
			r.Type, s.BatteryLevel, s.ReceivePower, s.Temperature)
	case wlc.TypeListenerInfo:
		vendor, ok := wlc.ParseListenerInfo(r.Payload)
		if !ok {
			o.Warning("short %s record", r.Type)
			return false
		}
		o.printf("%s: vendor=0x%04X\n", r.Type, vendor)
	case wlc.TypePollerInfo:
		o.printf("%s: %s\n", r.Type, wlc.BytesToHex(r.Payload))
	default:
		return false
	}
	return true
}
