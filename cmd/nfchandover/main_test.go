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
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handover "github.com/ZaparooProject/go-nfc-handover"
	"github.com/ZaparooProject/go-nfc-handover/wlc"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := rootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func hexValue(t *testing.T, output, label string) string {
	t.Helper()
	for _, line := range strings.Split(output, "\n") {
		if value, ok := strings.CutPrefix(line, label+": "); ok {
			return value
		}
	}
	t.Fatalf("no %s line in %q", label, output)
	return ""
}

func TestDecodeHex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr bool
	}{
		{name: "plain", input: "01ab", want: []byte{0x01, 0xAB}},
		{name: "prefix", input: "0x01AB", want: []byte{0x01, 0xAB}},
		{name: "spaces", input: " 01 AB ", want: []byte{0x01, 0xAB}},
		{name: "colons", input: "01:AB", want: []byte{0x01, 0xAB}},
		{name: "odd length", input: "01A", wantErr: true},
		{name: "not hex", input: "zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := decodeHex(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestCmd(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "request", "01:23:45:67:89:AB")
	require.NoError(t, err)

	msg, err := decodeMessage(hexValue(t, out, "Hr"))
	require.NoError(t, err)
	require.Len(t, msg.Records, 2)
	assert.True(t, msg.Records[0].Is(handover.TNFWellKnown, handover.TypeHandoverRequest))
	assert.True(t, msg.Records[1].Is(handover.TNFMedia, handover.TypeBluetoothOOB))

	_, err = execute(t, "request", "not-an-address")
	require.Error(t, err)
}

func TestSelectCmd(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "select", "--activating", "01:23:45:67:89:AB")
	require.NoError(t, err)

	msg, err := decodeMessage(hexValue(t, out, "Hs"))
	require.NoError(t, err)
	carrier := handover.ClassifyAndParse(msg)
	require.NotNil(t, carrier)
	assert.Equal(t, "01:23:45:67:89:AB", carrier.Device)
	assert.True(t, carrier.CarrierActivating)
}

func TestParseCmd(t *testing.T) {
	t.Parallel()

	msg, err := handover.EncodeBluetoothHandoverSelect("01:23:45:67:89:AB", true)
	require.NoError(t, err)
	data, err := encodeMessage(msg)
	require.NoError(t, err)

	out, err := execute(t, "parse", data)
	require.NoError(t, err)
	assert.Contains(t, out, "NDEF: 2 record(s)")
	assert.Contains(t, out, "CARRIER: 01:23:45:67:89:AB")
	assert.Contains(t, out, "Activating: true")
}

func TestParseCmdErrors(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "parse", "zz")
	require.Error(t, err)

	_, err = execute(t, "parse", "00")
	require.Error(t, err)

	data, err := encodeMessage(handover.NewMessage(wlc.NewRecord(wlc.TypeCapability, make([]byte, 6))))
	require.NoError(t, err)
	_, err = execute(t, "parse", data)
	require.ErrorIs(t, err, ErrNoCarrier)

	_, err = execute(t, "parse")
	require.Error(t, err, "missing argument")
}

func TestRespondCmd(t *testing.T) {
	t.Parallel()

	request, err := handover.EncodeHandoverRequest("11:22:33:44:55:66")
	require.NoError(t, err)
	data, err := encodeMessage(request)
	require.NoError(t, err)

	out, err := execute(t, "respond", "--address", "01:23:45:67:89:AB", "--off", data)
	require.NoError(t, err)
	assert.Contains(t, out, "CARRIER: 11:22:33:44:55:66")

	reply, err := decodeMessage(hexValue(t, out, "Hs"))
	require.NoError(t, err)
	carrier := handover.ClassifyAndParse(reply)
	require.NotNil(t, carrier)
	assert.Equal(t, "01:23:45:67:89:AB", carrier.Device)
	assert.True(t, carrier.CarrierActivating)

	_, err = execute(t, "respond", data)
	require.Error(t, err, "address flag is required")
}

func TestRespondCmdRejectsSelect(t *testing.T) {
	t.Parallel()

	msg, err := handover.EncodeBluetoothHandoverSelect("01:23:45:67:89:AB", false)
	require.NoError(t, err)
	data, err := encodeMessage(msg)
	require.NoError(t, err)

	_, err = execute(t, "respond", "--address", "11:22:33:44:55:66", data)
	require.ErrorIs(t, err, handover.ErrNotHandoverRequest)
}

func TestPairCmdRejectsMessageWithoutCarrier(t *testing.T) {
	t.Parallel()

	data, err := encodeMessage(handover.NewMessage(wlc.NewRecord(wlc.TypeControl, make([]byte, 6))))
	require.NoError(t, err)

	_, err = execute(t, "pair", data)
	require.ErrorIs(t, err, ErrNoCarrier)
}

func TestWlcStatesCmd(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "wlc", "states")
	require.NoError(t, err)
	assert.Contains(t, out, " 0  Read WLCL_CAP\n")
	assert.Contains(t, out, "11  Handle FOD detection/removal\n")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 12)
}

func TestWlcDecodeCmd(t *testing.T) {
	t.Parallel()

	msg := handover.NewMessage(
		wlc.NewRecord(wlc.TypeCapability, []byte{0x10, 0x08, 0x03, 0x00, 0x02, 0x00}),
		wlc.NewRecord(wlc.TypeControl, []byte{0x01, 0x4C, 0x02, 0x50, 0x00, 0x00}),
		wlc.NewRecord(wlc.TypeStatusInfo, []byte{0x05, 0x50, 0x1E}),
		wlc.NewRecord(wlc.TypeListenerInfo, []byte{0x12, 0x34}),
	)
	data, err := encodeMessage(msg)
	require.NoError(t, err)

	out, err := execute(t, "wlc", "decode", data)
	require.NoError(t, err)
	assert.Contains(t, out, "WLCCAP: version=0x10 mode_req=1 nego_wait=0 retries=3 read_wait=20ms")
	assert.Contains(t, out, "WLCCTL: counter=1 wpt_req=1 duration=512ms power_adjust=0x02 battery=80")
	assert.Contains(t, out, "WLCSTAI: battery=80 receive_power=-1 temperature=30")
	assert.Contains(t, out, "WLCINF: vendor=0x1234")
	assert.NotContains(t, out, "WARNING")
}

func TestWlcDecodeCmdWarnsOnInvalidRequest(t *testing.T) {
	t.Parallel()

	msg := handover.NewMessage(
		wlc.NewRecord(wlc.TypeControl, []byte{0x01, 0x4C, 0x43, 0x50, 0x00, 0x00}),
		wlc.NewRecord(wlc.TypeCapability, []byte{0x10}),
	)
	data, err := encodeMessage(msg)
	require.NoError(t, err)

	out, err := execute(t, "wlc", "decode", data)
	require.NoError(t, err)
	assert.Contains(t, out, "WARNING: invalid")
	assert.Contains(t, out, "WARNING: short WLCCAP record")
}
