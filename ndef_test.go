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


package handover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NDEF record header flags
const (
	flagMB = 0x80
	flagME = 0x40
	flagSR = 0x10
	flagIL = 0x08
)

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Payloads taken from a dual carrier headset reply
var (
	fixtureBtOob = concat(
		[]byte{0x00, 0x00, 0x01, 0x23, 0x45, 0x67, 0x89, 0xAB},
		[]byte{0x13, eirLongName}, []byte("TestLongDeviceName"),
	)
	fixtureLEOob = []byte{
		0x07, 0x1B, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06,
		0x08, 0x04, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66,
	}
)

func fixtureHandoverSelect(t *testing.T) *Message {
	t.Helper()

	hs, err := EncodeHandoverSelectRecord(EncodeAlternativeCarrier(true))
	require.NoError(t, err)
	return NewMessage(
		hs,
		Record{TNF: TNFMedia, Type: TypeBluetoothOOB, ID: "b", Payload: fixtureBtOob},
		Record{TNF: TNFMedia, Type: TypeBluetoothLEOOB, Payload: fixtureLEOob},
	)
}

func TestMessage_MarshalHandoverSelectWire(t *testing.T) {
	t.Parallel()

	want := concat(
		[]byte{flagMB | flagSR | TNFWellKnown, 0x02, 0x0A}, []byte(TypeHandoverSelect),
		[]byte{handoverVersion},
		[]byte{flagMB | flagME | flagSR | TNFWellKnown, 0x02, 0x04}, []byte(TypeAlternativeCarrier),
		[]byte{0x02, 0x01, 'b', 0x00},

		[]byte{flagSR | flagIL | TNFMedia, 0x20, 0x1C, 0x01}, []byte(TypeBluetoothOOB), []byte("b"),
		fixtureBtOob,

		[]byte{flagME | flagSR | TNFMedia, 0x20, 0x10}, []byte(TypeBluetoothLEOOB),
		fixtureLEOob,
	)

	data, err := fixtureHandoverSelect(t).Marshal()
	require.NoError(t, err)
	assert.Equal(t, want, data)
}

func TestMessage_MarshalSetsBeginAndEndByPosition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		records []Record
	}{
		{
			name:    "single record",
			records: []Record{EncodeAlternativeCarrier(false)},
		},
		{
			name: "two records",
			records: []Record{
				EncodeAlternativeCarrier(false),
				{TNF: TNFMedia, Type: TypeBluetoothLEOOB, Payload: fixtureLEOob},
			},
		},
		{
			name: "three records",
			records: []Record{
				EncodeAlternativeCarrier(false),
				{TNF: TNFMedia, Type: TypeBluetoothOOB, ID: "b", Payload: fixtureBtOob},
				{TNF: TNFMedia, Type: TypeBluetoothLEOOB, Payload: fixtureLEOob},
			},
		},
		{
			name: "empty payload in the middle",
			records: []Record{
				EncodeAlternativeCarrier(true),
				{TNF: TNFExternal, Type: TypeNokiaBluetooth},
				EncodeAlternativeCarrier(false),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, err := NewMessage(tt.records...).Marshal()
			require.NoError(t, err)

			// Walk the short record headers and collect the flag byte of each
			var headers []byte
			for i := 0; i < len(data); {
				header := data[i]
				require.NotZero(t, header&flagSR)
				typeLen := int(data[i+1])
				payloadLen := int(data[i+2])
				next := i + 3 + typeLen + payloadLen
				if header&flagIL != 0 {
					next += 1 + int(data[i+3])
				}
				headers = append(headers, header)
				i = next
			}
			require.Len(t, headers, len(tt.records))

			last := len(headers) - 1
			for i, h := range headers {
				assert.Equal(t, i == 0, h&flagMB != 0, "MB on record %d", i)
				assert.Equal(t, i == last, h&flagME != 0, "ME on record %d", i)
			}

			parsed, err := ParseMessage(data)
			require.NoError(t, err)
			require.Len(t, parsed.Records, len(tt.records))
			for i, r := range tt.records {
				assert.Equal(t, r.TNF, parsed.Records[i].TNF)
				assert.Equal(t, r.Type, parsed.Records[i].Type)
				assert.Equal(t, r.ID, parsed.Records[i].ID)
				assert.Equal(t, len(r.Payload), len(parsed.Records[i].Payload))
				if len(r.Payload) > 0 {
					assert.Equal(t, r.Payload, parsed.Records[i].Payload)
				}
			}
		})
	}
}

func TestClassifyAndParse_DualCarrierSelect(t *testing.T) {
	t.Parallel()

	data, err := fixtureHandoverSelect(t).Marshal()
	require.NoError(t, err)

	msg, err := ParseMessage(data)
	require.NoError(t, err)
	require.Len(t, msg.Records, 3)

	d := ClassifyAndParse(msg)
	require.NotNil(t, d)
	assert.True(t, d.Valid)
	assert.Equal(t, "AB:89:67:45:23:01", d.Device)
	assert.Equal(t, "TestLongDeviceName", d.DisplayName())
	assert.Equal(t, TransportDualAuto, d.Transport)
	assert.True(t, d.CarrierActivating)
}
