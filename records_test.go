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

func TestEncodeAlternativeCarrier(t *testing.T) {
	t.Parallel()

	active := EncodeAlternativeCarrier(false)
	assert.Equal(t, TNFWellKnown, active.TNF)
	assert.Equal(t, TypeAlternativeCarrier, active.Type)
	assert.Equal(t, []byte{0x01, 0x01, 'b', 0x00}, active.Payload)

	activating := EncodeAlternativeCarrier(true)
	assert.Equal(t, []byte{0x02, 0x01, 'b', 0x00}, activating.Payload)
}

func TestDecodeAlternativeCarrier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload []byte
		want    AlternativeCarrier
		ok      bool
	}{
		{
			name:    "encoded record",
			payload: EncodeAlternativeCarrier(true).Payload,
			want:    AlternativeCarrier{PowerState: PowerStateActivating, CarrierRef: "b"},
			ok:      true,
		},
		{
			name:    "upper bits of power state ignored",
			payload: []byte{0xFD, 0x01, 'x'},
			want:    AlternativeCarrier{PowerState: PowerStateActive, CarrierRef: "x"},
			ok:      true,
		},
		{
			name:    "aux references",
			payload: []byte{0x01, 0x01, 'b', 0x02, 0x01, 'c', 0x02, 'd', 'e'},
			want:    AlternativeCarrier{PowerState: PowerStateActive, CarrierRef: "b", AuxRefs: []string{"c", "de"}},
			ok:      true,
		},
		{
			name:    "truncated aux list",
			payload: []byte{0x01, 0x01, 'b', 0x02, 0x01, 'c', 0x05},
			want:    AlternativeCarrier{PowerState: PowerStateActive, CarrierRef: "b", AuxRefs: []string{"c"}},
			ok:      true,
		},
		{
			name:    "too short",
			payload: []byte{0x01},
		},
		{
			name:    "reference past end",
			payload: []byte{0x01, 0x05, 'b'},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := DecodeAlternativeCarrier(tt.payload)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeBtOobRecord(t *testing.T) {
	t.Parallel()

	r, err := EncodeBtOobRecord("01:23:45:67:89:AB")
	require.NoError(t, err)
	assert.Equal(t, TNFMedia, r.TNF)
	assert.Equal(t, TypeBluetoothOOB, r.Type)
	assert.Equal(t, "b", r.ID)
	assert.Equal(t, []byte{0x08, 0x00, 0xAB, 0x89, 0x67, 0x45, 0x23, 0x01}, r.Payload)

	d := ParseBtOob(r.Payload)
	require.True(t, d.Valid)
	assert.Equal(t, "01:23:45:67:89:AB", d.Device)

	_, err = EncodeBtOobRecord("01:23")
	require.ErrorIs(t, err, ErrInvalidAddressLength)
}

func TestEncodeCollisionRecord(t *testing.T) {
	t.Parallel()

	r, err := EncodeCollisionRecord()
	require.NoError(t, err)
	assert.Equal(t, TNFWellKnown, r.TNF)
	assert.Equal(t, TypeCollisionResolution, r.Type)
	assert.Len(t, r.Payload, collisionLen)
}

func TestEncodeHandoverRequest(t *testing.T) {
	t.Parallel()

	msg, err := EncodeHandoverRequest("01:23:45:67:89:AB")
	require.NoError(t, err)
	require.Len(t, msg.Records, 2)

	hr := msg.Records[0]
	assert.True(t, hr.Is(TNFWellKnown, TypeHandoverRequest))
	require.NotEmpty(t, hr.Payload)
	assert.Equal(t, byte(0x12), hr.Payload[0])

	nested, err := ParseMessage(hr.Payload[1:])
	require.NoError(t, err)
	require.Len(t, nested.Records, 2)
	assert.Equal(t, TypeCollisionResolution, nested.Records[0].Type)
	assert.Equal(t, TypeAlternativeCarrier, nested.Records[1].Type)
	assert.Equal(t, []byte{0x01, 0x01, 'b', 0x00}, nested.Records[1].Payload)

	assert.True(t, msg.Records[1].Is(TNFMedia, TypeBluetoothOOB))
}

func TestEncodeHandoverSelect(t *testing.T) {
	t.Parallel()

	msg, err := EncodeHandoverSelect(EncodeAlternativeCarrier(true))
	require.NoError(t, err)
	require.Len(t, msg.Records, 1)

	hs := msg.Records[0]
	assert.True(t, hs.Is(TNFWellKnown, TypeHandoverSelect))
	assert.Equal(t, byte(0x12), hs.Payload[0])
	assert.True(t, IsCarrierActivating(hs, "b"))
}

func TestMessage_MarshalRoundTrip(t *testing.T) {
	t.Parallel()

	msg, err := EncodeBluetoothHandoverSelect("01:23:45:67:89:AB", false)
	require.NoError(t, err)

	data, err := msg.Marshal()
	require.NoError(t, err)

	parsed, err := ParseMessage(data)
	require.NoError(t, err)
	assert.Equal(t, msg.Records, parsed.Records)
}

func TestParseMessage_Errors(t *testing.T) {
	t.Parallel()

	_, err := ParseMessage(nil)
	require.ErrorIs(t, err, ErrEmptyMessage)

	_, err = (&Message{}).Marshal()
	require.ErrorIs(t, err, ErrEmptyMessage)
}
