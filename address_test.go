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

func TestAddressToReverseBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		address string
		want    []byte
	}{
		{
			name:    "valid address",
			address: "01:23:45:67:89:AB",
			want:    []byte{0xAB, 0x89, 0x67, 0x45, 0x23, 0x01},
		},
		{
			name:    "lowercase hex",
			address: "aa:bb:cc:dd:ee:ff",
			want:    []byte{0xFF, 0xEE, 0xDD, 0xCC, 0xBB, 0xAA},
		},
		{
			name:    "empty address",
			address: "",
			wantErr: ErrInvalidAddressLength,
		},
		{
			name:    "too few groups",
			address: "01:23:45:67:89",
			wantErr: ErrInvalidAddressLength,
		},
		{
			name:    "too many groups",
			address: "01:23:45:67:89:AB:CD",
			wantErr: ErrInvalidAddressLength,
		},
		{
			name:    "short group",
			address: "01:23:45:67:89:A",
			wantErr: ErrInvalidAddressLength,
		},
		{
			name:    "invalid hex",
			address: "01:23:45:67:89:GZ",
			wantErr: ErrInvalidAddressHex,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := AddressToReverseBytes(tt.address)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddressToReverseBytes_InvalidHexNamesGroup(t *testing.T) {
	t.Parallel()

	_, err := AddressToReverseBytes("01:23:45:67:89:GZ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"GZ"`)
}

func TestAddressFromWire(t *testing.T) {
	t.Parallel()

	got, ok := addressFromWire([]byte{0xAB, 0x89, 0x67, 0x45, 0x23, 0x01})
	require.True(t, ok)
	assert.Equal(t, "01:23:45:67:89:AB", got)

	_, ok = addressFromWire([]byte{0xFF})
	assert.False(t, ok)
}

func TestToAnonymizedAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		address string
		want    string
		ok      bool
	}{
		{name: "valid", address: "11:22:33:44:55:66", want: "XX:XX:XX:XX:55:66", ok: true},
		{name: "empty", address: ""},
		{name: "short", address: "11:22:33:44:55"},
		{name: "long", address: "11:22:33:44:55:66:77"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ToAnonymizedAddress(tt.address)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMaskAddress(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "XX:XX:XX:XX:89:AB", MaskAddress("01:23:45:67:89:AB"))
	assert.Equal(t, "invalid", MaskAddress("nope"))
}

func TestIsValidAddress(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValidAddress("01:23:45:67:89:AB"))
	assert.False(t, IsValidAddress("01:23:45:67:89:ZZ"))
	assert.False(t, IsValidAddress("0123456789AB"))
}
