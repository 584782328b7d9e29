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
	"pgregory.net/rapid"
)

func TestReverseBytes_Involution(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		mac := rapid.SliceOfN(rapid.Byte(), addressLen, addressLen).Draw(rt, "mac")
		assert.Equal(rt, mac, ReverseBytes(ReverseBytes(mac)))
	})
}

func TestAddressText_RoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		wire := rapid.SliceOfN(rapid.Byte(), addressLen, addressLen).Draw(rt, "wire")
		text, ok := addressFromWire(wire)
		require.True(rt, ok)
		require.Len(rt, text, addressTextLen)

		back, err := AddressToReverseBytes(text)
		require.NoError(rt, err)
		assert.Equal(rt, wire, back)
	})
}

func TestParseBtOob_ShortPayloadAlwaysInvalid(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		payload := rapid.SliceOfN(rapid.Byte(), 0, btOobHeaderLen-1).Draw(rt, "payload")
		d := ParseBtOob(payload)
		assert.False(rt, d.Valid)
		assert.Nil(rt, d.Name)
		assert.Empty(rt, d.Device)
	})
}

func TestParsers_ArbitraryInput(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		payload := rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(rt, "payload")

		for _, d := range []CarrierDescriptor{ParseBtOob(payload), ParseBleOob(payload), ParseLegacy(payload)} {
			if d.Valid {
				assert.True(rt, IsValidAddress(d.Device), "device %q", d.Device)
				assert.NotNil(rt, d.Name)
				continue
			}
			assert.Equal(rt, CarrierDescriptor{}, d)
		}
	})
}
