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
	"fmt"
	"strconv"
	"strings"
)

const (
	addressLen     = 6
	addressTextLen = 17
)

// AddressToReverseBytes parses a colon separated address such as
// "01:23:45:67:89:AB" into its little-endian wire form.
//
// A wrong number of groups returns ErrInvalidAddressLength and a group that is
// not hex returns ErrInvalidAddressHex. Both errors may be tested with
// errors.Is.
func AddressToReverseBytes(address string) ([]byte, error) {
	parts := strings.Split(address, ":")
	if len(parts) != addressLen {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddressLength, address)
	}

	out := make([]byte, addressLen)
	for i, part := range parts {
		if len(part) != 2 {
			return nil, fmt.Errorf("%w: group %q in %q", ErrInvalidAddressLength, part, address)
		}
		v, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: for input string %q", ErrInvalidAddressHex, part)
		}
		out[addressLen-1-i] = byte(v)
	}
	return out, nil
}

// ReverseBytes returns a reversed copy of b.
func ReverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// addressFromWire formats 6 little-endian wire bytes as XX:XX:XX:XX:XX:XX
func addressFromWire(b []byte) (string, bool) {
	if len(b) != addressLen {
		return "", false
	}
	var sb strings.Builder
	sb.Grow(addressTextLen)
	for i := addressLen - 1; i >= 0; i-- {
		_, _ = fmt.Fprintf(&sb, "%02X", b[i])
		if i > 0 {
			sb.WriteByte(':')
		}
	}
	return sb.String(), true
}

// IsValidAddress reports whether address is a well formed colon separated
// Bluetooth address.
func IsValidAddress(address string) bool {
	if len(address) != addressTextLen {
		return false
	}
	_, err := AddressToReverseBytes(address)
	return err == nil
}

// ToAnonymizedAddress masks the first four octets of address for logging.
// It returns false for any input that is not exactly 17 characters long.
func ToAnonymizedAddress(address string) (string, bool) {
	if len(address) != addressTextLen {
		return "", false
	}
	return "XX:XX:XX:XX:" + address[12:], true
}

// MaskAddress is ToAnonymizedAddress for log fields. Malformed input is
// replaced with "invalid".
func MaskAddress(address string) string {
	if masked, ok := ToAnonymizedAddress(address); ok {
		return masked
	}
	return "invalid"
}
