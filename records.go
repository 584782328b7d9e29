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
	"crypto/rand"
	"fmt"
)

// Connection Handover version 1.2
const handoverVersion = 0x12

// btCarrierID is the record ID linking the alternative carrier to the OOB record
const btCarrierID = "b"

const collisionLen = 2

// CarrierPowerState is the power state advertised in an alternative carrier record
type CarrierPowerState byte

const (
	PowerStateInactive   CarrierPowerState = 0x00
	PowerStateActive     CarrierPowerState = 0x01
	PowerStateActivating CarrierPowerState = 0x02
	PowerStateUnknown    CarrierPowerState = 0x03
)

// AlternativeCarrier is the decoded payload of an "ac" record
type AlternativeCarrier struct {
	CarrierRef string
	AuxRefs    []string
	PowerState CarrierPowerState
}

// DecodeAlternativeCarrier decodes an "ac" payload:
// [power state, ref length, ref..., aux count, {aux length, aux ref}...].
// The aux list is optional; a truncated aux list keeps the entries read so far.
func DecodeAlternativeCarrier(payload []byte) (AlternativeCarrier, bool) {
	if len(payload) < 2 {
		return AlternativeCarrier{}, false
	}
	refLen := int(payload[1])
	if len(payload) < 2+refLen {
		return AlternativeCarrier{}, false
	}

	ac := AlternativeCarrier{
		PowerState: CarrierPowerState(payload[0] & 0x03),
		CarrierRef: string(payload[2 : 2+refLen]),
	}

	rest := payload[2+refLen:]
	if len(rest) == 0 {
		return ac, true
	}
	count := int(rest[0])
	rest = rest[1:]
	for i := 0; i < count && len(rest) > 0; i++ {
		n := int(rest[0])
		if len(rest) < 1+n {
			break
		}
		ac.AuxRefs = append(ac.AuxRefs, string(rest[1:1+n]))
		rest = rest[1+n:]
	}
	return ac, true
}

// EncodeAlternativeCarrier builds the "ac" record pointing at the Bluetooth
// OOB record.
func EncodeAlternativeCarrier(activating bool) Record {
	state := PowerStateActive
	if activating {
		state = PowerStateActivating
	}
	payload := []byte{byte(state), byte(len(btCarrierID))}
	payload = append(payload, btCarrierID...)
	payload = append(payload, 0x00) // no auxiliary data references

	return Record{TNF: TNFWellKnown, Type: TypeAlternativeCarrier, Payload: payload}
}

// EncodeCollisionRecord builds a collision resolution record holding a
// random number.
func EncodeCollisionRecord() (Record, error) {
	random := make([]byte, collisionLen)
	if _, err := rand.Read(random); err != nil {
		return Record{}, fmt.Errorf("failed to generate collision random: %w", err)
	}
	return Record{TNF: TNFWellKnown, Type: TypeCollisionResolution, Payload: random}, nil
}

// EncodeBtOobRecord builds the Bluetooth OOB record for the local adapter
func EncodeBtOobRecord(localAddress string) (Record, error) {
	wire, err := AddressToReverseBytes(localAddress)
	if err != nil {
		return Record{}, err
	}

	payload := make([]byte, btOobHeaderLen)
	payload[0] = btOobHeaderLen
	payload[1] = 0x00
	copy(payload[btOobLengthLen:], wire)

	return Record{TNF: TNFMedia, Type: TypeBluetoothOOB, ID: btCarrierID, Payload: payload}, nil
}

// wrapNested prefixes an embedded message with the handover version byte
func wrapNested(typ string, records ...Record) (Record, error) {
	nested, err := NewMessage(records...).Marshal()
	if err != nil {
		return Record{}, fmt.Errorf("failed to encode %s record: %w", typ, err)
	}
	payload := make([]byte, 0, len(nested)+1)
	payload = append(payload, handoverVersion)
	payload = append(payload, nested...)
	return Record{TNF: TNFWellKnown, Type: typ, Payload: payload}, nil
}

// EncodeHandoverRequestRecord builds an "Hr" record offering Bluetooth
func EncodeHandoverRequestRecord() (Record, error) {
	collision, err := EncodeCollisionRecord()
	if err != nil {
		return Record{}, err
	}
	return wrapNested(TypeHandoverRequest, collision, EncodeAlternativeCarrier(false))
}

// EncodeHandoverSelectRecord builds an "Hs" record selecting altCarrier
func EncodeHandoverSelectRecord(altCarrier Record) (Record, error) {
	return wrapNested(TypeHandoverSelect, altCarrier)
}

// EncodeHandoverRequest builds a Handover Request message carrying the local
// Bluetooth address.
func EncodeHandoverRequest(localAddress string) (*Message, error) {
	hr, err := EncodeHandoverRequestRecord()
	if err != nil {
		return nil, err
	}
	oob, err := EncodeBtOobRecord(localAddress)
	if err != nil {
		return nil, err
	}
	return NewMessage(hr, oob), nil
}

// EncodeHandoverSelect builds a Handover Select message for altCarrier
// followed by the given carrier data records.
func EncodeHandoverSelect(altCarrier Record, carriers ...Record) (*Message, error) {
	hs, err := EncodeHandoverSelectRecord(altCarrier)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(carriers)+1)
	records = append(records, hs)
	records = append(records, carriers...)
	return NewMessage(records...), nil
}

// EncodeBluetoothHandoverSelect builds the Handover Select reply for the
// local adapter. activating should be true while the adapter is still
// powering up.
func EncodeBluetoothHandoverSelect(localAddress string, activating bool) (*Message, error) {
	oob, err := EncodeBtOobRecord(localAddress)
	if err != nil {
		return nil, err
	}
	return EncodeHandoverSelect(EncodeAlternativeCarrier(activating), oob)
}
