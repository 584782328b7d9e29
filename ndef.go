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
	"encoding/hex"
	"fmt"
	"strings"

	ndef "github.com/hsanjuan/go-ndef"
	"github.com/hsanjuan/go-ndef/types/generic"
)

// Type Name Format values
const (
	TNFEmpty       byte = 0x00
	TNFWellKnown   byte = 0x01
	TNFMedia       byte = 0x02
	TNFAbsoluteURI byte = 0x03
	TNFExternal    byte = 0x04
	TNFUnknown     byte = 0x05
	TNFUnchanged   byte = 0x06
)

// Record types used by Connection Handover
const (
	TypeHandoverRequest     = "Hr"
	TypeHandoverSelect      = "Hs"
	TypeAlternativeCarrier  = "ac"
	TypeCollisionResolution = "cr"
	TypeBluetoothOOB        = "application/vnd.bluetooth.ep.oob"
	TypeBluetoothLEOOB      = "application/vnd.bluetooth.le.oob"
	TypeNokiaBluetooth      = "nokia.com:bt"
)

// Record is a single NDEF record with its payload kept as raw bytes
type Record struct {
	Type    string
	ID      string
	Payload []byte
	TNF     byte
}

// Is reports whether the record has the given TNF and type
func (r Record) Is(tnf byte, typ string) bool {
	return r.TNF == tnf && r.Type == typ
}

// Message is an ordered list of NDEF records
type Message struct {
	Records []Record
}

// NewMessage builds a message from records
func NewMessage(records ...Record) *Message {
	return &Message{Records: records}
}

// First returns the first record of the message
func (m *Message) First() (Record, bool) {
	if m == nil || len(m.Records) == 0 {
		return Record{}, false
	}
	return m.Records[0], true
}

// String returns a one line summary of the records
func (m *Message) String() string {
	if m == nil {
		return "<nil>"
	}
	parts := make([]string, 0, len(m.Records))
	for _, r := range m.Records {
		parts = append(parts, fmt.Sprintf("[tnf=%d type=%q id=%q payload=%s]",
			r.TNF, r.Type, r.ID, strings.ToUpper(hex.EncodeToString(r.Payload))))
	}
	return strings.Join(parts, " ")
}

// ParseMessage decodes NDEF wire bytes
func ParseMessage(data []byte) (*Message, error) {
	if len(data) == 0 {
		return nil, ErrEmptyMessage
	}

	var wire ndef.Message
	if _, err := wire.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if len(wire.Records) == 0 {
		return nil, ErrEmptyMessage
	}

	msg := &Message{Records: make([]Record, 0, len(wire.Records))}
	for _, r := range wire.Records {
		rec := Record{TNF: r.TNF(), Type: r.Type(), ID: r.ID()}
		payload, err := r.Payload()
		if err != nil {
			return nil, fmt.Errorf("%w: record payload: %w", ErrMalformedMessage, err)
		}
		if payload != nil {
			rec.Payload = payload.Marshal()
		}
		msg.Records = append(msg.Records, rec)
	}
	return msg, nil
}

// Marshal encodes the message to NDEF wire bytes
func (m *Message) Marshal() ([]byte, error) {
	if m == nil || len(m.Records) == 0 {
		return nil, ErrEmptyMessage
	}

	recs := make([]*ndef.Record, 0, len(m.Records))
	for _, r := range m.Records {
		recs = append(recs, ndef.NewRecord(r.TNF, r.Type, r.ID, generic.New(r.Payload)))
	}

	// NewRecord flags every record as both first and last; the message
	// constructor resets MB/ME by position.
	wire := ndef.NewMessageFromRecords(recs...)
	data, err := wire.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal NDEF message: %w", err)
	}
	return data, nil
}
