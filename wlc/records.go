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

package wlc

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	handover "github.com/ZaparooProject/go-nfc-handover"
)

// WLC record types (NFC Forum well-known)
const (
	TypeCapability   = "WLCCAP"
	TypeControl      = "WLCCTL"
	TypeStatusInfo   = "WLCSTAI"
	TypePollerInfo   = "WLCPI"
	TypeListenerInfo = "WLCINF"
)

const (
	capabilityLen   = 6
	controlLen      = 6
	listenerInfoLen = 2

	maxPowerAdjustUp  = 0x05
	minPowerAdjustLow = 0xFB
	maxWptTimeInt     = 0x13
)

var (
	ErrInvalidPowerAdjust = errors.New("invalid WPT power adjust")
	ErrInvalidWptTime     = errors.New("invalid WPT time interval")
)

// NewRecord wraps a WLC payload into a well-known record
func NewRecord(typ string, payload []byte) handover.Record {
	return handover.Record{TNF: handover.TNFWellKnown, Type: typ, Payload: payload}
}

// Capability is the decoded WLCCAP record of a listener
type Capability struct {
	NdefReadWait    time.Duration
	Version         byte
	ModeReq         int
	NegoWait        int
	NegoWaitRetries int
	CapWait         byte
	NdefWriteTo     byte
}

// ParseCapability decodes a WLCCAP payload
func ParseCapability(payload []byte) (Capability, bool) {
	if len(payload) < capabilityLen {
		return Capability{}, false
	}
	return Capability{
		Version:         payload[0],
		ModeReq:         int(payload[1]>>3) & 0x03,
		NegoWait:        int(payload[1]>>2) & 0x01,
		NegoWaitRetries: int(payload[2] & 0x0F),
		CapWait:         payload[3],
		NdefReadWait:    time.Duration(payload[4]) * 10 * time.Millisecond,
		NdefWriteTo:     payload[5],
	}, true
}

// Control is the decoded WLCCTL record of a listener
type Control struct {
	ErrorFlag     int
	BatteryStatus int
	Counter       int
	WptReq        int
	WptDuration   int
	PowerAdjust   byte
	BatteryLevel  int
	InfoReq       bool
	ReadConf      bool
}

// ParseControl decodes a WLCCTL payload
func ParseControl(payload []byte) (Control, bool) {
	if len(payload) < controlLen {
		return Control{}, false
	}
	return Control{
		ErrorFlag:     int(payload[0]>>7) & 0x01,
		BatteryStatus: int(payload[0]>>5) & 0x03,
		Counter:       int(payload[0]) & 0x07,
		WptReq:        int(payload[1]>>6) & 0x03,
		WptDuration:   int(payload[1]>>1) & 0x1F,
		InfoReq:       payload[1]&0x01 != 0,
		PowerAdjust:   payload[2],
		BatteryLevel:  int(payload[3]),
		ReadConf:      payload[4]&0x01 != 0,
	}, true
}

// Duration returns the requested power transfer time
func (c Control) Duration() time.Duration {
	return time.Duration(1<<(c.WptDuration+3)) * time.Millisecond
}

// encodeControl builds the poller WLCCTL payload
func encodeControl(counter int, confirm bool) []byte {
	payload := make([]byte, controlLen)
	payload[0] = byte(counter & 0x07)
	if confirm {
		payload[4] = 0x01
	}
	return payload
}

// StatusInfo is the decoded WLCSTAI record. Absent fields are -1.
type StatusInfo struct {
	BatteryLevel int
	ReceivePower int
	Temperature  int
}

// ParseStatusInfo decodes a WLCSTAI payload
func ParseStatusInfo(payload []byte) (StatusInfo, bool) {
	info := StatusInfo{BatteryLevel: -1, ReceivePower: -1, Temperature: -1}
	if len(payload) == 0 {
		return info, false
	}

	flags := payload[0]
	rest := payload[1:]
	fields := []*int{&info.BatteryLevel, &info.ReceivePower, &info.Temperature}
	for bit, field := range fields {
		if flags&(1<<bit) == 0 {
			continue
		}
		if len(rest) == 0 {
			break
		}
		*field = int(rest[0])
		rest = rest[1:]
	}
	return info, true
}

// ParseListenerInfo decodes the vendor id of a WLCINF payload
func ParseListenerInfo(payload []byte) (int, bool) {
	if len(payload) < listenerInfoLen {
		return -1, false
	}
	return int(payload[0])<<8 | int(payload[1]), true
}

// ValidateWptParams checks StartWPT arguments
func ValidateWptParams(powerAdjust, timeInt byte) error {
	if powerAdjust > maxPowerAdjustUp && powerAdjust < minPowerAdjustLow {
		return fmt.Errorf("%w: 0x%02X", ErrInvalidPowerAdjust, powerAdjust)
	}
	if timeInt > maxWptTimeInt {
		return fmt.Errorf("%w: 0x%02X", ErrInvalidWptTime, timeInt)
	}
	return nil
}

// BytesToHex returns the uppercase hex form of b
func BytesToHex(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

func findRecord(msg *handover.Message, typ string) (handover.Record, bool) {
	if msg == nil {
		return handover.Record{}, false
	}
	for _, r := range msg.Records {
		if r.Is(handover.TNFWellKnown, typ) {
			return r, true
		}
	}
	return handover.Record{}, false
}
