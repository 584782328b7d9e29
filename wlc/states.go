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

// Machine states
const (
	StateReadCapability    = 0
	StateHandleModeRequest = 1
	StateHandleNegoWait    = 2
	StateWriteControl      = 3
	StateReadControl       = 4
	StateReadConfirmation  = 5
	StateCheckWptRequest   = 6
	StateHandleWpt         = 7
	StateHandleInfoRequest = 8
	StateRemovalDetection  = 9
	StateWptTimeCompleted  = 10
	StateFodDetection      = 11
)

// Reasons passed to OnWlcStopped
const (
	StopReasonTimeCompleted = 0
	StopReasonFodDetected   = 1
	StopReasonError         = 2
)

var stateLabels = [...]string{
	StateReadCapability:    "Read WLCL_CAP",
	StateHandleModeRequest: "Handle WLCL_CAP mode request",
	StateHandleNegoWait:    "Handle NEGO_WAIT?",
	StateWriteControl:      "Write WLCL_CTL",
	StateReadControl:       "Read WLCL_CTL",
	StateReadConfirmation:  "Read confirmation?",
	StateCheckWptRequest:   "Check WPT requested?",
	StateHandleWpt:         "Handle WPT",
	StateHandleInfoRequest: "Handle INFO_REQ?",
	StateRemovalDetection:  "Handle removal detection",
	StateWptTimeCompleted:  "Handle WPT time completed",
	StateFodDetection:      "Handle FOD detection/removal",
}

// StateString returns the diagnostic label of a state number
func StateString(state int) string {
	if state < 0 || state >= len(stateLabels) {
		return "Unknown"
	}
	return stateLabels[state]
}

// ConvertStateToString is an alias of StateString
func ConvertStateToString(state int) string {
	return StateString(state)
}

func stopReasonString(reason int) string {
	switch reason {
	case StopReasonTimeCompleted:
		return "time-completed"
	case StopReasonFodDetected:
		return "fod-detected"
	default:
		return "error"
	}
}

// Listener device states reported in DeviceInfo
const (
	DeviceStateUnknown              = -1
	DeviceStateConnectedCharging    = 1
	DeviceStateConnectedDischarging = 2
	DeviceStateDisconnected         = 3
)

// DeviceInfo describes the charged listener. Unknown values are -1.
type DeviceInfo struct {
	VendorID     int
	Temperature  int
	BatteryLevel int
	State        int
}

func unknownDeviceInfo() DeviceInfo {
	return DeviceInfo{
		VendorID:     -1,
		Temperature:  -1,
		BatteryLevel: -1,
		State:        DeviceStateUnknown,
	}
}
