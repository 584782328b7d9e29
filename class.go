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

// Class of Device service bits
const (
	ServiceRender uint32 = 0x040000
	ServiceAudio  uint32 = 0x200000
)

// Class of Device major and minor classes
const (
	MajorPeripheral uint32 = 0x0500

	DeviceWearableHeadset uint32 = 0x0404
	DeviceHandsfree       uint32 = 0x0408
	DeviceLoudspeaker     uint32 = 0x0414
	DeviceHeadphones      uint32 = 0x0418
	DeviceCarAudio        uint32 = 0x0420
	DeviceHifiAudio       uint32 = 0x0428
)

const (
	majorClassMask  = 0x1F00
	deviceClassMask = 0x1FFC
	classMask       = 0xFFFFFF
)

// DeviceClass is a 24 bit Bluetooth Class of Device value
type DeviceClass uint32

// HasService reports whether the service class bit is set
func (c DeviceClass) HasService(service uint32) bool {
	return uint32(c)&classMask&service != 0
}

// MajorClass returns the major device class
func (c DeviceClass) MajorClass() uint32 {
	return uint32(c) & majorClassMask
}

// Device returns the major and minor device class
func (c DeviceClass) Device() uint32 {
	return uint32(c) & deviceClassMask
}

// SupportsHeadset reports whether the class suggests HSP/HFP support
func (c DeviceClass) SupportsHeadset() bool {
	if c.HasService(ServiceRender) {
		return true
	}
	switch c.Device() {
	case DeviceHandsfree, DeviceWearableHeadset, DeviceCarAudio:
		return true
	default:
		return false
	}
}

// SupportsA2DP reports whether the class suggests an A2DP sink
func (c DeviceClass) SupportsA2DP() bool {
	if c.HasService(ServiceRender) {
		return true
	}
	switch c.Device() {
	case DeviceHifiAudio, DeviceHeadphones, DeviceLoudspeaker, DeviceCarAudio:
		return true
	default:
		return false
	}
}

// SupportsHID reports whether the class is a peripheral
func (c DeviceClass) SupportsHID() bool {
	return c.MajorClass() == MajorPeripheral
}
