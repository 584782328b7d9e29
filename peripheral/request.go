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

package peripheral

import (
	"github.com/google/uuid"

	handover "github.com/ZaparooProject/go-nfc-handover"
)

// Request describes the peer a handover machine works on
type Request struct {
	Device    Device
	OOB       *handover.OOBData
	Name      string
	UUIDs     []uuid.UUID
	Class     handover.DeviceClass
	Transport handover.Transport
	HasClass  bool
}

// RequestFromCarrier builds a request for a parsed carrier and the
// platform device at the same address.
func RequestFromCarrier(carrier *handover.CarrierDescriptor, device Device) Request {
	return Request{
		Device:    device,
		OOB:       carrier.OOBData(),
		Name:      carrier.DisplayName(),
		UUIDs:     carrier.UUIDs,
		Class:     carrier.DeviceClass,
		HasClass:  carrier.HasClass,
		Transport: carrier.Transport,
	}
}

func (r Request) address() string {
	if r.Device == nil {
		return ""
	}
	return r.Device.Address()
}

func (r Request) hasHeadsetCapability() bool {
	if handover.ContainsUUID(r.UUIDs, handover.UUIDHandsfree) ||
		handover.ContainsUUID(r.UUIDs, handover.UUIDHeadset) {
		return true
	}
	return r.HasClass && r.Class.SupportsHeadset()
}

func (r Request) hasA2DPCapability() bool {
	if handover.ContainsUUID(r.UUIDs, handover.UUIDAudioSink) ||
		handover.ContainsUUID(r.UUIDs, handover.UUIDAdvAudioDist) {
		return true
	}
	return r.HasClass && r.Class.SupportsA2DP()
}

func (r Request) hasHIDCapability() bool {
	if handover.ContainsUUID(r.UUIDs, handover.UUIDHID) {
		return true
	}
	return r.HasClass && r.Class.SupportsHID()
}

// requiredProfiles are the proxies acquired before the machine can decide
func requiredProfiles(transport handover.Transport) []Profile {
	if transport == handover.TransportLE {
		return []Profile{ProfileHID}
	}
	return []Profile{ProfileHID, ProfileHFP, ProfileA2DP}
}

// capabilities are the profiles the peer is expected to offer
func (r Request) capabilities() []Profile {
	if r.Transport == handover.TransportLE {
		return []Profile{ProfileHID}
	}

	var profiles []Profile
	if r.hasHIDCapability() {
		profiles = append(profiles, ProfileHID)
	}
	if r.hasHeadsetCapability() {
		profiles = append(profiles, ProfileHFP)
	}
	if r.hasA2DPCapability() {
		profiles = append(profiles, ProfileA2DP)
	}
	if len(profiles) == 0 {
		// Nothing advertised: assume an audio device.
		profiles = []Profile{ProfileHFP, ProfileA2DP}
	}
	return profiles
}
