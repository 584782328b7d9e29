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
	handover "github.com/ZaparooProject/go-nfc-handover"
	"github.com/ZaparooProject/go-nfc-handover/peripheral"
)

// Session runs a Machine on its scheduler. Steps are spaced by the listener
// read wait time; controller and tag callbacks are posted to the same
// scheduler so they never race a step.
type Session struct {
	m       *Machine
	sched   peripheral.Scheduler
	timer   peripheral.Timer
	gen     uint64
	running bool
}

// NewSession wraps m. Only one session may drive a machine.
func NewSession(m *Machine) *Session {
	s := &Session{m: m, sched: m.sched}
	m.wake = s.kick
	return s
}

// Machine returns the driven machine. Read it only from the scheduler.
func (s *Session) Machine() *Machine {
	return s.m
}

// Start begins a session for a listener found with discovered
func (s *Session) Start(discovered *handover.Message) {
	s.sched.Post(func() {
		s.m.Begin(discovered)
		s.running = true
		s.kick()
	})
}

// Stop ends the session and disconnects the tag
func (s *Session) Stop() {
	s.sched.Post(func() {
		s.halt()
		if s.m.Attached() {
			s.m.StopNfcCharging()
		}
	})
}

// OnWlcStopped forwards the controller power transfer end event
func (s *Session) OnWlcStopped(reason int) {
	s.sched.Post(func() {
		s.m.OnWlcStopped(reason)
		s.reschedule()
	})
}

// OnEndpointRemoved forwards the endpoint removal event
func (s *Session) OnEndpointRemoved() {
	s.sched.Post(func() {
		s.m.OnEndpointRemoved()
		s.reschedule()
	})
}

// OnTagDisconnected forwards a tag removal reported by the host
func (s *Session) OnTagDisconnected() {
	s.sched.Post(func() {
		if s.m.Attached() {
			s.m.OnTagDisconnected()
		}
		s.halt()
	})
}

func (s *Session) halt() {
	s.running = false
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// kick runs the next step right away
func (s *Session) kick() {
	if !s.running {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	gen := s.gen
	s.sched.Post(func() {
		if gen == s.gen {
			s.step()
		}
	})
}

func (s *Session) step() {
	s.timer = nil
	if !s.running {
		return
	}
	if !s.m.Attached() {
		s.halt()
		return
	}
	s.m.HandleWLCState()
	s.reschedule()
}

// reschedule arms the timer for the next step, or leaves the session idle
// while the machine waits for an event
func (s *Session) reschedule() {
	if !s.running {
		return
	}
	if !s.m.Attached() {
		s.halt()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	delay, ok := s.m.nextStep()
	if !ok {
		return
	}
	gen := s.gen
	s.timer = s.sched.AfterFunc(delay, func() {
		if gen == s.gen {
			s.step()
		}
	})
}
