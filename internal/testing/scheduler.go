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

package testing

import (
	"sort"
	"sync"
	"time"

	"github.com/ZaparooProject/go-nfc-handover/peripheral"
)

// ManualScheduler is a peripheral.Scheduler driven by the test. Posted
// callbacks run on RunPending and timers fire on Advance, both on the
// calling goroutine.
type ManualScheduler struct {
	queue  []func()
	timers []*ManualTimer
	now    time.Duration
	seq    int
	mu     sync.Mutex
}

// ManualTimer is a timer created by ManualScheduler
type ManualTimer struct {
	fn      func()
	at      time.Duration
	seq     int
	stopped bool
	fired   bool
}

// NewManualScheduler creates a scheduler at virtual time zero
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Post queues fn for the next RunPending
func (s *ManualScheduler) Post(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, fn)
}

// AfterFunc schedules fn at now+d on the virtual clock
func (s *ManualScheduler) AfterFunc(d time.Duration, fn func()) peripheral.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &ManualTimer{fn: fn, at: s.now + d, seq: s.seq}
	s.timers = append(s.timers, t)
	return t
}

// Stop cancels the timer
func (t *ManualTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// RunPending runs queued callbacks, including ones they post, and returns
// how many ran.
func (s *ManualScheduler) RunPending() int {
	ran := 0
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return ran
		}
		fn := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		fn()
		ran++
	}
}

// Advance moves the virtual clock forward by d, firing due timers in order
// and running the callbacks each of them posts.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.RunPending()

	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		t := s.nextDue(target)
		if t == nil {
			break
		}
		t.fn()
		s.RunPending()
	}

	s.mu.Lock()
	s.now = target
	s.mu.Unlock()
}

func (s *ManualScheduler) nextDue(target time.Duration) *ManualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.timers[:0]
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			active = append(active, t)
		}
	}
	s.timers = active

	sort.Slice(s.timers, func(i, j int) bool {
		if s.timers[i].at == s.timers[j].at {
			return s.timers[i].seq < s.timers[j].seq
		}
		return s.timers[i].at < s.timers[j].at
	})

	if len(s.timers) == 0 || s.timers[0].at > target {
		return nil
	}
	t := s.timers[0]
	t.fired = true
	s.now = t.at
	return t
}

// Now returns the virtual time
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// ActiveTimers returns the number of timers that can still fire
func (s *ManualScheduler) ActiveTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}
