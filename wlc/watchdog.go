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
	"sync"
	"time"
)

// Watchdog checks listener presence while power is transferred. A missing
// tag fires onRemoved once and ends the watchdog; Interrupt fires
// onInterrupted and keeps it running.
type Watchdog struct {
	present       func() bool
	onRemoved     func()
	onInterrupted func()
	stop          chan struct{}
	interrupt     chan struct{}
	done          chan struct{}
	interval      time.Duration
	stopOnce      sync.Once
}

func newWatchdog(interval time.Duration, present func() bool, onRemoved, onInterrupted func()) *Watchdog {
	return &Watchdog{
		interval:      interval,
		present:       present,
		onRemoved:     onRemoved,
		onInterrupted: onInterrupted,
		stop:          make(chan struct{}),
		interrupt:     make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
}

func (w *Watchdog) start() {
	go w.run()
}

func (w *Watchdog) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-w.interrupt:
			w.onInterrupted()
		case <-ticker.C:
			if w.present() {
				continue
			}
			select {
			case <-w.stop:
			default:
				w.onRemoved()
			}
			return
		}
	}
}

// Interrupt wakes the watchdog without ending it
func (w *Watchdog) Interrupt() {
	select {
	case w.interrupt <- struct{}{}:
	default:
	}
}

// End stops the watchdog, waiting for its goroutine when wait is set
func (w *Watchdog) End(wait bool) {
	w.stopOnce.Do(func() { close(w.stop) })
	if wait {
		<-w.done
	}
}

// Done is closed once the watchdog goroutine has exited
func (w *Watchdog) Done() <-chan struct{} {
	return w.done
}
