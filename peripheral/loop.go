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
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Event loop errors
var (
	ErrLoopRunning    = errors.New("event loop is already running")
	ErrLoopNotRunning = errors.New("event loop is not running")
	ErrLoopStopped    = errors.New("event loop was stopped")
)

// EventLoop is a Scheduler that runs every callback on one goroutine, in
// the order they were posted.
type EventLoop struct {
	logger     *zap.Logger
	cancelFunc context.CancelFunc
	done       chan struct{}
	wake       chan struct{}
	queue      []func()
	queueMutex sync.Mutex
	stopMutex  sync.Mutex
	running    atomic.Bool
}

// NewEventLoop creates a stopped event loop
func NewEventLoop(logger *zap.Logger) *EventLoop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventLoop{
		logger: logger.With(zap.String("component", "event-loop")),
		wake:   make(chan struct{}, 1),
	}
}

// Start runs the loop in the background until ctx is done or Stop is called
func (l *EventLoop) Start(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.stopMutex.Lock()
	l.cancelFunc = cancel
	l.done = done
	l.stopMutex.Unlock()

	go func() {
		defer func() {
			l.running.Store(false)
			close(done)
		}()
		l.run(loopCtx)
	}()

	// Callbacks kept from an earlier run.
	l.signal()
	return nil
}

// Stop ends the loop and blocks until its goroutine returned. Callbacks
// still queued are kept for a later Start.
func (l *EventLoop) Stop() error {
	l.stopMutex.Lock()
	cancel, done := l.cancelFunc, l.done
	l.cancelFunc = nil
	l.stopMutex.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// IsRunning returns whether the loop goroutine is active
func (l *EventLoop) IsRunning() bool {
	return l.running.Load()
}

// Post queues fn. It never blocks.
func (l *EventLoop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.queueMutex.Lock()
	l.queue = append(l.queue, fn)
	l.queueMutex.Unlock()
	l.signal()
}

func (l *EventLoop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// AfterFunc posts fn once d elapsed
func (l *EventLoop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.state.CompareAndSwap(timerPending, timerFired) {
				fn()
			}
		})
	})
	return t
}

// Do runs fn on the loop and waits for it to return
func (l *EventLoop) Do(ctx context.Context, fn func()) error {
	l.stopMutex.Lock()
	done := l.done
	l.stopMutex.Unlock()

	if !l.running.Load() || done == nil {
		return ErrLoopNotRunning
	}

	ran := make(chan struct{})
	l.Post(func() {
		defer close(ran)
		fn()
	})

	select {
	case <-ran:
		return nil
	case <-done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *EventLoop) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}

		for fn := l.pop(); fn != nil; fn = l.pop() {
			l.invoke(fn)
			if ctx.Err() != nil {
				return
			}
		}
	}
}

func (l *EventLoop) pop() func() {
	l.queueMutex.Lock()
	defer l.queueMutex.Unlock()

	if len(l.queue) == 0 {
		return nil
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn
}

func (l *EventLoop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("event loop callback panicked", zap.Any("panic", r))
		}
	}()
	fn()
}

const (
	timerPending int32 = iota
	timerStopped
	timerFired
)

type loopTimer struct {
	timer *time.Timer
	state atomic.Int32
}

func (t *loopTimer) Stop() bool {
	if !t.state.CompareAndSwap(timerPending, timerStopped) {
		return false
	}
	t.timer.Stop()
	return true
}
