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

// Package retry provides bounded retry helpers for platform calls
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

var (
	// ErrRetriesExhausted is returned when an operation still asks for a
	// retry after the last attempt.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrRetryTimeout is returned by Poll when the deadline passes.
	ErrRetryTimeout = errors.New("retry timeout")

	errAgain = errors.New("again")
)

// Operation represents a function that can be retried
// Returns: data, shouldRetry, error
// - data: the result if successful
// - shouldRetry: true if the operation should be retried
// - error: any permanent error that should stop retries
type Operation[T any] func() (T, bool, error)

// Config configures retry behavior
type Config struct {
	OnRetry     func() error
	Description string
	MaxRetries  int
	RetryDelay  time.Duration
	MaxDelay    time.Duration
}

func (c Config) backOff() backoff.BackOff {
	if c.RetryDelay <= 0 {
		return &backoff.ZeroBackOff{}
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.RetryDelay
	exp.MaxInterval = c.MaxDelay
	if exp.MaxInterval < c.RetryDelay {
		exp.MaxInterval = c.RetryDelay * 8
	}
	return exp
}

// WithRetry runs operation until it succeeds, fails permanently, runs out
// of retries or ctx is done. Delays grow exponentially from RetryDelay.
func WithRetry[T any](ctx context.Context, config Config, operation Operation[T]) (T, error) {
	var (
		zero    T
		attempt int
	)

	result, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		if attempt > 1 && config.OnRetry != nil {
			if err := config.OnRetry(); err != nil {
				return zero, backoff.Permanent(err)
			}
		}

		value, shouldRetry, err := operation()
		if err != nil {
			return zero, backoff.Permanent(err)
		}
		if shouldRetry {
			return zero, errAgain
		}
		return value, nil
	},
		backoff.WithBackOff(config.backOff()),
		backoff.WithMaxTries(uint(max(config.MaxRetries, 0)+1)),
		backoff.WithMaxElapsedTime(0),
	)

	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, errAgain):
		return zero, fmt.Errorf("%s: %w after %d attempts", config.describe(), ErrRetriesExhausted, attempt)
	default:
		return zero, err
	}
}

func (c Config) describe() string {
	if c.Description == "" {
		return "operation"
	}
	return c.Description
}

// Poll runs operation every interval until it stops asking for a retry or
// timeout passes.
func Poll[T any](ctx context.Context, timeout, interval time.Duration, operation Operation[T]) (T, error) {
	var zero T

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}
		if !shouldRetry {
			return result, nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return zero, ErrRetryTimeout
			}
			return zero, ctx.Err()
		case <-ticker.C:
		}
	}
}
