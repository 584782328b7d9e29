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

// Package metrics exposes Prometheus collectors for handover and wireless
// charging outcomes. A nil *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Handover results
const (
	ResultSuccess    = "success"
	ResultFailure    = "failure"
	ResultSuperseded = "superseded"
	ResultCancelled  = "cancelled"
)

// Collector holds the handover and WLC collectors
type Collector struct {
	handoverAttempts *prometheus.CounterVec
	handoverResults  *prometheus.CounterVec
	handoverDuration *prometheus.HistogramVec
	handoversActive  prometheus.Gauge

	wlcTransitions *prometheus.CounterVec
	wlcStops       *prometheus.CounterVec
	wlcDataUpdates prometheus.Counter
	wlcCharging    prometheus.Gauge
}

// NewCollector registers the collectors with reg. A nil reg registers with
// the default Prometheus registry.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		handoverAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "handover",
				Name:      "attempts_total",
				Help:      "Total number of Bluetooth peripheral handovers started",
			},
			[]string{"transport"},
		),
		handoverResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "handover",
				Name:      "results_total",
				Help:      "Total number of finished Bluetooth peripheral handovers",
			},
			[]string{"result"},
		),
		handoverDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "handover",
				Name:      "duration_seconds",
				Help:      "Time from handover start to completion",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"result"},
		),
		handoversActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "handover",
				Name:      "active",
				Help:      "Number of handovers in progress",
			},
		),
		wlcTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "wlc",
				Name:      "state_transitions_total",
				Help:      "Total number of WLC state machine steps by resulting state",
			},
			[]string{"state"},
		),
		wlcStops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "wlc",
				Name:      "stops_total",
				Help:      "Total number of wireless power transfer stops by reason",
			},
			[]string{"reason"},
		),
		wlcDataUpdates: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "wlc",
				Name:      "listener_updates_total",
				Help:      "Total number of listener device info updates",
			},
		),
		wlcCharging: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "wlc",
				Name:      "charging",
				Help:      "1 while wireless power transfer is ongoing",
			},
		),
	}
}

// HandoverStarted records a handover start for transport
func (c *Collector) HandoverStarted(transport string) {
	if c == nil {
		return
	}
	c.handoverAttempts.WithLabelValues(transport).Inc()
	c.handoversActive.Inc()
}

// HandoverFinished records the result of a started handover
func (c *Collector) HandoverFinished(result string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.handoverResults.WithLabelValues(result).Inc()
	c.handoverDuration.WithLabelValues(result).Observe(elapsed.Seconds())
	c.handoversActive.Dec()
}

// WLCState records a WLC step ending in state
func (c *Collector) WLCState(state string) {
	if c == nil {
		return
	}
	c.wlcTransitions.WithLabelValues(state).Inc()
}

// WLCStopped records a power transfer stop
func (c *Collector) WLCStopped(reason string) {
	if c == nil {
		return
	}
	c.wlcStops.WithLabelValues(reason).Inc()
}

// WLCData records a listener device info update
func (c *Collector) WLCData() {
	if c == nil {
		return
	}
	c.wlcDataUpdates.Inc()
}

// SetCharging sets the charging gauge
func (c *Collector) SetCharging(charging bool) {
	if c == nil {
		return
	}
	if charging {
		c.wlcCharging.Set(1)
		return
	}
	c.wlcCharging.Set(0)
}
