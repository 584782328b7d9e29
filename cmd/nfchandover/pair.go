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

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	handover "github.com/ZaparooProject/go-nfc-handover"
	"github.com/ZaparooProject/go-nfc-handover/bluez"
	"github.com/ZaparooProject/go-nfc-handover/coordinator"
	"github.com/ZaparooProject/go-nfc-handover/metrics"
	"github.com/ZaparooProject/go-nfc-handover/peripheral"
)

func pairCmd(a *app) *cobra.Command {
	var adapterPath string
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "pair <hex>",
		Short: "Pair and connect the device advertised by a handover message",
		Long: "Pair and connect the Bluetooth device carried by an NDEF handover\n" +
			"message through BlueZ. Requires bluetooth.service on the system bus.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			carrier, err := carrierFromHex(a, args[0])
			if err != nil {
				return err
			}
			out := NewOutput(cmd.OutOrStdout(), a.debug)
			out.Carrier(carrier)

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())
			collector := metrics.NewCollector(a.cfg.Metrics.Namespace, reg)
			if a.cfg.Metrics.Listen != "" {
				go serveMetrics(ctx, a.cfg.Metrics.Listen, reg, a.logger)
			}

			return runPair(ctx, a, out, pairOptions{
				carrier:     carrier,
				adapterPath: adapterPath,
				collector:   collector,
				wait:        wait,
			})
		},
	}
	cmd.Flags().StringVar(&adapterPath, "adapter", string(bluez.DefaultAdapterPath), "BlueZ adapter object path")
	cmd.Flags().DurationVar(&wait, "wait", 2*time.Minute, "How long to wait for the handover")
	return cmd
}

func carrierFromHex(a *app, s string) (*handover.CarrierDescriptor, error) {
	msg, err := decodeMessage(s)
	if err != nil {
		return nil, err
	}
	carrier := handover.NewParser(handover.WithParserLogger(a.logger)).Parse(msg)
	if carrier == nil {
		return nil, ErrNoCarrier
	}
	if !carrier.Valid {
		return nil, ErrInvalidCarrier
	}
	return carrier, nil
}

type pairOptions struct {
	carrier     *handover.CarrierDescriptor
	collector   *metrics.Collector
	adapterPath string
	wait        time.Duration
}

func runPair(ctx context.Context, a *app, out *Output, opts pairOptions) error {
	var coord *coordinator.Coordinator
	adapter, err := bluez.Dial(
		bluez.WithAdapterPath(dbus.ObjectPath(opts.adapterPath)),
		bluez.WithLogger(a.logger),
		bluez.WithIntentHandler(func(i peripheral.Intent) { coord.OnPlatformIntent(i) }),
	)
	if err != nil {
		return fmt.Errorf("open BlueZ adapter: %w", err)
	}
	defer func() { _ = adapter.Close() }()

	coord, err = coordinator.New(adapter,
		coordinator.WithConfig(a.cfg.Handover.Coordinator()),
		coordinator.WithLogger(a.logger),
		coordinator.WithMetrics(opts.collector),
	)
	if err != nil {
		return err
	}
	if err := coord.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = coord.Stop() }()

	watcher := bluez.NewWatcher(adapter, coord.OnPlatformIntent)
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = watcher.Stop() }()

	req := coordinator.HandoverFromCarrier(opts.carrier)
	done := make(chan bool, 1)
	if err := coord.StartHandover(req, func(success bool) { done <- success }); err != nil {
		return err
	}
	out.Info("handover started for %s", req.Address)

	timer := time.NewTimer(opts.wait)
	defer timer.Stop()

	select {
	case success := <-done:
		if !success {
			return ErrHandoverFailed
		}
		out.OK("%s connected", req.Address)
		return nil
	case <-timer.C:
		coord.CancelHandover(req.Address)
		return fmt.Errorf("%w: no result after %s", ErrHandoverFailed, opts.wait)
	case <-ctx.Done():
		coord.CancelHandover(req.Address)
		return ctx.Err()
	}
}

// serveMetrics exposes reg on /metrics until ctx is done
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server started", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("metrics server failed", zap.Error(err))
	}
}
