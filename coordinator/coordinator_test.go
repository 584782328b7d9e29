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

package coordinator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handover "github.com/ZaparooProject/go-nfc-handover"
	"github.com/ZaparooProject/go-nfc-handover/coordinator"
	testutil "github.com/ZaparooProject/go-nfc-handover/internal/testing"
	"github.com/ZaparooProject/go-nfc-handover/metrics"
	"github.com/ZaparooProject/go-nfc-handover/peripheral"
)

type fakePolling struct {
	mu      sync.Mutex
	pauses  int
	resumes int
}

func (p *fakePolling) PausePolling(time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauses++
}

func (p *fakePolling) ResumePolling() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resumes++
}

func (p *fakePolling) counts() (pauses, resumes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pauses, p.resumes
}

type replies struct {
	mu  sync.Mutex
	got []bool
}

func (r *replies) reply(success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, success)
}

func (r *replies) all() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.got...)
}

type fixture struct {
	adapter  *testutil.VirtualAdapter
	sched    *testutil.ManualScheduler
	polling  *fakePolling
	registry *prometheus.Registry
	coord    *coordinator.Coordinator
}

func testConfig() coordinator.Config {
	return coordinator.Config{
		Machine: peripheral.Config{
			MaxRetries: 2,
			RetryDelay: time.Second,
			Timeout:    20 * time.Second,
		},
		PollingPause: 35 * time.Second,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		adapter:  testutil.NewVirtualAdapter(),
		sched:    testutil.NewManualScheduler(),
		polling:  &fakePolling{},
		registry: prometheus.NewRegistry(),
	}

	coord, err := coordinator.New(f.adapter,
		coordinator.WithScheduler(f.sched),
		coordinator.WithConfig(testConfig()),
		coordinator.WithPollingControl(f.polling),
		coordinator.WithMetrics(metrics.NewCollector("test", f.registry)),
	)
	require.NoError(t, err)
	f.coord = coord
	return f
}

func leHandover() coordinator.Handover {
	return coordinator.Handover{
		Address:   testutil.TestDeviceAddress,
		Name:      "Keyboard",
		Transport: handover.TransportLE,
	}
}

func (f *fixture) results(t *testing.T) int {
	t.Helper()
	n, err := promtestutil.GatherAndCount(f.registry, "test_handover_results_total")
	require.NoError(t, err)
	return n
}

func TestNew_NilAdapter(t *testing.T) {
	t.Parallel()

	_, err := coordinator.New(nil)
	require.ErrorIs(t, err, coordinator.ErrNilAdapter)
}

func TestStartHandover_InvalidAddress(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	err := f.coord.StartHandover(coordinator.Handover{Address: "not-an-address"}, nil)
	require.ErrorIs(t, err, coordinator.ErrInvalidAddress)
	assert.Zero(t, f.sched.RunPending())
}

func TestStartHandover_Connects(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	device := f.adapter.AddDevice(testutil.TestDeviceAddress)
	device.SetBondState(peripheral.BondBonded)
	f.adapter.Proxy(peripheral.ProfileHID).AutoConnect = true

	var r replies
	require.NoError(t, f.coord.StartHandover(leHandover(), r.reply))
	assert.False(t, f.coord.IsActive(testutil.TestDeviceAddress))

	f.sched.RunPending()
	assert.True(t, f.coord.IsActive("00:11:22:33:44:55"))
	assert.Equal(t, 1, f.coord.ActiveCount())
	pauses, _ := f.polling.counts()
	assert.Equal(t, 1, pauses)

	f.sched.Advance(time.Second)
	assert.Equal(t, []bool{true}, r.all())
	assert.Zero(t, f.coord.ActiveCount())
	assert.Equal(t, "Keyboard", device.Alias())
	_, resumes := f.polling.counts()
	assert.Equal(t, 1, resumes)
	assert.Equal(t, 1, f.results(t))
	assert.Zero(t, f.adapter.Disables())
}

func TestStartHandover_Supersedes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.adapter.AddDevice(testutil.TestDeviceAddress)

	var first, second replies
	require.NoError(t, f.coord.StartHandover(leHandover(), first.reply))
	f.sched.RunPending()
	require.Equal(t, 1, f.coord.ActiveCount())
	assert.Zero(t, f.adapter.Closed(peripheral.ProfileHID))

	require.NoError(t, f.coord.StartHandover(leHandover(), second.reply))
	f.sched.RunPending()

	assert.Equal(t, 1, f.coord.ActiveCount())
	assert.Equal(t, 1, f.adapter.Closed(peripheral.ProfileHID))
	assert.Empty(t, first.all())

	f.coord.OnPlatformIntent(peripheral.Intent{
		Device:    testutil.TestDeviceAddress,
		Kind:      peripheral.IntentBondStateChanged,
		BondState: peripheral.BondNone,
	})
	f.sched.RunPending()

	assert.Empty(t, first.all())
	assert.Equal(t, []bool{false}, second.all())
	assert.Zero(t, f.coord.ActiveCount())
}

func TestCancelHandover(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.adapter.AddDevice(testutil.TestDeviceAddress)

	var r replies
	require.NoError(t, f.coord.StartHandover(leHandover(), r.reply))
	f.sched.RunPending()

	f.coord.CancelHandover("00:11:22:33:44:55")
	f.sched.RunPending()

	assert.Zero(t, f.coord.ActiveCount())
	assert.Equal(t, 1, f.adapter.Closed(peripheral.ProfileHID))
	f.sched.Advance(time.Minute)
	assert.Empty(t, r.all())
}

func TestOnPlatformIntent_Routing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.adapter.AddDevice(testutil.TestDeviceAddress)
	f.adapter.AddDevice(testutil.TestOtherAddress)
	f.adapter.Proxy(peripheral.ProfileHID).AutoConnect = true

	var mine, other replies
	require.NoError(t, f.coord.StartHandover(leHandover(), mine.reply))
	otherReq := leHandover()
	otherReq.Address = testutil.TestOtherAddress
	require.NoError(t, f.coord.StartHandover(otherReq, other.reply))
	f.sched.RunPending()
	require.Equal(t, 2, f.coord.ActiveCount())

	f.coord.OnPlatformIntent(peripheral.Intent{
		Device:    testutil.TestOtherAddress,
		Kind:      peripheral.IntentBondStateChanged,
		BondState: peripheral.BondNone,
	})
	f.coord.OnPlatformIntent(peripheral.Intent{
		Device:    "AA:AA:AA:AA:AA:AA",
		Kind:      peripheral.IntentBondStateChanged,
		BondState: peripheral.BondNone,
	})
	f.sched.RunPending()

	assert.Equal(t, []bool{false}, other.all())
	assert.Empty(t, mine.all())
	assert.True(t, f.coord.IsActive(testutil.TestDeviceAddress))

	f.coord.OnPlatformIntent(peripheral.Intent{
		Device:    "00:11:22:33:44:55",
		Kind:      peripheral.IntentBondStateChanged,
		BondState: peripheral.BondBonded,
	})
	f.sched.Advance(time.Second)
	assert.Equal(t, []bool{true}, mine.all())
}

func TestStartHandover_EnablesBluetooth(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.adapter.SetEnabled(false)
	f.adapter.AddDevice(testutil.TestDeviceAddress)

	var r replies
	require.NoError(t, f.coord.StartHandover(leHandover(), r.reply))
	f.sched.RunPending()

	assert.Equal(t, 1, f.adapter.Enables())
	assert.Equal(t, 1, f.coord.PendingCount())
	assert.Zero(t, f.coord.ActiveCount())

	f.adapter.SetEnabled(true)
	f.coord.OnPlatformIntent(peripheral.Intent{Kind: peripheral.IntentAdapterStateChanged, AdapterOn: true})
	f.sched.RunPending()

	assert.Zero(t, f.coord.PendingCount())
	assert.Equal(t, 1, f.coord.ActiveCount())

	f.coord.OnPlatformIntent(peripheral.Intent{
		Device:    testutil.TestDeviceAddress,
		Kind:      peripheral.IntentBondStateChanged,
		BondState: peripheral.BondNone,
	})
	f.sched.RunPending()

	assert.Equal(t, []bool{false}, r.all())
	assert.Equal(t, 1, f.adapter.Disables())
	assert.False(t, f.adapter.IsEnabled())
}

func TestStartHandover_KeepsBluetoothWhenConnected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.adapter.SetEnabled(false)
	f.adapter.AddDevice(testutil.TestDeviceAddress).SetBondState(peripheral.BondBonded)
	f.adapter.Proxy(peripheral.ProfileHID).AutoConnect = true

	var r replies
	require.NoError(t, f.coord.StartHandover(leHandover(), r.reply))
	f.sched.RunPending()
	f.adapter.SetEnabled(true)
	f.coord.OnPlatformIntent(peripheral.Intent{Kind: peripheral.IntentAdapterStateChanged, AdapterOn: true})
	f.sched.Advance(time.Second)

	assert.Equal(t, []bool{true}, r.all())
	assert.Zero(t, f.adapter.Disables())
}

func TestStartHandover_AdapterTurnedOff(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.adapter.SetEnabled(false)

	var r replies
	require.NoError(t, f.coord.StartHandover(leHandover(), r.reply))
	f.sched.RunPending()

	f.coord.OnPlatformIntent(peripheral.Intent{Kind: peripheral.IntentAdapterStateChanged, AdapterOn: false})
	f.sched.RunPending()

	assert.Equal(t, []bool{false}, r.all())
	assert.Zero(t, f.coord.PendingCount())
}

func TestStartHandover_EnableFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.adapter.SetEnabled(false)
	f.adapter.EnableErr = errors.New("rfkill")

	var r replies
	require.NoError(t, f.coord.StartHandover(leHandover(), r.reply))
	f.sched.RunPending()

	assert.Equal(t, []bool{false}, r.all())
	assert.Zero(t, f.coord.PendingCount())
}

func TestStop_CancelsAll(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.adapter.AddDevice(testutil.TestDeviceAddress)

	var r replies
	require.NoError(t, f.coord.StartHandover(leHandover(), r.reply))
	f.sched.RunPending()

	require.NoError(t, f.coord.Stop())
	f.sched.RunPending()

	assert.Zero(t, f.coord.ActiveCount())
	assert.Equal(t, 1, f.adapter.Closed(peripheral.ProfileHID))
	assert.Empty(t, r.all())
}

func TestHandoverFromCarrier(t *testing.T) {
	t.Parallel()

	name := "Headset"
	got := coordinator.HandoverFromCarrier(&handover.CarrierDescriptor{
		Valid:     true,
		Device:    testutil.TestDeviceAddress,
		Name:      &name,
		Transport: handover.TransportClassic,
		HasClass:  true,
	})

	assert.Equal(t, testutil.TestDeviceAddress, got.Address)
	assert.Equal(t, "Headset", got.Name)
	assert.Equal(t, handover.TransportClassic, got.Transport)
	assert.True(t, got.HasClass)
	assert.Nil(t, got.OOB)
}

func TestCoordinator_EventLoop(t *testing.T) {
	t.Parallel()

	adapter := testutil.NewVirtualAdapter()
	adapter.AddDevice(testutil.TestDeviceAddress).SetBondState(peripheral.BondBonded)
	adapter.Proxy(peripheral.ProfileHID).AutoConnect = true

	cfg := testConfig()
	cfg.Machine.RetryDelay = 5 * time.Millisecond
	coord, err := coordinator.New(adapter, coordinator.WithConfig(cfg))
	require.NoError(t, err)
	require.NoError(t, coord.Start(context.Background()))
	t.Cleanup(func() { _ = coord.Stop() })

	done := make(chan bool, 1)
	require.NoError(t, coord.StartHandover(leHandover(), func(success bool) { done <- success }))

	select {
	case success := <-done:
		assert.True(t, success)
	case <-time.After(2 * time.Second):
		t.Fatal("handover did not complete")
	}
}
