/*-
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sampler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mfreeman451/systempulse/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var errUnreachable = errors.New("connection refused")

// gatedSource blocks every fetch until release is called or the context ends.
type gatedSource struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	value   float64
}

func newGatedSource() *gatedSource {
	return &gatedSource{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (g *gatedSource) Fetch(ctx context.Context) (models.Readings, error) {
	g.calls.Add(1)
	g.started <- struct{}{}

	select {
	case <-g.release:
		return models.Readings{"cpu": g.value}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (*gatedSource) Name() string { return "gated" }

// countingSource returns an incrementing reading on every call.
type countingSource struct {
	calls atomic.Int32
}

func (c *countingSource) Fetch(context.Context) (models.Readings, error) {
	n := c.calls.Add(1)

	return models.Readings{"n": float64(n)}, nil
}

func (*countingSource) Name() string { return "counting" }

func newMockSource(t *testing.T) *MockSource {
	t.Helper()

	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	src.EXPECT().Name().Return("mock").AnyTimes()

	return src
}

func newSampler(t *testing.T, src Source, opts ...Option) *Sampler {
	t.Helper()

	s := New(src, opts...)
	t.Cleanup(s.Close)

	return s
}

func TestSampler_StartRejectsInvalidInterval(t *testing.T) {
	s := newSampler(t, &countingSource{})

	for _, interval := range []time.Duration{0, -time.Second} {
		err := s.Start(interval)

		var cfgErr *models.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "interval", cfgErr.Field)
	}

	assert.False(t, s.Running())
}

func TestSampler_SetInterval(t *testing.T) {
	s := newSampler(t, &countingSource{})

	var cfgErr *models.ConfigError
	require.ErrorAs(t, s.SetInterval(0), &cfgErr)

	require.NoError(t, s.SetInterval(3*time.Second))
	assert.Equal(t, 3*time.Second, s.Interval())
}

func TestSampler_RotationAfterNFetches(t *testing.T) {
	src := newMockSource(t)

	const n = 5

	for i := 1; i <= n; i++ {
		src.EXPECT().Fetch(gomock.Any()).Return(models.Readings{"cpu": float64(i * 10)}, nil)
	}

	s := newSampler(t, src)
	ctx := context.Background()

	for i := 1; i <= n; i++ {
		snap, err := s.RefreshNow(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), snap.Generation)

		state := s.State()
		assert.Same(t, snap, state.Current)

		if i == 1 {
			assert.Nil(t, state.Previous)
			continue
		}

		require.NotNil(t, state.Previous)
		assert.Equal(t, uint64(i-1), state.Previous.Generation)

		v, ok := state.Previous.Value("cpu")
		require.True(t, ok)
		assert.InDelta(t, float64((i-1)*10), v, 1e-9)
	}
}

func TestSampler_FailureKeepsLastGoodSnapshot(t *testing.T) {
	src := newMockSource(t)

	gomock.InOrder(
		src.EXPECT().Fetch(gomock.Any()).Return(models.Readings{"cpu": 50}, nil),
		src.EXPECT().Fetch(gomock.Any()).Return(models.Readings{"cpu": 80, "mem": 40}, nil),
		src.EXPECT().Fetch(gomock.Any()).Return(nil, errUnreachable),
	)

	var events []Event

	var mu sync.Mutex

	s := newSampler(t, src, WithListener(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}))

	ctx := context.Background()

	_, err := s.RefreshNow(ctx)
	require.NoError(t, err)

	_, err = s.RefreshNow(ctx)
	require.NoError(t, err)

	before := s.State()
	require.True(t, before.Health.Connected)

	_, err = s.RefreshNow(ctx)

	var acqErr *models.AcquisitionError
	require.ErrorAs(t, err, &acqErr)
	assert.Equal(t, "mock", acqErr.Source)
	require.ErrorIs(t, err, errUnreachable)

	after := s.State()
	assert.False(t, after.Health.Connected)
	assert.Equal(t, before.Health.LastUpdate, after.Health.LastUpdate)
	assert.Same(t, before.Current, after.Current)
	assert.Same(t, before.Previous, after.Previous)
	assert.Equal(t, 1, after.Health.ConsecutiveFailures)
	assert.Contains(t, after.Health.LastError, "connection refused")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(events) == 3
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, EventSample, events[0].Kind)
	assert.Equal(t, EventFailure, events[2].Kind)
	assert.True(t, events[2].Manual)
}

func TestSampler_RefreshNowCoalesces(t *testing.T) {
	src := newGatedSource()
	src.value = 42
	s := newSampler(t, src)

	ctx := context.Background()

	type result struct {
		snap *models.MetricSnapshot
		err  error
	}

	results := make(chan result, 2)

	go func() {
		snap, err := s.RefreshNow(ctx)
		results <- result{snap, err}
	}()

	<-src.started

	go func() {
		snap, err := s.RefreshNow(ctx)
		results <- result{snap, err}
	}()

	// Give the second caller time to join the in-flight fetch.
	time.Sleep(20 * time.Millisecond)
	close(src.release)

	first := <-results
	second := <-results

	require.NoError(t, first.err)
	require.NoError(t, second.err)
	assert.Same(t, first.snap, second.snap)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestSampler_StopDiscardsInFlightFetch(t *testing.T) {
	src := newGatedSource()
	s := newSampler(t, src)

	errCh := make(chan error, 1)

	go func() {
		_, err := s.RefreshNow(context.Background())
		errCh <- err
	}()

	<-src.started
	s.Stop()
	close(src.release)

	err := <-errCh
	require.ErrorIs(t, err, models.ErrFetchDiscarded)

	state := s.State()
	assert.Nil(t, state.Current)
	assert.False(t, state.Health.Connected)
	assert.True(t, state.Health.LastUpdate.IsZero())
}

func TestSampler_RestartFetchesOnceDiscardedFetchDrains(t *testing.T) {
	release := make(chan struct{})

	var calls atomic.Int32

	src := sourceFunc(func(context.Context) (models.Readings, error) {
		// the first fetch ignores cancellation and outlives Stop
		if calls.Add(1) == 1 {
			<-release
		}

		return models.Readings{"cpu": 1}, nil
	})

	s := newSampler(t, src)
	require.NoError(t, s.Start(time.Hour))

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	s.Stop()
	require.NoError(t, s.Start(time.Hour))
	assert.Equal(t, int32(1), calls.Load())

	close(release)

	require.Eventually(t, func() bool {
		return s.State().Current != nil
	}, time.Second, time.Millisecond)

	assert.Equal(t, uint64(1), s.State().Current.Generation)
	assert.Equal(t, int32(2), calls.Load())
	assert.True(t, s.Running())
}

func TestSampler_RefreshAfterStopDoesNotResurrectSchedule(t *testing.T) {
	src := &countingSource{}
	s := newSampler(t, src)

	require.NoError(t, s.Start(time.Hour))
	s.Stop()
	s.Stop()

	snap, err := s.RefreshNow(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.False(t, s.Running())
}

func TestSampler_StopWhenNotRunning(t *testing.T) {
	s := newSampler(t, &countingSource{})

	assert.NotPanics(t, s.Stop)
	assert.False(t, s.Running())
}

func TestSampler_ScheduleSurvivesFailures(t *testing.T) {
	src := newMockSource(t)

	var calls atomic.Int32

	src.EXPECT().Fetch(gomock.Any()).DoAndReturn(func(context.Context) (models.Readings, error) {
		if calls.Add(1) <= 2 {
			return nil, errUnreachable
		}

		return models.Readings{"cpu": 1}, nil
	}).AnyTimes()

	s := newSampler(t, src)
	require.NoError(t, s.Start(10*time.Millisecond))

	require.Eventually(t, func() bool {
		return s.State().Current != nil
	}, 2*time.Second, 5*time.Millisecond)

	assert.True(t, s.State().Health.Connected)
	assert.True(t, s.Running())
}

func TestSampler_StartReplacesSchedule(t *testing.T) {
	src := &countingSource{}
	s := newSampler(t, src)

	require.NoError(t, s.Start(time.Hour))
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, s.Start(5*time.Millisecond))
	require.Eventually(t, func() bool { return src.calls.Load() >= 3 }, 2*time.Second, time.Millisecond)

	require.NoError(t, s.Start(time.Hour))

	// Let any fetch started by the previous schedule settle.
	time.Sleep(20 * time.Millisecond)

	settled := src.calls.Load()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, src.calls.Load())
	assert.Equal(t, time.Hour, s.Interval())
}

func TestSampler_SkipWhileDisconnectedWithoutProbeKeepsPolling(t *testing.T) {
	src := newMockSource(t)

	gomock.InOrder(
		src.EXPECT().Fetch(gomock.Any()).Return(nil, errUnreachable),
		src.EXPECT().Fetch(gomock.Any()).Return(models.Readings{"cpu": 1}, nil).MinTimes(1),
	)

	s := newSampler(t, src, WithSkipWhileDisconnected(true))
	require.NoError(t, s.Start(5*time.Millisecond))

	require.Eventually(t, func() bool {
		state := s.State()

		return state.Health.Connected && state.Current != nil
	}, time.Second, time.Millisecond)

	assert.Zero(t, s.State().Health.ConsecutiveFailures)
}

func TestSampler_SkipWhileProbeReportsDown(t *testing.T) {
	var probeUp atomic.Bool

	src := &countingSource{}
	s := newSampler(t, src,
		WithSkipWhileDisconnected(true),
		WithProbe(probeFunc(func(context.Context) error {
			if probeUp.Load() {
				return nil
			}

			return errUnreachable
		}), 5*time.Millisecond),
	)

	require.NoError(t, s.StartProbe())

	require.Eventually(t, func() bool {
		return !s.State().Health.LastProbe.IsZero()
	}, time.Second, time.Millisecond)

	require.NoError(t, s.Start(5*time.Millisecond))

	// the start fetch is skipped as well as every scheduled tick
	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, src.calls.Load())
	assert.False(t, s.State().Health.Connected)

	probeUp.Store(true)

	require.Eventually(t, func() bool {
		return s.State().Current != nil
	}, time.Second, time.Millisecond)
}

func TestSampler_ProbeUpdatesConnection(t *testing.T) {
	ctrl := gomock.NewController(t)
	probe := NewMockProbe(ctrl)

	var fail atomic.Bool

	fail.Store(true)

	probe.EXPECT().Probe(gomock.Any()).DoAndReturn(func(context.Context) error {
		if fail.Load() {
			return errUnreachable
		}

		return nil
	}).AnyTimes()

	src := &countingSource{}
	s := newSampler(t, src, WithProbe(probe, 5*time.Millisecond))

	_, err := s.RefreshNow(context.Background())
	require.NoError(t, err)

	good := s.State()
	require.True(t, good.Health.Connected)

	require.NoError(t, s.StartProbe())

	require.Eventually(t, func() bool {
		return !s.State().Health.Connected
	}, time.Second, time.Millisecond)

	bad := s.State()
	assert.Same(t, good.Current, bad.Current)
	assert.Equal(t, good.Health.LastUpdate, bad.Health.LastUpdate)
	assert.Contains(t, bad.Health.LastError, "probe")

	fail.Store(false)

	require.Eventually(t, func() bool {
		return s.State().Health.Connected
	}, time.Second, time.Millisecond)

	assert.Empty(t, s.State().Health.LastError)

	s.StopProbe()
}

func TestSampler_ProbeDoesNotOverrideFresherFetch(t *testing.T) {
	probeStarted := make(chan struct{})
	probeRelease := make(chan struct{})

	var first atomic.Bool

	first.Store(true)

	probe := probeFunc(func(context.Context) error {
		if !first.CompareAndSwap(true, false) {
			return nil
		}

		close(probeStarted)
		<-probeRelease

		return errUnreachable
	})

	s := newSampler(t, &countingSource{}, WithProbe(probe, 5*time.Millisecond), WithFetchTimeout(time.Hour))
	require.NoError(t, s.StartProbe())

	<-probeStarted

	_, err := s.RefreshNow(context.Background())
	require.NoError(t, err)

	close(probeRelease)

	require.Eventually(t, func() bool {
		return !s.State().Health.LastProbe.IsZero()
	}, time.Second, time.Millisecond)

	assert.True(t, s.State().Health.Connected)
}

func TestSampler_RestoreKeepsAdjacentGenerations(t *testing.T) {
	s := newSampler(t, &countingSource{})

	cur := models.NewSnapshot(7, time.Unix(70, 0), models.Readings{"n": 7})
	prev := models.NewSnapshot(5, time.Unix(50, 0), models.Readings{"n": 5})

	s.Restore(cur, prev)

	state := s.State()
	assert.Same(t, cur, state.Current)
	assert.Nil(t, state.Previous)
	assert.Equal(t, time.Unix(70, 0), state.Health.LastUpdate)

	snap, err := s.RefreshNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(8), snap.Generation)
	assert.Same(t, cur, s.State().Previous)
}

func TestSampler_ClosedRejectsWork(t *testing.T) {
	s := New(&countingSource{})
	s.Close()
	s.Close()

	_, err := s.RefreshNow(context.Background())
	require.ErrorIs(t, err, models.ErrSamplerClosed)
	require.ErrorIs(t, s.Start(time.Second), models.ErrSamplerClosed)
}

type sourceFunc func(ctx context.Context) (models.Readings, error)

func (f sourceFunc) Fetch(ctx context.Context) (models.Readings, error) { return f(ctx) }

func (sourceFunc) Name() string { return "func" }

type probeFunc func(ctx context.Context) error

func (f probeFunc) Probe(ctx context.Context) error { return f(ctx) }
