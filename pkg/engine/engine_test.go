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

package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mfreeman451/systempulse/pkg/models"
	"github.com/mfreeman451/systempulse/pkg/sampler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("upstream down")

// scriptedSource replays a fixed list of responses, repeating the last one.
type scriptedSource struct {
	mu    sync.Mutex
	steps []step
	calls int
}

type step struct {
	readings models.Readings
	err      error
}

func (s *scriptedSource) Fetch(context.Context) (models.Readings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := min(s.calls, len(s.steps)-1)
	s.calls++

	return s.steps[i].readings, s.steps[i].err
}

func (*scriptedSource) Name() string { return "scripted" }

func testCatalog() []models.IndicatorDefinition {
	return []models.IndicatorDefinition{
		{Key: "cpu", Name: "CPU", Unit: "%", Precision: 1},
		{Key: "mem", Name: "Memory", Unit: "%", Precision: 1},
	}
}

func newEngine(t *testing.T, src sampler.Source, opts ...Option) *Engine {
	t.Helper()

	e, err := New(src, &Config{Catalog: testCatalog()}, opts...)
	require.NoError(t, err)

	t.Cleanup(func() { _ = e.Stop(context.Background()) })

	return e
}

func TestNew_Validation(t *testing.T) {
	src := &scriptedSource{steps: []step{{readings: models.Readings{}}}}

	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{
			name:  "empty catalog",
			cfg:   Config{},
			field: "catalog",
		},
		{
			name:  "interval outside allowed set",
			cfg:   Config{Catalog: testCatalog(), Interval: 7 * time.Second},
			field: "interval",
		},
		{
			name:  "negative dead band",
			cfg:   Config{Catalog: testCatalog(), DeadBand: -1},
			field: "dead_band",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(src, &tt.cfg)

			var cfgErr *models.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestEngine_InitialView(t *testing.T) {
	e := newEngine(t, &scriptedSource{steps: []step{{readings: models.Readings{}}}})

	view := e.View()
	require.Len(t, view.Indicators, 2)
	assert.Equal(t, "5s", view.Interval)
	assert.False(t, view.Health.Connected)
	assert.False(t, view.Stale)
	assert.False(t, e.Ready())

	for _, ind := range view.Indicators {
		assert.Zero(t, ind.Value)
		assert.Equal(t, models.DirectionStable, ind.Trend.Direction)
	}
}

func TestEngine_RefreshNowBuildsTrends(t *testing.T) {
	src := &scriptedSource{steps: []step{
		{readings: models.Readings{"cpu": 50, "mem": 40}},
		{readings: models.Readings{"cpu": 80, "mem": 40}},
	}}
	e := newEngine(t, src)
	ctx := context.Background()

	_, err := e.RefreshNow(ctx)
	require.NoError(t, err)

	view, err := e.RefreshNow(ctx)
	require.NoError(t, err)

	require.Len(t, view.Indicators, 2)

	cpu := view.Indicators[0]
	assert.Equal(t, "cpu", cpu.Key)
	assert.InDelta(t, 80, cpu.Value, 1e-9)
	assert.Equal(t, "80.0", cpu.Display)
	assert.Equal(t, models.DirectionUp, cpu.Trend.Direction)
	assert.InDelta(t, 60, cpu.Trend.ChangePercent, 1e-9)

	mem := view.Indicators[1]
	assert.Equal(t, models.DirectionStable, mem.Trend.Direction)
	assert.InDelta(t, 0, mem.Trend.ChangePercent, 1e-9)

	assert.Equal(t, uint64(2), view.Generation)
	assert.True(t, view.Health.Connected)
	assert.True(t, e.Ready())
}

func TestEngine_RefreshFailureKeepsLastGoodView(t *testing.T) {
	src := &scriptedSource{steps: []step{
		{readings: models.Readings{"cpu": 10}},
		{err: errDown},
	}}
	e := newEngine(t, src)

	good, err := e.RefreshNow(context.Background())
	require.NoError(t, err)

	bad, err := e.RefreshNow(context.Background())

	var acqErr *models.AcquisitionError
	require.ErrorAs(t, err, &acqErr)

	assert.False(t, bad.Health.Connected)
	assert.Equal(t, good.Indicators, bad.Indicators)
	assert.Equal(t, good.Health.LastUpdate, bad.Health.LastUpdate)
	assert.Contains(t, bad.Health.LastError, "upstream down")
}

func TestEngine_SubscribeReceivesPublications(t *testing.T) {
	src := &scriptedSource{steps: []step{{readings: models.Readings{"cpu": 1}}}}
	e := newEngine(t, src)

	ch, cancel := e.Subscribe(4)
	defer cancel()

	initial := <-ch
	assert.Zero(t, initial.Generation)

	_, err := e.RefreshNow(context.Background())
	require.NoError(t, err)

	select {
	case v := <-ch:
		assert.Equal(t, uint64(1), v.Generation)
	case <-time.After(time.Second):
		t.Fatal("no view published after refresh")
	}
}

func TestEngine_SlowSubscriberGetsLatest(t *testing.T) {
	src := &scriptedSource{steps: []step{{readings: models.Readings{"cpu": 1}}}}
	e := newEngine(t, src)

	ch, cancel := e.Subscribe(1)
	defer cancel()

	for range 3 {
		_, err := e.RefreshNow(context.Background())
		require.NoError(t, err)
	}

	v := <-ch
	assert.Equal(t, uint64(3), v.Generation)
}

func TestEngine_UnsubscribeClosesChannel(t *testing.T) {
	e := newEngine(t, &scriptedSource{steps: []step{{readings: models.Readings{}}}})

	ch, cancel := e.Subscribe(1)
	<-ch

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
}

func TestEngine_StopClosesSubscribers(t *testing.T) {
	e, err := New(&scriptedSource{steps: []step{{readings: models.Readings{}}}}, &Config{Catalog: testCatalog()})
	require.NoError(t, err)

	ch, cancel := e.Subscribe(1)
	defer cancel()

	<-ch

	require.NoError(t, e.Stop(context.Background()))
	require.NoError(t, e.Stop(context.Background()))

	_, ok := <-ch
	assert.False(t, ok)

	late, _ := e.Subscribe(1)
	_, ok = <-late
	assert.False(t, ok)

	require.ErrorIs(t, e.Start(context.Background()), errEngineStopped)
}

func TestEngine_SetInterval(t *testing.T) {
	e := newEngine(t, &scriptedSource{steps: []step{{readings: models.Readings{}}}})

	err := e.SetInterval(7 * time.Second)

	var cfgErr *models.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 5*time.Second, e.Settings().Interval)

	require.NoError(t, e.SetInterval(10*time.Second))
	assert.Equal(t, 10*time.Second, e.Settings().Interval)
	assert.Equal(t, "10s", e.View().Interval)
	assert.Equal(t, 10*time.Second, e.Sampler().Interval())
}

func TestEngine_ParseInterval(t *testing.T) {
	e := newEngine(t, &scriptedSource{steps: []step{{readings: models.Readings{}}}})

	d, err := e.ParseInterval("30s")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)

	_, err = e.ParseInterval("soon")
	require.Error(t, err)

	_, err = e.ParseInterval("2m")
	require.Error(t, err)
}

func TestEngine_AutoRefreshToggle(t *testing.T) {
	src := &scriptedSource{steps: []step{{readings: models.Readings{"cpu": 1}}}}

	e, err := New(src, &Config{Catalog: testCatalog(), Interval: time.Second, AutoRefresh: true})
	require.NoError(t, err)

	defer func() { _ = e.Stop(context.Background()) }()

	require.NoError(t, e.Start(context.Background()))
	assert.True(t, e.Sampler().Running())

	require.Eventually(t, e.Ready, time.Second, 5*time.Millisecond)

	require.NoError(t, e.SetAutoRefresh(false))
	assert.False(t, e.Sampler().Running())
	assert.False(t, e.View().AutoRefresh)

	require.NoError(t, e.SetAutoRefresh(true))
	assert.True(t, e.Sampler().Running())
	assert.True(t, e.Settings().AutoRefresh)
}

func TestEngine_ConcurrentSettingsKeepSamplerInSync(t *testing.T) {
	src := &scriptedSource{steps: []step{{readings: models.Readings{"cpu": 1}}}}
	e := newEngine(t, src)

	require.NoError(t, e.Start(context.Background()))

	intervals := []time.Duration{5 * time.Second, 10 * time.Second, 30 * time.Second}

	for round := 0; round < 50; round++ {
		var wg sync.WaitGroup

		for i := 0; i < 8; i++ {
			wg.Add(2)

			go func(enabled bool) {
				defer wg.Done()
				assert.NoError(t, e.SetAutoRefresh(enabled))
			}(i%2 == 0)

			go func(d time.Duration) {
				defer wg.Done()
				assert.NoError(t, e.SetInterval(d))
			}(intervals[i%len(intervals)])
		}

		wg.Wait()

		settings := e.Settings()
		require.Equal(t, settings.AutoRefresh, e.Sampler().Running(), "round %d", round)
		require.Equal(t, settings.Interval, e.Sampler().Interval(), "round %d", round)
	}
}

func TestEngine_ObserversSeeUpdates(t *testing.T) {
	src := &scriptedSource{steps: []step{
		{readings: models.Readings{"cpu": 1}},
		{err: errDown},
	}}

	var (
		mu      sync.Mutex
		updates []Update
	)

	obs := ObserverFunc(func(u Update) {
		mu.Lock()
		updates = append(updates, u)
		mu.Unlock()
	})

	e := newEngine(t, src, WithObserver(obs))

	_, _ = e.RefreshNow(context.Background())
	_, _ = e.RefreshNow(context.Background())
	require.NoError(t, e.SetInterval(time.Second))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(updates) == 3
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	require.NotNil(t, updates[0].Event)
	assert.Equal(t, sampler.EventSample, updates[0].Event.Kind)
	assert.NotNil(t, updates[0].State.Current)

	require.NotNil(t, updates[1].Event)
	assert.Equal(t, sampler.EventFailure, updates[1].Event.Kind)
	assert.False(t, updates[1].View.Health.Connected)

	assert.Nil(t, updates[2].Event)
	assert.Equal(t, "1s", updates[2].View.Interval)
}

func TestEngine_Restore(t *testing.T) {
	src := &scriptedSource{steps: []step{{readings: models.Readings{"cpu": 60, "mem": 10}}}}

	var published []Update

	e := newEngine(t, src, WithObserver(ObserverFunc(func(u Update) {
		published = append(published, u)
	})))

	e.Restore(nil, nil)
	assert.False(t, e.Ready())
	assert.Empty(t, published)

	at := time.Date(2025, 1, 27, 10, 0, 0, 0, time.UTC)
	e.Restore(
		models.NewSnapshot(8, at, models.Readings{"cpu": 55, "mem": 10}),
		models.NewSnapshot(7, at.Add(-5*time.Second), models.Readings{"cpu": 50, "mem": 10}),
	)

	require.True(t, e.Ready())
	require.Len(t, published, 1)
	assert.Nil(t, published[0].Event)

	view := e.View()
	assert.Equal(t, uint64(8), view.Generation)
	assert.Equal(t, models.DirectionUp, view.Indicators[0].Trend.Direction)
	assert.InDelta(t, 10.0, view.Indicators[0].Trend.ChangePercent, 1e-9)

	view, err := e.RefreshNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(9), view.Generation)
	assert.InDelta(t, 55.0, view.Indicators[0].Trend.PreviousValue, 1e-9)
}

func TestIsStale(t *testing.T) {
	now := time.Unix(1000, 0)

	tests := []struct {
		name   string
		health models.ConnectionHealth
		want   bool
	}{
		{"connected", models.ConnectionHealth{Connected: true, LastUpdate: now.Add(-time.Hour)}, false},
		{"never updated", models.ConnectionHealth{}, false},
		{"recent", models.ConnectionHealth{LastUpdate: now.Add(-5 * time.Second)}, false},
		{"two intervals old", models.ConnectionHealth{LastUpdate: now.Add(-11 * time.Second)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isStale(tt.health, 5*time.Second, now))
		})
	}
}

func TestEngine_StaleView(t *testing.T) {
	clock := time.Unix(1000, 0)

	var mu sync.Mutex

	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		return clock
	}

	src := &scriptedSource{steps: []step{
		{readings: models.Readings{"cpu": 1}},
		{err: errDown},
	}}

	e := newEngine(t, src, WithClock(now), WithSamplerOptions(sampler.WithClock(now)))

	_, err := e.RefreshNow(context.Background())
	require.NoError(t, err)

	mu.Lock()
	clock = clock.Add(time.Minute)
	mu.Unlock()

	view, err := e.RefreshNow(context.Background())
	require.Error(t, err)
	assert.True(t, view.Stale)
}
