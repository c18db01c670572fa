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

// Package engine composes the sampler, trend calculator and view model
// builder, and publishes a View after every fetch and every probe-driven
// change of connection state.
package engine

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/mfreeman451/systempulse/pkg/models"
	"github.com/mfreeman451/systempulse/pkg/sampler"
	"github.com/mfreeman451/systempulse/pkg/trend"
	"github.com/mfreeman451/systempulse/pkg/viewmodel"
)

type Engine struct {
	sampler     *sampler.Sampler
	catalog     []models.IndicatorDefinition
	calc        trend.Calculator
	allowed     []time.Duration
	observers   []Observer
	samplerOpts []sampler.Option
	now         func() time.Time

	// settingsMu serializes schedule changes so the sampler always matches
	// interval and autoRefresh. It is taken before mu, never inside it.
	settingsMu sync.Mutex

	// pubMu serializes publications so the stored view is always built from
	// the latest sampler state.
	pubMu         sync.Mutex
	lastConnected bool

	mu          sync.RWMutex
	view        models.View
	interval    time.Duration
	autoRefresh bool
	subs        map[uint64]chan models.View
	nextSub     uint64
	stopped     bool
}

// New validates cfg and builds an Engine around src. The sampler is created
// but nothing is scheduled until Start.
func New(src sampler.Source, cfg *Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	calc, err := trend.NewCalculator(cfg.DeadBand)
	if err != nil {
		return nil, err
	}

	allowed, interval := cfg.schedule()

	e := &Engine{
		catalog:     slices.Clone(cfg.Catalog),
		calc:        calc,
		allowed:     slices.Clone(allowed),
		now:         time.Now,
		interval:    interval,
		autoRefresh: cfg.AutoRefresh,
		subs:        make(map[uint64]chan models.View),
	}

	for _, opt := range opts {
		opt(e)
	}

	samplerOpts := append(slices.Clone(e.samplerOpts), sampler.WithListener(e.onEvent))
	e.sampler = sampler.New(src, samplerOpts...)
	e.view = e.buildView(e.sampler.State())

	return e, nil
}

// Validate checks the catalog, dead band and interval without modifying cfg.
func (c *Config) Validate() error {
	if err := viewmodel.ValidateCatalog(c.Catalog); err != nil {
		return err
	}

	if _, err := trend.NewCalculator(c.DeadBand); err != nil {
		return err
	}

	allowed, interval := c.schedule()
	if !slices.Contains(allowed, interval) {
		return intervalError(interval, allowed)
	}

	return nil
}

// schedule returns the allowed set and interval with defaults applied.
func (c *Config) schedule() ([]time.Duration, time.Duration) {
	allowed := c.AllowedIntervals
	if len(allowed) == 0 {
		allowed = DefaultAllowedIntervals()
	}

	interval := c.Interval
	if interval == 0 {
		interval = defaultInterval
	}

	return allowed, interval
}

// Sampler exposes the underlying sampler, e.g. to restore a checkpoint.
func (e *Engine) Sampler() *sampler.Sampler {
	return e.sampler
}

// Start arms the schedule if auto-refresh is on and starts the probe loop.
func (e *Engine) Start(_ context.Context) error {
	e.settingsMu.Lock()

	e.mu.RLock()
	interval, auto, stopped := e.interval, e.autoRefresh, e.stopped
	e.mu.RUnlock()

	if stopped {
		e.settingsMu.Unlock()

		return errEngineStopped
	}

	if auto {
		if err := e.sampler.Start(interval); err != nil {
			e.settingsMu.Unlock()

			return err
		}
	}

	e.settingsMu.Unlock()

	if err := e.sampler.StartProbe(); err != nil {
		return err
	}

	e.publish(nil)

	return nil
}

// Stop closes the sampler and every subscriber channel.
func (e *Engine) Stop(_ context.Context) error {
	e.settingsMu.Lock()
	defer e.settingsMu.Unlock()

	e.sampler.Close()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return nil
	}

	e.stopped = true

	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}

	log.Printf("Engine stopped")

	return nil
}

// View returns the most recently published view.
func (e *Engine) View() models.View {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.view
}

// Restore seeds the sampler with checkpointed snapshots and publishes the
// resulting view with a nil Event.
func (e *Engine) Restore(current, previous *models.MetricSnapshot) {
	if current == nil {
		return
	}

	e.sampler.Restore(current, previous)
	e.publish(nil)
}

// Ready reports whether at least one sample has been taken.
func (e *Engine) Ready() bool {
	return e.sampler.State().Current != nil
}

// Catalog returns a copy of the indicator catalog.
func (e *Engine) Catalog() []models.IndicatorDefinition {
	return slices.Clone(e.catalog)
}

// Settings returns the operator-adjustable configuration.
func (e *Engine) Settings() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return Settings{
		Interval:         e.interval,
		AutoRefresh:      e.autoRefresh,
		AllowedIntervals: slices.Clone(e.allowed),
	}
}

// SetInterval changes the polling period. Only allowed intervals are
// accepted; anything else is a ConfigError and leaves the schedule as is.
func (e *Engine) SetInterval(interval time.Duration) error {
	if !slices.Contains(e.allowed, interval) {
		return intervalError(interval, e.allowed)
	}

	e.settingsMu.Lock()

	if err := e.sampler.SetInterval(interval); err != nil {
		e.settingsMu.Unlock()

		return err
	}

	e.mu.Lock()
	e.interval = interval
	e.mu.Unlock()

	e.settingsMu.Unlock()

	log.Printf("Polling interval set to %v", interval)

	e.publish(nil)

	return nil
}

// SetAutoRefresh turns the polling schedule on or off.
func (e *Engine) SetAutoRefresh(enabled bool) error {
	e.settingsMu.Lock()

	e.mu.RLock()
	current, interval, stopped := e.autoRefresh, e.interval, e.stopped
	e.mu.RUnlock()

	if stopped {
		e.settingsMu.Unlock()

		return errEngineStopped
	}

	if current == enabled {
		e.settingsMu.Unlock()

		return nil
	}

	if enabled {
		if err := e.sampler.Start(interval); err != nil {
			e.settingsMu.Unlock()

			return err
		}
	} else {
		e.sampler.Stop()
	}

	e.mu.Lock()
	e.autoRefresh = enabled
	e.mu.Unlock()

	e.settingsMu.Unlock()

	log.Printf("Auto-refresh set to %v", enabled)

	e.publish(nil)

	return nil
}

// RefreshNow fetches immediately and returns the resulting view. On failure
// the returned view still carries the last good data.
func (e *Engine) RefreshNow(ctx context.Context) (models.View, error) {
	_, err := e.sampler.RefreshNow(ctx)

	return e.View(), err
}

// Subscribe returns a channel receiving every published view, starting with
// the current one. When the subscriber falls behind the oldest pending view
// is dropped. The returned function unsubscribes.
func (e *Engine) Subscribe(buffer int) (<-chan models.View, func()) {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}

	ch := make(chan models.View, buffer)

	e.mu.Lock()

	if e.stopped {
		e.mu.Unlock()
		close(ch)

		return ch, func() {}
	}

	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	ch <- e.view

	e.mu.Unlock()

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()

			if c, ok := e.subs[id]; ok {
				close(c)
				delete(e.subs, id)
			}
		})
	}
}

func (e *Engine) onEvent(ev sampler.Event) {
	if ev.Kind == sampler.EventProbe {
		e.pubMu.Lock()
		changed := ev.Health.Connected != e.lastConnected
		e.pubMu.Unlock()

		if !changed {
			return
		}
	}

	e.publish(&ev)
}

func (e *Engine) publish(ev *sampler.Event) {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()

	state := e.sampler.State()
	view := e.buildView(state)
	e.lastConnected = state.Health.Connected

	e.mu.Lock()

	e.view = view

	for _, ch := range e.subs {
		offer(ch, view)
	}

	e.mu.Unlock()

	update := Update{Event: ev, View: view, State: state}

	for _, o := range e.observers {
		o.Observe(update)
	}
}

// offer delivers v without blocking, evicting the oldest pending view if the
// channel is full. Callers hold e.mu.
func offer(ch chan models.View, v models.View) {
	for {
		select {
		case ch <- v:
			return
		default:
		}

		select {
		case <-ch:
		default:
		}
	}
}

func (e *Engine) buildView(state sampler.State) models.View {
	e.mu.RLock()
	interval, auto := e.interval, e.autoRefresh
	e.mu.RUnlock()

	view := models.View{
		Indicators:  viewmodel.Build(e.catalog, state.Current, state.Previous, e.calc),
		Health:      state.Health,
		Interval:    interval.String(),
		AutoRefresh: auto,
	}

	if state.Current != nil {
		view.FetchedAt = state.Current.FetchedAt
		view.Generation = state.Current.Generation
	}

	view.Stale = isStale(state.Health, interval, e.now())

	return view
}

// isStale reports whether data exists, the source is disconnected and the
// last good fetch is older than two polling intervals.
func isStale(h models.ConnectionHealth, interval time.Duration, now time.Time) bool {
	if h.Connected || h.LastUpdate.IsZero() {
		return false
	}

	return now.Sub(h.LastUpdate) > staleFactor*interval
}

func intervalError(interval time.Duration, allowed []time.Duration) error {
	if len(allowed) == 0 {
		return &models.ConfigError{Field: "interval", Reason: errNoAllowedValues.Error()}
	}

	return &models.ConfigError{
		Field:  "interval",
		Reason: fmt.Sprintf("%v is not one of %v", interval, allowed),
	}
}

// ParseInterval parses a duration string such as "5s" and checks it against
// the allowed set.
func (e *Engine) ParseInterval(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, &models.ConfigError{Field: "interval", Reason: err.Error()}
	}

	if !slices.Contains(e.allowed, d) {
		return 0, intervalError(d, e.allowed)
	}

	return d, nil
}
