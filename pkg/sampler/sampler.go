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

// Package sampler polls a metrics source on a schedule and on demand, keeps
// the current and previous snapshots, and tracks connection health.
package sampler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/mfreeman451/systempulse/pkg/models"
)

// Sampler drives acquisition of snapshots from a Source.
//
// A single mutex guards the snapshot pair, connection health, the schedule and
// the in-flight fetch. Fetch I/O always happens outside the lock.
type Sampler struct {
	source                Source
	probe                 Probe
	probeInterval         time.Duration
	fetchTimeout          time.Duration
	listener              func(Event)
	skipWhileDisconnected bool
	now                   func() time.Time

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	mu        sync.RWMutex
	current   *models.MetricSnapshot
	previous  *models.MetricSnapshot
	lastGen   uint64
	health    models.ConnectionHealth
	interval  time.Duration
	loopStop  chan struct{}
	probeStop chan struct{}
	fetchGen  uint64
	inflight  *flight
	pending   chan struct{}
	closed    bool
}

// New creates a Sampler for src. Nothing runs until Start or StartProbe.
func New(src Source, opts ...Option) *Sampler {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Sampler{
		source:       src,
		fetchTimeout: defaultFetchTimeout,
		now:          time.Now,
		baseCtx:      ctx,
		baseCancel:   cancel,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start arms the polling schedule. Calling Start while running replaces the
// schedule; only a start from the stopped state fetches immediately.
func (s *Sampler) Start(interval time.Duration) error {
	if interval <= 0 {
		return &models.ConfigError{Field: "interval", Reason: "must be greater than zero"}
	}

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()

		return models.ErrSamplerClosed
	}

	fresh := s.loopStop == nil
	if !fresh {
		close(s.loopStop)
	}

	stop := make(chan struct{})
	s.loopStop = stop
	s.interval = interval

	s.mu.Unlock()

	log.Printf("Starting sampler for %s with interval %v", s.source.Name(), interval)

	s.wg.Add(1)

	go s.run(stop, interval)

	if fresh {
		s.tick(stop)
	}

	return nil
}

// Stop cancels the schedule. Any fetch still in flight is cancelled and its
// result discarded. Stop is a no-op for the schedule when it is not running.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loopStop != nil {
		close(s.loopStop)
		s.loopStop = nil

		log.Printf("Stopped sampler for %s", s.source.Name())
	}

	s.pending = nil
	s.fetchGen++

	if s.inflight != nil {
		s.inflight.cancel()
	}
}

// SetInterval changes the polling period. The tick already armed keeps its
// deadline; the new period applies from the next one.
func (s *Sampler) SetInterval(interval time.Duration) error {
	if interval <= 0 {
		return &models.ConfigError{Field: "interval", Reason: "must be greater than zero"}
	}

	s.mu.Lock()
	s.interval = interval
	s.mu.Unlock()

	return nil
}

// Interval returns the configured polling period.
func (s *Sampler) Interval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.interval
}

// Running reports whether the schedule is armed.
func (s *Sampler) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loopStop != nil
}

// RefreshNow fetches immediately without moving the schedule. When a fetch is
// already in flight the call waits for it and returns its outcome instead of
// starting a second one.
func (s *Sampler) RefreshNow(ctx context.Context) (*models.MetricSnapshot, error) {
	for {
		s.mu.Lock()

		if s.closed {
			s.mu.Unlock()

			return nil, models.ErrSamplerClosed
		}

		f := s.inflight

		// A fetch superseded by Stop is still running; wait for it to drain so
		// that two fetches never overlap.
		if f != nil && f.gen != s.fetchGen {
			s.mu.Unlock()

			select {
			case <-f.done:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if f == nil {
			f = s.beginLocked(true)

			go s.execute(f)
		}

		s.mu.Unlock()

		select {
		case <-f.done:
			return f.snap, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// State returns the snapshot pair and health as one consistent copy.
func (s *Sampler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return State{
		Current:  s.current,
		Previous: s.previous,
		Health:   s.health,
	}
}

// Restore seeds the snapshot pair, typically from a checkpoint. previous is
// dropped unless it is the generation immediately before current.
func (s *Sampler) Restore(current, previous *models.MetricSnapshot) {
	if current == nil {
		return
	}

	if previous != nil && previous.Generation+1 != current.Generation {
		previous = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = current
	s.previous = previous
	s.lastGen = current.Generation
	s.health.LastUpdate = current.FetchedAt
}

// Close stops the schedule and the probe for good.
func (s *Sampler) Close() {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()

		return
	}

	s.closed = true
	s.pending = nil

	if s.loopStop != nil {
		close(s.loopStop)
		s.loopStop = nil
	}

	if s.probeStop != nil {
		close(s.probeStop)
		s.probeStop = nil
	}

	s.fetchGen++

	if s.inflight != nil {
		s.inflight.cancel()
	}

	s.mu.Unlock()

	s.baseCancel()
	s.wg.Wait()
}

func (s *Sampler) run(stop chan struct{}, interval time.Duration) {
	defer s.wg.Done()

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
			s.tick(stop)
			timer.Reset(s.Interval())
		}
	}
}

func (s *Sampler) tick(stop chan struct{}) {
	s.mu.Lock()
	f := s.tickLocked(stop)
	s.mu.Unlock()

	if f != nil {
		go s.execute(f)
	}
}

// tickLocked begins a scheduled fetch unless the loop was superseded, a fetch
// is already in flight, or the disconnected policy says to skip. A tick that
// lands on a fetch discarded by Stop is deferred until that fetch drains.
func (s *Sampler) tickLocked(stop chan struct{}) *flight {
	if s.loopStop != stop {
		return nil
	}

	if s.skipWhileDisconnected && s.probeDisconnectedLocked() {
		return nil
	}

	if f := s.inflight; f != nil {
		if f.gen != s.fetchGen {
			s.pending = stop
		}

		return nil
	}

	return s.beginLocked(false)
}

// probeDisconnectedLocked reports whether the probe has seen the source and
// it is currently down. Fetch failures alone never gate the schedule.
func (s *Sampler) probeDisconnectedLocked() bool {
	return !s.health.Connected && !s.health.LastProbe.IsZero()
}

func (s *Sampler) beginLocked(manual bool) *flight {
	ctx, cancel := context.WithTimeout(s.baseCtx, s.fetchTimeout)

	f := &flight{
		gen:    s.fetchGen,
		manual: manual,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.inflight = f

	return f
}

func (s *Sampler) execute(f *flight) {
	readings, err := s.source.Fetch(f.ctx)
	f.cancel()

	now := s.now()

	s.mu.Lock()

	if s.inflight == f {
		s.inflight = nil
	}

	if f.gen != s.fetchGen {
		var next *flight

		if stop := s.pending; stop != nil && s.inflight == nil {
			s.pending = nil
			next = s.tickLocked(stop)
		}

		s.mu.Unlock()

		f.err = models.ErrFetchDiscarded
		close(f.done)

		if next != nil {
			go s.execute(next)
		}

		return
	}

	var ev Event

	if err != nil {
		acqErr := &models.AcquisitionError{Source: s.source.Name(), Err: err}

		s.health.Connected = false
		s.health.LastError = acqErr.Error()
		s.health.ConsecutiveFailures++

		f.err = acqErr
		ev = Event{Kind: EventFailure, Manual: f.manual, Health: s.health, Err: acqErr}
	} else {
		s.lastGen++
		snap := models.NewSnapshot(s.lastGen, now, readings)

		s.previous = s.current
		s.current = snap

		s.health.Connected = true
		s.health.LastUpdate = now
		s.health.LastError = ""
		s.health.ConsecutiveFailures = 0

		f.snap = snap
		ev = Event{Kind: EventSample, Manual: f.manual, Snapshot: snap, Health: s.health}
	}

	s.mu.Unlock()

	if ev.Err != nil && !errors.Is(ev.Err, context.Canceled) {
		log.Printf("Fetch from %s failed: %v", s.source.Name(), ev.Err)
	}

	// Waiters are released only after the listener has seen the outcome.
	s.emit(ev)
	close(f.done)
}

func (s *Sampler) emit(ev Event) {
	if s.listener != nil {
		s.listener(ev)
	}
}
