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
	"time"

	"github.com/mfreeman451/systempulse/pkg/models"
)

const (
	defaultFetchTimeout = 10 * time.Second
)

// EventKind identifies what produced an Event.
type EventKind int

const (
	EventSample EventKind = iota
	EventFailure
	EventProbe
)

func (k EventKind) String() string {
	switch k {
	case EventSample:
		return "sample"
	case EventFailure:
		return "failure"
	case EventProbe:
		return "probe"
	default:
		return "unknown"
	}
}

// Event is delivered to the listener after state has been updated.
type Event struct {
	Kind     EventKind
	Manual   bool
	Snapshot *models.MetricSnapshot
	Health   models.ConnectionHealth
	Err      error
}

// State is a consistent copy of the sampler's shared state.
type State struct {
	Current  *models.MetricSnapshot
	Previous *models.MetricSnapshot
	Health   models.ConnectionHealth
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithProbe enables the reachability probe loop.
func WithProbe(p Probe, interval time.Duration) Option {
	return func(s *Sampler) {
		s.probe = p
		s.probeInterval = interval
	}
}

// WithFetchTimeout bounds a single fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithListener registers a callback invoked after every fetch completion and
// every applied probe result. It runs outside the sampler's lock and before
// RefreshNow callers are released, so it must not call RefreshNow.
func WithListener(fn func(Event)) Option {
	return func(s *Sampler) {
		s.listener = fn
	}
}

// WithSkipWhileDisconnected skips scheduled ticks while the probe reports the
// source unreachable. Without a probe it has no effect. Manual refreshes and
// the probe still run.
func WithSkipWhileDisconnected(skip bool) Option {
	return func(s *Sampler) {
		s.skipWhileDisconnected = skip
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Sampler) {
		if now != nil {
			s.now = now
		}
	}
}

type flight struct {
	gen    uint64
	manual bool
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	snap   *models.MetricSnapshot
	err    error
}
