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
	"time"

	"github.com/mfreeman451/systempulse/pkg/models"
	"github.com/mfreeman451/systempulse/pkg/sampler"
)

const (
	defaultInterval   = 5 * time.Second
	defaultBufferSize = 4
	staleFactor       = 2
)

// DefaultAllowedIntervals are the polling periods an operator may choose.
func DefaultAllowedIntervals() []time.Duration {
	return []time.Duration{time.Second, 5 * time.Second, 10 * time.Second, 30 * time.Second}
}

// Config is the static configuration of an Engine.
type Config struct {
	Catalog          []models.IndicatorDefinition
	Interval         time.Duration
	AllowedIntervals []time.Duration
	AutoRefresh      bool
	DeadBand         float64
}

// Settings is the operator-adjustable part of the engine.
type Settings struct {
	Interval         time.Duration
	AutoRefresh      bool
	AllowedIntervals []time.Duration
}

// Update is handed to observers after every publication. Event is nil when
// the publication was caused by a settings change or a restore.
type Update struct {
	Event *sampler.Event
	View  models.View
	State sampler.State
}

// Observer receives every update the engine publishes. Observe runs on the
// publishing goroutine and must not call RefreshNow.
type Observer interface {
	Observe(Update)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Update)

func (f ObserverFunc) Observe(u Update) { f(u) }

// Option configures an Engine.
type Option func(*Engine)

// WithObserver registers an observer. Observers are called in registration order.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithSamplerOptions passes options through to the underlying sampler.
func WithSamplerOptions(opts ...sampler.Option) Option {
	return func(e *Engine) {
		e.samplerOpts = append(e.samplerOpts, opts...)
	}
}

// WithClock replaces time.Now for staleness decisions.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}
