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

// Package probe provides lightweight reachability checks for the metrics
// source, created by type from a registry.
package probe

import (
	"context"
	"fmt"
	"sync"

	"github.com/mfreeman451/systempulse/pkg/config"
	"github.com/mfreeman451/systempulse/pkg/models"
	"github.com/mfreeman451/systempulse/pkg/sampler"
)

const (
	TypeHTTP   = "http"
	TypeTCP    = "tcp"
	TypeGRPC   = "grpc"
	TypeSource = "source"
)

// Config describes one probe.
type Config struct {
	Type     string                 `json:"type" yaml:"type"`
	Target   string                 `json:"target,omitempty" yaml:"target,omitempty"`
	Service  string                 `json:"service,omitempty" yaml:"service,omitempty"` // grpc health service name
	Interval config.Duration        `json:"interval,omitempty" yaml:"interval,omitempty"`
	Security *models.SecurityConfig `json:"security,omitempty" yaml:"security,omitempty"`
}

// Factory builds a probe from its configuration.
type Factory func(ctx context.Context, cfg *Config) (sampler.Probe, error)

// Registry defines how to store and retrieve probe factories.
type Registry interface {
	Register(probeType string, factory Factory)
	Get(ctx context.Context, cfg *Config) (sampler.Probe, error)
}

type probeRegistry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() Registry {
	return &probeRegistry{
		factories: make(map[string]Factory),
	}
}

// DefaultRegistry knows the built-in probe types. The source probe falls
// back to a fetch from src whose result is discarded.
func DefaultRegistry(src sampler.Source) Registry {
	r := NewRegistry()

	r.Register(TypeHTTP, func(_ context.Context, cfg *Config) (sampler.Probe, error) {
		return NewHTTPProbe(cfg.Target)
	})
	r.Register(TypeTCP, func(_ context.Context, cfg *Config) (sampler.Probe, error) {
		return NewTCPProbe(cfg.Target)
	})
	r.Register(TypeGRPC, func(ctx context.Context, cfg *Config) (sampler.Probe, error) {
		return NewGRPCProbe(ctx, cfg)
	})
	r.Register(TypeSource, func(context.Context, *Config) (sampler.Probe, error) {
		return NewSourceProbe(src)
	})

	return r
}

func (r *probeRegistry) Register(probeType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[probeType] = factory
}

func (r *probeRegistry) Get(ctx context.Context, cfg *Config) (sampler.Probe, error) {
	r.mu.RLock()
	f, ok := r.factories[cfg.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", errNoProbe, cfg.Type)
	}

	return f(ctx, cfg)
}
