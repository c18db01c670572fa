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

// Package monitoring polls the upstream service's health endpoints and keeps
// the last status of each.
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mfreeman451/systempulse/pkg/models"
)

const (
	DefaultInterval = 30 * time.Second
	defaultTimeout  = 5 * time.Second
	maxBodySize     = 1 << 16

	StatusUnreachable = "unreachable"
	StatusUnhealthy   = "unhealthy"
	StatusUnknown     = "unknown"
)

// Endpoint is one upstream health path.
type Endpoint struct {
	Name string
	Path string
}

func DefaultEndpoints() []Endpoint {
	return []Endpoint{
		{Name: "health", Path: "/health/"},
		{Name: "ready", Path: "/health/ready"},
		{Name: "live", Path: "/health/live"},
	}
}

// Config holds configuration for the health monitor.
type Config struct {
	BaseURL   string
	Interval  time.Duration
	Timeout   time.Duration
	Endpoints []Endpoint
}

// HealthMonitor polls the upstream endpoints concurrently on a fixed interval.
type HealthMonitor struct {
	config   Config
	client   *http.Client
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	statuses map[string]models.HealthStatus
}

func NewHealthMonitor(cfg Config) (*HealthMonitor, error) {
	if cfg.BaseURL == "" {
		return nil, errMissingBaseURL
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	if len(cfg.Endpoints) == 0 {
		cfg.Endpoints = DefaultEndpoints()
	}

	return &HealthMonitor{
		config:   cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		now:      time.Now,
		done:     make(chan struct{}),
		statuses: make(map[string]models.HealthStatus, len(cfg.Endpoints)),
	}, nil
}

// Run checks immediately and then on every tick until ctx is done or Stop is called.
func (m *HealthMonitor) Run(ctx context.Context) error {
	select {
	case <-m.done:
		return errAlreadyStopped
	default:
	}

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	if err := m.Check(ctx); err != nil {
		log.Printf("Initial upstream health check failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.done:
			return nil
		case <-ticker.C:
			if err := m.Check(ctx); err != nil {
				log.Printf("Upstream health check failed: %v", err)
			}
		}
	}
}

func (m *HealthMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

// Check polls every endpoint once. Each endpoint's status is recorded even
// when another fails; the first failure is returned.
func (m *HealthMonitor) Check(ctx context.Context) error {
	var g errgroup.Group

	for _, ep := range m.config.Endpoints {
		g.Go(func() error {
			status, err := m.poll(ctx, ep)

			m.mu.Lock()
			m.statuses[ep.Name] = status
			m.mu.Unlock()

			return err
		})
	}

	return g.Wait()
}

type healthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

func (m *HealthMonitor) poll(ctx context.Context, ep Endpoint) (models.HealthStatus, error) {
	status := models.HealthStatus{
		Name:      ep.Name,
		Status:    StatusUnreachable,
		CheckedAt: m.now(),
	}

	url := m.config.BaseURL + ep.Path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		status.Error = err.Error()

		return status, fmt.Errorf("%w: %s: %w", errEndpointFailed, ep.Name, err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		status.Error = err.Error()

		return status, fmt.Errorf("%w: %s: %w", errEndpointFailed, ep.Name, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Failed to close %s response body: %v", ep.Name, err)
		}
	}()

	var body healthResponse

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&body); err != nil {
		body.Status = ""
	}

	status.Service = body.Service
	status.Timestamp = body.Timestamp
	status.Status = body.Status

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if status.Status == "" {
			status.Status = StatusUnhealthy
		}

		status.Error = fmt.Sprintf("status %d", resp.StatusCode)

		return status, fmt.Errorf("%w: %s: %d", errEndpointStatus, ep.Name, resp.StatusCode)
	}

	if status.Status == "" {
		status.Status = StatusUnknown
	}

	return status, nil
}

// Statuses returns the last status per endpoint in configuration order.
// Endpoints not yet polled are omitted.
func (m *HealthMonitor) Statuses() []models.HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.HealthStatus, 0, len(m.statuses))

	for _, ep := range m.config.Endpoints {
		if s, ok := m.statuses[ep.Name]; ok {
			out = append(out, s)
		}
	}

	return out
}
