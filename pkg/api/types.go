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

package api

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/mfreeman451/systempulse/pkg/dashboards"
	"github.com/mfreeman451/systempulse/pkg/metrics"
)

const (
	apiPrefix = "/api/v1"

	defaultServiceName  = "systempulse"
	defaultRefreshRate  = rate.Limit(1)
	defaultRefreshBurst = 3
	defaultEventLimit   = 50
	maxEventLimit       = 1000
	maxBodySize         = 1 << 20

	streamBuffer      = 8
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = 30 * time.Second
	streamReadLimit   = 512
	streamBufferBytes = 1024
)

// SettingsResponse is the operator configuration surface.
type SettingsResponse struct {
	Interval         string   `json:"interval"`
	AutoRefresh      bool     `json:"auto_refresh"`
	AllowedIntervals []string `json:"allowed_intervals"`
}

// SettingsRequest is a partial update; absent fields are left unchanged.
type SettingsRequest struct {
	Interval    *string `json:"interval,omitempty"`
	AutoRefresh *bool   `json:"auto_refresh,omitempty"`
}

type StatusResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Message   string `json:"message,omitempty"`
}

// AlertmanagerPayload is the subset of the Alertmanager webhook body we read.
type AlertmanagerPayload struct {
	Receiver string              `json:"receiver"`
	Status   string              `json:"status"`
	Alerts   []AlertmanagerAlert `json:"alerts"`
}

type AlertmanagerAlert struct {
	Status      string            `json:"status"`
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
	StartsAt    time.Time         `json:"startsAt"`
	EndsAt      time.Time         `json:"endsAt"`
}

type WebhookResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Processed int    `json:"processed"`
}

type Option func(*APIServer)

func WithRecorder(rec metrics.Recorder) Option {
	return func(s *APIServer) {
		s.recorder = rec
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *APIServer) {
		s.metricsHandler = h
	}
}

func WithUpstream(m UpstreamMonitor) Option {
	return func(s *APIServer) {
		s.upstream = m
	}
}

func WithEventStore(store EventStore) Option {
	return func(s *APIServer) {
		s.events = store
	}
}

func WithDashboards(b *dashboards.Builder) Option {
	return func(s *APIServer) {
		s.dashboards = b
	}
}

func WithCORSOrigins(origins []string) Option {
	return func(s *APIServer) {
		s.origins = origins
	}
}

// WithRefreshLimit throttles manual refreshes to r per second with the given burst.
func WithRefreshLimit(r rate.Limit, burst int) Option {
	return func(s *APIServer) {
		s.limiter = rate.NewLimiter(r, burst)
	}
}

// WithStaticDir serves a built dashboard front end from dir for unmatched paths.
func WithStaticDir(dir string) Option {
	return func(s *APIServer) {
		s.staticDir = dir
	}
}

func WithServiceName(name string) Option {
	return func(s *APIServer) {
		s.serviceName = name
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *APIServer) {
		s.now = now
	}
}
