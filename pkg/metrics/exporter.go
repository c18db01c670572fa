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

// Package metrics exports engine and HTTP activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mfreeman451/systempulse/pkg/engine"
	"github.com/mfreeman451/systempulse/pkg/sampler"
)

const namespace = "pulse"

// Exporter collects into its own registry.
type Exporter struct {
	registry *prometheus.Registry

	requests          *prometheus.CounterVec
	duration          prometheus.Histogram
	apiCalls          *prometheus.CounterVec
	activeConnections prometheus.Gauge

	fetches    *prometheus.CounterVec
	connected  prometheus.Gauge
	failures   prometheus.Gauge
	lastUpdate prometheus.Gauge
	generation prometheus.Gauge
	stale      prometheus.Gauge
	indicators *prometheus.GaugeVec
	changes    *prometheus.GaugeVec
}

func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}),
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_calls_total",
			Help: "Total API calls",
		}, []string{"service", "endpoint"}),
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active stream connections",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Completed source fetches by result",
		}, []string{"result", "trigger"}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_connected",
			Help:      "1 when the last fetch or probe succeeded",
		}),
		failures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_consecutive_failures",
			Help:      "Fetch failures since the last success",
		}),
		lastUpdate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_last_update_timestamp_seconds",
			Help:      "Unix time of the last successful fetch",
		}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_generation",
			Help:      "Generation of the current snapshot",
		}),
		stale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "view_stale",
			Help:      "1 when the published view is stale",
		}),
		indicators: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indicator_value",
			Help:      "Current indicator value",
		}, []string{"key", "unit"}),
		changes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indicator_change_percent",
			Help:      "Percent change against the previous snapshot",
		}, []string{"key"}),
	}

	e.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		e.requests,
		e.duration,
		e.apiCalls,
		e.activeConnections,
		e.fetches,
		e.connected,
		e.failures,
		e.lastUpdate,
		e.generation,
		e.stale,
		e.indicators,
		e.changes,
	)

	return e
}

func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the text exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{Registry: e.registry})
}

func (e *Exporter) ObserveRequest(method, endpoint string, status int, elapsed time.Duration) {
	e.requests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	e.duration.Observe(elapsed.Seconds())
}

func (e *Exporter) APICall(service, endpoint string) {
	e.apiCalls.WithLabelValues(service, endpoint).Inc()
}

func (e *Exporter) ConnectionOpened() {
	e.activeConnections.Inc()
}

func (e *Exporter) ConnectionClosed() {
	e.activeConnections.Dec()
}

// Observe implements engine.Observer.
func (e *Exporter) Observe(u engine.Update) {
	if u.Event != nil && u.Event.Kind != sampler.EventProbe {
		trigger := "scheduled"
		if u.Event.Manual {
			trigger = "manual"
		}

		e.fetches.WithLabelValues(u.Event.Kind.String(), trigger).Inc()
	}

	v := u.View

	e.connected.Set(boolToFloat(v.Health.Connected))
	e.failures.Set(float64(v.Health.ConsecutiveFailures))
	e.stale.Set(boolToFloat(v.Stale))
	e.generation.Set(float64(v.Generation))

	if !v.Health.LastUpdate.IsZero() {
		e.lastUpdate.Set(float64(v.Health.LastUpdate.UnixNano()) / float64(time.Second))
	}

	for _, ind := range v.Indicators {
		e.indicators.WithLabelValues(ind.Key, ind.Unit).Set(ind.Value)
		e.changes.WithLabelValues(ind.Key).Set(ind.Trend.ChangePercent)
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
