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

// Package models pkg/models/metrics.go
package models

import (
	"maps"
	"time"
)

// Readings maps an indicator key to its raw numeric reading.
type Readings map[string]float64

// MetricSnapshot is one immutable sample of the metrics source.
type MetricSnapshot struct {
	Generation uint64    `json:"generation"`
	FetchedAt  time.Time `json:"fetched_at"`
	readings   Readings
}

// NewSnapshot copies readings so later mutation by the caller cannot leak in.
func NewSnapshot(generation uint64, fetchedAt time.Time, readings Readings) *MetricSnapshot {
	return &MetricSnapshot{
		Generation: generation,
		FetchedAt:  fetchedAt,
		readings:   maps.Clone(readings),
	}
}

// Value returns the reading for key and whether it was present.
func (s *MetricSnapshot) Value(key string) (float64, bool) {
	if s == nil {
		return 0, false
	}

	v, ok := s.readings[key]

	return v, ok
}

// Readings returns a copy of the snapshot's readings.
func (s *MetricSnapshot) Readings() Readings {
	if s == nil {
		return nil
	}

	return maps.Clone(s.readings)
}

// Len returns the number of readings in the snapshot.
func (s *MetricSnapshot) Len() int {
	if s == nil {
		return 0
	}

	return len(s.readings)
}

// IndicatorDefinition is a static catalog entry describing one indicator.
type IndicatorDefinition struct {
	Key       string  `json:"key" yaml:"key"`
	Name      string  `json:"name" yaml:"name"`
	Unit      string  `json:"unit" yaml:"unit"`
	Precision int     `json:"precision" yaml:"precision"`
	Scale     float64 `json:"scale,omitempty" yaml:"scale,omitempty"` // 0 means 1
	Color     string  `json:"color,omitempty" yaml:"color,omitempty"`
}

// Factor returns the multiplier applied to raw readings.
func (d *IndicatorDefinition) Factor() float64 {
	if d.Scale == 0 {
		return 1
	}

	return d.Scale
}

type Direction string

const (
	DirectionUp     Direction = "up"
	DirectionDown   Direction = "down"
	DirectionStable Direction = "stable"
)

// Trend is the period-over-period change of one indicator.
type Trend struct {
	Value         float64   `json:"value"`
	PreviousValue float64   `json:"previous_value"`
	Direction     Direction `json:"direction"`
	ChangePercent float64   `json:"change_percent"`
}

// Indicator is an enriched catalog entry ready for a renderer.
type Indicator struct {
	Key     string  `json:"key"`
	Name    string  `json:"name"`
	Unit    string  `json:"unit"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
	Trend   Trend   `json:"trend"`
	Color   string  `json:"color,omitempty"`
}

// ConnectionHealth tracks reachability of the metrics source.
type ConnectionHealth struct {
	Connected           bool      `json:"connected"`
	LastUpdate          time.Time `json:"last_update"`
	LastProbe           time.Time `json:"last_probe,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

// View is what renderers receive on every publication.
type View struct {
	Indicators  []Indicator      `json:"indicators"`
	Health      ConnectionHealth `json:"health"`
	Stale       bool             `json:"stale"`
	FetchedAt   time.Time        `json:"fetched_at,omitempty"`
	Generation  uint64           `json:"generation"`
	Interval    string           `json:"interval"`
	AutoRefresh bool             `json:"auto_refresh"`
}

// HealthStatus is the last response of an upstream health endpoint.
type HealthStatus struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Service   string    `json:"service,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"`
}
