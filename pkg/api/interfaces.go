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
	"context"
	"time"

	"github.com/mfreeman451/systempulse/pkg/db"
	"github.com/mfreeman451/systempulse/pkg/engine"
	"github.com/mfreeman451/systempulse/pkg/models"
)

//go:generate mockgen -destination=mock_api.go -package=api github.com/mfreeman451/systempulse/pkg/api UpstreamMonitor,EventStore

// Engine is the part of the trend engine the API drives.
type Engine interface {
	View() models.View
	Ready() bool
	Catalog() []models.IndicatorDefinition
	Settings() engine.Settings
	ParseInterval(s string) (time.Duration, error)
	SetInterval(interval time.Duration) error
	SetAutoRefresh(enabled bool) error
	RefreshNow(ctx context.Context) (models.View, error)
	Subscribe(buffer int) (<-chan models.View, func())
}

// UpstreamMonitor exposes the last upstream health statuses.
type UpstreamMonitor interface {
	Statuses() []models.HealthStatus
}

// EventStore lists recorded connection transitions, newest first.
type EventStore interface {
	GetConnectionEvents(limit int) ([]db.ConnectionEvent, error)
}
