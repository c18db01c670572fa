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

package db

import (
	"time"

	"github.com/mfreeman451/systempulse/pkg/models"
)

//go:generate mockgen -destination=mock_db.go -package=db github.com/mfreeman451/systempulse/pkg/db Service

// Service represents all database operations.
type Service interface {
	Close() error

	// Checkpoint operations. At most the current and previous snapshot are
	// ever stored.

	SaveCheckpoint(current, previous *models.MetricSnapshot) error
	LoadCheckpoint() (current, previous *models.MetricSnapshot, err error)

	// Connection event operations.

	RecordConnectionEvent(event *ConnectionEvent) error
	GetConnectionEvents(limit int) ([]ConnectionEvent, error)

	// Maintenance operations.

	CleanOldData(retentionPeriod time.Duration) error
}
