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

// Package db persists the latest snapshot pair and connection state changes
// in SQLite.
package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mfreeman451/systempulse/pkg/models"

	_ "github.com/mattn/go-sqlite3" // sqlite driver
)

const (
	slotCurrent  = "current"
	slotPrevious = "previous"

	// SQL statements for database initialization.
	createTablesSQL = `
	CREATE TABLE IF NOT EXISTS snapshots (
		slot TEXT PRIMARY KEY CHECK (slot IN ('current', 'previous')),
		generation INTEGER NOT NULL,
		fetched_at TIMESTAMP NOT NULL,
		readings TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS connection_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		connected BOOLEAN NOT NULL DEFAULT 0,
		error TEXT,
		timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_connection_events_time
		ON connection_events(timestamp);
	`
)

// DB represents the database connection and operations.
type DB struct {
	*sql.DB
}

// New opens (or creates) the database at dbPath and initializes the schema.
func New(dbPath string) (Service, error) {
	sqlDB, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedOpenDB, err)
	}

	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = sqlDB.Close()

		return nil, fmt.Errorf("%w: %w", errFailedToEnableWAL, err)
	}

	db := &DB{sqlDB}
	if err := db.initSchema(); err != nil {
		_ = sqlDB.Close()

		return nil, fmt.Errorf("%w: %w", errFailedToInit, err)
	}

	return db, nil
}

func (db *DB) initSchema() error {
	_, err := db.Exec(createTablesSQL)

	return err
}

// SaveCheckpoint replaces the stored pair with current and previous. A nil
// snapshot leaves its slot empty.
func (db *DB) SaveCheckpoint(current, previous *models.MetricSnapshot) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToBeginTx, err)
	}

	defer func() {
		if err != nil {
			rollback(tx)

			return
		}

		err = tx.Commit()
	}()

	if _, err = tx.Exec("DELETE FROM snapshots"); err != nil {
		return fmt.Errorf("%w snapshots: %w", errFailedToClean, err)
	}

	for slot, snap := range map[string]*models.MetricSnapshot{slotCurrent: current, slotPrevious: previous} {
		if snap == nil {
			continue
		}

		if err = insertSnapshot(tx, slot, snap); err != nil {
			return err
		}
	}

	return nil
}

func insertSnapshot(tx *sql.Tx, slot string, snap *models.MetricSnapshot) error {
	readings, err := json.Marshal(snap.Readings())
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToEncode, err)
	}

	_, err = tx.Exec(`
		INSERT INTO snapshots (slot, generation, fetched_at, readings)
		VALUES (?, ?, ?, ?)
	`, slot, int64(snap.Generation), snap.FetchedAt.UTC(), string(readings))
	if err != nil {
		return fmt.Errorf("%w snapshot %s: %w", errFailedToInsert, slot, err)
	}

	return nil
}

// LoadCheckpoint returns the stored pair. Either value may be nil.
func (db *DB) LoadCheckpoint() (current, previous *models.MetricSnapshot, err error) {
	rows, err := db.Query("SELECT slot, generation, fetched_at, readings FROM snapshots")
	if err != nil {
		return nil, nil, fmt.Errorf("%w snapshots: %w", errFailedToQuery, err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var (
			slot      string
			gen       int64
			fetchedAt time.Time
			raw       string
		)

		if err := rows.Scan(&slot, &gen, &fetchedAt, &raw); err != nil {
			return nil, nil, fmt.Errorf("%w snapshot: %w", errFailedToScan, err)
		}

		var readings models.Readings
		if err := json.Unmarshal([]byte(raw), &readings); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", errFailedToDecode, err)
		}

		snap := models.NewSnapshot(uint64(gen), fetchedAt, readings)

		switch slot {
		case slotCurrent:
			current = snap
		case slotPrevious:
			previous = snap
		}
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w snapshots: %w", errFailedToQuery, err)
	}

	return current, previous, nil
}

// RecordConnectionEvent appends one connection state change.
func (db *DB) RecordConnectionEvent(event *ConnectionEvent) error {
	_, err := db.Exec(`
		INSERT INTO connection_events (connected, error, timestamp)
		VALUES (?, ?, ?)
	`, event.Connected, event.Error, event.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("%w connection event: %w", errFailedToInsert, err)
	}

	return nil
}

// GetConnectionEvents returns the newest events first.
func (db *DB) GetConnectionEvents(limit int) ([]ConnectionEvent, error) {
	rows, err := db.Query(`
		SELECT connected, COALESCE(error, ''), timestamp
		FROM connection_events
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w connection events: %w", errFailedToQuery, err)
	}
	defer closeRows(rows)

	var events []ConnectionEvent

	for rows.Next() {
		var ev ConnectionEvent
		if err := rows.Scan(&ev.Connected, &ev.Error, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("%w connection event: %w", errFailedToScan, err)
		}

		events = append(events, ev)
	}

	return events, rows.Err()
}

// CleanOldData removes connection events older than the retention period.
// Snapshots are never cleaned; there are at most two of them.
func (db *DB) CleanOldData(retentionPeriod time.Duration) error {
	cutoff := time.Now().Add(-retentionPeriod).UTC()

	if _, err := db.Exec("DELETE FROM connection_events WHERE timestamp < ?", cutoff); err != nil {
		return fmt.Errorf("%w connection events: %w", errFailedToClean, err)
	}

	return nil
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Printf("Error rolling back transaction: %v", err)
	}
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		log.Printf("failed to close rows: %v", err)
	}
}
