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

package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/mfreeman451/systempulse/pkg/engine"
	"github.com/mfreeman451/systempulse/pkg/models"
)

const notifyTimeout = 15 * time.Second

// Watcher is an engine observer that notifies on connection transitions.
// The first observed state only establishes a baseline.
type Watcher struct {
	source    string
	notifiers []Notifier
	timeout   time.Duration

	mu        sync.Mutex
	known     bool
	connected bool
	wg        sync.WaitGroup
}

func NewWatcher(source string, notifiers ...Notifier) *Watcher {
	enabled := make([]Notifier, 0, len(notifiers))

	for _, n := range notifiers {
		if n != nil && n.IsEnabled() {
			enabled = append(enabled, n)
		}
	}

	return &Watcher{
		source:    source,
		notifiers: enabled,
		timeout:   notifyTimeout,
	}
}

// Observe implements engine.Observer. Deliveries run in the background.
func (w *Watcher) Observe(u engine.Update) {
	health := u.View.Health

	// nothing is known until a fetch or probe has reported
	if !health.Connected && health.LastError == "" {
		return
	}

	w.mu.Lock()
	changed := w.known && w.connected != health.Connected
	w.known = true
	w.connected = health.Connected
	w.mu.Unlock()

	if !changed || len(w.notifiers) == 0 {
		return
	}

	n := w.transition(health)

	for _, notifier := range w.notifiers {
		w.wg.Add(1)

		go func(notifier Notifier) {
			defer w.wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
			defer cancel()

			cp := *n
			if err := notifier.Notify(ctx, &cp); err != nil {
				log.Printf("Failed to send %q notification: %v", n.Title, err)
			}
		}(notifier)
	}
}

func (w *Watcher) transition(health models.ConnectionHealth) *Notification {
	details := map[string]string{}

	if !health.LastUpdate.IsZero() {
		details["last_update"] = health.LastUpdate.UTC().Format(time.RFC3339)
	}

	if health.Connected {
		return &Notification{
			Level:   Info,
			Title:   "Metrics source reconnected",
			Message: "Metrics are being received again.",
			Source:  w.source,
			Details: details,
		}
	}

	details["error"] = health.LastError

	return &Notification{
		Level:   Error,
		Title:   "Metrics source disconnected",
		Message: "The metrics source could not be reached: " + health.LastError,
		Source:  w.source,
		Details: details,
	}
}

// Wait blocks until in-flight deliveries are done.
func (w *Watcher) Wait() {
	w.wg.Wait()
}
