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

package server

import (
	"context"
	"log"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mfreeman451/systempulse/pkg/db"
	"github.com/mfreeman451/systempulse/pkg/engine"
	"github.com/mfreeman451/systempulse/pkg/models"
	"github.com/mfreeman451/systempulse/pkg/sampler"
)

// checkpointer persists the snapshot pair after every sample and logs
// connection transitions.
type checkpointer struct {
	store db.Service
	now   func() time.Time

	mu        sync.Mutex
	known     bool
	connected bool
}

func newCheckpointer(store db.Service) *checkpointer {
	return &checkpointer{store: store, now: time.Now}
}

func (c *checkpointer) Observe(u engine.Update) {
	if u.Event == nil {
		return
	}

	if u.Event.Kind == sampler.EventSample {
		if err := c.store.SaveCheckpoint(u.State.Current, u.State.Previous); err != nil {
			log.Printf("Failed to save checkpoint: %v", err)
		}
	}

	c.recordTransition(u.View.Health)
}

func (c *checkpointer) recordTransition(h models.ConnectionHealth) {
	if !h.Connected && h.LastError == "" {
		return
	}

	c.mu.Lock()
	changed := !c.known || c.connected != h.Connected
	c.known = true
	c.connected = h.Connected
	c.mu.Unlock()

	if !changed {
		return
	}

	event := &db.ConnectionEvent{
		Connected: h.Connected,
		Error:     h.LastError,
		Timestamp: c.now(),
	}

	if err := c.store.RecordConnectionEvent(event); err != nil {
		log.Printf("Failed to record connection event: %v", err)
	}
}

// metricsService serves the current readings to other instances.
type metricsService struct {
	engine *engine.Engine
}

func (m *metricsService) GetSnapshot(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snap := m.engine.Sampler().State().Current
	if snap == nil {
		return nil, status.Error(codes.Unavailable, errNoSnapshot.Error())
	}

	fields := make(map[string]interface{}, snap.Len())
	for k, v := range snap.Readings() {
		fields[k] = v
	}

	return structpb.NewStruct(fields)
}
