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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mfreeman451/systempulse/pkg/engine"
	"github.com/mfreeman451/systempulse/pkg/models"
)

func update(connected bool, lastErr string) engine.Update {
	return engine.Update{View: models.View{Health: models.ConnectionHealth{Connected: connected, LastError: lastErr}}}
}

func TestWatcher_NotifiesOnTransitionsOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	n := NewMockNotifier(ctrl)

	var (
		mu     sync.Mutex
		titles []string
		levels []Level
	)

	n.EXPECT().IsEnabled().Return(true)
	n.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, got *Notification) error {
		mu.Lock()
		defer mu.Unlock()

		titles = append(titles, got.Title)
		levels = append(levels, got.Level)

		return nil
	}).Times(2)

	w := NewWatcher("backend", n)

	// unknown, then the baseline, then unchanged
	w.Observe(update(false, ""))
	w.Observe(update(true, ""))
	w.Observe(update(true, ""))

	w.Observe(update(false, "refused"))
	w.Wait()

	w.Observe(update(false, "refused"))
	w.Observe(update(true, ""))
	w.Wait()

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, titles, 2)
	assert.Equal(t, "Metrics source disconnected", titles[0])
	assert.Equal(t, Error, levels[0])
	assert.Equal(t, "Metrics source reconnected", titles[1])
	assert.Equal(t, Info, levels[1])
}

func TestWatcher_FailureBaseline(t *testing.T) {
	ctrl := gomock.NewController(t)
	n := NewMockNotifier(ctrl)

	n.EXPECT().IsEnabled().Return(true)
	n.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, got *Notification) error {
		assert.Equal(t, Info, got.Level)
		assert.Equal(t, "backend", got.Source)

		return nil
	})

	w := NewWatcher("backend", n)

	w.Observe(update(false, "refused"))
	w.Observe(update(true, ""))
	w.Wait()
}

func TestWatcher_SkipsDisabledNotifiers(t *testing.T) {
	ctrl := gomock.NewController(t)
	n := NewMockNotifier(ctrl)

	n.EXPECT().IsEnabled().Return(false)

	w := NewWatcher("backend", n, nil)

	w.Observe(update(true, ""))
	w.Observe(update(false, "refused"))
	w.Wait()
}
