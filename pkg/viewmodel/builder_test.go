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

package viewmodel

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mfreeman451/systempulse/pkg/models"
	"github.com/mfreeman451/systempulse/pkg/trend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() []models.IndicatorDefinition {
	return []models.IndicatorDefinition{
		{Key: "cpu", Name: "CPU", Unit: "%", Precision: 1},
		{Key: "mem", Name: "Memory", Unit: "%", Precision: 1},
	}
}

func snap(gen uint64, r models.Readings) *models.MetricSnapshot {
	return models.NewSnapshot(gen, time.Unix(int64(gen), 0), r)
}

func TestBuild_Scenario(t *testing.T) {
	calc := trend.Default()
	catalog := testCatalog()

	first := snap(1, models.Readings{"cpu": 50})
	view := Build(catalog, first, nil, calc)

	require.Len(t, view, 2)
	assert.Equal(t, "cpu", view[0].Key)
	assert.InDelta(t, 50, view[0].Value, 1e-9)
	assert.Equal(t, models.DirectionStable, view[0].Trend.Direction)
	assert.Equal(t, "mem", view[1].Key)
	assert.Zero(t, view[1].Value)
	assert.Equal(t, models.DirectionStable, view[1].Trend.Direction)

	second := snap(2, models.Readings{"cpu": 80, "mem": 40})
	view = Build(catalog, second, first, calc)

	require.Len(t, view, 2)
	assert.Equal(t, models.DirectionUp, view[0].Trend.Direction)
	assert.InDelta(t, 60, view[0].Trend.ChangePercent, 1e-9)
	assert.InDelta(t, 50, view[0].Trend.PreviousValue, 1e-9)
	assert.Equal(t, models.DirectionStable, view[1].Trend.Direction)
	assert.Zero(t, view[1].Trend.ChangePercent)
	assert.Equal(t, "40.0", view[1].Display)
}

func TestBuild_CatalogOrder(t *testing.T) {
	catalog := []models.IndicatorDefinition{
		{Key: "zeta"}, {Key: "alpha"}, {Key: "mid"},
	}

	view := Build(catalog, snap(1, models.Readings{"alpha": 1, "mid": 2, "zeta": 3, "extra": 4}), nil, trend.Default())

	keys := make([]string, 0, len(view))
	for _, ind := range view {
		keys = append(keys, ind.Key)
	}

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, keys)
}

func TestBuild_Idempotent(t *testing.T) {
	catalog := DefaultCatalog()
	prev := snap(3, models.Readings{"system_metrics.cpu_usage": 40, "application_metrics.error_rate": 0.02})
	cur := snap(4, models.Readings{"system_metrics.cpu_usage": 45.2, "application_metrics.error_rate": 0.03})

	a := Build(catalog, cur, prev, trend.Default())
	b := Build(catalog, cur, prev, trend.Default())

	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("Build not idempotent (-first +second):\n%s", diff)
	}
}

func TestBuild_NoCurrent(t *testing.T) {
	view := Build(testCatalog(), nil, nil, trend.Default())

	require.Len(t, view, 2)

	for _, ind := range view {
		assert.Zero(t, ind.Value)
		assert.Equal(t, models.DirectionStable, ind.Trend.Direction)
	}
}

func TestBuild_ScaleAppliesToBothValues(t *testing.T) {
	catalog := []models.IndicatorDefinition{{Key: "err", Unit: "%", Precision: 2, Scale: 100}}

	view := Build(catalog,
		snap(2, models.Readings{"err": 0.03}),
		snap(1, models.Readings{"err": 0.02}),
		trend.Default())

	require.Len(t, view, 1)
	assert.InDelta(t, 3, view[0].Value, 1e-9)
	assert.InDelta(t, 2, view[0].Trend.PreviousValue, 1e-9)
	assert.Equal(t, models.DirectionUp, view[0].Trend.Direction)
	assert.InDelta(t, 50, view[0].Trend.ChangePercent, 1e-6)
	assert.Equal(t, "3.00", view[0].Display)
}

func TestValidateCatalog(t *testing.T) {
	tests := []struct {
		name    string
		catalog []models.IndicatorDefinition
		wantErr bool
	}{
		{name: "default", catalog: DefaultCatalog()},
		{name: "empty", catalog: nil, wantErr: true},
		{name: "empty key", catalog: []models.IndicatorDefinition{{Key: ""}}, wantErr: true},
		{name: "duplicate", catalog: []models.IndicatorDefinition{{Key: "a"}, {Key: "a"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCatalog(tt.catalog)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			var cfgErr *models.ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}
