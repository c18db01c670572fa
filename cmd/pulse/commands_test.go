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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreeman451/systempulse/pkg/models"
)

func TestPrintView(t *testing.T) {
	view := &models.View{
		Indicators: []models.Indicator{
			{Name: "CPU Usage", Display: "45.20", Unit: "%", Trend: models.Trend{Direction: models.DirectionUp}},
			{Name: "Active Users", Display: "1234", Unit: "users", Trend: models.Trend{Direction: models.DirectionStable}},
		},
		Generation: 12345,
		FetchedAt:  time.Now().Add(-2 * time.Minute),
	}

	var buf bytes.Buffer
	require.NoError(t, printView(&buf, view))

	out := buf.String()
	assert.Contains(t, out, "INDICATOR")
	assert.Contains(t, out, "CPU Usage")
	assert.Contains(t, out, "45.20")
	assert.Contains(t, out, "stable")
	assert.Contains(t, out, "generation 12,345, fetched 2 minutes ago")
}

func TestDashboardsCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source:
  type: http
  url: http://localhost:9090/api/metrics
grafana:
  base_url: http://grafana.local:3000
`), 0o600))

	cmd := rootCmd()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"dashboards", "--config", path, "--kiosk"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "http://grafana.local:3000/d/")
	assert.Contains(t, out.String(), "kiosk=tv")
}

func TestLoadConfig_Missing(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"dashboards", "--config", filepath.Join(t.TempDir(), "missing.json")})

	require.Error(t, cmd.Execute())
}
