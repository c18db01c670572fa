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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreeman451/systempulse/pkg/config"
	"github.com/mfreeman451/systempulse/pkg/models"
	"github.com/mfreeman451/systempulse/pkg/notify"
	"github.com/mfreeman451/systempulse/pkg/probe"
	"github.com/mfreeman451/systempulse/pkg/source"
	"github.com/mfreeman451/systempulse/pkg/trend"
	"github.com/mfreeman451/systempulse/pkg/viewmodel"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestConfig_Defaults(t *testing.T) {
	path := writeFile(t, "pulse.json", `{
		"source": {"type": "http", "url": "http://backend:8000/api/v1/metrics/realtime"},
		"probe": {"type": "tcp", "target": "backend:8000"}
	}`)

	var cfg Config
	require.NoError(t, config.LoadAndValidate(path, &cfg))

	assert.Equal(t, defaultServiceName, cfg.ServiceName)
	assert.Equal(t, defaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, config.Duration(defaultEventRetention), cfg.EventRetention)
	assert.Equal(t, viewmodel.DefaultCatalog(), cfg.Catalog)
	require.NotNil(t, cfg.AutoRefresh)
	assert.True(t, *cfg.AutoRefresh)
	require.NotNil(t, cfg.Trend.DeadBand)
	assert.InDelta(t, trend.DefaultDeadBand, *cfg.Trend.DeadBand, 1e-9)
	assert.Equal(t, RefreshConfig{RatePerSecond: defaultRefreshRate, Burst: defaultRefreshBurst}, cfg.Refresh)
	assert.Equal(t, config.Duration(defaultProbeInterval), cfg.Probe.Interval)

	engCfg, err := cfg.engineConfig()
	require.NoError(t, err)
	assert.True(t, engCfg.AutoRefresh)
	assert.Empty(t, engCfg.AllowedIntervals)
}

func TestConfig_YAML(t *testing.T) {
	path := writeFile(t, "pulse.yaml", `
service_name: pulse
listen_addr: 127.0.0.1:9090
grpc_addr: 127.0.0.1:9091
db_path: /var/lib/pulse/pulse.db
restore: true
source:
  type: grpc
  address: upstream:50051
interval: 10s
allowed_intervals: [5s, 10s, 1m]
auto_refresh: false
trend:
  dead_band: 0.5
upstream:
  base_url: http://backend:8000
cors:
  allowed_origins: ["http://localhost:3000"]
webhooks:
  - enabled: true
    url: https://discord.example/webhook
    template: discord
    cooldown: 15m
grafana:
  base_url: http://grafana:3000
  org_id: "2"
`)

	var cfg Config
	require.NoError(t, config.LoadAndValidate(path, &cfg))

	assert.Equal(t, "pulse", cfg.ServiceName)
	assert.Equal(t, source.TypeGRPC, cfg.Source.Type)
	assert.Equal(t, 10*time.Second, cfg.Interval.Std())
	assert.False(t, *cfg.AutoRefresh)
	assert.InDelta(t, 0.5, *cfg.Trend.DeadBand, 1e-9)
	require.NotNil(t, cfg.Upstream)
	assert.Equal(t, "http://backend:8000", cfg.Upstream.BaseURL)
	require.Len(t, cfg.Webhooks, 1)
	assert.Equal(t, 15*time.Minute, cfg.Webhooks[0].Cooldown.Std())
	assert.Equal(t, "2", cfg.Grafana.OrgID)

	engCfg, err := cfg.engineConfig()
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second, time.Minute}, engCfg.AllowedIntervals)
}

func TestConfig_Errors(t *testing.T) {
	valid := func() Config {
		return Config{Source: source.Config{Type: source.TypeHTTP, URL: "http://backend"}}
	}

	negative := -1.0

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "missing source", mutate: func(c *Config) { c.Source = source.Config{} }},
		{name: "negative retention", mutate: func(c *Config) { c.EventRetention = -1 }},
		{
			name:   "interval outside allowed set",
			mutate: func(c *Config) { c.Interval = config.Duration(7 * time.Second) },
			field:  "interval",
		},
		{
			name:   "negative dead band",
			mutate: func(c *Config) { c.Trend.DeadBand = &negative },
			field:  "dead_band",
		},
		{
			name:   "bad refresh",
			mutate: func(c *Config) { c.Refresh = RefreshConfig{RatePerSecond: 1} },
			field:  "refresh",
		},
		{
			name:   "webhook without url",
			mutate: func(c *Config) { c.Webhooks = []notify.WebhookConfig{{Enabled: true}} },
			field:  "webhooks[0]",
		},
		{
			name:   "skip while disconnected without probe",
			mutate: func(c *Config) { c.SkipWhileDisconnected = true },
			field:  "skip_while_disconnected",
		},
		{
			name: "duplicate catalog key",
			mutate: func(c *Config) {
				c.Catalog = []models.IndicatorDefinition{{Key: "a", Name: "A"}, {Key: "a", Name: "B"}}
			},
			field: "catalog",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)

			if tt.field != "" {
				var cfgErr *models.ConfigError
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, tt.field, cfgErr.Field)
			}
		})
	}
}

func TestConfig_SkipWhileDisconnectedWithProbe(t *testing.T) {
	cfg := Config{
		Source:                source.Config{Type: source.TypeHTTP, URL: "http://backend"},
		Probe:                 &probe.Config{Type: "tcp", Target: "backend:80"},
		SkipWhileDisconnected: true,
	}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10*time.Second, cfg.Probe.Interval.Std())
}

func TestConfig_DropsEmptyUpstream(t *testing.T) {
	cfg := Config{
		Source:   source.Config{Type: source.TypeHTTP, URL: "http://backend"},
		Upstream: &UpstreamConfig{},
		Probe:    &probe.Config{Type: probe.TypeSource, Interval: config.Duration(time.Second)},
	}

	require.NoError(t, cfg.Validate())
	assert.Nil(t, cfg.Upstream)
	assert.Equal(t, time.Second, cfg.Probe.Interval.Std())
}
