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
	"fmt"
	"time"

	"github.com/mfreeman451/systempulse/pkg/config"
	"github.com/mfreeman451/systempulse/pkg/dashboards"
	"github.com/mfreeman451/systempulse/pkg/engine"
	"github.com/mfreeman451/systempulse/pkg/models"
	"github.com/mfreeman451/systempulse/pkg/notify"
	"github.com/mfreeman451/systempulse/pkg/probe"
	"github.com/mfreeman451/systempulse/pkg/source"
	"github.com/mfreeman451/systempulse/pkg/trend"
	"github.com/mfreeman451/systempulse/pkg/viewmodel"
)

const (
	defaultServiceName    = "systempulse"
	defaultListenAddr     = ":8080"
	defaultEventRetention = 7 * 24 * time.Hour
	defaultRefreshRate    = 1.0
	defaultRefreshBurst   = 3
	defaultProbeInterval  = 10 * time.Second
)

// Config is the service configuration file.
type Config struct {
	ServiceName    string `json:"service_name" yaml:"service_name"`
	ListenAddr     string `json:"listen_addr" yaml:"listen_addr"`
	GRPCAddr       string `json:"grpc_addr,omitempty" yaml:"grpc_addr,omitempty"`
	MaxConnections int    `json:"max_connections,omitempty" yaml:"max_connections,omitempty"`
	StaticDir      string `json:"static_dir,omitempty" yaml:"static_dir,omitempty"`

	DBPath         string          `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	Restore        bool            `json:"restore,omitempty" yaml:"restore,omitempty"`
	EventRetention config.Duration `json:"event_retention,omitempty" yaml:"event_retention,omitempty"`

	Source source.Config `json:"source" yaml:"source"`
	Probe  *probe.Config `json:"probe,omitempty" yaml:"probe,omitempty"`

	Catalog               []models.IndicatorDefinition `json:"catalog,omitempty" yaml:"catalog,omitempty"`
	Interval              config.Duration              `json:"interval,omitempty" yaml:"interval,omitempty"`
	AllowedIntervals      []config.Duration            `json:"allowed_intervals,omitempty" yaml:"allowed_intervals,omitempty"`
	AutoRefresh           *bool                        `json:"auto_refresh,omitempty" yaml:"auto_refresh,omitempty"`
	FetchTimeout          config.Duration              `json:"fetch_timeout,omitempty" yaml:"fetch_timeout,omitempty"`
	SkipWhileDisconnected bool                         `json:"skip_while_disconnected,omitempty" yaml:"skip_while_disconnected,omitempty"`
	Trend                 TrendConfig                  `json:"trend" yaml:"trend"`
	Refresh               RefreshConfig                `json:"refresh" yaml:"refresh"`

	Webhooks []notify.WebhookConfig `json:"webhooks,omitempty" yaml:"webhooks,omitempty"`
	CORS     CORSConfig             `json:"cors" yaml:"cors"`
	Upstream *UpstreamConfig        `json:"upstream,omitempty" yaml:"upstream,omitempty"`
	Grafana  dashboards.Config      `json:"grafana" yaml:"grafana"`
	Security *models.SecurityConfig `json:"security,omitempty" yaml:"security,omitempty"`
}

type TrendConfig struct {
	DeadBand *float64 `json:"dead_band,omitempty" yaml:"dead_band,omitempty"` // percent
}

// RefreshConfig throttles manual refreshes.
type RefreshConfig struct {
	RatePerSecond float64 `json:"rate_per_second,omitempty" yaml:"rate_per_second,omitempty"`
	Burst         int     `json:"burst,omitempty" yaml:"burst,omitempty"`
}

type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
}

// UpstreamConfig points at the service whose health endpoints are polled.
type UpstreamConfig struct {
	BaseURL  string          `json:"base_url" yaml:"base_url"`
	Interval config.Duration `json:"interval,omitempty" yaml:"interval,omitempty"`
}

// Validate fills defaults and checks every section.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}

	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	if c.EventRetention < 0 {
		return errInvalidRetention
	}

	if c.EventRetention == 0 {
		c.EventRetention = config.Duration(defaultEventRetention)
	}

	if err := c.Source.Validate(); err != nil {
		return err
	}

	if c.Probe != nil && c.Probe.Interval <= 0 {
		c.Probe.Interval = config.Duration(defaultProbeInterval)
	}

	if c.SkipWhileDisconnected && c.Probe == nil {
		return &models.ConfigError{Field: "skip_while_disconnected", Reason: errSkipWithoutProbe.Error()}
	}

	if len(c.Catalog) == 0 {
		c.Catalog = viewmodel.DefaultCatalog()
	}

	if c.AutoRefresh == nil {
		enabled := true
		c.AutoRefresh = &enabled
	}

	if c.Trend.DeadBand == nil {
		band := trend.DefaultDeadBand
		c.Trend.DeadBand = &band
	}

	if c.Refresh.RatePerSecond == 0 && c.Refresh.Burst == 0 {
		c.Refresh = RefreshConfig{RatePerSecond: defaultRefreshRate, Burst: defaultRefreshBurst}
	}

	if c.Refresh.RatePerSecond <= 0 || c.Refresh.Burst <= 0 {
		return &models.ConfigError{Field: "refresh", Reason: errInvalidRefresh.Error()}
	}

	for i := range c.Webhooks {
		if c.Webhooks[i].Enabled && c.Webhooks[i].URL == "" {
			return &models.ConfigError{Field: fmt.Sprintf("webhooks[%d]", i), Reason: errMissingWebhook.Error()}
		}
	}

	if c.Upstream != nil && c.Upstream.BaseURL == "" {
		c.Upstream = nil
	}

	_, err := c.engineConfig()

	return err
}

// engineConfig converts the schedule settings to the engine's form.
func (c *Config) engineConfig() (*engine.Config, error) {
	allowed := make([]time.Duration, len(c.AllowedIntervals))
	for i, d := range c.AllowedIntervals {
		allowed[i] = d.Std()
	}

	cfg := &engine.Config{
		Catalog:          c.Catalog,
		Interval:         c.Interval.Std(),
		AllowedIntervals: allowed,
		AutoRefresh:      c.AutoRefresh == nil || *c.AutoRefresh,
	}

	if c.Trend.DeadBand != nil {
		cfg.DeadBand = *c.Trend.DeadBand
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
