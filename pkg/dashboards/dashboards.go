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

// Package dashboards describes the Grafana dashboards embedded next to the
// real-time view and builds their URLs.
package dashboards

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	DefaultBaseURL = "http://localhost:3001"
	DefaultOrgID   = "1"
)

var (
	errInvalidBaseURL = errors.New("invalid grafana base URL")
	errNotFound       = errors.New("dashboard not found")
)

type Type string

const (
	TypeSystem      Type = "system"
	TypeApplication Type = "application"
	TypeBusiness    Type = "business"
	TypeAlerts      Type = "alerts"
)

type Config struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	OrgID   string `json:"org_id" yaml:"org_id"`
}

type Dashboard struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Type        Type   `json:"type"`
	UID         string `json:"uid"`
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
	EmbedURL    string `json:"embed_url,omitempty"`
}

func Catalog() []Dashboard {
	return []Dashboard{
		{
			ID:          "system",
			Title:       "System Overview",
			Type:        TypeSystem,
			UID:         "system-overview",
			Description: "CPU, memory, disk, and network metrics",
		},
		{
			ID:          "application",
			Title:       "Application Performance",
			Type:        TypeApplication,
			UID:         "application-performance",
			Description: "Request rate, response time, and error metrics",
		},
		{
			ID:          "business",
			Title:       "Business Intelligence",
			Type:        TypeBusiness,
			UID:         "business-intelligence",
			Description: "User growth, sales, and business KPIs",
		},
		{
			ID:          "alerts",
			Title:       "Alerting Dashboard",
			Type:        TypeAlerts,
			UID:         "alerting-dashboard",
			Description: "Active alerts and incident management",
		},
	}
}

// Builder produces dashboard URLs for one Grafana instance.
type Builder struct {
	base  string
	orgID string
}

func NewBuilder(cfg Config) (*Builder, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}

	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", errInvalidBaseURL, cfg.BaseURL)
	}

	orgID := cfg.OrgID
	if orgID == "" {
		orgID = DefaultOrgID
	}

	return &Builder{base: base, orgID: orgID}, nil
}

func (b *Builder) Home() string {
	return b.base
}

// URL returns {base}/d/{uid}/{uid}?orgId={org}, with &kiosk=tv when kiosk is set.
func (b *Builder) URL(uid string, kiosk bool) string {
	escaped := url.PathEscape(uid)

	q := "orgId=" + url.QueryEscape(b.orgID)
	if kiosk {
		q += "&kiosk=tv"
	}

	return fmt.Sprintf("%s/d/%s/%s?%s", b.base, escaped, escaped, q)
}

// List returns the catalog with URLs filled in.
func (b *Builder) List() []Dashboard {
	out := Catalog()

	for i := range out {
		out[i].URL = b.URL(out[i].UID, false)
		out[i].EmbedURL = b.URL(out[i].UID, true)
	}

	return out
}

func (b *Builder) Get(id string) (Dashboard, error) {
	for _, d := range b.List() {
		if d.ID == id {
			return d, nil
		}
	}

	return Dashboard{}, fmt.Errorf("%w: %s", errNotFound, id)
}

// IsNotFound reports whether err came from an unknown dashboard id.
func IsNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}
