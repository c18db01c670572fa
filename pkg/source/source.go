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

// Package source implements metrics sources: HTTP/JSON, gRPC and SNMP.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/mfreeman451/systempulse/pkg/config"
	"github.com/mfreeman451/systempulse/pkg/models"
	"github.com/mfreeman451/systempulse/pkg/sampler"
)

const (
	TypeHTTP = "http"
	TypeGRPC = "grpc"
	TypeSNMP = "snmp"

	defaultTimeout = 10 * time.Second
)

// Config selects and configures one metrics source.
type Config struct {
	Type    string          `json:"type" yaml:"type"`
	Name    string          `json:"name,omitempty" yaml:"name,omitempty"`
	Timeout config.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// http
	URL     string          `json:"url,omitempty" yaml:"url,omitempty"`
	Headers []config.Header `json:"headers,omitempty" yaml:"headers,omitempty"`

	// grpc
	Address  string                 `json:"address,omitempty" yaml:"address,omitempty"`
	Method   string                 `json:"method,omitempty" yaml:"method,omitempty"`
	Security *models.SecurityConfig `json:"security,omitempty" yaml:"security,omitempty"`

	// snmp
	SNMP *SNMPConfig `json:"snmp,omitempty" yaml:"snmp,omitempty"`
}

// Validate checks that the fields needed by Type are present.
func (c *Config) Validate() error {
	switch c.Type {
	case TypeHTTP:
		if c.URL == "" {
			return errMissingURL
		}
	case TypeGRPC:
		if c.Address == "" {
			return errMissingAddress
		}
	case TypeSNMP:
		if c.SNMP == nil || c.SNMP.Host == "" || len(c.SNMP.OIDs) == 0 {
			return errMissingSNMP
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownSourceType, c.Type)
	}

	return nil
}

func (c *Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout.Std()
	}

	return defaultTimeout
}

func (c *Config) name(fallback string) string {
	if c.Name != "" {
		return c.Name
	}

	return fallback
}

// Closer is implemented by sources holding connections.
type Closer interface {
	Close() error
}

// New builds the source described by cfg.
func New(ctx context.Context, cfg *Config) (sampler.Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case TypeHTTP:
		return NewHTTPSource(cfg), nil
	case TypeGRPC:
		return NewGRPCSource(ctx, cfg)
	case TypeSNMP:
		return NewSNMPSource(cfg)
	}

	return nil, fmt.Errorf("%w: %q", errUnknownSourceType, cfg.Type)
}

// Flatten turns a nested document into dotted keys. Numbers are kept as is,
// booleans become 1 or 0, and anything else is skipped.
func Flatten(doc map[string]interface{}) models.Readings {
	out := make(models.Readings)
	flattenInto(out, "", doc)

	return out
}

func flattenInto(out models.Readings, prefix string, doc map[string]interface{}) {
	for k, v := range doc {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch value := v.(type) {
		case map[string]interface{}:
			flattenInto(out, key, value)
		case float64:
			out[key] = value
		case float32:
			out[key] = float64(value)
		case int:
			out[key] = float64(value)
		case int64:
			out[key] = float64(value)
		case bool:
			if value {
				out[key] = 1
			} else {
				out[key] = 0
			}
		}
	}
}
