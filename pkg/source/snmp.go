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

package source

import (
	"context"
	"fmt"
	"math/big"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/mfreeman451/systempulse/pkg/models"
)

const (
	defaultSNMPPort    = 161
	defaultSNMPRetries = 1
	defaultCommunity   = "public"
)

// SNMPVersion represents supported SNMP versions.
type SNMPVersion string

const (
	Version1  SNMPVersion = "v1"
	Version2c SNMPVersion = "v2c"
)

// SNMPConfig maps indicator keys to OIDs on a single agent.
type SNMPConfig struct {
	Host      string            `json:"host" yaml:"host"`
	Port      uint16            `json:"port,omitempty" yaml:"port,omitempty"`
	Community string            `json:"community,omitempty" yaml:"community,omitempty"`
	Version   SNMPVersion       `json:"version,omitempty" yaml:"version,omitempty"`
	Retries   int               `json:"retries,omitempty" yaml:"retries,omitempty"`
	OIDs      map[string]string `json:"oids" yaml:"oids"`
}

// SNMPError wraps SNMP-specific errors with additional context.
type SNMPError struct {
	Op      string
	Target  string
	Wrapped error
}

func (e *SNMPError) Error() string {
	return fmt.Sprintf("SNMP %s failed for target %s: %v", e.Op, e.Target, e.Wrapped)
}

func (e *SNMPError) Unwrap() error {
	return e.Wrapped
}

// snmpClient is the subset of gosnmp.GoSNMP the source uses.
type snmpClient interface {
	Connect() error
	Get(oids []string) (*gosnmp.SnmpPacket, error)
	Close() error
}

type goSNMPClient struct {
	*gosnmp.GoSNMP
}

func (c goSNMPClient) Close() error {
	if c.Conn == nil {
		return nil
	}

	return c.Conn.Close()
}

// SNMPSource reads one OID per indicator key.
type SNMPSource struct {
	name    string
	target  string
	timeout time.Duration
	oids    []string          // normalized, sorted
	keys    map[string]string // normalized OID -> indicator key

	mu        sync.Mutex
	client    snmpClient
	connected bool
}

func NewSNMPSource(cfg *Config) (*SNMPSource, error) {
	sc := cfg.SNMP

	client := &gosnmp.GoSNMP{
		Target:             sc.Host,
		Port:               sc.Port,
		Community:          sc.Community,
		Timeout:            cfg.timeout(),
		Retries:            sc.Retries,
		ExponentialTimeout: true,
		MaxOids:            gosnmp.MaxOids,
		Context:            context.Background(),
	}

	if client.Port == 0 {
		client.Port = defaultSNMPPort
	}

	if client.Community == "" {
		client.Community = defaultCommunity
	}

	if client.Retries == 0 {
		client.Retries = defaultSNMPRetries
	}

	switch sc.Version {
	case Version1:
		client.Version = gosnmp.Version1
	case Version2c, "":
		client.Version = gosnmp.Version2c
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedVer, sc.Version)
	}

	s := newSNMPSource(cfg.name(sc.Host), sc, goSNMPClient{client})
	s.timeout = client.Timeout

	return s, nil
}

func newSNMPSource(name string, sc *SNMPConfig, client snmpClient) *SNMPSource {
	s := &SNMPSource{
		name:   name,
		target: sc.Host,
		keys:   make(map[string]string, len(sc.OIDs)),
		client: client,
	}

	for key, oid := range sc.OIDs {
		norm := normalizeOID(oid)
		s.keys[norm] = key
		s.oids = append(s.oids, norm)
	}

	slices.Sort(s.oids)

	return s
}

func normalizeOID(oid string) string {
	return "." + strings.TrimPrefix(strings.TrimSpace(oid), ".")
}

func (s *SNMPSource) Name() string {
	return s.name
}

// Fetch issues GET requests in chunks of gosnmp.MaxOids. Any transport error
// fails the whole fetch; OIDs the agent does not know are skipped.
func (s *SNMPSource) Fetch(ctx context.Context) (models.Readings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gs, ok := s.client.(goSNMPClient); ok {
		gs.Context = ctx
		gs.Timeout = s.timeout

		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining > 0 && remaining < s.timeout {
				gs.Timeout = remaining
			}
		}
	}

	if !s.connected {
		if err := s.client.Connect(); err != nil {
			return nil, &SNMPError{Op: "connect", Target: s.target, Wrapped: err}
		}

		s.connected = true
	}

	readings := make(models.Readings, len(s.oids))

	for chunk := range slices.Chunk(s.oids, gosnmp.MaxOids) {
		packet, err := s.client.Get(chunk)
		if err != nil {
			s.resetLocked()

			return nil, &SNMPError{Op: "get", Target: s.target, Wrapped: err}
		}

		for _, pdu := range packet.Variables {
			key, ok := s.keys[normalizeOID(pdu.Name)]
			if !ok {
				continue
			}

			v, err := pduToFloat(pdu)
			if err != nil {
				continue
			}

			readings[key] = v
		}
	}

	if len(readings) == 0 {
		return nil, &SNMPError{Op: "get", Target: s.target, Wrapped: errNoReadings}
	}

	return readings, nil
}

func (s *SNMPSource) resetLocked() {
	_ = s.client.Close()
	s.connected = false
}

func (s *SNMPSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}

	s.connected = false

	return s.client.Close()
}

// pduToFloat converts a numeric SNMP variable. Octet strings are accepted
// when they hold a decimal number.
func pduToFloat(pdu gosnmp.SnmpPDU) (float64, error) {
	switch pdu.Type {
	case gosnmp.Integer, gosnmp.Counter32, gosnmp.Gauge32, gosnmp.Counter64,
		gosnmp.TimeTicks, gosnmp.Uinteger32:
		f, _ := new(big.Float).SetInt(gosnmp.ToBigInt(pdu.Value)).Float64()

		return f, nil
	case gosnmp.OpaqueFloat:
		if v, ok := pdu.Value.(float32); ok {
			return float64(v), nil
		}
	case gosnmp.OpaqueDouble:
		if v, ok := pdu.Value.(float64); ok {
			return v, nil
		}
	case gosnmp.OctetString:
		if b, ok := pdu.Value.([]byte); ok {
			return strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
		}
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView:
		return 0, errNoSuchObject
	}

	return 0, fmt.Errorf("%w: %v", errUnsupportedType, pdu.Type)
}
