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

package probe

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/mfreeman451/systempulse/pkg/grpc"
	"github.com/mfreeman451/systempulse/pkg/sampler"
)

// HTTPProbe issues a GET and expects a 2xx answer.
type HTTPProbe struct {
	url    string
	client *http.Client
}

func NewHTTPProbe(url string) (*HTTPProbe, error) {
	if url == "" {
		return nil, errMissingTarget
	}

	return &HTTPProbe{url: url, client: &http.Client{}}, nil
}

func (p *HTTPProbe) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, http.NoBody)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", errUnhealthyStatus, resp.StatusCode)
	}

	return nil
}

// TCPProbe succeeds when a TCP connection can be opened.
type TCPProbe struct {
	addr   string
	dialer net.Dialer
}

func NewTCPProbe(addr string) (*TCPProbe, error) {
	if addr == "" {
		return nil, errMissingTarget
	}

	return &TCPProbe{addr: addr}, nil
}

func (p *TCPProbe) Probe(ctx context.Context) error {
	conn, err := p.dialer.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return err
	}

	return conn.Close()
}

// GRPCProbe asks the standard gRPC health service whether Service is SERVING.
type GRPCProbe struct {
	service string
	client  *grpc.ClientConn
}

func NewGRPCProbe(ctx context.Context, cfg *Config, opts ...grpc.ClientOption) (*GRPCProbe, error) {
	if cfg.Target == "" {
		return nil, errMissingTarget
	}

	conn := &grpc.ConnectionConfig{Address: cfg.Target}
	if cfg.Security != nil {
		conn.Security = *cfg.Security
	}

	client, err := grpc.NewClient(ctx, conn, append([]grpc.ClientOption{grpc.WithMaxRetries(1)}, opts...)...)
	if err != nil {
		return nil, err
	}

	return &GRPCProbe{service: cfg.Service, client: client}, nil
}

func (p *GRPCProbe) Probe(ctx context.Context) error {
	serving, err := p.client.CheckHealth(ctx, p.service)
	if err != nil {
		return err
	}

	if !serving {
		return errNotServing
	}

	return nil
}

func (p *GRPCProbe) Close() error {
	return p.client.Close()
}

// SourceProbe performs a fetch and discards the readings.
type SourceProbe struct {
	src sampler.Source
}

func NewSourceProbe(src sampler.Source) (*SourceProbe, error) {
	if src == nil {
		return nil, errMissingSource
	}

	return &SourceProbe{src: src}, nil
}

func (p *SourceProbe) Probe(ctx context.Context) error {
	_, err := p.src.Fetch(ctx)

	return err
}
