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

package grpc

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mfreeman451/systempulse/pkg/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

const (
	defaultMaxRetries    = 3
	retryBackoffStep     = 100 * time.Millisecond
	grpcKeepAliveTime    = 10 * time.Second
	grpcKeepAliveTimeout = 5 * time.Second
)

type ConnectionConfig struct {
	Address  string                `json:"address" yaml:"address"`
	Security models.SecurityConfig `json:"security,omitempty" yaml:"security,omitempty"`
}

// ClientOption allows customization of the client.
type ClientOption func(*ClientConn)

// ClientConn wraps a gRPC client connection with health checking.
type ClientConn struct {
	conn             *grpc.ClientConn
	healthClient     grpc_health_v1.HealthClient
	addr             string
	maxRetries       int
	extraDialOpts    []grpc.DialOption
	securityProvider SecurityProvider
	ownsProvider     bool

	mu              sync.RWMutex
	lastHealthCheck time.Time
}

// NewClient creates a client connection. The connection is established
// lazily on the first call.
func NewClient(ctx context.Context, connConfig *ConnectionConfig, opts ...ClientOption) (*ClientConn, error) {
	if connConfig == nil {
		return nil, errConnectionConfigRequired
	}

	c := &ClientConn{
		addr:       connConfig.Address,
		maxRetries: defaultMaxRetries,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.securityProvider == nil {
		provider, err := NewSecurityProvider(ctx, &connConfig.Security)
		if err != nil {
			return nil, fmt.Errorf("failed to create security provider: %w", err)
		}

		c.securityProvider = provider
		c.ownsProvider = true
	}

	dialOpts, err := c.createDialOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create dial options: %w", err)
	}

	conn, err := grpc.NewClient(connConfig.Address, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", connConfig.Address, err)
	}

	c.conn = conn
	c.healthClient = grpc_health_v1.NewHealthClient(conn)

	log.Printf("Created new gRPC client connection to %s", connConfig.Address)

	return c, nil
}

func (c *ClientConn) createDialOptions(ctx context.Context) ([]grpc.DialOption, error) {
	creds, err := c.securityProvider.GetClientCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get client credentials: %w", err)
	}

	dialOpts := []grpc.DialOption{
		creds,
		grpc.WithChainUnaryInterceptor(
			ClientLoggingInterceptor,
			RetryInterceptor(c.maxRetries),
		),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                grpcKeepAliveTime,
			Timeout:             grpcKeepAliveTimeout,
			PermitWithoutStream: true,
		}),
	}

	return append(dialOpts, c.extraDialOpts...), nil
}

// RetryInterceptor retries failed unary calls up to attempts times with a
// linear backoff, giving up early when the context ends.
func RetryInterceptor(attempts int) grpc.UnaryClientInterceptor {
	if attempts < 1 {
		attempts = 1
	}

	return func(ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption) error {
		var lastErr error

		for attempt := 0; attempt < attempts; attempt++ {
			err := invoker(ctx, method, req, reply, cc, opts...)
			if err == nil {
				return nil
			}

			lastErr = err
			log.Printf("gRPC call %s attempt %d failed: %v", method, attempt+1, err)

			if attempt == attempts-1 {
				break
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt+1) * retryBackoffStep):
			}
		}

		return fmt.Errorf("%w: %w", errRetriesExhausted, lastErr)
	}
}

// WithMaxRetries sets the maximum number of attempts per call.
func WithMaxRetries(retries int) ClientOption {
	return func(c *ClientConn) {
		c.maxRetries = retries
	}
}

// WithSecurityProvider sets the security provider for the client. The caller
// keeps ownership and must close it.
func WithSecurityProvider(provider SecurityProvider) ClientOption {
	return func(c *ClientConn) {
		c.securityProvider = provider
	}
}

// WithDialOptions appends raw dial options, e.g. a custom dialer in tests.
func WithDialOptions(opts ...grpc.DialOption) ClientOption {
	return func(c *ClientConn) {
		c.extraDialOpts = append(c.extraDialOpts, opts...)
	}
}

// GetConnection returns the underlying gRPC connection.
func (c *ClientConn) GetConnection() *grpc.ClientConn {
	return c.conn
}

// Invoke performs a unary call on the underlying connection.
func (c *ClientConn) Invoke(ctx context.Context, method string, req, reply interface{}) error {
	return c.conn.Invoke(ctx, method, req, reply)
}

// Close closes the client connection.
func (c *ClientConn) Close() error {
	if c.ownsProvider && c.securityProvider != nil {
		if err := c.securityProvider.Close(); err != nil {
			log.Printf("Failed to close security provider: %v", err)
		}
	}

	return c.conn.Close()
}

// CheckHealth reports whether service is SERVING. An empty service asks for
// the server as a whole.
func (c *ClientConn) CheckHealth(ctx context.Context, service string) (bool, error) {
	resp, err := c.healthClient.Check(ctx, &grpc_health_v1.HealthCheckRequest{
		Service: service,
	})
	if err != nil {
		return false, fmt.Errorf("health check failed: %w", err)
	}

	c.mu.Lock()
	c.lastHealthCheck = time.Now()
	c.mu.Unlock()

	return resp.Status == grpc_health_v1.HealthCheckResponse_SERVING, nil
}

// GetLastHealthCheck returns the time of the last answered health check.
func (c *ClientConn) GetLastHealthCheck() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastHealthCheck
}

// ClientLoggingInterceptor logs client-side RPC calls.
func ClientLoggingInterceptor(
	ctx context.Context,
	method string,
	req interface{},
	reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption) error {
	start := time.Now()
	err := invoker(ctx, method, req, reply, cc, opts...)
	log.Printf("gRPC client call: %s Duration: %v Error: %v",
		method,
		time.Since(start),
		err)

	return err
}
