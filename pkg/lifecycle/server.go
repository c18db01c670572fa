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

// Package lifecycle runs a service together with its HTTP and gRPC servers
// and shuts everything down on a signal or the first failure.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/mfreeman451/systempulse/pkg/grpc"
	"github.com/mfreeman451/systempulse/pkg/models"
)

const (
	MaxRecvSize       = 4 * 1024 * 1024 // 4MB
	MaxSendSize       = 4 * 1024 * 1024 // 4MB
	ShutdownTimeout   = 10 * time.Second
	ReadHeaderTimeout = 10 * time.Second
)

var errNothingToRun = errors.New("service, HTTP handler or gRPC address is required")

// Service defines the interface that all services must implement.
type Service interface {
	Start(context.Context) error
	Stop(context.Context) error
}

// GRPCServiceRegistrar registers services on the gRPC server before it starts.
type GRPCServiceRegistrar func(*grpc.Server) error

// ServerOptions holds configuration for RunServer. A listener, when set,
// takes precedence over its address.
type ServerOptions struct {
	ServiceName string
	Service     Service

	HTTPAddr       string
	HTTPListener   net.Listener
	HTTPHandler    http.Handler
	MaxConnections int

	GRPCAddr             string
	GRPCListener         net.Listener
	RegisterGRPCServices []GRPCServiceRegistrar
	Security             *models.SecurityConfig

	ShutdownTimeout time.Duration
}

// RunServer starts the service and servers, then blocks until ctx is done, a
// SIGINT/SIGTERM arrives or a server fails. Everything is stopped before it
// returns.
func RunServer(ctx context.Context, opts *ServerOptions) error {
	if opts.Service == nil && opts.HTTPHandler == nil && opts.GRPCAddr == "" && opts.GRPCListener == nil {
		return errNothingToRun
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("*** Starting service %s", opts.ServiceName)

	grpcServer, closeSecurity, err := setupGRPCServer(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to setup gRPC server: %w", err)
	}
	defer closeSecurity()

	httpServer, httpLis, err := setupHTTPServer(opts)
	if err != nil {
		return err
	}

	grpcLis := opts.GRPCListener
	if grpcServer != nil && grpcLis == nil {
		if grpcLis, err = net.Listen("tcp", opts.GRPCAddr); err != nil {
			closeListener(httpLis)

			return fmt.Errorf("failed to listen on %s: %w", opts.GRPCAddr, err)
		}
	}

	if opts.Service != nil {
		if err := opts.Service.Start(ctx); err != nil {
			closeListener(httpLis)
			closeListener(grpcLis)

			return fmt.Errorf("service error: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if httpServer != nil {
		g.Go(func() error {
			log.Printf("Starting HTTP server on %s", httpLis.Addr())

			if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}

			return nil
		})
	}

	if grpcServer != nil {
		g.Go(func() error {
			return grpcServer.Serve(grpcLis)
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		if ctx.Err() != nil {
			log.Printf("Shutdown requested for %s", opts.ServiceName)
		} else {
			log.Printf("Server failure, shutting down %s", opts.ServiceName)
		}

		return shutdown(opts, httpServer, grpcServer)
	})

	return g.Wait()
}

func shutdown(opts *ServerOptions, httpServer *http.Server, grpcServer *grpc.Server) error {
	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = ShutdownTimeout
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			errs = append(errs, err)
		}
	}

	if grpcServer != nil {
		grpcServer.Stop(shutdownCtx)
	}

	if opts.Service != nil {
		if err := opts.Service.Stop(shutdownCtx); err != nil {
			log.Printf("Error during service shutdown: %v", err)
			errs = append(errs, fmt.Errorf("shutdown error: %w", err))
		}
	}

	return errors.Join(errs...)
}

func setupHTTPServer(opts *ServerOptions) (*http.Server, net.Listener, error) {
	if opts.HTTPHandler == nil {
		return nil, nil, nil
	}

	lis := opts.HTTPListener
	if lis == nil {
		var err error

		if lis, err = net.Listen("tcp", opts.HTTPAddr); err != nil {
			return nil, nil, fmt.Errorf("failed to listen on %s: %w", opts.HTTPAddr, err)
		}
	}

	if opts.MaxConnections > 0 {
		lis = netutil.LimitListener(lis, opts.MaxConnections)
	}

	srv := &http.Server{
		Handler:           opts.HTTPHandler,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}

	return srv, lis, nil
}

func setupGRPCServer(ctx context.Context, opts *ServerOptions) (*grpc.Server, func(), error) {
	noop := func() {}

	if opts.GRPCAddr == "" && opts.GRPCListener == nil {
		return nil, noop, nil
	}

	serverOpts := []grpc.ServerOption{
		grpc.WithMaxRecvSize(MaxRecvSize),
		grpc.WithMaxSendSize(MaxSendSize),
	}

	closeSecurity := noop

	if opts.Security != nil {
		provider, err := grpc.NewSecurityProvider(ctx, opts.Security)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create security provider: %w", err)
		}

		creds, err := provider.GetServerCredentials(ctx)
		if err != nil {
			if closeErr := provider.Close(); closeErr != nil {
				log.Printf("Failed to close security provider: %v", closeErr)
			}

			return nil, noop, fmt.Errorf("failed to get server credentials: %w", err)
		}

		serverOpts = append(serverOpts, grpc.WithServerOptions(creds))
		closeSecurity = func() {
			if err := provider.Close(); err != nil {
				log.Printf("Failed to close security provider: %v", err)
			}
		}
	}

	grpcServer := grpc.NewServer(opts.GRPCAddr, serverOpts...)
	grpcServer.AddService(opts.ServiceName)

	for _, register := range opts.RegisterGRPCServices {
		if err := register(grpcServer); err != nil {
			closeSecurity()

			return nil, noop, fmt.Errorf("failed to register gRPC service: %w", err)
		}
	}

	return grpcServer, closeSecurity, nil
}

func closeListener(lis net.Listener) {
	if lis == nil {
		return
	}

	if err := lis.Close(); err != nil {
		log.Printf("Failed to close listener: %v", err)
	}
}
