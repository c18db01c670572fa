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

// Package server builds the complete service from its configuration.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/mfreeman451/systempulse/pkg/api"
	"github.com/mfreeman451/systempulse/pkg/dashboards"
	"github.com/mfreeman451/systempulse/pkg/db"
	"github.com/mfreeman451/systempulse/pkg/engine"
	"github.com/mfreeman451/systempulse/pkg/grpc"
	"github.com/mfreeman451/systempulse/pkg/lifecycle"
	"github.com/mfreeman451/systempulse/pkg/metrics"
	"github.com/mfreeman451/systempulse/pkg/monitoring"
	"github.com/mfreeman451/systempulse/pkg/notify"
	"github.com/mfreeman451/systempulse/pkg/probe"
	"github.com/mfreeman451/systempulse/pkg/sampler"
	"github.com/mfreeman451/systempulse/pkg/source"
)

const cleanupInterval = time.Hour

// Server owns the engine and every surface around it.
type Server struct {
	config   *Config
	source   sampler.Source
	probe    sampler.Probe
	engine   *engine.Engine
	api      *api.APIServer
	exporter *metrics.Exporter
	watcher  *notify.Watcher
	monitor  *monitoring.HealthMonitor
	store    db.Service

	grpcMu     sync.Mutex
	grpcServer *grpc.Server

	cancel  context.CancelFunc
	started atomic.Bool
	wg      sync.WaitGroup
}

// New builds the service. cfg must have been validated.
func New(ctx context.Context, cfg *Config) (s *Server, err error) {
	s = &Server{config: cfg, exporter: metrics.NewExporter()}

	defer func() {
		if err != nil {
			s.closeResources()
		}
	}()

	if s.source, err = source.New(ctx, &cfg.Source); err != nil {
		return nil, fmt.Errorf("failed to create source: %w", err)
	}

	samplerOpts := []sampler.Option{
		sampler.WithSkipWhileDisconnected(cfg.SkipWhileDisconnected),
	}

	if cfg.FetchTimeout > 0 {
		samplerOpts = append(samplerOpts, sampler.WithFetchTimeout(cfg.FetchTimeout.Std()))
	}

	if cfg.Probe != nil {
		if s.probe, err = probe.DefaultRegistry(s.source).Get(ctx, cfg.Probe); err != nil {
			return nil, fmt.Errorf("failed to create probe: %w", err)
		}

		samplerOpts = append(samplerOpts, sampler.WithProbe(s.probe, cfg.Probe.Interval.Std()))
	}

	engineOpts := []engine.Option{
		engine.WithSamplerOptions(samplerOpts...),
		engine.WithObserver(s.exporter),
		engine.WithObserver(engine.ObserverFunc(s.updateServing)),
	}

	notifiers := make([]notify.Notifier, 0, len(cfg.Webhooks))
	for i := range cfg.Webhooks {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.Webhooks[i]))
	}

	s.watcher = notify.NewWatcher(s.source.Name(), notifiers...)
	engineOpts = append(engineOpts, engine.WithObserver(s.watcher))

	if cfg.DBPath != "" {
		if s.store, err = db.New(cfg.DBPath); err != nil {
			return nil, err
		}

		engineOpts = append(engineOpts, engine.WithObserver(newCheckpointer(s.store)))
	}

	engCfg, err := cfg.engineConfig()
	if err != nil {
		return nil, err
	}

	if s.engine, err = engine.New(s.source, engCfg, engineOpts...); err != nil {
		return nil, err
	}

	if cfg.Restore && s.store != nil {
		s.restore()
	}

	apiOpts, err := s.apiOptions()
	if err != nil {
		return nil, err
	}

	if s.api, err = api.NewAPIServer(s.engine, apiOpts...); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Server) restore() {
	current, previous, err := s.store.LoadCheckpoint()
	if err != nil {
		log.Printf("Failed to load checkpoint, starting empty: %v", err)

		return
	}

	if current == nil {
		return
	}

	s.engine.Restore(current, previous)
	log.Printf("Restored snapshot generation %d from %s", current.Generation, s.config.DBPath)
}

func (s *Server) apiOptions() ([]api.Option, error) {
	cfg := s.config

	builder, err := dashboards.NewBuilder(cfg.Grafana)
	if err != nil {
		return nil, err
	}

	opts := []api.Option{
		api.WithRecorder(s.exporter),
		api.WithMetricsHandler(s.exporter.Handler()),
		api.WithDashboards(builder),
		api.WithCORSOrigins(cfg.CORS.AllowedOrigins),
		api.WithRefreshLimit(rate.Limit(cfg.Refresh.RatePerSecond), cfg.Refresh.Burst),
		api.WithServiceName(cfg.ServiceName),
	}

	if cfg.StaticDir != "" {
		opts = append(opts, api.WithStaticDir(cfg.StaticDir))
	}

	if s.store != nil {
		opts = append(opts, api.WithEventStore(s.store))
	}

	if cfg.Upstream != nil {
		if s.monitor, err = monitoring.NewHealthMonitor(monitoring.Config{
			BaseURL:  cfg.Upstream.BaseURL,
			Interval: cfg.Upstream.Interval.Std(),
		}); err != nil {
			return nil, err
		}

		opts = append(opts, api.WithUpstream(s.monitor))
	}

	return opts, nil
}

func (s *Server) Engine() *engine.Engine {
	return s.engine
}

func (s *Server) Handler() http.Handler {
	return s.api.Handler()
}

// Start implements lifecycle.Service.
func (s *Server) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	if err := s.engine.Start(runCtx); err != nil {
		cancel()

		return err
	}

	s.started.Store(true)

	if s.monitor != nil {
		s.wg.Add(1)

		go func() {
			defer s.wg.Done()

			if err := s.monitor.Run(runCtx); err != nil {
				log.Printf("Upstream health monitor stopped: %v", err)
			}
		}()
	}

	if s.store != nil {
		s.wg.Add(1)

		go func() {
			defer s.wg.Done()
			s.cleanupLoop(runCtx)
		}()
	}

	log.Printf("Polling %s every %v (auto refresh %v)", s.source.Name(), s.engine.Settings().Interval,
		s.engine.Settings().AutoRefresh)

	return nil
}

func (s *Server) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.store.CleanOldData(s.config.EventRetention.Std()); err != nil {
				log.Printf("Failed to clean old connection events: %v", err)
			}
		}
	}
}

// Stop implements lifecycle.Service.
func (s *Server) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	if s.monitor != nil {
		s.monitor.Stop()
	}

	s.api.Stop()

	err := s.engine.Stop(ctx)

	s.watcher.Wait()
	s.wg.Wait()

	return errors.Join(err, s.closeResources())
}

func (s *Server) closeResources() error {
	var errs []error

	if c, ok := s.probe.(io.Closer); ok {
		errs = append(errs, c.Close())
	}

	if c, ok := s.source.(source.Closer); ok {
		errs = append(errs, c.Close())
	}

	if s.store != nil {
		errs = append(errs, s.store.Close())
	}

	return errors.Join(errs...)
}

// RegisterGRPC serves the current readings and ties the health status to
// engine readiness.
func (s *Server) RegisterGRPC(gs *grpc.Server) error {
	source.RegisterMetricsServer(gs.GetGRPCServer(), &metricsService{engine: s.engine})
	gs.AddService(source.MetricsServiceName)

	s.grpcMu.Lock()
	s.grpcServer = gs
	s.grpcMu.Unlock()

	gs.SetServing(s.engine.Ready())

	return nil
}

func (s *Server) updateServing(u engine.Update) {
	s.grpcMu.Lock()
	gs := s.grpcServer
	s.grpcMu.Unlock()

	if gs != nil {
		gs.SetServing(u.State.Current != nil)
	}
}

// LifecycleOptions describes how lifecycle.RunServer should run s.
func (s *Server) LifecycleOptions() *lifecycle.ServerOptions {
	opts := &lifecycle.ServerOptions{
		ServiceName:    s.config.ServiceName,
		Service:        s,
		HTTPAddr:       s.config.ListenAddr,
		HTTPHandler:    s.Handler(),
		MaxConnections: s.config.MaxConnections,
		GRPCAddr:       s.config.GRPCAddr,
		Security:       s.config.Security,
	}

	if s.config.GRPCAddr != "" {
		opts.RegisterGRPCServices = []lifecycle.GRPCServiceRegistrar{s.RegisterGRPC}
	}

	return opts
}

// Run builds the service from cfg and runs it until ctx ends or a signal
// arrives.
func Run(ctx context.Context, cfg *Config) error {
	s, err := New(ctx, cfg)
	if err != nil {
		return err
	}

	err = lifecycle.RunServer(ctx, s.LifecycleOptions())

	// the lifecycle only stops services it managed to start
	if !s.started.Load() {
		if closeErr := s.closeResources(); closeErr != nil {
			log.Printf("Failed to release resources: %v", closeErr)
		}
	}

	return err
}
