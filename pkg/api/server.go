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

// Package api serves the real-time view, its settings and the supporting
// endpoints over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/mfreeman451/systempulse/pkg/dashboards"
	httpx "github.com/mfreeman451/systempulse/pkg/http"
	"github.com/mfreeman451/systempulse/pkg/metrics"
	"github.com/mfreeman451/systempulse/pkg/models"
)

type APIServer struct {
	engine         Engine
	router         *mux.Router
	handler        http.Handler
	upgrader       websocket.Upgrader
	recorder       metrics.Recorder
	metricsHandler http.Handler
	upstream       UpstreamMonitor
	events         EventStore
	dashboards     *dashboards.Builder
	limiter        *rate.Limiter
	origins        []string
	staticDir      string
	serviceName    string
	now            func() time.Time

	stop     chan struct{}
	streamMu sync.Mutex
	stopping bool
	streams  sync.WaitGroup
}

func NewAPIServer(eng Engine, opts ...Option) (*APIServer, error) {
	if eng == nil {
		return nil, errEngineRequired
	}

	s := &APIServer{
		engine:      eng,
		router:      mux.NewRouter(),
		limiter:     rate.NewLimiter(defaultRefreshRate, defaultRefreshBurst),
		serviceName: defaultServiceName,
		now:         time.Now,
		stop:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}

	if s.dashboards == nil {
		b, err := dashboards.NewBuilder(dashboards.Config{})
		if err != nil {
			return nil, err
		}

		s.dashboards = b
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  streamBufferBytes,
		WriteBufferSize: streamBufferBytes,
		CheckOrigin:     s.checkOrigin,
	}

	s.setupRoutes()

	return s, nil
}

// Handler returns the router wrapped in CORS and request logging.
func (s *APIServer) Handler() http.Handler {
	return s.handler
}

// Stop closes open streams and waits for their handlers to return.
func (s *APIServer) Stop() {
	s.streamMu.Lock()
	if !s.stopping {
		s.stopping = true
		close(s.stop)
	}
	s.streamMu.Unlock()

	s.streams.Wait()
}

func (s *APIServer) setupRoutes() {
	s.router.Use(httpx.Instrument(s.recorder))

	v1 := s.router.PathPrefix(apiPrefix).Subrouter()

	v1.HandleFunc("/realtime", s.getRealtime).Methods(http.MethodGet)
	v1.HandleFunc("/realtime/stream", s.streamRealtime).Methods(http.MethodGet)
	v1.HandleFunc("/realtime/refresh", s.refreshRealtime).Methods(http.MethodPost)
	v1.HandleFunc("/realtime/settings", s.getSettings).Methods(http.MethodGet)
	v1.HandleFunc("/realtime/settings", s.updateSettings).Methods(http.MethodPut)
	v1.HandleFunc("/realtime/events", s.getConnectionEvents).Methods(http.MethodGet)
	v1.HandleFunc("/catalog", s.getCatalog).Methods(http.MethodGet)

	v1.HandleFunc("/upstream/health", s.getUpstreamHealth).Methods(http.MethodGet)

	v1.HandleFunc("/dashboards", s.getDashboards).Methods(http.MethodGet)
	v1.HandleFunc("/dashboards/{id}", s.getDashboard).Methods(http.MethodGet)

	v1.HandleFunc("/webhook", s.receiveAlerts).Methods(http.MethodPost)
	v1.HandleFunc("/webhook/health", s.webhookHealth).Methods(http.MethodGet)

	v1.HandleFunc("/health", s.health).Methods(http.MethodGet)
	v1.HandleFunc("/health/ready", s.ready).Methods(http.MethodGet)
	v1.HandleFunc("/health/live", s.live).Methods(http.MethodGet)

	if s.metricsHandler != nil {
		s.router.Handle("/metrics", s.metricsHandler).Methods(http.MethodGet)
	}

	if s.staticDir != "" {
		s.router.PathPrefix("/").Handler(spaHandler{root: s.staticDir, indexPath: "index.html"})
	}

	// preflight requests never reach a route restricted by method
	s.handler = httpx.CORS(s.origins)(httpx.Logging(s.router))
}

func (s *APIServer) getRealtime(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, s.engine.View())
}

func (s *APIServer) refreshRealtime(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		w.Header().Set("Retry-After", retryAfter(s.limiter))
		writeError(w, http.StatusTooManyRequests, "refresh rate limit exceeded")

		return
	}

	view, err := s.engine.RefreshNow(r.Context())
	if err == nil {
		writeJSON(w, http.StatusOK, view)

		return
	}

	var acqErr *models.AcquisitionError

	switch {
	case errors.As(err, &acqErr):
		log.Printf("Manual refresh failed: %v", err)
		writeJSON(w, http.StatusBadGateway, view)
	case errors.Is(err, models.ErrFetchDiscarded), errors.Is(err, models.ErrSamplerClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Printf("Manual refresh error: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func retryAfter(l *rate.Limiter) string {
	if l.Limit() <= 0 || l.Limit() == rate.Inf {
		return "1"
	}

	return strconv.Itoa(int(math.Max(1, math.Round(1/float64(l.Limit())))))
}

func (s *APIServer) settingsResponse() SettingsResponse {
	st := s.engine.Settings()

	allowed := make([]string, len(st.AllowedIntervals))
	for i, d := range st.AllowedIntervals {
		allowed[i] = d.String()
	}

	return SettingsResponse{
		Interval:         st.Interval.String(),
		AutoRefresh:      st.AutoRefresh,
		AllowedIntervals: allowed,
	}
}

func (s *APIServer) getSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.settingsResponse())
}

func (s *APIServer) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest

	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())

		return
	}

	if req.Interval == nil && req.AutoRefresh == nil {
		writeError(w, http.StatusBadRequest, errEmptyUpdate.Error())

		return
	}

	var interval time.Duration

	// validate everything before changing anything
	if req.Interval != nil {
		d, err := s.engine.ParseInterval(*req.Interval)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())

			return
		}

		interval = d
	}

	if req.Interval != nil {
		if err := s.engine.SetInterval(interval); err != nil {
			s.settingsError(w, err)

			return
		}
	}

	if req.AutoRefresh != nil {
		if err := s.engine.SetAutoRefresh(*req.AutoRefresh); err != nil {
			s.settingsError(w, err)

			return
		}
	}

	log.Printf("Settings updated: %+v", s.engine.Settings())

	writeJSON(w, http.StatusOK, s.settingsResponse())
}

func (*APIServer) settingsError(w http.ResponseWriter, err error) {
	var cfgErr *models.ConfigError
	if errors.As(err, &cfgErr) {
		writeError(w, http.StatusBadRequest, err.Error())

		return
	}

	writeError(w, http.StatusServiceUnavailable, err.Error())
}

func (s *APIServer) getConnectionEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusNotFound, errNoEventStore.Error())

		return
	}

	limit := defaultEventLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errInvalidLimit.Error())

			return
		}

		limit = min(n, maxEventLimit)
	}

	events, err := s.events.GetConnectionEvents(limit)
	if err != nil {
		log.Printf("Error reading connection events: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read connection events")

		return
	}

	writeJSON(w, http.StatusOK, events)
}

func (s *APIServer) getCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Catalog())
}

func (s *APIServer) getUpstreamHealth(w http.ResponseWriter, _ *http.Request) {
	statuses := []models.HealthStatus{}

	if s.upstream != nil {
		statuses = append(statuses, s.upstream.Statuses()...)
	}

	writeJSON(w, http.StatusOK, statuses)
}

func (s *APIServer) getDashboards(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dashboards.List())
}

func (s *APIServer) getDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.dashboards.Get(mux.Vars(r)["id"])
	if err != nil {
		if dashboards.IsNotFound(err) {
			writeError(w, http.StatusNotFound, err.Error())

			return
		}

		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	writeJSON(w, http.StatusOK, d)
}

func (s *APIServer) receiveAlerts(w http.ResponseWriter, r *http.Request) {
	var payload AlertmanagerPayload

	if err := decodeBody(r, &payload, false); err != nil {
		log.Printf("Error processing webhook: %v", err)
		writeJSON(w, http.StatusBadRequest, WebhookResponse{Status: "error", Message: err.Error()})

		return
	}

	for _, alert := range payload.Alerts {
		name := labelOr(alert.Labels, "alertname", "unknown")
		severity := labelOr(alert.Labels, "severity", "unknown")
		status := alert.Status

		if status == "" {
			status = "unknown"
		}

		s.recorder.APICall("webhook", "/webhook")

		log.Printf("Alert: %s, Severity: %s, Status: %s", name, severity, status)

		if severity == "critical" && status == "firing" {
			log.Printf("CRITICAL ALERT: %s", name)
		}
	}

	writeJSON(w, http.StatusOK, WebhookResponse{
		Status:    "success",
		Message:   "Webhook processed",
		Processed: len(payload.Alerts),
	})
}

func labelOr(labels map[string]string, key, fallback string) string {
	if v := labels[key]; v != "" {
		return v
	}

	return fallback
}

func (*APIServer) webhookHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "healthy", Service: "webhook"})
}

func (s *APIServer) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:    "healthy",
		Service:   s.serviceName,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
}

func (s *APIServer) ready(w http.ResponseWriter, _ *http.Request) {
	if !s.engine.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, StatusResponse{
			Status:  "not ready",
			Message: "no successful sample yet",
		})

		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "ready"})
}

func (*APIServer) live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "alive"})
}

func (s *APIServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowed := range s.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return strings.EqualFold(strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://"), r.Host)
}

func decodeBody(r *http.Request, dst interface{}, strict bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if strict {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, StatusResponse{Status: "error", Message: msg})
}

// spaHandler serves files from root and falls back to the index for client-side routes.
type spaHandler struct {
	root      string
	indexPath string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clean := path.Clean("/" + r.URL.Path)
	file := filepath.Join(h.root, filepath.FromSlash(clean))

	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		http.ServeFile(w, r, filepath.Join(h.root, h.indexPath))

		return
	}

	http.ServeFile(w, r, file)
}
