// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

// Package api exposes the operational HTTP surface: health probes and
// Prometheus metrics. The pipeline itself is broker-driven; nothing here
// touches delivery semantics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/synzen/MonitoRSS-sub001/internal/logging"
)

// Pinger reports storage reachability. Satisfied by *database.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BrokerStatus reports broker liveness. Satisfied by
// *eventprocessor.EmbeddedServer; nil when an external broker is used.
type BrokerStatus interface {
	IsRunning() bool
}

// Router builds the operational HTTP handler.
type Router struct {
	db     Pinger
	broker BrokerStatus
}

// NewRouter creates a router over the given dependencies. broker may be nil.
func NewRouter(db Pinger, broker BrokerStatus) *Router {
	return &Router{db: db, broker: broker}
}

// Handler returns the assembled chi handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(prometheusMetrics)

	r.Get("/healthz", rt.healthLive)
	r.Get("/readyz", rt.healthReady)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthLive reports process liveness only.
func (rt *Router) healthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// healthReady reports whether the service can do useful work: storage
// reachable and, when embedded, the broker running.
func (rt *Router) healthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := rt.db.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if rt.broker != nil {
		if rt.broker.IsRunning() {
			checks["broker"] = "ok"
		} else {
			checks["broker"] = "not running"
			healthy = false
		}
	}

	status := http.StatusOK
	resp := healthResponse{Status: "ok", Checks: checks}
	if !healthy {
		status = http.StatusServiceUnavailable
		resp.Status = "unavailable"
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("failed to encode health response")
	}
}

// Server runs the operational HTTP listener as a supervised service.
type Server struct {
	addr    string
	timeout time.Duration
	handler http.Handler
}

// NewServer binds the router to an address.
func NewServer(addr string, timeout time.Duration, handler http.Handler) *Server {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Server{addr: addr, timeout: timeout, handler: handler}
}

// Serve runs the listener until ctx is cancelled, then drains connections.
// Implements suture.Service.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.timeout,
		WriteTimeout:      s.timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("http server shutdown incomplete")
		}
		return ctx.Err()
	}
}

func (s *Server) String() string {
	return "http-server(" + s.addr + ")"
}
