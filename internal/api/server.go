// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package api is the process wrapper a deployment puts around the
// detection core: a small gorilla/mux router exposing Prometheus metrics
// and a compile-status health check. The detection operations themselves
// have no HTTP surface — this is ops tooling only.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lorasec.io/detect/internal/engine"
	"lorasec.io/detect/internal/logging"
	"lorasec.io/detect/internal/metrics"
)

// Server is the detection core's HTTP status surface.
type Server struct {
	router *mux.Router
	reg    *metrics.Registry
	eng    *engine.Engine
	logger *logging.Logger
}

// NewServer builds a Server exposing reg's metrics at /metrics and eng's
// compile-time counters at /healthz. logger may be nil.
func NewServer(reg *metrics.Registry, eng *engine.Engine, logger *logging.Logger) *Server {
	s := &Server{router: mux.NewRouter(), reg: reg, eng: eng, logger: logger}
	s.router.Handle("/metrics", promhttp.HandlerFor(reg.Prometheus(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	return s
}

// Router returns the underlying *mux.Router, for use with http.Server or
// httptest.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	st := s.eng.Status()

	w.Header().Set("Content-Type", "application/json")
	if !st.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(st); err != nil && s.logger != nil {
		s.logger.Error("api: failed to encode healthz response", "error", err)
	}
}
