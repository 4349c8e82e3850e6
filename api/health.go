// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/soothill/smart-home-manager/pkg/logger"
)

const readinessCheckTimeout = 2 * time.Second

// health reports that the process is serving requests
func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, writeErr := w.Write([]byte("OK")); writeErr != nil {
		logger.Error().Err(writeErr).Msg("Failed to write health check response")
	}
}

// ready runs every registered health check and fails on the first unhealthy
// backend
func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(s.opts.Checks))
	for name := range s.opts.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.opts.Checks[name].Health(ctx); err != nil {
			logger.Warn().Err(err).Str("check", name).Msg("Readiness check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, writeErr := w.Write([]byte("NOT READY: " + name + " unhealthy")); writeErr != nil {
				logger.Error().Err(writeErr).Msg("Failed to write readiness check response")
			}
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	if _, writeErr := w.Write([]byte("READY")); writeErr != nil {
		logger.Error().Err(writeErr).Msg("Failed to write readiness check response")
	}
}
