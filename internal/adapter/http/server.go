// Package http exposes the thin query surface: risk and sounding queries,
// cache stats, health, readiness, and Prometheus metrics. Handlers validate
// input and delegate to the core; no risk logic lives here.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skysight/thunderhead/internal/domain"
	"github.com/skysight/thunderhead/internal/geocache"
)

// RiskService answers directional queries from cache.
type RiskService interface {
	GetOrCompute(ctx context.Context, origin domain.Coordinate) (map[domain.Direction]domain.DirectionalResult, error)
	Stats(ctx context.Context) (geocache.Stats, error)
}

// PointAssessor answers single-point queries without caching.
type PointAssessor interface {
	AssessPoint(ctx context.Context, origin domain.Coordinate) (domain.SoundingSample, domain.RiskAssessment, error)
}

// ReadinessChecker reports whether the service can serve traffic.
type ReadinessChecker interface {
	Ping(ctx context.Context) error
}

// Server wires the HTTP routes.
type Server struct {
	httpServer *http.Server
	risk       RiskService
	assessor   PointAssessor
	quiet      domain.QuietHours
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewServer creates the HTTP server. Both query modes share the quiet-hours
// suppression: during the window they return 503 with a Retry-After hint so
// clients back off instead of hammering a core that will not scan.
func NewServer(addr string, risk RiskService, assessor PointAssessor, ready ReadinessChecker, quiet domain.QuietHours, clk clockwork.Clock, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		risk:     risk,
		assessor: assessor,
		quiet:    quiet,
		clock:    clk,
		logger:   logger.With("component", "http"),
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/risk", s.handleRisk)
	mux.HandleFunc("GET /v1/sounding", s.handleSounding)
	mux.HandleFunc("GET /v1/cache/stats", s.handleStats)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleRisk serves directional mode: the 4-direction map for the grid cell
// containing the requested point.
func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	if s.suppressed(w) {
		return
	}
	coord, ok := s.parseCoordinate(w, r)
	if !ok {
		return
	}

	results, err := s.risk.GetOrCompute(r.Context(), coord)
	if err != nil {
		s.logger.Error("risk query failed", "lat", coord.Lat, "lon", coord.Lon, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "risk assessment unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"coordinate": coord,
		"grid_key":   domain.GridKeyFor(coord),
		"results":    results,
	})
}

// handleSounding serves single-point mode: one sounding plus its assessment,
// bypassing the cache.
func (s *Server) handleSounding(w http.ResponseWriter, r *http.Request) {
	if s.suppressed(w) {
		return
	}
	coord, ok := s.parseCoordinate(w, r)
	if !ok {
		return
	}

	sample, assessment, err := s.assessor.AssessPoint(r.Context(), coord)
	if err != nil {
		s.logger.Error("sounding query failed", "lat", coord.Lat, "lon", coord.Lon, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "sounding unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"coordinate": coord,
		"sample":     sample,
		"assessment": assessment,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.risk.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// suppressed writes a 503 during the quiet-hours window and reports whether
// the request was blocked.
func (s *Server) suppressed(w http.ResponseWriter) bool {
	now := s.clock.Now()
	if !s.quiet.Contains(now) {
		return false
	}
	retryAfter := int(s.quiet.Until(now).Seconds())
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "service in quiet hours"})
	return true
}

func (s *Server) parseCoordinate(w http.ResponseWriter, r *http.Request) (domain.Coordinate, bool) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat and lon query parameters are required numbers"})
		return domain.Coordinate{}, false
	}
	coord := domain.Coordinate{Lat: lat, Lon: lon}
	if err := coord.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid coordinate: %v", err)})
		return domain.Coordinate{}, false
	}
	return coord, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
