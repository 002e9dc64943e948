// Package server exposes launch-argument resolution over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/abramin/launchargs/internal/decode"
	"github.com/abramin/launchargs/internal/launch"
	"github.com/abramin/launchargs/internal/model"
	"github.com/abramin/launchargs/internal/store"
)

const maxRequestBytes = 1 << 20

// Server is the resolution HTTP server.
type Server struct {
	resolver   launch.Resolver
	history    *store.Store
	logger     *zap.Logger
	httpServer *http.Server
	port       int
}

// Config holds server configuration.
type Config struct {
	Port     int
	Resolver launch.Resolver
	// History records every resolution when set. The caller owns it.
	History *store.Store
	Logger  *zap.Logger
}

// New creates a new server instance.
func New(cfg Config) (*Server, error) {
	if cfg.Resolver == nil {
		return nil, errors.New("server requires a resolver")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		resolver: cfg.Resolver,
		history:  cfg.History,
		logger:   logger,
		port:     cfg.Port,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/resolve", s.corsMiddleware(s.handleResolve))
	mux.HandleFunc("/api/history", s.corsMiddleware(s.handleHistory))
	mux.HandleFunc("/api/stats", s.corsMiddleware(s.handleStats))
	mux.HandleFunc("/api/health", s.corsMiddleware(s.handleHealth))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled or the process receives SIGINT or
// SIGTERM, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	<-errCh

	s.logger.Info("server stopped")
	return nil
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// corsMiddleware adds CORS headers for local clients.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encoding response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// handleResolve handles POST /api/resolve.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req model.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if len(req.TestNames) == 0 {
		s.writeError(w, http.StatusBadRequest, "testNames must not be empty")
		return
	}

	resp, err := s.resolver.Resolve(r.Context(), &req)
	if err == nil && (resp == nil || resp.Body == nil) {
		err = launch.ErrResolutionUnavailable
	}
	s.record(r.Context(), &req, resp, err)
	if err != nil {
		s.logger.Info("resolution failed",
			zap.String("project", req.ProjectName),
			zap.Int("selectors", len(req.TestNames)),
			zap.Error(err))
		s.writeError(w, statusFor(err), err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) record(ctx context.Context, req *model.Request, resp *model.Response, err error) {
	if s.history == nil {
		return
	}
	var args *model.LaunchArguments
	if resp != nil {
		args = resp.Body
	}
	if recErr := s.history.Record(ctx, req, args, err); recErr != nil {
		s.logger.Warn("recording resolution failed", zap.Error(recErr))
	}
}

// statusFor maps resolution errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, decode.ErrMalformedHandle),
		errors.Is(err, decode.ErrMalformedSignature),
		errors.Is(err, launch.ErrUnsupportedLevel),
		errors.Is(err, launch.ErrUnsupportedKind):
		return http.StatusBadRequest
	case errors.Is(err, launch.ErrResolutionUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStats returns history statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.history == nil {
		s.writeError(w, http.StatusNotFound, "history disabled")
		return
	}

	stats, err := s.history.GetStats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

// handleHistory handles GET /api/history?limit=N.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.history == nil {
		s.writeError(w, http.StatusNotFound, "history disabled")
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = l
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to get history")
		return
	}
	if entries == nil {
		entries = []*store.Resolution{}
	}

	s.writeJSON(w, http.StatusOK, entries)
}
