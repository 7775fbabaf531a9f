// Package httpx provides HTTP server plumbing shared by the runrate
// services: a graceful server wrapper, JSON response helpers and a request
// logging middleware.
package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Server wraps http.Server with sane timeouts and graceful shutdown.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer creates an HTTP server listening on addr. A nil handler uses
// http.DefaultServeMux.
func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Start serves requests until the server is stopped. It blocks.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("httpx: server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down, waiting up to timeout for active
// connections to drain.
func (s *Server) Stop(timeout time.Duration) error {
	s.logger.Info("stopping HTTP server", "timeout", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("httpx: shutdown failed: %w", err)
	}
	return nil
}

// ErrorResponse is the JSON body of every error reply: {"error":"<msg>"}.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		return fmt.Errorf("httpx: encode JSON: %w", err)
	}
	return nil
}

// WriteError writes err as a JSON error response.
func WriteError(w http.ResponseWriter, status int, err error) {
	WriteErrorMessage(w, status, err.Error())
}

// WriteErrorMessage writes a JSON error response with a custom message.
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	if err := WriteJSON(w, status, ErrorResponse{Error: message}); err != nil {
		slog.Error("failed to write error response", "error", err, "message", message)
	}
}

// HealthHandler responds 200 OK unconditionally.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("failed to write health response", "error", err)
		}
	}
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// LoggingMiddleware logs method, path, status and duration of every
// request.
func LoggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
