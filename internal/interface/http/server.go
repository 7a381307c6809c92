// Package http serves the worker's operational endpoints: health probes
// and the job console used to inspect and trigger scheduled jobs.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lifequest/lifequest-core/internal/infrastructure/scheduler"
	"github.com/lifequest/lifequest-core/internal/interface/http/handlers"
	"github.com/lifequest/lifequest-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// MaxHeaderBytes - maximum size of request headers.
	MaxHeaderBytes int
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// JobRunner is the part of the scheduler the job console needs.
type JobRunner interface {
	ListJobs() []scheduler.JobInfo
	RunNow(ctx context.Context, jobName string) (scheduler.JobResult, error)
}

// Dependencies contains everything the HTTP handlers use.
type Dependencies struct {
	Logger *slog.Logger

	// HealthChecker backs /health and /ready. Nil reports healthy.
	HealthChecker handlers.HealthChecker

	// Jobs backs the job console. Nil disables /jobs.
	Jobs JobRunner

	Version string
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	logger     *slog.Logger

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	s := &Server{
		config: config,
		deps:   deps,
		router: http.NewServeMux(),
		logger: deps.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With(logger.Component("http"))

	s.setupRoutes()
	s.handler = s.buildMiddlewareChain(s.router)

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.handler,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /healthz", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /live", s.handleLive)

	s.router.HandleFunc("GET /jobs", s.handleListJobs)
	s.router.HandleFunc("POST /jobs/{name}/run", s.handleRunJob)
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE CHAIN
// ══════════════════════════════════════════════════════════════════════════════

// buildMiddlewareChain wraps the router. The last wrapper runs first, so
// recovery sees panics from logging and request ID handling too.
func (s *Server) buildMiddlewareChain(handler http.Handler) http.Handler {
	h := handler
	h = s.loggingMiddleware(h)
	h = s.requestIDMiddleware(h)
	h = s.recoveryMiddleware(h)
	return h
}

// requestIDMiddleware adds a unique request ID to each request.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		ctx = logger.WithContext(ctx, s.logger.With(slog.String("request_id", requestID)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs every request. Probes log at debug level.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		level := slog.LevelInfo
		if isProbe(r.URL.Path) {
			level = slog.LevelDebug
		}
		logger.FromContext(r.Context()).Log(r.Context(), level, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rw.statusCode),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("ip", getClientIP(r)),
		)
	})
}

// recoveryMiddleware recovers from panics and returns 500.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
					slog.String("path", r.URL.Path),
				)
				writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"uptime":  s.Uptime().Round(time.Second).String(),
			"version": s.deps.Version,
		})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// JOB CONSOLE
// ══════════════════════════════════════════════════════════════════════════════

// JobRunResponse is returned by POST /jobs/{name}/run.
type JobRunResponse struct {
	Job        string `json:"job"`
	Success    bool   `json:"success"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Jobs == nil {
		writeJSONError(w, http.StatusNotFound, "scheduler_disabled", "The scheduler is not running")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Jobs.ListJobs())
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		writeJSONError(w, http.StatusNotFound, "scheduler_disabled", "The scheduler is not running")
		return
	}

	name := r.PathValue("name")
	result, err := s.deps.Jobs.RunNow(r.Context(), name)
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		writeJSONError(w, http.StatusNotFound, "job_not_found", err.Error())
		return
	case errors.Is(err, scheduler.ErrJobBusy):
		writeJSONError(w, http.StatusConflict, "job_busy", err.Error())
		return
	}

	resp := JobRunResponse{
		Job:        name,
		Success:    result.Success,
		DurationMs: result.Duration.Milliseconds(),
	}
	if err != nil {
		resp.Error = err.Error()
		logger.FromContext(r.Context()).Warn("manual job run failed",
			slog.String("job", name), logger.Err(err))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", slog.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse represents a standard JSON response.
type JSONResponse struct {
	Success bool          `json:"success"`
	Data    interface{}   `json:"data,omitempty"`
	Error   *APIError     `json:"error,omitempty"`
	Meta    *ResponseMeta `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp time.Time `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	writeResponse(w, status, JSONResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
		Meta:    &ResponseMeta{Timestamp: time.Now().UTC()},
	})
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeResponse(w, status, JSONResponse{
		Error: &APIError{Code: code, Message: message},
		Meta:  &ResponseMeta{Timestamp: time.Now().UTC()},
	})
}

func writeResponse(w http.ResponseWriter, status int, resp JSONResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER TYPES AND FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// RequestID returns the request ID stored by the middleware.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func isProbe(path string) bool {
	switch path {
	case "/health", "/healthz", "/ready", "/live":
		return true
	}
	return false
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
