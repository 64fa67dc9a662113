// Package server provides the HTTP receiver for Alertmanager webhooks.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Andylive5518/cctv-allin/internal/notify"
	"github.com/Andylive5518/cctv-allin/internal/store"
	"github.com/Andylive5518/cctv-allin/internal/version"
)

// DefaultMaxBodyBytes caps the size of an accepted webhook payload.
const DefaultMaxBodyBytes = 1 << 20

// ReadinessChecker verifies that the server is ready to serve traffic.
// Returns nil if ready, an error describing why not otherwise.
type ReadinessChecker func(ctx context.Context) error

// Dispatcher forwards a decoded Alertmanager message to a chat platform.
// Defined here (consumer-side) rather than importing the concrete type.
type Dispatcher interface {
	Dispatch(ctx context.Context, platform string, msg *notify.Message) (notify.Result, error)
	Suppression(ctx context.Context, key string) (notify.GateStatus, error)
}

// StatusReader looks up the last alert status recorded for an instance.
type StatusReader interface {
	Lookup(ctx context.Context, instance string) (string, error)
}

// Options holds listener and limiter settings.
type Options struct {
	Addr         string
	RateLimit    float64
	RateBurst    int
	MaxBodyBytes int64
}

// Server is the cctv-allin notification receiver.
type Server struct {
	httpServer *http.Server
	dispatcher Dispatcher
	status     StatusReader
	ready      ReadinessChecker
	logger     *zap.Logger
	mux        *http.ServeMux
	maxBody    int64
}

// unlimitedPaths are exempt from rate limiting and access logs.
var unlimitedPaths = []string{"/health", "/healthz", "/readyz", "/metrics"}

// New creates a Server with middleware and routes. status and ready are
// optional; pass nil to disable the device status endpoint or readiness
// checks respectively.
func New(opts Options, dispatcher Dispatcher, status StatusReader, ready ReadinessChecker, logger *zap.Logger) *Server {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 50
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 100
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{
		dispatcher: dispatcher,
		status:     status,
		ready:      ready,
		logger:     logger,
		mux:        http.NewServeMux(),
		maxBody:    opts.MaxBodyBytes,
	}
	s.registerRoutes()

	// Middleware chain: outermost listed first.
	handler := Chain(s.mux,
		RecoveryMiddleware(logger),
		RequestIDMiddleware,
		LoggingMiddleware(logger, unlimitedPaths),
		ResponseHeadersMiddleware,
		RateLimitMiddleware(opts.RateLimit, opts.RateBurst, unlimitedPaths),
	)

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Outbound robot calls take up to 10s.
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /webhook/{platform}", s.handleWebhook)
	s.mux.HandleFunc("GET /health", s.handleHealthSimple)

	// Unversioned operational endpoints.
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/devices/{instance}/status", s.handleDeviceStatus)
	s.mux.HandleFunc("GET /api/v1/alerts/{key}/suppression", s.handleSuppression)
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// WebhookResponse is the body of a successful webhook delivery.
type WebhookResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Result  *notify.Result `json:"result,omitempty"`
}

// handleWebhook decodes an Alertmanager payload and dispatches it to the
// platform named in the path.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	platform := r.PathValue("platform")

	var msg notify.Message
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := json.NewDecoder(body).Decode(&msg); err != nil {
		if errors.Is(err, io.EOF) {
			BadRequest(w, "empty request body", r.URL.Path)
			return
		}
		BadRequest(w, "invalid alertmanager payload: "+err.Error(), r.URL.Path)
		return
	}

	s.logger.Debug("webhook received",
		zap.String("platform", platform),
		zap.String("status", msg.Status),
		zap.Int("alerts", len(msg.Alerts)),
		zap.String("request_id", RequestID(r.Context())),
	)

	res, err := s.dispatcher.Dispatch(r.Context(), platform, &msg)
	if err != nil {
		switch {
		case errors.Is(err, notify.ErrUnsupportedPlatform):
			BadRequest(w, "unsupported platform "+platform, r.URL.Path)
		case errors.Is(err, notify.ErrNotConfigured):
			InternalError(w, err.Error(), r.URL.Path)
		default:
			s.logger.Warn("webhook dispatch failed",
				zap.String("platform", platform),
				zap.String("request_id", RequestID(r.Context())),
				zap.Error(err),
			)
			WriteProblem(w, Problem{
				Type:     ProblemTypeDispatchFailed,
				Title:    "Dispatch Failed",
				Status:   http.StatusInternalServerError,
				Detail:   err.Error(),
				Instance: r.URL.Path,
			})
		}
		return
	}

	writeJSON(w, http.StatusOK, WebhookResponse{Status: "success", Message: res.Message, Result: &res})
}

// handleHealthSimple keeps the response shape existing probes expect.
func (s *Server) handleHealthSimple(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleHealthz is a liveness probe -- returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleReadyz checks readiness -- returns 200 if the server can serve traffic.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version map[string]string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: "cctv-allin",
		Version: version.Map(),
	})
}

// DeviceStatusResponse is the response for GET /api/v1/devices/{instance}/status.
type DeviceStatusResponse struct {
	Instance string `json:"instance"`
	Status   string `json:"status"`
}

func (s *Server) handleDeviceStatus(w http.ResponseWriter, r *http.Request) {
	instance := r.PathValue("instance")
	if s.status == nil {
		NotFound(w, "device status cache is disabled", r.URL.Path)
		return
	}
	status, err := s.status.Lookup(r.Context(), instance)
	if err != nil {
		if errors.Is(err, store.ErrCacheMiss) {
			NotFound(w, "no recent status for "+instance, r.URL.Path)
			return
		}
		s.logger.Warn("device status lookup failed", zap.String("instance", instance), zap.Error(err))
		InternalError(w, "status lookup failed", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, DeviceStatusResponse{Instance: instance, Status: status})
}

// SuppressionResponse is the response for GET /api/v1/alerts/{key}/suppression.
type SuppressionResponse struct {
	Key              string `json:"key"`
	State            string `json:"state"`
	RemainingSeconds int64  `json:"remaining_seconds"`
}

// handleSuppression reports whether the next firing alert for key
// (<instance>_<alertname>) would be forwarded.
func (s *Server) handleSuppression(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	st, err := s.dispatcher.Suppression(r.Context(), key)
	if err != nil {
		s.logger.Warn("suppression lookup failed", zap.String("key", key), zap.Error(err))
		InternalError(w, "suppression lookup failed", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, SuppressionResponse{
		Key:              key,
		State:            st.State.String(),
		RemainingSeconds: int64(st.Remaining / time.Second),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
