package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mistbot/kommorelay/internal/event"
)

// Server represents the webhook HTTP server.
type Server struct {
	config     Config
	classifier *event.Classifier
	relay      Pipeline
	logger     *slog.Logger
	server     *http.Server
}

// New creates a new webhook server instance.
func New(config Config, classifier *event.Classifier, relay Pipeline, logger *slog.Logger) *Server {
	if config.MaxBodySize == 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	return &Server{
		config:     config,
		classifier: classifier,
		relay:      relay,
		logger:     logger,
	}
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting", "listen", s.config.Addr,
		"signature_required", s.config.RequireSignature)

	// Run server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Post("/webhook", s.handleWebhook)
	r.Get("/healthcheck", s.handleHealthcheck)

	return r
}

// loggingMiddleware logs HTTP requests (excludes payload bodies).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, StatusResponse{Status: "kommorelay is running"})
}

// handleWebhook runs the full pipeline for one delivery: size limit,
// signature, extraction, classification, relay.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Enforce body size limit
	limitedReader := io.LimitReader(r.Body, s.config.MaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read request body")
		return
	}
	if int64(len(body)) > s.config.MaxBodySize {
		s.respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	if !s.signatureOK(body, r.Header.Get(SignatureHeader), r.URL.Path) {
		s.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	ev, err := Extract(r.Header.Get("Content-Type"), body)
	if err != nil {
		s.logger.Warn("unparseable webhook body", "error", err,
			"request_id", middleware.GetReqID(ctx))
		s.respondError(w, http.StatusBadRequest, "unparseable body")
		return
	}

	decision := s.classifier.Classify(ev)
	if !decision.Eligible {
		if ev.Direction == event.DirectionOut {
			s.relay.LogOutgoing(ctx, ev)
		}
		s.logger.Info("event ignored", "reason", decision.Reason,
			"entity_id", ev.EntityID, "entity_type", ev.EntityType)
		s.respondJSON(w, http.StatusOK, StatusResponse{Status: "ignored", Reason: decision.Reason})
		return
	}

	if err := s.relay.Process(ctx, ev); err != nil {
		s.logger.Error("relay failed", "error", err,
			"entity_id", ev.EntityID, "request_id", middleware.GetReqID(ctx))
		s.respondError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	s.respondJSON(w, http.StatusOK, StatusResponse{Status: "processed"})
}

// signatureOK applies the verification policy. With no secret configured
// every delivery passes. With a secret, a present header must verify; an
// absent header is rejected only when RequireSignature is set.
func (s *Server) signatureOK(body []byte, signature, path string) bool {
	if s.config.Secret == "" {
		return true
	}
	if signature == "" {
		if s.config.RequireSignature {
			s.logger.Warn("webhook signature missing", "path", path)
			return false
		}
		return true
	}
	if err := verifyHMACSignature(body, signature, s.config.Secret); err != nil {
		s.logger.Warn("webhook signature verification failed", "path", path)
		return false
	}
	return true
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}
