package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/routing-engine/internal/engine"
	"github.com/tributary-ai/routing-engine/internal/middleware"
	"github.com/tributary-ai/routing-engine/internal/registry"
	"github.com/tributary-ai/routing-engine/internal/security"
	"github.com/tributary-ai/routing-engine/internal/types"
)

// Config holds server configuration.
type Config struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxHeaderBytes int
	OpenAPISpec    string
	ValidateSpec   bool
	Security       *security.Config
	RegistryPath   string
}

// Server is the HTTP surface over the routing engine.
type Server struct {
	engine     *engine.Engine
	registry   *registry.Registry
	httpServer *http.Server
	logger     *logrus.Logger
	config     *Config
	auth       *security.Authenticator
	validator  *middleware.ValidationMiddleware
}

// NewServer creates a server instance.
func NewServer(eng *engine.Engine, reg *registry.Registry, config *Config, logger *logrus.Logger) (*Server, error) {
	s := &Server{
		engine:   eng,
		registry: reg,
		logger:   logger,
		config:   config,
	}

	if config.Security != nil {
		s.auth = security.NewAuthenticator(config.Security, logger)
	}

	validator, err := middleware.NewValidationMiddleware(config.OpenAPISpec, config.ValidateSpec, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize validation middleware: %w", err)
	}
	s.validator = validator

	return s, nil
}

// Start starts the HTTP server and blocks until it exits.
func (s *Server) Start() error {
	r := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           ":" + s.config.Port,
		Handler:        r,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	s.logger.WithField("port", s.config.Port).Info("Starting routing engine server")
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping routing engine server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	r.Use(s.loggingMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.contentTypeMiddleware)

	api := r.PathPrefix("/v1").Subrouter()
	if s.auth != nil {
		api.Use(s.auth.Middleware)
	}
	api.Use(s.validator.Handler)

	api.HandleFunc("/route", s.handleRoute).Methods("POST")
	api.HandleFunc("/generate", s.handleGenerate).Methods("POST")
	api.HandleFunc("/models", s.handleListModels).Methods("GET")
	api.HandleFunc("/registry/reload", s.handleRegistryReload).Methods("POST")

	r.HandleFunc("/health", s.handleHealthCheck).Methods("GET")
	s.setupDocsRoutes(r)

	return r
}

// Middleware

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: 200}

		next.ServeHTTP(wrapped, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      wrapped.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_addr": r.RemoteAddr,
		}).Info("HTTP request")
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) contentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			contentType := r.Header.Get("Content-Type")
			if contentType != "application/json" && contentType != "" {
				s.writeErrorResponse(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Handlers

// handleRoute computes a routing decision without invoking any backend.
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	decision, analysis, err := s.engine.Decide(r.Context(), req)
	if err != nil {
		s.writeRoutingError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"request_id": req.ID,
		"analysis":   analysis,
		"decision":   decision,
	})
}

// handleGenerate routes and executes, returning the execution result with
// its routing rationale.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	result, decision, err := s.engine.Route(r.Context(), req)
	if err != nil {
		var budgetErr *types.BudgetExceededError
		if errors.As(err, &budgetErr) && result != nil {
			s.writeJSON(w, http.StatusGatewayTimeout, map[string]interface{}{
				"result":   result,
				"decision": decision,
				"error":    budgetErr.Error(),
			})
			return
		}
		s.writeRoutingError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"result":   result,
		"decision": decision,
	})
}

// handleListModels returns every profile in the current snapshot.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	snap := s.registry.Snapshot()

	models := make([]*types.ModelProfile, 0, snap.Len())
	for _, id := range snap.IDs() {
		models = append(models, snap.Profile(id))
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"models":           models,
		"count":            len(models),
		"snapshot_version": snap.Version,
	})
}

// handleRegistryReload re-reads the registry document. A bad document is
// rejected and the previous snapshot keeps serving.
func (s *Server) handleRegistryReload(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.LoadFile(s.config.RegistryPath); err != nil {
		s.logger.WithError(err).Error("Registry reload rejected")
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, fmt.Sprintf("reload rejected: %v", err))
		return
	}

	snap := s.registry.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"snapshot_version": snap.Version,
		"models":           snap.Len(),
	})
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	snap := s.registry.Snapshot()
	enabled := len(snap.EnabledProfiles())

	status := "healthy"
	code := http.StatusOK
	if enabled == 0 {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	s.writeJSON(w, code, map[string]interface{}{
		"status":           status,
		"models":           snap.Len(),
		"enabled_models":   enabled,
		"snapshot_version": snap.Version,
		"timestamp":        time.Now().Unix(),
	})
}

// Helpers

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (*types.RoutingRequest, bool) {
	var req types.RoutingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return nil, false
	}
	if req.Prompt == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "prompt is required")
		return nil, false
	}
	return &req, true
}

func (s *Server) writeRoutingError(w http.ResponseWriter, err error) {
	var noCand *types.NoCandidateError
	if errors.As(err, &noCand) {
		s.writeErrorResponse(w, http.StatusServiceUnavailable, noCand.Error())
		return
	}
	s.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSON(w, statusCode, map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"code":    statusCode,
		},
		"timestamp": time.Now().Unix(),
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
