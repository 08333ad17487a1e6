// Package http exposes the thesis tracker as a REST API: registration,
// dossier review, jury management, evaluations and the dossier read side.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/tesis-hub/tesis-tracker/internal/application/command"
	"github.com/tesis-hub/tesis-tracker/internal/application/query"
	"github.com/tesis-hub/tesis-tracker/internal/domain/shared"
	"github.com/tesis-hub/tesis-tracker/pkg/logger"
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

	// ReadTimeout - maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout - maximum duration for writing the response.
	WriteTimeout time.Duration

	// IdleTimeout - maximum duration for idle connections.
	IdleTimeout time.Duration

	// MaxHeaderBytes - maximum size of request headers.
	MaxHeaderBytes int

	// EnableCORS - enable CORS headers.
	EnableCORS bool

	// AllowedOrigins - allowed origins for CORS.
	AllowedOrigins []string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
		EnableCORS:     true,
		AllowedOrigins: []string{"*"},
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// HealthChecker reports liveness of a backing service.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Dependencies contains everything the HTTP handlers need.
type Dependencies struct {
	// Command handlers (write side)
	CrearTesis            *command.CrearTesisHandler
	ResponderInvitacion   *command.ResponderInvitacionHandler
	EnviarRevision        *command.EnviarRevisionHandler
	RevisarDocumentos     *command.RevisarDocumentosHandler
	ConfirmarVoucher      *command.ConfirmarVoucherHandler
	AsignarJurado         *command.AsignarJuradoHandler
	ConfirmarJurados      *command.ConfirmarJuradosHandler
	RetirarJurado         *command.RetirarJuradoHandler
	PromoverAccesitario   *command.PromoverAccesitarioHandler
	RegistrarEvaluacion   *command.RegistrarEvaluacionHandler
	SubirDictamen         *command.SubirDictamenHandler
	SubsanarObservaciones *command.SubsanarObservacionesHandler
	SubirResolucion       *command.SubirResolucionHandler
	PresentarInforme      *command.PresentarInformeHandler
	ProgramarSustentacion *command.ProgramarSustentacionHandler
	CerrarSustentacion    *command.CerrarSustentacionHandler
	EliminarTesis         *command.EliminarTesisHandler

	// Query handlers (read side)
	GetExpediente *query.GetExpedienteHandler
	ListarTesis   *query.ListarTesisHandler

	// Health check dependencies, keyed by component name.
	HealthCheckers map[string]HealthChecker

	Logger *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server is the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     *mux.Router
	log        *logger.Logger

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates an HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.Default()
	}
	s := &Server{
		config: config,
		deps:   deps,
		router: mux.NewRouter(),
		log:    deps.Logger,
	}
	if s.log == nil {
		s.log = logger.Default()
	}

	s.setupRoutes()

	var handler http.Handler = s.router
	handler = s.loggingMiddleware(handler)
	handler = s.recoveryMiddleware(handler)
	handler = s.requestIDMiddleware(handler)

	if config.EnableCORS {
		handler = cors.New(cors.Options{
			AllowedOrigins: config.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
			MaxAge:         86400,
		}).Handler(handler)
	}

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        handler,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/live", s.handleLive).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Registration and read side
	api.HandleFunc("/tesis", s.handleCrearTesis).Methods(http.MethodPost)
	api.HandleFunc("/tesis", s.handleListarTesis).Methods(http.MethodGet)
	api.HandleFunc("/tesis/codigo/{codigo}", s.handleGetExpedientePorCodigo).Methods(http.MethodGet)
	api.HandleFunc("/tesis/{id}", s.handleGetExpediente).Methods(http.MethodGet)
	api.HandleFunc("/tesis/{id}", s.handleEliminarTesis).Methods(http.MethodDelete)
	api.HandleFunc("/tesis/{id}/restaurar", s.handleRestaurarTesis).Methods(http.MethodPost)
	api.HandleFunc("/tesis/{id}/invitacion", s.handleResponderInvitacion).Methods(http.MethodPost)

	// Intake review
	api.HandleFunc("/tesis/{id}/enviar-revision", s.handleEnviarRevision).Methods(http.MethodPost)
	api.HandleFunc("/tesis/{id}/revision", s.handleRevisarDocumentos).Methods(http.MethodPost)
	api.HandleFunc("/tesis/{id}/voucher", s.handleConfirmarVoucher).Methods(http.MethodPost)

	// Jury management
	api.HandleFunc("/tesis/{id}/jurados", s.handleAsignarJurado).Methods(http.MethodPost)
	api.HandleFunc("/tesis/{id}/jurados/confirmar", s.handleConfirmarJurados).Methods(http.MethodPost)
	api.HandleFunc("/tesis/{id}/jurados/promover", s.handlePromoverAccesitario).Methods(http.MethodPost)
	api.HandleFunc("/tesis/{id}/jurados/{userID}", s.handleRetirarJurado).Methods(http.MethodDelete)

	// Evaluation rounds
	api.HandleFunc("/tesis/{id}/evaluaciones", s.handleRegistrarEvaluacion).Methods(http.MethodPost)
	api.HandleFunc("/tesis/{id}/dictamen", s.handleSubirDictamen).Methods(http.MethodPost)
	api.HandleFunc("/tesis/{id}/subsanacion", s.handleSubsanarObservaciones).Methods(http.MethodPost)

	// Final report and defense
	api.HandleFunc("/tesis/{id}/resolucion", s.handleSubirResolucion).Methods(http.MethodPost)
	api.HandleFunc("/tesis/{id}/informe", s.handlePresentarInforme).Methods(http.MethodPost)
	api.HandleFunc("/tesis/{id}/sustentacion", s.handleProgramarSustentacion).Methods(http.MethodPost)
	api.HandleFunc("/tesis/{id}/cierre", s.handleCerrarSustentacion).Methods(http.MethodPost)
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

type contextKey string

const contextKeyRequestID contextKey = "request_id"

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.log.Info("http request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rw.statusCode),
			logger.Any("duration_ms", time.Since(start).Milliseconds()),
			logger.String("ip", getClientIP(r)),
			logger.String("request_id", getRequestID(r.Context())),
		)
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.log.Error("panic recovered",
					logger.Any("error", err),
					logger.String("stack", string(debug.Stack())),
					logger.String("path", r.URL.Path),
					logger.String("request_id", getRequestID(r.Context())),
				)
				writeJSONError(w, http.StatusInternalServerError,
					"internal_server_error", "ocurrió un error inesperado")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.log.Info("starting HTTP server", logger.String("address", s.config.Address()))

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

	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Address returns the server address.
func (s *Server) Address() string {
	return s.config.Address()
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	components := make(map[string]string, len(s.deps.HealthCheckers))
	for name, checker := range s.deps.HealthCheckers {
		if err := checker.Ping(ctx); err != nil {
			components[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			components[name] = "ok"
		}
	}

	body := map[string]interface{}{
		"status":     "healthy",
		"components": components,
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	writeJSON(w, status, body)
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse is the standard response envelope.
type JSONResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError is the serialized error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(JSONResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(JSONResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
	})
}

// writeError maps the workflow error taxonomy to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var de *shared.DomainError
	message := err.Error()
	if errors.As(err, &de) {
		message = de.Message
	}

	switch {
	case errors.Is(err, shared.ErrValidation):
		writeJSONError(w, http.StatusBadRequest, "validation_error", message)
	case errors.Is(err, shared.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", message)
	case errors.Is(err, shared.ErrAlreadyExists):
		writeJSONError(w, http.StatusConflict, "already_exists", message)
	case errors.Is(err, shared.ErrUnauthorizedAction):
		writeJSONError(w, http.StatusForbidden, "unauthorized_action", message)
	case errors.Is(err, shared.ErrInvalidTransition):
		writeJSONError(w, http.StatusConflict, "invalid_transition", message)
	case errors.Is(err, shared.ErrConcurrentModification):
		writeJSONError(w, http.StatusConflict, "concurrent_modification", message)
	case shared.IsPrecondition(err):
		writeJSONError(w, http.StatusUnprocessableEntity, "precondition_failed", message)
	default:
		writeJSONError(w, http.StatusInternalServerError, "internal_server_error",
			"ocurrió un error inesperado")
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if parts := strings.Split(xff, ","); len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
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

func getRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

func generateRequestID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), time.Now().Nanosecond()%1000)
}

func getQueryParamInt(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(value, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

func getQueryParamBool(r *http.Request, key string) bool {
	value := strings.ToLower(r.URL.Query().Get(key))
	return value == "true" || value == "1" || value == "yes"
}
