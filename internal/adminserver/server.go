// Package adminserver implements the MME's read-only admin HTTP surface:
// GET /ue-contexts, GET /ue-contexts/{ueId} and GET /stats over the EMM
// Context Store, grounded on the reference AMF's internal/server package.
package adminserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	emmcontext "github.com/oss-emm/epc-mme/internal/emm/context"
	"go.uber.org/zap"
)

// Server is the admin HTTP server.
type Server struct {
	bindAddress string
	store       *emmcontext.Store
	router      *chi.Mux
	httpServer  *http.Server
	logger      *zap.Logger
	startedAt   time.Time
}

// NewServer creates an admin server over store, bound to bindAddress.
func NewServer(bindAddress string, store *emmcontext.Store, logger *zap.Logger) *Server {
	s := &Server{
		bindAddress: bindAddress,
		store:       store,
		router:      chi.NewRouter(),
		logger:      logger,
		startedAt:   time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(10 * time.Second))

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ue-contexts", s.handleListUEContexts)
	s.router.Get("/ue-contexts/{ueId}", s.handleGetUEContext)
	s.router.Get("/stats", s.handleGetStats)
}

// Start runs the admin HTTP server until it errors or is stopped.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.bindAddress,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting admin server", zap.String("address", s.bindAddress))
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts the admin server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("stopping admin server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("admin http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode admin response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string, err error) {
	s.logger.Warn(message, zap.Error(err))
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	detail := message
	if err != nil {
		detail = fmt.Sprintf("%s: %v", message, err)
	}
	body := map[string]interface{}{"status": status, "title": message, "detail": detail}
	if encErr := json.NewEncoder(w).Encode(body); encErr != nil {
		s.logger.Warn("failed to encode admin error response", zap.Error(encErr))
	}
}
