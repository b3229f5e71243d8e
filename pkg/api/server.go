// Package api provides the HTTP server for fleettrack report generation.
// It exposes REST endpoints for generating reports, resolving view links,
// and previewing aggregations.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	// Host is the interface to bind to (default: "0.0.0.0").
	Host string

	// Port is the port to listen on (default: 8090).
	Port int

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of
	// the response. Large reports take a while to stream, so this is
	// more generous than the read side.
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next
	// request.
	IdleTimeout time.Duration

	// CORSOrigins is a list of allowed origins for CORS requests.
	CORSOrigins []string
}

// DefaultServerConfig returns sensible defaults for the API server.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:         "0.0.0.0",
		Port:         8090,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	config     *ServerConfig
	log        *logrus.Logger

	mu      sync.RWMutex
	running bool
}

// NewServer creates a new API server with the given configuration.
func NewServer(config *ServerConfig, log *logrus.Logger) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	if config.Host == "" {
		config.Host = "0.0.0.0"
	}
	if config.Port == 0 {
		config.Port = 8090
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 15 * time.Second
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 60 * time.Second
	}
	if config.IdleTimeout == 0 {
		config.IdleTimeout = 60 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "not_found", "The requested resource was not found")
	})

	return &Server{
		router: router,
		config: config,
		log:    log,
	}
}

// Address returns the server address in host:port format.
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Router returns the underlying router for registering handlers.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler builds the full middleware chain around the router.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	if len(s.config.CORSOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(s.config.CORSOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Request-ID"}),
		)(h)
	}
	h = LoggingMiddleware(s.log)(h)
	h = RequestIDMiddleware(h)
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	return h
}

// Start starts the HTTP server in a goroutine. It returns after the
// listener is up or an immediate binding failure is detected.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server is already running")
	}

	s.httpServer = &http.Server{
		Addr:         s.Address(),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	s.running = true

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.Address()).Info("starting server")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("server error")
			errCh <- err
		}
		close(errCh)
	}()

	// Wait briefly to catch immediate binding errors (e.g., port in use).
	select {
	case err := <-errCh:
		s.running = false
		return fmt.Errorf("server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Shutdown gracefully shuts down the server with a timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.log.Info("shutting down server")
	s.running = false

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// IsRunning returns true if the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
