// Package api provides the HTTP server: identity, project directory, file
// store, presence store, change feed streams and the static file gateway.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/pairpad/pairpad/internal/models"
	"github.com/pairpad/pairpad/internal/storage"
	"github.com/pairpad/pairpad/internal/stream"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address           string
	JWTSecret         []byte
	AccessTokenTTL    time.Duration
	LoginRatePerMin   int           // Login/register attempts per minute per IP
	LivenessWindow    time.Duration // Presence liveness window
	StreamMaxDuration time.Duration // Max lifetime for SSE watch connections
	ReapInterval      time.Duration // Stale presence reap cadence (0 disables)
	Verbose           bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = 24 * time.Hour
	}
	if c.LoginRatePerMin == 0 {
		c.LoginRatePerMin = 10
	}
	if c.LivenessWindow == 0 {
		c.LivenessWindow = models.DefaultLivenessWindow
	}
	if c.StreamMaxDuration == 0 {
		c.StreamMaxDuration = 30 * time.Minute
	}
	if c.ReapInterval == 0 {
		c.ReapInterval = time.Minute
	}
}

// Server is the HTTP API server.
type Server struct {
	config  *Config
	storage storage.Storage
	hub     *stream.Hub
	server  *http.Server
}

// New creates a new API server.
func New(cfg *Config, store storage.Storage) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if len(cfg.JWTSecret) == 0 {
		return nil, fmt.Errorf("JWT secret is required")
	}

	cfg.SetDefaults()

	s := &Server{
		config:  cfg,
		storage: store,
		hub:     stream.NewHub(),
	}

	s.server = &http.Server{
		Addr:        cfg.Address,
		Handler:     s.setupRouter(),
		ReadTimeout: 15 * time.Second,
		// WriteTimeout stays 0 (disabled): the change feed and presence
		// watch endpoints are long-lived SSE streams. Non-streaming
		// handlers bound their own work via request contexts.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		log.Printf("HTTP API listening on %s", s.config.Address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	if s.config.ReapInterval > 0 {
		go s.reapStalePresence(ctx)
	}

	select {
	case err := <-errChan:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Printf("shutting down HTTP API")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// reapStalePresence periodically removes presence rows that fell out of the
// liveness window. The window itself is the guaranteed offline mechanism;
// reaping only keeps the table from growing after ungraceful exits.
func (s *Server) reapStalePresence(ctx context.Context) {
	ticker := time.NewTicker(s.config.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.storage.Presence().DeleteStale(ctx, time.Now(), s.config.LivenessWindow)
			if err != nil {
				log.Printf("presence reap error: %v", err)
				continue
			}
			if removed > 0 && s.config.Verbose {
				log.Printf("reaped %d stale presence entries", removed)
			}
		}
	}
}
