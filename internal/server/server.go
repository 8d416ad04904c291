// Package server assembles the gallery HTTP service: middleware, health,
// the JSON read API and the web surface.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"lens/internal/config"
	"lens/internal/posts"
	"lens/internal/web"
)

type databaseHealth interface {
	Health(ctx context.Context) map[string]string
}

type storageHealth interface {
	Health(ctx context.Context) error
}

// Server holds the dependencies for the HTTP server
type Server struct {
	cfg *config.Config

	db      databaseHealth
	storage storageHealth
	posts   *posts.Service
	web     *web.Handler
	logger  *slog.Logger
}

// Deps are the collaborators the server routes to
type Deps struct {
	Config  *config.Config
	DB      databaseHealth
	Storage storageHealth
	Posts   *posts.Service
	Web     *web.Handler
	Logger  *slog.Logger
}

// New creates the server
func New(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     d.Config,
		db:      d.DB,
		storage: d.Storage,
		posts:   d.Posts,
		web:     d.Web,
		logger:  logger,
	}
}

// HTTPServer configures the http.Server for the routes
func (s *Server) HTTPServer() *http.Server {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.RegisterRoutes(),
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	s.logger.Info("HTTP server configured", "port", s.cfg.Port)
	return server
}
