// Package server wires the router, middleware and route handlers together.
//
// This is the composition root: everything is constructed here and injected
// downward. The only long-lived pieces of state are the shared backend
// client (re-bound to each request's token via WithToken) and the avatar
// cache, which lives for the whole process.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/blogger-web/internal/backend"
	"github.com/sakif/blogger-web/internal/feed"
	"github.com/sakif/blogger-web/internal/handler"
	"github.com/sakif/blogger-web/internal/middleware"
)

// Config holds server configuration.
type Config struct {
	Port        int
	APIBaseURL  string
	TemplateDir string
	StaticDir   string
}

// Server is the HTTP server and its dependencies.
type Server struct {
	router  *chi.Mux
	config  Config
	logger  *slog.Logger
	client  *backend.Client
	avatars *feed.AvatarCache
}

// New creates a Server with the given config.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("API base URL is required")
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		client:  backend.New(cfg.APIBaseURL, backend.DefaultTimeout, logger),
		avatars: feed.NewAvatarCache(),
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// setupRoutes configures middleware, pages, the /api proxy and static files.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	pages, err := handler.NewPageHandler(s.client, s.config.TemplateDir, s.avatars, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}
	s.router.Group(pages.Routes)

	proxy := handler.NewProxyHandler(s.client, s.logger)
	s.router.Route("/api", proxy.Routes)

	return nil
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully,
// giving in-flight requests 30 seconds to finish.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("backend", s.config.APIBaseURL),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
