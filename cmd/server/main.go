// Package main is the entry point for the blogger web server.
//
// The main package stays minimal: read configuration from the environment,
// build the logger, hand both to internal/server. All actual behaviour
// lives in the internal packages.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sakif/blogger-web/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	// The backend owns all persistent state; without it there is nothing
	// to render or proxy, so a missing base URL is fatal.
	apiBaseURL := os.Getenv("API_BASE_URL")
	if apiBaseURL == "" {
		logger.Error("API_BASE_URL not set")
		os.Exit(1)
	}

	templateDir, _ := filepath.Abs("web/templates")
	staticDir, _ := filepath.Abs("web/static")
	if dir := os.Getenv("TEMPLATE_DIR"); dir != "" {
		templateDir = dir
	}
	if dir := os.Getenv("STATIC_DIR"); dir != "" {
		staticDir = dir
	}

	cfg := server.Config{
		Port:        port,
		APIBaseURL:  apiBaseURL,
		TemplateDir: templateDir,
		StaticDir:   staticDir,
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
