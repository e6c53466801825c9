package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"landprice/internal/app"
	"landprice/internal/config"
	"landprice/internal/handler"
	"landprice/internal/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.FromConfig(cfg.Logging, "landprice-server"))
	for _, w := range config.Warnings() {
		log.Warn().Msg(w)
	}

	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("environment", string(cfg.Environment)).
		Msg("Tokyo land price RAG server")

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	secrets, err := app.SecretProvider(ctx, cfg)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, secrets, log)
	if err != nil {
		return err
	}
	defer a.Close()

	gin.SetMode(cfg.Server.GinMode)

	router := handler.NewRouter(handler.RouterOptions{
		Server:   cfg.Server,
		Build:    handler.BuildInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit},
		Answerer: a.Pipeline,
		Logger:   log,
		// embed.go (production) or static_dev.go (development)
		Frontend: frontendHandler(log),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}
