package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spacesedan/tweetsense/config"
	"github.com/spacesedan/tweetsense/internal/app"
	"github.com/spacesedan/tweetsense/internal/logging"
	"github.com/spacesedan/tweetsense/internal/web"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)

	cfg, err := config.Load(env)
	if err != nil {
		slog.Error("[Main] Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogLevel)
	if env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Bootstrap(ctx, cfg, true)
	if err != nil {
		slog.Error("[Main] Failed to start", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer a.Close()
	a.StartHealthChecks(ctx)

	maxCount := config.MaxPostCountForm
	if cfg.MaxPostsPerRequest < maxCount {
		maxCount = cfg.MaxPostsPerRequest
	}
	srv := web.NewHTTPServer(cfg.Addr, web.NewRouter(a.Service, a.Health, maxCount))

	go func() {
		slog.Info("[Main] Listening",
			slog.String("addr", cfg.Addr),
			slog.String("engine", a.Service.Engine()),
			slog.Bool("feed_enabled", a.Service.FeedEnabled()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("[Main] Server stopped", slog.String("error", err.Error()))
			cancel()
		}
	}()

	// Handle graceful shutdown
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stopChan:
	case <-ctx.Done():
	}

	slog.Info("Shutting down webapp gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("[Main] Forced shutdown", slog.String("error", err.Error()))
	}
}
