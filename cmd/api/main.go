package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/enjoysite/friendmap/config"
	"github.com/enjoysite/friendmap/internal/bootstrap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	logger, err := bootstrap.NewLogger(cfg.App.Environment, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Streams hang off this context so shutdown can end them.
	baseCtx, cancelStreams := context.WithCancel(context.Background())
	defer cancelStreams()

	initCtx, cancelInit := context.WithTimeout(baseCtx, 30*time.Second)
	application, err := bootstrap.NewApp(initCtx, cfg, logger)
	cancelInit()
	if err != nil {
		logger.Fatal("failed to initialize app", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.App.Environment),
			zap.String("app_id", cfg.App.ID),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancelStreams()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	if err := application.Close(); err != nil {
		logger.Warn("failed to close backends", zap.Error(err))
	}
	logger.Info("server exited")
}
