package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/juanjice29/PortalCapacitaciones/internal/infra/config"
	"github.com/juanjice29/PortalCapacitaciones/internal/infra/logger"
	"github.com/juanjice29/PortalCapacitaciones/internal/infra/security"
	"github.com/juanjice29/PortalCapacitaciones/internal/transport/gateway"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	codec, err := security.NewTokenCodec(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
	if err != nil {
		log.Fatalf("failed to init token codec: %v", err)
	}

	edge, err := gateway.New(cfg, codec, zl)
	if err != nil {
		log.Fatalf("failed to init gateway: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:              edge.Addr(),
		Handler:           edge.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	zl.Info("starting edge gateway",
		zap.String("env", cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("run gateway: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zl.Error("shutdown gateway", zap.Error(err))
			os.Exit(1)
		}
	case err := <-errCh:
		zl.Error("gateway stopped", zap.Error(err))
		os.Exit(1)
	}
}
