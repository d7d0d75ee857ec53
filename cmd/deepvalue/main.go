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
	"github.com/joho/godotenv"

	"DeepValue/internal/chat"
	"DeepValue/internal/config"
	"DeepValue/internal/gateway"
	"DeepValue/internal/server"
	"DeepValue/internal/store"
	"DeepValue/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// API keys live in the environment; .env is a convenience for local runs.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := telemetry.InitLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, meter, cleanup, err := telemetry.InitTelemetry(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer cleanup()

	st, err := store.NewSQLite(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer st.Close()

	var gw gateway.Gateway
	switch cfg.Backend {
	case config.BackendAnthropic:
		gw, err = gateway.NewAnthropic(cfg.Model, logger, tracer, meter)
	case config.BackendOpenAI:
		gw, err = gateway.NewOpenAI(cfg.Model, logger, tracer, meter)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize %s backend: %w", cfg.Backend, err)
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	controller := chat.NewController(st, gw, cfg.MaxTokens, logger)
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.New(controller, cfg.StaticDir, logger).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Addr, "backend", cfg.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
