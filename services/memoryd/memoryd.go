// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package memoryd is the memory-engine HTTP service.
//
// The launcher (cmd/mnemon) owns bring-up: by the time this process
// starts, the relational store is reachable and migrated. memoryd only
// serves: liveness, metrics, and the thin /v1 memory endpoints.
package memoryd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/AleutianAI/Mnemon/pkg/logging"
	"github.com/AleutianAI/Mnemon/services/memoryd/engine"
	"github.com/AleutianAI/Mnemon/services/memoryd/middleware"
	"github.com/AleutianAI/Mnemon/services/memoryd/observability"
	"github.com/AleutianAI/Mnemon/services/memoryd/routes"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"
)

// Config configures the service from environment inputs.
type Config struct {
	// Port is the HTTP listen port.
	Port int

	// Mode is dev, local or prod; anything but dev/local runs gin in
	// release mode.
	Mode string

	// APIKey is the static key accepted in X-Api-Key.
	APIKey string

	// OTelEndpoint enables tracing when non-empty (host:port).
	OTelEndpoint string

	// RatePerSecond and Burst bound per-client request rates.
	RatePerSecond float64
	Burst         int
}

// Service is a runnable memoryd instance.
type Service struct {
	cfg    Config
	router *gin.Engine
	logger *logging.Logger
}

// New builds the service with its middleware and route table.
//
// eng may be nil, in which case the no-op engine is used (the HTTP
// surface still behaves contractually; results are empty).
func New(cfg Config, eng engine.Engine, logger *logging.Logger) *Service {
	if eng == nil {
		eng = engine.NopEngine{}
	}
	if logger == nil {
		logger = logging.New(logging.Config{Service: "memoryd", JSON: true})
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 50
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 100
	}

	if cfg.Mode == "dev" || cfg.Mode == "local" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("memoryd"))

	routes.SetupRoutes(router, routes.Deps{
		Engine:    eng,
		APIKey:    cfg.APIKey,
		Validator: middleware.NopTokenValidator{},
		Metrics:   observability.NewMetrics(),
		APILimit:  middleware.NewRateLimiter(cfg.RatePerSecond, cfg.Burst),
	})

	return &Service{cfg: cfg, router: router, logger: logger}
}

// Router exposes the gin engine for tests.
func (s *Service) Router() *gin.Engine {
	return s.router
}

// Run serves until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, s.cfg.OTelEndpoint, "memoryd")
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer shutdownTracer(context.Background())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		s.logger.Info("memoryd listening", "port", s.cfg.Port, "mode", s.cfg.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
