// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/AleutianAI/Mnemon/services/memoryd/engine"
	"github.com/AleutianAI/Mnemon/services/memoryd/handlers"
	"github.com/AleutianAI/Mnemon/services/memoryd/middleware"
	"github.com/AleutianAI/Mnemon/services/memoryd/observability"
	"github.com/gin-gonic/gin"
)

// Deps are the collaborators the route table wires into handlers.
type Deps struct {
	Engine    engine.Engine
	APIKey    string
	Validator middleware.TokenValidator
	Metrics   *observability.Metrics
	APILimit  *middleware.RateLimiter
}

// SetupRoutes installs the memoryd route table.
//
// /health and /metrics are unauthenticated: orchestration probes and
// scrapers carry no credentials. Everything under /v1 requires either
// the API key or a bearer token, and is rate limited per client.
func SetupRoutes(router *gin.Engine, deps Deps) {
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
		router.GET("/metrics", deps.Metrics.Handler())
	}

	router.GET("/health", handlers.HealthCheck)

	v1 := router.Group("/v1")
	if deps.APILimit != nil {
		v1.Use(deps.APILimit.Middleware())
	}
	v1.Use(middleware.Auth(deps.APIKey, deps.Validator))
	{
		v1.POST("/add", handlers.Add(deps.Engine))
		v1.POST("/cognify", handlers.Cognify(deps.Engine))
		v1.POST("/search", handlers.Search(deps.Engine))
	}
}
