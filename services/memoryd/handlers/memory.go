// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the gin handlers for memoryd.
//
// The memory endpoints are deliberately thin: bind, delegate to the
// engine, translate the result. Business semantics live entirely behind
// the engine.Engine interface.
package handlers

import (
	"net/http"

	"github.com/AleutianAI/Mnemon/services/memoryd/engine"
	"github.com/AleutianAI/Mnemon/services/memoryd/middleware"
	"github.com/gin-gonic/gin"
)

// Add ingests data into a dataset.
func Add(eng engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req engine.AddRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.RespondValidationError(c, "invalid add request", err)
			return
		}
		runID, err := eng.Add(c.Request.Context(), req)
		if err != nil {
			middleware.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"run_id": runID})
	}
}

// Cognify processes ingested datasets.
func Cognify(eng engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req engine.CognifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.RespondValidationError(c, "invalid cognify request", err)
			return
		}
		runID, err := eng.Cognify(c.Request.Context(), req)
		if err != nil {
			middleware.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"run_id": runID})
	}
}

// Search queries the engine.
func Search(eng engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req engine.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.RespondValidationError(c, "invalid search request", err)
			return
		}
		results, err := eng.Search(c.Request.Context(), req)
		if err != nil {
			middleware.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}
