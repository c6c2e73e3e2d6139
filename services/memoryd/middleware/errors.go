// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for memoryd: credential
// checks, rate limiting, and sanitized error responses.
package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Internal error text never reaches a client. The full error is logged
// server-side under a short correlation ID; the client gets the ID and a
// generic message it can quote to support.
const sanitizedErrorMessage = "An internal error occurred"

// RespondError logs err with a correlation ID and sends the sanitized
// body {"detail": ..., "error_id": ...}.
//
// The detail field is load-bearing: clients classify a response missing
// it as a connection-level failure.
func RespondError(c *gin.Context, status int, err error) {
	errorID := uuid.NewString()[:8]
	slog.Error("request failed",
		"error_id", errorID,
		"path", c.FullPath(),
		"error", err.Error(),
	)
	c.AbortWithStatusJSON(status, gin.H{
		"detail":   sanitizedErrorMessage,
		"error_id": errorID,
	})
}

// RespondValidationError sends an expected, user-safe validation failure.
// No correlation ID: there is nothing to investigate server-side.
func RespondValidationError(c *gin.Context, message string, err error) {
	slog.Debug("validation failed", "path", c.FullPath(), "error", err.Error())
	c.AbortWithStatusJSON(400, gin.H{"detail": message})
}
