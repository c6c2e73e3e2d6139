// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// principalKey is the gin context key for the authenticated principal.
// Typed key string, namespaced to avoid collisions.
const principalKey = "mnemon_principal"

// TokenValidator validates a bearer token and returns the principal it
// belongs to.
//
// The default NopTokenValidator authenticates everything as the local
// user so single-machine deployments need no auth infrastructure; hosted
// deployments plug in a real validator.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (string, error)
}

// NopTokenValidator accepts any non-empty token as the local user.
type NopTokenValidator struct{}

// Validate implements TokenValidator.
func (NopTokenValidator) Validate(ctx context.Context, token string) (string, error) {
	return "local-user", nil
}

// Auth enforces the credential contract: either the configured API key
// in X-Api-Key or a bearer token the validator accepts. Requests carry
// exactly one of the two; a request with neither is rejected before any
// handler runs.
func Auth(apiKey string, validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader("X-Api-Key"); key != "" {
			if apiKey == "" || key != apiKey {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid API key"})
				return
			}
			c.Set(principalKey, "api-key-client")
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "missing credentials"})
			return
		}

		principal, err := validator.Validate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid token"})
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

// Principal returns the authenticated principal set by Auth, or "" when
// the request did not pass through it.
func Principal(c *gin.Context) string {
	if v, ok := c.Get(principalKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

var _ TokenValidator = NopTokenValidator{}
