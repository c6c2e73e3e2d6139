// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command memoryd starts the memory-engine HTTP service.
//
// This binary is what the launcher (cmd/mnemon) hands off to; it can
// also be run directly when the store is already migrated.
//
// # Environment Variables
//
//   - MEMORYD_PORT: HTTP server port (default: 8000)
//   - MEMORYD_MODE: dev, local or prod (default: prod)
//   - MEMORYD_API_KEY: static API key accepted in X-Api-Key
//   - MEMORYD_LOG_LEVEL: debug enables verbose logging
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (optional)
//   - MEMORYD_RATE_PER_SECOND / MEMORYD_RATE_BURST: per-client limits
package main

import (
	"log"
	"os"
	"strconv"

	"github.com/AleutianAI/Mnemon/pkg/logging"
	"github.com/AleutianAI/Mnemon/services/memoryd"
)

func main() {
	level := logging.LevelInfo
	if os.Getenv("MEMORYD_LOG_LEVEL") == "debug" {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{Level: level, Service: "memoryd", JSON: true})
	defer logger.Close()

	cfg := memoryd.Config{
		Port:          getEnvInt("MEMORYD_PORT", 8000),
		Mode:          getEnvString("MEMORYD_MODE", "prod"),
		APIKey:        os.Getenv("MEMORYD_API_KEY"),
		OTelEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		RatePerSecond: getEnvFloat("MEMORYD_RATE_PER_SECOND", 50),
		Burst:         getEnvInt("MEMORYD_RATE_BURST", 100),
	}

	svc := memoryd.New(cfg, nil, logger)
	if err := svc.Run(); err != nil {
		log.Fatalf("memoryd error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvFloat returns the environment variable as a float or a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
