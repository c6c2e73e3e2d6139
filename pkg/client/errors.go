// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package client

import (
	"errors"
	"fmt"
)

// Sentinel errors for transport-failure classification. Callers branch
// with errors.Is; raw transport errors never escape this package.
var (
	// ErrServerUnreachable means no response was received at all.
	ErrServerUnreachable = errors.New("server is unreachable")

	// ErrNoConnection means the server answered with an error response
	// that lacked the expected detail field.
	ErrNoConnection = errors.New("no connection to server")
)

// APIError is a server-reported failure with a usable detail message.
type APIError struct {
	// StatusCode is the HTTP status the server returned.
	StatusCode int

	// Detail is the server's error detail, safe to show to a user.
	Detail string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Detail)
}

// UnresponsiveError means a liveness target failed every probe attempt.
type UnresponsiveError struct {
	// Target names the probed service.
	Target string

	// Attempts is the number of probes performed before giving up.
	Attempts int
}

// Error implements the error interface.
func (e *UnresponsiveError) Error() string {
	return fmt.Sprintf("%s is unresponsive after %d attempts", e.Target, e.Attempts)
}
