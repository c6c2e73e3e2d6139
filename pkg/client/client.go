// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package client is the resilient HTTP client for the memory-engine
// backend and its cloud counterpart.
//
// # Authentication
//
// Exactly one credential header is attached per call:
//
//	cloud target AND (not running in the cloud env OR no access token)
//	    -> X-Api-Key: <static key>
//	otherwise
//	    -> Authorization: Bearer <access token>
//
// The static API key comes from the immutable Config snapshot; the access
// token is held behind an explicit setter and read fresh on every call.
//
// # Retry
//
// A 401 triggers at most one token refresh followed by one re-issue of
// the original call. The retry counter lives in a per-call value, so
// concurrent calls can never clobber each other's retry accounting and a
// refresh loop is structurally impossible.
//
// # Failure Classification
//
// Callers receive typed errors, never raw transport failures:
//
//	no response received            -> ErrServerUnreachable
//	error response without detail   -> ErrNoConnection
//	error response with detail      -> *APIError
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/AleutianAI/Mnemon/pkg/logging"
	"github.com/AleutianAI/Mnemon/pkg/security"
	"github.com/google/uuid"
)

// maxAuthRetries bounds refresh-and-retry per logical call.
const maxAuthRetries = 1

// refreshPath is the token-refresh endpoint on the primary backend.
const refreshPath = "/v1/auth/refresh"

// Doer abstracts the HTTP transport so tests can inject a double.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config is the immutable client configuration snapshot.
//
// Built once from environment inputs; the only mutable credential is the
// access token, which is set through Client.SetAccessToken.
type Config struct {
	// BaseURL is the primary backend base address.
	BaseURL string

	// CloudBaseURL is the secondary ("cloud") backend base address.
	CloudBaseURL string

	// CompanionURL is the companion service base address.
	CompanionURL string

	// APIKey is the static key used when no usable token is held.
	APIKey string

	// InCloudEnv is true when the client runs in the cloud backend's
	// native environment.
	InCloudEnv bool

	// HTTPClient overrides the transport. Defaults to a cookie-jarred
	// http.Client so sessions survive cross-origin calls.
	HTTPClient Doer

	// Logger defaults to logging.Default().
	Logger *logging.Logger
}

// Client issues authenticated, retry-once requests to the backend.
//
// Safe for concurrent use: the config is immutable and the access token
// is guarded by a read-write mutex.
type Client struct {
	cfg  Config
	http Doer
	log  *logging.Logger

	mu          sync.RWMutex
	accessToken string
}

// New validates the configured base addresses and builds a client.
func New(cfg Config) (*Client, error) {
	for _, target := range []string{cfg.BaseURL, cfg.CloudBaseURL, cfg.CompanionURL} {
		if target == "" {
			continue
		}
		if err := security.ValidateURL(target); err != nil {
			return nil, fmt.Errorf("client config: %w", err)
		}
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("client config: base URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("client config: %w", err)
		}
		httpClient = &http.Client{Jar: jar, Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{cfg: cfg, http: httpClient, log: logger}, nil
}

// SetAccessToken replaces the held access token. An empty string clears
// it, which pushes cloud-target calls back to the API key.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

// AccessToken returns the currently held token, possibly empty.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// RequestOptions shape one logical call.
type RequestOptions struct {
	// Method defaults to GET.
	Method string

	// Body, when non-nil, is JSON-encoded as the request body.
	Body any

	// Header entries are added to the request after auth selection.
	Header http.Header

	// Cloud targets the secondary backend instead of the primary.
	Cloud bool
}

// requestAttempt carries per-call retry accounting. Created fresh for
// every logical call; never shared.
type requestAttempt struct {
	id      string
	retries int
}

// Do issues one logical call and returns the successful response.
//
// The caller owns the response body. All failure modes are classified:
// see the package comment.
func (c *Client) Do(ctx context.Context, path string, opts RequestOptions) (*http.Response, error) {
	attempt := &requestAttempt{id: uuid.NewString()[:8]}
	return c.do(ctx, path, opts, attempt)
}

func (c *Client) do(ctx context.Context, path string, opts RequestOptions, attempt *requestAttempt) (*http.Response, error) {
	req, err := c.buildRequest(ctx, path, opts)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// No response at all: a distinct, caller-friendly condition.
		return nil, fmt.Errorf("%w: %s %s", ErrServerUnreachable, req.Method, path)
	}

	if resp.StatusCode == http.StatusUnauthorized && attempt.retries < maxAuthRetries {
		attempt.retries++
		drainAndClose(resp.Body)
		c.log.Debug("auth failure, refreshing token", "request_id", attempt.id, "path", path)
		if err := c.refreshToken(ctx); err != nil {
			return nil, err
		}
		return c.do(ctx, path, opts, attempt)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer drainAndClose(resp.Body)
		return nil, c.classifyErrorResponse(resp)
	}
	return resp, nil
}

// buildRequest assembles the HTTP request with exactly one credential
// header attached.
func (c *Client) buildRequest(ctx context.Context, path string, opts RequestOptions) (*http.Request, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	base := c.cfg.BaseURL
	if opts.Cloud {
		base = c.cfg.CloudBaseURL
	}

	var body io.Reader
	if opts.Body != nil {
		encoded, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimSuffix(base, "/")+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range opts.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	token := c.AccessToken()
	if opts.Cloud && (!c.cfg.InCloudEnv || token == "") {
		req.Header.Set("X-Api-Key", c.cfg.APIKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// refreshToken performs the token-refresh side call against the primary
// backend and stores the new token.
func (c *Client) refreshToken(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(c.cfg.BaseURL, "/")+refreshPath, nil)
	if err != nil {
		return fmt.Errorf("build refresh request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: token refresh", ErrServerUnreachable)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return c.classifyErrorResponse(resp)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("%w: malformed refresh response", ErrNoConnection)
	}
	c.SetAccessToken(payload.AccessToken)
	return nil
}

// classifyErrorResponse turns an error response into a typed error.
func (c *Client) classifyErrorResponse(resp *http.Response) error {
	var payload struct {
		Detail string `json:"detail"`
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil || json.Unmarshal(data, &payload) != nil || payload.Detail == "" {
		return fmt.Errorf("%w (status %d)", ErrNoConnection, resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Detail: payload.Detail}
}

// drainAndClose discards the remaining body so the transport can reuse
// the connection.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64*1024))
	_ = body.Close()
}
