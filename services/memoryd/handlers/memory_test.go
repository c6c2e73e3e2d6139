// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Mnemon/services/memoryd/engine"
)

// mockEngine records calls and replays configured behavior.
type mockEngine struct {
	AddFunc     func(ctx context.Context, req engine.AddRequest) (string, error)
	CognifyFunc func(ctx context.Context, req engine.CognifyRequest) (string, error)
	SearchFunc  func(ctx context.Context, req engine.SearchRequest) ([]engine.SearchResult, error)
}

func (m *mockEngine) Add(ctx context.Context, req engine.AddRequest) (string, error) {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, req)
	}
	return "run-1", nil
}

func (m *mockEngine) Cognify(ctx context.Context, req engine.CognifyRequest) (string, error) {
	if m.CognifyFunc != nil {
		return m.CognifyFunc(ctx, req)
	}
	return "run-2", nil
}

func (m *mockEngine) Search(ctx context.Context, req engine.SearchRequest) ([]engine.SearchResult, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, req)
	}
	return []engine.SearchResult{}, nil
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestAdd_Accepted(t *testing.T) {
	var captured engine.AddRequest
	eng := &mockEngine{
		AddFunc: func(ctx context.Context, req engine.AddRequest) (string, error) {
			captured = req
			return "run-42", nil
		},
	}
	router := gin.New()
	router.POST("/v1/add", Add(eng))

	w := postJSON(router, "/v1/add", `{"data":"hello world","dataset":"notes"}`)

	require.Equal(t, http.StatusAccepted, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "run-42", body["run_id"])
	assert.Equal(t, "hello world", captured.Data)
	assert.Equal(t, "notes", captured.Dataset)
}

func TestAdd_MissingDataIsValidationError(t *testing.T) {
	router := gin.New()
	router.POST("/v1/add", Add(&mockEngine{}))

	w := postJSON(router, "/v1/add", `{"dataset":"notes"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "invalid add request", body["detail"])
}

func TestAdd_EngineFailureIsSanitized(t *testing.T) {
	eng := &mockEngine{
		AddFunc: func(ctx context.Context, req engine.AddRequest) (string, error) {
			return "", errors.New("pgx: connection reset at 10.0.0.5:5432")
		},
	}
	router := gin.New()
	router.POST("/v1/add", Add(eng))

	w := postJSON(router, "/v1/add", `{"data":"x"}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "An internal error occurred", body["detail"])
	assert.Len(t, body["error_id"], 8)
	assert.NotContains(t, w.Body.String(), "10.0.0.5", "internal detail must never leak")
}

func TestCognify_Accepted(t *testing.T) {
	var captured engine.CognifyRequest
	eng := &mockEngine{
		CognifyFunc: func(ctx context.Context, req engine.CognifyRequest) (string, error) {
			captured = req
			return "run-7", nil
		},
	}
	router := gin.New()
	router.POST("/v1/cognify", Cognify(eng))

	w := postJSON(router, "/v1/cognify", `{"datasets":["notes","docs"]}`)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"notes", "docs"}, captured.Datasets)
}

func TestCognify_EmptyBodyIsValidationError(t *testing.T) {
	router := gin.New()
	router.POST("/v1/cognify", Cognify(&mockEngine{}))

	w := postJSON(router, "/v1/cognify", `not json`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearch_ReturnsResults(t *testing.T) {
	eng := &mockEngine{
		SearchFunc: func(ctx context.Context, req engine.SearchRequest) ([]engine.SearchResult, error) {
			return []engine.SearchResult{
				{ID: "n1", Text: "hello", Score: 0.92},
			}, nil
		},
	}
	router := gin.New()
	router.POST("/v1/search", Search(eng))

	w := postJSON(router, "/v1/search", `{"query":"hello","search_type":"chunks"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Results []engine.SearchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "n1", body.Results[0].ID)
	assert.InDelta(t, 0.92, body.Results[0].Score, 1e-9)
}

func TestSearch_MissingQueryIsValidationError(t *testing.T) {
	router := gin.New()
	router.POST("/v1/search", Search(&mockEngine{}))

	w := postJSON(router, "/v1/search", `{"search_type":"chunks"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
