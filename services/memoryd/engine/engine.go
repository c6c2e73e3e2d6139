// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package engine defines the memory-engine contract the HTTP layer
// delegates to. The HTTP handlers are thin call-throughs; everything
// interesting about add/cognify/search lives behind this interface in
// an external collaborator.
package engine

import "context"

// AddRequest ingests raw data into a dataset.
type AddRequest struct {
	Data    string `json:"data" binding:"required"`
	Dataset string `json:"dataset"`
}

// CognifyRequest turns ingested datasets into the knowledge graph.
type CognifyRequest struct {
	Datasets []string `json:"datasets"`
}

// SearchRequest queries the engine.
type SearchRequest struct {
	Query      string `json:"query" binding:"required"`
	SearchType string `json:"search_type"`
}

// SearchResult is one search hit.
type SearchResult struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Engine is the business-logic collaborator behind the HTTP surface.
type Engine interface {
	// Add ingests data and returns the run identifier.
	Add(ctx context.Context, req AddRequest) (string, error)

	// Cognify processes datasets and returns the pipeline run identifier.
	Cognify(ctx context.Context, req CognifyRequest) (string, error)

	// Search queries the engine.
	Search(ctx context.Context, req SearchRequest) ([]SearchResult, error)
}

// NopEngine accepts everything and returns empty results. Default for
// deployments where the real engine runs elsewhere, and for tests.
type NopEngine struct{}

// Add implements Engine.
func (NopEngine) Add(ctx context.Context, req AddRequest) (string, error) {
	return "accepted", nil
}

// Cognify implements Engine.
func (NopEngine) Cognify(ctx context.Context, req CognifyRequest) (string, error) {
	return "accepted", nil
}

// Search implements Engine.
func (NopEngine) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	return []SearchResult{}, nil
}

var _ Engine = NopEngine{}
