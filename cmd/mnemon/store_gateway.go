// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the pgx driver with database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// baseSchema is the idempotent bootstrap the migration tool builds on.
// The migration tool assumes these tables exist; everything else about
// the schema belongs to the tool, not to bring-up.
const baseSchema = `
CREATE TABLE IF NOT EXISTS principals (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	is_default BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS datasets (
	id UUID PRIMARY KEY,
	owner_id UUID NOT NULL REFERENCES principals(id),
	name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (owner_id, name)
);
`

// StoreGateway is bring-up's view of the relational store.
//
// Two short-lived concerns only: a connectivity check for the dependency
// wait and the idempotent base-table bootstrap. Application data access
// never goes through this type.
type StoreGateway interface {
	// Ping performs one blocking connectivity check.
	Ping(ctx context.Context) error

	// EnsureBaseTables creates the base tables if absent. Idempotent;
	// any error is fatal to startup.
	EnsureBaseTables(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}

// sqlStoreGateway implements StoreGateway over database/sql with pgx.
type sqlStoreGateway struct {
	db *sql.DB
}

// OpenStoreGateway opens a gateway for the given Postgres DSN.
//
// sql.Open is lazy; no connection is made until Ping, which is exactly
// what the dependency wait needs.
func OpenStoreGateway(dsn string) (StoreGateway, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open relational store: %w", err)
	}
	// Bring-up is serial; one connection is all it ever needs.
	db.SetMaxOpenConns(1)
	return &sqlStoreGateway{db: db}, nil
}

func (g *sqlStoreGateway) Ping(ctx context.Context) error {
	return g.db.PingContext(ctx)
}

func (g *sqlStoreGateway) EnsureBaseTables(ctx context.Context) error {
	if _, err := g.db.ExecContext(ctx, baseSchema); err != nil {
		return fmt.Errorf("bootstrap base tables: %w", err)
	}
	return nil
}

func (g *sqlStoreGateway) Close() error {
	return g.db.Close()
}

// MockStoreGateway is a test double for StoreGateway.
type MockStoreGateway struct {
	PingFunc             func(ctx context.Context) error
	EnsureBaseTablesFunc func(ctx context.Context) error

	PingCalls      int
	BootstrapCalls int
	Closed         bool
}

func (m *MockStoreGateway) Ping(ctx context.Context) error {
	m.PingCalls++
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockStoreGateway) EnsureBaseTables(ctx context.Context) error {
	m.BootstrapCalls++
	if m.EnsureBaseTablesFunc != nil {
		return m.EnsureBaseTablesFunc(ctx)
	}
	return nil
}

func (m *MockStoreGateway) Close() error {
	m.Closed = true
	return nil
}

var (
	_ StoreGateway = (*sqlStoreGateway)(nil)
	_ StoreGateway = (*MockStoreGateway)(nil)
)
