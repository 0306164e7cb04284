//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

// Package mysql is the MySQL-backed results store. Runs live in one
// table with the summary and patient rows as JSON columns; Save upserts
// so re-scoring a run overwrites its previous document.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	// MySQL driver registration.
	_ "github.com/go-sql-driver/mysql"

	"github.com/som-shahlab/opt-paradox/results"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS eval_runs (
	id         VARCHAR(36)  NOT NULL PRIMARY KEY,
	created_at DATETIME(6)  NOT NULL,
	log_dir    VARCHAR(512) NOT NULL,
	summary    JSON         NOT NULL,
	patients   JSON         NOT NULL
)`

// Manager stores runs in MySQL.
type Manager struct {
	db *sql.DB
}

// Open connects to dsn and ensures the runs table exists. The DSN must
// carry parseTime=true so created_at scans into time.Time.
func Open(ctx context.Context, dsn string) (*Manager, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	m := New(db)
	if err := m.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}

// New wraps an existing connection pool.
func New(db *sql.DB) *Manager {
	return &Manager{db: db}
}

var _ results.Manager = (*Manager)(nil)

// Init creates the runs table when absent.
func (m *Manager) Init(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create eval_runs table: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (m *Manager) Close() error {
	return m.db.Close()
}

// Save upserts the run document.
func (m *Manager) Save(ctx context.Context, run *results.Run) error {
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("marshal run %s summary: %w", run.ID, err)
	}
	patients, err := json.Marshal(run.Patients)
	if err != nil {
		return fmt.Errorf("marshal run %s patients: %w", run.ID, err)
	}
	_, err = m.db.ExecContext(ctx,
		`INSERT INTO eval_runs (id, created_at, log_dir, summary, patients)
		 VALUES (?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		 log_dir = VALUES(log_dir), summary = VALUES(summary), patients = VALUES(patients)`,
		run.ID, run.CreatedAt, run.LogDir, summary, patients)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// Get loads one run by ID. A missing run reports os.ErrNotExist.
func (m *Manager) Get(ctx context.Context, id string) (*results.Run, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT created_at, log_dir, summary, patients FROM eval_runs WHERE id = ?`, id)

	run := &results.Run{ID: id}
	var summary, patients []byte
	if err := row.Scan(&run.CreatedAt, &run.LogDir, &summary, &patients); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", id, os.ErrNotExist)
		}
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	if err := decodeRun(run, summary, patients); err != nil {
		return nil, err
	}
	return run, nil
}

// List loads every run, newest first.
func (m *Manager) List(ctx context.Context) ([]*results.Run, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, created_at, log_dir, summary, patients FROM eval_runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*results.Run
	for rows.Next() {
		run := &results.Run{}
		var createdAt time.Time
		var summary, patients []byte
		if err := rows.Scan(&run.ID, &createdAt, &run.LogDir, &summary, &patients); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		run.CreatedAt = createdAt
		if err := decodeRun(run, summary, patients); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func decodeRun(run *results.Run, summary, patients []byte) error {
	if err := json.Unmarshal(summary, &run.Summary); err != nil {
		return fmt.Errorf("parse run %s summary: %w", run.ID, err)
	}
	if err := json.Unmarshal(patients, &run.Patients); err != nil {
		return fmt.Errorf("parse run %s patients: %w", run.ID, err)
	}
	return nil
}
