//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

// Package local is the file-backed results store: one JSON document per
// run inside a directory.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/som-shahlab/opt-paradox/results"
)

const runFileSuffix = ".json"

// Manager stores runs as JSON files under a directory.
type Manager struct {
	dir string
}

// New creates a file-backed store rooted at dir. The directory is
// created lazily on the first Save.
func New(dir string) *Manager {
	return &Manager{dir: dir}
}

var _ results.Manager = (*Manager)(nil)

// Save writes the run document atomically via a temp file rename.
func (m *Manager) Save(_ context.Context, run *results.Run) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", run.ID, err)
	}
	path := m.path(run.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Get loads one run by ID. A missing run reports os.ErrNotExist.
func (m *Manager) Get(_ context.Context, id string) (*results.Run, error) {
	data, err := os.ReadFile(m.path(id))
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	var run results.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parse run %s: %w", id, err)
	}
	return &run, nil
}

// List loads every stored run, newest first. A missing directory yields
// an empty slice; unreadable entries are skipped.
func (m *Manager) List(ctx context.Context) ([]*results.Run, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var runs []*results.Run
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), runFileSuffix) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), runFileSuffix)
		run, err := m.Get(ctx, id)
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

func (m *Manager) path(id string) string {
	return filepath.Join(m.dir, id+runFileSuffix)
}
