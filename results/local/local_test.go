//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/som-shahlab/opt-paradox/results"
)

// TestSaveGetRoundTrip verifies a saved run is recovered intact.
func TestSaveGetRoundTrip(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "runs"))
	ctx := context.Background()

	run := results.NewRun("/tmp/logs")
	run.Summary = results.Summary{Patients: 2, MicroAccuracy: 50.0, TotalLabCost: 12.34}
	run.Patients = []results.Patient{
		{PatientID: "10001", Correct: true, Status: "processed"},
		{PatientID: "10002", Status: "failed"},
	}
	require.NoError(t, m.Save(ctx, run))

	got, err := m.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Summary, got.Summary)
	assert.Equal(t, run.Patients, got.Patients)
}

// TestGetMissingRun verifies an unknown ID reports os.ErrNotExist.
func TestGetMissingRun(t *testing.T) {
	m := New(t.TempDir())
	_, err := m.Get(context.Background(), "no-such-run")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

// TestListMissingDirectory verifies a never-written store lists empty
// without error.
func TestListMissingDirectory(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "never-created"))
	runs, err := m.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

// TestListNewestFirst verifies ordering and that non-run files are
// skipped.
func TestListNewestFirst(t *testing.T) {
	dir := t.TempDir()
	m := New(dir)
	ctx := context.Background()

	older := results.NewRun("/tmp/a")
	older.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := results.NewRun("/tmp/b")
	newer.CreatedAt = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, m.Save(ctx, older))
	require.NoError(t, m.Save(ctx, newer))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	runs, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, older.ID, runs[1].ID)
}
