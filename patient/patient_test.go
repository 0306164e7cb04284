//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

package patient

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDataset = `{
  "10001": {
    "Physical Examination": "Soft abdomen, RLQ tenderness.",
    "Laboratory Tests": {"White Blood Cells": "12.5 K/uL", "Hemoglobin": 13.1},
    "Reference Range Lower": {"White Blood Cells": 4.0, "Hemoglobin": 12.0},
    "Reference Range Upper": {"White Blood Cells": 11.0, "Hemoglobin": null},
    "Radiology": [{"Exam Name": "CT Abdomen", "Modality": "CT", "Report": "Dilated appendix."}],
    "Discharge Diagnosis": "Appendicitis",
    "Patient History": "22F with RLQ pain."
  }
}`

func loadSample(t *testing.T) *Dataset {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patients.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDataset), 0o644))
	ds, err := Load(path)
	require.NoError(t, err)
	return ds
}

// TestLoadAndGet verifies a record round-trips from disk.
func TestLoadAndGet(t *testing.T) {
	ds := loadSample(t)
	assert.Equal(t, 1, ds.Len())
	rec, ok := ds.Get("10001")
	require.True(t, ok)
	assert.Equal(t, "Appendicitis", rec.DischargeDiagnosis)
	assert.Len(t, rec.Radiology, 1)
}

// TestReferenceBounds verifies numeric coercion and the missing-bound case.
func TestReferenceBounds(t *testing.T) {
	ds := loadSample(t)
	rec, _ := ds.Get("10001")

	low, high, ok := rec.ReferenceBounds("White Blood Cells")
	require.True(t, ok)
	assert.InDelta(t, 4.0, low, 1e-12)
	assert.InDelta(t, 11.0, high, 1e-12)

	_, _, ok = rec.ReferenceBounds("Hemoglobin")
	assert.False(t, ok, "null upper bound must yield ok=false")
}

// TestLabValue verifies string and numeric results both render.
func TestLabValue(t *testing.T) {
	ds := loadSample(t)
	rec, _ := ds.Get("10001")

	v, ok := rec.LabValue("White Blood Cells")
	require.True(t, ok)
	assert.Equal(t, "12.5 K/uL", v)

	v, ok = rec.LabValue("Hemoglobin")
	require.True(t, ok)
	assert.Equal(t, "13.1", v)

	_, ok = rec.LabValue("Lipase")
	assert.False(t, ok)
}

// TestLoadMissingFile verifies a readable error for an absent dataset.
func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read dataset")
}
