//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

package labinterp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/som-shahlab/opt-paradox/model"
	"github.com/som-shahlab/opt-paradox/patient"
)

const testDataset = `{
  "10001": {
    "Laboratory Tests": {
      "White Blood Cells": "12.5",
      "Hemoglobin": 10.0,
      "Urine Culture": "NEG."
    },
    "Reference Range Lower": {
      "White Blood Cells": 4.5,
      "Hemoglobin": 12.0
    },
    "Reference Range Upper": {
      "White Blood Cells": 11.0,
      "Hemoglobin": 16.0
    }
  }
}`

func loadTestDataset(t *testing.T) *patient.Dataset {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patients.json")
	require.NoError(t, os.WriteFile(path, []byte(testDataset), 0o644))
	ds, err := patient.Load(path)
	require.NoError(t, err)
	return ds
}

// fakeOracle always answers the same thing and counts its calls.
type fakeOracle struct {
	answer string
	calls  int
}

func (f *fakeOracle) Generate(_ context.Context, _ []model.Message) (*model.Response, error) {
	f.calls++
	return &model.Response{Content: f.answer}, nil
}

// TestNormalizeInterpretation verifies synonym folding onto the four
// canonical classes and passthrough of unrecognized phrasings.
func TestNormalizeInterpretation(t *testing.T) {
	assert.Equal(t, "high", NormalizeInterpretation("Slightly Elevated"))
	assert.Equal(t, "high", NormalizeInterpretation("high"))
	assert.Equal(t, "low", NormalizeInterpretation("borderline low"))
	assert.Equal(t, "normal", NormalizeInterpretation("WNL"))
	assert.Equal(t, "unknown", NormalizeInterpretation(""))
	assert.Equal(t, "unknown", NormalizeInterpretation("N/A"))
	assert.Equal(t, "flagged", NormalizeInterpretation("Flagged"))
}

// TestUpdateExactAndAbbrev verifies exact and abbreviation-table name
// resolution with ground truth classified from the reference ranges.
func TestUpdateExactAndAbbrev(t *testing.T) {
	e := New(loadTestDataset(t))
	transcript := `Lab Interpretation:
{"wbc": {"value": 12.5, "interpretation": "elevated"},
 "Hemoglobin": {"value": 10.0, "interpretation": "low"}}`
	e.Update(context.Background(), "10001", transcript)

	res, ok := e.PatientResult("10001")
	require.True(t, ok)
	assert.Equal(t, Result{Correct: 2, Total: 2}, res)
}

// TestUpdateRepairedBlock verifies a block that is not strict JSON is
// recovered by the textual repairs, and that a mismatched
// interpretation still counts in the denominator.
func TestUpdateRepairedBlock(t *testing.T) {
	e := New(loadTestDataset(t))
	// Bare NEG value; reference bounds are missing so ground truth is
	// unknown and the claimed "normal" is wrong.
	e.Update(context.Background(), "10001",
		`{"Urine Culture": {"value": NEG, "interpretation": "normal"}}`)

	res, _ := e.PatientResult("10001")
	assert.Equal(t, Result{Correct: 0, Total: 1}, res)
}

// TestUpdateFuzzyResolution verifies near-miss names resolve through
// partial-ratio matching with the long-name threshold.
func TestUpdateFuzzyResolution(t *testing.T) {
	e := New(loadTestDataset(t))
	e.Update(context.Background(), "10001",
		`{"White Blood Cell Count": {"value": 12.5, "interpretation": "high"}}`)

	res, _ := e.PatientResult("10001")
	assert.Equal(t, Result{Correct: 1, Total: 1}, res)
}

// TestUpdateUnresolvedNameDropped verifies a name no cascade stage can
// resolve is excluded from the denominator entirely.
func TestUpdateUnresolvedNameDropped(t *testing.T) {
	e := New(loadTestDataset(t))
	e.Update(context.Background(), "10001",
		`{"Troponin I": {"value": 0.01, "interpretation": "normal"}}`)

	res, _ := e.PatientResult("10001")
	assert.Equal(t, Result{}, res)
	assert.Zero(t, e.ComputeMetrics().TotalTests)
}

// TestUpdateOracleResolutionCached verifies the semantic oracle is
// consulted after the earlier stages fail and its verdict is memoized.
func TestUpdateOracleResolutionCached(t *testing.T) {
	oracle := &fakeOracle{answer: "Yes"}
	e := New(loadTestDataset(t), WithSkipFuzzy(true), WithOracle(oracle))

	transcript := `{"Leukocytes": {"value": 12.5, "interpretation": "low"}}`
	e.Update(context.Background(), "10001", transcript)
	require.Equal(t, 1, oracle.calls)

	// First sorted lab key is Hemoglobin (10.0, below range): low.
	res, _ := e.PatientResult("10001")
	assert.Equal(t, Result{Correct: 1, Total: 1}, res)

	e.Update(context.Background(), "10001", transcript)
	assert.Equal(t, 1, oracle.calls)
}

// TestUpdateWrapperBlock verifies a wrapper object around the
// name-to-entry mapping is descended one level.
func TestUpdateWrapperBlock(t *testing.T) {
	e := New(loadTestDataset(t))
	e.Update(context.Background(), "10001",
		`{"Lab Interpretation": {"Hemoglobin": {"value": 10.0, "interpretation": "decreased"}}}`)

	res, _ := e.PatientResult("10001")
	assert.Equal(t, Result{Correct: 1, Total: 1}, res)
}

// TestComputeMetricsEmptyRun verifies a zero-test run reports zero
// accuracy without dividing by zero.
func TestComputeMetricsEmptyRun(t *testing.T) {
	m := New(loadTestDataset(t)).ComputeMetrics()
	assert.Zero(t, m.Accuracy)
	assert.Zero(t, m.TotalTests)
	assert.Zero(t, m.Correct)
}
