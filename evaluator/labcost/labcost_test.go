//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

package labcost

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchedule = `Clinical Laboratory Fee Schedule
Effective Quarter 2

YEAR,HCPCS,MOD,SHORTDESC,LONGDESC,RATE
2025,85025,,Complete cbc w/auto diff wbc,"Blood count; complete (CBC), automated",10.61
2025,80053,,Comprehen metabolic panel,"Comprehensive metabolic panel",14.49
2025,83690,,Assay of lipase,"Lipase (fluid or blood)",9.19
2025,86140,,C reactive protein,"C-reactive protein;",7.10
`

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clfs.csv")
	require.NoError(t, os.WriteFile(path, []byte(testSchedule), 0o644))
	e, err := New(path)
	require.NoError(t, err)
	return e
}

// TestNewMissingHeader verifies a schedule without the YEAR header row
// is rejected.
func TestNewMissingHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clfs.csv")
	require.NoError(t, os.WriteFile(path, []byte("just,some,data\n"), 0o644))
	_, err := New(path)
	require.Error(t, err)
}

// TestMatchTestAlias verifies alias rewriting followed by n-gram
// containment, including stripping a trailing parenthetical.
func TestMatchTestAlias(t *testing.T) {
	e := newTestEvaluator(t)

	m := e.MatchTest("Comprehensive Metabolic Panel (CMP)")
	require.True(t, m.Matched)
	assert.Equal(t, "80053", m.HCPCS)
	assert.InDelta(t, 14.49, m.Rate, 1e-9)
	assert.Equal(t, 100, m.Score)

	m = e.MatchTest("Serum Lipase")
	require.True(t, m.Matched)
	assert.Equal(t, "83690", m.HCPCS)
}

// TestMatchTestSingleToken verifies the single-word fallback searches
// short descriptions by containment.
func TestMatchTestSingleToken(t *testing.T) {
	e := newTestEvaluator(t)
	m := e.MatchTest("lipase")
	require.True(t, m.Matched)
	assert.Equal(t, "83690", m.HCPCS)
	assert.Equal(t, 100, m.Score)
}

// TestMatchTestFuzzyFallback verifies a hyphenated request that no
// n-gram contains still matches through token-set-ratio scoring.
func TestMatchTestFuzzyFallback(t *testing.T) {
	e := newTestEvaluator(t)
	m := e.MatchTest("c-reactive protein")
	require.True(t, m.Matched)
	assert.Equal(t, "86140", m.HCPCS)
	assert.GreaterOrEqual(t, m.Score, DefaultThreshold)
}

// TestMatchTestNoMatch verifies an off-schedule request prices to
// nothing instead of erroring.
func TestMatchTestNoMatch(t *testing.T) {
	e := newTestEvaluator(t)
	m := e.MatchTest("brain mri")
	assert.False(t, m.Matched)
	assert.Zero(t, m.Rate)
}

// TestUpdateAccumulates verifies per-patient costs sum into the
// dataset totals.
func TestUpdateAccumulates(t *testing.T) {
	e := newTestEvaluator(t)

	first := e.Update([]string{"Serum Lipase", "CRP"})
	assert.InDelta(t, 9.19+7.10, first, 1e-9)

	second := e.Update([]string{"brain mri"})
	assert.Zero(t, second)

	m := e.ComputeMetrics()
	assert.InDelta(t, 9.19+7.10, m.TotalCost, 1e-9)
	assert.InDelta(t, (9.19+7.10)/2, m.AvgCostPerPatient, 1e-9)
}

// TestComputeMetricsEmptyRun verifies a zero-patient run reports zero
// cost without dividing by zero.
func TestComputeMetricsEmptyRun(t *testing.T) {
	m := newTestEvaluator(t).ComputeMetrics()
	assert.Zero(t, m.TotalCost)
	assert.Zero(t, m.AvgCostPerPatient)
}
