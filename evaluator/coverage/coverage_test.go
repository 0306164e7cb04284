//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/som-shahlab/opt-paradox/pathology"
)

// TestUpdateFullCoverage verifies a fully guideline-conformant
// appendicitis workup scores 3/3.
func TestUpdateFullCoverage(t *testing.T) {
	e := New()
	e.Update(pathology.Appendicitis,
		[]string{"complete blood count (cbc)"},
		[]string{"abdominal ultrasound"},
		[]string{"mcburney's point"},
		1)
	m := e.ComputeMetrics()
	assert.InDelta(t, 1.0, m.CoveragePerPatient, 1e-12)
	assert.InDelta(t, 1.0, m.CoverageOverall, 1e-12)
}

// TestUpdateDenominatorIsCategoriesPlusTwo verifies the per-patient
// denominator: one per lab category plus one imaging plus one maneuver.
func TestUpdateDenominatorIsCategoriesPlusTwo(t *testing.T) {
	e := New()
	// Cholecystitis has two lab categories; nothing was requested.
	e.Update(pathology.Cholecystitis, nil, nil, nil, 0)
	assert.Equal(t, 4, e.totalPossibleToCover)
	m := e.ComputeMetrics()
	assert.Zero(t, m.CoveragePerPatient)
}

// TestUpdatePartialCoverage verifies covering only imaging on a
// two-lab-category pathology yields 1/4.
func TestUpdatePartialCoverage(t *testing.T) {
	e := New()
	e.Update(pathology.Cholecystitis, nil, []string{"hida scan"}, nil, 0)
	m := e.ComputeMetrics()
	assert.InDelta(t, 0.25, m.CoveragePerPatient, 1e-12)
}

// TestImagingSingleBinaryPoint verifies multiple matching imaging
// requests still earn a single point.
func TestImagingSingleBinaryPoint(t *testing.T) {
	e := New()
	e.Update(pathology.Appendicitis, nil,
		[]string{"abdominal ultrasound", "ct abdomen", "mri abdomen"}, nil, 0)
	// 1 imaging point out of 1 lab category + 2.
	m := e.ComputeMetrics()
	assert.InDelta(t, 1.0/3.0, m.CoveragePerPatient, 1e-12)
}

// TestMicroMacroDiverge verifies pooled and averaged coverage differ
// when patients have different denominators.
func TestMicroMacroDiverge(t *testing.T) {
	e := New()
	// Appendicitis: full coverage, 3/3.
	e.Update(pathology.Appendicitis,
		[]string{"cbc with differential"},
		[]string{"ct abdomen"},
		[]string{"mcburney point tenderness"},
		1)
	// Cholecystitis: nothing, 0/4.
	e.Update(pathology.Cholecystitis, nil, nil, nil, 0)

	m := e.ComputeMetrics()
	// Macro: (1.0 + 0.0) / 2; micro: pooled 3 of 7.
	assert.InDelta(t, 0.5, m.CoveragePerPatient, 1e-12)
	assert.InDelta(t, 3.0/7.0, m.CoverageOverall, 1e-12)
	assert.Equal(t, 2, m.TotalPatients)
}

// TestComputeMetricsEmptyRun verifies a zero-patient run returns zeros
// without dividing by zero.
func TestComputeMetricsEmptyRun(t *testing.T) {
	m := New().ComputeMetrics()
	assert.Zero(t, m.TotalPatients)
	assert.Zero(t, m.AvgToolsPerCase)
	assert.Zero(t, m.CoveragePerPatient)
	assert.Zero(t, m.CoverageOverall)
	assert.Zero(t, m.CoverageToTestRatio)
}

// TestComputeMetricsIdempotent verifies repeated metric computation does
// not mutate state.
func TestComputeMetricsIdempotent(t *testing.T) {
	e := New()
	e.Update(pathology.Pancreatitis, []string{"lipase"}, nil, nil, 1)
	first := e.ComputeMetrics()
	second := e.ComputeMetrics()
	assert.Equal(t, first, second)
}
