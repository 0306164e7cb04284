//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

// Package coverage scores information-gathering behavior against the
// guideline reference tables: which recommended labs, imaging studies,
// and exam maneuvers the agent actually requested, and at what cost in
// tool calls.
package coverage

import (
	"strings"

	"github.com/som-shahlab/opt-paradox/guideline"
	"github.com/som-shahlab/opt-paradox/internal/fuzz"
	"github.com/som-shahlab/opt-paradox/pathology"
)

// DefaultThreshold is the fuzzy-match cutoff (inclusive) for comparing
// requested items against guideline names.
const DefaultThreshold = 90

// Evaluator accumulates coverage and efficiency statistics across
// patients. Mutated once per patient through Update from a single
// driver loop; no internal locking.
type Evaluator struct {
	threshold int

	totalPatients           int
	totalPhysicalExams      int
	patientsWithLabRequests int
	patientsWithImaging     int

	totalPossibleToCover int
	totalCovered         int
	coverageScores       []float64

	totalManeuvers int
	totalLabs      int
	totalImaging   int
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithThreshold overrides the fuzzy-match cutoff.
func WithThreshold(threshold int) Option {
	return func(e *Evaluator) { e.threshold = threshold }
}

// New creates an Evaluator with the default threshold.
func New(opt ...Option) *Evaluator {
	e := &Evaluator{threshold: DefaultThreshold}
	for _, o := range opt {
		o(e)
	}
	return e
}

// Metrics is the dataset-level summary produced by ComputeMetrics.
type Metrics struct {
	TotalPatients           int
	TotalToolCalls          int
	AvgToolsPerCase         float64
	AvgLabsPerCase          float64
	AvgImagingPerCase       float64
	AvgManeuversPerCase     float64
	FracPatientsWithLabs    float64
	FracPatientsWithImaging float64
	// CoveragePerPatient is the macro-style average of per-case ratios;
	// CoverageOverall the micro-style pooled-sum ratio.
	CoveragePerPatient  float64
	CoverageOverall     float64
	CoverageToTestRatio float64
}

// Update folds one patient encounter into the running statistics.
//
// Lab categories are OR-groups: one point per category any of whose
// test names matches any requested lab. Imaging earns a single binary
// point across all its categories, and the key maneuver another. The
// per-patient denominator is lab-category count + 2.
func (e *Evaluator) Update(p pathology.Pathology, requestedLabs, requestedImaging, requestedManeuvers []string, physicalExamCount int) {
	e.totalPatients++
	e.totalPhysicalExams += physicalExamCount
	e.totalManeuvers += len(requestedManeuvers)
	e.totalLabs += len(requestedLabs)
	e.totalImaging += len(requestedImaging)
	if len(requestedLabs) > 0 {
		e.patientsWithLabRequests++
	}
	if len(requestedImaging) > 0 {
		e.patientsWithImaging++
	}

	labCategories := guideline.LabCategories(p)
	coveredCategories := 0
	for _, cat := range labCategories {
		if e.categoryCovered(cat, requestedLabs) {
			coveredCategories++
		}
	}

	imagingScore := 0
	if e.imagingCovered(p, requestedImaging) {
		imagingScore = 1
	}

	maneuverScore := 0
	if e.maneuverCovered(p, requestedManeuvers) {
		maneuverScore = 1
	}

	possible := len(labCategories) + 2
	covered := coveredCategories + imagingScore + maneuverScore
	e.totalPossibleToCover += possible
	e.totalCovered += covered

	ratio := 0.0
	if possible > 0 {
		ratio = float64(covered) / float64(possible)
	}
	e.coverageScores = append(e.coverageScores, ratio)
}

// ComputeMetrics derives the dataset summary. Pure: repeated calls
// without intervening updates return identical results, and every
// division is guarded so an empty run yields zeros.
func (e *Evaluator) ComputeMetrics() Metrics {
	m := Metrics{TotalPatients: e.totalPatients}
	m.TotalToolCalls = e.totalLabs + e.totalImaging + e.totalPhysicalExams
	if e.totalPatients > 0 {
		n := float64(e.totalPatients)
		m.AvgToolsPerCase = float64(m.TotalToolCalls) / n
		m.AvgLabsPerCase = float64(e.totalLabs) / n
		m.AvgImagingPerCase = float64(e.totalImaging) / n
		m.AvgManeuversPerCase = float64(e.totalManeuvers) / n
		m.FracPatientsWithLabs = float64(e.patientsWithLabRequests) / n
		m.FracPatientsWithImaging = float64(e.patientsWithImaging) / n
	}
	if len(e.coverageScores) > 0 {
		sum := 0.0
		for _, s := range e.coverageScores {
			sum += s
		}
		m.CoveragePerPatient = sum / float64(len(e.coverageScores))
	}
	if e.totalPossibleToCover > 0 {
		m.CoverageOverall = float64(e.totalCovered) / float64(e.totalPossibleToCover)
	}
	if m.AvgToolsPerCase > 0 {
		m.CoverageToTestRatio = m.CoveragePerPatient / m.AvgToolsPerCase
	}
	return m
}

// categoryCovered reports whether any test in the category matches any
// requested lab.
func (e *Evaluator) categoryCovered(cat guideline.Category, requested []string) bool {
	for _, test := range cat.Tests {
		for _, syn := range test.Synonyms() {
			for _, req := range requested {
				if e.fuzzyMatch(req, syn) {
					return true
				}
			}
		}
	}
	return false
}

// imagingCovered flattens every imaging option across categories and
// fires on the first match.
func (e *Evaluator) imagingCovered(p pathology.Pathology, requested []string) bool {
	for _, cat := range guideline.ImagingCategories(p) {
		for _, opt := range cat.Tests {
			for _, syn := range opt.Synonyms() {
				for _, req := range requested {
					if e.fuzzyMatch(req, syn) {
						return true
					}
				}
			}
		}
	}
	return false
}

// maneuverCovered matches requested maneuvers against the pathology's
// key-maneuver synonyms with partial-ratio only.
func (e *Evaluator) maneuverCovered(p pathology.Pathology, requested []string) bool {
	for _, req := range requested {
		req = strings.ToLower(strings.TrimSpace(req))
		for _, syn := range guideline.ManeuverSynonyms(p) {
			if fuzz.PartialRatio(req, strings.ToLower(syn)) >= e.threshold {
				return true
			}
		}
	}
	return false
}

// fuzzyMatch takes the higher of token-set-ratio and partial-ratio
// against the threshold.
func (e *Evaluator) fuzzyMatch(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if fuzz.TokenSetRatio(a, b) >= e.threshold {
		return true
	}
	return fuzz.PartialRatio(a, b) >= e.threshold
}
