//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

// Package evalrun scores a directory of per-patient transcripts: it runs
// every evaluator over each transcript, writes the per-patient CSV and
// the summary report, and assembles the stored run document.
//
// Scoring is fail-open per patient: an unreadable transcript is skipped
// and reported in the aggregated error, never aborting the pass.
package evalrun

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"

	"github.com/som-shahlab/opt-paradox/config"
	"github.com/som-shahlab/opt-paradox/diagnosis"
	"github.com/som-shahlab/opt-paradox/evaluator/coverage"
	"github.com/som-shahlab/opt-paradox/evaluator/labcost"
	"github.com/som-shahlab/opt-paradox/evaluator/labinterp"
	"github.com/som-shahlab/opt-paradox/evaluator/treatment"
	"github.com/som-shahlab/opt-paradox/log"
	"github.com/som-shahlab/opt-paradox/pathology"
	"github.com/som-shahlab/opt-paradox/results"
	"github.com/som-shahlab/opt-paradox/tokencost"
	"github.com/som-shahlab/opt-paradox/transcript"
)

// csvHeader is the per-patient CSV column set, stable for downstream
// notebooks.
var csvHeader = []string{
	"patient_id", "correct", "top1", "top3", "top5", "processing_sec",
	"tool_calls", "lab_req", "img_req", "exam_req",
	"estimated_lab_cost", "status",
}

// Scorer aggregates one evaluation pass. Single-threaded: every
// evaluator is updated once per patient from the driver loop.
type Scorer struct {
	matcher   *diagnosis.Matcher
	interp    *labinterp.Evaluator
	labCost   *labcost.Evaluator
	info      *coverage.Evaluator
	treatment map[pathology.Pathology]*treatment.Evaluator
	tracking  config.CostTracking
	logger    log.Logger
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithCostTracking enables token-cost pricing of the run's usage file.
func WithCostTracking(tracking config.CostTracking) Option {
	return func(s *Scorer) { s.tracking = tracking }
}

// WithLogger routes scoring progress logging.
func WithLogger(logger log.Logger) Option {
	return func(s *Scorer) { s.logger = logger }
}

// New assembles a Scorer from the injected evaluators. One treatment
// evaluator per pathology is created internally.
func New(matcher *diagnosis.Matcher, interp *labinterp.Evaluator, labCost *labcost.Evaluator, info *coverage.Evaluator, opt ...Option) *Scorer {
	s := &Scorer{
		matcher:   matcher,
		interp:    interp,
		labCost:   labCost,
		info:      info,
		treatment: make(map[pathology.Pathology]*treatment.Evaluator, len(pathology.All())),
		logger:    log.Default,
	}
	for _, p := range pathology.All() {
		s.treatment[p] = treatment.ForPathology(p)
	}
	for _, apply := range opt {
		apply(s)
	}
	return s
}

// totals are the run-level counters accumulated over patients.
type totals struct {
	patients    int
	correct     int
	failed      int
	top1        int
	top3        int
	top5        int
	physFirst   int
	physAny     int
	labCost     float64
	elapsedSec  float64
	tokenCost   float64
	pathTotal   map[pathology.Pathology]int
	pathCorrect map[pathology.Pathology]int
}

// ScoreDir evaluates every transcript under logDir and writes the
// per-patient CSV and summary report into resultsDir. The returned run
// document carries the summary and all patient rows; the returned error
// aggregates per-transcript failures alongside any fatal output error.
func (s *Scorer) ScoreDir(ctx context.Context, logDir, resultsDir string) (*results.Run, error) {
	paths, err := doublestar.FilepathGlob(filepath.Join(logDir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("glob transcripts in %s: %w", logDir, err)
	}
	sort.Strings(paths)
	s.logger.Infof("evaluating %d patients from %s", len(paths), logDir)

	run := results.NewRun(logDir)
	t := totals{
		pathTotal:   make(map[pathology.Pathology]int),
		pathCorrect: make(map[pathology.Pathology]int),
	}

	var errs *multierror.Error
	for _, path := range paths {
		tr, err := transcript.Read(path)
		if err != nil {
			s.logger.Errorf("skipping transcript: %v", err)
			errs = multierror.Append(errs, err)
			continue
		}
		run.Patients = append(run.Patients, s.scorePatient(ctx, tr, &t))
	}

	if s.tracking.CostTable != nil {
		cost, err := tokencost.Compute(logDir, s.tracking)
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		t.tokenCost = cost
	}

	run.Summary = s.summarize(&t, logDir)

	if err := s.writeCSV(csvPath(resultsDir, logDir), run.Patients); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := writeReport(summaryPath(resultsDir, logDir), run.Summary.Report); err != nil {
		errs = multierror.Append(errs, err)
	}
	return run, errs.ErrorOrNil()
}

// scorePatient folds one transcript into every evaluator and returns its
// result row.
func (s *Scorer) scorePatient(ctx context.Context, tr *transcript.Transcript, t *totals) results.Patient {
	meta := tr.Meta
	m := meta.Metrics

	var top1, top3, top5 bool
	var matched pathology.Pathology
	var haveMatch bool

	if meta.Error {
		t.failed++
	} else {
		matched, haveMatch = s.matcher.MatchPathology(strings.ToLower(meta.GoldDiagnosis))
		if haveMatch {
			ranked := diagnosis.ParseRankedDiagnoses(meta.Final)
			if len(ranked) == 0 {
				ranked = []string{diagnosis.ParseDiagnosis(meta.Final)}
			}
			s.logger.Debugf("%s ranked diagnoses: %v", tr.PatientID, ranked)
			top1 = s.matcher.CheckMatch(matched, ranked[0])
			top3 = anyMatch(s.matcher, matched, ranked, 3)
			top5 = anyMatch(s.matcher, matched, ranked, 5)
		}
		if top1 {
			t.top1++
		}
		if top3 {
			t.top3++
		}
		if top5 {
			t.top5++
		}
	}
	correct := top1 && !meta.Error

	s.interp.Update(ctx, tr.PatientID, tr.Body)
	patientLabCost := s.labCost.Update(m.LabTestsRequested)
	t.labCost += patientLabCost

	t.patients++
	if correct {
		t.correct++
	}
	t.elapsedSec += meta.DurationSec
	if m.PhysicalExamFirst {
		t.physFirst++
	}
	if m.PhysicalExamRequested {
		t.physAny++
	}

	if haveMatch {
		t.pathTotal[matched]++
		if correct {
			t.pathCorrect[matched]++
		}
		s.info.Update(matched, m.LabTestsRequested, m.ImagingRequested, m.ManeuversRequested, m.PhysicalExamCount)
		s.treatment[matched].ScoreTreatment(treatment.ExtractTreatment(meta.Final))
	}

	status := "ok"
	if meta.Error {
		status = "failed"
	}
	return results.Patient{
		PatientID:     tr.PatientID,
		Correct:       correct,
		Top1:          top1,
		Top3:          top3,
		Top5:          top5,
		ProcessingSec: meta.DurationSec,
		ToolCalls:     m.ToolCallCount,
		LabRequests:   m.LabCount,
		ImagingReqs:   m.ImagingCount,
		ExamRequests:  m.PhysicalExamCount,
		LabCost:       patientLabCost,
		Status:        status,
	}
}

// anyMatch reports whether any of the first n candidates states the
// matched pathology.
func anyMatch(m *diagnosis.Matcher, p pathology.Pathology, candidates []string, n int) bool {
	if n > len(candidates) {
		n = len(candidates)
	}
	for _, c := range candidates[:n] {
		if m.CheckMatch(p, c) {
			return true
		}
	}
	return false
}

// writeCSV saves the per-patient rows.
func (s *Scorer) writeCSV(path string, patients []results.Patient) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create results csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range patients {
		row := []string{
			p.PatientID,
			yesNo(p.Correct),
			boolDigit(p.Top1), boolDigit(p.Top3), boolDigit(p.Top5),
			fmt.Sprintf("%.2f", p.ProcessingSec),
			fmt.Sprintf("%d", p.ToolCalls),
			fmt.Sprintf("%d", p.LabRequests),
			fmt.Sprintf("%d", p.ImagingReqs),
			fmt.Sprintf("%d", p.ExamRequests),
			fmt.Sprintf("%.2f", p.LabCost),
			p.Status,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeReport(path, report string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(report), 0o644)
}

// csvPath names the per-patient CSV after the transcript directory.
func csvPath(resultsDir, logDir string) string {
	return filepath.Join(resultsDir, filepath.Base(logDir)+".csv")
}

// summaryPath names the summary report after the transcript directory.
func summaryPath(resultsDir, logDir string) string {
	return filepath.Join(resultsDir, "summary_"+filepath.Base(logDir)+".txt")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
