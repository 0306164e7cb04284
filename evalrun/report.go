//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

package evalrun

import (
	"fmt"
	"strings"

	"github.com/som-shahlab/opt-paradox/pathology"
	"github.com/som-shahlab/opt-paradox/results"
)

// summarize derives the run summary, including the human-readable
// report, from the accumulated counters. Every division is guarded so an
// empty directory yields a zero summary instead of a panic.
func (s *Scorer) summarize(t *totals, logDir string) results.Summary {
	micro := percent(t.correct, t.patients)
	macro := 0.0
	if len(t.pathTotal) > 0 {
		sum := 0.0
		for p, total := range t.pathTotal {
			if total > 0 {
				sum += percent(t.pathCorrect[p], total)
			}
		}
		macro = sum / float64(len(t.pathTotal))
	}

	return results.Summary{
		Patients:      t.patients,
		MicroAccuracy: micro,
		MacroAccuracy: macro,
		TotalLabCost:  t.labCost,
		TokenCost:     t.tokenCost,
		Report:        s.buildReport(t, micro, macro, logDir),
	}
}

// buildReport renders the summary text: cost metrics, accuracy averages,
// the pathology breakdown, the four treatment reports, and the
// information-request and lab-interpretation dumps.
func (s *Scorer) buildReport(t *totals, micro, macro float64, logDir string) string {
	var b strings.Builder
	b.WriteString("==== Summary Statistics ====\n")
	b.WriteString("Cost Metrics:\n")
	fmt.Fprintf(&b, "Total lab cost: $%.2f\n", t.labCost)
	fmt.Fprintf(&b, "Lab cost per patient: $%.2f\n", ratio(t.labCost, t.patients))
	fmt.Fprintf(&b, "Total token cost: $%.2f\n", t.tokenCost)
	fmt.Fprintf(&b, "Transcript directory: %s\n", logDir)
	fmt.Fprintf(&b, "Elapsed time: %.2fs\n", t.elapsedSec)
	fmt.Fprintf(&b, "Failed cases: %d\n\n", t.failed)

	fmt.Fprintf(&b, "Micro Average (Overall Diagnosis Accuracy): %.2f%%\n", micro)
	fmt.Fprintf(&b, "Macro Average (Per-Pathology Accuracy):     %.2f%%\n\n", macro)

	b.WriteString("Pathology-wise Accuracy:\n")
	if len(t.pathTotal) == 0 {
		b.WriteString("no cases to report\n")
	}
	for _, p := range pathology.All() {
		total := t.pathTotal[p]
		if total == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s: %.2f%% (%d/%d)\n", p, percent(t.pathCorrect[p], total), t.pathCorrect[p], total)
	}

	fmt.Fprintf(&b, "\nAppendicitis:\n%s", s.treatment[pathology.Appendicitis].Report())
	fmt.Fprintf(&b, "\nCholecystitis:\n%s", s.treatment[pathology.Cholecystitis].Report())
	fmt.Fprintf(&b, "\nDiverticulitis:\n%s", s.treatment[pathology.Diverticulitis].Report())
	fmt.Fprintf(&b, "\nPancreatitis:\n%s", s.treatment[pathology.Pancreatitis].Report())

	b.WriteString("\n\nInformation Request Evaluation:\n")
	fmt.Fprintf(&b, "Physical Exam First: %.2f%%\n", percent(t.physFirst, t.patients))
	fmt.Fprintf(&b, "Physical Exam Any  : %.2f%%\n\n", percent(t.physAny, t.patients))

	fmt.Fprintf(&b, "Top-1 accuracy : %.2f%%\n", percent(t.top1, t.patients))
	fmt.Fprintf(&b, "Top-3 accuracy : %.2f%%\n", percent(t.top3, t.patients))
	fmt.Fprintf(&b, "Top-5 accuracy : %.2f%%\n\n", percent(t.top5, t.patients))

	info := s.info.ComputeMetrics()
	b.WriteString("Information Request Breakdown:\n")
	fmt.Fprintf(&b, "total_patients: %d\n", info.TotalPatients)
	fmt.Fprintf(&b, "total_tool_calls: %d\n", info.TotalToolCalls)
	fmt.Fprintf(&b, "avg_tools_per_case: %.2f\n", info.AvgToolsPerCase)
	fmt.Fprintf(&b, "avg_labs_per_case: %.2f\n", info.AvgLabsPerCase)
	fmt.Fprintf(&b, "avg_imaging_per_case: %.2f\n", info.AvgImagingPerCase)
	fmt.Fprintf(&b, "avg_maneuvers_per_case: %.2f\n", info.AvgManeuversPerCase)
	fmt.Fprintf(&b, "frac_patients_with_labs: %.2f\n", info.FracPatientsWithLabs)
	fmt.Fprintf(&b, "frac_patients_with_imaging: %.2f\n", info.FracPatientsWithImaging)
	fmt.Fprintf(&b, "coverage_per_patient: %.2f\n", info.CoveragePerPatient)
	fmt.Fprintf(&b, "coverage_overall: %.2f\n", info.CoverageOverall)
	fmt.Fprintf(&b, "coverage_to_test_ratio: %.2f\n", info.CoverageToTestRatio)

	interp := s.interp.ComputeMetrics()
	b.WriteString("\nLab Interpretation Evaluation:\n")
	fmt.Fprintf(&b, "accuracy: %.2f\n", interp.Accuracy)
	fmt.Fprintf(&b, "total_tests: %d\n", interp.TotalTests)
	fmt.Fprintf(&b, "correct: %d\n", interp.Correct)

	return b.String()
}

// percent is 100*num/den with a guarded denominator.
func percent(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return 100 * float64(num) / float64(den)
}

// ratio is num/den with a guarded denominator.
func ratio(num float64, den int) float64 {
	if den == 0 {
		return 0
	}
	return num / float64(den)
}
