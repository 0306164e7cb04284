//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/som-shahlab/opt-paradox/model"
	"github.com/som-shahlab/opt-paradox/patient"
	"github.com/som-shahlab/opt-paradox/tokencost"
)

// ToolResult is one retrieval outcome: the action it answers and the
// text handed back to the conversation.
type ToolResult struct {
	Action string
	Result string
}

// RetrieveResults serves patient data to the agent: raw physical exam
// text, and lab/imaging results filtered through the matcher model so
// only what was requested comes back.
type RetrieveResults struct {
	dataset *patient.Dataset
	matcher Role
	usage   *tokencost.Usage
}

// NewRetrieveResults builds the retrieval tool. usage may be nil when
// token accounting is not wanted.
func NewRetrieveResults(dataset *patient.Dataset, matcher Role, usage *tokencost.Usage) *RetrieveResults {
	return &RetrieveResults{dataset: dataset, matcher: matcher, usage: usage}
}

// Retrieve answers one parsed action for a patient. An unrecognized
// action returns a format reminder rather than an error so the agent
// can correct itself.
func (t *RetrieveResults) Retrieve(ctx context.Context, patientID, action, actionInput string) (ToolResult, error) {
	switch action {
	case ActionPhysicalExamination:
		return t.physical(patientID), nil
	case ActionLaboratoryTests:
		return t.labs(ctx, patientID, actionInput)
	case ActionImaging:
		return t.imaging(ctx, patientID, actionInput)
	}
	return ToolResult{
		Result: "Please use the correct format to request Physical Examination, Laboratory Tests, or Imaging.",
	}, nil
}

func (t *RetrieveResults) physical(patientID string) ToolResult {
	findings := "No physical exam data."
	if rec, ok := t.dataset.Get(patientID); ok && rec.PhysicalExamination != "" {
		findings = rec.PhysicalExamination
	}
	return ToolResult{Action: ActionPhysicalExamination, Result: findings}
}

func (t *RetrieveResults) labs(ctx context.Context, patientID, requested string) (ToolResult, error) {
	rec, _ := t.dataset.Get(patientID)
	var available []string
	if rec != nil {
		names := make([]string, 0, len(rec.LaboratoryTests))
		for name := range rec.LaboratoryTests {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			value, _ := rec.LabValue(name)
			available = append(available, fmt.Sprintf("%s: %s", name, value))
		}
	}

	text, err := t.generate(ctx, labsMatcherPrompt(requested, strings.Join(available, ", ")))
	if err != nil {
		return ToolResult{}, fmt.Errorf("match lab results: %w", err)
	}
	return ToolResult{Action: ActionLaboratoryTests, Result: text}, nil
}

func (t *RetrieveResults) imaging(ctx context.Context, patientID, requested string) (ToolResult, error) {
	rec, _ := t.dataset.Get(patientID)
	if rec == nil || len(rec.Radiology) == 0 {
		return ToolResult{Action: ActionImaging, Result: "No imaging data."}, nil
	}
	var studies []string
	for _, s := range rec.Radiology {
		report := strings.ReplaceAll(s.Report, "\n", " ")
		studies = append(studies, fmt.Sprintf("%s (%s): %s", s.ExamName, s.Modality, report))
	}

	text, err := t.generate(ctx, imagingMatcherPrompt(requested, strings.Join(studies, ", ")))
	if err != nil {
		return ToolResult{}, fmt.Errorf("match imaging results: %w", err)
	}
	return ToolResult{Action: ActionImaging, Result: text}, nil
}

// generate runs one matcher completion, records its token usage, and
// flattens the output to a single line.
func (t *RetrieveResults) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := t.matcher.Chat.Generate(ctx, []model.Message{model.User(prompt)})
	if err != nil {
		return "", err
	}
	if t.usage != nil {
		t.usage.Record(RoleMatcher, t.matcher.Model, resp.PromptTokens, resp.CompletionTokens)
	}
	return strings.ReplaceAll(resp.Content, "\n", " "), nil
}
