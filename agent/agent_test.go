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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/som-shahlab/opt-paradox/model"
	"github.com/som-shahlab/opt-paradox/patient"
	"github.com/som-shahlab/opt-paradox/tokencost"
)

const agentTestDataset = `{
  "10001": {
    "Patient History": "34F with 2 days of right lower quadrant pain.",
    "Physical Examination": "Tenderness at McBurney's point.",
    "Laboratory Tests": {"White Blood Cells": "12.5"},
    "Reference Range Lower": {"White Blood Cells": 4.5},
    "Reference Range Upper": {"White Blood Cells": 11.0},
    "Radiology": [
      {"Exam Name": "CT Abdomen", "Modality": "CT", "Report": "Dilated appendix."}
    ],
    "Discharge Diagnosis": "Appendicitis"
  }
}`

func loadAgentDataset(t *testing.T) *patient.Dataset {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patients.json")
	require.NoError(t, os.WriteFile(path, []byte(agentTestDataset), 0o644))
	ds, err := patient.Load(path)
	require.NoError(t, err)
	return ds
}

// scriptedChat replays canned responses in order, repeating the last one
// once the script runs out.
type scriptedChat struct {
	responses []string
	calls     int
	err       error
}

func (c *scriptedChat) Generate(_ context.Context, _ []model.Message) (*model.Response, error) {
	if c.err != nil {
		return nil, c.err
	}
	i := c.calls
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	c.calls++
	return &model.Response{
		Content:          c.responses[i],
		PromptTokens:     10,
		CompletionTokens: 5,
	}, nil
}

// TestRunFullSession drives one patient through exam, labs with
// interpretation, and diagnosis, checking the metrics and the turn
// sequence.
func TestRunFullSession(t *testing.T) {
	ds := loadAgentDataset(t)
	info := &scriptedChat{responses: []string{
		"Thought: Start with the abdomen.\nAction: Physical Examination\nAction Input: McBurney's point",
		"Thought: Now labs.\nAction: Laboratory Tests\nAction Input: CBC (includes WBC, RBC), Serum Lipase",
		"Thought: Enough information.\nAction: done\nAction Input: \"\"",
	}}
	interpret := &scriptedChat{responses: []string{
		`Lab Interpretation: {"White Blood Cells": {"value": 12.5, "interpretation": "high"}}`,
	}}
	diagnose := &scriptedChat{responses: []string{
		"Thought: Classic presentation.\n**Final Diagnosis (ranked):**\n1. Appendicitis\nTreatment: appendectomy",
	}}
	matcher := &scriptedChat{responses: []string{"White Blood Cells: 12.5"}}
	usage := tokencost.NewUsage()

	a := New(ds,
		Role{Chat: info, Model: "m-info"},
		Role{Chat: interpret, Model: "m-interp"},
		Role{Chat: diagnose, Model: "m-diag"},
		Role{Chat: matcher, Model: "m-match"},
		WithUsage(usage))

	result, err := a.Run(context.Background(), "10001")
	require.NoError(t, err)

	assert.Equal(t, 3, info.calls)
	assert.Equal(t, 1, interpret.calls)
	assert.Equal(t, 1, diagnose.calls)
	assert.Equal(t, 1, matcher.calls)
	assert.Contains(t, result.Final, "Appendicitis")

	m := result.Metrics
	assert.True(t, m.PhysicalExamFirst)
	assert.True(t, m.PhysicalExamRequested)
	assert.Equal(t, 3, m.ToolCallCount)
	assert.Equal(t, 1, m.PhysicalExamCount)
	assert.Equal(t, 1, m.LabCount)
	assert.Zero(t, m.ImagingCount)
	assert.Equal(t, []string{"mcburney's point"}, m.ManeuversRequested)
	assert.Equal(t, []string{"cbc (includes wbc, rbc)", "serum lipase"}, m.LabTestsRequested)

	var types []string
	for _, turn := range result.Turns {
		types = append(types, turn.Type)
	}
	assert.Equal(t, []string{
		TurnHuman,
		TurnInfoGathering, TurnTool,
		TurnInfoGathering, TurnTool, TurnInterpretation,
		TurnInfoGathering,
		TurnDiagnosis,
	}, types)
}

// TestRunIterationCap verifies the loop forces a diagnosis once the
// iteration cap is reached even when the model keeps requesting tools.
func TestRunIterationCap(t *testing.T) {
	ds := loadAgentDataset(t)
	info := &scriptedChat{responses: []string{
		"Thought: more imaging\nAction: Imaging\nAction Input: CT Abdomen",
	}}
	diagnose := &scriptedChat{responses: []string{
		"**Final Diagnosis (ranked):**\n1. Appendicitis\nTreatment: appendectomy",
	}}
	matcher := &scriptedChat{responses: []string{"CT Abdomen (CT): Dilated appendix."}}

	a := New(ds,
		Role{Chat: info, Model: "m"},
		Role{Chat: &scriptedChat{responses: []string{"unused"}}, Model: "m"},
		Role{Chat: diagnose, Model: "m"},
		Role{Chat: matcher, Model: "m"},
		WithMaxIterations(3))

	result, err := a.Run(context.Background(), "10001")
	require.NoError(t, err)

	assert.Equal(t, 3, info.calls)
	assert.Equal(t, 1, diagnose.calls)
	assert.Equal(t, 2, matcher.calls)
	assert.Equal(t, 3, result.Metrics.ToolCallCount)
}

// TestRunModelFailure verifies a backend failure aborts the patient with
// a wrapped error.
func TestRunModelFailure(t *testing.T) {
	ds := loadAgentDataset(t)
	info := &scriptedChat{err: errors.New("backend down")}

	a := New(ds,
		Role{Chat: info, Model: "m"},
		Role{Chat: info, Model: "m"},
		Role{Chat: info, Model: "m"},
		Role{Chat: info, Model: "m"})

	_, err := a.Run(context.Background(), "10001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend down")
}

// TestRunUnknownPatient verifies an unknown ID fails before any model
// call is made.
func TestRunUnknownPatient(t *testing.T) {
	ds := loadAgentDataset(t)
	info := &scriptedChat{responses: []string{"unused"}}

	a := New(ds,
		Role{Chat: info, Model: "m"},
		Role{Chat: info, Model: "m"},
		Role{Chat: info, Model: "m"},
		Role{Chat: info, Model: "m"})

	_, err := a.Run(context.Background(), "99999")
	require.Error(t, err)
	assert.Zero(t, info.calls)
}
