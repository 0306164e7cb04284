//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

package transcript

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWriteReadRoundTrip verifies the meta header and body survive a
// write/read cycle.
func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	meta := Meta{
		Final:         "Final Diagnosis: appendicitis",
		Error:         false,
		DurationSec:   12.5,
		GoldDiagnosis: "appendicitis",
		Metrics: Metrics{
			LabTestsRequested: []string{"cbc", "crp"},
			LabCount:          1,
			ToolCallCount:     3,
			PhysicalExamFirst: true,
		},
	}
	turns := []Turn{
		{Type: "InfoGatheringMessage", Content: "Thought: need labs.\nAction: Laboratory Tests\nAction Input: CBC, CRP"},
		{Type: "DiagnosisMessage", Content: "Final Diagnosis: appendicitis"},
	}
	require.NoError(t, Write(dir, "10001", meta, turns))

	got, err := Read(Path(dir, "10001"))
	require.NoError(t, err)
	assert.Equal(t, "10001", got.PatientID)
	assert.Equal(t, meta, got.Meta)
	assert.Contains(t, got.Body, "InfoGatheringMessage:\n")
	assert.Contains(t, got.Body, "Final Diagnosis: appendicitis")
}

// TestWriteCrashedRunKeepsFinalText verifies a run with no recorded turns
// still writes an inspectable body.
func TestWriteCrashedRunKeepsFinalText(t *testing.T) {
	dir := t.TempDir()
	meta := Meta{Final: "[ERROR] stream failure: boom", Error: true}
	require.NoError(t, Write(dir, "10002", meta, nil))

	got, err := Read(Path(dir, "10002"))
	require.NoError(t, err)
	assert.True(t, got.Meta.Error)
	assert.Contains(t, got.Body, "[ERROR] stream failure")
}

// TestWriteHeaderIsSingleLine verifies the front-matter stays on line one
// so header/body splitting on the first blank line is unambiguous.
func TestWriteHeaderIsSingleLine(t *testing.T) {
	dir := t.TempDir()
	meta := Meta{Final: "text with\nnewlines", GoldDiagnosis: "pancreatitis"}
	require.NoError(t, Write(dir, "10003", meta, []Turn{{Type: "A", Content: "b"}}))

	raw, err := os.ReadFile(Path(dir, "10003"))
	require.NoError(t, err)
	lines := strings.SplitN(string(raw), "\n", 3)
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "{"))
	assert.Equal(t, "", lines[1])
}

// TestReadMalformedHeader verifies a corrupted header returns an error
// rather than panicking.
func TestReadMalformedHeader(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir, "bad")
	require.NoError(t, os.WriteFile(path, []byte("not json\n\nbody"), 0o644))
	_, err := Read(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse transcript meta")
}
