//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

// Package transcript defines the per-patient artifact written by the
// agent runner and consumed by the evaluation pass.
//
// The file format is a single-line JSON meta header, a blank line, and
// the human-readable conversation: "{type}:\n{content}" per turn,
// separated by blank lines. The scorers read structured fields from the
// header and harvest the body separately.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Metrics are the per-turn tool-usage counters collected while the agent
// runs one patient.
type Metrics struct {
	PhysicalExamFirst     bool     `json:"physical_exam_first"`
	PhysicalExamRequested bool     `json:"physical_exam_requested"`
	LabTestsRequested     []string `json:"lab_tests_requested"`
	ImagingRequested      []string `json:"imaging_requested"`
	ManeuversRequested    []string `json:"physical_exam_maneuvers_requested"`
	LabCount              int      `json:"lab_count"`
	ImagingCount          int      `json:"imaging_count"`
	ToolCallCount         int      `json:"tool_call_count"`
	PhysicalExamCount     int      `json:"physical_exam_count"`
}

// Turn is one conversation step with its role tag.
type Turn struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Meta is the JSON front-matter of a transcript file.
type Meta struct {
	Final         string  `json:"final"`
	Metrics       Metrics `json:"metrics"`
	Error         bool    `json:"error"`
	DurationSec   float64 `json:"duration_sec"`
	GoldDiagnosis string  `json:"gold_diagnosis"`
}

// Transcript is a fully parsed per-patient artifact.
type Transcript struct {
	PatientID string
	Meta      Meta
	Body      string
}

// Path returns the transcript file path for a patient inside dir.
func Path(dir, patientID string) string {
	return filepath.Join(dir, patientID+".txt")
}

// Write saves the transcript for a patient under dir, atomically via a
// temp file rename. When no turns were recorded (a crashed run) the
// final text is written as the body so the failure stays inspectable.
func Write(dir, patientID string, meta Meta, turns []Turn) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	header, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal transcript meta: %w", err)
	}

	var b strings.Builder
	b.Write(header)
	b.WriteString("\n\n")
	if len(turns) == 0 {
		b.WriteString(meta.Final)
		b.WriteString("\n")
	}
	for _, turn := range turns {
		b.WriteString(turn.Type)
		b.WriteString(":\n")
		b.WriteString(turn.Content)
		b.WriteString("\n\n")
	}

	path := Path(dir, patientID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Read loads and splits a transcript file. The patient ID is the file
// name without extension.
func Read(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript %s: %w", path, err)
	}
	header, body, _ := strings.Cut(string(data), "\n\n")
	var meta Meta
	if err := json.Unmarshal([]byte(header), &meta); err != nil {
		return nil, fmt.Errorf("parse transcript meta %s: %w", path, err)
	}
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &Transcript{PatientID: id, Meta: meta, Body: body}, nil
}
