//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

// Package results defines the stored form of one evaluation run and the
// storage interface its backends implement.
package results

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Patient is one scored patient row of a run.
type Patient struct {
	PatientID     string  `json:"patient_id"`
	Correct       bool    `json:"correct"`
	Top1          bool    `json:"top1"`
	Top3          bool    `json:"top3"`
	Top5          bool    `json:"top5"`
	ProcessingSec float64 `json:"processing_sec"`
	ToolCalls     int     `json:"tool_calls"`
	LabRequests   int     `json:"lab_req"`
	ImagingReqs   int     `json:"img_req"`
	ExamRequests  int     `json:"exam_req"`
	LabCost       float64 `json:"estimated_lab_cost"`
	Status        string  `json:"status"`
}

// Summary is the aggregate outcome of a run. Report carries the full
// human-readable summary text.
type Summary struct {
	Patients      int     `json:"patients"`
	MicroAccuracy float64 `json:"micro_accuracy"`
	MacroAccuracy float64 `json:"macro_accuracy"`
	TotalLabCost  float64 `json:"total_lab_cost"`
	TokenCost     float64 `json:"token_cost"`
	Report        string  `json:"report"`
}

// Run is one stored evaluation run.
type Run struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	LogDir    string    `json:"log_dir"`
	Summary   Summary   `json:"summary"`
	Patients  []Patient `json:"patients"`
}

// NewRun allocates a Run with a fresh ID and creation time for the given
// transcript directory.
func NewRun(logDir string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		LogDir:    logDir,
	}
}

// Manager stores and retrieves evaluation runs. Get returns an error
// wrapping os.ErrNotExist when the run is unknown; List returns runs
// newest first.
type Manager interface {
	Save(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context) ([]*Run, error)
}
