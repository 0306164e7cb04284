//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

// Package patient loads the reference dataset of synthetic patient
// records consumed by the agent tools and the scorers.
package patient

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// ImagingStudy is one radiology record of a patient.
type ImagingStudy struct {
	ExamName string `json:"Exam Name"`
	Modality string `json:"Modality"`
	Report   string `json:"Report"`
}

// Record is one patient's reference data, consumed read-only. Reference
// range values stay untyped because the source data mixes numbers,
// strings, and nulls; ReferenceBounds handles the coercion.
type Record struct {
	PhysicalExamination string         `json:"Physical Examination"`
	LaboratoryTests     map[string]any `json:"Laboratory Tests"`
	ReferenceRangeLower map[string]any `json:"Reference Range Lower"`
	ReferenceRangeUpper map[string]any `json:"Reference Range Upper"`
	Radiology           []ImagingStudy `json:"Radiology"`
	DischargeDiagnosis  string         `json:"Discharge Diagnosis"`
	PatientHistory      string         `json:"Patient History"`
}

// Dataset is the full patient reference file keyed by patient ID.
type Dataset struct {
	records map[string]*Record
}

// Load reads a dataset JSON file: one object keyed by patient ID.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	var records map[string]*Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	return &Dataset{records: records}, nil
}

// Get returns the record for id, or ok=false when absent.
func (d *Dataset) Get(id string) (*Record, bool) {
	r, ok := d.records[id]
	return r, ok
}

// IDs returns all patient IDs in sorted order.
func (d *Dataset) IDs() []string {
	ids := make([]string, 0, len(d.records))
	for id := range d.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of patients in the dataset.
func (d *Dataset) Len() int {
	return len(d.records)
}

// ReferenceBounds returns the low/high reference bounds for a lab key.
// ok is false when either bound is missing or non-numeric, which scorers
// treat as an unknown ground truth.
func (r *Record) ReferenceBounds(key string) (low, high float64, ok bool) {
	low, okLow := asNumber(r.ReferenceRangeLower[key])
	high, okHigh := asNumber(r.ReferenceRangeUpper[key])
	return low, high, okLow && okHigh
}

// LabValue returns the raw lab result for key rendered as text. Results
// arrive as strings or numbers depending on the source export.
func (r *Record) LabValue(key string) (string, bool) {
	v, ok := r.LaboratoryTests[key]
	if !ok {
		return "", false
	}
	if s, isStr := v.(string); isStr {
		return s, true
	}
	return fmt.Sprintf("%v", v), true
}

// asNumber coerces a decoded JSON value to float64.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
