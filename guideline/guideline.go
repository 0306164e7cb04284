//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

// Package guideline holds the static clinical reference tables: the lab
// tests, imaging studies, and physical-exam maneuvers recommended for
// each pathology.
//
// The tables are hand-curated from clinical guidelines, loaded once, and
// never mutated. Every pathology has an entry (possibly empty) in every
// table so lookups never miss.
package guideline

import (
	"strings"

	"github.com/som-shahlab/opt-paradox/pathology"
)

// Test is a canonical lab test or imaging study name with the broader
// panel or study names it may be requested under.
type Test struct {
	Canonical   string
	ContainedIn []string
}

// Category is an OR-group of recommended tests: the category counts as
// covered when any one of its tests was requested.
type Category struct {
	Name  string
	Tests []Test
}

// labTests maps each pathology to its recommended lab categories.
var labTests = map[pathology.Pathology][]Category{
	pathology.Appendicitis: {
		{
			Name: "inflammation",
			Tests: []Test{
				{Canonical: "white blood cell count (WBC)", ContainedIn: []string{"complete blood count (CBC)", "cbc with differential"}},
				{Canonical: "c-reactive protein (CRP)"},
			},
		},
	},
	pathology.Cholecystitis: {
		{
			Name: "inflammation",
			Tests: []Test{
				{Canonical: "white blood cell count (WBC)", ContainedIn: []string{"complete blood count (CBC)", "cbc with differential"}},
				{Canonical: "c-reactive protein (CRP)"},
			},
		},
		{
			Name: "cbds_risk",
			Tests: []Test{
				{Canonical: "alanine transaminase (ALT)", ContainedIn: []string{"comprehensive metabolic panel (CMP)", "liver function panel (LFP)", "liver enzymes", "liver function test (LFT)"}},
				{Canonical: "aspartate transaminase (AST)", ContainedIn: []string{"comprehensive metabolic panel (CMP)", "liver function panel (LFP)", "liver enzymes", "liver function test (LFT)"}},
				{Canonical: "alkaline phosphatase (ALP)", ContainedIn: []string{"comprehensive metabolic panel (CMP)", "liver function panel (LFP)", "liver enzymes", "liver function test (LFT)"}},
				{Canonical: "gamma glutamyltransferase (GGT)", ContainedIn: []string{"liver function panel (LFP)", "liver enzymes", "liver function test (LFT)"}},
				{Canonical: "bilirubin", ContainedIn: []string{"comprehensive metabolic panel (CMP)", "liver function panel (LFP)", "liver function test (LFT)"}},
			},
		},
	},
	pathology.Diverticulitis: {
		{
			Name: "inflammation",
			Tests: []Test{
				{Canonical: "white blood cell count (WBC)", ContainedIn: []string{"complete blood count (CBC)", "cbc with differential"}},
				{Canonical: "c-reactive protein (CRP)"},
			},
		},
	},
	pathology.Pancreatitis: {
		{
			Name: "serum_enzymes",
			Tests: []Test{
				{Canonical: "lipase", ContainedIn: []string{"serum lipase"}},
				{Canonical: "amylase", ContainedIn: []string{"serum amylase"}},
			},
		},
		{
			Name: "other_markers",
			Tests: []Test{
				{Canonical: "c-reactive protein (CRP)"},
				{Canonical: "hematocrit", ContainedIn: []string{"complete blood count (CBC)"}},
				{Canonical: "blood urea nitrogen (BUN)", ContainedIn: []string{"basic metabolic panel (BMP)", "comprehensive metabolic panel (CMP)"}},
				{Canonical: "procalcitonin"},
				{Canonical: "serum triglycerides"},
				{Canonical: "calcium", ContainedIn: []string{"basic metabolic panel (BMP)", "comprehensive metabolic panel (CMP)"}},
			},
		},
	},
}

// imagingTests maps each pathology to its recommended imaging categories.
// Unlike labs, imaging is scored as one binary point across all
// categories, but the category structure documents the clinical ordering.
var imagingTests = map[pathology.Pathology][]Category{
	pathology.Appendicitis: {
		{
			Name: "initial_imaging",
			Tests: []Test{
				{Canonical: "abdominal ultrasound (US)", ContainedIn: []string{"ultrasound abdomen", "ultrasound (abdomen)", "abdominal ultrasound"}},
			},
		},
		{
			Name: "if_inconclusive",
			Tests: []Test{
				{Canonical: "ct scan of the abdomen and pelvis", ContainedIn: []string{"ct abdomen", "ct pelvis", "ct abdomen/pelvis", "abdominal ct", "pelvic ct"}},
			},
		},
		{
			Name: "if_ct_contraindicated",
			Tests: []Test{
				{Canonical: "mri (abdomen)", ContainedIn: []string{"mri abdomen", "abdominal mri"}},
			},
		},
	},
	pathology.Cholecystitis: {
		{
			Name: "initial_imaging",
			Tests: []Test{
				{Canonical: "abdominal ultrasound (US)", ContainedIn: []string{"ultrasound abdomen", "ultrasound (abdomen)", "abdominal ultrasound"}},
			},
		},
		{
			Name: "if_inconclusive",
			Tests: []Test{
				{Canonical: "hida scan (cholescintigraphy)", ContainedIn: []string{"hida scan", "hepatobiliary iminodiacetic acid scan", "cholescintigraphy"}},
				{Canonical: "mri (abdomen)", ContainedIn: []string{"mri abdomen", "abdominal mri"}},
			},
		},
		{
			Name: "less_frequent",
			Tests: []Test{
				{Canonical: "ct scan (abdomen)", ContainedIn: []string{"ct abdomen", "abdominal ct"}},
			},
		},
	},
	pathology.Diverticulitis: {
		{
			Name: "initial_imaging",
			Tests: []Test{
				{Canonical: "ct scan of the abdomen and pelvis", ContainedIn: []string{"ct abdomen", "ct pelvis", "ct abdomen/pelvis", "abdominal ct", "pelvic ct"}},
			},
		},
		{
			Name: "if_unavailable_or_contraindicated",
			Tests: []Test{
				{Canonical: "abdominal ultrasound (US)", ContainedIn: []string{"ultrasound abdomen", "ultrasound (abdomen)", "abdominal ultrasound"}},
				{Canonical: "mri (abdomen/pelvis)", ContainedIn: []string{"mri abdomen", "mri pelvis", "mri abdomen/pelvis", "abdominal mri", "pelvic mri"}},
			},
		},
	},
	pathology.Pancreatitis: {
		{
			Name: "initial_imaging",
			Tests: []Test{
				{Canonical: "abdominal ultrasound (US)", ContainedIn: []string{"ultrasound abdomen", "ultrasound (abdomen)", "abdominal ultrasound"}},
			},
		},
		{
			Name: "if_doubt_exists",
			Tests: []Test{
				{Canonical: "ct scan (abdomen)", ContainedIn: []string{"ct abdomen", "abdominal ct"}},
			},
		},
		{
			Name: "if_severe",
			Tests: []Test{
				{Canonical: "contrast-enhanced ct (ce-ct)", ContainedIn: []string{"contrast ct abdomen", "ce-ct abdomen", "enhanced ct scan", "ct scan with contrast"}},
				{Canonical: "mri (abdomen)", ContainedIn: []string{"mri abdomen", "abdominal mri"}},
			},
		},
		{
			Name: "screen_for_cbds",
			Tests: []Test{
				{Canonical: "magnetic resonance cholangiopancreatography (mrcp)", ContainedIn: []string{"mrcp", "magnetic resonance cholangiopancreatography"}},
				{Canonical: "endoscopic ultrasound (eus)", ContainedIn: []string{"eus", "endoscopic ultrasonography"}},
			},
		},
	},
}

// maneuverSynonyms maps each pathology to the phrasings of its key
// physical-exam maneuver.
var maneuverSynonyms = map[pathology.Pathology][]string{
	pathology.Appendicitis: {
		"mcburney",
		"mcburney's",
		"mcburney point",
		"mcburney's point",
		"point of mcburney",
		"mcburney tenderness",
		"right iliac tenderness",
		"tenderness at mcburney",
		"tenderness at mcburney's point",
	},
	pathology.Cholecystitis: {
		"murphy",
		"murphy's",
		"murphy sign",
		"murphy's sign",
		"inspiratory arrest",
		"halted inspiration",
		"interruption of breath",
		"breath catching",
		"respiratory arrest with palpation",
	},
	pathology.Diverticulitis: {
		"left lower quadrant",
		"llq",
		"sigmoid",
		"sigmoid tenderness",
		"tenderness over sigmoid",
		"left iliac fossa",
		"lif",
		"left-sided abdominal tenderness",
		"sigmoid colon tenderness",
	},
	pathology.Pancreatitis: {
		"epigastric",
		"epigastrium",
		"upper abdominal",
		"mid-upper abdomen",
		"central upper abdomen",
		"transabdominal tenderness",
		"midline upper abdomen",
		"central abdominal tenderness",
		"mid-epigastric",
	},
}

// LabCategories returns the recommended lab categories for p.
func LabCategories(p pathology.Pathology) []Category {
	return labTests[p]
}

// ImagingCategories returns the recommended imaging categories for p.
func ImagingCategories(p pathology.Pathology) []Category {
	return imagingTests[p]
}

// ManeuverSynonyms returns the phrasings of the key physical-exam
// maneuver for p.
func ManeuverSynonyms(p pathology.Pathology) []string {
	return maneuverSynonyms[p]
}

// Synonyms returns the canonical name followed by the contained-in names,
// all lowercased, the form every matcher consumes.
func (t Test) Synonyms() []string {
	out := make([]string, 0, len(t.ContainedIn)+1)
	out = append(out, strings.ToLower(t.Canonical))
	for _, c := range t.ContainedIn {
		out = append(out, strings.ToLower(c))
	}
	return out
}
