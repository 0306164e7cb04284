//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

// Package pathology defines the fixed set of diagnosable conditions and
// the alternate-phrasing tables used to recognize them in free text.
package pathology

// Pathology is one of the fixed set of diagnosable conditions.
type Pathology string

// The supported pathologies. Matching scans them in this declared order,
// so the order is part of the contract.
const (
	Appendicitis   Pathology = "appendicitis"
	Pancreatitis   Pathology = "pancreatitis"
	Cholecystitis  Pathology = "cholecystitis"
	Diverticulitis Pathology = "diverticulitis"
)

// All returns the pathologies in their declared matching order.
func All() []Pathology {
	return []Pathology{Appendicitis, Pancreatitis, Cholecystitis, Diverticulitis}
}

// String returns the lowercase pathology name.
func (p Pathology) String() string {
	return string(p)
}

// Parse maps a canonical lowercase name to its Pathology.
func Parse(name string) (Pathology, bool) {
	switch Pathology(name) {
	case Appendicitis, Pancreatitis, Cholecystitis, Diverticulitis:
		return Pathology(name), true
	}
	return "", false
}

// AlternateName pairs an anatomical location fragment with the disease
// modifiers that, together with it, identify a pathology phrasing.
type AlternateName struct {
	Location  string
	Modifiers []string
}

// alternateNames maps each pathology to the location/modifier pairs that
// count as that diagnosis. Every pathology has an entry so lookups never
// miss.
var alternateNames = map[Pathology][]AlternateName{
	Appendicitis: {
		{Location: "appendi", Modifiers: []string{"gangren", "infect", "inflam", "abscess", "rupture", "necros", "perf"}},
	},
	Cholecystitis: {
		{Location: "gallbladder", Modifiers: []string{"gangren", "infect", "inflam", "abscess", "necros", "perf"}},
		{Location: "cholangitis", Modifiers: []string{"cholangitis"}},
	},
	Diverticulitis: {
		{Location: "diverticul", Modifiers: []string{"inflam", "infect", "abscess", "perf", "rupture"}},
	},
	Pancreatitis: {
		{Location: "pancrea", Modifiers: []string{"gangren", "infect", "inflam", "abscess", "necros"}},
	},
}

// graciousAlternateNames holds the more lenient second-chance phrasings.
var graciousAlternateNames = map[Pathology][]AlternateName{
	Appendicitis: {},
	Cholecystitis: {
		{Location: "acute gallbladder", Modifiers: []string{"disease", "attack"}},
		{Location: "acute biliary", Modifiers: []string{"colic"}},
	},
	Diverticulitis: {
		{Location: "acute colonic", Modifiers: []string{"perfor"}},
		{Location: "sigmoid", Modifiers: []string{"perfor"}},
		{Location: "sigmoid", Modifiers: []string{"colitis"}},
	},
	Pancreatitis: {},
}

// AlternateNames returns the location/modifier pairs registered for p.
func AlternateNames(p Pathology) []AlternateName {
	return alternateNames[p]
}

// GraciousAlternateNames returns the lenient location/modifier pairs for p.
func GraciousAlternateNames(p Pathology) []AlternateName {
	return graciousAlternateNames[p]
}
