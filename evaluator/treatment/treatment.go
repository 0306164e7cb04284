//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

// Package treatment scores free-text treatment plans against
// per-pathology guideline categories.
//
// A category counts as requested when either a direct procedure keyword
// is asserted in the plan, or some sentence asserts both a location and
// a modifier from the category's alternate-phrasing table. Both checks
// are negation-aware, so "no appendectomy indicated" does not count.
package treatment

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/som-shahlab/opt-paradox/nlp"
	"github.com/som-shahlab/opt-paradox/pathology"
)

// treatmentRE captures everything after the "Treatment:" marker.
var treatmentRE = regexp.MustCompile(`(?s)Treatment:\s*(.*)`)

// ExtractTreatment returns the treatment section of a final transcript
// turn, or "" when no marker is present.
func ExtractTreatment(text string) string {
	m := treatmentRE.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// Phrasing is one alternate way of proposing a procedure: a body
// location plus intervention modifiers, all of which are matched per
// sentence.
type Phrasing struct {
	Location  string
	Modifiers []string
}

// Category is one guideline treatment with its detection tables.
type Category struct {
	Name       string
	Keywords   []string
	Alternates []Phrasing
	// Required reports whether guidelines mandate this treatment for
	// the pathology, versus merely tolerating it.
	Required bool
}

var (
	surgicalModifiers = []string{"surgery", "surgical", "removal", "remove"}

	drainageKeywords = []string{"drain", "pigtail", "catheter", "aspiration"}

	drainageLocationsPancreatitis = []string{
		"abscess", "abdom", "pelvic", "peritoneal", "pancrea",
		"gallbladder", "biliary", "bile duct", "perirectal",
	}
	drainageLocationsDiverticulitis = []string{
		"abscess", "abdom", "pelvic", "peritoneal", "pericolonic",
		"sigmoid", "diverticular", "pararectal",
	}

	// Misspellings below reflect phrasings that actually occur in model
	// output; the keyword check is substring-based, not fuzzy.
	cholecystectomyKeywords = []string{
		"cholecystectomy",
		"cholecystecotmy",
		"cholecsytectomy",
		"cholecystecomy",
		"cholecytectomy",
		"laparoscopic cholecystitis",
		"cholecyctectomy",
	}

	ercpKeywords = []string{
		"biliary stent",
		"biliary cannulation",
		"ercp",
		"endoscopic retrograde cholangiography",
		"endoscopic retrograde cholangiopancreatography",
		"cholangiogram",
		"cbd stent",
		"pancreatic stent",
		"sphincterotomy",
		"sphinctertomy",
	}

	colectomyKeywords = []string{
		"low anterior resection",
		"colectomy",
		"colonic resection",
		"colostomy",
		"resection of rectosigmoid colon",
		"resection of sigmoid colon",
		"rectosigmoid resection",
		"resection of colon",
		"sigmoidectomy",
		"sigmoid resection",
		"small bowel resection",
	}

	antibioticsCategory = Category{
		Name:     "Antibiotics",
		Keywords: []string{"antibiotic"},
		Required: true,
	}
	supportCategory = Category{
		Name:     "Support",
		Keywords: []string{"fluid", "analgesi", "pain"},
		Required: true,
	}
)

func drainagePhrasings(locations []string) []Phrasing {
	out := make([]Phrasing, 0, len(locations))
	for _, loc := range locations {
		out = append(out, Phrasing{Location: loc, Modifiers: drainageKeywords})
	}
	return out
}

// Evaluator accumulates per-category request rates for one pathology.
// Mutated once per matching patient through ScoreTreatment from a
// single driver loop.
type Evaluator struct {
	categories []Category
	counts     []int
	totalCases int
}

// newEvaluator builds an evaluator over a fixed category list.
func newEvaluator(categories ...Category) *Evaluator {
	return &Evaluator{
		categories: categories,
		counts:     make([]int, len(categories)),
	}
}

// NewAppendicitis evaluates appendicitis treatment plans.
func NewAppendicitis() *Evaluator {
	return newEvaluator(
		Category{
			Name:       "Appendectomy",
			Keywords:   []string{"appendectomy"},
			Alternates: []Phrasing{{Location: "appendix", Modifiers: surgicalModifiers}},
			Required:   true,
		},
		antibioticsCategory,
		supportCategory,
	)
}

// NewCholecystitis evaluates cholecystitis treatment plans.
func NewCholecystitis() *Evaluator {
	return newEvaluator(
		Category{
			Name:       "Cholecystectomy",
			Keywords:   cholecystectomyKeywords,
			Alternates: []Phrasing{{Location: "gallbladder", Modifiers: surgicalModifiers}},
			Required:   true,
		},
		antibioticsCategory,
		supportCategory,
	)
}

// NewDiverticulitis evaluates diverticulitis treatment plans.
func NewDiverticulitis() *Evaluator {
	return newEvaluator(
		Category{
			Name:     "Colonoscopy",
			Keywords: []string{"colonoscopy"},
			Required: true,
		},
		antibioticsCategory,
		supportCategory,
		Category{
			Name:       "Drainage",
			Alternates: drainagePhrasings(drainageLocationsDiverticulitis),
		},
		Category{
			Name:       "Colectomy",
			Keywords:   colectomyKeywords,
			Alternates: []Phrasing{{Location: "colon", Modifiers: surgicalModifiers}},
		},
	)
}

// NewPancreatitis evaluates pancreatitis treatment plans.
func NewPancreatitis() *Evaluator {
	return newEvaluator(
		supportCategory,
		Category{
			Name:       "Drainage",
			Keywords:   drainageKeywords,
			Alternates: drainagePhrasings(drainageLocationsPancreatitis),
		},
		Category{
			Name:     "ERCP",
			Keywords: ercpKeywords,
		},
		Category{
			Name:       "Cholecystectomy",
			Keywords:   cholecystectomyKeywords,
			Alternates: []Phrasing{{Location: "gallbladder", Modifiers: surgicalModifiers}},
		},
	)
}

// ForPathology returns the evaluator matching a pathology.
func ForPathology(p pathology.Pathology) *Evaluator {
	switch p {
	case pathology.Appendicitis:
		return NewAppendicitis()
	case pathology.Cholecystitis:
		return NewCholecystitis()
	case pathology.Diverticulitis:
		return NewDiverticulitis()
	case pathology.Pancreatitis:
		return NewPancreatitis()
	}
	return nil
}

// ScoreTreatment marks which guideline categories one plan proposes.
// Every category is evaluated on every call; each call scores the plan
// independently of earlier patients.
func (e *Evaluator) ScoreTreatment(text string) {
	e.totalCases++
	for i, cat := range e.categories {
		if procedureRequested(cat.Keywords, text) || alternativeRequested(cat.Alternates, text) {
			e.counts[i]++
		}
	}
}

// TotalCases returns how many plans have been scored.
func (e *Evaluator) TotalCases() int { return e.totalCases }

// Requested returns the request count for a named category, ok=false
// for an unknown name.
func (e *Evaluator) Requested(name string) (int, bool) {
	for i, cat := range e.categories {
		if cat.Name == name {
			return e.counts[i], true
		}
	}
	return 0, false
}

// Report formats per-category request percentages, one category per
// line. Safe on zero scored cases.
func (e *Evaluator) Report() string {
	var b strings.Builder
	for i, cat := range e.categories {
		pct := 0.0
		if e.totalCases > 0 {
			pct = 100 * float64(e.counts[i]) / float64(e.totalCases)
		}
		fmt.Fprintf(&b, "%s Requested: %.2f%% (%d/%d)\n",
			cat.Name, pct, e.counts[i], e.totalCases)
	}
	return b.String()
}

// procedureRequested reports whether any keyword is asserted in the
// plan text.
func procedureRequested(keywords []string, text string) bool {
	for _, kw := range keywords {
		if nlp.KeywordPositive(text, kw) {
			return true
		}
	}
	return false
}

// alternativeRequested reports whether some sentence asserts both a
// location and one of its modifiers.
func alternativeRequested(alternates []Phrasing, text string) bool {
	for _, alt := range alternates {
		for _, mod := range alt.Modifiers {
			for _, sentence := range strings.Split(text, ".") {
				if nlp.KeywordPositive(sentence, alt.Location) && nlp.KeywordPositive(sentence, mod) {
					return true
				}
			}
		}
	}
	return false
}
