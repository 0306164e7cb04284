//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

// Package diagnosis maps free-text diagnosis statements onto the fixed
// pathology set and judges their correctness.
//
// Correctness checking runs three escalating tiers: a fuzzy match against
// the canonical pathology name guarded by negation detection, then the
// alternative location/modifier phrasings, then the more lenient gracious
// phrasings. The first tier to succeed decides.
package diagnosis

import (
	"strings"

	"github.com/som-shahlab/opt-paradox/internal/fuzz"
	"github.com/som-shahlab/opt-paradox/log"
	"github.com/som-shahlab/opt-paradox/nlp"
	"github.com/som-shahlab/opt-paradox/pathology"
)

// Default fuzzy thresholds. Both are exclusive cutoffs and empirically
// tuned; override them through the options rather than editing here.
const (
	DefaultMatchThreshold     = 90
	DefaultPathologyThreshold = 80
)

// Matcher judges diagnosis text against the pathology set.
type Matcher struct {
	matchThreshold     int
	pathologyThreshold int
	logger             log.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithMatchThreshold overrides the primary-tier similarity cutoff.
func WithMatchThreshold(threshold int) Option {
	return func(m *Matcher) { m.matchThreshold = threshold }
}

// WithPathologyThreshold overrides the pathology-mapping cutoff.
func WithPathologyThreshold(threshold int) Option {
	return func(m *Matcher) { m.pathologyThreshold = threshold }
}

// WithLogger routes audit logging of individual comparisons.
func WithLogger(logger log.Logger) Option {
	return func(m *Matcher) { m.logger = logger }
}

// NewMatcher creates a Matcher with the tuned default thresholds.
func NewMatcher(opt ...Option) *Matcher {
	m := &Matcher{
		matchThreshold:     DefaultMatchThreshold,
		pathologyThreshold: DefaultPathologyThreshold,
		logger:             log.Default,
	}
	for _, o := range opt {
		o(m)
	}
	return m
}

// MatchPathology returns the first pathology, in declared order, whose
// name scores above the pathology threshold against text.
func (m *Matcher) MatchPathology(text string) (pathology.Pathology, bool) {
	lowered := strings.ToLower(text)
	for _, p := range pathology.All() {
		if fuzz.PartialRatio(lowered, p.String()) > m.pathologyThreshold {
			return p, true
		}
	}
	return "", false
}

// CheckMatch reports whether candidate states the gold pathology.
// An empty candidate never matches.
func (m *Matcher) CheckMatch(gold pathology.Pathology, candidate string) bool {
	if candidate == "" {
		return false
	}
	goldName := gold.String()
	lowered := strings.ToLower(candidate)
	cleaned := nlp.RemovePunctuation(lowered)

	similarity := fuzz.PartialRatio(goldName, cleaned)
	present := similarity > m.matchThreshold
	negated := nlp.IsNegated(lowered, goldName)
	correct := present && !negated

	if !correct {
		correct = matchAlternates(pathology.AlternateNames(gold), lowered, cleaned)
	}
	if !correct {
		correct = matchAlternates(pathology.GraciousAlternateNames(gold), lowered, cleaned)
	}

	m.logger.Infof("gold diagnosis: %s | model diagnosis: %s | similarity: %d%% | negated: %t | correct: %t",
		goldName, lowered, similarity, negated, correct)
	return correct
}

// matchAlternates fires when a location and one of its modifiers both
// appear in the cleaned text and both survive negation checks against the
// original text.
func matchAlternates(alternates []pathology.AlternateName, original, cleaned string) bool {
	for _, alt := range alternates {
		if !strings.Contains(cleaned, alt.Location) {
			continue
		}
		for _, mod := range alt.Modifiers {
			if strings.Contains(cleaned, mod) &&
				nlp.KeywordPositive(original, alt.Location) &&
				nlp.KeywordPositive(original, mod) {
				return true
			}
		}
	}
	return false
}
