//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/som-shahlab/opt-paradox/pathology"
)

// TestMatchPathologyRoundTrip verifies every canonical name maps back to
// its own pathology.
func TestMatchPathologyRoundTrip(t *testing.T) {
	m := NewMatcher()
	for _, p := range pathology.All() {
		got, ok := m.MatchPathology(p.String())
		require.True(t, ok, "pathology %s did not match itself", p)
		assert.Equal(t, p, got)
	}
}

// TestMatchPathologyNoMatch verifies unrelated text maps to nothing.
func TestMatchPathologyNoMatch(t *testing.T) {
	m := NewMatcher()
	_, ok := m.MatchPathology("community acquired pneumonia")
	assert.False(t, ok)
}

// TestCheckMatchEmptyCandidate verifies empty input never matches.
func TestCheckMatchEmptyCandidate(t *testing.T) {
	m := NewMatcher()
	assert.False(t, m.CheckMatch(pathology.Appendicitis, ""))
}

// TestCheckMatchExactName verifies the primary fuzzy tier.
func TestCheckMatchExactName(t *testing.T) {
	m := NewMatcher()
	assert.True(t, m.CheckMatch(pathology.Appendicitis, "acute appendicitis"))
}

// TestCheckMatchAlternativeName verifies the location/modifier tier fires
// for phrasings that avoid the canonical name.
func TestCheckMatchAlternativeName(t *testing.T) {
	m := NewMatcher()
	assert.True(t, m.CheckMatch(pathology.Appendicitis, "acute gangrenous appendicitis"))
	assert.True(t, m.CheckMatch(pathology.Appendicitis, "ruptured appendix with abscess"))
}

// TestCheckMatchGraciousAlternative verifies the lenient tier captures
// phrasings like "acute gallbladder disease".
func TestCheckMatchGraciousAlternative(t *testing.T) {
	m := NewMatcher()
	assert.True(t, m.CheckMatch(pathology.Cholecystitis, "acute gallbladder disease"))
}

// TestCheckMatchNegated verifies negation defeats the primary tier.
func TestCheckMatchNegated(t *testing.T) {
	m := NewMatcher()
	assert.False(t, m.CheckMatch(pathology.Appendicitis, "no evidence of appendicitis"))
}

// TestCheckMatchWrongPathology verifies an unrelated diagnosis fails.
func TestCheckMatchWrongPathology(t *testing.T) {
	m := NewMatcher()
	assert.False(t, m.CheckMatch(pathology.Appendicitis, "acute pancreatitis"))
}
