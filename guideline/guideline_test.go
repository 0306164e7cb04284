//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

package guideline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/som-shahlab/opt-paradox/pathology"
)

// TestEveryPathologyHasEntries verifies no table lookup can miss.
func TestEveryPathologyHasEntries(t *testing.T) {
	for _, p := range pathology.All() {
		assert.NotEmpty(t, LabCategories(p), "lab categories for %s", p)
		assert.NotEmpty(t, ImagingCategories(p), "imaging categories for %s", p)
		assert.NotEmpty(t, ManeuverSynonyms(p), "maneuver synonyms for %s", p)
	}
}

// TestSynonymsIncludeCanonical verifies the canonical name leads the
// lowercased synonym list.
func TestSynonymsIncludeCanonical(t *testing.T) {
	cats := LabCategories(pathology.Appendicitis)
	require.NotEmpty(t, cats)
	require.NotEmpty(t, cats[0].Tests)
	syns := cats[0].Tests[0].Synonyms()
	assert.Equal(t, "white blood cell count (wbc)", syns[0])
	assert.Contains(t, syns, "complete blood count (cbc)")
}

// TestCholecystitisHasTwoLabCategories pins the category count the
// coverage denominator depends on.
func TestCholecystitisHasTwoLabCategories(t *testing.T) {
	assert.Len(t, LabCategories(pathology.Cholecystitis), 2)
}
