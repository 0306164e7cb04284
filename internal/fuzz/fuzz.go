//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

// Package fuzz provides string similarity scoring on a 0-100 scale.
//
// Scores follow the ratio family popularized by fuzzywuzzy: Ratio is an
// indel-distance similarity over whole strings, PartialRatio is the best
// Ratio of the shorter string against any equally long window of the
// longer one, and TokenSetRatio compares normalized token sets so that
// word order and repetition do not matter. Ratio and PartialRatio are
// case-sensitive; callers normalize their inputs first.
package fuzz

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	// nonAlphaNumRE matches one or more non-alphanumeric characters for normalization.
	nonAlphaNumRE = regexp.MustCompile(`[^a-z0-9]+`)
)

// Ratio returns the similarity of a and b as an integer in [0, 100].
// The score is 2*LCS(a, b) / (len(a)+len(b)), the similarity induced by
// edit distance with insertions and deletions only. Either input being
// empty scores 0.
func Ratio(a, b string) int {
	return ratioRunes([]rune(a), []rune(b))
}

// PartialRatio returns the best Ratio between the shorter input and any
// same-length window of the longer input, as an integer in [0, 100].
// It rewards a short string that appears approximately anywhere inside a
// longer one. Either input being empty scores 0.
func PartialRatio(a, b string) int {
	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 || len(longer) == 0 {
		return 0
	}
	best := 0
	for start := 0; start+len(shorter) <= len(longer); start++ {
		window := longer[start : start+len(shorter)]
		if score := ratioRunes(shorter, window); score > best {
			best = score
			if best == 100 {
				return best
			}
		}
	}
	return best
}

// TokenSetRatio normalizes both inputs (lowercase, punctuation to spaces),
// splits them into token sets, and scores the most favorable comparison
// among the sorted intersection and the intersection extended by each
// side's leftover tokens. It is insensitive to word order and duplicated
// words. Inputs that normalize to nothing score 0.
func TokenSetRatio(a, b string) int {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	var intersection, onlyA, onlyB []string
	for token := range tokensA {
		if _, ok := tokensB[token]; ok {
			intersection = append(intersection, token)
		} else {
			onlyA = append(onlyA, token)
		}
	}
	for token := range tokensB {
		if _, ok := tokensA[token]; !ok {
			onlyB = append(onlyB, token)
		}
	}
	sort.Strings(intersection)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	sect := strings.Join(intersection, " ")
	combinedA := strings.TrimSpace(sect + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(sect + " " + strings.Join(onlyB, " "))

	best := Ratio(sect, combinedA)
	if score := Ratio(sect, combinedB); score > best {
		best = score
	}
	if score := Ratio(combinedA, combinedB); score > best {
		best = score
	}
	return best
}

// ExtractOne returns the choice with the highest TokenSetRatio against the
// query, along with its score. The first maximum wins, so callers that
// need determinism must pass choices in a stable order. ok is false when
// choices is empty.
func ExtractOne(query string, choices []string) (match string, score int, ok bool) {
	for _, choice := range choices {
		s := TokenSetRatio(query, choice)
		if !ok || s > score {
			match, score, ok = choice, s, true
		}
	}
	return match, score, ok
}

func ratioRunes(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	lcs := lcsLength(a, b)
	return int(math.Round(200 * float64(lcs) / float64(len(a)+len(b))))
}

// lcsLength computes the longest common subsequence length with a
// two-row dynamic program.
func lcsLength(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// tokenSet lowercases s, maps punctuation runs to spaces, and returns the
// set of resulting tokens.
func tokenSet(s string) map[string]struct{} {
	normalized := nonAlphaNumRE.ReplaceAllString(strings.ToLower(s), " ")
	set := make(map[string]struct{})
	for _, token := range strings.Fields(normalized) {
		set[token] = struct{}{}
	}
	return set
}
