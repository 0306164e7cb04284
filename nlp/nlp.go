//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

// Package nlp provides clinical text utilities: punctuation stripping,
// Unicode normalization, and negation-aware keyword detection.
//
// Negation detection follows the NegEx approach: text is split into
// sentences, trigger phrases are located, and candidate mentions are
// flagged as negated when they fall inside the scope of a pre-negation
// trigger (forward to the end of the sentence or a termination word) or
// a post-negation trigger (backward likewise). Negation is advisory
// evidence, so every failure path degrades to "not negated" instead of
// returning an error.
package nlp

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/som-shahlab/opt-paradox/internal/fuzz"
)

// negatedMatchThreshold is the partial-ratio score above which a mention
// is considered to refer to the keyword when checking negation.
const negatedMatchThreshold = 90

// punctuation matches the ASCII punctuation set removed by RemovePunctuation.
const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Entity is a candidate clinical mention with its negation flag.
type Entity struct {
	Text    string
	Negated bool
}

// Entities extracts candidate mentions from text. Each sentence is
// scanned for negation triggers; the token runs between triggers become
// mentions, flagged negated when a trigger's scope covers them.
func Entities(text string) []Entity {
	var out []Entity
	for _, sent := range sentenize(text) {
		out = append(out, scanSentence(sent)...)
	}
	return out
}

// KeywordPositive reports whether keyword is asserted (present and not
// negated) in sentence. The first mention containing the keyword decides;
// when no mention contains it, a plain case-insensitive substring test
// against the whole sentence applies.
func KeywordPositive(sentence, keyword string) bool {
	lowered := strings.ToLower(keyword)
	for _, e := range Entities(sentence) {
		if strings.Contains(strings.ToLower(e.Text), lowered) {
			return !e.Negated
		}
	}
	return strings.Contains(strings.ToLower(sentence), lowered)
}

// Contains reports whether keyword is asserted in any of the given texts.
func Contains(keyword string, texts []string) bool {
	for _, text := range texts {
		if KeywordPositive(text, keyword) {
			return true
		}
	}
	return false
}

// IsNegated reports whether the mention of keyword in text is negated.
// The first mention scoring above the fuzzy threshold against the keyword
// decides; absent any such mention the keyword counts as not negated.
func IsNegated(text, keyword string) bool {
	lowered := strings.ToLower(keyword)
	for _, e := range Entities(text) {
		if fuzz.PartialRatio(lowered, strings.ToLower(e.Text)) > negatedMatchThreshold {
			return e.Negated
		}
	}
	return false
}

// RemovePunctuation removes ASCII punctuation characters from s without
// substituting spaces.
func RemovePunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, s)
}

// Normalize applies Unicode NFKC normalization, folding compatibility
// forms such as ligatures and fullwidth characters so that downstream
// ASCII-oriented matching sees canonical text.
func Normalize(s string) string {
	return norm.NFKC.String(s)
}

// scanSentence locates triggers in one sentence and assembles the token
// runs between them into entities with negation flags.
func scanSentence(sent string) []Entity {
	words := strings.Fields(sent)
	if len(words) == 0 {
		return nil
	}
	normTokens := make([]string, len(words))
	for i, w := range words {
		normTokens[i] = strings.Trim(strings.ToLower(w), punctuation)
	}

	kinds := make([]int, len(words))
	for i := 0; i < len(words); {
		span, kind := matchTrigger(normTokens, i)
		if span == 0 {
			i++
			continue
		}
		for k := i; k < i+span; k++ {
			kinds[k] = kind
		}
		i += span
	}

	// Forward scope of pre-negation triggers.
	forward := make([]bool, len(words))
	open := false
	for i := range words {
		switch kinds[i] {
		case kindPreNegation:
			open = true
		case kindTermination:
			open = false
		}
		forward[i] = open && kinds[i] == kindPlain
	}
	// Backward scope of post-negation triggers.
	backward := make([]bool, len(words))
	open = false
	for i := len(words) - 1; i >= 0; i-- {
		switch kinds[i] {
		case kindPostNegation:
			open = true
		case kindTermination:
			open = false
		}
		backward[i] = open && kinds[i] == kindPlain
	}

	var entities []Entity
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		negated := false
		for i := start; i < end; i++ {
			if forward[i] || backward[i] {
				negated = true
				break
			}
		}
		entities = append(entities, Entity{
			Text:    strings.Join(words[start:end], " "),
			Negated: negated,
		})
		start = -1
	}
	for i := range words {
		if kinds[i] != kindPlain {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(words))
	return entities
}

// splitWords lowercases and splits a trigger phrase into tokens.
func splitWords(phrase string) []string {
	return strings.Fields(strings.ToLower(phrase))
}
