//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

package nlp

import "sort"

// Trigger categories for the negation scan.
const (
	kindPlain = iota
	kindPreNegation
	kindPostNegation
	kindPseudoNegation
	kindTermination
)

// preNegations negate mentions that follow them in the sentence.
var preNegations = []string{
	"no",
	"not",
	"without",
	"denies",
	"denied",
	"denying",
	"declines",
	"declined",
	"negative for",
	"no evidence of",
	"no evidence",
	"no sign of",
	"no signs of",
	"no suspicion of",
	"absence of",
	"absent",
	"free of",
	"lack of",
	"lacks",
	"cannot",
	"can't",
	"never",
	"rule out",
	"rules out",
	"ruled out",
	"doubt",
	"unremarkable for",
	"fails to reveal",
	"failed to reveal",
	"doesn't",
	"doesnt",
	"didn't",
	"didnt",
	"wasn't",
	"wasnt",
	"weren't",
	"werent",
	"isn't",
	"isnt",
	"aren't",
	"arent",
}

// postNegations negate mentions that precede them in the sentence.
var postNegations = []string{
	"unlikely",
	"was ruled out",
	"were ruled out",
	"is ruled out",
	"are ruled out",
	"has been ruled out",
	"have been ruled out",
	"was excluded",
	"not present",
	"not seen",
	"not identified",
}

// pseudoNegations look like negation triggers but are not; they shadow
// shorter pre-negation matches at the same position.
var pseudoNegations = []string{
	"no increase",
	"no change",
	"no significant change",
	"no further",
	"no definite change",
	"not cause",
	"not certain if",
	"not certain whether",
	"not only",
	"not necessarily",
	"gram negative",
	"without difficulty",
}

// terminations end the scope of a negation trigger.
var terminations = []string{
	"but",
	"however",
	"although",
	"though",
	"except",
	"yet",
	"nevertheless",
	"apart from",
	"aside from",
}

// trigger is a tokenized trigger phrase with its category.
type trigger struct {
	tokens []string
	kind   int
}

// triggers holds every trigger phrase, longest first, so that scanning
// always prefers the most specific match at a position.
var triggers []trigger

func init() {
	add := func(phrases []string, kind int) {
		for _, phrase := range phrases {
			triggers = append(triggers, trigger{tokens: splitWords(phrase), kind: kind})
		}
	}
	// Pseudo negations come first so that equal-length matches resolve
	// in their favor.
	add(pseudoNegations, kindPseudoNegation)
	add(preNegations, kindPreNegation)
	add(postNegations, kindPostNegation)
	add(terminations, kindTermination)
	sort.SliceStable(triggers, func(i, j int) bool {
		return len(triggers[i].tokens) > len(triggers[j].tokens)
	})
}

// matchTrigger reports the length and kind of the longest trigger
// starting at position i of the normalized token sequence, or (0, kindPlain)
// when none matches.
func matchTrigger(norm []string, i int) (int, int) {
	for _, t := range triggers {
		if i+len(t.tokens) > len(norm) {
			continue
		}
		matched := true
		for k, tok := range t.tokens {
			if norm[i+k] != tok {
				matched = false
				break
			}
		}
		if matched {
			return len(t.tokens), t.kind
		}
	}
	return 0, kindPlain
}
