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
	"regexp"
	"strings"

	"github.com/som-shahlab/opt-paradox/nlp"
)

// maxRankedDiagnoses caps the number of candidates a ranked parse returns.
const maxRankedDiagnoses = 5

// rankedStrategy is one way of extracting an ordered candidate list from
// transcript text. Strategies run in order; the first non-empty result
// wins.
type rankedStrategy struct {
	name  string
	parse func(string) []string
}

var rankedStrategies = []rankedStrategy{
	{name: "ranked-block", parse: parseRankedBlock},
	{name: "plain-block", parse: parsePlainBlock},
}

var (
	rankedBlockRE = regexp.MustCompile(`(?is)\**Final Diagnosis\s*\(ranked\)\s*:\**[ \t]*\n(.*?)(?:\n[ \t]*\n|Treatment:)`)
	plainBlockRE  = regexp.MustCompile(`(?is)Final Diagnosis\s*:\s*(.*?)(?:\n[ \t]*\n|Treatment:)`)
	numberedRE    = regexp.MustCompile(`^\s*\d+[.:)]\s*`)
	itemSuffixRE  = regexp.MustCompile(`(?s)^(.*?)(?:\s+-+\s+|\s*:\s+)`)
	sectionStopRE = regexp.MustCompile(`(?i)^(?:treatment|thought)\b`)
	dashColonRE   = regexp.MustCompile(`[-:]`)
)

// ParseRankedDiagnoses extracts up to five distinct diagnoses from text,
// lowercased, punctuation-stripped, order preserved. An empty slice means
// no ranked or plain diagnosis block was found; callers fall back to
// ParseDiagnosis.
func ParseRankedDiagnoses(text string) []string {
	for _, s := range rankedStrategies {
		if diags := s.parse(text); len(diags) > 0 {
			return diags
		}
	}
	return nil
}

// parseRankedBlock handles the "Final Diagnosis (ranked):" format: a
// numbered list terminated by a blank line or a "Treatment:" marker.
// Items may span lines; a trailing "- explanation" or ": explanation"
// suffix is stripped.
func parseRankedBlock(text string) []string {
	m := rankedBlockRE.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var diags []string
	for _, item := range splitNumberedItems(m[1]) {
		item = strings.TrimSpace(item)
		if sm := itemSuffixRE.FindStringSubmatch(item); sm != nil {
			item = strings.TrimSpace(sm[1])
		}
		appendDistinct(&diags, item)
		if len(diags) == maxRankedDiagnoses {
			break
		}
	}
	return diags
}

// parsePlainBlock handles a bare "Final Diagnosis:" block, one candidate
// per line. A line opening a treatment or thought section ends the scan.
func parsePlainBlock(text string) []string {
	m := plainBlockRE.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var diags []string
	for _, line := range strings.Split(m[1], "\n") {
		line = strings.Trim(line, " -*\t")
		if line == "" {
			continue
		}
		if sectionStopRE.MatchString(line) {
			break
		}
		line = numberedRE.ReplaceAllString(line, "")
		if loc := dashColonRE.FindStringIndex(line); loc != nil {
			line = line[:loc[0]]
		}
		appendDistinct(&diags, strings.TrimSpace(line))
		if len(diags) == maxRankedDiagnoses {
			break
		}
	}
	return diags
}

// splitNumberedItems groups the lines of a ranked block into numbered
// items. A line starting with "N." (or "N:" / "N)") opens a new item;
// following lines belong to it until the next number.
func splitNumberedItems(content string) []string {
	var items []string
	current := -1
	for _, line := range strings.Split(content, "\n") {
		if numberedRE.MatchString(line) {
			items = append(items, numberedRE.ReplaceAllString(line, ""))
			current = len(items) - 1
			continue
		}
		if current >= 0 {
			items[current] += "\n" + line
		}
	}
	return items
}

// appendDistinct normalizes item and appends it when non-empty and unseen.
func appendDistinct(diags *[]string, item string) {
	cleaned := strings.TrimSpace(nlp.RemovePunctuation(strings.ToLower(item)))
	if cleaned == "" {
		return
	}
	for _, d := range *diags {
		if d == cleaned {
			return
		}
	}
	*diags = append(*diags, cleaned)
}

// The single-diagnosis cleanup chain. Every heuristic runs unconditionally
// in this order, each operating on the previous one's output.

var finalDiagnosisRE = regexp.MustCompile(`(?i)Final Diagnosis:\s*\**([A-Za-z\s\-]+)\**`)

// sectionHeaders are trailing sections truncated out of a parsed
// diagnosis, matched case-insensitively with everything after them.
var sectionHeaders = []string{
	"rationale", "note", "recommendation", "explanation",
	"finding", "other.*diagnos.*include", "other.*diagnos.*considered(?: were)?",
	"management", "action", "plan", "reasoning", "assessment",
	"justification", "tests", "additional diagnoses", "notification",
	"impression", "background", "additional findings include",
}

var (
	leadInRE      = regexp.MustCompile(`^Based on.*:\n\n`)
	sectionREs    = buildSectionREs()
	numberedTopRE = regexp.MustCompile(`(?m)^1\.(.*)`)
	starTopRE     = regexp.MustCompile(`(?m)^\*(.*)`)
	afterDashRE   = regexp.MustCompile(`[-:].*`)
	afterDashSpRE = regexp.MustCompile(`[-:] .*`)
	trailingExpRE = regexp.MustCompile(`(?s)\n\n.*`)
	isSentenceRE  = regexp.MustCompile(`(?s).*?diagnosis[^.\n]*?\bis\b(.*?)[.\n]`)
	patientHasRE  = regexp.MustCompile(`(?s).*?patient has`)
	splitDiagRE   = regexp.MustCompile(`[,.\n]|\s*\b(?:and|or|vs\.?)\b\s*`)
)

func buildSectionREs() []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(sectionHeaders))
	for _, section := range sectionHeaders {
		res = append(res, regexp.MustCompile(`(?is)`+section+`s?:.*`))
	}
	return res
}

// ParseDiagnosis extracts a single diagnosis from prediction text. The
// last "Final Diagnosis:" occurrence wins; a fixed chain of cleanup
// heuristics then strips boilerplate, trailing sections, list markers,
// and explanation text, keeping the first fragment when several
// diagnoses are joined. Returns "" when no marker is present.
func ParseDiagnosis(prediction string) string {
	matches := finalDiagnosisRE.FindAllStringSubmatch(prediction, -1)
	if len(matches) == 0 {
		return ""
	}
	d := strings.TrimSpace(matches[len(matches)-1][1])

	// Strip chat-style lead-ins.
	d = leadInRE.ReplaceAllString(d, "")

	// Truncate trailing sections.
	for _, re := range sectionREs {
		d = re.ReplaceAllString(d, "")
	}

	// Collapse a single-item numbered list.
	if m := numberedTopRE.FindStringSubmatch(d); m != nil {
		d = afterDashRE.ReplaceAllString(strings.TrimSpace(m[1]), "")
	}

	// Collapse a single-item starred list.
	if m := starTopRE.FindStringSubmatch(d); m != nil {
		d = afterDashSpRE.ReplaceAllString(strings.TrimSpace(m[1]), "")
	}

	// Drop a double-newline-separated explanation.
	d = trailingExpRE.ReplaceAllString(d, "")

	// Extract the object of an embedded "diagnosis ... is ..." sentence.
	if m := isSentenceRE.FindStringSubmatch(d); m != nil {
		d = strings.TrimSpace(m[1])
	}

	// Strip a leading "... patient has" prefix, first occurrence only.
	if loc := patientHasRE.FindStringIndex(d); loc != nil {
		d = d[loc[1]:]
	}

	// Keep only the first fragment when several diagnoses are joined.
	for _, part := range splitDiagRE.Split(d, -1) {
		if part != "" {
			return strings.TrimSpace(part)
		}
	}
	return ""
}
