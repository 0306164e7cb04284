//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

package agent

import (
	"regexp"
	"strings"
)

// Recognized information-gathering actions.
const (
	ActionPhysicalExamination = "physical examination"
	ActionLaboratoryTests     = "laboratory tests"
	ActionImaging             = "imaging"
	ActionDone                = "done"
)

// ParsedResponse is the structured form of an information-gathering
// turn.
type ParsedResponse struct {
	Thought     string
	Action      string
	ActionInput string
	ToolCall    bool
}

var (
	thoughtLineRE = regexp.MustCompile(`(?im)^Thought:`)
	actionLineRE  = regexp.MustCompile(`(?im)Action:`)
	thinkTagRE    = regexp.MustCompile(`(?i)</?think>`)

	// responseRE captures Thought / Action / Action Input. The input runs
	// to the end of the text; a trailing blank-line-separated section is
	// cut off afterwards.
	responseRE = regexp.MustCompile(
		`(?s)Thought:\s*(.*?)\s*\nAction:\s*([^\n]*\S[^\n]*)\s*\nAction Input:\s*(.*)`)
)

// ParseInfoGatheringResponse extracts thought/action/input from a model
// turn. Responses missing the markers are coerced: a bare answer with an
// Action line gets a stub thought; anything else defaults to requesting
// a full physical exam so the loop keeps moving.
func ParseInfoGatheringResponse(response string) ParsedResponse {
	if !thoughtLineRE.MatchString(response) {
		if actionLineRE.MatchString(response) {
			response = "Thought: Analyzing the case.\n" + response
		} else {
			response = "Thought: " + strings.TrimSpace(response) + "\n" +
				"Action: physical examination\n" +
				"Action Input: Full physical exam"
		}
	}
	response = strings.TrimSpace(thinkTagRE.ReplaceAllString(response, ""))

	if m := responseRE.FindStringSubmatch(response); m != nil {
		input := m[3]
		// Keep only the first paragraph of the input.
		if idx := blankLineIndex(input); idx >= 0 {
			input = input[:idx]
		}
		return ParsedResponse{
			Thought:     strings.TrimSpace(m[1]),
			Action:      strings.ToLower(strings.TrimSpace(m[2])),
			ActionInput: strings.TrimSpace(input),
			ToolCall:    true,
		}
	}

	return ParsedResponse{ActionInput: strings.TrimSpace(response), ToolCall: true}
}

// Formatted renders the parsed turn back into the canonical three-line
// form recorded in the transcript.
func (p ParsedResponse) Formatted() string {
	return "Thought: " + p.Thought + "\nAction: " + p.Action + "\nAction Input: " + p.ActionInput
}

// blankLineIndex returns the offset of the first blank line (a newline
// followed by only whitespace and another newline), or -1.
func blankLineIndex(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] != '\n' {
			continue
		}
		j := i + 1
		for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\r') {
			j++
		}
		if j < len(s) && s[j] == '\n' {
			return i
		}
	}
	return -1
}

// SplitList splits a comma-separated request list, trimming and
// lowercasing each item and dropping empties.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// SplitListOutsideParens splits like SplitList but keeps commas inside
// parentheses, so "cbc (includes wbc, rbc), lipase" yields two items.
func SplitListOutsideParens(s string) []string {
	var out []string
	depth := 0
	start := 0
	flush := func(end int) {
		if item := strings.ToLower(strings.TrimSpace(s[start:end])); item != "" {
			out = append(out, item)
		}
	}
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(s))
	return out
}
