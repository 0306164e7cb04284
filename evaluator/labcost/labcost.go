//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

// Package labcost prices requested lab tests against the Medicare CLFS
// fee schedule.
//
// Requested names are matched to fee-schedule descriptions by n-gram
// containment first, then token-set fuzzy matching; unmatched requests
// cost nothing rather than failing the run.
package labcost

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/som-shahlab/opt-paradox/internal/fuzz"
	"github.com/som-shahlab/opt-paradox/log"
)

// DefaultThreshold is the token-set-ratio cutoff (inclusive) for the
// fuzzy fallback.
const DefaultThreshold = 70

// aliasMap rewrites common request phrasings onto fee-schedule wording
// before matching.
var aliasMap = map[string]string{
	"crp":                           "c reactive protein",
	"esr":                           "erythrocyte sedimentation rate",
	"cmp":                           "comprehen metabolic panel",
	"comprehensive metabolic panel": "comprehen metabolic panel",
	"serum lipase":                  "assay of lipase",
}

var (
	punctRE      = regexp.MustCompile(`[(),]`)
	whitespaceRE = regexp.MustCompile(`\s+`)
	// trailingParenRE strips one trailing parenthetical like "(CBC)".
	trailingParenRE = regexp.MustCompile(`^(.+?)\s*\([^)]*\)\s*$`)
)

// entry is one fee-schedule row.
type entry struct {
	HCPCS string
	Rate  float64
}

// Match is the outcome of pricing one requested test.
type Match struct {
	Requested  string
	MatchedKey string
	HCPCS      string
	Rate       float64
	Score      int
	Matched    bool
}

// Metrics is the dataset-level summary produced by ComputeMetrics.
type Metrics struct {
	TotalCost         float64
	AvgCostPerPatient float64
}

// Evaluator accumulates lab cost across patients. Mutated once per
// patient through Update from a single driver loop.
type Evaluator struct {
	threshold int

	lookup     map[string]entry
	shortKeys  []string
	mergedKeys []string

	totalCost   float64
	numPatients int
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithThreshold overrides the fuzzy-match cutoff.
func WithThreshold(threshold int) Option {
	return func(e *Evaluator) { e.threshold = threshold }
}

// New loads the CLFS fee schedule CSV and builds the matching tables.
func New(clfsPath string, opt ...Option) (*Evaluator, error) {
	e := &Evaluator{
		threshold: DefaultThreshold,
		lookup:    make(map[string]entry),
	}
	for _, o := range opt {
		o(e)
	}
	if err := e.loadSchedule(clfsPath); err != nil {
		return nil, err
	}
	return e, nil
}

// Update prices one patient's requested tests, folds them into the
// running total, and returns that patient's cost.
func (e *Evaluator) Update(tests []string) float64 {
	cost := 0.0
	for _, t := range tests {
		m := e.MatchTest(t)
		if m.Matched {
			cost += m.Rate
		} else {
			log.Debugf("no fee schedule match for %q (best %q, score %d)",
				t, m.MatchedKey, m.Score)
		}
	}
	e.totalCost += cost
	e.numPatients++
	return cost
}

// ComputeMetrics derives the cumulative and per-patient cost. Pure and
// safe on an empty run.
func (e *Evaluator) ComputeMetrics() Metrics {
	m := Metrics{TotalCost: e.totalCost}
	if e.numPatients > 0 {
		m.AvgCostPerPatient = e.totalCost / float64(e.numPatients)
	}
	return m
}

// MatchTest resolves one requested test name to a fee-schedule row.
// Containment of the longest query n-gram wins outright; otherwise the
// best token-set-ratio candidate must clear the threshold.
func (e *Evaluator) MatchTest(raw string) Match {
	base := raw
	if m := trailingParenRE.FindStringSubmatch(raw); m != nil {
		base = m[1]
	}
	key := clean(base)
	if alias, ok := aliasMap[key]; ok {
		key = clean(alias)
	}

	if sub := e.findNgramMatch(key); sub != "" {
		inf := e.lookup[sub]
		return Match{Requested: raw, MatchedKey: sub, HCPCS: inf.HCPCS, Rate: inf.Rate, Score: 100, Matched: true}
	}

	best, score, ok := fuzz.ExtractOne(key, e.mergedKeys)
	if ok && score >= e.threshold {
		inf := e.lookup[best]
		return Match{Requested: raw, MatchedKey: best, HCPCS: inf.HCPCS, Rate: inf.Rate, Score: score, Matched: true}
	}
	return Match{Requested: raw, MatchedKey: best, Score: score}
}

// findNgramMatch looks for the longest multi-word n-gram of the query
// contained in any description, longest first. A single-word query
// falls back to containment in the short descriptions only, which are
// terse enough to keep one-word containment meaningful.
func (e *Evaluator) findNgramMatch(query string) string {
	toks := strings.Fields(query)
	for n := len(toks); n >= 2; n-- {
		for i := 0; i+n <= len(toks); i++ {
			gram := strings.Join(toks[i:i+n], " ")
			for _, k := range e.mergedKeys {
				if strings.Contains(k, gram) {
					return k
				}
			}
		}
	}
	if len(toks) == 1 {
		for _, k := range e.shortKeys {
			if strings.Contains(k, toks[0]) {
				return k
			}
		}
	}
	return ""
}

// loadSchedule reads the CLFS CSV, skipping the metadata preamble
// before the "YEAR," header row. The file ships in Latin-1.
func (e *Evaluator) loadSchedule(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fee schedule %s: %w", path, err)
	}
	decoded, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), raw)
	if err != nil {
		return fmt.Errorf("decode fee schedule %s: %w", path, err)
	}

	text := string(decoded)
	start := -1
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "YEAR,") {
			start = offset
			break
		}
		offset += len(line)
	}
	if start < 0 {
		return fmt.Errorf("fee schedule %s: no YEAR header row", path)
	}

	reader := csv.NewReader(strings.NewReader(text[start:]))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("fee schedule %s: read header: %w", path, err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"HCPCS", "SHORTDESC", "LONGDESC", "RATE"} {
		if _, ok := cols[required]; !ok {
			return fmt.Errorf("fee schedule %s: missing column %s", path, required)
		}
	}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("fee schedule %s: read row: %w", path, err)
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(field(rec, cols["RATE"])), 64)
		if err != nil {
			continue
		}
		inf := entry{HCPCS: field(rec, cols["HCPCS"]), Rate: rate}
		e.addKey(clean(field(rec, cols["SHORTDESC"])), inf, true)
		e.addKey(clean(field(rec, cols["LONGDESC"])), inf, false)
	}
	return nil
}

// addKey registers a cleaned description. Keys keep file order so
// containment matching is deterministic; a repeated key keeps its
// position but takes the newer row's rate.
func (e *Evaluator) addKey(key string, inf entry, short bool) {
	if key == "" {
		return
	}
	if _, seen := e.lookup[key]; !seen {
		e.mergedKeys = append(e.mergedKeys, key)
		if short {
			e.shortKeys = append(e.shortKeys, key)
		}
	}
	e.lookup[key] = inf
}

// clean lowercases and maps parentheses and commas to spaces.
func clean(text string) string {
	tmp := punctRE.ReplaceAllString(strings.ToLower(text), " ")
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(tmp, " "))
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}
