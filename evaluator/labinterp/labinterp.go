//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

// Package labinterp scores the lab-value interpretations an agent embeds
// in its transcript against ground truth derived from each patient's
// reference ranges.
//
// Harvested test names are resolved to the patient's actual lab keys
// through a tiered cascade: exact match, abbreviation table, fuzzy
// match, and finally a semantic-equivalence oracle backed by a chat
// model. Unresolved names are dropped from the denominator; wrong
// interpretations are not.
package labinterp

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/som-shahlab/opt-paradox/internal/fuzz"
	"github.com/som-shahlab/opt-paradox/log"
	"github.com/som-shahlab/opt-paradox/model"
	"github.com/som-shahlab/opt-paradox/patient"
)

// Fuzzy-match thresholds for resolving harvested test names. Short
// names saturate similarity scores easily, so they get a lower cutoff.
const (
	DefaultShortNameThreshold = 70
	DefaultLongNameThreshold  = 85

	shortNameLen    = 4
	oracleCacheSize = 2048
)

// abbrevMap resolves common lab abbreviations to the canonical names
// used by the patient dataset.
var abbrevMap = map[string]string{
	"wbc":              "White Blood Cells",
	"rbc":              "Red Blood Cells",
	"hgb":              "Hemoglobin",
	"hct":              "Hematocrit",
	"plt":              "Platelet Count",
	"ast":              "Aspartate Aminotransferase (AST)",
	"alt":              "Alanine Aminotransferase (ALT)",
	"crp":              "C-Reactive Protein",
	"esr":              "Erythrocyte Sedimentation Rate",
	"cmp":              "Comprehensive Metabolic Panel",
	"bun":              "Urea Nitrogen",
	"total bilirubin":  "Bilirubin, Total",
	"free t4":          "Thyroxine (T4), Free",
	"direct bilirubin": "Bilirubin, Direct",
}

// interpretationSynonyms folds interpretation phrasings onto the four
// canonical classes.
var interpretationSynonyms = map[string]string{
	"high":                 "high",
	"elevated":             "high",
	"slightly elevated":    "high",
	"increased":            "high",
	"borderline high":      "high",
	"low":                  "low",
	"decreased":            "low",
	"reduced":              "low",
	"slightly low":         "low",
	"borderline low":       "low",
	"normal":               "normal",
	"within normal limits": "normal",
	"wnl":                  "normal",
	"unknown":              "unknown",
	"n/a":                  "unknown",
	"not available":        "unknown",
	"none":                 "unknown",
	"":                     "unknown",
}

// NormalizeInterpretation folds an interpretation string onto one of
// the canonical classes "high", "low", "normal", or "unknown".
// Unrecognized phrasings pass through lowercased so they compare
// unequal to every class.
func NormalizeInterpretation(s string) string {
	t := strings.ToLower(strings.TrimSpace(s))
	if canon, ok := interpretationSynonyms[t]; ok {
		return canon
	}
	return t
}

// blockRE finds brace-delimited blocks, tolerating one nested level and
// an optional `Lab Interpretation":` label in front.
var blockRE = regexp.MustCompile(
	`(?is)(?:Lab Interpretation"?\s*:)?\s*(\{(?:[^{}]|\{(?:[^{}]|\{[^{}]*\})*\})*\})`)

// Textual repairs applied when a harvested block is not strict JSON.
var (
	fractionValueRE = regexp.MustCompile(`(:\s*)(\d+/\d+)`)
	percentValueRE  = regexp.MustCompile(`(:\s*)(\d+\.?\d*)%`)
	negPosValueRE   = regexp.MustCompile(`(?i)(:\s*)(NEG|POS)([\s,}\]])`)
	noneValueRE     = regexp.MustCompile(`(?i)(:\s*)None([\s,}\]])`)
	inequalityRE    = regexp.MustCompile(`(:\s*)[><]\s*(\d+\.?\d*)`)
)

// Result is one patient's correct/total interpretation tally.
type Result struct {
	Correct int
	Total   int
}

// Metrics is the dataset-level summary produced by ComputeMetrics.
type Metrics struct {
	Accuracy   float64
	TotalTests int
	Correct    int
}

// Evaluator accumulates interpretation accuracy across patients.
// Mutated once per patient through Update from a single driver loop.
type Evaluator struct {
	dataset        *patient.Dataset
	oracle         model.Chat
	cache          *lru.Cache[string, bool]
	skipFuzzy      bool
	shortThreshold int
	longThreshold  int
	logger         log.Logger

	perPatient   map[string]Result
	totalCorrect int
	totalTests   int
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithOracle enables the semantic-equivalence step using the given chat
// model. Without it the cascade stops after fuzzy matching.
func WithOracle(chat model.Chat) Option {
	return func(e *Evaluator) { e.oracle = chat }
}

// WithSkipFuzzy disables the fuzzy step, so resolution goes exact to
// abbreviation to oracle.
func WithSkipFuzzy(skip bool) Option {
	return func(e *Evaluator) { e.skipFuzzy = skip }
}

// WithThresholds overrides the short- and long-name fuzzy cutoffs.
func WithThresholds(short, long int) Option {
	return func(e *Evaluator) { e.shortThreshold = short; e.longThreshold = long }
}

// WithLogger routes diagnostic logging.
func WithLogger(logger log.Logger) Option {
	return func(e *Evaluator) { e.logger = logger }
}

// New creates an Evaluator scoring against the given patient dataset.
func New(dataset *patient.Dataset, opt ...Option) *Evaluator {
	cache, _ := lru.New[string, bool](oracleCacheSize)
	e := &Evaluator{
		dataset:        dataset,
		cache:          cache,
		shortThreshold: DefaultShortNameThreshold,
		longThreshold:  DefaultLongNameThreshold,
		logger:         log.Default,
		perPatient:     make(map[string]Result),
	}
	for _, o := range opt {
		o(e)
	}
	return e
}

// Update harvests interpretation blocks from one patient's transcript
// and scores them. Parse failures and unresolved names are logged and
// skipped, never fatal.
func (e *Evaluator) Update(ctx context.Context, pid, transcript string) {
	enriched := e.harvest(pid, transcript)

	rec, ok := e.dataset.Get(pid)
	if !ok {
		e.logger.Warnf("patient %s not in dataset, skipping lab interpretation", pid)
		e.perPatient[pid] = Result{}
		return
	}

	labKeys := sortedKeys(rec.LaboratoryTests)
	res := Result{}
	for _, name := range sortedKeys(enriched) {
		info, ok := enriched[name].(map[string]any)
		if !ok {
			continue
		}
		key, ok := e.resolveKey(ctx, name, rec, labKeys)
		if !ok {
			e.logger.Warnf("no lab key match for %q (patient %s)", name, pid)
			continue
		}

		res.Total++
		gt := groundTruth(rec, key)
		modelIt, _ := info["interpretation"].(string)
		if NormalizeInterpretation(modelIt) == NormalizeInterpretation(gt) {
			res.Correct++
		}
	}

	e.perPatient[pid] = res
	e.totalCorrect += res.Correct
	e.totalTests += res.Total
}

// ComputeMetrics derives overall interpretation accuracy. Pure and safe
// on an empty run.
func (e *Evaluator) ComputeMetrics() Metrics {
	m := Metrics{TotalTests: e.totalTests, Correct: e.totalCorrect}
	if e.totalTests > 0 {
		m.Accuracy = float64(e.totalCorrect) / float64(e.totalTests)
	}
	return m
}

// PatientResult returns one patient's tally, ok=false before Update has
// seen that patient.
func (e *Evaluator) PatientResult(pid string) (Result, bool) {
	r, ok := e.perPatient[pid]
	return r, ok
}

// harvest extracts every parseable interpretation block and merges them
// into one test-name mapping. Last write wins on key collision.
func (e *Evaluator) harvest(pid, transcript string) map[string]any {
	enriched := make(map[string]any)
	for _, match := range blockRE.FindAllStringSubmatch(transcript, -1) {
		parsed, ok := e.parseBlock(match[1])
		if !ok {
			e.logger.Debugf("unparseable interpretation block in %s", pid)
			continue
		}
		for k, v := range unwrap(parsed) {
			enriched[k] = v
		}
	}
	return enriched
}

// parseBlock parses a harvested block as JSON, retrying once after the
// tolerant textual repairs.
func (e *Evaluator) parseBlock(block string) (map[string]any, bool) {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(block), &parsed); err == nil {
		return parsed, true
	}

	txt := block
	// Blood-pressure style fractions like 126/63 become strings.
	txt = fractionValueRE.ReplaceAllString(txt, `${1}"${2}"`)
	// Trailing percent signs are dropped.
	txt = percentValueRE.ReplaceAllString(txt, `${1}${2}`)
	// Bare NEG / POS tokens become strings.
	txt = negPosValueRE.ReplaceAllString(txt, `${1}"${2}"${3}`)
	// Python-style None becomes null.
	txt = noneValueRE.ReplaceAllString(txt, `${1}null${2}`)
	// Inequalities such as >100 keep only the number.
	txt = inequalityRE.ReplaceAllString(txt, `${1}${2}`)
	txt = strings.ReplaceAll(txt, "'", `"`)

	if err := json.Unmarshal([]byte(txt), &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}

// unwrap descends one level when the block is a wrapper object whose
// value holds the actual name-to-entry mapping.
func unwrap(parsed map[string]any) map[string]any {
	for _, k := range sortedKeys(parsed) {
		inner, ok := parsed[k].(map[string]any)
		if !ok {
			continue
		}
		for _, iv := range inner {
			if _, ok := iv.(map[string]any); ok {
				return inner
			}
		}
	}
	return parsed
}

// resolveKey maps a harvested test name onto one of the patient's lab
// keys, stopping at the first cascade stage that succeeds.
func (e *Evaluator) resolveKey(ctx context.Context, name string, rec *patient.Record, labKeys []string) (string, bool) {
	for _, k := range labKeys {
		if strings.EqualFold(k, name) {
			return k, true
		}
	}

	if mapped, ok := abbrevMap[strings.ToLower(name)]; ok {
		if _, present := rec.LaboratoryTests[mapped]; present {
			return mapped, true
		}
	}

	if !e.skipFuzzy {
		threshold := e.longThreshold
		if len(name) <= shortNameLen {
			threshold = e.shortThreshold
		}
		lowered := strings.ToLower(name)
		for _, k := range labKeys {
			if fuzz.PartialRatio(lowered, strings.ToLower(k)) >= threshold {
				return k, true
			}
		}
	}

	if e.oracle != nil {
		for _, k := range labKeys {
			if e.equivalent(ctx, name, k) {
				return k, true
			}
		}
	}
	return "", false
}

// equivalent asks the oracle whether two test names denote the same
// lab, memoizing per ordered pair. Oracle failures count as "no" and
// are cached so a flaky backend is not hammered.
func (e *Evaluator) equivalent(ctx context.Context, a, b string) bool {
	cacheKey := a + "\x00" + b
	if v, ok := e.cache.Get(cacheKey); ok {
		return v
	}
	prompt := "You are an expert clinical terminologist. Answer ONLY 'yes' or 'no'.\n\n" +
		"Are these two lab test names equivalent (including abbreviations)?\n" +
		"Test-1: " + a + "\nTest-2: " + b + "\nAnswer:"
	resp, err := e.oracle.Generate(ctx, []model.Message{model.User(prompt)})
	answer := false
	if err != nil {
		e.logger.Warnf("lab name oracle failed for %q vs %q: %v", a, b, err)
	} else {
		answer = strings.HasPrefix(strings.ToLower(strings.TrimSpace(resp.Content)), "y")
	}
	e.cache.Add(cacheKey, answer)
	return answer
}

// groundTruth classifies the patient's recorded value for a lab key
// against its reference range. Non-numeric values or missing bounds
// classify as unknown.
func groundTruth(rec *patient.Record, key string) string {
	raw, ok := rec.LabValue(key)
	if !ok {
		return "unknown"
	}
	fields := strings.Fields(strings.ReplaceAll(raw, "NEG.", "0"))
	if len(fields) == 0 {
		return "unknown"
	}
	val, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return "unknown"
	}
	low, high, ok := rec.ReferenceBounds(key)
	if !ok {
		return "unknown"
	}
	switch {
	case val < low:
		return "low"
	case val > high:
		return "high"
	default:
		return "normal"
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
