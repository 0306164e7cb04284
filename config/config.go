//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

// Package config loads and validates the typed run configuration.
//
// The whole pipeline is driven by one Config value built at startup and
// injected into the components that consume it. There is no package-level
// configuration state.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Paths holds the filesystem locations the pipeline reads and writes.
type Paths struct {
	// Dataset is the patient reference JSON file.
	Dataset string `yaml:"dataset"`
	// FeeSchedule is the lab fee-schedule CSV.
	FeeSchedule string `yaml:"fee_schedule"`
	// LogDir receives per-patient transcript files.
	LogDir string `yaml:"log_dir"`
	// ResultsDir receives the per-patient CSV and the summary report.
	ResultsDir string `yaml:"results_dir"`
}

// ModelRef names the chat model used by one agent role.
type ModelRef struct {
	Name string `yaml:"name"`
}

// Models assigns a chat model to each role in the pipeline.
type Models struct {
	// BaseURL and APIKey apply to every role; all models speak the
	// OpenAI-compatible chat surface. APIKey supports ${ENV} expansion.
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`

	InfoGathering  ModelRef `yaml:"info_gathering"`
	Interpretation ModelRef `yaml:"interpretation"`
	Diagnosis      ModelRef `yaml:"diagnosis"`
	Matcher        ModelRef `yaml:"matcher"`
}

// Runtime bounds the agent loop and the worker pool.
type Runtime struct {
	// MaxIterations caps info-gathering turns before diagnosis is forced.
	MaxIterations int `yaml:"max_iterations"`
	// Workers is the size of the patient fan-out pool.
	Workers int `yaml:"workers"`
}

// Thresholds carries the fuzzy-matching cutoffs. The defaults are the
// empirically tuned values; they are named fields so experiments can move
// them without code changes.
type Thresholds struct {
	// Diagnosis is the partial-ratio cutoff (exclusive) for the primary
	// diagnosis-correctness tier.
	Diagnosis int `yaml:"diagnosis"`
	// Pathology is the partial-ratio cutoff (exclusive) for mapping free
	// text onto the pathology set.
	Pathology int `yaml:"pathology"`
	// Coverage is the cutoff (inclusive) for matching requested tests
	// against guideline tables.
	Coverage int `yaml:"coverage"`
	// LabNameShort applies to lab-name resolution for names of at most
	// four characters; LabNameLong to everything else.
	LabNameShort int `yaml:"lab_name_short"`
	LabNameLong  int `yaml:"lab_name_long"`
	// LabCost is the token-set-ratio cutoff (inclusive) for fee-schedule
	// fallback matching.
	LabCost int `yaml:"lab_cost"`
}

// TokenRates is the per-token dollar cost of one model.
type TokenRates struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// CostTracking maps model names to token rates. ModelCostMapping lets
// deployment aliases share a rate entry.
type CostTracking struct {
	CostTable        map[string]TokenRates `yaml:"cost_table"`
	ModelCostMapping map[string]string     `yaml:"model_cost_mapping"`
}

// Storage selects the run-results backend.
type Storage struct {
	// Backend is "file" or "mysql".
	Backend string `yaml:"backend"`
	// DSN is the MySQL data source name; required when Backend is "mysql".
	DSN string `yaml:"dsn"`
}

// Config is the full run configuration.
type Config struct {
	Paths        Paths        `yaml:"paths"`
	Models       Models       `yaml:"models"`
	Runtime      Runtime      `yaml:"runtime"`
	Thresholds   Thresholds   `yaml:"thresholds"`
	CostTracking CostTracking `yaml:"cost_tracking"`
	Storage      Storage      `yaml:"storage"`
	// LogLevel sets the process log level: debug, info, warn, error, fatal.
	LogLevel string `yaml:"log_level"`
	// SkipFuzzy disables the fuzzy stage of lab-name resolution.
	SkipFuzzy bool `yaml:"skip_fuzzy"`
	// NoLLMMatch disables the semantic-oracle stage of lab-name resolution.
	NoLLMMatch bool `yaml:"no_llm_match"`
}

// Default returns a Config populated with the tuned threshold values and
// conservative runtime bounds. Paths and models are left empty.
func Default() *Config {
	return &Config{
		Runtime: Runtime{
			MaxIterations: 10,
			Workers:       1,
		},
		Thresholds: Thresholds{
			Diagnosis:    90,
			Pathology:    80,
			Coverage:     90,
			LabNameShort: 70,
			LabNameLong:  85,
			LabCost:      70,
		},
		Storage:  Storage{Backend: "file"},
		LogLevel: "info",
	}
}

// Load reads path, overlays it on the defaults, expands ${ENV} references
// in the API key, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Models.APIKey = os.ExpandEnv(cfg.Models.APIKey)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every consumed field holds a usable value, naming
// the first offending field in the returned error.
func (c *Config) Validate() error {
	if c.Paths.Dataset == "" {
		return fmt.Errorf("config: paths.dataset is required")
	}
	if c.Paths.LogDir == "" {
		return fmt.Errorf("config: paths.log_dir is required")
	}
	if c.Runtime.MaxIterations <= 0 {
		return fmt.Errorf("config: runtime.max_iterations must be positive, got %d", c.Runtime.MaxIterations)
	}
	if c.Runtime.Workers <= 0 {
		return fmt.Errorf("config: runtime.workers must be positive, got %d", c.Runtime.Workers)
	}
	for name, v := range map[string]int{
		"thresholds.diagnosis":      c.Thresholds.Diagnosis,
		"thresholds.pathology":      c.Thresholds.Pathology,
		"thresholds.coverage":       c.Thresholds.Coverage,
		"thresholds.lab_name_short": c.Thresholds.LabNameShort,
		"thresholds.lab_name_long":  c.Thresholds.LabNameLong,
		"thresholds.lab_cost":       c.Thresholds.LabCost,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("config: %s must be in [0, 100], got %d", name, v)
		}
	}
	switch c.Storage.Backend {
	case "", "file":
	case "mysql":
		if c.Storage.DSN == "" {
			return fmt.Errorf("config: storage.dsn is required for the mysql backend")
		}
	default:
		return fmt.Errorf("config: unknown storage.backend %q", c.Storage.Backend)
	}
	return nil
}
