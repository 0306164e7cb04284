//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

// Package tokencost accumulates per-role token usage during a run and
// prices it against the configured per-token rate table.
package tokencost

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/som-shahlab/opt-paradox/config"
	"github.com/som-shahlab/opt-paradox/log"
)

// UsageFileName is the per-run token usage artifact inside the log dir.
const UsageFileName = "token_usage.json"

// Usage collects token counts per role. Safe for concurrent Record calls
// from the runner's worker pool.
type Usage struct {
	mu    sync.Mutex
	roles map[string]*roleUsage
}

type roleUsage struct {
	model  string
	input  int64
	output int64
}

// NewUsage returns an empty usage accumulator.
func NewUsage() *Usage {
	return &Usage{roles: make(map[string]*roleUsage)}
}

// Record adds one generation's token counts under a role name.
func (u *Usage) Record(role, model string, inputTokens, outputTokens int64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	r, ok := u.roles[role]
	if !ok {
		r = &roleUsage{model: model}
		u.roles[role] = r
	}
	r.model = model
	r.input += inputTokens
	r.output += outputTokens
}

// WriteFile saves the usage file into dir: for each role it writes
// "{role}_model", "{role}_input_tokens", and "{role}_output_tokens".
func (u *Usage) WriteFile(dir string) error {
	u.mu.Lock()
	flat := make(map[string]any, len(u.roles)*3)
	for role, r := range u.roles {
		flat[role+"_model"] = r.model
		flat[role+"_input_tokens"] = r.input
		flat[role+"_output_tokens"] = r.output
	}
	u.mu.Unlock()

	data, err := json.MarshalIndent(flat, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token usage: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, UsageFileName), data, 0o644)
}

// Compute reads the usage file from logDir and prices every role's
// tokens through the cost table. Roles whose model has no rate entry are
// skipped with a warning. A missing usage file yields zero cost.
func Compute(logDir string, tracking config.CostTracking) (float64, error) {
	data, err := os.ReadFile(filepath.Join(logDir, UsageFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read token usage: %w", err)
	}
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return 0, fmt.Errorf("parse token usage: %w", err)
	}

	total := 0.0
	for key, value := range flat {
		var role, rateKey string
		switch {
		case strings.HasSuffix(key, "_input_tokens"):
			role, rateKey = strings.TrimSuffix(key, "_input_tokens"), "input"
		case strings.HasSuffix(key, "_output_tokens"):
			role, rateKey = strings.TrimSuffix(key, "_output_tokens"), "output"
		default:
			continue
		}
		count, ok := value.(float64)
		if !ok {
			continue
		}
		modelName, _ := flat[role+"_model"].(string)
		rates, ok := lookupRates(modelName, tracking)
		if !ok {
			log.Warnf("no token rate for model %q (role %s), skipping", modelName, role)
			continue
		}
		if rateKey == "input" {
			total += count * rates.Input
		} else {
			total += count * rates.Output
		}
	}
	return total, nil
}

// lookupRates resolves a model name through the alias mapping into the
// cost table.
func lookupRates(model string, tracking config.CostTracking) (config.TokenRates, bool) {
	if mapped, ok := tracking.ModelCostMapping[model]; ok {
		model = mapped
	}
	rates, ok := tracking.CostTable[model]
	return rates, ok
}
