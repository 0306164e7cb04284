//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestLoadAppliesDefaults verifies that omitted fields keep their tuned
// default values.
func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
paths:
  dataset: testdata/patients.json
  log_dir: logs
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.Thresholds.Diagnosis)
	assert.Equal(t, 80, cfg.Thresholds.Pathology)
	assert.Equal(t, 70, cfg.Thresholds.LabNameShort)
	assert.Equal(t, 85, cfg.Thresholds.LabNameLong)
	assert.Equal(t, 10, cfg.Runtime.MaxIterations)
	assert.Equal(t, "file", cfg.Storage.Backend)
}

// TestLoadMissingDataset verifies the validation error names the field.
func TestLoadMissingDataset(t *testing.T) {
	path := writeConfig(t, `
paths:
  log_dir: logs
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paths.dataset")
}

// TestLoadExpandsAPIKeyEnv verifies ${ENV} expansion of the API key.
func TestLoadExpandsAPIKeyEnv(t *testing.T) {
	t.Setenv("OPT_PARADOX_TEST_KEY", "sk-test")
	path := writeConfig(t, `
paths:
  dataset: testdata/patients.json
  log_dir: logs
models:
  api_key: ${OPT_PARADOX_TEST_KEY}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.Models.APIKey)
}

// TestValidateMySQLRequiresDSN verifies the mysql backend demands a DSN.
func TestValidateMySQLRequiresDSN(t *testing.T) {
	cfg := Default()
	cfg.Paths.Dataset = "patients.json"
	cfg.Paths.LogDir = "logs"
	cfg.Storage.Backend = "mysql"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.dsn")
}

// TestValidateThresholdRange verifies out-of-range thresholds are rejected.
func TestValidateThresholdRange(t *testing.T) {
	cfg := Default()
	cfg.Paths.Dataset = "patients.json"
	cfg.Paths.LogDir = "logs"
	cfg.Thresholds.Coverage = 150
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "thresholds.coverage")
}
