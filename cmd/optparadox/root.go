//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"github.com/spf13/cobra"

	"github.com/som-shahlab/opt-paradox/config"
	"github.com/som-shahlab/opt-paradox/log"
)

var configPath string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optparadox",
		Short: "Clinical diagnostic-agent evaluation pipeline",
		Long: `optparadox drives an LLM diagnostic agent over a dataset of
abdominal-pain patient cases and scores the resulting transcripts:
diagnosis accuracy, guideline coverage, lab interpretation, treatment
appropriateness, and lab cost.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml",
		"path to the run configuration file")
	cmd.AddCommand(newRunCmd(), newEvalCmd(), newVersionCmd())
	return cmd
}

// loadConfig reads the configuration file and applies its log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log.SetLevel(cfg.LogLevel)
	return cfg, nil
}
