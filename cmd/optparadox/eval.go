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
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/som-shahlab/opt-paradox/config"
	"github.com/som-shahlab/opt-paradox/diagnosis"
	"github.com/som-shahlab/opt-paradox/evalrun"
	"github.com/som-shahlab/opt-paradox/evaluator/coverage"
	"github.com/som-shahlab/opt-paradox/evaluator/labcost"
	"github.com/som-shahlab/opt-paradox/evaluator/labinterp"
	"github.com/som-shahlab/opt-paradox/log"
	"github.com/som-shahlab/opt-paradox/model"
	"github.com/som-shahlab/opt-paradox/patient"
	"github.com/som-shahlab/opt-paradox/results"
	"github.com/som-shahlab/opt-paradox/results/local"
	"github.com/som-shahlab/opt-paradox/results/mysql"
)

func newEvalCmd() *cobra.Command {
	var (
		logDir     string
		skipFuzzy  bool
		noLLMMatch bool
	)
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score a directory of transcripts and store the run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if logDir == "" {
				logDir = cfg.Paths.LogDir
			}
			resultsDir := cfg.Paths.ResultsDir
			if resultsDir == "" {
				resultsDir = "results"
			}
			cfg.SkipFuzzy = cfg.SkipFuzzy || skipFuzzy
			cfg.NoLLMMatch = cfg.NoLLMMatch || noLLMMatch

			ds, err := patient.Load(cfg.Paths.Dataset)
			if err != nil {
				return err
			}
			costEval, err := labcost.New(cfg.Paths.FeeSchedule,
				labcost.WithThreshold(cfg.Thresholds.LabCost))
			if err != nil {
				return err
			}

			interpOpts := []labinterp.Option{
				labinterp.WithThresholds(cfg.Thresholds.LabNameShort, cfg.Thresholds.LabNameLong),
				labinterp.WithSkipFuzzy(cfg.SkipFuzzy),
			}
			if !cfg.NoLLMMatch && cfg.Models.Matcher.Name != "" {
				interpOpts = append(interpOpts, labinterp.WithOracle(
					model.New(cfg.Models.Matcher.Name,
						model.WithBaseURL(cfg.Models.BaseURL),
						model.WithAPIKey(cfg.Models.APIKey))))
			}

			scorer := evalrun.New(
				diagnosis.NewMatcher(
					diagnosis.WithMatchThreshold(cfg.Thresholds.Diagnosis),
					diagnosis.WithPathologyThreshold(cfg.Thresholds.Pathology)),
				labinterp.New(ds, interpOpts...),
				costEval,
				coverage.New(coverage.WithThreshold(cfg.Thresholds.Coverage)),
				evalrun.WithCostTracking(cfg.CostTracking))

			run, err := scorer.ScoreDir(cmd.Context(), logDir, resultsDir)
			if run == nil {
				return err
			}
			if err != nil {
				log.Warnf("scoring finished with errors: %v", err)
			}

			store, closeStore, err := openStore(cmd.Context(), cfg, resultsDir)
			if err != nil {
				return err
			}
			defer closeStore()
			if err := store.Save(cmd.Context(), run); err != nil {
				return err
			}
			log.Infof("stored run %s: micro accuracy %.2f%%, lab cost $%.2f",
				run.ID, run.Summary.MicroAccuracy, run.Summary.TotalLabCost)
			return nil
		},
	}
	cmd.Flags().StringVar(&logDir, "log-dir", "",
		"transcript directory to score (defaults to paths.log_dir)")
	cmd.Flags().BoolVar(&skipFuzzy, "skip-fuzzy", false,
		"disable fuzzy lab-name matching")
	cmd.Flags().BoolVar(&noLLMMatch, "no-llm-match", false,
		"disable the semantic lab-name oracle")
	return cmd
}

// openStore builds the configured results backend.
func openStore(ctx context.Context, cfg *config.Config, resultsDir string) (results.Manager, func(), error) {
	if cfg.Storage.Backend == "mysql" {
		m, err := mysql.Open(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, nil, err
		}
		return m, func() { _ = m.Close() }, nil
	}
	return local.New(filepath.Join(resultsDir, "runs")), func() {}, nil
}
