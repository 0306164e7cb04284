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

	"github.com/som-shahlab/opt-paradox/agent"
	"github.com/som-shahlab/opt-paradox/config"
	"github.com/som-shahlab/opt-paradox/log"
	"github.com/som-shahlab/opt-paradox/model"
	"github.com/som-shahlab/opt-paradox/patient"
	"github.com/som-shahlab/opt-paradox/runner"
	"github.com/som-shahlab/opt-paradox/tokencost"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the diagnostic agent over the patient dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ds, err := patient.Load(cfg.Paths.Dataset)
			if err != nil {
				return err
			}

			role := func(ref config.ModelRef) agent.Role {
				return agent.Role{
					Chat: model.New(ref.Name,
						model.WithBaseURL(cfg.Models.BaseURL),
						model.WithAPIKey(cfg.Models.APIKey)),
					Model: ref.Name,
				}
			}
			usage := tokencost.NewUsage()
			a := agent.New(ds,
				role(cfg.Models.InfoGathering),
				role(cfg.Models.Interpretation),
				role(cfg.Models.Diagnosis),
				role(cfg.Models.Matcher),
				agent.WithMaxIterations(cfg.Runtime.MaxIterations),
				agent.WithUsage(usage))

			r := runner.New(ds, a, cfg.Paths.LogDir,
				runner.WithWorkers(cfg.Runtime.Workers),
				runner.WithUsage(usage))
			if err := r.Run(cmd.Context()); err != nil {
				return err
			}
			log.Infof("run complete: transcripts in %s", cfg.Paths.LogDir)
			return nil
		},
	}
}
