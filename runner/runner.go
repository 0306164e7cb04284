//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

// Package runner fans the diagnostic agent out over every patient in the
// dataset and writes one transcript file per patient.
//
// Patient failures are isolated: a crashed session is recorded as an
// error transcript and the run continues. The run itself only fails on
// infrastructure errors such as an unwritable log directory.
package runner

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/panjf2000/ants/v2"

	"github.com/som-shahlab/opt-paradox/agent"
	"github.com/som-shahlab/opt-paradox/log"
	"github.com/som-shahlab/opt-paradox/patient"
	"github.com/som-shahlab/opt-paradox/tokencost"
	"github.com/som-shahlab/opt-paradox/transcript"
)

// Session runs the diagnostic loop for one patient. *agent.Agent is the
// production implementation.
type Session interface {
	Run(ctx context.Context, patientID string) (*agent.Result, error)
}

// DefaultWorkers is the default patient fan-out width.
const DefaultWorkers = 1

// Runner drives one evaluation run: every patient through the agent,
// one transcript file each, plus the token usage file.
type Runner struct {
	dataset *patient.Dataset
	session Session
	logDir  string
	workers int
	usage   *tokencost.Usage
	logger  log.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithUsage attaches the token accumulator written out at the end of the
// run.
func WithUsage(u *tokencost.Usage) Option {
	return func(r *Runner) { r.usage = u }
}

// WithLogger routes run logging.
func WithLogger(logger log.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// New creates a Runner writing transcripts into logDir.
func New(dataset *patient.Dataset, session Session, logDir string, opt ...Option) *Runner {
	r := &Runner{
		dataset: dataset,
		session: session,
		logDir:  logDir,
		workers: DefaultWorkers,
		logger:  log.Default,
	}
	for _, apply := range opt {
		apply(r)
	}
	return r
}

// Run processes every patient through the worker pool, then writes the
// token usage file. The returned error aggregates infrastructure
// failures; per-patient session errors are captured in the transcripts
// instead.
func (r *Runner) Run(ctx context.Context) error {
	ids := r.dataset.IDs()
	r.logger.Infof("starting run: %d patients, %d workers", len(ids), r.workers)

	var (
		mu   sync.Mutex
		errs *multierror.Error
		wg   sync.WaitGroup
	)
	collect := func(err error) {
		mu.Lock()
		errs = multierror.Append(errs, err)
		mu.Unlock()
	}

	pool, err := ants.NewPoolWithFunc(r.workers, func(arg interface{}) {
		defer wg.Done()
		if err := r.runPatient(ctx, arg.(string)); err != nil {
			collect(err)
		}
	})
	if err != nil {
		return err
	}
	defer pool.Release()

	for _, id := range ids {
		wg.Add(1)
		if err := pool.Invoke(id); err != nil {
			wg.Done()
			collect(err)
		}
	}
	wg.Wait()

	if r.usage != nil {
		if err := r.usage.WriteFile(r.logDir); err != nil {
			collect(err)
		}
	}
	return errs.ErrorOrNil()
}

// runPatient executes one session and writes its transcript. A session
// error becomes an error transcript; only the transcript write itself
// can fail the call.
func (r *Runner) runPatient(ctx context.Context, patientID string) error {
	start := time.Now()
	rec, _ := r.dataset.Get(patientID)

	meta := transcript.Meta{}
	if rec != nil {
		meta.GoldDiagnosis = strings.ToLower(rec.DischargeDiagnosis)
	}

	var turns []transcript.Turn
	result, err := r.session.Run(ctx, patientID)
	if err != nil {
		r.logger.Errorf("patient %s failed: %v", patientID, err)
		meta.Final = "[ERROR] " + err.Error()
		meta.Error = true
	} else {
		meta.Final = result.Final
		meta.Metrics = result.Metrics
		meta.Error = strings.Contains(result.Final, "[ERROR]")
		turns = result.Turns
	}
	meta.DurationSec = time.Since(start).Seconds()

	r.logger.Infof("patient %s done in %.1fs (error=%t)", patientID, meta.DurationSec, meta.Error)
	return transcript.Write(r.logDir, patientID, meta, turns)
}
