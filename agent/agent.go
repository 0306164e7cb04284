//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

// Package agent runs the three-role diagnostic loop over one patient:
// an information-gathering role requests exams, labs, and imaging
// through a retrieval tool; an interpretation role explains lab panels
// as they arrive; a diagnosis role delivers the final ranked answer.
//
// Control flow: info gathering loops through the tool until it declares
// "done", stops emitting tool calls, or hits the iteration cap; lab
// results detour through interpretation; diagnosis is terminal and sees
// everything except the last info-gathering turn, which would otherwise
// anchor it.
package agent

import (
	"context"
	"fmt"

	"github.com/som-shahlab/opt-paradox/log"
	"github.com/som-shahlab/opt-paradox/model"
	"github.com/som-shahlab/opt-paradox/patient"
	"github.com/som-shahlab/opt-paradox/tokencost"
	"github.com/som-shahlab/opt-paradox/transcript"
)

// Role names used for token accounting.
const (
	RoleInfo      = "info"
	RoleInterpret = "interpret"
	RoleMatcher   = "matcher"
	RoleDiagnosis = "diagnosis"
)

// Turn type tags recorded in transcripts.
const (
	TurnHuman          = "HumanMessage"
	TurnInfoGathering  = "InfoGatheringMessage"
	TurnTool           = "ToolMessage"
	TurnInterpretation = "InterpretationMessage"
	TurnDiagnosis      = "DiagnosisMessage"
)

// DefaultMaxIterations caps info-gathering turns before diagnosis is
// forced.
const DefaultMaxIterations = 10

// Role pairs a chat model with the model name reported in the token
// usage file.
type Role struct {
	Chat  model.Chat
	Model string
}

// Result is one completed patient session.
type Result struct {
	Final   string
	Metrics transcript.Metrics
	Turns   []transcript.Turn
}

// Agent is the three-role diagnostic loop. Safe for concurrent Run
// calls; all per-patient state lives in the session.
type Agent struct {
	dataset       *patient.Dataset
	tool          *RetrieveResults
	info          Role
	interpret     Role
	diagnose      Role
	maxIterations int
	usage         *tokencost.Usage
	logger        log.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithMaxIterations overrides the info-gathering iteration cap.
func WithMaxIterations(n int) Option {
	return func(a *Agent) { a.maxIterations = n }
}

// WithUsage enables token accounting into the given accumulator.
func WithUsage(u *tokencost.Usage) Option {
	return func(a *Agent) { a.usage = u }
}

// WithLogger routes session logging.
func WithLogger(logger log.Logger) Option {
	return func(a *Agent) { a.logger = logger }
}

// New assembles the loop from its four roles.
func New(dataset *patient.Dataset, info, interpret, diagnose, matcher Role, opt ...Option) *Agent {
	a := &Agent{
		dataset:       dataset,
		info:          info,
		interpret:     interpret,
		diagnose:      diagnose,
		maxIterations: DefaultMaxIterations,
		logger:        log.Default,
	}
	for _, apply := range opt {
		apply(a)
	}
	a.tool = NewRetrieveResults(dataset, matcher, a.usage)
	return a
}

// Run executes the loop for one patient and returns the final turn,
// per-turn metrics, and the full conversation. A model or tool failure
// aborts this patient only.
func (a *Agent) Run(ctx context.Context, patientID string) (*Result, error) {
	rec, ok := a.dataset.Get(patientID)
	if !ok {
		return nil, fmt.Errorf("patient %s not in dataset", patientID)
	}

	s := &session{agent: a, patientID: patientID}
	s.append(TurnHuman, model.RoleUser, queryPrompt(rec.PatientHistory))

	for iteration := 1; ; iteration++ {
		parsed, err := s.gatherInfo(ctx)
		if err != nil {
			return nil, err
		}
		if iteration >= a.maxIterations || !parsed.ToolCall ||
			parsed.Action == "" || parsed.Action == ActionDone {
			break
		}
		if err := s.runTool(ctx, parsed); err != nil {
			return nil, err
		}
		if parsed.Action == ActionLaboratoryTests {
			if err := s.interpretResults(ctx); err != nil {
				return nil, err
			}
		}
	}

	final, err := s.giveDiagnosis(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Final: final, Metrics: s.metrics, Turns: s.turns}, nil
}

// session is the per-patient conversation state.
type session struct {
	agent     *Agent
	patientID string

	messages []model.Message
	turns    []transcript.Turn
	metrics  transcript.Metrics

	firstToolCallSeen bool
}

func (s *session) append(turnType, role, content string) {
	s.turns = append(s.turns, transcript.Turn{Type: turnType, Content: content})
	s.messages = append(s.messages, model.Message{Role: role, Content: content})
}

// gatherInfo runs one information-gathering turn and folds the parsed
// action into the metrics.
func (s *session) gatherInfo(ctx context.Context) (ParsedResponse, error) {
	content, err := s.generate(ctx, s.agent.info, RoleInfo, infoGatheringPrompt, s.messages)
	if err != nil {
		return ParsedResponse{}, err
	}
	parsed := ParseInfoGatheringResponse(content)
	s.append(TurnInfoGathering, model.RoleAssistant, parsed.Formatted())
	s.recordAction(parsed)
	return parsed, nil
}

// runTool executes the requested retrieval and appends its output as a
// tool turn.
func (s *session) runTool(ctx context.Context, parsed ParsedResponse) error {
	result, err := s.agent.tool.Retrieve(ctx, s.patientID, parsed.Action, parsed.ActionInput)
	if err != nil {
		return err
	}
	s.append(TurnTool, model.RoleUser, result.Result)
	return nil
}

// interpretResults runs the interpretation role over the conversation
// so the lab panel just retrieved gets an interpretation block.
func (s *session) interpretResults(ctx context.Context) error {
	content, err := s.generate(ctx, s.agent.interpret, RoleInterpret, interpretationPrompt, s.messages)
	if err != nil {
		return err
	}
	s.append(TurnInterpretation, model.RoleAssistant, content)
	return nil
}

// giveDiagnosis runs the terminal role. The last info-gathering turn is
// excluded from its context to reduce anchoring on that role's closing
// thought.
func (s *session) giveDiagnosis(ctx context.Context) (string, error) {
	history := s.messages
	if len(history) > 0 {
		history = history[:len(history)-1]
	}
	content, err := s.generate(ctx, s.agent.diagnose, RoleDiagnosis, diagnosisPrompt, history)
	if err != nil {
		return "", err
	}
	s.turns = append(s.turns, transcript.Turn{Type: TurnDiagnosis, Content: content})
	return content, nil
}

// generate runs one completion for a role with its system prompt
// prepended, recording token usage.
func (s *session) generate(ctx context.Context, role Role, roleName, systemPrompt string, history []model.Message) (string, error) {
	messages := append([]model.Message{model.System(systemPrompt)}, history...)
	resp, err := role.Chat.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%s turn for patient %s: %w", roleName, s.patientID, err)
	}
	if s.agent.usage != nil {
		s.agent.usage.Record(roleName, role.Model, resp.PromptTokens, resp.CompletionTokens)
	}
	return resp.Content, nil
}

// recordAction updates the per-turn metrics for one parsed action.
func (s *session) recordAction(parsed ParsedResponse) {
	if !parsed.ToolCall || parsed.Action == "" {
		return
	}
	s.metrics.ToolCallCount++
	if !s.firstToolCallSeen {
		s.metrics.PhysicalExamFirst = parsed.Action == ActionPhysicalExamination
		s.firstToolCallSeen = true
	}
	switch parsed.Action {
	case ActionPhysicalExamination:
		s.metrics.PhysicalExamRequested = true
		s.metrics.PhysicalExamCount++
		s.metrics.ManeuversRequested = append(s.metrics.ManeuversRequested, SplitList(parsed.ActionInput)...)
	case ActionLaboratoryTests:
		s.metrics.LabCount++
		s.metrics.LabTestsRequested = append(s.metrics.LabTestsRequested, SplitListOutsideParens(parsed.ActionInput)...)
	case ActionImaging:
		s.metrics.ImagingCount++
		s.metrics.ImagingRequested = append(s.metrics.ImagingRequested, SplitList(parsed.ActionInput)...)
	}
}
