//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

// Package model wraps OpenAI-compatible chat completion behind a small
// interface with exponential-backoff retry.
//
// Every model in the pipeline (the three agent roles, the result-matcher
// tool, and the semantic-equivalence oracle) speaks this surface; the
// deployment is selected by base URL and model name.
package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"

	"github.com/som-shahlab/opt-paradox/log"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn sent to the model.
type Message struct {
	Role    string
	Content string
}

// System returns a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User returns a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Assistant returns an assistant message.
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Response is a completed generation with its token usage.
type Response struct {
	Content          string
	PromptTokens     int64
	CompletionTokens int64
}

// Chat generates one completion for a message sequence.
type Chat interface {
	Generate(ctx context.Context, messages []Message) (*Response, error)
}

// Retry policy defaults: initial 1s, doubling, capped at 60s, 5 attempts.
const (
	defaultMaxAttempts    = 5
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = 60 * time.Second
)

// Client is an OpenAI-compatible Chat implementation.
type Client struct {
	client         openai.Client
	name           string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         log.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	baseURL        string
	apiKey         string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         log.Logger
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithMaxAttempts overrides the retry attempt cap.
func WithMaxAttempts(n int) Option {
	return func(o *options) { o.maxAttempts = n }
}

// WithBackoff overrides the initial and maximum retry backoff.
func WithBackoff(initial, max time.Duration) Option {
	return func(o *options) { o.initialBackoff = initial; o.maxBackoff = max }
}

// WithLogger routes retry logging.
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates a Client for the named model.
func New(name string, opt ...Option) *Client {
	o := &options{
		maxAttempts:    defaultMaxAttempts,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
		logger:         log.Default,
	}
	for _, apply := range opt {
		apply(o)
	}
	// Retry is handled here so the backoff policy stays in one place;
	// the SDK's internal retry is disabled.
	clientOpts := []openaiopt.RequestOption{openaiopt.WithMaxRetries(0)}
	if o.apiKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithAPIKey(o.apiKey))
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(o.baseURL))
	}
	return &Client{
		client:         openai.NewClient(clientOpts...),
		name:           name,
		maxAttempts:    o.maxAttempts,
		initialBackoff: o.initialBackoff,
		maxBackoff:     o.maxBackoff,
		logger:         o.logger,
	}
}

// Name returns the model name requests are issued under.
func (c *Client) Name() string { return c.name }

// Generate runs one chat completion, retrying rate-limit, server, and
// transport errors with exponential backoff. It returns the last error
// once the attempt cap is exhausted.
func (c *Client) Generate(ctx context.Context, messages []Message) (*Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.name),
		Messages: convertMessages(messages),
	}

	backoff := c.initialBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err == nil {
			if len(completion.Choices) == 0 {
				return nil, fmt.Errorf("model %s returned no choices", c.name)
			}
			return &Response{
				Content:          completion.Choices[0].Message.Content,
				PromptTokens:     completion.Usage.PromptTokens,
				CompletionTokens: completion.Usage.CompletionTokens,
			}, nil
		}
		lastErr = err
		if !retryable(err) || attempt == c.maxAttempts {
			break
		}
		c.logger.Warnf("model %s attempt %d/%d failed, retrying in %s: %v",
			c.name, attempt, c.maxAttempts, backoff, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
	return nil, fmt.Errorf("model %s exhausted retries: %w", c.name, lastErr)
}

// retryable reports whether an error is worth retrying: HTTP 429, any
// 5xx, or a transport failure that produced no API error at all.
func retryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

func convertMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
