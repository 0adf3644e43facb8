// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reasoning

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/mailassist/internal/gateway"
	"github.com/jeranaias/mailassist/internal/model"
)

// ErrNoResponse is returned when the model gave no reply at all.
var ErrNoResponse = errors.New("no response from model")

// Completer sends a history and waits for one complete reply.
// *gateway.Gateway satisfies it.
type Completer interface {
	Complete(ctx context.Context, modelName string, history []model.Message, opts gateway.CompleteOptions) (string, bool)
}

// Asker runs reasoning tasks against one model.
type Asker struct {
	completer Completer
	model     string

	// JSONMode asks the server to constrain output to JSON. The reply is
	// validated the same way either way.
	JSONMode bool
}

// NewAsker creates an asker for modelName.
func NewAsker(c Completer, modelName string) *Asker {
	return &Asker{completer: c, model: modelName, JSONMode: true}
}

// Ask sends task's prompt about contextText after snapshot and parses the
// reply. snapshot is not modified. A transport failure yields
// ErrNoResponse; a malformed reply yields *ContractError.
func (a *Asker) Ask(ctx context.Context, contextText string, task Task, snapshot []model.Message) (Result, error) {
	history := make([]model.Message, 0, len(snapshot)+1)
	history = append(history, snapshot...)
	history = append(history, model.NewUserMessage(task.Prompt(contextText)))

	var opts gateway.CompleteOptions
	if a.JSONMode {
		opts.Format = "json"
	}

	raw, ok := a.completer.Complete(ctx, a.model, history, opts)
	if !ok {
		return Result{}, ErrNoResponse
	}

	result, err := ParseResult(raw, task.Kind)
	if err != nil {
		log.Warn().Err(err).Str("model", a.model).Str("raw", raw).Msg("REASONING_CONTRACT_VIOLATION")
		return Result{}, err
	}
	return result, nil
}

// =============================================================================
// SPAM SCORING
// =============================================================================

// SpamVerdict is the outcome of scoring one email.
type SpamVerdict struct {
	Score  int
	Reason string
}

// Suspicious reports whether the score crosses SpamThreshold.
func (v SpamVerdict) Suspicious() bool {
	return IsSuspicious(v.Score)
}

// ScoreSpam rates how likely emailText is spam or advertising.
func (a *Asker) ScoreSpam(ctx context.Context, emailText string, snapshot []model.Message) (SpamVerdict, error) {
	result, err := a.Ask(ctx, emailText, SpamTask, snapshot)
	if err != nil {
		return SpamVerdict{}, fmt.Errorf("spam score: %w", err)
	}

	score, _ := result.Int()
	log.Debug().Int("score", score).Str("reason", result.Reason).Msg("SPAM_SCORED")
	return SpamVerdict{Score: score, Reason: result.Reason}, nil
}
