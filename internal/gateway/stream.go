// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/mailassist/internal/model"
	"github.com/jeranaias/mailassist/internal/ollama"
)

// ErrIncomplete is recorded when the server closes a stream before
// marking it done.
var ErrIncomplete = errors.New("stream ended before completion")

// Stream is an in-flight streaming answer. Next yields the cumulative
// text after each chunk; once Next reports no more values, Final returns
// the complete answer, which equals the last value yielded.
type Stream struct {
	updates chan string
	done    chan struct{}
	cancel  context.CancelFunc

	final string
	err   error
}

// Stream starts a streaming chat over history. It never fails up front;
// failures surface as Final returning ok=false.
func (g *Gateway) Stream(ctx context.Context, modelName string, history []model.Message) *Stream {
	conn, url := g.connection()

	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		updates: make(chan string),
		done:    make(chan struct{}),
		cancel:  cancel,
	}

	request := ollama.ChatRequest{
		Model:    modelName,
		Messages: model.ToOllamaMessages(history),
	}
	go s.run(ctx, conn, request, url)
	return s
}

func (s *Stream) run(ctx context.Context, conn Conn, request ollama.ChatRequest, url string) {
	defer close(s.done)
	defer close(s.updates)

	var acc ollama.StreamAccumulator
	err := conn.ChatStream(ctx, request, func(chunk ollama.StreamChunk) {
		partial := acc.Add(chunk)
		select {
		case s.updates <- partial:
		case <-ctx.Done():
		}
	})
	if err == nil && !acc.Done() {
		err = ErrIncomplete
	}

	if err != nil {
		log.Warn().Err(err).Str("url", url).Str("model", request.Model).
			Int("chunks", acc.Chunks()).Str("cause", failureCause(err)).Msg("CHAT_STREAM_FAILED")
		s.err = err
		return
	}
	s.final = acc.Content()

	last := acc.Last()
	log.Debug().Str("model", request.Model).Int("chunks", acc.Chunks()).
		Int("tokens", last.CompletionTokens).
		Float64("tokens_per_second", last.TokensPerSecond()).Msg("CHAT_STREAM_DONE")
}

// Next blocks for the next cumulative partial answer. more is false once
// the stream has ended, successfully or not.
func (s *Stream) Next() (partial string, more bool) {
	partial, more = <-s.updates
	return partial, more
}

// Final waits for the stream to end and returns the complete answer.
// Unread partials are discarded. ok is false when the stream failed.
func (s *Stream) Final() (answer string, ok bool) {
	for range s.updates {
	}
	<-s.done
	return s.final, s.err == nil
}

// Err returns the failure behind ok=false from Final, for logging.
func (s *Stream) Err() error {
	<-s.done
	return s.err
}

// Close abandons the stream and releases its connection.
func (s *Stream) Close() {
	s.cancel()
	for range s.updates {
	}
}
