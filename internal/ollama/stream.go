// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"
)

// =============================================================================
// STREAM READER
// =============================================================================

// streamLine is the wire shape of one NDJSON line from /api/chat.
type streamLine struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason,omitempty"`
	TotalDuration   int64  `json:"total_duration,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
	EvalDuration    int64  `json:"eval_duration,omitempty"`
	Error           string `json:"error,omitempty"`
}

// StreamReader decodes a newline-delimited JSON chat stream.
type StreamReader struct {
	reader *bufio.Reader
	model  string
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{reader: bufio.NewReader(r)}
}

// Process reads the stream and calls the callback for each chunk.
// Blocks until the done chunk, end of input, a server-reported error or
// context cancellation.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk, err := s.readChunk()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if chunk == nil {
			continue
		}

		callback(*chunk)
		if chunk.Done {
			return nil
		}
	}
}

// readChunk returns (nil, nil) for blank or malformed lines.
func (s *StreamReader) readChunk() (*StreamChunk, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil && (!errors.Is(err, io.EOF) || len(line) == 0) {
		return nil, err
	}

	line = []byte(strings.TrimSpace(string(line)))
	if len(line) == 0 {
		return nil, nil
	}

	var wire streamLine
	if jsonErr := json.Unmarshal(line, &wire); jsonErr != nil {
		return nil, nil
	}
	if wire.Error != "" {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: wire.Error}
	}

	if wire.Model != "" {
		s.model = wire.Model
	}

	chunk := &StreamChunk{
		Content:    wire.Message.Content,
		Done:       wire.Done,
		DoneReason: wire.DoneReason,
		Model:      s.model,
	}
	if wire.Done {
		chunk.TotalDuration = time.Duration(wire.TotalDuration)
		chunk.EvalDuration = time.Duration(wire.EvalDuration)
		chunk.PromptTokens = wire.PromptEvalCount
		chunk.CompletionTokens = wire.EvalCount
	}
	return chunk, nil
}

// =============================================================================
// STREAM ACCUMULATOR
// =============================================================================

// StreamAccumulator folds deltas into the cumulative answer.
type StreamAccumulator struct {
	content strings.Builder
	chunks  int
	done    bool
	last    StreamChunk
}

// Add appends a chunk and returns the cumulative text so far.
func (a *StreamAccumulator) Add(chunk StreamChunk) string {
	a.content.WriteString(chunk.Content)
	a.chunks++
	a.last = chunk
	if chunk.Done {
		a.done = true
	}
	return a.content.String()
}

// Content returns the text accumulated so far.
func (a *StreamAccumulator) Content() string {
	return a.content.String()
}

// Done reports whether the final chunk has been seen.
func (a *StreamAccumulator) Done() bool {
	return a.done
}

// Chunks returns how many chunks were added.
func (a *StreamAccumulator) Chunks() int {
	return a.chunks
}

// Last returns the most recent chunk.
func (a *StreamAccumulator) Last() StreamChunk {
	return a.last
}
