// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
)

// =============================================================================
// CONVERSATION
// =============================================================================

// Conversation is the ordered history sent to the model on every turn.
// Messages are only ever appended; Clear is the one way to shrink it.
//
// Each Clear starts a new generation. A Turn remembers the generation it
// began in, so an answer that arrives after a Clear is not added to the
// history that replaced the one it belongs to.
type Conversation struct {
	mu       sync.RWMutex
	messages []Message
	gen      uint64
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Append adds a message at the end of the history.
func (c *Conversation) Append(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg.Clone())
}

// Snapshot returns a deep copy of the history. Changes to the result do
// not reach the store.
func (c *Conversation) Snapshot() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Conversation) snapshotLocked() []Message {
	out := make([]Message, len(c.messages))
	for i, m := range c.messages {
		out[i] = m.Clone()
	}
	return out
}

// Clear empties the history and starts a new generation.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
	c.gen++
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// =============================================================================
// TURNS
// =============================================================================

// Turn is one request against the conversation: the history it sends and
// the generation that history came from.
type Turn struct {
	conv    *Conversation
	gen     uint64
	history []Message
}

// Begin appends question and returns a turn whose history ends with it.
// Both happen under one lock, so a concurrent Clear either precedes the
// question or invalidates the turn.
func (c *Conversation) Begin(question Message) *Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, question.Clone())
	return &Turn{conv: c, gen: c.gen, history: c.snapshotLocked()}
}

// Pin returns a turn over the current history without adding to it.
func (c *Conversation) Pin() *Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &Turn{conv: c, gen: c.gen, history: c.snapshotLocked()}
}

// History returns the messages to send for the turn.
func (t *Turn) History() []Message {
	return t.history
}

// Current reports whether the conversation has not been cleared since the
// turn began.
func (t *Turn) Current() bool {
	t.conv.mu.RLock()
	defer t.conv.mu.RUnlock()
	return t.conv.gen == t.gen
}

// Finish appends answer unless the conversation was cleared since the
// turn began. It reports whether the answer was kept.
func (t *Turn) Finish(answer Message) bool {
	t.conv.mu.Lock()
	defer t.conv.mu.Unlock()
	if t.conv.gen != t.gen {
		return false
	}
	t.conv.messages = append(t.conv.messages, answer.Clone())
	return true
}
