// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/mailassist/internal/ollama"
	"github.com/jeranaias/mailassist/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is one turn of the conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`

	// Images holds base64 payloads, in attachment order.
	Images []string `json:"images,omitempty"`
}

// NewMessage creates a message with a fresh ID and timestamp.
func NewMessage(role Role, content string, images ...string) Message {
	msg := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Timestamp: time.Now(),
		Content:   content,
	}
	if len(images) > 0 {
		msg.Images = append([]string(nil), images...)
	}
	return msg
}

// NewUserMessage creates a user message.
func NewUserMessage(content string, images ...string) Message {
	return NewMessage(RoleUser, content, images...)
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// Clone returns a copy that shares no slices with m.
func (m Message) Clone() Message {
	if m.Images != nil {
		m.Images = append([]string(nil), m.Images...)
	}
	return m
}

// Preview returns the content truncated to maxWidth terminal columns.
func (m Message) Preview(maxWidth int) string {
	return util.TruncateWidth(m.Content, maxWidth)
}

// ToOllama converts the message to its wire form.
func (m Message) ToOllama() ollama.Message {
	return ollama.Message{
		Role:    string(m.Role),
		Content: m.Content,
		Images:  m.Images,
	}
}

// ToOllamaMessages converts a history to wire form.
func ToOllamaMessages(msgs []Message) []ollama.Message {
	out := make([]ollama.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ToOllama())
	}
	return out
}
