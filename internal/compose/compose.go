// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package compose assembles the single user message sent for a request.
//
// The message text is built in a fixed order:
//
//  1. a "Given file(s):" block with one fenced section per document
//  2. when a custom instruction is set, everything so far wrapped in a
//     "Given context:" fence that starts with the instruction
//  3. the request text itself
//
// Images ride along as the message's image list. The text does not refer
// to them.
package compose

import (
	"strings"

	"github.com/jeranaias/mailassist/internal/attachment"
	"github.com/jeranaias/mailassist/internal/model"
)

// Fence delimits quoted blocks inside prompts.
const Fence = `"""`

// Compose builds the user message for userText with the given custom
// instruction and attachments. It never splits content across messages.
func Compose(instruction string, bundle attachment.Bundle, userText string) model.Message {
	text := FileBlock(bundle.Documents)

	if strings.TrimSpace(instruction) != "" {
		text = ContextBlock(instruction, text)
	}

	return model.NewUserMessage(text+userText, bundle.Images...)
}

// FileBlock renders documents as a "Given file(s):" block, or "" when
// there are none.
func FileBlock(docs []attachment.Document) string {
	if len(docs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Given file(s):\n")
	for _, d := range docs {
		b.WriteString(d.Label)
		b.WriteString(":\n")
		writeFenced(&b, d.Text)
	}
	return b.String()
}

// ContextBlock wraps body in a "Given context:" fence led by instruction.
func ContextBlock(instruction, body string) string {
	inner := instruction
	if body = strings.TrimRight(body, "\n"); body != "" {
		inner += "\n\n" + body
	}

	var b strings.Builder
	b.WriteString("Given context:\n")
	writeFenced(&b, inner)
	return b.String()
}

func writeFenced(b *strings.Builder, text string) {
	b.WriteString(Fence)
	b.WriteByte('\n')
	b.WriteString(text)
	b.WriteByte('\n')
	b.WriteString(Fence)
	b.WriteByte('\n')
}
