// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package compose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/mailassist/internal/attachment"
	"github.com/jeranaias/mailassist/internal/model"
)

func TestCompose(t *testing.T) {
	doc := attachment.Document{Label: "notes.pdf", Text: "line one\nline two"}

	tests := []struct {
		name        string
		instruction string
		bundle      attachment.Bundle
		userText    string
		want        string
	}{
		{
			name:     "text only",
			userText: "What is Go?",
			want:     "What is Go?",
		},
		{
			name:     "document only",
			bundle:   attachment.Bundle{Documents: []attachment.Document{doc}},
			userText: "Summarize.",
			want:     "Given file(s):\nnotes.pdf:\n\"\"\"\nline one\nline two\n\"\"\"\nSummarize.",
		},
		{
			name:        "instruction only",
			instruction: "Answer like a pirate.",
			userText:    "Hi",
			want:        "Given context:\n\"\"\"\nAnswer like a pirate.\n\"\"\"\nHi",
		},
		{
			name:        "instruction wraps documents",
			instruction: "Be brief.",
			bundle:      attachment.Bundle{Documents: []attachment.Document{doc}},
			userText:    "Summarize.",
			want: "Given context:\n\"\"\"\nBe brief.\n\nGiven file(s):\nnotes.pdf:\n\"\"\"\nline one\nline two\n\"\"\"\n\"\"\"\nSummarize.",
		},
		{
			name:        "blank instruction ignored",
			instruction: "  \n",
			userText:    "Hi",
			want:        "Hi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := Compose(tt.instruction, tt.bundle, tt.userText)

			assert.Equal(t, model.RoleUser, msg.Role)
			assert.Equal(t, tt.want, msg.Content)
		})
	}
}

func TestCompose_InstructionOutsideAttachmentBlock(t *testing.T) {
	bundle := attachment.Bundle{Documents: []attachment.Document{{Label: "a.pdf", Text: "ATTACHED"}}}

	content := Compose("INSTRUCTION", bundle, "REQUEST").Content

	ctxAt := strings.Index(content, "Given context:")
	instrAt := strings.Index(content, "INSTRUCTION")
	filesAt := strings.Index(content, "Given file(s):")
	textAt := strings.Index(content, "ATTACHED")
	closeAt := strings.LastIndex(content, Fence)
	reqAt := strings.Index(content, "REQUEST")

	assert.Equal(t, 0, ctxAt)
	assert.Less(t, instrAt, filesAt)
	assert.Less(t, filesAt, textAt)
	assert.Less(t, textAt, closeAt)
	assert.Less(t, closeAt, reqAt)
}

func TestCompose_DocumentsKeepOrder(t *testing.T) {
	bundle := attachment.Bundle{Documents: []attachment.Document{
		{Label: "first.pdf", Text: "1"},
		{Label: "second.pdf", Text: "2"},
	}}

	content := Compose("", bundle, "").Content

	assert.Less(t, strings.Index(content, "first.pdf"), strings.Index(content, "second.pdf"))
	assert.Equal(t, 1, strings.Count(content, "Given file(s):"))
}

func TestCompose_ImagesAttachedInOrder(t *testing.T) {
	bundle := attachment.Bundle{
		Images: []string{"aW1nMQ==", "aW1nMg=="},
		Opaque: []string{"archive.zip"},
	}

	msg := Compose("", bundle, "Describe these.")

	assert.Equal(t, "Describe these.", msg.Content)
	assert.Equal(t, []string{"aW1nMQ==", "aW1nMg=="}, msg.Images)
	assert.NotContains(t, msg.Content, "archive.zip")
}
