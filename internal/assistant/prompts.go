// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assistant

import (
	"fmt"

	"github.com/jeranaias/mailassist/internal/compose"
	"github.com/jeranaias/mailassist/internal/mail"
	"github.com/jeranaias/mailassist/internal/reasoning"
	"github.com/jeranaias/mailassist/internal/util"
)

// Intent is what the user wants done with the selected email.
type Intent int

const (
	IntentSummarize Intent = iota
	IntentReply
)

// String returns the intent name.
func (i Intent) String() string {
	switch i {
	case IntentSummarize:
		return "summarize"
	case IntentReply:
		return "reply"
	default:
		return "unknown"
	}
}

// quoted renders the email between fences.
func quoted(e *mail.Email) string {
	return compose.Fence + "\n" + e.Describe() + "\n" + compose.Fence
}

// SummarizePrompt asks for a summary of e in language.
func SummarizePrompt(language string, e *mail.Email) string {
	return fmt.Sprintf("In %s, summarize following email:\n%s", language, quoted(e))
}

// ReplyPrompt asks for a draft reply to e.
func ReplyPrompt(e *mail.Email) string {
	return "Write a reply for email:\n" + quoted(e)
}

// SpamWarningPrompt asks the model to warn the user about e instead of
// acting on it.
func SpamWarningPrompt(language string, e *mail.Email, v reasoning.SpamVerdict) string {
	return fmt.Sprintf(
		"In %s, warn the user that the following email is likely spam or advertisement "+
			"(likelihood %d/100, reason: %s) and explain briefly what to be careful about:\n%s",
		language, v.Score, v.Reason, quoted(e))
}

// Label is the display-log line shown in place of the full prompt.
func Label(intent Intent, subject string) string {
	switch intent {
	case IntentReply:
		return fmt.Sprintf(`Write a reply for: "%s"`, labelSubject(subject))
	default:
		return fmt.Sprintf(`Summarize email: "%s"`, labelSubject(subject))
	}
}

// SpamLabel is the display-log line for a spam warning.
func SpamLabel(subject string) string {
	return fmt.Sprintf(`Spam warning: "%s"`, labelSubject(subject))
}

// labelWidth bounds subjects in display labels, in terminal cells.
const labelWidth = 72

func labelSubject(subject string) string {
	return util.TruncateWidth(subject, labelWidth)
}
