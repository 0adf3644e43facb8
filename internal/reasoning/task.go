// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reasoning

import "fmt"

// ValueKind is the type the model must put under "result".
type ValueKind string

const (
	KindInt    ValueKind = "int"
	KindFloat  ValueKind = "float"
	KindString ValueKind = "string"
	KindBool   ValueKind = "bool"
)

// Valid reports whether k is a known kind.
func (k ValueKind) Valid() bool {
	switch k {
	case KindInt, KindFloat, KindString, KindBool:
		return true
	}
	return false
}

// Task is one classify-or-score question.
type Task struct {
	Action string
	Kind   ValueKind
}

// NewTask creates a task, rejecting unknown kinds and empty actions.
func NewTask(action string, kind ValueKind) (Task, error) {
	if action == "" {
		return Task{}, fmt.Errorf("reasoning task: empty action")
	}
	if !kind.Valid() {
		return Task{}, fmt.Errorf("reasoning task: unknown value kind %q", kind)
	}
	return Task{Action: action, Kind: kind}, nil
}

// Prompt renders the instruction sent to the model for contextText.
func (t Task) Prompt(contextText string) string {
	return fmt.Sprintf(
		"Given context:\n\"\"\"\n%s\n\"\"\"\n%s\nReturn the result in json form, \"reason\" as the key for reason, and \"result\" as key for result as %s value.",
		contextText, t.Action, t.Kind,
	)
}

// =============================================================================
// SPAM PRESET
// =============================================================================

// SpamThreshold is the score above which an email is treated as spam.
// A score equal to the threshold is not suspicious.
const SpamThreshold = 60

// SpamTask scores spam or advertisement likelihood from 0 to 100.
var SpamTask = Task{
	Action: "In a scale from 0 to 100, how likely is this a spam or advertisement email",
	Kind:   KindInt,
}

// IsSuspicious applies the spam threshold.
func IsSuspicious(score int) bool {
	return score > SpamThreshold
}
