// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"sync"
)

// NoResponse is written to the display log when the model gave no answer.
const NoResponse = "[no response]"

// DisplayLog is the transcript shown to the user. Entries alternate
// between a speaker header and the text spoken, so an exchange is four
// lines: "User:", the label, "AI (model):", the answer.
type DisplayLog struct {
	mu      sync.RWMutex
	entries []string
}

// NewDisplayLog creates an empty log.
func NewDisplayLog() *DisplayLog {
	return &DisplayLog{}
}

// AddQuestion records what the user asked and which model is answering.
// The label may differ from the text sent to the model.
func (d *DisplayLog) AddQuestion(label, modelName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, "User:", label, fmt.Sprintf("AI (%s):", modelName))
}

// AddAnswer records the answer to the last question. An absent answer
// is shown as NoResponse.
func (d *DisplayLog) AddAnswer(answer string, ok bool) {
	if !ok {
		answer = NoResponse
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, answer)
}

// Entries returns a copy of the log.
func (d *DisplayLog) Entries() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.entries...)
}

// Clear empties the log.
func (d *DisplayLog) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = nil
}
