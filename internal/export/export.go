// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/mailassist/internal/util"
)

// ErrEmpty is returned when there is nothing to export.
var ErrEmpty = errors.New("conversation is empty")

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Turn is one question and the answer shown for it.
type Turn struct {
	Question string `json:"question"`
	Speaker  string `json:"speaker"`
	Answer   string `json:"answer"`
}

// Transcript is a conversation as displayed.
type Transcript struct {
	Model    string    `json:"model,omitempty"`
	Exported time.Time `json:"exported"`
	Turns    []Turn    `json:"turns"`
}

// FromLog groups display log entries into turns. Each turn in the log is
// "User:", the question, the speaker header and the answer. A trailing
// turn that is still waiting for its answer is kept with an empty answer.
func FromLog(entries []string, modelName string, now time.Time) Transcript {
	t := Transcript{Model: modelName, Exported: now}
	for i := 0; i+2 < len(entries); i += 4 {
		turn := Turn{
			Question: entries[i+1],
			Speaker:  strings.TrimSuffix(entries[i+2], ":"),
		}
		if i+3 < len(entries) {
			turn.Answer = entries[i+3]
		}
		t.Turns = append(t.Turns, turn)
	}
	return t
}

// =============================================================================
// EXPORTERS
// =============================================================================

// Exporter renders a transcript in one file format.
type Exporter interface {
	Export(t Transcript) ([]byte, error)

	// FileExtension returns the extension including the dot.
	FileExtension() string
}

// ForPath picks the exporter matching path's extension. Anything other
// than .json is exported as Markdown.
func ForPath(path string) Exporter {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSONExporter{}
	}
	return MarkdownExporter{}
}

// DefaultFilename names an export made at now.
func DefaultFilename(now time.Time, ext string) string {
	return fmt.Sprintf("mailassist_%s%s", now.Format("20060102_150405"), ext)
}

// WriteFile exports t to path, or to a timestamped Markdown file in the
// working directory when path is empty. It returns the path written.
func WriteFile(path string, t Transcript) (string, error) {
	if len(t.Turns) == 0 {
		return "", ErrEmpty
	}

	exporter := ForPath(path)
	if path == "" {
		path = DefaultFilename(t.Exported, exporter.FileExtension())
	}

	content, err := exporter.Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, content, 0600, 0700); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}
