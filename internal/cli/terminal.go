// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection.
//
// Answers are rendered as markdown only when they go to an interactive
// terminal; piped output stays plain so it can be processed further.

package cli

import (
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// stdinIsTerminal reports whether input comes from a person rather than
// a pipe.
func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// isTerminalWriter reports whether w is a file attached to a terminal.
func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Answer width bounds, in cells.
const (
	defaultAnswerWidth = 80
	minAnswerWidth     = 40
	maxAnswerWidth     = 100
)

// answerWidth is the wrap width for rendered answers written to w. Long
// lines are hard to read, so wide terminals are capped.
func answerWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return defaultAnswerWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	switch {
	case err != nil || width <= 0:
		return defaultAnswerWidth
	case width < minAnswerWidth:
		return minAnswerWidth
	case width > maxAnswerWidth:
		return maxAnswerWidth
	}
	return width
}

// colorProfile picks the palette for styled output. NO_COLOR and
// CLICOLOR_FORCE are honoured by termenv; FORCE_COLOR is accepted too.
func colorProfile() termenv.Profile {
	if termenv.EnvNoColor() {
		return termenv.Ascii
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return termenv.ANSI256
	}
	return termenv.EnvColorProfile()
}
