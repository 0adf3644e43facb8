// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

var (
	markdownRenderer     *glamour.TermRenderer
	markdownRendererOnce sync.Once
)

// renderMarkdown renders content for the terminal. The original content
// is returned if the renderer is unavailable.
func renderMarkdown(content string) string {
	markdownRendererOnce.Do(func() {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(answerWidth(os.Stdout)-4),
		)
		if err == nil {
			markdownRenderer = r
		}
	})
	if markdownRenderer == nil {
		return content
	}

	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// =============================================================================
// ANSWER OUTPUT
// =============================================================================

// answerPrinter writes a streaming answer. Partial answers are cumulative,
// so only the new suffix is printed each time. In markdown mode nothing
// is printed until the answer is complete.
type answerPrinter struct {
	w        io.Writer
	markdown bool
	last     string
}

func newAnswerPrinter(w io.Writer, markdown bool) *answerPrinter {
	return &answerPrinter{w: w, markdown: markdown}
}

// Update receives a partial answer. "" marks the end of the stream.
func (p *answerPrinter) Update(partial string) {
	if p.markdown {
		return
	}
	if partial == "" {
		p.last = ""
		return
	}
	if strings.HasPrefix(partial, p.last) {
		fmt.Fprint(p.w, partial[len(p.last):])
	} else {
		fmt.Fprint(p.w, "\n"+partial)
	}
	p.last = partial
}

// Finish prints the final answer in markdown mode, or terminates the
// streamed line otherwise.
func (p *answerPrinter) Finish(answer string) {
	if p.markdown {
		fmt.Fprint(p.w, renderMarkdown(answer))
		return
	}
	fmt.Fprintln(p.w)
}
