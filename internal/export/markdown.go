// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts as Markdown.
type MarkdownExporter struct{}

// Export renders t with one section per speaker turn.
func (MarkdownExporter) Export(t Transcript) ([]byte, error) {
	if len(t.Turns) == 0 {
		return nil, ErrEmpty
	}

	var sb strings.Builder
	sb.WriteString("# mailassist conversation\n\n")
	if t.Model != "" {
		sb.WriteString(fmt.Sprintf("- **Model**: %s\n", t.Model))
	}
	sb.WriteString(fmt.Sprintf("- **Exported**: %s\n", t.Exported.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("- **Turns**: %d\n\n", len(t.Turns)))

	for i, turn := range t.Turns {
		sb.WriteString("### User\n\n")
		sb.WriteString(turn.Question)
		sb.WriteString("\n\n")
		sb.WriteString(fmt.Sprintf("### %s\n\n", turn.Speaker))
		sb.WriteString(turn.Answer)
		sb.WriteString("\n\n")

		if i < len(t.Turns)-1 {
			sb.WriteString("---\n\n")
		}
	}
	return []byte(sb.String()), nil
}

// FileExtension returns ".md".
func (MarkdownExporter) FileExtension() string {
	return ".md"
}
