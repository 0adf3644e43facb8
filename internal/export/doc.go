// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a chat transcript to a file.
//
// A transcript is taken from the display log, so it shows what the user
// saw: the short label of an email request rather than the full prompt
// sent to the model.
//
// Supported formats:
//   - Markdown (.md, the default)
//   - JSON (.json)
//
// Usage:
//
//	t := export.FromLog(assistant.Log(), assistant.Model(), time.Now())
//	path, err := export.WriteFile("", t)
package export
