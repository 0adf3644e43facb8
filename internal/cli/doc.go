// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the mailassist command-line interface.
//
// The application is built with urfave/cli. Without a subcommand it
// starts an interactive chat; one-shot commands cover the same actions
// for scripts and mail-client hooks.
//
// # Commands Overview
//
//   - chat: interactive session with line editing and history
//   - ask: one question, optionally with attached files
//   - models: list models on the Ollama server
//   - summarize, reply: act on the email selected in the mail client
//   - email: show the selected email
//   - config: get, set, list, path and import settings
//
// # Output
//
// Answers stream to stdout as they arrive. When stdout is a terminal
// they are rendered as markdown once complete instead. Warnings and
// attachment notes go to stderr so piped answers stay clean.
package cli
