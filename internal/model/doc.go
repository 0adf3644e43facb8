// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the conversation store and the display log.
//
// # Key Types
//
//   - Message: one turn, with role, text and optional base64 images
//   - Conversation: the ordered, append-only history sent to the model
//   - DisplayLog: the human-readable transcript shown to the user
//
// Both stores are safe for concurrent use. Snapshots are deep copies, so
// a caller may extend a snapshot with a one-off prompt without touching
// the live history.
//
//	conv := model.NewConversation()
//	conv.Append(model.NewUserMessage("Hello!"))
//	msgs := append(conv.Snapshot(), model.NewUserMessage("side question"))
package model
