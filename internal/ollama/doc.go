// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the Ollama chat API.
//
// Only the three endpoints the assistant needs are covered: the model
// catalogue (/api/tags), streaming chat and non-streaming chat (both
// /api/chat). Messages may carry base64 images for multimodal models.
//
// # Usage
//
//	client := ollama.NewClient("http://localhost:11434")
//	err := client.ChatStream(ctx, ollama.ChatRequest{
//	    Model:    "llava",
//	    Messages: []ollama.Message{{Role: "user", Content: "Hello"}},
//	}, func(chunk ollama.StreamChunk) {
//	    fmt.Print(chunk.Content)
//	})
//
// Chunks carry deltas. Callers that want the cumulative answer feed them
// into a StreamAccumulator.
package ollama
