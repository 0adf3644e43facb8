// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and the settings handle.
//
// Configuration file locations (in order of precedence):
//   - ~/.mailassist/config.toml
//   - ~/.mailassist/config.json
//   - Built-in defaults
//
// MAILASSIST_HOME moves the directory. Environment variables named
// MAILASSIST_* override individual values after the file is read.
//
// The rest of the program reads user settings through a Settings handle,
// which exposes the flat key-value view the assistant works with:
//
//	settings, err := config.OpenSettings("")
//	url := settings.Get("ollama_url")
//	_ = settings.Set("language", "German")
//	_ = settings.Save()
//
// Keys without a section refer to [user_data]; the original camelCase
// names (ollamaUrl, customInstruction) are accepted too.
package config
