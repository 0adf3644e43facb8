// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// legacyDocument is the settings file written by the browser add-in:
//
//	{"userData": {"language": "...", "customInstruction": "...", "ollamaUrl": "..."}}
type legacyDocument struct {
	UserData struct {
		Language          string `json:"language"`
		CustomInstruction string `json:"customInstruction"`
		OllamaURL         string `json:"ollamaUrl"`
	} `json:"userData"`
}

// LoadUserDataJSON reads an add-in settings file.
func LoadUserDataJSON(path string) (UserDataConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return UserDataConfig{}, fmt.Errorf("read %s: %w", path, err)
	}
	var doc legacyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return UserDataConfig{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return UserDataConfig{
		OllamaURL:         doc.UserData.OllamaURL,
		Language:          doc.UserData.Language,
		CustomInstruction: doc.UserData.CustomInstruction,
	}, nil
}

// Import copies the non-empty fields of an add-in settings file into the
// settings. Nothing changes if the result would not validate.
func (s *Settings) Import(path string) error {
	ud, err := LoadUserDataJSON(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg.Clone()
	if ud.OllamaURL != "" {
		next.UserData.OllamaURL = ud.OllamaURL
	}
	if ud.Language != "" {
		next.UserData.Language = ud.Language
	}
	next.UserData.CustomInstruction = ud.CustomInstruction
	next.SetDefaults()
	if err := next.Validate(); err != nil {
		return err
	}
	s.cfg = next
	return nil
}
