// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"strings"
	"sync"
)

// Settings is the shared, concurrency-safe handle on the loaded
// configuration. Values are read fresh on every call, so a change made
// through Set or picked up by Reload is visible to the next request.
type Settings struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

// NewSettings wraps cfg. Save writes to path.
func NewSettings(cfg *Config, path string) *Settings {
	if cfg == nil {
		cfg = Default()
	}
	return &Settings{cfg: cfg, path: path}
}

// OpenSettings loads the configuration at path. An empty path means the
// default location chosen by Load.
func OpenSettings(path string) (*Settings, error) {
	if path == "" {
		cfg, resolved, err := Load()
		if err != nil {
			return nil, err
		}
		return NewSettings(cfg, resolved), nil
	}
	cfg, err := LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	return NewSettings(cfg, path), nil
}

// ResolveKey maps a user-facing key to its dot-notation form. Keys with
// no section belong to user_data.
func ResolveKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" || strings.Contains(key, ".") {
		return key
	}
	return "user_data." + key
}

// Get returns the value for key as text, or "" when the key is unknown.
func (s *Settings) Get(key string) string {
	v, err := s.Lookup(key)
	if err != nil {
		return ""
	}
	return v
}

// Lookup returns the value for key as text.
func (s *Settings) Lookup(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, err := s.cfg.Get(ResolveKey(key))
	if err != nil {
		return "", err
	}
	return fmt.Sprint(v), nil
}

// Set assigns key in memory. The change is rejected, and the previous
// configuration kept, if the result does not validate.
func (s *Settings) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg.Clone()
	if err := next.Set(ResolveKey(key), value); err != nil {
		return err
	}
	next.SetDefaults()
	if err := next.Validate(); err != nil {
		return err
	}
	s.cfg = next
	return nil
}

// Save persists the current configuration to its file.
func (s *Settings) Save() error {
	s.mu.RLock()
	cfg := s.cfg.Clone()
	path := s.path
	s.mu.RUnlock()

	if path == "" {
		p, err := ConfigPathTOML()
		if err != nil {
			return err
		}
		path = p
	}
	return SaveTo(cfg, path)
}

// Reload re-reads the configuration file. On failure the current values
// stay in place.
func (s *Settings) Reload() error {
	s.mu.RLock()
	path := s.path
	s.mu.RUnlock()

	cfg, err := LoadFromPath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

// Config returns a copy of the current configuration.
func (s *Settings) Config() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Path returns the file Save writes to.
func (s *Settings) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// ServerURL returns the model server base URL.
func (s *Settings) ServerURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.UserData.OllamaURL
}

// Language returns the output language.
func (s *Settings) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.UserData.Language
}

// CustomInstruction returns the instruction prefixed to requests.
func (s *Settings) CustomInstruction() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.UserData.CustomInstruction
}
