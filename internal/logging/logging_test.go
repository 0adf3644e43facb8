// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreLogger(t *testing.T) {
	t.Helper()
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})
}

func TestSetupJSONOutput(t *testing.T) {
	restoreLogger(t)
	var buf bytes.Buffer

	closer, err := Setup(Options{Level: "debug", Output: &buf})
	require.NoError(t, err)
	defer closer.Close()

	log.Debug().Str("model", "llama3").Msg("MODEL_SELECTED")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "MODEL_SELECTED", line["message"])
	assert.Equal(t, "llama3", line["model"])
	assert.Equal(t, "debug", line["level"])
}

func TestSetupLevelFilters(t *testing.T) {
	restoreLogger(t)
	var buf bytes.Buffer

	_, err := Setup(Options{Level: "WARN", Output: &buf})
	require.NoError(t, err)

	log.Info().Msg("HIDDEN")
	assert.Empty(t, buf.String())

	log.Warn().Msg("SHOWN")
	assert.Contains(t, buf.String(), "SHOWN")
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	restoreLogger(t)
	_, err := Setup(Options{Level: "chatty"})
	assert.Error(t, err)
}

func TestSetupFile(t *testing.T) {
	restoreLogger(t)
	path := filepath.Join(t.TempDir(), "logs", "mailassist.log")

	closer, err := Setup(Options{File: path, Console: true})
	require.NoError(t, err)
	log.Info().Msg("WRITTEN")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"WRITTEN"`)
}

func TestSetupConsole(t *testing.T) {
	restoreLogger(t)
	var buf bytes.Buffer

	_, err := Setup(Options{Console: true, Output: &buf})
	require.NoError(t, err)
	log.Info().Msg("READABLE")

	assert.Contains(t, buf.String(), "READABLE")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}
