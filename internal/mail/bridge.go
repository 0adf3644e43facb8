// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Bridge fetches the selected message from the mail client. A Record
// with Err set is a normal answer; the error return is for a bridge that
// could not answer at all.
type Bridge interface {
	SelectedMessage(ctx context.Context) (Record, error)
}

// Bridge kinds accepted by NewBridge.
const (
	BridgeFile    = "file"
	BridgeCommand = "command"
	BridgeNone    = "none"
)

// BridgeConfig selects and configures a bridge.
type BridgeConfig struct {
	Kind          string
	SelectionFile string
	Command       string
	AttachmentDir string
}

// NewBridge builds the bridge named by cfg.Kind.
func NewBridge(cfg BridgeConfig) (Bridge, error) {
	switch cfg.Kind {
	case BridgeFile:
		if cfg.SelectionFile == "" {
			return nil, errors.New("file bridge: no selection file configured")
		}
		return &FileBridge{Path: cfg.SelectionFile}, nil
	case BridgeCommand:
		fields := strings.Fields(cfg.Command)
		if len(fields) == 0 {
			return nil, errors.New("command bridge: no command configured")
		}
		return &CommandBridge{Name: fields[0], Args: fields[1:], AttachmentDir: cfg.AttachmentDir}, nil
	case BridgeNone, "":
		return NoBridge{}, nil
	default:
		return nil, fmt.Errorf("unknown mail bridge %q", cfg.Kind)
	}
}

// =============================================================================
// FILE BRIDGE
// =============================================================================

// FileBridge reads the selection document from a file. A missing file
// means nothing is selected.
type FileBridge struct {
	Path string
}

// SelectedMessage implements Bridge.
func (b *FileBridge) SelectedMessage(ctx context.Context) (Record, error) {
	data, err := os.ReadFile(b.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Failed(NoSelection), nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("read selection: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Failed(NoSelection), nil
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode selection %s: %w", b.Path, err)
	}
	return rec, nil
}

// =============================================================================
// COMMAND BRIDGE
// =============================================================================

// AttachmentDirEnv tells a helper program where to save attachments.
const AttachmentDirEnv = "MAILASSIST_ATTACHMENT_DIR"

// CommandBridge runs a helper program and decodes its stdout.
type CommandBridge struct {
	Name string
	Args []string

	// AttachmentDir is created if missing and passed to the helper in
	// AttachmentDirEnv.
	AttachmentDir string

	// Timeout bounds one run (default 10s).
	Timeout time.Duration
}

// SelectedMessage implements Bridge.
func (b *CommandBridge) SelectedMessage(ctx context.Context) (Record, error) {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, b.Name, b.Args...)
	cmd.Env = os.Environ()
	if b.AttachmentDir != "" {
		if err := os.MkdirAll(b.AttachmentDir, 0700); err != nil {
			return Record{}, fmt.Errorf("create attachment dir: %w", err)
		}
		cmd.Env = append(cmd.Env, AttachmentDirEnv+"="+b.AttachmentDir)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return Record{}, fmt.Errorf("run %s: %w: %s", b.Name, err, msg)
		}
		return Record{}, fmt.Errorf("run %s: %w", b.Name, err)
	}

	var rec Record
	if err := json.Unmarshal(bytes.TrimSpace(out), &rec); err != nil {
		return Record{}, fmt.Errorf("decode %s output: %w", b.Name, err)
	}
	return rec, nil
}

// =============================================================================
// NO BRIDGE
// =============================================================================

// NoBridge is used when no mail client is configured.
type NoBridge struct{}

// SelectedMessage implements Bridge.
func (NoBridge) SelectedMessage(context.Context) (Record, error) {
	return Failed("Mail bridge disabled."), nil
}
