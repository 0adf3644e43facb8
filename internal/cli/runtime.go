// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/jeranaias/mailassist/internal/assistant"
	"github.com/jeranaias/mailassist/internal/attachment"
	"github.com/jeranaias/mailassist/internal/config"
	"github.com/jeranaias/mailassist/internal/gateway"
	"github.com/jeranaias/mailassist/internal/logging"
	"github.com/jeranaias/mailassist/internal/mail"
	"github.com/jeranaias/mailassist/internal/ollama"
)

// runtime is everything one invocation needs, wired together.
type runtime struct {
	settings  *config.Settings
	gateway   *gateway.Gateway
	poller    *mail.Poller
	assistant *assistant.Assistant
	logCloser io.Closer

	out    io.Writer
	errOut io.Writer
}

type runtimeOptions struct {
	Model       string
	LogLevel    string
	Interactive bool
	Out         io.Writer
	ErrOut      io.Writer
}

// openSettings loads the configuration named by --config and applies --url.
func openSettings(c *cli.Context) (*config.Settings, error) {
	settings, err := config.OpenSettings(c.String("config"))
	if err != nil {
		return nil, err
	}
	if url := c.String("url"); url != "" {
		if err := settings.Set(assistant.KeyServerURL, url); err != nil {
			return nil, fmt.Errorf("--url: %w", err)
		}
	}
	return settings, nil
}

// newRuntime wires a runtime from the command line.
func newRuntime(c *cli.Context, interactive bool) (*runtime, error) {
	settings, err := openSettings(c)
	if err != nil {
		return nil, err
	}
	return buildRuntime(settings, runtimeOptions{
		Model:       c.String("model"),
		LogLevel:    c.String("log-level"),
		Interactive: interactive,
		Out:         c.App.Writer,
		ErrOut:      c.App.ErrWriter,
	})
}

func buildRuntime(settings *config.Settings, opts runtimeOptions) (*runtime, error) {
	cfg := settings.Config()

	logOpts := logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Console: true,
		Output:  opts.ErrOut,
	}
	if opts.LogLevel != "" {
		logOpts.Level = opts.LogLevel
	}
	if opts.Interactive && logOpts.File == "" {
		if dir, err := config.ConfigDir(); err == nil {
			logOpts.File = filepath.Join(dir, "mailassist.log")
		}
	}
	closer, err := logging.Setup(logOpts)
	if err != nil {
		return nil, err
	}

	bridge, err := mail.NewBridge(mail.BridgeConfig{
		Kind:          cfg.Mail.Bridge,
		SelectionFile: cfg.Mail.SelectionFile,
		Command:       cfg.Mail.Command,
		AttachmentDir: cfg.Mail.AttachmentDir,
	})
	if err != nil {
		closer.Close()
		return nil, err
	}
	poller := mail.NewPoller(bridge, time.Duration(cfg.Mail.PollIntervalMS)*time.Millisecond, nil)

	gw := gateway.New(settings, nil)

	modelName := opts.Model
	if modelName == "" {
		modelName = cfg.Model.Default
	}

	return &runtime{
		settings: settings,
		gateway:  gw,
		poller:   poller,
		assistant: assistant.New(assistant.Options{
			Gateway:     gw,
			Settings:    settings,
			Attachments: attachment.NewBuilder(nil, nil),
			Mail:        poller,
			Model:       modelName,
			FormatJSON:  cfg.Model.FormatJSON,
		}),
		logCloser: closer,
		out:       opts.Out,
		errOut:    opts.ErrOut,
	}, nil
}

// ensureModel selects the first listed model if none is configured.
func (r *runtime) ensureModel(ctx context.Context) error {
	if r.assistant.Model() != "" {
		return nil
	}
	if len(r.assistant.Models(ctx)) == 0 {
		return fmt.Errorf("%w: %s", assistant.ErrNoModel, r.noModelsHint(ctx))
	}
	return nil
}

// noModelsHint explains an empty model list by asking the server
// whether it is up at all.
func (r *runtime) noModelsHint(ctx context.Context) string {
	url := r.settings.ServerURL()
	err := r.gateway.Ping(ctx)
	switch {
	case err == nil:
		return fmt.Sprintf("no models installed at %s (try: ollama pull llama3)", url)
	case ollama.IsNotRunning(err):
		return fmt.Sprintf("Ollama is not running at %s (try: ollama serve)", url)
	default:
		return fmt.Sprintf("no models available at %s: %v", url, err)
	}
}

// Close releases the log file.
func (r *runtime) Close() error {
	return r.logCloser.Close()
}
