// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command-line application for mailassist.
//
// Commands:
//   mailassist                    Start the interactive chat (default)
//   mailassist chat               Same as above
//   mailassist ask PROMPT         One-shot question, -f to attach files
//   mailassist models             List models on the Ollama server
//   mailassist summarize          Summarize the selected email
//   mailassist reply              Draft a reply to the selected email
//   mailassist email              Show the selected email
//   mailassist config get|set|list|path|import
//
// Global flags:
//   -c, --config FILE    Configuration file (default ~/.mailassist/config.toml)
//   -m, --model NAME     Model to use (overrides config)
//   --url URL            Ollama server URL for this run
//   --log-level LEVEL    Log level (overrides config)
package cli

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/jeranaias/mailassist/internal/config"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App builds the command-line application.
func App() *cli.App {
	return &cli.App{
		Name:    "mailassist",
		Usage:   "Chat with a local Ollama model about the email selected in your mail client",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				EnvVars: []string{"MAILASSIST_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Use model `NAME` instead of the configured one",
			},
			&cli.StringFlag{
				Name:  "url",
				Usage: "Ollama server `URL` for this run",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log `LEVEL` (debug, info, warn, error)",
			},
		},
		Before: loadDotEnv,
		Action: runChat,
		Commands: []*cli.Command{
			ChatCommand(),
			AskCommand(),
			ModelsCommand(),
			SummarizeCommand(),
			ReplyCommand(),
			EmailCommand(),
			ConfigCommand(),
		},
	}
}

// Run executes the application with args (including the program name).
func Run(args []string) error {
	return App().Run(args)
}

// loadDotEnv seeds MAILASSIST_* variables from .env files in the working
// directory and the configuration directory. Variables already set win.
func loadDotEnv(c *cli.Context) error {
	paths := []string{".env"}
	if dir, err := config.ConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, ".env"))
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
