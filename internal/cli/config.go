// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Configuration command handlers.
//
// Subcommands:
//   list                Show the current configuration (default)
//   get KEY             Print one value
//   set KEY VALUE       Change one value and save
//   keys                List every settable key
//   path                Show the configuration file path
//   import FILE         Import an add-in settings file and save
//
// Keys without a section refer to [user_data]:
//   ollama_url          Ollama server URL
//   language            Output language for summaries
//   custom_instruction  Text placed before every request
//   model.default       Model to use (empty: first listed)
//   mail.bridge         file, command or none
//   mail.poll_interval_ms
package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/jeranaias/mailassist/internal/config"
)

// ConfigCommand returns the config command.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:   "config",
		Usage:  "Manage configuration",
		Action: runConfigList,
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "Show the current configuration",
				Action: runConfigList,
			},
			{
				Name:      "get",
				Usage:     "Print a configuration value",
				ArgsUsage: "KEY",
				Action:    runConfigGet,
			},
			{
				Name:      "set",
				Usage:     "Change a configuration value and save",
				ArgsUsage: "KEY VALUE",
				Action:    runConfigSet,
			},
			{
				Name:   "keys",
				Usage:  "List every settable key",
				Action: runConfigKeys,
			},
			{
				Name:   "path",
				Usage:  "Show the configuration file path",
				Action: runConfigPath,
			},
			{
				Name:      "import",
				Usage:     "Import a settings file written by the mail add-in",
				ArgsUsage: "FILE",
				Action:    runConfigImport,
			},
		},
	}
}

func runConfigList(c *cli.Context) error {
	settings, err := openSettings(c)
	if err != nil {
		return err
	}
	fmt.Fprint(c.App.Writer, settings.Config().String())
	return nil
}

func runConfigGet(c *cli.Context) error {
	if c.NArg() != 1 {
		return usageWithKeys("mailassist config get KEY")
	}
	settings, err := openSettings(c)
	if err != nil {
		return err
	}
	value, err := settings.Lookup(c.Args().First())
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, value)
	return nil
}

func runConfigSet(c *cli.Context) error {
	if c.NArg() < 2 {
		return usageWithKeys("mailassist config set KEY VALUE")
	}
	settings, err := openSettings(c)
	if err != nil {
		return err
	}

	key := c.Args().First()
	value := strings.Join(c.Args().Tail(), " ")
	if err := settings.Set(key, value); err != nil {
		return err
	}
	if err := settings.Save(); err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "%s %s = %s\n", SuccessStyle.Render("[OK]"), config.ResolveKey(key), value)
	return nil
}

func runConfigKeys(c *cli.Context) error {
	for _, key := range config.Keys() {
		fmt.Fprintln(c.App.Writer, key)
	}
	return nil
}

func usageWithKeys(usage string) error {
	return fmt.Errorf("usage: %s\nkeys: %s", usage, strings.Join(config.Keys(), ", "))
}

func runConfigPath(c *cli.Context) error {
	settings, err := openSettings(c)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, settings.Path())
	return nil
}

func runConfigImport(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("usage: mailassist config import FILE")
	}
	settings, err := openSettings(c)
	if err != nil {
		return err
	}
	if err := settings.Import(c.Args().First()); err != nil {
		return err
	}
	if err := settings.Save(); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s imported %s into %s\n",
		SuccessStyle.Render("[OK]"), c.Args().First(), settings.Path())
	return nil
}
