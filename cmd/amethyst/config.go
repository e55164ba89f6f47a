// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/amethyst-dev/amethyst/internal/config"
	"github.com/amethyst-dev/amethyst/internal/xdg"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate the bot configuration",
	}
	cmd.AddCommand(newConfigSchemaCmd())
	cmd.AddCommand(newConfigValidateCmd())
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(schema, '\n'))
			return err
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a config file without starting the bot",
		Long: `Validates a config file against the schema and the cross-field rules.
Exits with code 0 on success, non-zero on failure.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateConfigFile(args[0]); err != nil {
				return err
			}
			cmd.Printf("%s is valid\n", args[0])
			return nil
		},
	}
}

func validateConfigFile(path string) error {
	flags := pflag.NewFlagSet("validate", pflag.ContinueOnError)
	config.RegisterFlags(flags)
	if err := flags.Set("config", path); err != nil {
		return oops.Wrap(err)
	}
	cfg, _, err := config.Load(flags)
	if err != nil {
		return err
	}
	return cfg.Validate(version)
}

func newConfigInitCmd() *cobra.Command {
	var (
		path  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an annotated default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			written, err := writeSampleConfig(path, force)
			if err != nil {
				return err
			}
			cmd.Printf("wrote %s\n", written)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "destination (default $XDG_CONFIG_HOME/amethyst/config.yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func writeSampleConfig(path string, force bool) (string, error) {
	if path == "" {
		dir, err := xdg.ConfigDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(dir, config.FileName)
	}
	if err := xdg.EnsureDir(filepath.Dir(path)); err != nil {
		return "", err
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", oops.With("path", path).Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", oops.With("path", path).Wrap(err)
		}
	}
	if err := os.WriteFile(path, []byte(config.Sample), 0o600); err != nil {
		return "", oops.With("path", path).Wrapf(err, "write config")
	}
	return path, nil
}
