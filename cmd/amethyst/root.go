// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/amethyst-dev/amethyst/internal/builtin"
	"github.com/amethyst-dev/amethyst/pkg/command"
)

// NewRootCmd creates the root command for the amethyst CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amethyst",
		Short: "Amethyst - a Discord command framework",
		Long: `Amethyst runs a Discord bot whose message and slash commands share
one command tree, with argument parsing, inhibitors and cooldowns.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewCommandsCmd())
	cmd.AddCommand(NewConfigCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// NewVersionCmd creates the version subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("amethyst %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
		},
	}
}

// newRegistry returns the command tree the runner serves.
func newRegistry() (*command.Registry, error) {
	reg := command.NewRegistry()
	if err := builtin.Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
