// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package main

import (
	"encoding/json"
	"io"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/amethyst-dev/amethyst/internal/config"
	"github.com/amethyst-dev/amethyst/pkg/command"
)

// NewCommandsCmd creates the commands subcommand.
func NewCommandsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "commands",
		Short: "Print the application commands uploaded on ready",
		Long: `Print the application command payload the bot uploads when it
connects, partitioned into global, every-guild and guild-pinned commands.
Honors guild_only from the config file. Does NOT connect to Discord.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			reg, err := newRegistry()
			if err != nil {
				return err
			}
			return writePayload(cmd.OutOrStdout(), command.BuildPayload(reg.All(), cfg.GuildOnly), format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "output format (yaml or json)")
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// writePayload renders p in the requested format. YAML goes through the JSON
// form so discordgo's json field names are kept.
func writePayload(w io.Writer, p command.Payload, format string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return oops.Wrapf(err, "encode payload")
	}

	switch format {
	case "json":
		_, err = w.Write(append(data, '\n'))
		return err
	case "yaml":
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return oops.Wrapf(err, "decode payload")
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return oops.Wrapf(err, "encode payload")
		}
		return enc.Close()
	default:
		return oops.With("format", format).Errorf("unknown format %q (want yaml or json)", format)
	}
}
