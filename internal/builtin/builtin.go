// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

// Package builtin provides the ping and help commands every bot ships with.
package builtin

import (
	"context"
	"fmt"

	"github.com/amethyst-dev/amethyst/pkg/command"
)

// Category is the category of the built-in commands.
const Category = "general"

// Register adds the built-in commands to reg.
func Register(reg *command.Registry) error {
	ping, err := NewPing()
	if err != nil {
		return err
	}
	help, err := NewHelp(reg)
	if err != nil {
		return err
	}
	for _, cmd := range []*command.Command{ping, help} {
		if err := reg.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

// NewPing builds the ping command, which reports gateway latency.
func NewPing() (*command.Command, error) {
	return command.New(command.Options{
		Name:        "ping",
		Description: "Check that the bot is alive and show gateway latency.",
		Category:    Category,
		Execute: func(ctx context.Context, c *command.Context) error {
			_, err := c.Reply(ctx, command.Content{
				Content: fmt.Sprintf("Pong! Gateway latency: %dms", c.Client.Latency().Milliseconds()),
			})
			return err
		},
	})
}
