// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package builtin

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/gobwas/glob"

	"github.com/amethyst-dev/amethyst/pkg/command"
)

const embedColor = 0x9966cc

// NewHelp builds the help command. Without a query it lists commands by
// category. A query naming a command (or a space separated subcommand path)
// shows its usage; any other query is matched as a glob against command names
// and aliases.
func NewHelp(reg *command.Registry) (*command.Command, error) {
	return command.New(command.Options{
		Name:        "help",
		Description: "List commands or show how to use one.",
		Category:    Category,
		Arguments: []command.Argument{{
			Name:        "query",
			Description: "A command name or a glob such as mod*",
			Type:        command.ArgStrings,
			Optional:    true,
			Lowercase:   true,
		}},
		Execute: func(ctx context.Context, c *command.Context) error {
			query := strings.Join(c.Args.GetStrings("query"), " ")
			_, err := c.Reply(ctx, helpContent(reg, query, invokePrefix(c)))
			return err
		},
	})
}

func invokePrefix(c *command.Context) string {
	if c.Kind == command.KindInteraction {
		return "/"
	}
	return c.Prefix
}

func helpContent(reg *command.Registry, query, prefix string) command.Content {
	if query == "" {
		return command.Content{Embeds: []*discordgo.MessageEmbed{overview(visible(reg.All()), "Commands")}}
	}
	if cmd, ok := lookup(reg, query); ok {
		return command.Content{Embeds: []*discordgo.MessageEmbed{usage(cmd, prefix)}}
	}

	g, err := glob.Compile(query)
	if err != nil {
		return command.Content{Content: fmt.Sprintf("%q is not a valid pattern.", query), Private: true}
	}
	var matched []*command.Command
	for _, cmd := range visible(reg.All()) {
		if matches(g, cmd) {
			matched = append(matched, cmd)
		}
	}
	if len(matched) == 0 {
		return command.Content{Content: fmt.Sprintf("No commands match %q.", query), Private: true}
	}
	return command.Content{Embeds: []*discordgo.MessageEmbed{overview(matched, fmt.Sprintf("Commands matching %s", query))}}
}

func visible(cmds []*command.Command) []*command.Command {
	return slices.DeleteFunc(cmds, func(c *command.Command) bool { return c.OwnerOnly })
}

func matches(g glob.Glob, cmd *command.Command) bool {
	if g.Match(cmd.Name) {
		return true
	}
	return slices.ContainsFunc(cmd.Aliases, g.Match)
}

// lookup resolves "name sub group" paths through aliases and children.
func lookup(reg *command.Registry, query string) (*command.Command, bool) {
	parts := strings.Fields(query)
	cmd, ok := reg.FindByAliasOrName(parts[0])
	if !ok {
		return nil, false
	}
	for _, name := range parts[1:] {
		if cmd, ok = cmd.Child(name); !ok {
			return nil, false
		}
	}
	return cmd, true
}

func overview(cmds []*command.Command, title string) *discordgo.MessageEmbed {
	byCategory := map[string][]string{}
	for _, cmd := range cmds {
		byCategory[cmd.Category] = append(byCategory[cmd.Category], "`"+cmd.Name+"`")
	}
	embed := &discordgo.MessageEmbed{Title: title, Color: embedColor}
	for _, category := range slices.Sorted(maps.Keys(byCategory)) {
		names := byCategory[category]
		slices.Sort(names)
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  category,
			Value: strings.Join(names, ", "),
		})
	}
	return embed
}

func usage(cmd *command.Command, prefix string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       cmd.Path(),
		Description: cmd.Description,
		Color:       embedColor,
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  "Usage",
		Value: "`" + prefix + usageLine(cmd) + "`",
	})
	if len(cmd.Aliases) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Aliases",
			Value: strings.Join(cmd.Aliases, ", "),
		})
	}
	if children := cmd.Children(); len(children) > 0 {
		names := make([]string, len(children))
		for i, child := range children {
			names[i] = "`" + child.Name + "`"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Subcommands",
			Value: strings.Join(names, ", "),
		})
	}
	if cmd.Cooldown != nil {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Cooldown: %d use(s) per %s", max(cmd.Cooldown.AllowedUses, 1), cmd.Cooldown.Duration),
		}
	}
	return embed
}

func usageLine(cmd *command.Command) string {
	parts := []string{cmd.Path()}
	for _, arg := range cmd.Arguments {
		name := arg.Name
		if arg.Type.Variadic() {
			name += "..."
		}
		if arg.Required() {
			parts = append(parts, "<"+name+">")
		} else {
			parts = append(parts, "["+name+"]")
		}
	}
	return strings.Join(parts, " ")
}
