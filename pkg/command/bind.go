// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package command

import (
	"context"
	"math"
	"slices"

	"github.com/bwmarrin/discordgo"
)

// bindMessage walks the leaf command's arguments in declared order over the
// remaining message tokens. A variadic argument ends the walk. It returns
// the first required argument that could not be resolved, or nil.
func bindMessage(ctx context.Context, resolvers *Resolvers, c *Context, tokens []string) *Argument {
	for i := range c.Command.Arguments {
		arg := &c.Command.Arguments[i]

		req := &ResolveRequest{
			Client:   c.Client,
			Argument: *arg,
			Tokens:   tokens,
			Message:  c.Message,
			Command:  c.Command,
			GuildID:  c.GuildID,
			Bound:    c.Args,
		}
		if res, ok := resolvers.Get(arg.Type); ok {
			if v, n, ok := res.Resolve(ctx, req); ok {
				c.Args.set(arg.Name, v)
				tokens = tokens[min(n, len(tokens)):]
				if arg.Type.Variadic() {
					return nil
				}
				continue
			}
		} else {
			c.Logger.WarnContext(ctx, "no resolver for argument type",
				"command", c.Command.FullName(),
				"argument", arg.Name,
				"type", string(arg.Type))
		}

		if missing := fallback(c.Args, arg); missing != nil {
			return missing
		}
	}
	return nil
}

// fallback applies the argument's default. It returns arg when the argument
// is required and has no default.
func fallback(v *Values, arg *Argument) *Argument {
	if arg.Default != nil {
		v.set(arg.Name, arg.Default)
		return nil
	}
	if arg.Required() {
		return arg
	}
	return nil
}

// bindInteraction looks each declared argument up by name in the leaf
// option list and converts it using the interaction's resolved data.
func bindInteraction(ctx context.Context, resolvers *Resolvers, c *Context,
	opts []*discordgo.ApplicationCommandInteractionDataOption,
	resolved *discordgo.ApplicationCommandInteractionDataResolved,
) *Argument {
	for i := range c.Command.Arguments {
		arg := &c.Command.Arguments[i]

		idx := slices.IndexFunc(opts, func(o *discordgo.ApplicationCommandInteractionDataOption) bool {
			return o.Name == arg.Name
		})
		if idx >= 0 {
			if v, ok := fromOption(ctx, resolvers, c, arg, opts[idx], resolved); ok {
				c.Args.set(arg.Name, v)
				continue
			}
		}

		if missing := fallback(c.Args, arg); missing != nil {
			return missing
		}
	}
	return nil
}

func fromOption(ctx context.Context, resolvers *Resolvers, c *Context, arg *Argument,
	opt *discordgo.ApplicationCommandInteractionDataOption,
	resolved *discordgo.ApplicationCommandInteractionDataResolved,
) (any, bool) {
	if resolved == nil {
		resolved = &discordgo.ApplicationCommandInteractionDataResolved{}
	}
	id, _ := opt.Value.(string)

	switch arg.Type {
	case ArgString:
		s, ok := opt.Value.(string)
		if !ok {
			return nil, false
		}
		return checkString(*arg, s)

	case ArgNumber, ArgInteger:
		f, ok := opt.Value.(float64)
		if !ok {
			return nil, false
		}
		if arg.Type == ArgInteger {
			a := *arg
			a.AllowDecimals = true
			v, ok := checkNumber(a, math.Trunc(f))
			return int64(v), ok
		}
		return checkNumber(*arg, f)

	case ArgBoolean:
		b, ok := opt.Value.(bool)
		return b, ok

	case ArgUser:
		if u, ok := resolved.Users[id]; ok {
			return u, true
		}
		u, err := c.Client.User(ctx, id)
		return u, err == nil

	case ArgMember:
		if m := resolvedMember(resolved, id, c.GuildID); m != nil {
			return m, true
		}
		if c.GuildID == "" {
			return nil, false
		}
		m, err := c.Client.Member(ctx, c.GuildID, id)
		return m, err == nil

	case ArgRole:
		if r, ok := resolved.Roles[id]; ok {
			return r, true
		}
		r := findRole(c.Guild, id)
		return r, r != nil

	case ArgChannel, ArgTextChannel, ArgGuildTextChannel, ArgVoiceChannel, ArgCategoryChannel:
		ch, ok := resolved.Channels[id]
		if !ok {
			var err error
			if ch, err = c.Client.Channel(ctx, id); err != nil {
				return nil, false
			}
		}
		if types := channelTypesFor(arg.Type); types != nil && !slices.Contains(types, ch.Type) {
			return nil, false
		}
		return ch, true

	case ArgMentionable:
		if u, ok := resolved.Users[id]; ok {
			return &Mentionable{User: u, Member: resolvedMember(resolved, id, c.GuildID)}, true
		}
		if r, ok := resolved.Roles[id]; ok {
			return &Mentionable{Role: r}, true
		}
		return nil, false

	case ArgAttachment:
		a, ok := resolved.Attachments[id]
		return a, ok
	}

	// Variadic and custom types arrive as a string option and are
	// resolved like message tokens.
	s, ok := opt.Value.(string)
	if !ok {
		return nil, false
	}
	res, ok := resolvers.Get(arg.Type)
	if !ok {
		return nil, false
	}
	v, _, ok := res.Resolve(ctx, &ResolveRequest{
		Client:   c.Client,
		Argument: *arg,
		Tokens:   Tokenize(s, true),
		Command:  c.Command,
		GuildID:  c.GuildID,
		Bound:    c.Args,
	})
	return v, ok
}

// resolvedMember joins the partial member and user payloads of an
// interaction.
func resolvedMember(resolved *discordgo.ApplicationCommandInteractionDataResolved, id, guildID string) *discordgo.Member {
	m, ok := resolved.Members[id]
	if !ok {
		return nil
	}
	cp := *m
	if cp.User == nil {
		cp.User = resolved.Users[id]
	}
	cp.GuildID = guildID
	return &cp
}
