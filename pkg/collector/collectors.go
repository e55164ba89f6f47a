// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package collector

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Reaction is a reaction added to a message.
type Reaction struct {
	MessageID string
	ChannelID string
	GuildID   string
	UserID    string
	Emoji     discordgo.Emoji
}

// ReactionFromEvent converts a gateway reaction-add event.
func ReactionFromEvent(r *discordgo.MessageReaction) Reaction {
	return Reaction{
		MessageID: r.MessageID,
		ChannelID: r.ChannelID,
		GuildID:   r.GuildID,
		UserID:    r.UserID,
		Emoji:     r.Emoji,
	}
}

// ComponentOptions extends Options with a component type filter.
type ComponentOptions struct {
	Options[*discordgo.Interaction]
	// Type restricts collection to one component type. Zero accepts any.
	Type discordgo.ComponentType
}

// Collectors bundles the message, reaction and component hubs a bot feeds
// from its gateway handlers.
type Collectors struct {
	Messages   *Hub[*discordgo.Message]
	Reactions  *Hub[Reaction]
	Components *Hub[*discordgo.Interaction]
}

// New creates an empty set of hubs.
func New() *Collectors {
	return &Collectors{
		Messages:   NewHub("message", messageKeyOf),
		Reactions:  NewHub("reaction", func(r Reaction) string { return r.MessageID }),
		Components: NewHub("component", componentKeyOf),
	}
}

func messageKey(memberID, channelID string) string {
	return memberID + "-" + channelID
}

func messageKeyOf(m *discordgo.Message) string {
	if m.Author == nil {
		return ""
	}
	return messageKey(m.Author.ID, m.ChannelID)
}

func componentKeyOf(i *discordgo.Interaction) string {
	if i.Message == nil {
		return ""
	}
	switch i.Type {
	case discordgo.InteractionMessageComponent, discordgo.InteractionModalSubmit:
		return i.Message.ID
	default:
		return ""
	}
}

// AwaitMessages collects messages sent by memberID in channelID.
func (c *Collectors) AwaitMessages(ctx context.Context, memberID, channelID string, opts Options[*discordgo.Message]) ([]*discordgo.Message, error) {
	return c.Messages.Collect(ctx, messageKey(memberID, channelID), opts)
}

// AwaitReactions collects reactions added to messageID.
func (c *Collectors) AwaitReactions(ctx context.Context, messageID string, opts Options[Reaction]) ([]Reaction, error) {
	return c.Reactions.Collect(ctx, messageID, opts)
}

// AwaitComponents collects component interactions on messageID.
func (c *Collectors) AwaitComponents(ctx context.Context, messageID string, opts ComponentOptions) ([]*discordgo.Interaction, error) {
	inner := opts.Options
	if opts.Type != 0 {
		filter := inner.Filter
		inner.Filter = func(i *discordgo.Interaction) bool {
			if componentType(i) != opts.Type {
				return false
			}
			return filter == nil || filter(i)
		}
	}
	return c.Components.Collect(ctx, messageID, inner)
}

func componentType(i *discordgo.Interaction) discordgo.ComponentType {
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		return i.MessageComponentData().ComponentType
	case discordgo.InteractionModalSubmit:
		return discordgo.TextInputComponent
	default:
		return 0
	}
}
