// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

// Package platform defines the chat-platform client consumed by the command
// framework and a Discord implementation backed by discordgo.
package platform

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Error codes for platform failures.
const (
	CodeFetchFailed = "FETCH_FAILED"
	CodeSendFailed  = "SEND_FAILED"
	CodeUpsert      = "UPSERT_FAILED"
)

// Client is the view of the chat platform the framework depends on: cached
// entity lookups with remote fallback, REST mutations, and command upserts.
type Client interface {
	// BotID returns the bot's own user id, or "" before the ready event.
	BotID() string
	// Latency returns the most recent gateway heartbeat round trip.
	Latency() time.Duration

	Guild(ctx context.Context, guildID string) (*discordgo.Guild, error)
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error)
	Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
	User(ctx context.Context, userID string) (*discordgo.User, error)

	SendMessage(ctx context.Context, channelID string, data *discordgo.MessageSend) (*discordgo.Message, error)
	EditMessage(ctx context.Context, data *discordgo.MessageEdit) (*discordgo.Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	Typing(ctx context.Context, channelID string) error

	RespondInteraction(ctx context.Context, i *discordgo.Interaction, resp *discordgo.InteractionResponse) error
	EditInteractionResponse(ctx context.Context, i *discordgo.Interaction, edit *discordgo.WebhookEdit) (*discordgo.Message, error)
	SendFollowup(ctx context.Context, i *discordgo.Interaction, params *discordgo.WebhookParams) (*discordgo.Message, error)

	// UpsertCommands bulk-overwrites the application commands of guildID, or
	// the global commands when guildID is empty.
	UpsertCommands(ctx context.Context, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error)
}
