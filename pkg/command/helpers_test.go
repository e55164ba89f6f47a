// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package command

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"

	"github.com/amethyst-dev/amethyst/pkg/permissions"
	"github.com/amethyst-dev/amethyst/pkg/platform/platformtest"
)

const (
	testGuildID   = "100000000000000001"
	testChannelID = "200000000000000001"
	nsfwChannelID = "200000000000000002"
	voiceID       = "200000000000000003"
	dmChannelID   = "200000000000000009"
	authorID      = "300000000000000001"
	otherUserID   = "300000000000000002"
	ownerUserID   = "300000000000000007"
	botUserID     = "300000000000000099"
	guildOwnerID  = "300000000000000050"
	modRoleID     = "400000000000000001"
	adminRoleID   = "400000000000000002"
	messageID     = "500000000000000001"
)

func newTestClient(t *testing.T) *platformtest.Client {
	t.Helper()

	c := platformtest.New(botUserID)
	c.AddGuild(&discordgo.Guild{
		ID:      testGuildID,
		Name:    "amethyst",
		OwnerID: guildOwnerID,
		Roles: []*discordgo.Role{
			{ID: testGuildID, Name: "@everyone", Permissions: permissions.Flags["SEND_MESSAGES"] | permissions.Flags["VIEW_CHANNEL"]},
			{ID: modRoleID, Name: "Moderators", Permissions: permissions.Flags["KICK_MEMBERS"]},
			{ID: adminRoleID, Name: "Admin", Permissions: permissions.Administrator},
		},
	})
	c.AddChannel(&discordgo.Channel{ID: testChannelID, GuildID: testGuildID, Name: "general", Type: discordgo.ChannelTypeGuildText})
	c.AddChannel(&discordgo.Channel{ID: nsfwChannelID, GuildID: testGuildID, Name: "after-dark", Type: discordgo.ChannelTypeGuildText, NSFW: true})
	c.AddChannel(&discordgo.Channel{ID: voiceID, GuildID: testGuildID, Name: "lounge", Type: discordgo.ChannelTypeGuildVoice})
	c.AddChannel(&discordgo.Channel{ID: dmChannelID, Type: discordgo.ChannelTypeDM})
	c.AddMember(testGuildID, &discordgo.Member{
		User:  &discordgo.User{ID: authorID, Username: "ruby"},
		Roles: []string{modRoleID},
	})
	c.AddMember(testGuildID, &discordgo.Member{
		User: &discordgo.User{ID: otherUserID, Username: "onyx", GlobalName: "Onyx Stone"},
		Nick: "rocky",
	})
	c.AddMember(testGuildID, &discordgo.Member{
		User:  &discordgo.User{ID: botUserID, Username: "amethyst", Bot: true},
		Roles: []string{adminRoleID},
	})
	return c
}

func guildMessage(content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        messageID,
		ChannelID: testChannelID,
		GuildID:   testGuildID,
		Content:   content,
		Author:    &discordgo.User{ID: authorID, Username: "ruby"},
	}
}

func dmMessage(content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        messageID,
		ChannelID: dmChannelID,
		Content:   content,
		Author:    &discordgo.User{ID: authorID, Username: "ruby"},
	}
}

func slashInteraction(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:        "600000000000000001",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   testGuildID,
		ChannelID: testChannelID,
		Token:     "token",
		Member: &discordgo.Member{
			User:  &discordgo.User{ID: authorID, Username: "ruby"},
			Roles: []string{modRoleID},
		},
		Data: discordgo.ApplicationCommandInteractionData{
			ID:      "700000000000000001",
			Name:    name,
			Options: opts,
		},
	}
}

func mustCommand(t *testing.T, opts Options) *Command {
	t.Helper()
	cmd, err := New(opts)
	require.NoError(t, err)
	return cmd
}

func mustSubcommand(t *testing.T, opts Options) *Command {
	t.Helper()
	cmd, err := NewSubcommand(opts)
	require.NoError(t, err)
	return cmd
}

func newTestDispatcher(t *testing.T, client *platformtest.Client, reg *Registry, opts ...DispatcherOption) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(client, reg, append([]DispatcherOption{WithPrefix("!")}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}
