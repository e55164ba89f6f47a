// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package permissions

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amethyst-dev/amethyst/pkg/errutil"
)

const guildID = "100000000000000001"

func testGuild() *discordgo.Guild {
	return &discordgo.Guild{
		ID:      guildID,
		OwnerID: "900000000000000009",
		Roles: []*discordgo.Role{
			{ID: guildID, Name: "@everyone", Permissions: Flags["SEND_MESSAGES"] | Flags["VIEW_CHANNEL"]},
			{ID: "200000000000000002", Name: "mod", Permissions: Flags["KICK_MEMBERS"]},
			{ID: "300000000000000003", Name: "roles", Permissions: Flags["MANAGE_ROLES"]},
		},
	}
}

func member(id string, roles ...string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: id}, Roles: roles}
}

func TestBase(t *testing.T) {
	guild := testGuild()

	t.Run("includes everyone role", func(t *testing.T) {
		bits := Base(guild, member("1"))
		assert.True(t, Has(bits, []string{"SEND_MESSAGES", "VIEW_CHANNEL"}))
		assert.False(t, Has(bits, []string{"KICK_MEMBERS"}))
	})

	t.Run("ors member roles", func(t *testing.T) {
		bits := Base(guild, member("1", "200000000000000002", "300000000000000003"))
		assert.True(t, Has(bits, []string{"KICK_MEMBERS", "MANAGE_ROLES"}))
	})

	t.Run("owner is administrator", func(t *testing.T) {
		bits := Base(guild, member("900000000000000009"))
		assert.Equal(t, Administrator, bits&Administrator)
	})

	t.Run("nil inputs grant nothing", func(t *testing.T) {
		assert.Zero(t, Base(nil, member("1")))
		assert.Zero(t, Base(guild, nil))
	})
}

func TestChannel(t *testing.T) {
	guild := testGuild()

	t.Run("dm channel grants administrator", func(t *testing.T) {
		bits := Channel(guild, &discordgo.Channel{ID: "5"}, member("1"))
		assert.Equal(t, Administrator, bits)
	})

	t.Run("overwrite layers apply in order", func(t *testing.T) {
		channel := &discordgo.Channel{
			ID:      "5",
			GuildID: guildID,
			PermissionOverwrites: []*discordgo.PermissionOverwrite{
				{ID: guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: Flags["SEND_MESSAGES"]},
				{ID: "200000000000000002", Type: discordgo.PermissionOverwriteTypeRole, Allow: Flags["SEND_MESSAGES"]},
				{ID: "1", Type: discordgo.PermissionOverwriteTypeMember, Deny: Flags["VIEW_CHANNEL"]},
			},
		}

		plain := Channel(guild, channel, member("2"))
		assert.False(t, Has(plain, []string{"SEND_MESSAGES"}))
		assert.True(t, Has(plain, []string{"VIEW_CHANNEL"}))

		mod := Channel(guild, channel, member("1", "200000000000000002"))
		assert.True(t, Has(mod, []string{"SEND_MESSAGES"}))
		assert.False(t, Has(mod, []string{"VIEW_CHANNEL"}))
	})

	t.Run("role deny is aggregated before allow", func(t *testing.T) {
		channel := &discordgo.Channel{
			ID:      "5",
			GuildID: guildID,
			PermissionOverwrites: []*discordgo.PermissionOverwrite{
				{ID: "200000000000000002", Type: discordgo.PermissionOverwriteTypeRole, Deny: Flags["EMBED_LINKS"]},
				{ID: "300000000000000003", Type: discordgo.PermissionOverwriteTypeRole, Allow: Flags["EMBED_LINKS"]},
			},
		}
		bits := Channel(guild, channel, member("1", "200000000000000002", "300000000000000003"))
		assert.True(t, Has(bits, []string{"EMBED_LINKS"}))
	})

	t.Run("overwrites do not apply to administrators", func(t *testing.T) {
		guild := testGuild()
		guild.Roles = append(guild.Roles, &discordgo.Role{ID: "400000000000000004", Name: "admin", Permissions: Administrator})
		channel := &discordgo.Channel{
			ID:      "5",
			GuildID: guildID,
			PermissionOverwrites: []*discordgo.PermissionOverwrite{
				{ID: guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: Administrator | Flags["SEND_MESSAGES"]},
				{ID: "1", Type: discordgo.PermissionOverwriteTypeMember, Deny: Flags["VIEW_CHANNEL"]},
			},
		}

		bits := Channel(guild, channel, member("1", "400000000000000004"))
		assert.Equal(t, Administrator, bits)
		assert.True(t, Has(bits, []string{"SEND_MESSAGES", "VIEW_CHANNEL"}))

		owner := Channel(guild, channel, member("900000000000000009"))
		assert.True(t, Has(owner, []string{"SEND_MESSAGES"}))

		plain := Channel(guild, channel, member("2"))
		assert.False(t, Has(plain, []string{"SEND_MESSAGES"}))
	})
}

func TestMissing(t *testing.T) {
	t.Run("reports exactly the absent names", func(t *testing.T) {
		bits := Flags["SEND_MESSAGES"]
		assert.Equal(t, []string{"MANAGE_ROLES"}, Missing(bits, []string{"SEND_MESSAGES", "MANAGE_ROLES"}))
	})

	t.Run("administrator bypasses", func(t *testing.T) {
		assert.Empty(t, Missing(Administrator, []string{"MANAGE_ROLES", "BAN_MEMBERS"}))
	})

	t.Run("unknown names are missing", func(t *testing.T) {
		assert.Equal(t, []string{"FLY"}, Missing(Flags["SEND_MESSAGES"], []string{"FLY"}))
	})
}

func TestBitsAndNames(t *testing.T) {
	bits, err := Bits([]string{"MANAGE_ROLES", "KICK_MEMBERS"})
	require.NoError(t, err)
	assert.Equal(t, []string{"KICK_MEMBERS", "MANAGE_ROLES"}, Names(bits))

	_, err = Bits([]string{"NOT_A_PERMISSION"})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeUnknownPermission)
}
