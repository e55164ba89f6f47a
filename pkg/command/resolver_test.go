// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package command

import (
	"context"
	"log/slog"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolve(t *testing.T, arg Argument, tokens ...string) (any, int, bool) {
	t.Helper()
	res, ok := NewResolvers().Get(arg.Type)
	require.True(t, ok, "no resolver for %s", arg.Type)
	return res.Resolve(context.Background(), &ResolveRequest{
		Client:   newTestClient(t),
		Argument: arg,
		Tokens:   tokens,
		Message:  guildMessage(""),
		GuildID:  testGuildID,
		Bound:    newValues(),
	})
}

func TestSnowflake(t *testing.T) {
	tests := []struct {
		token string
		id    string
		ok    bool
	}{
		{authorID, authorID, true},
		{"<@" + authorID + ">", authorID, true},
		{"<@!" + authorID + ">", authorID, true},
		{"<@&" + modRoleID + ">", modRoleID, true},
		{"<#" + testChannelID + ">", testChannelID, true},
		{"12345", "", false},
		{"<@abc>", "", false},
	}
	for _, tt := range tests {
		id, ok := snowflake(tt.token)
		assert.Equal(t, tt.ok, ok, tt.token)
		assert.Equal(t, tt.id, id, tt.token)
	}
}

func TestResolveString(t *testing.T) {
	v, n, ok := resolve(t, Argument{Name: "s", Type: ArgString}, "hello", "world")
	require.True(t, ok)
	assert.Equal(t, "hello", v)
	assert.Equal(t, 1, n)

	_, _, ok = resolve(t, Argument{Name: "s", Type: ArgString})
	assert.False(t, ok, "no tokens")

	_, _, ok = resolve(t, Argument{Name: "s", Type: ArgString, Maximum: 3}, "hello")
	assert.False(t, ok, "too long")

	_, _, ok = resolve(t, Argument{Name: "s", Type: ArgString, Minimum: 6}, "hello")
	assert.False(t, ok, "too short")

	v, _, ok = resolve(t, Argument{Name: "s", Type: ArgString, Literals: []string{"Red", "Blue"}}, "rEd")
	require.True(t, ok)
	assert.Equal(t, "Red", v, "literal is canonicalised")

	_, _, ok = resolve(t, Argument{Name: "s", Type: ArgString, Literals: []string{"Red"}}, "green")
	assert.False(t, ok)

	v, _, ok = resolve(t, Argument{Name: "s", Type: ArgString, Lowercase: true}, "LOUD")
	require.True(t, ok)
	assert.Equal(t, "loud", v)
}

func TestResolveStrings(t *testing.T) {
	v, n, ok := resolve(t, Argument{Name: "rest", Type: ArgStrings, Lowercase: true}, "A", "b", "C")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, v)
	assert.Equal(t, 3, n)
}

func TestResolveNumbers(t *testing.T) {
	tests := []struct {
		name   string
		arg    Argument
		token  string
		want   any
		wantOK bool
	}{
		{"floors by default", Argument{Type: ArgNumber}, "3.7", 3.0, true},
		{"decimals kept", Argument{Type: ArgNumber, AllowDecimals: true}, "3.7", 3.7, true},
		{"zero is valid", Argument{Type: ArgNumber}, "0", 0.0, true},
		{"below minimum", Argument{Type: ArgNumber, Minimum: 5}, "4", nil, false},
		{"above maximum", Argument{Type: ArgNumber, Maximum: 10}, "11", nil, false},
		{"negative below default minimum", Argument{Type: ArgNumber}, "-1", nil, false},
		{"not a number", Argument{Type: ArgNumber}, "abc", nil, false},
		{"nan", Argument{Type: ArgNumber}, "NaN", nil, false},
		{"integer", Argument{Type: ArgInteger}, "42", int64(42), true},
		{"integer rejects decimals", Argument{Type: ArgInteger}, "4.2", nil, false},
		{"integer bounds", Argument{Type: ArgInteger, Maximum: 10}, "42", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.arg.Name = "n"
			v, _, ok := resolve(t, tt.arg, tt.token)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, v)
			}
		})
	}
}

func TestResolveBoolean(t *testing.T) {
	for _, token := range []string{"true", "YES", "on", "1"} {
		v, _, ok := resolve(t, Argument{Name: "b", Type: ArgBoolean}, token)
		require.True(t, ok, token)
		assert.Equal(t, true, v, token)
	}
	for _, token := range []string{"false", "No", "off", "0"} {
		v, _, ok := resolve(t, Argument{Name: "b", Type: ArgBoolean}, token)
		require.True(t, ok, token)
		assert.Equal(t, false, v, token)
	}
	_, _, ok := resolve(t, Argument{Name: "b", Type: ArgBoolean}, "maybe")
	assert.False(t, ok)
}

func TestResolveMemberAndUser(t *testing.T) {
	for _, token := range []string{otherUserID, "<@" + otherUserID + ">", "<@!" + otherUserID + ">", "onyx", "Onyx Stone", "ROCKY"} {
		v, n, ok := resolve(t, Argument{Name: "who", Type: ArgMember}, token)
		require.True(t, ok, token)
		assert.Equal(t, 1, n)
		assert.Equal(t, otherUserID, v.(*discordgo.Member).User.ID, token)

		u, _, ok := resolve(t, Argument{Name: "who", Type: ArgUser}, token)
		require.True(t, ok, token)
		assert.Equal(t, otherUserID, u.(*discordgo.User).ID, token)
	}

	_, _, ok := resolve(t, Argument{Name: "who", Type: ArgMember}, "nobody")
	assert.False(t, ok)
	_, _, ok = resolve(t, Argument{Name: "who", Type: ArgMember}, "399999999999999999")
	assert.False(t, ok)
}

func TestResolveRoles(t *testing.T) {
	v, _, ok := resolve(t, Argument{Name: "r", Type: ArgRole}, "<@&"+modRoleID+">")
	require.True(t, ok)
	assert.Equal(t, "Moderators", v.(*discordgo.Role).Name)

	v, _, ok = resolve(t, Argument{Name: "r", Type: ArgRole}, "admin")
	require.True(t, ok)
	assert.Equal(t, adminRoleID, v.(*discordgo.Role).ID)

	roles, n, ok := resolve(t, Argument{Name: "rs", Type: ArgRoles}, "admin", "bogus", modRoleID, "Admin")
	require.True(t, ok)
	assert.Equal(t, 4, n)
	assert.Len(t, roles, 2, "unknown dropped and duplicates collapsed")

	_, _, ok = resolve(t, Argument{Name: "rs", Type: ArgRoles}, "bogus")
	assert.False(t, ok)
}

func TestResolveChannels(t *testing.T) {
	tests := []struct {
		name   string
		typ    ArgumentType
		token  string
		wantID string
	}{
		{"any by mention", ArgChannel, "<#" + voiceID + ">", voiceID},
		{"text by name", ArgTextChannel, "#general", testChannelID},
		{"guild text by id", ArgGuildTextChannel, nsfwChannelID, nsfwChannelID},
		{"voice by name", ArgVoiceChannel, "lounge", voiceID},
		{"voice rejects text", ArgVoiceChannel, "general", ""},
		{"text rejects voice", ArgTextChannel, "<#" + voiceID + ">", ""},
		{"category none", ArgCategoryChannel, "general", ""},
		{"unknown", ArgChannel, "#nowhere", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _, ok := resolve(t, Argument{Name: "c", Type: tt.typ}, tt.token)
			if tt.wantID == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantID, v.(*discordgo.Channel).ID)
		})
	}
}

func TestResolveMentionable(t *testing.T) {
	v, _, ok := resolve(t, Argument{Name: "m", Type: ArgMentionable}, "<@&"+adminRoleID+">")
	require.True(t, ok)
	assert.Equal(t, adminRoleID, v.(*Mentionable).Role.ID)

	v, _, ok = resolve(t, Argument{Name: "m", Type: ArgMentionable}, "<@"+authorID+">")
	require.True(t, ok)
	m := v.(*Mentionable)
	assert.Equal(t, authorID, m.User.ID)
	assert.NotNil(t, m.Member)
}

func TestResolveAttachment(t *testing.T) {
	client := newTestClient(t)
	msg := guildMessage("")
	msg.Attachments = []*discordgo.MessageAttachment{{ID: "a1"}, {ID: "a2"}}

	res, _ := NewResolvers().Get(ArgAttachment)
	bound := newValues()

	v, n, ok := res.Resolve(context.Background(), &ResolveRequest{Client: client, Message: msg, Bound: bound})
	require.True(t, ok)
	assert.Zero(t, n)
	assert.Equal(t, "a1", v.(*discordgo.MessageAttachment).ID)

	bound.set("first", v)
	v, _, ok = res.Resolve(context.Background(), &ResolveRequest{Client: client, Message: msg, Bound: bound})
	require.True(t, ok)
	assert.Equal(t, "a2", v.(*discordgo.MessageAttachment).ID)
}

func TestResolvers_RegisterCustom(t *testing.T) {
	r := NewResolvers()
	r.Register(Resolver{Type: "color", Resolve: func(_ context.Context, req *ResolveRequest) (any, int, bool) {
		if len(req.Tokens) == 0 || req.Tokens[0][0] != '#' {
			return nil, 0, false
		}
		return req.Tokens[0], 1, true
	}})

	res, ok := r.Get("color")
	require.True(t, ok)
	v, _, ok := res.Resolve(context.Background(), &ResolveRequest{Tokens: []string{"#9966cc"}})
	require.True(t, ok)
	assert.Equal(t, "#9966cc", v)
}

func newBindContext(t *testing.T, cmd *Command, msg *discordgo.Message) *Context {
	t.Helper()
	c := newContext(newTestClient(t), slog.Default(), DefaultPrivateTTL)
	c.Command = cmd
	c.Message = msg
	c.GuildID = msg.GuildID
	return c
}

func TestBindMessage(t *testing.T) {
	cmd := mustCommand(t, Options{Name: "give", Arguments: []Argument{
		{Name: "who", Type: ArgMember},
		{Name: "amount", Type: ArgInteger, Default: int64(1)},
		{Name: "note", Type: ArgString, Optional: true},
		{Name: "tags", Type: ArgStrings, Optional: true},
	}})

	t.Run("all bound", func(t *testing.T) {
		c := newBindContext(t, cmd, guildMessage(""))
		missing := bindMessage(context.Background(), NewResolvers(), c, []string{"onyx", "5", "thanks", "a", "b"})
		require.Nil(t, missing)
		assert.Equal(t, otherUserID, c.Args.GetMember("who").User.ID)
		assert.Equal(t, int64(5), c.Args.GetInteger("amount"))
		assert.Equal(t, "thanks", c.Args.GetString("note"))
		assert.Equal(t, []string{"a", "b"}, c.Args.GetStrings("tags"))
	})

	t.Run("default does not consume the token", func(t *testing.T) {
		c := newBindContext(t, cmd, guildMessage(""))
		missing := bindMessage(context.Background(), NewResolvers(), c, []string{"onyx", "thanks"})
		require.Nil(t, missing)
		assert.Equal(t, int64(1), c.Args.GetInteger("amount"))
		assert.Equal(t, "thanks", c.Args.GetString("note"))
		assert.False(t, c.Args.Has("tags"))
	})

	t.Run("required missing", func(t *testing.T) {
		c := newBindContext(t, cmd, guildMessage(""))
		missing := bindMessage(context.Background(), NewResolvers(), c, []string{"nobody"})
		require.NotNil(t, missing)
		assert.Equal(t, "who", missing.Name)
	})
}

func TestBindMessage_UnknownTypeFallsBack(t *testing.T) {
	cmd := mustCommand(t, Options{Name: "paint", Arguments: []Argument{
		{Name: "color", Type: "color", Default: "#000000"},
	}})
	c := newBindContext(t, cmd, guildMessage(""))
	require.Nil(t, bindMessage(context.Background(), NewResolvers(), c, []string{"#fff"}))
	assert.Equal(t, "#000000", c.Args.GetString("color"))
}

func TestBindInteraction(t *testing.T) {
	cmd := mustCommand(t, Options{Name: "give", Arguments: []Argument{
		{Name: "who", Type: ArgMember},
		{Name: "amount", Type: ArgInteger, Default: int64(1)},
		{Name: "role", Type: ArgRole, Optional: true},
		{Name: "tags", Type: ArgStrings, Optional: true},
	}})

	resolved := &discordgo.ApplicationCommandInteractionDataResolved{
		Users:   map[string]*discordgo.User{otherUserID: {ID: otherUserID, Username: "onyx"}},
		Members: map[string]*discordgo.Member{otherUserID: {Nick: "rocky"}},
		Roles:   map[string]*discordgo.Role{modRoleID: {ID: modRoleID, Name: "Moderators"}},
	}
	opts := []*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "who", Type: discordgo.ApplicationCommandOptionUser, Value: otherUserID},
		{Name: "amount", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(7)},
		{Name: "role", Type: discordgo.ApplicationCommandOptionRole, Value: modRoleID},
		{Name: "tags", Type: discordgo.ApplicationCommandOptionString, Value: `one "two three"`},
	}

	c := newBindContext(t, cmd, guildMessage(""))
	c.Message = nil
	require.Nil(t, bindInteraction(context.Background(), NewResolvers(), c, opts, resolved))

	member := c.Args.GetMember("who")
	require.NotNil(t, member)
	assert.Equal(t, "onyx", member.User.Username)
	assert.Equal(t, testGuildID, member.GuildID)
	assert.Equal(t, int64(7), c.Args.GetInteger("amount"))
	assert.Equal(t, "Moderators", c.Args.GetRole("role").Name)
	assert.Equal(t, []string{"one", "two three"}, c.Args.GetStrings("tags"))

	c = newBindContext(t, cmd, guildMessage(""))
	missing := bindInteraction(context.Background(), NewResolvers(), c, nil, nil)
	require.NotNil(t, missing)
	assert.Equal(t, "who", missing.Name)
}
