// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

// Package platformtest provides an in-memory platform.Client for tests.
package platformtest

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/oops"

	"github.com/amethyst-dev/amethyst/pkg/platform"
)

// Response records one interaction response.
type Response struct {
	Interaction *discordgo.Interaction
	Response    *discordgo.InteractionResponse
}

// Followup records one followup message.
type Followup struct {
	Interaction *discordgo.Interaction
	Params      *discordgo.WebhookParams
}

// Sent records one channel message.
type Sent struct {
	ChannelID string
	Data      *discordgo.MessageSend
}

// Client is a thread-safe fake platform.Client. Entities are seeded with the
// Add* methods; every outbound call is recorded for assertions.
type Client struct {
	mu sync.Mutex

	botID   string
	latency time.Duration

	guilds   map[string]*discordgo.Guild
	channels map[string]*discordgo.Channel
	members  map[string]*discordgo.Member
	users    map[string]*discordgo.User

	// FetchErr, when set, is returned by every lookup.
	FetchErr error

	sent       []Sent
	edits      []*discordgo.MessageEdit
	deletes    []string
	typing     []string
	responses  []Response
	respEdits  []*discordgo.WebhookEdit
	followups  []Followup
	upserts    map[string][][]*discordgo.ApplicationCommand
	fetchCount int
	nextID     int
}

// New returns an empty fake client whose bot user has the given id.
func New(botID string) *Client {
	return &Client{
		botID:    botID,
		latency:  25 * time.Millisecond,
		guilds:   map[string]*discordgo.Guild{},
		channels: map[string]*discordgo.Channel{},
		members:  map[string]*discordgo.Member{},
		users:    map[string]*discordgo.User{},
		upserts:  map[string][][]*discordgo.ApplicationCommand{},
	}
}

// AddGuild seeds a guild. Its channels and members are indexed too.
func (c *Client) AddGuild(g *discordgo.Guild) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guilds[g.ID] = g
	for _, ch := range g.Channels {
		c.channels[ch.ID] = ch
	}
	for _, m := range g.Members {
		m.GuildID = g.ID
		c.members[g.ID+"/"+m.User.ID] = m
		c.users[m.User.ID] = m.User
	}
}

// AddChannel seeds a channel.
func (c *Client) AddChannel(ch *discordgo.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[ch.ID] = ch
	if g, ok := c.guilds[ch.GuildID]; ok {
		g.Channels = append(g.Channels, ch)
	}
}

// AddMember seeds a guild member.
func (c *Client) AddMember(guildID string, m *discordgo.Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m.GuildID = guildID
	c.members[guildID+"/"+m.User.ID] = m
	c.users[m.User.ID] = m.User
	if g, ok := c.guilds[guildID]; ok {
		g.Members = append(g.Members, m)
	}
}

// AddUser seeds a user.
func (c *Client) AddUser(u *discordgo.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[u.ID] = u
}

// BotID implements platform.Client.
func (c *Client) BotID() string { return c.botID }

// Latency implements platform.Client.
func (c *Client) Latency() time.Duration { return c.latency }

func (c *Client) lookup(kind, id string) error {
	c.fetchCount++
	if c.FetchErr != nil {
		return c.FetchErr
	}
	return oops.Code(platform.CodeFetchFailed).With(kind, id).Errorf("unknown %s %s", kind, id)
}

// Guild implements platform.Client.
func (c *Client) Guild(_ context.Context, guildID string) (*discordgo.Guild, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.guilds[guildID]; ok && c.FetchErr == nil {
		return g, nil
	}
	return nil, c.lookup("guild_id", guildID)
}

// Channel implements platform.Client.
func (c *Client) Channel(_ context.Context, channelID string) (*discordgo.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.channels[channelID]; ok && c.FetchErr == nil {
		return ch, nil
	}
	return nil, c.lookup("channel_id", channelID)
}

// GuildChannels implements platform.Client.
func (c *Client) GuildChannels(_ context.Context, guildID string) ([]*discordgo.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FetchErr != nil {
		return nil, c.FetchErr
	}
	var out []*discordgo.Channel
	for _, ch := range c.channels {
		if ch.GuildID == guildID {
			out = append(out, ch)
		}
	}
	return out, nil
}

// Member implements platform.Client.
func (c *Client) Member(_ context.Context, guildID, userID string) (*discordgo.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.members[guildID+"/"+userID]; ok && c.FetchErr == nil {
		return m, nil
	}
	return nil, c.lookup("user_id", userID)
}

// User implements platform.Client.
func (c *Client) User(_ context.Context, userID string) (*discordgo.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u, ok := c.users[userID]; ok && c.FetchErr == nil {
		return u, nil
	}
	return nil, c.lookup("user_id", userID)
}

func (c *Client) id() string {
	c.nextID++
	return strconv.Itoa(900000 + c.nextID)
}

// SendMessage implements platform.Client.
func (c *Client) SendMessage(_ context.Context, channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, Sent{ChannelID: channelID, Data: data})
	return &discordgo.Message{ID: c.id(), ChannelID: channelID, Content: data.Content}, nil
}

// EditMessage implements platform.Client.
func (c *Client) EditMessage(_ context.Context, data *discordgo.MessageEdit) (*discordgo.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edits = append(c.edits, data)
	msg := &discordgo.Message{ID: data.ID, ChannelID: data.Channel}
	if data.Content != nil {
		msg.Content = *data.Content
	}
	return msg, nil
}

// DeleteMessage implements platform.Client.
func (c *Client) DeleteMessage(_ context.Context, channelID, messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes = append(c.deletes, fmt.Sprintf("%s/%s", channelID, messageID))
	return nil
}

// Typing implements platform.Client.
func (c *Client) Typing(_ context.Context, channelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.typing = append(c.typing, channelID)
	return nil
}

// RespondInteraction implements platform.Client.
func (c *Client) RespondInteraction(_ context.Context, i *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, Response{Interaction: i, Response: resp})
	return nil
}

// EditInteractionResponse implements platform.Client.
func (c *Client) EditInteractionResponse(_ context.Context, _ *discordgo.Interaction, edit *discordgo.WebhookEdit) (*discordgo.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.respEdits = append(c.respEdits, edit)
	msg := &discordgo.Message{ID: "@original"}
	if edit.Content != nil {
		msg.Content = *edit.Content
	}
	return msg, nil
}

// SendFollowup implements platform.Client.
func (c *Client) SendFollowup(_ context.Context, i *discordgo.Interaction, params *discordgo.WebhookParams) (*discordgo.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.followups = append(c.followups, Followup{Interaction: i, Params: params})
	return &discordgo.Message{ID: c.id(), ChannelID: i.ChannelID, Content: params.Content}, nil
}

// UpsertCommands implements platform.Client.
func (c *Client) UpsertCommands(_ context.Context, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upserts[guildID] = append(c.upserts[guildID], cmds)
	return cmds, nil
}

// Sent returns the recorded channel messages.
func (c *Client) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// Edits returns the recorded message edits.
func (c *Client) Edits() []*discordgo.MessageEdit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*discordgo.MessageEdit(nil), c.edits...)
}

// Deletes returns the recorded deletions as "channel/message".
func (c *Client) Deletes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.deletes...)
}

// TypingIn returns the channels typing was triggered in.
func (c *Client) TypingIn() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.typing...)
}

// Responses returns the recorded interaction responses.
func (c *Client) Responses() []Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Response(nil), c.responses...)
}

// ResponseEdits returns the recorded original-response edits.
func (c *Client) ResponseEdits() []*discordgo.WebhookEdit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*discordgo.WebhookEdit(nil), c.respEdits...)
}

// Followups returns the recorded followup messages.
func (c *Client) Followups() []Followup {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Followup(nil), c.followups...)
}

// Upserts returns every bulk overwrite issued for guildID ("" for global).
func (c *Client) Upserts(guildID string) [][]*discordgo.ApplicationCommand {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]*discordgo.ApplicationCommand(nil), c.upserts[guildID]...)
}

// UpsertTargets returns the guild ids that received at least one overwrite.
func (c *Client) UpsertTargets() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.upserts))
	for id := range c.upserts {
		out = append(out, id)
	}
	return out
}

// FetchCount returns how many lookups missed the seeded entities.
func (c *Client) FetchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchCount
}

var _ platform.Client = (*Client)(nil)
