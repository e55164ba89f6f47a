// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package platform

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/samber/oops"
)

// DefaultUserCacheSize bounds the number of users kept after a remote fetch.
const DefaultUserCacheSize = 1024

// session is the subset of *discordgo.Session used by Discord. It exists so
// tests can substitute a fake REST surface.
type session interface {
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	HeartbeatLatency() time.Duration
}

// Discord implements Client on top of a discordgo session. Lookups consult
// the gateway state cache first and fall back to REST; fetched guilds,
// channels and members are written back into the state.
type Discord struct {
	s      session
	state  *discordgo.State
	users  *lru.Cache[string, *discordgo.User]
	logger *slog.Logger
}

// Option configures a Discord client.
type Option func(*discordOptions)

type discordOptions struct {
	userCacheSize int
	logger        *slog.Logger
}

// WithUserCacheSize sets the capacity of the user LRU cache.
func WithUserCacheSize(n int) Option {
	return func(o *discordOptions) {
		o.userCacheSize = n
	}
}

// WithLogger sets the logger used for cache write-back failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *discordOptions) {
		o.logger = l
	}
}

// NewDiscord wraps a discordgo session.
func NewDiscord(s *discordgo.Session, opts ...Option) (*Discord, error) {
	if s == nil {
		return nil, oops.Errorf("discord session is nil")
	}
	if s.State == nil {
		s.State = discordgo.NewState()
	}
	return newDiscord(s, s.State, opts...)
}

func newDiscord(s session, state *discordgo.State, opts ...Option) (*Discord, error) {
	o := discordOptions{userCacheSize: DefaultUserCacheSize, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.userCacheSize <= 0 {
		o.userCacheSize = DefaultUserCacheSize
	}
	users, err := lru.New[string, *discordgo.User](o.userCacheSize)
	if err != nil {
		return nil, oops.With("size", o.userCacheSize).Wrapf(err, "create user cache")
	}
	return &Discord{s: s, state: state, users: users, logger: o.logger}, nil
}

// BotID implements Client.
func (d *Discord) BotID() string {
	d.state.RLock()
	defer d.state.RUnlock()
	if d.state.User == nil {
		return ""
	}
	return d.state.User.ID
}

// Latency implements Client.
func (d *Discord) Latency() time.Duration {
	return d.s.HeartbeatLatency()
}

// Guild implements Client.
func (d *Discord) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if g, err := d.state.Guild(guildID); err == nil {
		return g, nil
	}
	g, err := d.s.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, oops.Code(CodeFetchFailed).With("guild_id", guildID).Wrapf(err, "fetch guild")
	}
	if err := d.state.GuildAdd(g); err != nil {
		d.logger.Debug("guild cache write-back failed", "guild_id", guildID, "error", err)
	}
	return g, nil
}

// Channel implements Client.
func (d *Discord) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if c, err := d.state.Channel(channelID); err == nil {
		return c, nil
	}
	c, err := d.s.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, oops.Code(CodeFetchFailed).With("channel_id", channelID).Wrapf(err, "fetch channel")
	}
	if err := d.state.ChannelAdd(c); err != nil {
		d.logger.Debug("channel cache write-back failed", "channel_id", channelID, "error", err)
	}
	return c, nil
}

// GuildChannels implements Client.
func (d *Discord) GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	if g, err := d.state.Guild(guildID); err == nil && len(g.Channels) > 0 {
		d.state.RLock()
		defer d.state.RUnlock()
		out := make([]*discordgo.Channel, len(g.Channels))
		copy(out, g.Channels)
		return out, nil
	}
	chans, err := d.s.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, oops.Code(CodeFetchFailed).With("guild_id", guildID).Wrapf(err, "fetch guild channels")
	}
	return chans, nil
}

// Member implements Client.
func (d *Discord) Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if m, err := d.state.Member(guildID, userID); err == nil {
		return m, nil
	}
	m, err := d.s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, oops.Code(CodeFetchFailed).
			With("guild_id", guildID).
			With("user_id", userID).
			Wrapf(err, "fetch member")
	}
	m.GuildID = guildID
	if m.User == nil {
		return m, nil
	}
	if err := d.state.MemberAdd(m); err != nil {
		d.logger.Debug("member cache write-back failed", "guild_id", guildID, "user_id", userID, "error", err)
	}
	d.users.Add(m.User.ID, m.User)
	return m, nil
}

// User implements Client.
func (d *Discord) User(ctx context.Context, userID string) (*discordgo.User, error) {
	if u, ok := d.users.Get(userID); ok {
		return u, nil
	}
	u, err := d.s.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, oops.Code(CodeFetchFailed).With("user_id", userID).Wrapf(err, "fetch user")
	}
	d.users.Add(userID, u)
	return u, nil
}

// SendMessage implements Client.
func (d *Discord) SendMessage(ctx context.Context, channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
	m, err := d.s.ChannelMessageSendComplex(channelID, data, discordgo.WithContext(ctx))
	if err != nil {
		return nil, oops.Code(CodeSendFailed).With("channel_id", channelID).Wrapf(err, "send message")
	}
	return m, nil
}

// EditMessage implements Client.
func (d *Discord) EditMessage(ctx context.Context, data *discordgo.MessageEdit) (*discordgo.Message, error) {
	m, err := d.s.ChannelMessageEditComplex(data, discordgo.WithContext(ctx))
	if err != nil {
		return nil, oops.Code(CodeSendFailed).
			With("channel_id", data.Channel).
			With("message_id", data.ID).
			Wrapf(err, "edit message")
	}
	return m, nil
}

// DeleteMessage implements Client.
func (d *Discord) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := d.s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return oops.Code(CodeSendFailed).
			With("channel_id", channelID).
			With("message_id", messageID).
			Wrapf(err, "delete message")
	}
	return nil
}

// Typing implements Client.
func (d *Discord) Typing(ctx context.Context, channelID string) error {
	if err := d.s.ChannelTyping(channelID, discordgo.WithContext(ctx)); err != nil {
		return oops.Code(CodeSendFailed).With("channel_id", channelID).Wrapf(err, "trigger typing")
	}
	return nil
}

// RespondInteraction implements Client.
func (d *Discord) RespondInteraction(ctx context.Context, i *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	if err := d.s.InteractionRespond(i, resp, discordgo.WithContext(ctx)); err != nil {
		return oops.Code(CodeSendFailed).
			With("interaction_id", i.ID).
			With("response_type", int(resp.Type)).
			Wrapf(err, "respond to interaction")
	}
	return nil
}

// EditInteractionResponse implements Client.
func (d *Discord) EditInteractionResponse(ctx context.Context, i *discordgo.Interaction, edit *discordgo.WebhookEdit) (*discordgo.Message, error) {
	m, err := d.s.InteractionResponseEdit(i, edit, discordgo.WithContext(ctx))
	if err != nil {
		return nil, oops.Code(CodeSendFailed).With("interaction_id", i.ID).Wrapf(err, "edit interaction response")
	}
	return m, nil
}

// SendFollowup implements Client.
func (d *Discord) SendFollowup(ctx context.Context, i *discordgo.Interaction, params *discordgo.WebhookParams) (*discordgo.Message, error) {
	m, err := d.s.FollowupMessageCreate(i, true, params, discordgo.WithContext(ctx))
	if err != nil {
		return nil, oops.Code(CodeSendFailed).With("interaction_id", i.ID).Wrapf(err, "send followup")
	}
	return m, nil
}

// UpsertCommands implements Client.
func (d *Discord) UpsertCommands(ctx context.Context, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	appID := d.BotID()
	if appID == "" {
		return nil, oops.Code(CodeUpsert).Errorf("application id unknown before ready")
	}
	if cmds == nil {
		cmds = []*discordgo.ApplicationCommand{}
	}
	out, err := d.s.ApplicationCommandBulkOverwrite(appID, guildID, cmds, discordgo.WithContext(ctx))
	if err != nil {
		return nil, oops.Code(CodeUpsert).
			With("guild_id", guildID).
			With("count", len(cmds)).
			Wrapf(err, "bulk overwrite application commands")
	}
	return out, nil
}

var _ Client = (*Discord)(nil)
