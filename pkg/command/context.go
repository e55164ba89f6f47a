// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package command

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/amethyst-dev/amethyst/pkg/platform"
)

// DefaultPrivateTTL is how long a private message reply stays visible.
// Message replies cannot be ephemeral, so they are deleted instead.
const DefaultPrivateTTL = 5 * time.Second

// Content is a reply payload.
type Content struct {
	Content    string
	Embeds     []*discordgo.MessageEmbed
	Components []discordgo.MessageComponent
	Files      []*discordgo.File
	// Private makes interaction replies ephemeral and deletes message
	// replies after a short delay.
	Private bool
}

// Context is the per-invocation object passed to handlers, inhibitors and
// argument callbacks. It is created by the Dispatcher and must not be
// retained after the handler returns.
type Context struct {
	// ID correlates log lines and spans of one invocation.
	ID ulid.ULID

	Client  platform.Client
	Command *Command
	Kind    Kind

	// Exactly one of Message and Interaction is set.
	Message     *discordgo.Message
	Interaction *discordgo.Interaction

	GuildID   string
	ChannelID string
	AuthorID  string

	// Populated before inhibitors run. Guild and Member are nil outside
	// guilds.
	Guild   *discordgo.Guild
	Channel *discordgo.Channel
	Member  *discordgo.Member
	User    *discordgo.User

	// Prefix and Invoked are set for message invocations: the matched prefix
	// and the name or alias used.
	Prefix  string
	Invoked string

	Args   *Values
	Logger *slog.Logger

	privateTTL time.Duration

	mu       sync.Mutex
	replied  bool
	deferred bool
	reply    *discordgo.Message
}

func newContext(client platform.Client, logger *slog.Logger, ttl time.Duration) *Context {
	id := ulid.Make()
	return &Context{
		ID:         id,
		Client:     client,
		Args:       newValues(),
		Logger:     logger.With("invocation_id", id.String()),
		privateTTL: ttl,
	}
}

// InGuild reports whether the invocation happened in a guild.
func (c *Context) InGuild() bool {
	return c.GuildID != ""
}

// Replied reports whether an initial reply or deferral has been sent.
func (c *Context) Replied() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replied || c.deferred
}

// Reply answers the invocation. Message invocations get a message quoting
// the original; interactions get their initial response, or a followup once
// one was sent, or an edit of the deferred response. The returned message is
// nil, with a nil error, when Reply sent an initial interaction response.
func (c *Context) Reply(ctx context.Context, content Content) (*discordgo.Message, error) {
	if c.Interaction != nil {
		return c.Respond(ctx, content)
	}

	msg, err := c.Client.SendMessage(ctx, c.ChannelID, &discordgo.MessageSend{
		Content:    content.Content,
		Embeds:     content.Embeds,
		Components: content.Components,
		Files:      content.Files,
		Reference: &discordgo.MessageReference{
			MessageID: c.Message.ID,
			ChannelID: c.ChannelID,
			GuildID:   c.GuildID,
		},
	})
	if err != nil {
		return nil, err
	}
	c.remember(msg)
	if content.Private {
		c.expire(msg)
	}
	return msg, nil
}

// Respond sends the interaction response. For message invocations it sends
// a plain channel message. The platform does not return the message for an
// initial interaction response, so Respond returns nil with a nil error in
// that case; followups and deferred edits return the message.
func (c *Context) Respond(ctx context.Context, content Content) (*discordgo.Message, error) {
	if c.Interaction == nil {
		return c.FollowUp(ctx, content)
	}

	c.mu.Lock()
	replied, deferred := c.replied, c.deferred
	c.mu.Unlock()

	switch {
	case replied:
		return c.FollowUp(ctx, content)
	case deferred:
		msg, err := c.EditReply(ctx, content)
		if err == nil {
			c.markReplied()
		}
		return msg, err
	}

	err := c.Client.RespondInteraction(ctx, c.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    content.Content,
			Embeds:     content.Embeds,
			Components: content.Components,
			Files:      content.Files,
			Flags:      flags(content.Private),
		},
	})
	if err != nil {
		return nil, err
	}
	c.markReplied()
	return nil, nil
}

// Defer acknowledges the invocation without content. Interactions get a
// deferred response; message invocations trigger the typing indicator.
func (c *Context) Defer(ctx context.Context, private bool) error {
	if c.Interaction == nil {
		return c.Client.Typing(ctx, c.ChannelID)
	}

	c.mu.Lock()
	if c.replied || c.deferred {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	err := c.Client.RespondInteraction(ctx, c.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags(private)},
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.deferred = true
	c.mu.Unlock()
	return nil
}

// EditReply edits the first reply: the original interaction response, or
// the first message sent by Reply.
func (c *Context) EditReply(ctx context.Context, content Content) (*discordgo.Message, error) {
	if c.Interaction != nil {
		return c.Client.EditInteractionResponse(ctx, c.Interaction, &discordgo.WebhookEdit{
			Content:    &content.Content,
			Embeds:     &content.Embeds,
			Components: &content.Components,
			Files:      content.Files,
		})
	}

	c.mu.Lock()
	first := c.reply
	c.mu.Unlock()
	if first == nil {
		return nil, oops.With("command", c.Command.FullName()).Errorf("no reply to edit")
	}
	return c.Client.EditMessage(ctx, &discordgo.MessageEdit{
		ID:         first.ID,
		Channel:    first.ChannelID,
		Content:    &content.Content,
		Embeds:     &content.Embeds,
		Components: &content.Components,
		Files:      content.Files,
	})
}

// FollowUp sends an additional message: an interaction followup, or a plain
// message in the invocation channel.
func (c *Context) FollowUp(ctx context.Context, content Content) (*discordgo.Message, error) {
	if c.Interaction != nil {
		return c.Client.SendFollowup(ctx, c.Interaction, &discordgo.WebhookParams{
			Content:    content.Content,
			Embeds:     content.Embeds,
			Components: content.Components,
			Files:      content.Files,
			Flags:      flags(content.Private),
		})
	}

	msg, err := c.Client.SendMessage(ctx, c.ChannelID, &discordgo.MessageSend{
		Content:    content.Content,
		Embeds:     content.Embeds,
		Components: content.Components,
		Files:      content.Files,
	})
	if err != nil {
		return nil, err
	}
	c.remember(msg)
	if content.Private {
		c.expire(msg)
	}
	return msg, nil
}

func (c *Context) markReplied() {
	c.mu.Lock()
	c.replied = true
	c.mu.Unlock()
}

func (c *Context) remember(msg *discordgo.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replied = true
	if c.reply == nil {
		c.reply = msg
	}
}

// expire deletes msg after the private TTL. The deletion outlives the
// invocation, so it does not use the handler's context.
func (c *Context) expire(msg *discordgo.Message) {
	client, logger := c.Client, c.Logger
	time.AfterFunc(c.privateTTL, func() {
		if err := client.DeleteMessage(context.Background(), msg.ChannelID, msg.ID); err != nil {
			logger.Debug("private reply cleanup failed", "message_id", msg.ID, "error", err)
		}
	})
}

func flags(private bool) discordgo.MessageFlags {
	if private {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}
