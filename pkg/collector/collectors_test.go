// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package collector

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	memberID  = "310000000000000001"
	channelID = "210000000000000001"
	messageID = "510000000000000001"
)

func TestCollectors_AwaitMessages(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := New()
	out := make(chan []*discordgo.Message, 1)
	go func() {
		msgs, err := c.AwaitMessages(context.Background(), memberID, channelID, Options[*discordgo.Message]{Timeout: time.Second})
		assert.NoError(t, err)
		out <- msgs
	}()
	require.Eventually(t, func() bool { return c.Messages.Pending() == 1 }, time.Second, time.Millisecond)

	assert.False(t, c.Messages.Publish(&discordgo.Message{ChannelID: channelID, Author: &discordgo.User{ID: "someone-else"}}))
	assert.False(t, c.Messages.Publish(&discordgo.Message{ChannelID: channelID}), "messages without an author are ignored")
	assert.True(t, c.Messages.Publish(&discordgo.Message{ID: "m1", ChannelID: channelID, Author: &discordgo.User{ID: memberID}, Content: "yes"}))

	msgs := <-out
	require.Len(t, msgs, 1)
	assert.Equal(t, "yes", msgs[0].Content)
}

func TestCollectors_AwaitReactions(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := New()
	out := make(chan []Reaction, 1)
	go func() {
		rs, err := c.AwaitReactions(context.Background(), messageID, Options[Reaction]{
			Max:     2,
			Timeout: time.Second,
			Filter:  func(r Reaction) bool { return r.UserID == memberID },
		})
		assert.NoError(t, err)
		out <- rs
	}()
	require.Eventually(t, func() bool { return c.Reactions.Pending() == 1 }, time.Second, time.Millisecond)

	add := func(user, emoji string) bool {
		return c.Reactions.Publish(ReactionFromEvent(&discordgo.MessageReaction{
			UserID: user, MessageID: messageID, ChannelID: channelID, Emoji: discordgo.Emoji{Name: emoji},
		}))
	}
	assert.True(t, add(memberID, "👍"))
	assert.False(t, add("other", "👎"))
	assert.True(t, add(memberID, "🎉"))

	rs := <-out
	require.Len(t, rs, 2)
	assert.Equal(t, "👍", rs[0].Emoji.Name)
	assert.Equal(t, channelID, rs[1].ChannelID)
}

func componentInteraction(kind discordgo.ComponentType, customID string) *discordgo.Interaction {
	return &discordgo.Interaction{
		Type:    discordgo.InteractionMessageComponent,
		Message: &discordgo.Message{ID: messageID},
		Data:    discordgo.MessageComponentInteractionData{CustomID: customID, ComponentType: kind},
	}
}

func TestCollectors_AwaitComponentsByType(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := New()
	out := make(chan []*discordgo.Interaction, 1)
	go func() {
		is, err := c.AwaitComponents(context.Background(), messageID, ComponentOptions{
			Options: Options[*discordgo.Interaction]{Timeout: time.Second},
			Type:    discordgo.ButtonComponent,
		})
		assert.NoError(t, err)
		out <- is
	}()
	require.Eventually(t, func() bool { return c.Components.Pending() == 1 }, time.Second, time.Millisecond)

	assert.False(t, c.Components.Publish(componentInteraction(discordgo.SelectMenuComponent, "menu")))
	assert.False(t, c.Components.Publish(&discordgo.Interaction{Type: discordgo.InteractionApplicationCommand, Message: &discordgo.Message{ID: messageID}}))
	assert.True(t, c.Components.Publish(componentInteraction(discordgo.ButtonComponent, "confirm")))

	is := <-out
	require.Len(t, is, 1)
	assert.Equal(t, "confirm", is[0].MessageComponentData().CustomID)
}

func TestComponentType_ModalSubmit(t *testing.T) {
	i := &discordgo.Interaction{Type: discordgo.InteractionModalSubmit, Message: &discordgo.Message{ID: messageID}}
	assert.Equal(t, discordgo.TextInputComponent, componentType(i))
	assert.Equal(t, messageID, componentKeyOf(i))
	assert.Empty(t, componentKeyOf(&discordgo.Interaction{Type: discordgo.InteractionMessageComponent}))
}
