// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package command_test

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/amethyst-dev/amethyst/pkg/command"
	"github.com/amethyst-dev/amethyst/pkg/errutil"
	"github.com/amethyst-dev/amethyst/pkg/platform/platformtest"
)

// errorSink collects the errors delivered to CommandError.
type errorSink struct {
	mu   sync.Mutex
	errs []*command.Error
}

func (s *errorSink) events() *command.Events {
	return &command.Events{
		CommandError: func(_ context.Context, _ *command.Context, err *command.Error) {
			s.mu.Lock()
			s.errs = append(s.errs, err)
			s.mu.Unlock()
		},
	}
}

func (s *errorSink) all() []*command.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*command.Error(nil), s.errs...)
}

func mustNew(opts command.Options) *command.Command {
	GinkgoHelper()
	cmd, err := command.New(opts)
	Expect(err).NotTo(HaveOccurred())
	return cmd
}

func mustSub(opts command.Options) *command.Command {
	GinkgoHelper()
	cmd, err := command.NewSubcommand(opts)
	Expect(err).NotTo(HaveOccurred())
	return cmd
}

var _ = Describe("Cooldown monotonicity", func() {
	var (
		now     time.Time
		mu      sync.Mutex
		tracker *command.CooldownTracker
		cmd     *command.Command
	)

	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	BeforeEach(func() {
		now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		tracker = command.NewCooldownTracker(command.CooldownConfig{Now: clock})
		DeferCleanup(tracker.Close)
		cmd = mustNew(command.Options{Name: "roll", Cooldown: &command.Cooldown{Duration: 10 * time.Second, AllowedUses: 3}})
	})

	It("allows N uses in the window and denies the next until the Nth use expires", func() {
		var lastUse time.Time
		for range 3 {
			Expect(tracker.Check(memberID, cmd)).To(BeNil())
			lastUse = clock()
			advance(time.Second)
		}

		denied := tracker.Check(memberID, cmd)
		Expect(denied).NotTo(BeNil())
		Expect(denied.Kind).To(Equal(command.KindCooldown))
		Expect(denied.Cooldown.ExpiresAt).To(Equal(lastUse.Add(10 * time.Second)))

		advance(10 * time.Second)
		Expect(tracker.Check(memberID, cmd)).To(BeNil())
		Expect(tracker.Check(memberID, cmd)).To(BeNil())
		Expect(tracker.Check(memberID, cmd)).To(BeNil())
		Expect(tracker.Check(memberID, cmd)).NotTo(BeNil(), "the counter restarted at one")
	})
})

var _ = Describe("Inhibitor short-circuit", func() {
	It("never calls later inhibitors or the handler after a denial", func() {
		client := newClient()
		reg := command.NewRegistry()
		ran := false
		Expect(reg.Register(mustNew(command.Options{
			Name:    "guarded",
			Execute: func(context.Context, *command.Context) error { ran = true; return nil },
		}))).To(Succeed())

		second := 0
		chain := command.NewInhibitorChain()
		chain.Add("deny", func(context.Context, *command.Command, *command.Context) command.Result {
			return command.Deny(&command.Error{Kind: command.KindOwnerOnly})
		})
		chain.Add("count", func(context.Context, *command.Command, *command.Context) command.Result {
			second++
			return command.Allow()
		})

		sink := &errorSink{}
		d, err := command.NewDispatcher(client, reg, command.WithPrefix("!"), command.WithInhibitors(chain), command.WithEvents(sink.events()))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(d.Close)

		Expect(d.HandleMessage(context.Background(), message(memberID, "!guarded"))).To(Succeed())
		Expect(second).To(BeZero())
		Expect(ran).To(BeFalse())
		Expect(sink.all()).To(HaveLen(1))
		Expect(sink.all()[0].Inhibitor).To(Equal("deny"))
	})
})

var _ = Describe("Argument fallback chain", func() {
	var (
		client *platformtest.Client
		reg    *command.Registry
		sink   *errorSink
		d      *command.Dispatcher
	)

	BeforeEach(func() {
		client = newClient()
		reg = command.NewRegistry()
		sink = &errorSink{}
		var err error
		d, err = command.NewDispatcher(client, reg, command.WithPrefix("!"), command.WithEvents(sink.events()))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(d.Close)
	})

	It("calls the missing callback instead of the error event", func() {
		var missingFor string
		Expect(reg.Register(mustNew(command.Options{
			Name: "say",
			Arguments: []command.Argument{{
				Name: "text",
				Missing: func(_ context.Context, c *command.Context) {
					missingFor = c.Command.Name
				},
			}},
		}))).To(Succeed())

		Expect(d.HandleMessage(context.Background(), message(memberID, "!say"))).To(Succeed())
		Expect(missingFor).To(Equal("say"))
		Expect(sink.all()).To(BeEmpty())
	})

	It("reports MISSING_REQUIRED_ARGUMENTS naming the argument without a callback", func() {
		Expect(reg.Register(mustNew(command.Options{
			Name:      "say",
			Arguments: []command.Argument{{Name: "text"}},
		}))).To(Succeed())

		Expect(d.HandleMessage(context.Background(), message(memberID, "!say"))).To(Succeed())
		Expect(sink.all()).To(HaveLen(1))
		Expect(sink.all()[0].Kind).To(Equal(command.KindMissingRequiredArguments))
		Expect(sink.all()[0].Argument).To(Equal("text"))
	})
})

var _ = Describe("Subcommand path resolution", func() {
	It("resolves text and interaction invocations to the same leaf", func() {
		client := newClient()
		reg := command.NewRegistry()

		var leaves []string
		var values []string
		leaf := mustSub(command.Options{
			Name:      "leaf",
			Arguments: []command.Argument{{Name: "arg"}},
			Execute: func(_ context.Context, c *command.Context) error {
				leaves = append(leaves, c.Command.FullName())
				values = append(values, c.Args.GetString("arg"))
				return nil
			},
		})
		group, err := command.NewSubcommandGroup("group", "", leaf)
		Expect(err).NotTo(HaveOccurred())
		Expect(reg.Register(mustNew(command.Options{Name: "parent", Subcommands: []*command.Command{group}}))).To(Succeed())

		d, err := command.NewDispatcher(client, reg, command.WithPrefix("!"))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(d.Close)

		Expect(d.HandleMessage(context.Background(), message(memberID, "!parent group leaf arg1"))).To(Succeed())

		interaction := &discordgo.Interaction{
			ID:        "610000000000000001",
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   guildID,
			ChannelID: channelID,
			Member:    &discordgo.Member{User: &discordgo.User{ID: memberID}},
			Data: discordgo.ApplicationCommandInteractionData{
				Name: "parent",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{{
					Name: "group",
					Type: discordgo.ApplicationCommandOptionSubCommandGroup,
					Options: []*discordgo.ApplicationCommandInteractionDataOption{{
						Name: "leaf",
						Type: discordgo.ApplicationCommandOptionSubCommand,
						Options: []*discordgo.ApplicationCommandInteractionDataOption{
							{Name: "arg", Type: discordgo.ApplicationCommandOptionString, Value: "arg1"},
						},
					}},
				}},
			},
		}
		Expect(d.HandleInteraction(context.Background(), interaction)).To(Succeed())

		Expect(leaves).To(Equal([]string{"parent-group-leaf", "parent-group-leaf"}))
		Expect(values).To(Equal([]string{"arg1", "arg1"}))
	})
})

var _ = Describe("Idempotent registration overwrite", func() {
	It("keeps only the second definition", func() {
		reg := command.NewRegistry()
		Expect(reg.Register(mustNew(command.Options{Name: "ping", Category: "fun", Aliases: []string{"p"}, OwnerOnly: true}))).To(Succeed())
		Expect(reg.Register(mustNew(command.Options{Name: "ping", Description: "Pong!"}))).To(Succeed())

		all := reg.All()
		Expect(all).To(HaveLen(1))
		Expect(all[0].Description).To(Equal("Pong!"))
		Expect(all[0].Category).To(Equal(command.DefaultCategory))
		Expect(all[0].Aliases).To(BeEmpty())
		Expect(all[0].OwnerOnly).To(BeFalse())
	})
})

var _ = Describe("Permission gating round trip", func() {
	var (
		sink *errorSink
		d    *command.Dispatcher
		ran  []string
	)

	BeforeEach(func() {
		ran = nil
		reg := command.NewRegistry()
		Expect(reg.Register(mustNew(command.Options{
			Name:                 "roles",
			UserGuildPermissions: []string{"MANAGE_ROLES"},
			Execute: func(_ context.Context, c *command.Context) error {
				ran = append(ran, c.AuthorID)
				return nil
			},
		}))).To(Succeed())

		sink = &errorSink{}
		var err error
		d, err = command.NewDispatcher(newClient(), reg, command.WithPrefix("!"), command.WithEvents(sink.events()))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(d.Close)
	})

	It("denies a member without the bit at guild scope", func() {
		Expect(d.HandleMessage(context.Background(), message(memberID, "!roles"))).To(Succeed())

		Expect(ran).To(BeEmpty())
		Expect(sink.all()).To(HaveLen(1))
		denied := sink.all()[0]
		Expect(denied.Kind).To(Equal(command.KindUserMissingPermissions))
		Expect(denied.Channel).To(BeFalse())
		Expect(denied.Permissions).To(Equal([]string{"MANAGE_ROLES"}))
	})

	It("lets administrators bypass the check", func() {
		Expect(d.HandleMessage(context.Background(), message(adminID, "!roles"))).To(Succeed())

		Expect(sink.all()).To(BeEmpty())
		Expect(ran).To(Equal([]string{adminID}))
	})
})

var _ = Describe("Retry-bounded subcommand attach", func() {
	It("succeeds once the parent registers within the budget", func() {
		reg := command.NewRegistry(command.WithAttachBackoff(40, 5*time.Millisecond))
		go func() {
			defer GinkgoRecover()
			time.Sleep(20 * time.Millisecond)
			cmd, err := command.New(command.Options{Name: "late"})
			Expect(err).NotTo(HaveOccurred())
			Expect(reg.Register(cmd)).To(Succeed())
		}()

		Expect(reg.AttachSubcommand(context.Background(), "late", mustSub(command.Options{Name: "child"}), command.AttachOptions{})).To(Succeed())
		parent, ok := reg.Find("late")
		Expect(ok).To(BeTrue())
		_, ok = parent.Child("child")
		Expect(ok).To(BeTrue())
	})

	It("fails naming the parent once the budget is spent", func() {
		reg := command.NewRegistry(command.WithAttachBackoff(3, time.Millisecond))
		err := reg.AttachSubcommand(context.Background(), "ghost", mustSub(command.Options{Name: "child"}), command.AttachOptions{})
		Expect(err).To(HaveOccurred())
		Expect(errutil.Code(err)).To(Equal(command.CodeParentNotFound))
		Expect(err.Error()).To(ContainSubstring(`"ghost"`))
	})
})
