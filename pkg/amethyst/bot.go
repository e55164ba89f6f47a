// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

// Package amethyst binds the command framework to a Discord gateway session.
package amethyst

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/oops"

	"github.com/amethyst-dev/amethyst/pkg/collector"
	"github.com/amethyst-dev/amethyst/pkg/command"
	"github.com/amethyst-dev/amethyst/pkg/errutil"
	"github.com/amethyst-dev/amethyst/pkg/platform"
	"github.com/amethyst-dev/amethyst/pkg/task"
)

// ErrNilGateway is returned when a Bot is built without a gateway.
var ErrNilGateway = errors.New("gateway cannot be nil")

// gateway is the subset of *discordgo.Session the Bot drives.
type gateway interface {
	AddHandler(handler any) func()
	Open() error
	Close() error
}

// Bot owns a gateway connection and routes its events to the dispatcher,
// registration sync, task scheduler and collectors.
type Bot struct {
	gw         gateway
	client     platform.Client
	registry   *command.Registry
	dispatcher *command.Dispatcher
	sync       *command.Sync
	tasks      *task.Scheduler
	collectors *collector.Collectors
	logger     *slog.Logger
	onReady    func(ctx context.Context, r *discordgo.Ready)

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	removers []func()
	open     bool
}

// Option configures a Bot.
type Option func(*botOptions)

type botOptions struct {
	registry     *command.Registry
	dispatchOpts []command.DispatcherOption
	logger       *slog.Logger
	onReady      func(ctx context.Context, r *discordgo.Ready)
}

// WithRegistry uses an existing registry instead of an empty one.
func WithRegistry(r *command.Registry) Option {
	return func(o *botOptions) {
		o.registry = r
	}
}

// WithDispatcherOptions forwards options to the dispatcher.
func WithDispatcherOptions(opts ...command.DispatcherOption) Option {
	return func(o *botOptions) {
		o.dispatchOpts = append(o.dispatchOpts, opts...)
	}
}

// WithLogger sets the logger shared by the bot's components.
func WithLogger(l *slog.Logger) Option {
	return func(o *botOptions) {
		o.logger = l
	}
}

// WithReadyHook runs fn after the ready event has synced commands and
// started the task scheduler.
func WithReadyHook(fn func(ctx context.Context, r *discordgo.Ready)) Option {
	return func(o *botOptions) {
		o.onReady = fn
	}
}

// NewFromSession creates a bot on a discordgo session, backing the platform
// client with the session state cache.
func NewFromSession(s *discordgo.Session, opts ...Option) (*Bot, error) {
	if s == nil {
		return nil, ErrNilGateway
	}
	var o botOptions
	for _, opt := range opts {
		opt(&o)
	}
	var popts []platform.Option
	if o.logger != nil {
		popts = append(popts, platform.WithLogger(o.logger))
	}
	client, err := platform.NewDiscord(s, popts...)
	if err != nil {
		return nil, err
	}
	return New(s, client, opts...)
}

// New creates a bot over gw using client for platform calls.
func New(gw gateway, client platform.Client, opts ...Option) (*Bot, error) {
	if gw == nil {
		return nil, ErrNilGateway
	}
	if client == nil {
		return nil, command.ErrNilClient
	}

	var o botOptions
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := o.registry
	if registry == nil {
		registry = command.NewRegistry(command.WithRegistryLogger(logger))
	}

	dispatcher, err := command.NewDispatcher(client, registry,
		append([]command.DispatcherOption{command.WithLogger(logger)}, o.dispatchOpts...)...)
	if err != nil {
		return nil, oops.Wrapf(err, "create dispatcher")
	}
	syncer, err := command.NewSync(client, registry,
		command.WithSyncLogger(logger),
		command.WithSyncGuildOnly(dispatcher.GuildOnly()))
	if err != nil {
		dispatcher.Close()
		return nil, oops.Wrapf(err, "create command sync")
	}

	return &Bot{
		gw:         gw,
		client:     client,
		registry:   registry,
		dispatcher: dispatcher,
		sync:       syncer,
		tasks:      task.NewScheduler(task.WithLogger(logger.With("component", "task-scheduler"))),
		collectors: collector.New(),
		logger:     logger,
		onReady:    o.onReady,
	}, nil
}

// Registry returns the command registry.
func (b *Bot) Registry() *command.Registry { return b.registry }

// Dispatcher returns the command dispatcher.
func (b *Bot) Dispatcher() *command.Dispatcher { return b.dispatcher }

// Tasks returns the task scheduler.
func (b *Bot) Tasks() *task.Scheduler { return b.tasks }

// Collectors returns the follow-up event collectors.
func (b *Bot) Collectors() *collector.Collectors { return b.collectors }

// Client returns the platform client.
func (b *Bot) Client() platform.Client { return b.client }

// Ready reports whether the ready event has been handled.
func (b *Bot) Ready() bool { return b.sync.Ready() }

// Open binds the gateway handlers and connects. Handlers run with a context
// derived from ctx that is cancelled by Close.
func (b *Bot) Open(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open {
		return nil
	}
	b.ctx, b.cancel = context.WithCancel(context.WithoutCancel(ctx))
	b.removers = []func(){
		b.gw.AddHandler(b.onReadyEvent),
		b.gw.AddHandler(b.onGuildCreate),
		b.gw.AddHandler(b.onMessageCreate),
		b.gw.AddHandler(b.onInteractionCreate),
		b.gw.AddHandler(b.onReactionAdd),
	}
	if err := b.gw.Open(); err != nil {
		b.unbind()
		b.cancel()
		return oops.Wrapf(err, "open gateway")
	}
	b.open = true
	b.logger.InfoContext(ctx, "gateway connected", "commands", b.registry.Len())
	return nil
}

// Close disconnects, stops the scheduler and releases the dispatcher. It is
// safe to call on a bot that was never opened.
func (b *Bot) Close(ctx context.Context) error {
	var errs []error

	b.mu.Lock()
	wasOpen := b.open
	b.open = false
	if wasOpen {
		b.unbind()
		if err := b.gw.Close(); err != nil {
			errs = append(errs, oops.Wrapf(err, "close gateway"))
		}
	}
	cancel := b.cancel
	b.mu.Unlock()

	if err := b.tasks.Stop(ctx); err != nil {
		errs = append(errs, oops.Wrapf(err, "stop tasks"))
	}
	if cancel != nil {
		cancel()
	}
	b.dispatcher.Close()
	if wasOpen {
		b.logger.InfoContext(ctx, "gateway disconnected")
	}
	return errors.Join(errs...)
}

// unbind requires b.mu held.
func (b *Bot) unbind() {
	for _, remove := range b.removers {
		if remove != nil {
			remove()
		}
	}
	b.removers = nil
}

func (b *Bot) context() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil {
		return context.Background()
	}
	return b.ctx
}

func (b *Bot) onReadyEvent(_ *discordgo.Session, r *discordgo.Ready) {
	recordEvent("ready")
	b.HandleReady(b.context(), r)
}

func (b *Bot) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	recordEvent("guild_create")
	if g.Guild == nil {
		return
	}
	ctx := b.context()
	if err := b.sync.HandleGuildCreate(ctx, g.ID); err != nil {
		errutil.LogErrorContext(ctx, b.logger.With("guild", g.ID), "guild command sync failed", err)
	}
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	recordEvent("message_create")
	if m.Message == nil {
		return
	}
	b.HandleMessage(b.context(), m.Message)
}

func (b *Bot) onInteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	recordEvent("interaction_create")
	if i.Interaction == nil {
		return
	}
	b.HandleInteraction(b.context(), i.Interaction)
}

func (b *Bot) onReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	recordEvent("message_reaction_add")
	if r.MessageReaction == nil {
		return
	}
	b.collectors.Reactions.Publish(collector.ReactionFromEvent(r.MessageReaction))
}

// HandleReady syncs application commands, starts the task scheduler and
// runs the ready hook. Later ready events only re-run the hook.
func (b *Bot) HandleReady(ctx context.Context, r *discordgo.Ready) {
	guildIDs := make([]string, 0, len(r.Guilds))
	for _, g := range r.Guilds {
		guildIDs = append(guildIDs, g.ID)
	}
	if err := b.sync.HandleReady(ctx, guildIDs); err != nil {
		errutil.LogErrorContext(ctx, b.logger, "application command sync failed", err)
	}
	b.tasks.Start(ctx)
	if b.onReady != nil {
		b.onReady(ctx, r)
	}
}

// HandleMessage feeds message collectors and then dispatches the message.
func (b *Bot) HandleMessage(ctx context.Context, m *discordgo.Message) {
	b.collectors.Messages.Publish(m)
	if err := b.dispatcher.HandleMessage(ctx, m); err != nil {
		errutil.LogErrorContext(ctx, b.logger.With("channel", m.ChannelID), "message dispatch failed", err)
	}
}

// HandleInteraction dispatches application commands and routes component
// and modal interactions to the component collectors.
func (b *Bot) HandleInteraction(ctx context.Context, i *discordgo.Interaction) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if err := b.dispatcher.HandleInteraction(ctx, i); err != nil {
			errutil.LogErrorContext(ctx, b.logger.With("interaction", i.ID), "interaction dispatch failed", err)
		}
	case discordgo.InteractionMessageComponent, discordgo.InteractionModalSubmit:
		b.collectors.Components.Publish(i)
	default:
		b.logger.DebugContext(ctx, "ignoring interaction", "type", i.Type.String())
	}
}
