// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package command

import (
	"context"
	"log/slog"
	"runtime/debug"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/amethyst-dev/amethyst/pkg/platform"
)

var tracer = otel.Tracer("amethyst/command")

// PrefixFunc returns the prefixes accepted for a message, e.g. per guild.
type PrefixFunc func(ctx context.Context, client platform.Client, m *discordgo.Message) []string

// Dispatcher routes message and interaction events to registered commands.
// Concurrent calls to HandleMessage and HandleInteraction are safe.
type Dispatcher struct {
	client   platform.Client
	registry *Registry
	logger   *slog.Logger
	events   *Events

	inhibitors    *InhibitorChain
	cooldowns     *CooldownTracker
	ownsCooldowns bool
	resolvers     *Resolvers
	registerer    prometheus.Registerer

	prefixes        []string
	prefixFunc      PrefixFunc
	mentionPrefix   bool
	caseSensitive   bool
	ignoreBots      bool
	quoted          bool
	owners          []string
	guildOnly       bool
	dmOnly          bool
	ignoreCooldown  []string
	defaultCooldown *Cooldown
	sweepInterval   time.Duration
	privateTTL      time.Duration
}

// DispatcherOption configures a Dispatcher during construction.
type DispatcherOption func(*Dispatcher)

// WithPrefix sets the literal prefixes for message commands. The first
// matching prefix wins.
func WithPrefix(prefixes ...string) DispatcherOption {
	return func(d *Dispatcher) {
		d.prefixes = slices.Clone(prefixes)
	}
}

// WithPrefixFunc computes prefixes per message. It replaces WithPrefix.
func WithPrefixFunc(fn PrefixFunc) DispatcherOption {
	return func(d *Dispatcher) {
		d.prefixFunc = fn
	}
}

// WithMentionPrefix accepts a mention of the bot as a prefix when no literal
// prefix matched.
func WithMentionPrefix(enabled bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.mentionPrefix = enabled
	}
}

// WithPrefixCaseSensitive makes prefix matching case-sensitive.
func WithPrefixCaseSensitive(enabled bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.caseSensitive = enabled
	}
}

// WithIgnoreBots sets whether bot accounts are ignored by default.
// Commands override it with Options.IgnoreBots.
func WithIgnoreBots(ignore bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.ignoreBots = ignore
	}
}

// WithQuotedArguments sets the default for quoted-argument tokenization.
func WithQuotedArguments(enabled bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.quoted = enabled
	}
}

// WithOwners sets the user ids allowed to run owner-only commands.
func WithOwners(ids ...string) DispatcherOption {
	return func(d *Dispatcher) {
		d.owners = slices.Clone(ids)
	}
}

// WithGuildOnly restricts every command to guilds.
func WithGuildOnly() DispatcherOption {
	return func(d *Dispatcher) {
		d.guildOnly = true
	}
}

// WithDMOnly restricts every command to direct messages.
func WithDMOnly() DispatcherOption {
	return func(d *Dispatcher) {
		d.dmOnly = true
	}
}

// WithDefaultCooldown applies cd to commands without a cooldown of their own.
func WithDefaultCooldown(cd *Cooldown) DispatcherOption {
	return func(d *Dispatcher) {
		d.defaultCooldown = cd
	}
}

// WithIgnoreCooldown exempts actor ids from every cooldown.
func WithIgnoreCooldown(ids ...string) DispatcherOption {
	return func(d *Dispatcher) {
		d.ignoreCooldown = slices.Clone(ids)
	}
}

// WithSweepInterval sets how often expired cooldowns are evicted.
func WithSweepInterval(interval time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.sweepInterval = interval
	}
}

// WithCooldownTracker supplies a tracker. The caller keeps ownership and
// must close it. Cooldown options are ignored when a tracker is supplied.
func WithCooldownTracker(t *CooldownTracker) DispatcherOption {
	return func(d *Dispatcher) {
		d.cooldowns = t
	}
}

// WithInhibitors replaces the default inhibitor chain.
func WithInhibitors(ic *InhibitorChain) DispatcherOption {
	return func(d *Dispatcher) {
		d.inhibitors = ic
	}
}

// WithResolvers replaces the default argument resolvers.
func WithResolvers(r *Resolvers) DispatcherOption {
	return func(d *Dispatcher) {
		d.resolvers = r
	}
}

// WithEvents sets the lifecycle hooks.
func WithEvents(e *Events) DispatcherOption {
	return func(d *Dispatcher) {
		d.events = e
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithPrivateTTL sets how long private message replies stay visible.
func WithPrivateTTL(ttl time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.privateTTL = ttl
	}
}

// WithMetricsRegistry registers the cooldown gauge with reg.
func WithMetricsRegistry(reg prometheus.Registerer) DispatcherOption {
	return func(d *Dispatcher) {
		d.registerer = reg
	}
}

// NewDispatcher creates a dispatcher over client and registry. Unless a
// tracker is supplied it starts a cooldown tracker; call Close to stop it.
func NewDispatcher(client platform.Client, registry *Registry, opts ...DispatcherOption) (*Dispatcher, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if registry == nil {
		return nil, ErrNilRegistry
	}
	d := &Dispatcher{
		client:     client,
		registry:   registry,
		ignoreBots: true,
		privateTTL: DefaultPrivateTTL,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.guildOnly && d.dmOnly {
		return nil, oops.Code(CodeInvalidCommand).Errorf("guildOnly and dmOnly are mutually exclusive")
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.resolvers == nil {
		d.resolvers = NewResolvers()
	}
	if d.cooldowns == nil {
		d.cooldowns = newCooldownTracker(CooldownConfig{
			SweepInterval:  d.sweepInterval,
			IgnoreCooldown: d.ignoreCooldown,
			Default:        d.defaultCooldown,
		}, d.registerer)
		d.ownsCooldowns = true
	}
	if d.inhibitors == nil {
		d.inhibitors = DefaultInhibitors(d.cooldowns, d.owners, d.guildOnly, d.dmOnly)
	}
	return d, nil
}

// Inhibitors returns the live inhibitor chain.
func (d *Dispatcher) Inhibitors() *InhibitorChain {
	return d.inhibitors
}

// Resolvers returns the argument resolver registry.
func (d *Dispatcher) Resolvers() *Resolvers {
	return d.resolvers
}

// GuildOnly reports whether every command is restricted to guilds.
func (d *Dispatcher) GuildOnly() bool {
	return d.guildOnly
}

// Cooldowns returns the cooldown tracker.
func (d *Dispatcher) Cooldowns() *CooldownTracker {
	return d.cooldowns
}

// Registry returns the command registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Close stops the cooldown tracker if the dispatcher created it.
func (d *Dispatcher) Close() {
	if d.ownsCooldowns {
		d.cooldowns.Close()
	}
}

// matchPrefix returns the matched prefix and the content after it.
func (d *Dispatcher) matchPrefix(ctx context.Context, m *discordgo.Message) (string, string, bool) {
	content := m.Content
	prefixes := d.prefixes
	if d.prefixFunc != nil {
		prefixes = d.prefixFunc(ctx, d.client, m)
	}
	for _, p := range prefixes {
		if p == "" || len(content) < len(p) {
			continue
		}
		head := content[:len(p)]
		if head == p || (!d.caseSensitive && strings.EqualFold(head, p)) {
			return p, content[len(p):], true
		}
	}
	if d.mentionPrefix {
		if id := d.client.BotID(); id != "" {
			for _, mention := range []string{"<@" + id + ">", "<@!" + id + ">"} {
				if strings.HasPrefix(content, mention) {
					return mention, content[len(mention):], true
				}
			}
		}
	}
	return "", "", false
}

// HandleMessage dispatches a message command. Messages without a matching
// prefix, naming no command, or sent by an ignored bot return nil without
// firing any event. A non-nil error is only returned when no error hook is
// registered.
func (d *Dispatcher) HandleMessage(ctx context.Context, m *discordgo.Message) error {
	if m == nil || m.Author == nil || m.Author.ID == d.client.BotID() {
		return nil
	}
	prefix, rest, ok := d.matchPrefix(ctx, m)
	if !ok {
		return nil
	}

	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	name, remainder := rest, ""
	if i := strings.IndexFunc(rest, unicode.IsSpace); i >= 0 {
		name, remainder = rest[:i], rest[i:]
	}
	name = strings.ToLower(name)
	if name == "" {
		return nil
	}

	root, ok := d.registry.FindByAliasOrName(name)
	if !ok {
		d.logger.DebugContext(ctx, "no command matched", "name", name)
		d.events.notFound(ctx, NotFound{Name: name, Message: m})
		return nil
	}

	// Subcommand names are plain words, so the walk can run on plain tokens
	// before the leaf decides whether quotes are honored.
	leaf, depth := walkTokens(root, strings.Fields(remainder))
	if m.Author.Bot && leaf.ignoreBots(d.ignoreBots) {
		d.logger.DebugContext(ctx, "ignoring bot author", "command", leaf.FullName(), "author_id", m.Author.ID)
		return nil
	}
	tokens := Tokenize(remainder, leaf.quotedArguments(d.quoted))
	tokens = tokens[min(depth, len(tokens)):]

	c := newContext(d.client, d.logger, d.privateTTL)
	c.Command = leaf
	c.Kind = KindMessage
	c.Message = m
	c.GuildID = m.GuildID
	c.ChannelID = m.ChannelID
	c.AuthorID = m.Author.ID
	c.User = m.Author
	c.Prefix = prefix
	c.Invoked = name
	c.Args.subcommand = subcommandPath(leaf)
	if m.Member != nil && m.GuildID != "" {
		member := *m.Member
		member.User = m.Author
		member.GuildID = m.GuildID
		c.Member = &member
	}

	return d.run(ctx, c, func(ctx context.Context) *Argument {
		return bindMessage(ctx, d.resolvers, c, tokens)
	})
}

// walkTokens descends through children named by the leading tokens and
// returns the deepest node reached and how many tokens named it.
func walkTokens(root *Command, tokens []string) (*Command, int) {
	node, depth := root, 0
	for depth < len(tokens) && node.HasChildren() {
		child, ok := node.Child(strings.ToLower(tokens[depth]))
		if !ok {
			break
		}
		node = child
		depth++
	}
	return node, depth
}

func subcommandPath(leaf *Command) string {
	if leaf.parent == nil {
		return ""
	}
	root := leaf.Root()
	return strings.TrimPrefix(leaf.Path(), root.Name+" ")
}

// HandleInteraction dispatches an application command interaction. Other
// interaction types, unknown commands and option trees that match no
// subcommand return nil.
func (d *Dispatcher) HandleInteraction(ctx context.Context, i *discordgo.Interaction) error {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return nil
	}
	data := i.ApplicationCommandData()

	root, ok := d.registry.Find(data.Name)
	if !ok || !root.Kind.Has(KindInteraction) {
		d.logger.DebugContext(ctx, "no command matched", "name", data.Name)
		d.events.notFound(ctx, NotFound{Name: data.Name, Interaction: i})
		return nil
	}

	leaf, opts, ok := walkOptions(root, data.Options)
	if !ok {
		d.logger.DebugContext(ctx, "interaction matched no subcommand", "command", root.Name)
		return nil
	}

	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user == nil {
		return nil
	}
	if user.Bot && leaf.ignoreBots(d.ignoreBots) {
		return nil
	}

	c := newContext(d.client, d.logger, d.privateTTL)
	c.Command = leaf
	c.Kind = KindInteraction
	c.Interaction = i
	c.GuildID = i.GuildID
	c.ChannelID = i.ChannelID
	c.AuthorID = user.ID
	c.User = user
	c.Args.subcommand = subcommandPath(leaf)
	if i.Member != nil && i.GuildID != "" {
		member := *i.Member
		member.GuildID = i.GuildID
		c.Member = &member
	}

	return d.run(ctx, c, func(ctx context.Context) *Argument {
		return bindInteraction(ctx, d.resolvers, c, opts, data.Resolved)
	})
}

// walkOptions finds the leaf named by an interaction's option tree: a group
// option holding one subcommand option, or a subcommand option.
func walkOptions(root *Command, opts []*discordgo.ApplicationCommandInteractionDataOption) (*Command, []*discordgo.ApplicationCommandInteractionDataOption, bool) {
	if !root.HasChildren() {
		return root, opts, true
	}
	if len(opts) == 0 {
		return nil, nil, false
	}

	first := opts[0]
	switch first.Type {
	case discordgo.ApplicationCommandOptionSubCommandGroup:
		group, ok := root.exactChild(first.Name)
		if !ok || group.node != NodeGroup || len(first.Options) == 0 {
			return nil, nil, false
		}
		inner := first.Options[0]
		if inner.Type != discordgo.ApplicationCommandOptionSubCommand {
			return nil, nil, false
		}
		leaf, ok := group.exactChild(inner.Name)
		if !ok || leaf.node != NodeSubcommand {
			return nil, nil, false
		}
		return leaf, inner.Options, true

	case discordgo.ApplicationCommandOptionSubCommand:
		leaf, ok := root.exactChild(first.Name)
		if !ok || leaf.node != NodeSubcommand {
			return nil, nil, false
		}
		return leaf, first.Options, true
	}
	return nil, nil, false
}

func (c *Command) exactChild(name string) (*Command, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	child, ok := c.children[name]
	return child, ok
}

// run drives a resolved invocation: populate, commandStart, inhibitors,
// argument binding, handler, commandEnd. Failures go to the error hook.
func (d *Dispatcher) run(ctx context.Context, c *Context, bind func(context.Context) *Argument) (err error) {
	name := c.Command.FullName()

	rec := NewMetricsRecorder(c.Kind)
	rec.SetCommandName(name)
	defer rec.Record()

	ctx, span := tracer.Start(ctx, "command.execute",
		trace.WithAttributes(
			attribute.String("command.name", name),
			attribute.String("command.kind", c.Kind.String()),
			attribute.String("invocation.id", c.ID.String()),
			attribute.String("actor.id", c.AuthorID),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if perr := d.populate(ctx, c); perr != nil {
		rec.SetStatus(StatusError)
		return d.fail(ctx, c, &Error{Kind: KindOther, Cause: perr})
	}

	d.events.start(ctx, c)

	if inhibitor, res := d.inhibitors.Run(ctx, c.Command, c); !res.Allowed() {
		span.SetAttributes(attribute.String("command.inhibitor", inhibitor))
		RecordInhibitorDenial(inhibitor, res.Err().Kind)
		rec.SetStatus(StatusInhibited)
		return d.fail(ctx, c, res.Err())
	}

	if arg := bind(ctx); arg != nil {
		rec.SetStatus(StatusMissingArgument)
		if arg.Missing != nil {
			arg.Missing(ctx, c)
			return nil
		}
		return d.fail(ctx, c, &Error{Kind: KindMissingRequiredArguments, Argument: arg.Name})
	}

	if c.Command.Execute == nil {
		c.Logger.WarnContext(ctx, "command has no handler", "command", name)
		d.events.end(ctx, c)
		return nil
	}

	recovered, herr := execute(ctx, c)
	if recovered != nil {
		rec.SetStatus(StatusPanic)
		c.Logger.ErrorContext(ctx, "command handler panicked", "command", name, "panic", recovered)
		if d.events.sink() == nil {
			panic(recovered)
		}
		return d.fail(ctx, c, &Error{Kind: KindOther, Cause: herr})
	}
	if herr != nil {
		rec.SetStatus(StatusError)
		c.Logger.WarnContext(ctx, "command execution failed",
			"command", name,
			"author_id", c.AuthorID,
			"error", herr,
		)
		return d.fail(ctx, c, &Error{Kind: KindOther, Cause: herr})
	}

	d.events.end(ctx, c)
	return nil
}

func execute(ctx context.Context, c *Context) (recovered any, err error) {
	defer func() {
		if r := recover(); r != nil {
			recovered = r
			err = oops.
				With("command", c.Command.FullName()).
				With("stack", string(debug.Stack())).
				Errorf("handler panic: %v", r)
		}
	}()
	return nil, c.Command.Execute(ctx, c)
}

// fail hands err to the error hook. Without a hook it is returned.
func (d *Dispatcher) fail(ctx context.Context, c *Context, err *Error) error {
	sink := d.events.sink()
	if sink == nil {
		return err
	}
	sink(ctx, c, err)
	return nil
}

// populate makes sure the channel, guild, member and user of the invocation
// are loaded before inhibitors need them.
func (d *Dispatcher) populate(ctx context.Context, c *Context) error {
	if c.ChannelID != "" && c.Channel == nil {
		ch, err := d.client.Channel(ctx, c.ChannelID)
		if err != nil {
			return oops.Code(CodeCacheFetchFailed).With("channel_id", c.ChannelID).Wrap(err)
		}
		c.Channel = ch
	}
	if c.GuildID == "" {
		return nil
	}
	if c.Guild == nil {
		g, err := d.client.Guild(ctx, c.GuildID)
		if err != nil {
			return oops.Code(CodeCacheFetchFailed).With("guild_id", c.GuildID).Wrap(err)
		}
		c.Guild = g
	}
	if c.Member == nil {
		m, err := d.client.Member(ctx, c.GuildID, c.AuthorID)
		if err != nil {
			return oops.Code(CodeCacheFetchFailed).
				With("guild_id", c.GuildID).
				With("user_id", c.AuthorID).
				Wrap(err)
		}
		c.Member = m
	}
	return nil
}
