// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package command

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"github.com/amethyst-dev/amethyst/pkg/permissions"
	"github.com/amethyst-dev/amethyst/pkg/platform"
)

// maxChoices is the platform limit on option choices.
const maxChoices = 25

// Sync uploads interaction commands to the platform. The ready upload runs
// once per process; later ready events (after a reconnect) are ignored.
type Sync struct {
	client   platform.Client
	registry  *Registry
	logger    *slog.Logger
	guildOnly bool

	ready atomic.Bool

	mu     sync.Mutex
	synced map[string]struct{}
}

// SyncOption configures a Sync.
type SyncOption func(*Sync)

// WithSyncLogger sets the sync logger.
func WithSyncLogger(l *slog.Logger) SyncOption {
	return func(s *Sync) {
		s.logger = l
	}
}

// WithSyncGuildOnly marks every uploaded command as unavailable in DMs.
func WithSyncGuildOnly(guildOnly bool) SyncOption {
	return func(s *Sync) {
		s.guildOnly = guildOnly
	}
}

// NewSync creates a registration sync for registry.
func NewSync(client platform.Client, registry *Registry, opts ...SyncOption) (*Sync, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if registry == nil {
		return nil, ErrNilRegistry
	}
	s := &Sync{
		client:   client,
		registry: registry,
		logger:   slog.Default(),
		synced:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Ready reports whether the ready upload has run.
func (s *Sync) Ready() bool {
	return s.ready.Load()
}

// Payload is the set of application commands a sync uploads.
type Payload struct {
	// Global commands are registered platform-wide.
	Global []*discordgo.ApplicationCommand `json:"global"`
	// EveryGuild commands are registered in every joined guild.
	EveryGuild []*discordgo.ApplicationCommand `json:"every_guild"`
	// Pinned maps guild ids to the commands registered only there.
	Pinned map[string][]*discordgo.ApplicationCommand `json:"pinned"`
}

// ForGuild returns the commands uploaded to one guild.
func (p Payload) ForGuild(guildID string) []*discordgo.ApplicationCommand {
	return slices.Concat(p.EveryGuild, p.Pinned[guildID])
}

// Payload partitions the registered interaction commands by scope.
func (s *Sync) Payload() Payload {
	return BuildPayload(s.registry.All(), s.guildOnly)
}

// BuildPayload partitions cmds by scope. Message-only commands are skipped.
// guildOnly hides every command from DMs.
func BuildPayload(cmds []*Command, guildOnly bool) Payload {
	p := Payload{
		Global:     []*discordgo.ApplicationCommand{},
		EveryGuild: []*discordgo.ApplicationCommand{},
		Pinned:     map[string][]*discordgo.ApplicationCommand{},
	}
	for _, cmd := range cmds {
		if !cmd.Kind.Has(KindInteraction) {
			continue
		}
		ac := ToApplicationCommand(cmd, guildOnly)
		switch {
		case cmd.Scope == ScopeGlobal:
			p.Global = append(p.Global, ac)
		case len(cmd.GuildIDs) == 0:
			p.EveryGuild = append(p.EveryGuild, ac)
		default:
			for _, id := range cmd.GuildIDs {
				p.Pinned[id] = append(p.Pinned[id], ac)
			}
		}
	}
	return p
}

// HandleReady uploads global commands once, then one merged overwrite per
// guild in guildIDs and per pinned guild. Upload failures are joined; the
// latch stays set so a reconnect does not repeat the upload.
func (s *Sync) HandleReady(ctx context.Context, guildIDs []string) error {
	if !s.ready.CompareAndSwap(false, true) {
		s.logger.DebugContext(ctx, "ready fired again, skipping command sync")
		return nil
	}

	p := s.Payload()
	var errs []error
	if _, err := s.client.UpsertCommands(ctx, "", p.Global); err != nil {
		errs = append(errs, err)
	}

	targets := map[string]struct{}{}
	for _, id := range guildIDs {
		targets[id] = struct{}{}
	}
	for id := range p.Pinned {
		targets[id] = struct{}{}
	}

	s.mu.Lock()
	for _, id := range guildIDs {
		s.synced[id] = struct{}{}
	}
	s.mu.Unlock()

	for _, id := range slices.Sorted(maps.Keys(targets)) {
		cmds := p.ForGuild(id)
		if len(cmds) == 0 {
			continue
		}
		if _, err := s.client.UpsertCommands(ctx, id, cmds); err != nil {
			errs = append(errs, err)
		}
	}

	s.logger.InfoContext(ctx, "application commands synced",
		"global", len(p.Global),
		"every_guild", len(p.EveryGuild),
		"guilds", len(targets),
		"failures", len(errs))
	return errors.Join(errs...)
}

// HandleGuildCreate uploads the guild command set to a guild joined after
// ready. Guilds already covered by the ready upload are skipped.
func (s *Sync) HandleGuildCreate(ctx context.Context, guildID string) error {
	if !s.ready.Load() {
		return nil
	}
	s.mu.Lock()
	if _, done := s.synced[guildID]; done {
		s.mu.Unlock()
		return nil
	}
	s.synced[guildID] = struct{}{}
	s.mu.Unlock()

	cmds := s.Payload().ForGuild(guildID)
	if len(cmds) == 0 {
		return nil
	}
	_, err := s.client.UpsertCommands(ctx, guildID, cmds)
	return err
}

// ToApplicationCommand maps a top-level command to its chat-input payload.
// DM use is disabled when guildOnly is set or the command is guild-only.
func ToApplicationCommand(cmd *Command, guildOnly bool) *discordgo.ApplicationCommand {
	nsfw := cmd.NSFW
	ac := &discordgo.ApplicationCommand{
		Type:        discordgo.ChatApplicationCommand,
		Name:        cmd.Name,
		Description: cmd.Description,
		NSFW:        &nsfw,
	}
	if guild, _ := cmd.UserPermissions(); len(guild) > 0 {
		if bits, err := permissions.Bits(guild); err == nil {
			ac.DefaultMemberPermissions = &bits
		}
	}
	if guildOnly || cmd.IsGuildOnly() {
		dm := false
		ac.DMPermission = &dm
	}
	if cmd.HasChildren() {
		ac.Options = childOptions(cmd)
	} else {
		ac.Options = argumentOptions(cmd)
	}
	return ac
}

func childOptions(cmd *Command) []*discordgo.ApplicationCommandOption {
	var out []*discordgo.ApplicationCommandOption
	for _, child := range cmd.Children() {
		if !child.Kind.Has(KindInteraction) {
			continue
		}
		opt := &discordgo.ApplicationCommandOption{
			Name:        child.Name,
			Description: child.Description,
		}
		if child.node == NodeGroup {
			opt.Type = discordgo.ApplicationCommandOptionSubCommandGroup
			opt.Options = childOptions(child)
		} else {
			opt.Type = discordgo.ApplicationCommandOptionSubCommand
			opt.Options = argumentOptions(child)
		}
		out = append(out, opt)
	}
	return out
}

func argumentOptions(cmd *Command) []*discordgo.ApplicationCommandOption {
	out := make([]*discordgo.ApplicationCommandOption, 0, len(cmd.Arguments))
	for _, arg := range cmd.Arguments {
		out = append(out, argumentOption(cmd, arg))
	}
	return out
}

func argumentOption(cmd *Command, arg Argument) *discordgo.ApplicationCommandOption {
	desc := arg.Description
	if desc == "" {
		desc = DefaultDescription
	}
	opt := &discordgo.ApplicationCommandOption{
		Name:        arg.Name,
		Description: desc,
		Required:    arg.Required(),
	}

	switch arg.Type {
	case ArgInteger, ArgNumber:
		opt.Type = discordgo.ApplicationCommandOptionNumber
		if arg.Type == ArgInteger {
			opt.Type = discordgo.ApplicationCommandOptionInteger
		}
		minimum := arg.Minimum
		opt.MinValue = &minimum
		opt.MaxValue = arg.Maximum
	case ArgBoolean:
		opt.Type = discordgo.ApplicationCommandOptionBoolean
	case ArgUser, ArgMember:
		opt.Type = discordgo.ApplicationCommandOptionUser
	case ArgRole:
		opt.Type = discordgo.ApplicationCommandOptionRole
	case ArgChannel, ArgTextChannel, ArgGuildTextChannel, ArgVoiceChannel, ArgCategoryChannel:
		opt.Type = discordgo.ApplicationCommandOptionChannel
		opt.ChannelTypes = channelTypesFor(arg.Type)
	case ArgMentionable:
		opt.Type = discordgo.ApplicationCommandOptionMentionable
	case ArgAttachment:
		opt.Type = discordgo.ApplicationCommandOptionAttachment
	case ArgSubcommand:
		opt.Type = discordgo.ApplicationCommandOptionString
		for _, child := range cmd.Children() {
			opt.Choices = append(opt.Choices, &discordgo.ApplicationCommandOptionChoice{Name: child.Name, Value: child.Name})
		}
	default:
		// Strings, variadics and custom types are typed as text.
		opt.Type = discordgo.ApplicationCommandOptionString
		if arg.Type == ArgString {
			if arg.Minimum > 0 {
				minLen := int(arg.Minimum)
				opt.MinLength = &minLen
			}
			opt.MaxLength = int(arg.Maximum)
		}
		for _, l := range arg.Literals {
			opt.Choices = append(opt.Choices, &discordgo.ApplicationCommandOptionChoice{Name: l, Value: l})
		}
	}
	if len(opt.Choices) > maxChoices {
		opt.Choices = opt.Choices[:maxChoices]
	}
	return opt
}
