// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package command

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

// Kind selects which invocation surfaces a command answers to.
type Kind uint8

// Invocation kinds. A command may accept both.
const (
	KindMessage Kind = 1 << iota
	KindInteraction

	KindAll = KindMessage | KindInteraction
)

// Has reports whether k includes other.
func (k Kind) Has(other Kind) bool {
	return k&other != 0
}

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindInteraction:
		return "interaction"
	case KindAll:
		return "all"
	default:
		return "none"
	}
}

// Scope controls where a command is registered with the platform.
type Scope string

// Registration scopes.
const (
	ScopeGlobal Scope = "global"
	ScopeGuild  Scope = "guild"
)

// NodeType identifies a command's position in a tree.
type NodeType uint8

// Tree node types.
const (
	NodeCommand NodeType = iota
	NodeSubcommand
	NodeGroup
)

func (n NodeType) String() string {
	switch n {
	case NodeSubcommand:
		return "subcommand"
	case NodeGroup:
		return "group"
	default:
		return "command"
	}
}

// DefaultCategory is assigned to commands that do not set one.
const DefaultCategory = "misc"

// DefaultDescription is used when a command has no description, since
// application commands require one.
const DefaultDescription = "No description provided."

// Cooldown limits how often one actor may run a command.
type Cooldown struct {
	// Duration is the length of the window.
	Duration time.Duration
	// AllowedUses is the number of runs permitted per window. Defaults to 1.
	AllowedUses int
}

// Handler runs a command.
type Handler func(ctx context.Context, c *Context) error

// Options describes a command, subcommand or subcommand group. Every field
// has an explicit default applied by New.
type Options struct {
	Name        string
	Description string
	// Aliases apply to message invocations only.
	Aliases  []string
	Category string
	Kind     Kind

	// Scope and GuildIDs are only valid on top-level commands.
	Scope    Scope
	GuildIDs []string

	Cooldown *Cooldown
	NSFW     bool
	// OwnerOnly restricts the command to the dispatcher's owner ids.
	OwnerOnly bool
	GuildOnly bool
	DMOnly    bool

	UserGuildPermissions   []string
	UserChannelPermissions []string
	BotGuildPermissions    []string
	BotChannelPermissions  []string
	// RequiredRoles lists role ids the invoking member must all hold.
	RequiredRoles []string

	// IgnoreCooldown lists actor ids exempt from the cooldown.
	IgnoreCooldown []string
	// IgnoreBots overrides the dispatcher default when non-nil.
	IgnoreBots *bool
	// QuotedArguments overrides the dispatcher default when non-nil.
	QuotedArguments *bool

	Arguments []Argument
	// Subcommands are nodes built with NewSubcommand or NewSubcommandGroup.
	Subcommands []*Command

	Execute Handler
}

// Command is one node of a command tree. Top-level commands are held by a
// Registry; subcommands and groups hang off their parent.
type Command struct {
	Options

	node   NodeType
	parent *Command

	mu       sync.RWMutex
	children map[string]*Command
}

// Bool returns a pointer to b, for the optional override fields of Options.
func Bool(b bool) *bool {
	return &b
}

// New builds a top-level command.
func New(opts Options) (*Command, error) {
	return build(opts, NodeCommand)
}

// NewSubcommand builds a leaf subcommand for use in Options.Subcommands,
// NewSubcommandGroup, or Registry.AttachSubcommand.
func NewSubcommand(opts Options) (*Command, error) {
	return build(opts, NodeSubcommand)
}

// NewSubcommandGroup builds a group holding subs.
func NewSubcommandGroup(name, description string, subs ...*Command) (*Command, error) {
	return build(Options{Name: name, Description: description, Subcommands: subs}, NodeGroup)
}

func build(opts Options, node NodeType) (*Command, error) {
	if opts.Category == "" {
		opts.Category = DefaultCategory
	}
	if opts.Description == "" {
		opts.Description = DefaultDescription
	}
	if opts.Kind == 0 {
		opts.Kind = KindAll
	}
	if opts.Scope == "" {
		opts.Scope = ScopeGlobal
	}
	if opts.Cooldown != nil && opts.Cooldown.AllowedUses <= 0 {
		cd := *opts.Cooldown
		cd.AllowedUses = 1
		opts.Cooldown = &cd
	}
	for i := range opts.Arguments {
		if opts.Arguments[i].Type == "" {
			opts.Arguments[i].Type = ArgString
		}
	}

	if err := validateOptions(opts, node); err != nil {
		return nil, err
	}

	subs := opts.Subcommands
	opts.Subcommands = nil
	cmd := &Command{Options: opts, node: node, children: make(map[string]*Command)}
	for _, sub := range subs {
		if err := cmd.attach(sub); err != nil {
			return nil, err
		}
	}
	return cmd, nil
}

// Node returns the command's position in its tree.
func (c *Command) Node() NodeType {
	return c.node
}

// Parent returns the owning node, or nil for a top-level command.
func (c *Command) Parent() *Command {
	return c.parent
}

// Root returns the top-level command of c's tree.
func (c *Command) Root() *Command {
	for c.parent != nil {
		c = c.parent
	}
	return c
}

// FullName returns the hyphen-joined path from the root, e.g. "role-add".
func (c *Command) FullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.FullName() + "-" + c.Name
}

// Path returns the space-joined path from the root, e.g. "role add".
func (c *Command) Path() string {
	return strings.ReplaceAll(c.FullName(), "-", " ")
}

// Children returns the direct subcommands and groups sorted by name.
func (c *Command) Children() []*Command {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Command, 0, len(c.children))
	for _, child := range c.children {
		out = append(out, child)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// HasChildren reports whether c owns any subcommands or groups.
func (c *Command) HasChildren() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.children) > 0
}

// Child finds a direct subcommand or group by name or alias.
func (c *Command) Child(name string) (*Command, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if child, ok := c.children[name]; ok {
		return child, true
	}
	for _, child := range c.children {
		if slices.Contains(child.Aliases, name) {
			return child, true
		}
	}
	return nil, false
}

func (c *Command) attach(child *Command) error {
	if child == nil {
		return errInvalidCommand(c.Name, "subcommand is nil")
	}
	switch {
	case c.node == NodeSubcommand:
		return errInvalidCommand(c.Name, "subcommands cannot own children")
	case c.node == NodeGroup && child.node != NodeSubcommand:
		return errInvalidCommand(c.Name, "groups may only hold subcommands")
	case child.node == NodeCommand:
		return errInvalidCommand(child.Name, "top-level command cannot be nested")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	child.parent = c
	c.children[child.Name] = child
	return nil
}

// lineage returns c and its ancestors, nearest first.
func (c *Command) lineage() []*Command {
	var out []*Command
	for n := c; n != nil; n = n.parent {
		out = append(out, n)
	}
	return out
}

func (c *Command) anyOf(pick func(*Command) bool) bool {
	for _, n := range c.lineage() {
		if pick(n) {
			return true
		}
	}
	return false
}

func (c *Command) unionOf(pick func(*Command) []string) []string {
	var out []string
	for _, n := range c.lineage() {
		for _, v := range pick(n) {
			if !slices.Contains(out, v) {
				out = append(out, v)
			}
		}
	}
	return out
}

// Gating flags and permission lists are inherited from ancestors: a child is
// at least as restricted as its parent.

// IsNSFW reports whether c or any ancestor requires an nsfw channel.
func (c *Command) IsNSFW() bool { return c.anyOf(func(n *Command) bool { return n.NSFW }) }

// IsOwnerOnly reports whether c or any ancestor is owner-only.
func (c *Command) IsOwnerOnly() bool { return c.anyOf(func(n *Command) bool { return n.OwnerOnly }) }

// IsGuildOnly reports whether c or any ancestor is guild-only.
func (c *Command) IsGuildOnly() bool { return c.anyOf(func(n *Command) bool { return n.GuildOnly }) }

// IsDMOnly reports whether c or any ancestor is DM-only.
func (c *Command) IsDMOnly() bool { return c.anyOf(func(n *Command) bool { return n.DMOnly }) }

// EffectiveCooldown returns the cooldown of the nearest node that sets one.
func (c *Command) EffectiveCooldown() *Cooldown {
	for _, n := range c.lineage() {
		if n.Cooldown != nil {
			return n.Cooldown
		}
	}
	return nil
}

// UserPermissions returns the inherited guild and channel permissions the
// invoking member needs.
func (c *Command) UserPermissions() (guild, channel []string) {
	return c.unionOf(func(n *Command) []string { return n.UserGuildPermissions }),
		c.unionOf(func(n *Command) []string { return n.UserChannelPermissions })
}

// BotPermissions returns the inherited guild and channel permissions the bot
// needs.
func (c *Command) BotPermissions() (guild, channel []string) {
	return c.unionOf(func(n *Command) []string { return n.BotGuildPermissions }),
		c.unionOf(func(n *Command) []string { return n.BotChannelPermissions })
}

// Roles returns the inherited required role ids.
func (c *Command) Roles() []string {
	return c.unionOf(func(n *Command) []string { return n.RequiredRoles })
}

// CooldownExempt reports whether actorID is listed in the IgnoreCooldown of
// c or an ancestor.
func (c *Command) CooldownExempt(actorID string) bool {
	return c.anyOf(func(n *Command) bool { return slices.Contains(n.IgnoreCooldown, actorID) })
}

// ignoreBots resolves the nearest override, falling back to def.
func (c *Command) ignoreBots(def bool) bool {
	for _, n := range c.lineage() {
		if n.IgnoreBots != nil {
			return *n.IgnoreBots
		}
	}
	return def
}

func (c *Command) quotedArguments(def bool) bool {
	for _, n := range c.lineage() {
		if n.QuotedArguments != nil {
			return *n.QuotedArguments
		}
	}
	return def
}
