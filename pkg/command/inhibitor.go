// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package command

import (
	"context"
	"slices"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/amethyst-dev/amethyst/pkg/permissions"
)

// Result is the outcome of an inhibitor: allowed, or denied with an error.
type Result struct {
	err *Error
}

// Allow returns a passing result.
func Allow() Result {
	return Result{}
}

// Deny returns a failing result carrying err.
func Deny(err *Error) Result {
	if err == nil {
		err = &Error{Kind: KindOther}
	}
	return Result{err: err}
}

// Allowed reports whether the inhibitor passed.
func (r Result) Allowed() bool {
	return r.err == nil
}

// Err returns the denial, or nil.
func (r Result) Err() *Error {
	return r.err
}

// Inhibitor gates command execution. It runs after the context's guild,
// channel and member are populated.
type Inhibitor func(ctx context.Context, cmd *Command, c *Context) Result

// Names of the built-in inhibitors, in their default order.
const (
	InhibitorScope           = "scope"
	InhibitorOwnerOnly       = "ownerOnly"
	InhibitorNSFW            = "nsfw"
	InhibitorBotPermissions  = "botPermissions"
	InhibitorUserPermissions = "userPermissions"
	InhibitorRequiredRoles   = "requiredRoles"
	InhibitorCooldown        = "cooldown"
)

type namedInhibitor struct {
	name string
	fn   Inhibitor
}

// InhibitorChain is an ordered set of named inhibitors.
// It is thread-safe for concurrent access; Run evaluates a snapshot, so
// inhibitors may be added or removed while commands are dispatching.
type InhibitorChain struct {
	mu    sync.RWMutex
	chain []namedInhibitor
}

// NewInhibitorChain returns an empty chain.
func NewInhibitorChain() *InhibitorChain {
	return &InhibitorChain{}
}

// Add appends an inhibitor. Adding an existing name replaces it in place.
func (ic *InhibitorChain) Add(name string, fn Inhibitor) {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	if i := ic.index(name); i >= 0 {
		ic.chain[i].fn = fn
		return
	}
	ic.chain = append(ic.chain, namedInhibitor{name: name, fn: fn})
}

// Remove deletes an inhibitor by name. It reports whether one was removed.
func (ic *InhibitorChain) Remove(name string) bool {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	i := ic.index(name)
	if i < 0 {
		return false
	}
	ic.chain = slices.Delete(ic.chain, i, i+1)
	return true
}

// Names returns the inhibitor names in evaluation order.
func (ic *InhibitorChain) Names() []string {
	ic.mu.RLock()
	defer ic.mu.RUnlock()

	out := make([]string, len(ic.chain))
	for i, n := range ic.chain {
		out[i] = n.name
	}
	return out
}

func (ic *InhibitorChain) index(name string) int {
	return slices.IndexFunc(ic.chain, func(n namedInhibitor) bool { return n.name == name })
}

// Run evaluates the inhibitors in order and stops at the first denial,
// returning its name. Later inhibitors are not invoked.
func (ic *InhibitorChain) Run(ctx context.Context, cmd *Command, c *Context) (string, Result) {
	ic.mu.RLock()
	snapshot := slices.Clone(ic.chain)
	ic.mu.RUnlock()

	for _, n := range snapshot {
		if res := n.fn(ctx, cmd, c); !res.Allowed() {
			res.err.Inhibitor = n.name
			return n.name, res
		}
	}
	return "", Allow()
}

// CooldownInhibitor denies actors that exhausted the command's cooldown.
func CooldownInhibitor(t *CooldownTracker) Inhibitor {
	return func(_ context.Context, cmd *Command, c *Context) Result {
		if err := t.Check(c.AuthorID, cmd); err != nil {
			return Deny(err)
		}
		return Allow()
	}
}

// ScopeInhibitor enforces guild-only and DM-only, from the command tree or
// the given bot-wide defaults.
func ScopeInhibitor(guildOnly, dmOnly bool) Inhibitor {
	return func(_ context.Context, cmd *Command, c *Context) Result {
		if (guildOnly || cmd.IsGuildOnly()) && !c.InGuild() {
			return Deny(&Error{Kind: KindGuildsOnly})
		}
		if (dmOnly || cmd.IsDMOnly()) && c.InGuild() {
			return Deny(&Error{Kind: KindDMsOnly})
		}
		return Allow()
	}
}

// NSFWInhibitor denies nsfw commands outside nsfw channels. DM channels are
// never nsfw.
func NSFWInhibitor() Inhibitor {
	return func(_ context.Context, cmd *Command, c *Context) Result {
		if !cmd.IsNSFW() {
			return Allow()
		}
		if c.Channel == nil || !c.InGuild() || !c.Channel.NSFW {
			return Deny(&Error{Kind: KindNSFW})
		}
		return Allow()
	}
}

// OwnerOnlyInhibitor denies owner-only commands to anyone not in owners.
func OwnerOnlyInhibitor(owners []string) Inhibitor {
	owners = slices.Clone(owners)
	return func(_ context.Context, cmd *Command, c *Context) Result {
		if cmd.IsOwnerOnly() && !slices.Contains(owners, c.AuthorID) {
			return Deny(&Error{Kind: KindOwnerOnly})
		}
		return Allow()
	}
}

// checkPermissions reports the first deficiency of member against the guild
// then channel requirements.
func checkPermissions(c *Context, kind ErrorKind, memberOf func(*Context) *discordgo.Member, guild, channel []string) Result {
	if len(guild) == 0 && len(channel) == 0 {
		return Allow()
	}
	if !c.InGuild() {
		// Nothing can be granted outside a guild.
		return Deny(&Error{Kind: kind, Channel: len(guild) == 0, Permissions: slices.Concat(guild, channel)})
	}
	member := memberOf(c)
	if member == nil {
		return Deny(&Error{Kind: kind, Permissions: slices.Concat(guild, channel)})
	}
	if missing := permissions.Missing(permissions.Base(c.Guild, member), guild); len(missing) > 0 {
		return Deny(&Error{Kind: kind, Permissions: missing})
	}
	if missing := permissions.Missing(permissions.Channel(c.Guild, c.Channel, member), channel); len(missing) > 0 {
		return Deny(&Error{Kind: kind, Channel: true, Permissions: missing})
	}
	return Allow()
}

// BotPermissionsInhibitor denies commands when the bot lacks required guild
// or channel permissions.
func BotPermissionsInhibitor() Inhibitor {
	return func(ctx context.Context, cmd *Command, c *Context) Result {
		guild, channel := cmd.BotPermissions()
		return checkPermissions(c, KindBotMissingPermissions, func(c *Context) *discordgo.Member {
			botID := c.Client.BotID()
			if botID == "" {
				return nil
			}
			m, err := c.Client.Member(ctx, c.GuildID, botID)
			if err != nil {
				return nil
			}
			return m
		}, guild, channel)
	}
}

// UserPermissionsInhibitor denies commands when the invoking member lacks
// required guild or channel permissions.
func UserPermissionsInhibitor() Inhibitor {
	return func(_ context.Context, cmd *Command, c *Context) Result {
		guild, channel := cmd.UserPermissions()
		return checkPermissions(c, KindUserMissingPermissions, func(c *Context) *discordgo.Member {
			return c.Member
		}, guild, channel)
	}
}

// RequiredRolesInhibitor denies members that do not hold every required role.
func RequiredRolesInhibitor() Inhibitor {
	return func(_ context.Context, cmd *Command, c *Context) Result {
		required := cmd.Roles()
		if len(required) == 0 {
			return Allow()
		}
		var held []string
		if c.Member != nil {
			held = c.Member.Roles
		}
		var missing []string
		for _, r := range required {
			if !slices.Contains(held, r) {
				missing = append(missing, r)
			}
		}
		if len(missing) > 0 {
			return Deny(&Error{Kind: KindMissingRequiredRoles, Roles: missing})
		}
		return Allow()
	}
}

// DefaultInhibitors returns a chain with the built-in inhibitors in their
// default order.
func DefaultInhibitors(t *CooldownTracker, owners []string, guildOnly, dmOnly bool) *InhibitorChain {
	ic := NewInhibitorChain()
	ic.Add(InhibitorScope, ScopeInhibitor(guildOnly, dmOnly))
	ic.Add(InhibitorOwnerOnly, OwnerOnlyInhibitor(owners))
	ic.Add(InhibitorNSFW, NSFWInhibitor())
	ic.Add(InhibitorBotPermissions, BotPermissionsInhibitor())
	ic.Add(InhibitorUserPermissions, UserPermissionsInhibitor())
	ic.Add(InhibitorRequiredRoles, RequiredRolesInhibitor())
	ic.Add(InhibitorCooldown, CooldownInhibitor(t))
	return ic
}
