// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package command

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Attach retry budget defaults. Commands may be registered in any order, so
// an attach waits for its parent to appear.
const (
	DefaultAttachAttempts = 20
	DefaultAttachDelay    = 500 * time.Millisecond
)

// Registry manages command registration and lookup.
// It is thread-safe for concurrent access.
type Registry struct {
	commands map[string]*Command
	mu       sync.RWMutex

	logger   *slog.Logger
	events   *Events
	attempts uint64
	delay    time.Duration
}

// RegistryOption configures a Registry during construction.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger used for overwrite warnings.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithRegistryEvents sets the hooks that receive CommandAdd and CommandRemove.
func WithRegistryEvents(e *Events) RegistryOption {
	return func(r *Registry) {
		r.events = e
	}
}

// WithAttachBackoff sets the attach retry budget.
func WithAttachBackoff(attempts uint64, delay time.Duration) RegistryOption {
	return func(r *Registry) {
		if attempts > 0 {
			r.attempts = attempts
		}
		if delay > 0 {
			r.delay = delay
		}
	}
}

// NewRegistry creates a new command registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		attempts: DefaultAttachAttempts,
		delay:    DefaultAttachDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Register adds a top-level command.
// If a command with the same name exists, it is replaced wholesale and a
// warning is logged. Fields are never merged.
func (r *Registry) Register(cmd *Command) error {
	if cmd == nil {
		return errInvalidCommand("", "command is nil")
	}
	if cmd.node != NodeCommand {
		return errInvalidCommand(cmd.Name, cmd.node.String()+" cannot be registered at top level")
	}

	r.mu.Lock()
	if existing, ok := r.commands[cmd.Name]; ok {
		r.logger.Warn("command conflict: overwriting existing command",
			"command", cmd.Name,
			"previous_category", existing.Category,
			"new_category", cmd.Category)
	}
	r.commands[cmd.Name] = cmd
	r.mu.Unlock()

	r.events.add(cmd)
	return nil
}

// Update replaces an existing command. Unlike Register it fails when no
// command of that name is registered.
func (r *Registry) Update(cmd *Command) error {
	if cmd == nil {
		return errInvalidCommand("", "command is nil")
	}
	r.mu.Lock()
	if _, ok := r.commands[cmd.Name]; !ok {
		r.mu.Unlock()
		return ErrCommandNotFound(cmd.Name)
	}
	r.commands[cmd.Name] = cmd
	r.mu.Unlock()

	r.events.add(cmd)
	return nil
}

// Find retrieves a top-level command by exact name.
func (r *Registry) Find(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmd, ok := r.commands[name]
	return cmd, ok
}

// FindByAliasOrName resolves a message invocation: exact name first, then
// aliases. Commands that do not accept message invocations are skipped.
func (r *Registry) FindByAliasOrName(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cmd, ok := r.commands[name]; ok && cmd.Kind.Has(KindMessage) {
		return cmd, true
	}
	for _, cmd := range r.commands {
		if cmd.Kind.Has(KindMessage) && slices.Contains(cmd.Aliases, name) {
			return cmd, true
		}
	}
	return nil, false
}

// Delete removes a command. It reports whether one was removed.
func (r *Registry) Delete(name string) bool {
	r.mu.Lock()
	cmd, ok := r.commands[name]
	delete(r.commands, name)
	r.mu.Unlock()

	if ok {
		r.events.remove(cmd)
	}
	return ok
}

// All returns all registered commands sorted by name.
// The returned slice is a copy and safe to modify.
func (r *Registry) All() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of top-level commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// AttachOptions tunes AttachSubcommand.
type AttachOptions struct {
	// NoSplit treats the whole path as the parent command name instead of
	// splitting "parent-group" at the first hyphen.
	NoSplit bool
}

// AttachSubcommand attaches sub under the node named by path. A path of
// "parent-group" targets subcommand group "group" of command "parent". If
// the target is not registered yet the lookup is retried within the
// registry's attach budget, after which a PARENT_NOT_FOUND error naming the
// missing node is returned.
func (r *Registry) AttachSubcommand(ctx context.Context, path string, sub *Command, opts AttachOptions) error {
	if sub == nil {
		return errInvalidCommand(path, "subcommand is nil")
	}
	if sub.node != NodeSubcommand && sub.node != NodeGroup {
		return errInvalidCommand(sub.Name, "only subcommands and groups can be attached")
	}

	parentName, groupName := path, ""
	if !opts.NoSplit {
		if before, after, ok := strings.Cut(path, "-"); ok {
			parentName, groupName = before, after
		}
	}
	if sub.node == NodeGroup && groupName != "" {
		return errInvalidCommand(sub.Name, "groups attach directly to a top-level command")
	}

	var attempt uint64
	b := retry.WithMaxRetries(r.attempts-1, retry.NewConstant(r.delay))
	err := retry.Do(ctx, b, func(_ context.Context) error {
		attempt++
		target, missing := r.resolveAttachTarget(parentName, groupName)
		if target == nil {
			return retry.RetryableError(ErrParentNotFound(path, missing, attempt))
		}
		return target.attach(sub)
	})
	if err != nil {
		return oops.With("subcommand", sub.Name).Wrap(err)
	}

	r.logger.Debug("attached subcommand", "path", path, "subcommand", sub.Name, "attempts", attempt)
	return nil
}

// AttachSubcommandGroup attaches a group directly under the named command.
func (r *Registry) AttachSubcommandGroup(ctx context.Context, parent string, group *Command) error {
	if group == nil || group.node != NodeGroup {
		return errInvalidCommand(parent, "AttachSubcommandGroup requires a group")
	}
	return r.AttachSubcommand(ctx, parent, group, AttachOptions{NoSplit: true})
}

func (r *Registry) resolveAttachTarget(parentName, groupName string) (*Command, string) {
	parent, ok := r.Find(parentName)
	if !ok {
		return nil, parentName
	}
	if groupName == "" {
		return parent, ""
	}
	group, ok := parent.Child(groupName)
	if !ok || group.node != NodeGroup {
		return nil, groupName
	}
	return group, ""
}
