// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package command

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"

	"github.com/amethyst-dev/amethyst/pkg/permissions"
)

const (
	// MaxNameLength is the maximum length for command, alias and argument names.
	MaxNameLength = 32
	// MaxDescriptionLength is the platform limit for descriptions.
	MaxDescriptionLength = 100
)

// namePattern mirrors the platform's chat-input naming rule, restricted to
// lower case so message and interaction lookups agree.
var namePattern = regexp.MustCompile(`^[\p{Ll}\p{Lo}\p{N}_-]{1,32}$`)

// ValidateCommandName validates a command name.
func ValidateCommandName(name string) error {
	return validateName(name, "command")
}

// ValidateAliasName validates an alias name.
func ValidateAliasName(name string) error {
	return validateName(name, "alias")
}

// ValidateArgumentName validates an argument name.
func ValidateArgumentName(name string) error {
	return validateName(name, "argument")
}

func validateName(name, kind string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return oops.Code(CodeInvalidName).
			With("kind", kind).
			Errorf("%s name cannot be empty", kind)
	}

	if n := utf8.RuneCountInString(trimmed); n > MaxNameLength {
		return oops.Code(CodeInvalidName).
			With("kind", kind).
			With("length", n).
			With("max", MaxNameLength).
			Errorf("%s name exceeds maximum length of %d", kind, MaxNameLength)
	}

	if trimmed != name || !namePattern.MatchString(trimmed) {
		return oops.Code(CodeInvalidName).
			With("kind", kind).
			With("name", name).
			Errorf("%s name must be lower case letters, digits, _ or -", kind)
	}

	return nil
}

func validateOptions(opts Options, node NodeType) error {
	if err := ValidateCommandName(opts.Name); err != nil {
		return err
	}
	if node == NodeCommand && strings.Contains(opts.Name, "-") {
		// Attach paths split on the first hyphen.
		return errInvalidCommand(opts.Name, "top-level names cannot contain '-'")
	}
	for _, alias := range opts.Aliases {
		if err := ValidateAliasName(alias); err != nil {
			return err
		}
	}
	if utf8.RuneCountInString(opts.Description) > MaxDescriptionLength {
		return errInvalidCommand(opts.Name, "description exceeds 100 characters")
	}
	if opts.GuildOnly && opts.DMOnly {
		return errInvalidCommand(opts.Name, "guildOnly and dmOnly are mutually exclusive")
	}
	if node != NodeCommand && (opts.Scope != ScopeGlobal || len(opts.GuildIDs) > 0) {
		return errInvalidCommand(opts.Name, "scope and guild ids are only valid on top-level commands")
	}
	if opts.Scope != ScopeGlobal && opts.Scope != ScopeGuild {
		return errInvalidCommand(opts.Name, "unknown scope "+string(opts.Scope))
	}
	if opts.Kind&^KindAll != 0 {
		return errInvalidCommand(opts.Name, "unknown kind")
	}
	if opts.Cooldown != nil && opts.Cooldown.Duration <= 0 {
		return errInvalidCommand(opts.Name, "cooldown duration must be positive")
	}
	for _, perms := range [][]string{
		opts.UserGuildPermissions, opts.UserChannelPermissions,
		opts.BotGuildPermissions, opts.BotChannelPermissions,
	} {
		if err := permissions.Validate(perms); err != nil {
			return oops.With("command", opts.Name).Wrap(err)
		}
	}
	if node == NodeGroup && len(opts.Arguments) > 0 {
		return errInvalidCommand(opts.Name, "groups cannot declare arguments")
	}
	return validateArguments(opts.Name, opts.Arguments)
}

func validateArguments(cmd string, args []Argument) error {
	seen := make(map[string]struct{}, len(args))
	optional := false
	for i, arg := range args {
		if err := ValidateArgumentName(arg.Name); err != nil {
			return oops.With("command", cmd).Wrap(err)
		}
		if _, dup := seen[arg.Name]; dup {
			return errInvalidCommand(cmd, "duplicate argument "+arg.Name)
		}
		seen[arg.Name] = struct{}{}
		if arg.Type.Variadic() && i != len(args)-1 {
			return errInvalidCommand(cmd, "variadic argument "+arg.Name+" must be last")
		}
		if arg.Maximum != 0 && arg.Maximum < arg.Minimum {
			return errInvalidCommand(cmd, "argument "+arg.Name+" has maximum below minimum")
		}
		if !arg.Required() {
			optional = true
		} else if optional {
			// Interaction options must list required ones first.
			return errInvalidCommand(cmd, "required argument "+arg.Name+" follows an optional one")
		}
	}
	return nil
}
