// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package command

import "context"

// ArgumentType tags an argument with the resolver that produces its value.
type ArgumentType string

// Built-in argument types. Types prefixed with "..." are variadic and
// consume every remaining token.
const (
	ArgString           ArgumentType = "string"
	ArgStrings          ArgumentType = "...strings"
	ArgNumber           ArgumentType = "number"
	ArgInteger          ArgumentType = "integer"
	ArgBoolean          ArgumentType = "boolean"
	ArgMember           ArgumentType = "member"
	ArgUser             ArgumentType = "user"
	ArgRole             ArgumentType = "role"
	ArgRoles            ArgumentType = "...roles"
	ArgChannel          ArgumentType = "channel"
	ArgTextChannel      ArgumentType = "textchannel"
	ArgGuildTextChannel ArgumentType = "guildtextchannel"
	ArgVoiceChannel     ArgumentType = "voicechannel"
	ArgCategoryChannel  ArgumentType = "categorychannel"
	ArgMentionable      ArgumentType = "mentionable"
	ArgAttachment       ArgumentType = "attachment"
	ArgSubcommand       ArgumentType = "subcommand"
)

// Variadic reports whether t consumes all remaining tokens.
func (t ArgumentType) Variadic() bool {
	return len(t) > 3 && t[:3] == "..."
}

// Argument describes one typed parameter of a command.
type Argument struct {
	Name        string
	Description string
	Type        ArgumentType

	// Optional marks the argument as not required. Arguments are required
	// unless Optional is set or Default is non-nil.
	Optional bool
	Default  any

	// Minimum and Maximum bound numeric values and string lengths. A zero
	// Maximum is unbounded.
	Minimum       float64
	Maximum       float64
	AllowDecimals bool

	// Literals restricts string values to this set, compared case-insensitively.
	Literals  []string
	Lowercase bool

	// Missing runs instead of the commandError event when this required
	// argument cannot be resolved.
	Missing func(ctx context.Context, c *Context)
}

// Required reports whether a missing value aborts dispatch.
func (a Argument) Required() bool {
	return !a.Optional && a.Default == nil
}
