// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package command

import (
	"maps"

	"github.com/bwmarrin/discordgo"
)

// Mentionable is the value of a mentionable argument: either a user (with
// member data when invoked in a guild) or a role.
type Mentionable struct {
	User   *discordgo.User
	Member *discordgo.Member
	Role   *discordgo.Role
}

// Values is the argument accessor bound to one invocation. Values are
// resolved once before the handler runs, so the accessors behave the same
// whether they came from message tokens or interaction options. Accessors
// return the zero value for absent arguments.
type Values struct {
	values     map[string]any
	subcommand string
}

func newValues() *Values {
	return &Values{values: make(map[string]any)}
}

func (v *Values) set(name string, value any) {
	v.values[name] = value
}

// Get returns the raw value of the named argument.
func (v *Values) Get(name string) (any, bool) {
	if v == nil {
		return nil, false
	}
	val, ok := v.values[name]
	return val, ok
}

// Has reports whether the named argument has a value.
func (v *Values) Has(name string) bool {
	_, ok := v.Get(name)
	return ok
}

// All returns a copy of every bound value.
func (v *Values) All() map[string]any {
	if v == nil {
		return map[string]any{}
	}
	return maps.Clone(v.values)
}

// GetString returns a string argument.
func (v *Values) GetString(name string) string {
	val, _ := v.Get(name)
	s, _ := val.(string)
	return s
}

// GetStrings returns a variadic string argument.
func (v *Values) GetStrings(name string) []string {
	val, _ := v.Get(name)
	switch s := val.(type) {
	case []string:
		return s
	case string:
		return []string{s}
	}
	return nil
}

// GetNumber returns a number or integer argument as a float.
func (v *Values) GetNumber(name string) float64 {
	val, _ := v.Get(name)
	switch n := val.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

// GetInteger returns a number or integer argument truncated to an int64.
func (v *Values) GetInteger(name string) int64 {
	val, _ := v.Get(name)
	switch n := val.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

// GetBoolean returns a boolean argument.
func (v *Values) GetBoolean(name string) bool {
	val, _ := v.Get(name)
	b, _ := val.(bool)
	return b
}

// GetUser returns the user of a user, member or mentionable argument.
func (v *Values) GetUser(name string) *discordgo.User {
	val, _ := v.Get(name)
	switch u := val.(type) {
	case *discordgo.User:
		return u
	case *discordgo.Member:
		return u.User
	case *Mentionable:
		return u.User
	}
	return nil
}

// GetMember returns the member of a member, user or mentionable argument,
// or nil when no member data is available.
func (v *Values) GetMember(name string) *discordgo.Member {
	val, _ := v.Get(name)
	switch m := val.(type) {
	case *discordgo.Member:
		return m
	case *Mentionable:
		return m.Member
	}
	return nil
}

// GetRole returns a role argument, or the role of a mentionable.
func (v *Values) GetRole(name string) *discordgo.Role {
	val, _ := v.Get(name)
	switch r := val.(type) {
	case *discordgo.Role:
		return r
	case *Mentionable:
		return r.Role
	case []*discordgo.Role:
		if len(r) > 0 {
			return r[0]
		}
	}
	return nil
}

// GetRoles returns a variadic role argument.
func (v *Values) GetRoles(name string) []*discordgo.Role {
	val, _ := v.Get(name)
	switch r := val.(type) {
	case []*discordgo.Role:
		return r
	case *discordgo.Role:
		return []*discordgo.Role{r}
	}
	return nil
}

// GetChannel returns a channel argument of any channel type.
func (v *Values) GetChannel(name string) *discordgo.Channel {
	val, _ := v.Get(name)
	c, _ := val.(*discordgo.Channel)
	return c
}

// GetAttachment returns an attachment argument.
func (v *Values) GetAttachment(name string) *discordgo.MessageAttachment {
	val, _ := v.Get(name)
	a, _ := val.(*discordgo.MessageAttachment)
	return a
}

// GetMentionable returns a mentionable argument. User and member arguments
// are wrapped.
func (v *Values) GetMentionable(name string) *Mentionable {
	val, _ := v.Get(name)
	switch m := val.(type) {
	case *Mentionable:
		return m
	case *discordgo.User:
		return &Mentionable{User: m}
	case *discordgo.Member:
		return &Mentionable{User: m.User, Member: m}
	case *discordgo.Role:
		return &Mentionable{Role: m}
	}
	return nil
}

// GetSubcommand returns the space-joined path of the invoked subcommand
// below the top-level command, e.g. "group leaf", or "".
func (v *Values) GetSubcommand() string {
	if v == nil {
		return ""
	}
	return v.subcommand
}
