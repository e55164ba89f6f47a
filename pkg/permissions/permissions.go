// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

// Package permissions computes Discord permission bitsets for guild members.
//
// Base permissions are the OR of every role the member holds plus the
// @everyone role, with the guild owner implicitly granted ADMINISTRATOR.
// Channel permissions layer the channel's overwrites on top of the base set
// in the order @everyone, member roles, then the member itself. Each layer
// clears denied bits before setting allowed bits.
package permissions

import (
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/oops"
)

// CodeUnknownPermission is returned when a permission name is not recognized.
const CodeUnknownPermission = "UNKNOWN_PERMISSION"

// Administrator is the bit that implies every other permission.
const Administrator int64 = 1 << 3

// Flags maps permission names to their bit values.
var Flags = map[string]int64{
	"CREATE_INSTANT_INVITE":    1 << 0,
	"KICK_MEMBERS":             1 << 1,
	"BAN_MEMBERS":              1 << 2,
	"ADMINISTRATOR":            Administrator,
	"MANAGE_CHANNELS":          1 << 4,
	"MANAGE_GUILD":             1 << 5,
	"ADD_REACTIONS":            1 << 6,
	"VIEW_AUDIT_LOG":           1 << 7,
	"PRIORITY_SPEAKER":         1 << 8,
	"STREAM":                   1 << 9,
	"VIEW_CHANNEL":             1 << 10,
	"SEND_MESSAGES":            1 << 11,
	"SEND_TTS_MESSAGES":        1 << 12,
	"MANAGE_MESSAGES":          1 << 13,
	"EMBED_LINKS":              1 << 14,
	"ATTACH_FILES":             1 << 15,
	"READ_MESSAGE_HISTORY":     1 << 16,
	"MENTION_EVERYONE":         1 << 17,
	"USE_EXTERNAL_EMOJIS":      1 << 18,
	"VIEW_GUILD_INSIGHTS":      1 << 19,
	"CONNECT":                  1 << 20,
	"SPEAK":                    1 << 21,
	"MUTE_MEMBERS":             1 << 22,
	"DEAFEN_MEMBERS":           1 << 23,
	"MOVE_MEMBERS":             1 << 24,
	"USE_VAD":                  1 << 25,
	"CHANGE_NICKNAME":          1 << 26,
	"MANAGE_NICKNAMES":         1 << 27,
	"MANAGE_ROLES":             1 << 28,
	"MANAGE_WEBHOOKS":          1 << 29,
	"MANAGE_EMOJIS":            1 << 30,
	"USE_SLASH_COMMANDS":       1 << 31,
	"REQUEST_TO_SPEAK":         1 << 32,
	"MANAGE_EVENTS":            1 << 33,
	"MANAGE_THREADS":           1 << 34,
	"CREATE_PUBLIC_THREADS":    1 << 35,
	"CREATE_PRIVATE_THREADS":   1 << 36,
	"USE_EXTERNAL_STICKERS":    1 << 37,
	"SEND_MESSAGES_IN_THREADS": 1 << 38,
	"USE_EMBEDDED_ACTIVITIES":  1 << 39,
	"MODERATE_MEMBERS":         1 << 40,
}

// Validate checks that every name is a known permission.
func Validate(names []string) error {
	for _, name := range names {
		if _, ok := Flags[name]; !ok {
			return oops.Code(CodeUnknownPermission).
				With("permission", name).
				Errorf("unknown permission %q", name)
		}
	}
	return nil
}

// Bits returns the combined bitset for the given permission names.
func Bits(names []string) (int64, error) {
	if err := Validate(names); err != nil {
		return 0, err
	}
	var bits int64
	for _, name := range names {
		bits |= Flags[name]
	}
	return bits, nil
}

// Names returns the sorted names of every permission set in bits.
func Names(bits int64) []string {
	names := make([]string, 0)
	for name, flag := range Flags {
		if bits&flag == flag {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Base calculates the guild-level permissions of member in guild.
func Base(guild *discordgo.Guild, member *discordgo.Member) int64 {
	if guild == nil || member == nil {
		return 0
	}

	held := make(map[string]struct{}, len(member.Roles)+1)
	for _, id := range member.Roles {
		held[id] = struct{}{}
	}
	// @everyone shares the guild's id and is never listed on the member.
	held[guild.ID] = struct{}{}

	var bits int64
	for _, role := range guild.Roles {
		if _, ok := held[role.ID]; ok {
			bits |= role.Permissions
		}
	}

	if member.User != nil && guild.OwnerID == member.User.ID {
		bits |= Administrator
	}
	return bits
}

// Channel calculates the permissions of member in channel, applying the
// channel's overwrites on top of the member's guild permissions. DM channels
// grant everything, and overwrites never apply to guild administrators.
func Channel(guild *discordgo.Guild, channel *discordgo.Channel, member *discordgo.Member) int64 {
	if channel == nil || channel.GuildID == "" || guild == nil || member == nil {
		return Administrator
	}

	bits := Base(guild, member)
	if bits&Administrator != 0 {
		return Administrator
	}

	var everyone, self *discordgo.PermissionOverwrite
	var roleAllow, roleDeny int64

	roles := make(map[string]struct{}, len(member.Roles))
	for _, id := range member.Roles {
		roles[id] = struct{}{}
	}
	memberID := ""
	if member.User != nil {
		memberID = member.User.ID
	}

	for _, ow := range channel.PermissionOverwrites {
		switch {
		case ow.ID == channel.GuildID:
			everyone = ow
		case ow.Type == discordgo.PermissionOverwriteTypeMember && ow.ID == memberID:
			self = ow
		case ow.Type == discordgo.PermissionOverwriteTypeRole:
			if _, ok := roles[ow.ID]; ok {
				roleAllow |= ow.Allow
				roleDeny |= ow.Deny
			}
		}
	}

	if everyone != nil {
		bits &^= everyone.Deny
		bits |= everyone.Allow
	}

	bits &^= roleDeny
	bits |= roleAllow

	if self != nil {
		bits &^= self.Deny
		bits |= self.Allow
	}
	return bits
}

// Has reports whether bits grants every named permission. ADMINISTRATOR
// grants everything.
func Has(bits int64, names []string) bool {
	return len(Missing(bits, names)) == 0
}

// Missing returns the names from required that bits does not grant, in the
// order given. Unknown names are reported as missing.
func Missing(bits int64, required []string) []string {
	if bits&Administrator == Administrator {
		return nil
	}
	var missing []string
	for _, name := range required {
		flag, ok := Flags[strings.ToUpper(name)]
		if !ok || bits&flag != flag {
			missing = append(missing, name)
		}
	}
	return missing
}
