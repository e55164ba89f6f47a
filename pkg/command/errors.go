// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package command

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Error codes for registration and framework failures.
const (
	CodeCommandNotFound  = "COMMAND_NOT_FOUND"
	CodeInvalidName      = "INVALID_NAME"
	CodeInvalidCommand   = "INVALID_COMMAND"
	CodeParentNotFound   = "PARENT_NOT_FOUND"
	CodeCacheFetchFailed = "CACHE_FETCH_FAILED"
)

// ErrNilClient is returned when a dispatcher or sync is built without a client.
var ErrNilClient = errors.New("platform client cannot be nil")

// ErrNilRegistry is returned when a dispatcher or sync is built without a registry.
var ErrNilRegistry = errors.New("registry cannot be nil")

// ErrCommandNotFound creates an error for a command missing from the registry.
func ErrCommandNotFound(name string) error {
	return oops.Code(CodeCommandNotFound).
		With("command", name).
		Errorf("command %q is not registered", name)
}

// ErrParentNotFound creates an error for an attach whose parent never appeared.
func ErrParentNotFound(path, missing string, attempts uint64) error {
	return oops.Code(CodeParentNotFound).
		With("path", path).
		With("missing", missing).
		With("attempts", attempts).
		Errorf("the command with name %q does not exist", missing)
}

func errInvalidCommand(name, reason string) error {
	return oops.Code(CodeInvalidCommand).
		With("command", name).
		With("reason", reason).
		Errorf("invalid command %s: %s", name, reason)
}

// ErrorKind enumerates the reasons dispatch can stop before or during a
// command handler.
type ErrorKind int

// Error kinds.
const (
	KindOther ErrorKind = iota
	KindOwnerOnly
	KindNSFW
	KindDMsOnly
	KindGuildsOnly
	KindUserMissingPermissions
	KindBotMissingPermissions
	KindCooldown
	KindMissingRequiredRoles
	KindMissingRequiredArguments
)

var kindNames = map[ErrorKind]string{
	KindOther:                    "OTHER",
	KindOwnerOnly:                "OWNER_ONLY",
	KindNSFW:                     "NSFW",
	KindDMsOnly:                  "DMS_ONLY",
	KindGuildsOnly:               "GUILDS_ONLY",
	KindUserMissingPermissions:   "USER_MISSING_PERMISSIONS",
	KindBotMissingPermissions:    "BOT_MISSING_PERMISSIONS",
	KindCooldown:                 "COOLDOWN",
	KindMissingRequiredRoles:     "MISSING_REQUIRED_ROLES",
	KindMissingRequiredArguments: "MISSING_REQUIRED_ARGUMENTS",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// CooldownInfo describes a cooldown denial.
type CooldownInfo struct {
	ExpiresAt  time.Time
	ExecutedAt time.Time
}

// Remaining returns how long the actor must wait.
func (c CooldownInfo) Remaining() time.Duration {
	return c.ExpiresAt.Sub(c.ExecutedAt)
}

// Error is delivered to the commandError / commandFail events when an
// inhibitor denies a command, a required argument is missing, or a handler
// fails. Only the fields relevant to Kind are set.
type Error struct {
	Kind ErrorKind

	// Channel is true when a permission deficiency is channel-scoped.
	Channel bool
	// Permissions lists the missing permission names.
	Permissions []string
	// Cooldown is set for KindCooldown.
	Cooldown *CooldownInfo
	// Argument names the unresolved argument for KindMissingRequiredArguments.
	Argument string
	// Roles lists the missing role ids for KindMissingRequiredRoles.
	Roles []string
	// Inhibitor names the inhibitor that produced the error, if any.
	Inhibitor string
	// Cause is the handler error or recovered panic for KindOther.
	Cause error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUserMissingPermissions, KindBotMissingPermissions:
		scope := "guild"
		if e.Channel {
			scope = "channel"
		}
		return fmt.Sprintf("%s: %s permissions %s", e.Kind, scope, strings.Join(e.Permissions, ", "))
	case KindCooldown:
		if e.Cooldown != nil {
			return fmt.Sprintf("%s: retry in %s", e.Kind, e.Cooldown.Remaining().Round(time.Millisecond))
		}
	case KindMissingRequiredArguments:
		return fmt.Sprintf("%s: %s", e.Kind, e.Argument)
	case KindMissingRequiredRoles:
		return fmt.Sprintf("%s: %s", e.Kind, strings.Join(e.Roles, ", "))
	case KindOther:
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
		}
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// ErrorMessage renders a short user-facing sentence for err.
func ErrorMessage(err error) string {
	e, ok := AsError(err)
	if !ok {
		return "Something went wrong. Try again."
	}
	switch e.Kind {
	case KindOwnerOnly:
		return "Only the bot owners can use this command."
	case KindNSFW:
		return "This command can only be used in NSFW channels."
	case KindDMsOnly:
		return "This command can only be used in direct messages."
	case KindGuildsOnly:
		return "This command can only be used in a server."
	case KindUserMissingPermissions:
		return "You are missing permissions: " + strings.Join(e.Permissions, ", ")
	case KindBotMissingPermissions:
		return "I am missing permissions: " + strings.Join(e.Permissions, ", ")
	case KindCooldown:
		if e.Cooldown != nil {
			return fmt.Sprintf("Slow down! Try again in %s.", e.Cooldown.Remaining().Round(time.Second))
		}
		return "Slow down!"
	case KindMissingRequiredRoles:
		return "You do not have the roles required to use this command."
	case KindMissingRequiredArguments:
		return fmt.Sprintf("Missing required argument %q.", e.Argument)
	default:
		return "Something went wrong. Try again."
	}
}
