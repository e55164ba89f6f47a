// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package command

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// NotFound describes an invocation that named no registered command.
type NotFound struct {
	Name        string
	Message     *discordgo.Message
	Interaction *discordgo.Interaction
}

// Events are the lifecycle hooks fired by the Registry and Dispatcher. Nil
// hooks are skipped. Hooks are read on every dispatch, so they should be set
// before events start flowing.
type Events struct {
	// CommandStart fires before inhibitors run.
	CommandStart func(ctx context.Context, c *Context)
	// CommandEnd fires after a handler returns without error.
	CommandEnd func(ctx context.Context, c *Context)
	// CommandError receives gating failures and handler errors.
	CommandError func(ctx context.Context, c *Context, err *Error)
	// CommandFail is used when CommandError is nil.
	CommandFail func(ctx context.Context, c *Context, err *Error)
	// CommandNotFound fires when a prefixed message or interaction names no
	// registered command.
	CommandNotFound func(ctx context.Context, nf NotFound)

	CommandAdd    func(cmd *Command)
	CommandRemove func(cmd *Command)
}

// sink returns the error hook, preferring CommandError.
func (e *Events) sink() func(context.Context, *Context, *Error) {
	if e == nil {
		return nil
	}
	if e.CommandError != nil {
		return e.CommandError
	}
	return e.CommandFail
}

func (e *Events) start(ctx context.Context, c *Context) {
	if e != nil && e.CommandStart != nil {
		e.CommandStart(ctx, c)
	}
}

func (e *Events) end(ctx context.Context, c *Context) {
	if e != nil && e.CommandEnd != nil {
		e.CommandEnd(ctx, c)
	}
}

func (e *Events) notFound(ctx context.Context, nf NotFound) {
	if e != nil && e.CommandNotFound != nil {
		e.CommandNotFound(ctx, nf)
	}
}

func (e *Events) add(cmd *Command) {
	if e != nil && e.CommandAdd != nil {
		e.CommandAdd(cmd)
	}
}

func (e *Events) remove(cmd *Command) {
	if e != nil && e.CommandRemove != nil {
		e.CommandRemove(cmd)
	}
}
