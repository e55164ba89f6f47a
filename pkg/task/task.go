// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

// Package task runs named jobs on a fixed interval once the bot is ready.
package task

import (
	"context"
	"time"

	"github.com/samber/oops"
)

// CodeTaskInvalid marks a task rejected by Add.
const CodeTaskInvalid = "TASK_INVALID"

// MinInterval is the shortest interval the scheduler can honour.
const MinInterval = time.Second

// Task is a job run every Interval after the scheduler starts.
type Task struct {
	Name     string
	Interval time.Duration
	// StartOnReady runs the task once as soon as the scheduler starts, before
	// the first interval elapses.
	StartOnReady bool
	Execute      func(ctx context.Context) error
}

// Validate reports whether the task can be scheduled.
func (t Task) Validate() error {
	errb := oops.Code(CodeTaskInvalid).With("task", t.Name)
	switch {
	case t.Name == "":
		return errb.New("task name cannot be empty")
	case t.Interval < MinInterval:
		return errb.With("interval", t.Interval).Errorf("task %s: interval must be at least %s", t.Name, MinInterval)
	case t.Execute == nil:
		return errb.Errorf("task %s: execute function cannot be nil", t.Name)
	}
	return nil
}
