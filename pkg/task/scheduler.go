// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package task

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/amethyst-dev/amethyst/pkg/errutil"
)

type entry struct {
	task Task
	job  cron.Job
	id   cron.EntryID
}

// Scheduler runs registered tasks on their intervals. Tasks may be added or
// removed before or after Start. It is safe for concurrent use.
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[string]*entry
	cron    *cron.Cron
	chain   cron.Chain
	logger  *slog.Logger
	running bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		tasks:  make(map[string]*entry),
		logger: slog.Default().With("component", "task-scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	cl := cronLogger{logger: s.logger}
	s.chain = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))
	s.cron = cron.New(cron.WithLogger(cl))
	return s
}

// Add registers t, replacing any task with the same name. When the scheduler
// is already running the task is scheduled immediately.
func (s *Scheduler) Add(t Task) error {
	if err := t.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.tasks[t.Name]; ok {
		s.unschedule(old)
		s.logger.Warn("task replaced", "task", t.Name)
	}
	e := &entry{task: t}
	e.job = s.chain.Then(cron.FuncJob(func() { s.run(e.task) }))
	s.tasks[t.Name] = e
	if s.running {
		s.schedule(e)
	}
	return nil
}

// Remove stops and forgets the named task. It reports whether the task existed.
func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tasks[name]
	if !ok {
		return false
	}
	s.unschedule(e)
	delete(s.tasks, name)
	return true
}

// Names returns the registered task names in sorted order.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Running reports whether Start has been called without a matching Stop.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start schedules every registered task and runs the StartOnReady ones once.
// Calling Start on a running scheduler is a no-op. Task bodies receive a
// context derived from ctx that is cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.running = true

	for _, e := range s.tasks {
		s.schedule(e)
	}
	s.cron.Start()
	s.logger.Info("task scheduler started", "tasks", len(s.tasks))
}

// Stop halts scheduling and waits for running task bodies to return or for
// ctx to be done, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	for _, e := range s.tasks {
		s.unschedule(e)
	}
	cronDone := s.cron.Stop()
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		<-cronDone.Done()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("task scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// schedule requires s.mu held and the scheduler running.
func (s *Scheduler) schedule(e *entry) {
	e.id = s.cron.Schedule(cron.Every(e.task.Interval), e.job)
	if e.task.StartOnReady {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			e.job.Run()
		}()
	}
}

// unschedule requires s.mu held.
func (s *Scheduler) unschedule(e *entry) {
	if e.id != 0 {
		s.cron.Remove(e.id)
		e.id = 0
	}
}

func (s *Scheduler) run(t Task) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	s.logger.Debug("task running", "task", t.Name)
	if err := t.Execute(ctx); err != nil {
		errutil.LogErrorContext(ctx, s.logger.With("task", t.Name), "task failed", err)
	}
}

// cronLogger bridges cron's logr-style logger onto slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
