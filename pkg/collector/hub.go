// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

// Package collector waits for follow-up gateway events (messages, reactions,
// component interactions) addressed to a pending command.
package collector

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"
)

// Error codes for collector failures.
const (
	CodeCollectorTimeout  = "COLLECTOR_TIMEOUT"
	CodeCollectorReplaced = "COLLECTOR_REPLACED"
)

// Defaults applied to zero Options fields.
const (
	DefaultMax     = 1
	DefaultTimeout = 15 * time.Minute
)

// Options configures a single Collect call.
type Options[T any] struct {
	// Filter decides whether an event counts. Nil accepts everything.
	Filter func(T) bool
	// Max is the number of events to collect before returning.
	Max int
	// Timeout bounds the wait in addition to the caller's context.
	Timeout time.Duration
}

type result[T any] struct {
	items []T
	err   error
}

type waiter[T any] struct {
	filter func(T) bool
	max    int
	items  []T
	done   chan result[T]
}

// Hub routes published events to at most one waiter per key.
type Hub[T any] struct {
	kind  string
	keyOf func(T) string

	mu      sync.Mutex
	waiters map[string]*waiter[T]
}

// NewHub creates a hub. keyOf derives the routing key of an event; kind
// labels the hub in errors and metrics.
func NewHub[T any](kind string, keyOf func(T) string) *Hub[T] {
	return &Hub[T]{
		kind:    kind,
		keyOf:   keyOf,
		waiters: make(map[string]*waiter[T]),
	}
}

// Collect blocks until opts.Max events for key have been published, the
// timeout elapses, or ctx is done. Starting a second Collect on the same key
// ends the first with a COLLECTOR_REPLACED error. On timeout the events
// collected so far are returned alongside the error.
func (h *Hub[T]) Collect(ctx context.Context, key string, opts Options[T]) ([]T, error) {
	if opts.Max <= 0 {
		opts.Max = DefaultMax
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	w := &waiter[T]{
		filter: opts.Filter,
		max:    opts.Max,
		done:   make(chan result[T], 1),
	}

	h.mu.Lock()
	if prev, ok := h.waiters[key]; ok {
		prev.done <- result[T]{items: prev.items, err: oops.Code(CodeCollectorReplaced).
			With("kind", h.kind).
			With("key", key).
			New("a new collector began before the previous one finished")}
	}
	h.waiters[key] = w
	h.mu.Unlock()
	ActiveCollectors.WithLabelValues(h.kind).Inc()
	defer ActiveCollectors.WithLabelValues(h.kind).Dec()

	timer := time.NewTimer(opts.Timeout)
	defer timer.Stop()

	select {
	case res := <-w.done:
		return res.items, res.err
	case <-timer.C:
		return h.abandon(key, w, oops.Code(CodeCollectorTimeout).
			With("kind", h.kind).
			With("key", key).
			With("timeout", opts.Timeout).
			Errorf("%s collector timed out after %s", h.kind, opts.Timeout))
	case <-ctx.Done():
		return h.abandon(key, w, oops.Code(CodeCollectorTimeout).
			With("kind", h.kind).
			With("key", key).
			Wrap(ctx.Err()))
	}
}

// abandon removes w if it is still registered. A result delivered between the
// wakeup and the lock wins over err.
func (h *Hub[T]) abandon(key string, w *waiter[T], err error) ([]T, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case res := <-w.done:
		return res.items, res.err
	default:
	}
	if h.waiters[key] == w {
		delete(h.waiters, key)
	}
	return w.items, err
}

// Publish offers an event to the waiter registered under its key. It reports
// whether the event was collected.
func (h *Hub[T]) Publish(item T) bool {
	key := h.keyOf(item)
	if key == "" {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	w, ok := h.waiters[key]
	if !ok {
		return false
	}
	if w.filter != nil && !w.filter(item) {
		return false
	}
	w.items = append(w.items, item)
	if len(w.items) >= w.max {
		delete(h.waiters, key)
		w.done <- result[T]{items: w.items}
	}
	return true
}

// Pending reports the number of open collectors.
func (h *Hub[T]) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.waiters)
}
