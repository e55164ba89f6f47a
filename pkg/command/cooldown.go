// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package command

import (
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultSweepInterval is how often expired cooldown entries are evicted.
const DefaultSweepInterval = 30 * time.Second

// CooldownConfig configures a CooldownTracker.
type CooldownConfig struct {
	// SweepInterval defaults to DefaultSweepInterval if zero or negative.
	SweepInterval time.Duration
	// IgnoreCooldown lists actor ids exempt from every cooldown.
	IgnoreCooldown []string
	// Default applies to commands that have no cooldown of their own.
	Default *Cooldown
	// Now replaces time.Now, for tests.
	Now func() time.Time
}

type cooldownEntry struct {
	used      int
	expiresAt time.Time
}

// CooldownTracker counts command uses per actor and command within a window.
// It is safe for concurrent use.
//
// The tracker runs a background goroutine that evicts expired entries. Call
// Close() to stop the goroutine and release resources.
type CooldownTracker struct {
	mu      sync.Mutex
	entries map[string]*cooldownEntry

	ignore []string
	def    *Cooldown
	now    func() time.Time

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	// Metrics gauge for entry count (nil if no registry provided)
	entryGauge prometheus.Gauge
}

// NewCooldownTracker creates a tracker and starts its sweep goroutine.
func NewCooldownTracker(cfg CooldownConfig) *CooldownTracker {
	return newCooldownTracker(cfg, nil)
}

// NewCooldownTrackerWithRegistry creates a tracker and registers an entry
// count gauge with the provided Prometheus registry.
func NewCooldownTrackerWithRegistry(cfg CooldownConfig, reg prometheus.Registerer) *CooldownTracker {
	return newCooldownTracker(cfg, reg)
}

func newCooldownTracker(cfg CooldownConfig, reg prometheus.Registerer) *CooldownTracker {
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	def := cfg.Default
	if def != nil && def.AllowedUses <= 0 {
		d := *def
		d.AllowedUses = 1
		def = &d
	}

	t := &CooldownTracker{
		entries:  make(map[string]*cooldownEntry),
		ignore:   slices.Clone(cfg.IgnoreCooldown),
		def:      def,
		now:      now,
		stopChan: make(chan struct{}),
	}

	if reg != nil {
		t.entryGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "amethyst_cooldown_entries",
			Help: "Current number of tracked cooldown entries",
		})
		reg.MustRegister(t.entryGauge)
	}

	t.wg.Add(1)
	go t.sweepLoop(interval)

	return t
}

func cooldownKey(actorID string, cmd *Command) string {
	return actorID + "-" + cmd.FullName()
}

// Check records one use of cmd by actorID. It returns nil when the use is
// allowed and a KindCooldown error when the actor has exhausted the window.
//
// The first use opens a window ending Duration from now. Each allowed use
// inside the window extends it. Once AllowedUses is reached, uses are
// denied until the window expires, after which the count restarts.
func (t *CooldownTracker) Check(actorID string, cmd *Command) *Error {
	cd := cmd.EffectiveCooldown()
	if cd == nil {
		cd = t.def
	}
	if cd == nil || cmd.CooldownExempt(actorID) || slices.Contains(t.ignore, actorID) {
		return nil
	}

	key := cooldownKey(actorID, cmd)
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[key]
	if !ok {
		t.entries[key] = &cooldownEntry{used: 1, expiresAt: now.Add(cd.Duration)}
		t.updateGauge()
		return nil
	}

	if entry.used >= cd.AllowedUses {
		if now.Before(entry.expiresAt) {
			return &Error{
				Kind:     KindCooldown,
				Cooldown: &CooldownInfo{ExpiresAt: entry.expiresAt, ExecutedAt: now},
			}
		}
		entry.used = 0
	}

	entry.used++
	entry.expiresAt = now.Add(cd.Duration)
	return nil
}

// Len returns the number of tracked entries.
func (t *CooldownTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Sweep removes entries whose window has expired. It is called by the
// background goroutine but may be called directly.
func (t *CooldownTracker) Sweep() {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	for key, entry := range t.entries {
		if !now.Before(entry.expiresAt) {
			delete(t.entries, key)
		}
	}
	t.updateGauge()
}

// updateGauge must be called with mu held.
func (t *CooldownTracker) updateGauge() {
	if t.entryGauge != nil {
		t.entryGauge.Set(float64(len(t.entries)))
	}
}

func (t *CooldownTracker) sweepLoop(interval time.Duration) {
	defer t.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopChan:
			return
		case <-ticker.C:
			t.Sweep()
		}
	}
}

// Close stops the sweep goroutine. It blocks until the goroutine has stopped
// and is safe to call more than once.
func (t *CooldownTracker) Close() {
	t.closeOnce.Do(func() {
		close(t.stopChan)
	})
	t.wg.Wait()
}
