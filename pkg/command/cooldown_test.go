// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package command

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestCooldownTracker_AllowsUpToLimit(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newFakeClock()
	tracker := NewCooldownTracker(CooldownConfig{Now: clock.Now})
	defer tracker.Close()

	cmd := mustCommand(t, Options{Name: "roll", Cooldown: &Cooldown{Duration: 10 * time.Second, AllowedUses: 2}})

	assert.Nil(t, tracker.Check(authorID, cmd))
	assert.Nil(t, tracker.Check(authorID, cmd))

	denied := tracker.Check(authorID, cmd)
	require.NotNil(t, denied)
	assert.Equal(t, KindCooldown, denied.Kind)
	require.NotNil(t, denied.Cooldown)
	assert.Equal(t, 10*time.Second, denied.Cooldown.Remaining())

	// Other actors are tracked separately.
	assert.Nil(t, tracker.Check(otherUserID, cmd))
}

func TestCooldownTracker_WindowRestartsAfterExpiry(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newFakeClock()
	tracker := NewCooldownTracker(CooldownConfig{Now: clock.Now})
	defer tracker.Close()

	cmd := mustCommand(t, Options{Name: "daily", Cooldown: &Cooldown{Duration: time.Minute}})

	require.Nil(t, tracker.Check(authorID, cmd))
	clock.Advance(30 * time.Second)

	denied := tracker.Check(authorID, cmd)
	require.NotNil(t, denied)
	assert.Equal(t, 30*time.Second, denied.Cooldown.Remaining())

	clock.Advance(30 * time.Second)
	assert.Nil(t, tracker.Check(authorID, cmd), "expiry instant reopens the window")
	assert.NotNil(t, tracker.Check(authorID, cmd))
}

func TestCooldownTracker_RemainingNeverGrowsWhileDenied(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newFakeClock()
	tracker := NewCooldownTracker(CooldownConfig{Now: clock.Now})
	defer tracker.Close()

	cmd := mustCommand(t, Options{Name: "spam", Cooldown: &Cooldown{Duration: 5 * time.Second}})
	require.Nil(t, tracker.Check(authorID, cmd))

	last := time.Duration(1<<63 - 1)
	for range 4 {
		clock.Advance(time.Second)
		denied := tracker.Check(authorID, cmd)
		require.NotNil(t, denied)
		remaining := denied.Cooldown.Remaining()
		assert.Less(t, remaining, last)
		last = remaining
	}
}

func TestCooldownTracker_Exemptions(t *testing.T) {
	defer goleak.VerifyNone(t)

	tracker := NewCooldownTracker(CooldownConfig{IgnoreCooldown: []string{ownerUserID}})
	defer tracker.Close()

	cmd := mustCommand(t, Options{
		Name:           "daily",
		Cooldown:       &Cooldown{Duration: time.Hour},
		IgnoreCooldown: []string{otherUserID},
	})

	for range 3 {
		assert.Nil(t, tracker.Check(ownerUserID, cmd))
		assert.Nil(t, tracker.Check(otherUserID, cmd))
	}
	assert.Zero(t, tracker.Len())
}

func TestCooldownTracker_DefaultCooldown(t *testing.T) {
	defer goleak.VerifyNone(t)

	tracker := NewCooldownTracker(CooldownConfig{Default: &Cooldown{Duration: time.Minute}})
	defer tracker.Close()

	cmd := mustCommand(t, Options{Name: "plain"})
	assert.Nil(t, tracker.Check(authorID, cmd))
	assert.NotNil(t, tracker.Check(authorID, cmd))

	untracked := NewCooldownTracker(CooldownConfig{})
	defer untracked.Close()
	for range 3 {
		assert.Nil(t, untracked.Check(authorID, cmd))
	}
}

func TestCooldownTracker_KeyedBySubcommandPath(t *testing.T) {
	defer goleak.VerifyNone(t)

	tracker := NewCooldownTracker(CooldownConfig{})
	defer tracker.Close()

	add := mustSubcommand(t, Options{Name: "add"})
	remove := mustSubcommand(t, Options{Name: "remove"})
	mustCommand(t, Options{
		Name:        "role",
		Cooldown:    &Cooldown{Duration: time.Minute},
		Subcommands: []*Command{add, remove},
	})

	assert.Nil(t, tracker.Check(authorID, add))
	assert.Nil(t, tracker.Check(authorID, remove))
	assert.NotNil(t, tracker.Check(authorID, add))
	assert.Equal(t, 2, tracker.Len())
}

func TestCooldownTracker_SweepAndGauge(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newFakeClock()
	reg := prometheus.NewRegistry()
	tracker := NewCooldownTrackerWithRegistry(CooldownConfig{Now: clock.Now}, reg)
	defer tracker.Close()

	short := mustCommand(t, Options{Name: "short", Cooldown: &Cooldown{Duration: time.Second}})
	long := mustCommand(t, Options{Name: "long", Cooldown: &Cooldown{Duration: time.Hour}})
	require.Nil(t, tracker.Check(authorID, short))
	require.Nil(t, tracker.Check(authorID, long))
	assert.InDelta(t, 2, testutil.ToFloat64(tracker.entryGauge), 0)

	clock.Advance(time.Second)
	tracker.Sweep()

	assert.Equal(t, 1, tracker.Len())
	assert.InDelta(t, 1, testutil.ToFloat64(tracker.entryGauge), 0)
}

func TestCooldownTracker_CloseIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	tracker := NewCooldownTracker(CooldownConfig{SweepInterval: time.Millisecond})
	time.Sleep(5 * time.Millisecond)
	tracker.Close()
	tracker.Close()
}

func TestCooldownTracker_ConcurrentChecks(t *testing.T) {
	defer goleak.VerifyNone(t)

	tracker := NewCooldownTracker(CooldownConfig{})
	defer tracker.Close()

	cmd := mustCommand(t, Options{Name: "burst", Cooldown: &Cooldown{Duration: time.Hour, AllowedUses: 5}})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tracker.Check(authorID, cmd) == nil {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, allowed)
}
