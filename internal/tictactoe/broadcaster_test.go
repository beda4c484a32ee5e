package tictactoe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-live/internal/entity"
)

func versioned(version uint64) *entity.GameState {
	state := entity.NewGameState()
	state.Version = version

	return state
}

func versionsOf(states []entity.GameState) []uint64 {
	versions := make([]uint64, 0, len(states))
	for _, state := range states {
		versions = append(versions, state.Version)
	}

	return versions
}

func TestBroadcaster_Publish(t *testing.T) {
	t.Run("Delivers in increasing version order", func(t *testing.T) {
		// Given: one recipient
		broadcaster := NewBroadcaster(discardLogger(), DefaultOutboxSize, time.Second)
		t.Cleanup(broadcaster.Close)

		conn := newFakeConn("conn")

		// When: snapshots are published out of order
		for _, version := range []uint64{1, 2, 4, 3, 5} {
			broadcaster.Publish(versioned(version), []Recipient{conn})
		}

		// Then: the stale one is skipped
		require.Eventually(t, func() bool { return conn.lastVersion() == 5 }, waitFor, tick)
		assert.Equal(t, []uint64{1, 2, 4, 5}, versionsOf(conn.received()))
	})

	t.Run("A failing recipient does not affect the others", func(t *testing.T) {
		// Given: a broken and a healthy recipient
		broadcaster := NewBroadcaster(discardLogger(), DefaultOutboxSize, time.Second)
		t.Cleanup(broadcaster.Close)

		broken := newFakeConn("broken")
		broken.err = errBrokenPipe
		healthy := newFakeConn("healthy")

		// When: two snapshots are published
		broadcaster.Publish(versioned(1), []Recipient{broken, healthy})
		broadcaster.Publish(versioned(2), []Recipient{broken, healthy})

		// Then: the healthy one gets both
		require.Eventually(t, func() bool { return healthy.lastVersion() == 2 }, waitFor, tick)
		assert.Equal(t, []uint64{1, 2}, versionsOf(healthy.received()))
		assert.Empty(t, broken.received())
	})

	t.Run("A stalled recipient only loses its oldest snapshots", func(t *testing.T) {
		// Given: a recipient whose writes hang and a tiny outbox
		broadcaster := NewBroadcaster(discardLogger(), 2, time.Minute)
		t.Cleanup(broadcaster.Close)

		stalled := newFakeConn("stalled")
		stalled.block = make(chan struct{})
		stalled.entered = make(chan struct{}, 1)
		healthy := newFakeConn("healthy")

		// When: many snapshots are published while it is stuck on the first one
		broadcaster.Publish(versioned(1), []Recipient{stalled, healthy})

		select {
		case <-stalled.entered:
		case <-time.After(waitFor):
			require.FailNow(t, "stalled recipient never started writing")
		}

		for version := uint64(2); version <= 6; version++ {
			broadcaster.Publish(versioned(version), []Recipient{stalled, healthy})
		}

		// Then: the healthy one is not held up
		require.Eventually(t, func() bool { return healthy.lastVersion() == 6 }, waitFor, tick)

		// When: the stalled one recovers
		close(stalled.block)

		// Then: it gets the first snapshot and the newest ones that fit
		require.Eventually(t, func() bool { return stalled.lastVersion() == 6 }, waitFor, tick)
		assert.Equal(t, []uint64{1, 5, 6}, versionsOf(stalled.received()))
	})

	t.Run("Watchers get every snapshot", func(t *testing.T) {
		// Given: a watcher and no players
		broadcaster := NewBroadcaster(discardLogger(), DefaultOutboxSize, time.Second)
		t.Cleanup(broadcaster.Close)

		watcher := newFakeConn("mirror")
		broadcaster.Watch(watcher)

		// When: snapshots are published to nobody
		broadcaster.Publish(versioned(1), nil)
		broadcaster.Publish(versioned(2), nil)

		// Then: the watcher still receives them
		require.Eventually(t, func() bool { return watcher.lastVersion() == 2 }, waitFor, tick)
	})
}

func TestBroadcaster_Forget(t *testing.T) {
	// Given: a recipient stuck on its first snapshot with another one pending
	broadcaster := NewBroadcaster(discardLogger(), DefaultOutboxSize, time.Minute)
	t.Cleanup(broadcaster.Close)

	conn := newFakeConn("gone")
	conn.block = make(chan struct{})
	conn.entered = make(chan struct{}, 1)

	broadcaster.Publish(versioned(1), []Recipient{conn})

	select {
	case <-conn.entered:
	case <-time.After(waitFor):
		require.FailNow(t, "recipient never started writing")
	}

	broadcaster.Publish(versioned(2), []Recipient{conn})

	// When: it is forgotten and its write completes
	broadcaster.Forget(conn.ID())
	close(conn.block)

	// Then: the pending snapshot is dropped and its outbox is gone
	require.Eventually(t, func() bool { return conn.lastVersion() == 1 }, waitFor, tick)
	assert.Never(t, func() bool { return conn.lastVersion() == 2 }, 50*tick, tick)
	assert.Zero(t, broadcaster.outboxCount())
}
