package repository

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-live/internal/entity"
	"github.com/rocketscienceinc/tictactoe-live/testing/suite"
)

func TestSnapshotRepository_Save(t *testing.T) {
	t.Run("Keeps the latest snapshot of the room", func(t *testing.T) {
		ctx, st := suite.New(t)

		repo := NewSnapshotRepository(st.Storage)

		// Given: two consecutive snapshots
		first, err := entity.NewGameState().WithSlot(entity.PlayerX).MakeTurn(entity.PlayerX, 0, 0)
		require.NoError(t, err)
		second, err := first.WithSlot(entity.PlayerO).MakeTurn(entity.PlayerO, 1, 1)
		require.NoError(t, err)

		// When: both are saved
		for _, state := range []*entity.GameState{first, second} {
			payload, err := json.Marshal(state)
			require.NoError(t, err)
			require.NoError(t, repo.Save(ctx, "main", payload))
		}

		// Then: the key holds the second one
		stored, err := st.Storage.Get(ctx, StateKey("main")).Bytes()
		require.NoError(t, err)

		var decoded entity.GameState
		require.NoError(t, json.Unmarshal(stored, &decoded))
		assert.Equal(t, second, &decoded)
	})

	t.Run("Publishes every snapshot on the room channel", func(t *testing.T) {
		ctx, st := suite.New(t)

		repo := NewSnapshotRepository(st.Storage)

		// Given: a subscriber on the room channel
		sub := st.Storage.Subscribe(ctx, UpdatesChannel("main"))
		t.Cleanup(func() { _ = sub.Close() })

		_, err := sub.Receive(ctx)
		require.NoError(t, err)

		// When: a snapshot is saved
		payload, err := json.Marshal(entity.NewGameState())
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, "main", payload))

		// Then: the subscriber gets it
		msg, err := sub.ReceiveMessage(ctx)
		require.NoError(t, err)
		assert.JSONEq(t, string(payload), msg.Payload)
	})

	t.Run("Rejects an empty snapshot", func(t *testing.T) {
		ctx, st := suite.New(t)

		repo := NewSnapshotRepository(st.Storage)

		// When: nothing is saved
		err := repo.Save(ctx, "main", nil)

		// Then: ErrEmptySnapshot is returned and the key is not created
		require.ErrorIs(t, err, ErrEmptySnapshot)

		exists, err := st.Storage.Exists(ctx, StateKey("main")).Result()
		require.NoError(t, err)
		assert.Zero(t, exists)
	})
}
