package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var ErrEmptySnapshot = errors.New("snapshot is empty")

// SnapshotRepository mirrors room snapshots to Redis for external observers.
// The latest snapshot of a room is kept under StateKey and every snapshot is
// published on UpdatesChannel. Nothing is read back by the server.
type SnapshotRepository struct {
	client *redis.Client
}

func NewSnapshotRepository(client *redis.Client) *SnapshotRepository {
	return &SnapshotRepository{
		client: client,
	}
}

func StateKey(roomID string) string {
	return "room:" + roomID + ":state"
}

func UpdatesChannel(roomID string) string {
	return "room:" + roomID + ":updates"
}

// Save - stores the snapshot and publishes it in one round trip.
func (that *SnapshotRepository) Save(ctx context.Context, roomID string, snapshot []byte) error {
	if len(snapshot) == 0 {
		return ErrEmptySnapshot
	}

	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, StateKey(roomID), snapshot, 0)
		pipe.Publish(ctx, UpdatesChannel(roomID), snapshot)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot of room %s: %w", roomID, err)
	}

	return nil
}
