package room_management

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ifcoins/quizroom/internal/models"
)

func TestJoinRoomByCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t, 2, models.RewardPolicy{})

	player, err := env.rm.JoinRoomByCode(ctx, strings.ToLower(room.JoinCode), "u1")
	require.NoError(t, err)
	assert.Equal(t, room.ID, player.RoomID)
	assert.Nil(t, player.Position)

	joined := env.publisher.ofType(models.EventPlayerJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, 1, joined[0].Room.PlayerCount)

	t.Run("rejoin is idempotent", func(t *testing.T) {
		again, err := env.rm.JoinRoomByCode(ctx, room.JoinCode, "u1")
		require.NoError(t, err)
		assert.Equal(t, player.ID, again.ID)
		assert.Len(t, env.publisher.ofType(models.EventPlayerJoined), 1)
	})

	t.Run("bad codes", func(t *testing.T) {
		_, err := env.rm.JoinRoomByCode(ctx, "AB-12", "u1")
		assert.Equal(t, KindValidation, KindOf(err))

		_, err = env.rm.JoinRoomByCode(ctx, "ZZZZZZ", "u1")
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})
}

func TestJoinRoomByCode_AtCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t, 2, models.RewardPolicy{})
	first := env.join(t, room, "u1")
	env.join(t, room, "u2")

	_, err := env.rm.JoinRoomByCode(ctx, room.JoinCode, "u3")
	assert.ErrorIs(t, err, ErrRoomFull)

	again, err := env.rm.JoinRoomByCode(ctx, room.JoinCode, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	players, err := env.rm.ListPlayers(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, players, 2)
}

func TestJoinRoomByCode_SameUserRaceForLastSeat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t, 2, models.RewardPolicy{})
	env.join(t, room, "u1")

	// The first membership lookup of u2 misses, and before its seat update runs
	// a retry of the same join completes and takes the last seat.
	var armed atomic.Bool
	armed.Store(true)
	var retried *models.Player
	var retryErr error
	require.NoError(t, env.db.Callback().Query().After("gorm:query").Register("test:same_user_retry", func(db *gorm.DB) {
		if db.Statement.Table != "players" || !armed.CompareAndSwap(true, false) {
			return
		}
		retried, retryErr = env.rm.JoinRoomByCode(context.Background(), room.JoinCode, "u2")
	}))

	player, err := env.rm.JoinRoomByCode(ctx, room.JoinCode, "u2")
	require.NoError(t, retryErr)
	require.NotNil(t, retried)
	require.NoError(t, err, "the user is a member, so the room is not full for them")
	assert.Equal(t, retried.ID, player.ID)

	players, err := env.rm.ListPlayers(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, players, 2)
	current, err := env.rm.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, current.PlayerCount)
	assert.Len(t, env.publisher.ofType(models.EventPlayerJoined), 2)
}

func TestJoinRoomByCode_AfterStart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t, 4, models.RewardPolicy{})
	member := env.join(t, room, "u1")
	env.start(t, room)

	_, err := env.rm.JoinRoomByCode(ctx, room.JoinCode, "late")
	assert.ErrorIs(t, err, ErrInvalidState)

	again, err := env.rm.JoinRoomByCode(ctx, room.JoinCode, "u1")
	require.NoError(t, err, "a reconnecting member gets its player back")
	assert.Equal(t, member.ID, again.ID)
}

func TestJoinRoomByCode_ConcurrentJoinersRespectCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const capacity = 5
	room := env.createRoom(t, capacity, models.RewardPolicy{})

	var wg sync.WaitGroup
	errs := make([]error, capacity+1)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.rm.JoinRoomByCode(ctx, room.JoinCode, fmt.Sprintf("user-%d", i))
		}(i)
	}
	wg.Wait()

	joined, full := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			joined++
		case assert.ErrorIs(t, err, ErrRoomFull):
			full++
		}
	}
	assert.Equal(t, capacity, joined)
	assert.Equal(t, 1, full)

	got, err := env.rm.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, capacity, got.PlayerCount)
}

func TestLeaveRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t, 1, models.RewardPolicy{})
	env.join(t, room, "u1")

	assert.ErrorIs(t, env.rm.LeaveRoom(ctx, room.ID, "stranger"), ErrNotMember)
	assert.ErrorIs(t, env.rm.LeaveRoom(ctx, "missing", "u1"), ErrRoomNotFound)

	require.NoError(t, env.rm.LeaveRoom(ctx, room.ID, "u1"))
	assert.Len(t, env.publisher.ofType(models.EventPlayerLeft), 1)
	assert.ErrorIs(t, env.rm.LeaveRoom(ctx, room.ID, "u1"), ErrNotMember)

	// the freed seat can be taken again
	env.join(t, room, "u2")
}

func TestLeaveRoom_AfterFinalize(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room := env.createRoom(t, 2, models.RewardPolicy{})
	env.join(t, room, "u1")
	env.start(t, room)
	env.finish(t, room)
	_, err := env.rm.FinalizeAndDistributeRewards(ctx, room.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, env.rm.LeaveRoom(ctx, room.ID, "u1"), ErrAlreadyFinalized)
}
