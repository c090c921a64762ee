package room_management

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ifcoins/quizroom/internal/ledger"
	"ifcoins/quizroom/internal/models"
	"ifcoins/quizroom/internal/repositories"
	"ifcoins/quizroom/internal/testhelpers"
)

type capturePublisher struct {
	mu        sync.Mutex
	snapshots []models.RoomSnapshot
	err       error
}

func (p *capturePublisher) Publish(ctx context.Context, roomID string, snapshot models.RoomSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.snapshots = append(p.snapshots, snapshot)
	return nil
}

func (p *capturePublisher) ofType(eventType string) []models.RoomSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.RoomSnapshot
	for _, s := range p.snapshots {
		if s.Type == eventType {
			out = append(out, s)
		}
	}
	return out
}

func (p *capturePublisher) last() models.RoomSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.snapshots) == 0 {
		return models.RoomSnapshot{}
	}
	return p.snapshots[len(p.snapshots)-1]
}

type mockLedger struct {
	creditFn func(ctx context.Context, userID string, amount int, reference string) error
}

func (m *mockLedger) Credit(ctx context.Context, userID string, amount int, reference string) error {
	return m.creditFn(ctx, userID, amount, reference)
}

type mockCards struct {
	grantFn func(ctx context.Context, userID, cardID string) error
}

func (m *mockCards) Grant(ctx context.Context, userID, cardID string) error {
	return m.grantFn(ctx, userID, cardID)
}

// fakeClock moves one second forward on every reading.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type testEnv struct {
	rm        *RoomManager
	db        *gorm.DB
	publisher *capturePublisher
	coins     *ledger.CoinLedger
	cards     *ledger.CardInventory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testhelpers.SetupTestDB(t)
	env := &testEnv{
		db:        db,
		publisher: &capturePublisher{},
		coins:     &ledger.CoinLedger{DB: db},
		cards:     &ledger.CardInventory{DB: db},
	}
	env.rm = NewRoomManager(Deps{
		Rooms:     &repositories.RoomRepository{DB: db},
		Players:   &repositories.PlayerRepository{DB: db},
		History:   &repositories.HistoryRepository{DB: db},
		Ledger:    env.coins,
		Cards:     env.cards,
		Publisher: env.publisher,
	})
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	env.rm.now = clock.Now
	env.rm.storeRetryDelay = time.Millisecond
	return env
}

func (e *testEnv) createRoom(t *testing.T, maxPlayers int, policy models.RewardPolicy) *models.Room {
	t.Helper()
	room, err := e.rm.CreateRoom(context.Background(), "host", models.CreateRoomReq{
		QuizID:       "quiz-1",
		MaxPlayers:   maxPlayers,
		RewardPolicy: policy,
	})
	require.NoError(t, err)
	return room
}

func (e *testEnv) join(t *testing.T, room *models.Room, userID string) *models.Player {
	t.Helper()
	player, err := e.rm.JoinRoomByCode(context.Background(), room.JoinCode, userID)
	require.NoError(t, err)
	return player
}

func (e *testEnv) start(t *testing.T, room *models.Room) {
	t.Helper()
	_, err := e.rm.StartRoom(context.Background(), room.ID, "host")
	require.NoError(t, err)
}

func (e *testEnv) score(t *testing.T, player *models.Player, score int, finished bool) {
	t.Helper()
	_, err := e.rm.SubmitScore(context.Background(), player.UserID, player.ID, models.SubmitScoreReq{
		Score:          score,
		CorrectAnswers: score / 10,
		Finished:       finished,
	})
	require.NoError(t, err)
}

func (e *testEnv) finish(t *testing.T, room *models.Room) {
	t.Helper()
	_, err := e.rm.FinishRoom(context.Background(), room.ID, "host")
	require.NoError(t, err)
}

func TestErrorMatchingAndStatus(t *testing.T) {
	wrapped := &Error{Kind: KindState, Code: ErrRoomFull.Code, Message: "room r1 is full"}
	assert.True(t, errors.Is(wrapped, ErrRoomFull))
	assert.False(t, errors.Is(wrapped, ErrInvalidState))

	dep := dependencyError("failed", errors.New("db down"))
	assert.Equal(t, "failed: db down", dep.Error())
	assert.Equal(t, KindDependency, KindOf(dep))

	cases := map[error]int{
		validationError("bad"): 400,
		ErrNotHost:             403,
		ErrNotMember:           403,
		ErrInvalidState:        409,
		ErrAlreadyDistributed:  409,
		ErrRoomNotFound:        404,
		dep:                    502,
		ErrCodeSpaceExhausted:  503,
		errors.New("boom"):     500,
	}
	for err, status := range cases {
		assert.Equal(t, status, HTTPStatus(err), err.Error())
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.err = errors.New("redis unavailable")

	room := env.createRoom(t, 2, models.RewardPolicy{})
	player := env.join(t, room, "u1")

	assert.NotEmpty(t, player.ID)
}

func TestSnapshot(t *testing.T) {
	env := newTestEnv(t)
	room := env.createRoom(t, 3, models.RewardPolicy{})
	env.join(t, room, "u1")
	env.start(t, room)

	snap, err := env.rm.Snapshot(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventSnapshotSync, snap.Type)
	assert.Len(t, snap.Players, 1)
	require.NotNil(t, snap.QuestionDeadline)
	assert.True(t, snap.QuestionDeadline.Equal(snap.Room.QuestionStartedAt.Add(30*time.Second)))

	_, err = env.rm.Snapshot(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
