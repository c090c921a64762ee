package room_management

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ifcoins/quizroom/internal/metrics"
	"ifcoins/quizroom/internal/models"
	"ifcoins/quizroom/internal/repositories"
	"ifcoins/quizroom/internal/session"
	"ifcoins/quizroom/internal/utils"
)

const defaultCodeAttempts = 10

// Deps wires a RoomManager. Ledger, Cards, Publisher and Hub may be nil.
type Deps struct {
	Rooms        RoomStore
	Players      PlayerStore
	History      HistoryStore
	Ledger       Ledger
	Cards        CardInventory
	Publisher    Publisher
	Hub          *session.Hub
	Logger       *zap.Logger
	CodeAttempts int
}

// RoomManager runs every quiz room operation. It keeps no room state in memory:
// consistency between concurrent requests and instances comes from the store's
// conditional updates.
type RoomManager struct {
	rooms     RoomStore
	players   PlayerStore
	history   HistoryStore
	ledger    Ledger
	cards     CardInventory
	publisher Publisher
	hub       *session.Hub
	upgrader  websocket.Upgrader
	logger    *zap.Logger

	codeAttempts int
	newCode      func() string
	now          func() time.Time

	storeAttempts   int
	storeRetryDelay time.Duration
}

func NewRoomManager(deps Deps) *RoomManager {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := deps.CodeAttempts
	if attempts < 1 {
		attempts = defaultCodeAttempts
	}
	return &RoomManager{
		rooms:     deps.Rooms,
		players:   deps.Players,
		history:   deps.History,
		ledger:    deps.Ledger,
		cards:     deps.Cards,
		publisher: deps.Publisher,
		hub:       deps.Hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:       logger,
		codeAttempts: attempts,
		newCode:      utils.GenerateJoinCode,
		now:          func() time.Time { return time.Now().UTC() },

		storeAttempts:   3,
		storeRetryDelay: 100 * time.Millisecond,
	}
}

func (rm *RoomManager) loadRoom(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := rm.rooms.GetByID(ctx, roomID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, dependencyError("failed to load room", err)
	}
	return room, nil
}

// retryStore runs fn up to storeAttempts times, doubling the delay between attempts.
func (rm *RoomManager) retryStore(ctx context.Context, op string, fn func() error) error {
	delay := rm.storeRetryDelay
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt >= rm.storeAttempts {
			return err
		}
		rm.logger.Warn("store operation failed, retrying",
			zap.String("op", op), zap.Int("attempt", attempt), zap.Duration("backoff", delay), zap.Error(err))
		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func requireHost(room *models.Room, callerID string) error {
	if room.HostID != callerID {
		return ErrNotHost
	}
	return nil
}

// Snapshot returns the complete current state of a room.
func (rm *RoomManager) Snapshot(ctx context.Context, roomID string) (models.RoomSnapshot, error) {
	room, err := rm.loadRoom(ctx, roomID)
	if err != nil {
		return models.RoomSnapshot{}, err
	}
	players, err := rm.players.ListByRoom(ctx, roomID)
	if err != nil {
		return models.RoomSnapshot{}, dependencyError("failed to list players", err)
	}
	return models.NewRoomSnapshot(models.EventSnapshotSync, *room, players, rm.now()), nil
}

// publish sends the full state of roomID after a mutation. It never fails the
// caller; a missed snapshot is repaired by the next one or the refresh job.
func (rm *RoomManager) publish(ctx context.Context, eventType, roomID string) {
	if rm.publisher == nil {
		return
	}
	snapshot, err := rm.Snapshot(ctx, roomID)
	if err != nil {
		metrics.SnapshotPublishFailures.Inc()
		rm.logger.Warn("could not build room snapshot",
			zap.String("roomId", roomID), zap.String("event", eventType), zap.Error(err))
		return
	}
	snapshot.Type = eventType
	rm.publishSnapshot(ctx, snapshot)
}

func (rm *RoomManager) publishSnapshot(ctx context.Context, snapshot models.RoomSnapshot) {
	if rm.publisher == nil {
		return
	}
	if err := rm.publisher.Publish(ctx, snapshot.Room.ID, snapshot); err != nil {
		metrics.SnapshotPublishFailures.Inc()
		rm.logger.Warn("failed to publish room snapshot",
			zap.String("roomId", snapshot.Room.ID), zap.String("event", snapshot.Type), zap.Error(err))
	}
}
