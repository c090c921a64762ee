package room_management

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ifcoins/quizroom/internal/metrics"
	"ifcoins/quizroom/internal/models"
	"ifcoins/quizroom/internal/repositories"
)

// CreateRoom opens a waiting room hosted by hostID under a fresh join code.
func (rm *RoomManager) CreateRoom(ctx context.Context, hostID string, req models.CreateRoomReq) (*models.Room, error) {
	if strings.TrimSpace(hostID) == "" {
		return nil, validationError("hostId is required")
	}
	if err := req.Validate(); err != nil {
		return nil, validationError(err.Error())
	}

	now := rm.now()
	for attempt := 0; attempt < rm.codeAttempts; attempt++ {
		code := rm.newCode()
		inUse, err := rm.rooms.JoinCodeInUse(ctx, code)
		if err != nil {
			return nil, dependencyError("failed to check join code", err)
		}
		if inUse {
			continue
		}

		room := &models.Room{
			ID:                     uuid.NewString(),
			QuizID:                 req.QuizID,
			JoinCode:               code,
			HostID:                 hostID,
			Status:                 models.RoomStatusWaiting,
			MaxPlayers:             req.MaxPlayers,
			TimePerQuestionSeconds: req.TimePerQuestionSeconds,
			RewardPolicy:           req.RewardPolicy,
			CreatedAt:              now,
			UpdatedAt:              now,
		}
		err = rm.rooms.Create(ctx, room)
		if errors.Is(err, repositories.ErrDuplicateKey) {
			// another room took the code between the check and the insert
			continue
		}
		if err != nil {
			return nil, dependencyError("failed to create room", err)
		}

		metrics.RoomsCreated.Inc()
		rm.logger.Info("room created",
			zap.String("roomId", room.ID), zap.String("quizId", room.QuizID), zap.String("hostId", hostID))
		rm.publish(ctx, models.EventRoomCreated, room.ID)
		return room, nil
	}

	rm.logger.Error("join code space exhausted", zap.Int("attempts", rm.codeAttempts))
	return nil, ErrCodeSpaceExhausted
}

// StartRoom moves a waiting room to active at question 0.
func (rm *RoomManager) StartRoom(ctx context.Context, roomID, callerID string) (*models.Room, error) {
	room, err := rm.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := requireHost(room, callerID); err != nil {
		return nil, err
	}

	now := rm.now()
	applied, err := rm.rooms.ConditionalUpdate(ctx, roomID, map[string]any{
		"status":                 models.RoomStatusActive,
		"current_question_index": 0,
		"question_started_at":    now,
		"started_at":             now,
		"updated_at":             now,
	}, "status = ?", models.RoomStatusWaiting)
	if err != nil {
		return nil, dependencyError("failed to start room", err)
	}
	if !applied {
		return nil, ErrInvalidState
	}

	metrics.RoomTransitions.WithLabelValues(models.EventRoomStarted).Inc()
	rm.publish(ctx, models.EventRoomStarted, roomID)
	return rm.loadRoom(ctx, roomID)
}

// DeleteRoom removes a room and its players. Finalized rooms are kept.
func (rm *RoomManager) DeleteRoom(ctx context.Context, roomID, callerID string) error {
	room, err := rm.loadRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if err := requireHost(room, callerID); err != nil {
		return err
	}
	if room.RewardsDistributed {
		return ErrAlreadyFinalized
	}

	deleted, err := rm.rooms.DeleteUnfinalized(ctx, roomID)
	if err != nil {
		return dependencyError("failed to delete room", err)
	}
	if !deleted {
		if _, err := rm.loadRoom(ctx, roomID); err != nil {
			return err
		}
		return ErrAlreadyFinalized
	}

	metrics.RoomTransitions.WithLabelValues(models.EventRoomDeleted).Inc()
	rm.logger.Info("room deleted", zap.String("roomId", roomID))

	snapshot := models.NewRoomSnapshot(models.EventRoomDeleted, *room, nil, rm.now())
	snapshot.Deleted = true
	rm.publishSnapshot(ctx, snapshot)
	return nil
}

func (rm *RoomManager) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	return rm.loadRoom(ctx, roomID)
}

// ListActiveRooms returns waiting and active rooms, newest first.
func (rm *RoomManager) ListActiveRooms(ctx context.Context) ([]models.Room, error) {
	rooms, err := rm.rooms.ListOpen(ctx)
	if err != nil {
		return nil, dependencyError("failed to list rooms", err)
	}
	return rooms, nil
}

// ListPlayers returns the room's players in leaderboard order.
func (rm *RoomManager) ListPlayers(ctx context.Context, roomID string) ([]models.Player, error) {
	if _, err := rm.loadRoom(ctx, roomID); err != nil {
		return nil, err
	}
	players, err := rm.players.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, dependencyError("failed to list players", err)
	}
	return players, nil
}
