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
	"ifcoins/quizroom/internal/utils"
)

// JoinRoomByCode adds userID to the waiting room holding code. Joining a room the
// user is already in returns the existing player, whatever the room's status.
func (rm *RoomManager) JoinRoomByCode(ctx context.Context, code, userID string) (*models.Player, error) {
	code = utils.NormalizeJoinCode(code)
	if !utils.IsValidJoinCode(code) {
		return nil, validationError("join code must be 6 letters or digits")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, validationError("userId is required")
	}

	room, err := rm.rooms.GetOpenByCode(ctx, code)
	if errors.Is(err, repositories.ErrNotFound) {
		metrics.JoinResults.WithLabelValues("not_found").Inc()
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, dependencyError("failed to look up join code", err)
	}

	candidate := &models.Player{
		ID:       uuid.NewString(),
		RoomID:   room.ID,
		UserID:   userID,
		JoinedAt: rm.now(),
	}
	player, created, err := rm.players.JoinWithinCapacity(ctx, candidate)
	if errors.Is(err, repositories.ErrNoCapacity) {
		return nil, rm.classifyRejectedJoin(ctx, room.ID)
	}
	if err != nil {
		return nil, dependencyError("failed to join room", err)
	}

	if !created {
		metrics.JoinResults.WithLabelValues("rejoined").Inc()
		return player, nil
	}

	metrics.JoinResults.WithLabelValues("joined").Inc()
	rm.logger.Info("player joined",
		zap.String("roomId", room.ID), zap.String("userId", userID), zap.String("playerId", player.ID))
	rm.publish(ctx, models.EventPlayerJoined, room.ID)
	return player, nil
}

// classifyRejectedJoin explains why the seat update matched no row.
func (rm *RoomManager) classifyRejectedJoin(ctx context.Context, roomID string) error {
	room, err := rm.loadRoom(ctx, roomID)
	if err != nil {
		metrics.JoinResults.WithLabelValues("not_found").Inc()
		return err
	}
	if room.Status != models.RoomStatusWaiting {
		metrics.JoinResults.WithLabelValues("invalid_state").Inc()
		return ErrInvalidState
	}
	metrics.JoinResults.WithLabelValues("full").Inc()
	return ErrRoomFull
}

// LeaveRoom removes the caller's own player from the room.
func (rm *RoomManager) LeaveRoom(ctx context.Context, roomID, userID string) error {
	room, err := rm.loadRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.RewardsDistributed {
		return ErrAlreadyFinalized
	}

	err = rm.players.DeleteMember(ctx, roomID, userID, rm.now())
	switch {
	case err == nil:
	case errors.Is(err, repositories.ErrNotFound):
		return ErrNotMember
	case errors.Is(err, repositories.ErrPreconditionFailed):
		current, loadErr := rm.loadRoom(ctx, roomID)
		if loadErr != nil {
			return loadErr
		}
		if current.RewardsDistributed {
			return ErrAlreadyFinalized
		}
		return ErrNotMember
	default:
		return dependencyError("failed to leave room", err)
	}

	rm.logger.Info("player left", zap.String("roomId", roomID), zap.String("userId", userID))
	rm.publish(ctx, models.EventPlayerLeft, roomID)
	return nil
}
