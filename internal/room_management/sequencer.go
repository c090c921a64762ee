package room_management

import (
	"context"

	"ifcoins/quizroom/internal/metrics"
	"ifcoins/quizroom/internal/models"
)

// AdvanceQuestion moves an active room to questionIndex, which must be strictly
// greater than the current index. The question timer restarts.
func (rm *RoomManager) AdvanceQuestion(ctx context.Context, roomID, callerID string, questionIndex int) (*models.Room, error) {
	if questionIndex < 0 {
		return nil, validationError("questionIndex must not be negative")
	}
	room, err := rm.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := requireHost(room, callerID); err != nil {
		return nil, err
	}

	now := rm.now()
	applied, err := rm.rooms.ConditionalUpdate(ctx, roomID, map[string]any{
		"current_question_index": questionIndex,
		"question_started_at":    now,
		"updated_at":             now,
	}, "status = ? AND current_question_index < ?", models.RoomStatusActive, questionIndex)
	if err != nil {
		return nil, dependencyError("failed to advance question", err)
	}
	if !applied {
		current, err := rm.loadRoom(ctx, roomID)
		if err != nil {
			return nil, err
		}
		if current.Status != models.RoomStatusActive {
			return nil, ErrInvalidState
		}
		return nil, ErrOutOfOrderQuestion
	}

	metrics.RoomTransitions.WithLabelValues(models.EventQuestionAdvanced).Inc()
	rm.publish(ctx, models.EventQuestionAdvanced, roomID)
	return rm.loadRoom(ctx, roomID)
}

// FinishRoom ends an active room. Finishing an already finished room returns it unchanged.
func (rm *RoomManager) FinishRoom(ctx context.Context, roomID, callerID string) (*models.Room, error) {
	room, err := rm.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := requireHost(room, callerID); err != nil {
		return nil, err
	}
	if room.Status == models.RoomStatusFinished {
		return room, nil
	}

	now := rm.now()
	applied, err := rm.rooms.ConditionalUpdate(ctx, roomID, map[string]any{
		"status":      models.RoomStatusFinished,
		"finished_at": now,
		"updated_at":  now,
	}, "status = ?", models.RoomStatusActive)
	if err != nil {
		return nil, dependencyError("failed to finish room", err)
	}

	current, err := rm.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !applied {
		if current.Status == models.RoomStatusFinished {
			return current, nil
		}
		return nil, ErrInvalidState
	}

	metrics.RoomTransitions.WithLabelValues(models.EventRoomFinished).Inc()
	rm.publish(ctx, models.EventRoomFinished, roomID)
	return current, nil
}
