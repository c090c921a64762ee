package room_management

import (
	"context"
	"errors"

	"ifcoins/quizroom/internal/models"
	"ifcoins/quizroom/internal/repositories"
)

// SubmitScore overwrites the player's running totals. Scores are computed by the
// client and never incremented here, so retries are harmless.
func (rm *RoomManager) SubmitScore(ctx context.Context, callerID, playerID string, req models.SubmitScoreReq) (*models.Player, error) {
	if err := req.Validate(); err != nil {
		return nil, validationError(err.Error())
	}

	player, err := rm.players.GetByID(ctx, playerID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, dependencyError("failed to load player", err)
	}
	if player.UserID != callerID {
		return nil, ErrNotMember
	}

	room, err := rm.loadRoom(ctx, player.RoomID)
	if err != nil {
		return nil, err
	}
	if err := scoringAllowed(room); err != nil {
		return nil, err
	}

	applied, err := rm.players.UpdateScore(ctx, playerID, repositories.ScoreUpdate{
		Score:          req.Score,
		CorrectAnswers: req.CorrectAnswers,
		QuestionIndex:  req.QuestionIndex,
		Finished:       req.Finished,
		At:             rm.now(),
	})
	if err != nil {
		return nil, dependencyError("failed to save score", err)
	}
	if !applied {
		// the room moved on between the check and the write
		current, err := rm.loadRoom(ctx, player.RoomID)
		if err != nil {
			return nil, err
		}
		if err := scoringAllowed(current); err != nil {
			return nil, err
		}
		return nil, ErrPlayerNotFound
	}

	updated, err := rm.players.GetByID(ctx, playerID)
	if err != nil {
		return nil, dependencyError("failed to reload player", err)
	}
	rm.publish(ctx, models.EventScoreSubmitted, player.RoomID)
	return updated, nil
}

func scoringAllowed(room *models.Room) error {
	if room.RewardsDistributed {
		return ErrAlreadyFinalized
	}
	if room.Status == models.RoomStatusWaiting {
		return ErrInvalidState
	}
	return nil
}
