package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ifcoins/quizroom/internal/models"

	"gorm.io/gorm"
)

type PlayerRepository struct {
	DB *gorm.DB
}

func (r *PlayerRepository) GetByID(ctx context.Context, id string) (*models.Player, error) {
	var player models.Player
	if err := r.DB.WithContext(ctx).First(&player, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &player, nil
}

func (r *PlayerRepository) GetByRoomAndUser(ctx context.Context, roomID, userID string) (*models.Player, error) {
	var player models.Player
	err := r.DB.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&player).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &player, nil
}

// ListByRoom returns players in leaderboard order.
func (r *PlayerRepository) ListByRoom(ctx context.Context, roomID string) ([]models.Player, error) {
	players := []models.Player{}
	err := r.DB.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("score DESC").Order("joined_at ASC").Order("id ASC").
		Find(&players).Error
	return players, err
}

// JoinWithinCapacity takes a seat in a waiting room and inserts the player in one
// transaction. The seat counter update locks the room row, so concurrent joiners
// are serialised. An existing membership is returned with created=false.
func (r *PlayerRepository) JoinWithinCapacity(ctx context.Context, player *models.Player) (*models.Player, bool, error) {
	existing, err := r.GetByRoomAndUser(ctx, player.RoomID, player.UserID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Room{}).
			Where("id = ? AND status = ? AND player_count < max_players", player.RoomID, models.RoomStatusWaiting).
			Updates(map[string]any{
				"player_count": gorm.Expr("player_count + 1"),
				"version":      gorm.Expr("version + 1"),
				"updated_at":   player.JoinedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoCapacity
		}
		if err := tx.Create(player).Error; err != nil {
			if isDuplicate(err) {
				return ErrDuplicateKey
			}
			return err
		}
		return nil
	})

	switch {
	case err == nil:
		return player, true, nil
	case errors.Is(err, ErrDuplicateKey):
		// lost a race against our own re-join
		existing, err := r.GetByRoomAndUser(ctx, player.RoomID, player.UserID)
		return existing, false, err
	case errors.Is(err, ErrNoCapacity):
		// a concurrent join by the same user may have taken the last seat
		existing, lookupErr := r.GetByRoomAndUser(ctx, player.RoomID, player.UserID)
		if lookupErr == nil {
			return existing, false, nil
		}
		return nil, false, ErrNoCapacity
	default:
		return nil, false, fmt.Errorf("join room %s: %w", player.RoomID, err)
	}
}

// DeleteMember removes a player and frees the seat, unless the room is finalized.
func (r *PlayerRepository) DeleteMember(ctx context.Context, roomID, userID string, now time.Time) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Room{}).
			Where("id = ? AND rewards_distributed = ? AND player_count > 0", roomID, false).
			Updates(map[string]any{
				"player_count": gorm.Expr("player_count - 1"),
				"version":      gorm.Expr("version + 1"),
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrPreconditionFailed
		}
		res = tx.Where("room_id = ? AND user_id = ?", roomID, userID).Delete(&models.Player{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrPreconditionFailed) {
		return fmt.Errorf("leave room %s: %w", roomID, err)
	}
	return err
}

// ScoreUpdate is a last-write-wins overwrite of a player's progress.
type ScoreUpdate struct {
	Score          int
	CorrectAnswers int
	QuestionIndex  int
	Finished       bool
	At             time.Time
}

// UpdateScore overwrites the player's progress while the room is active or finished
// but not finalized. A completion time, once stamped, is never moved.
func (r *PlayerRepository) UpdateScore(ctx context.Context, playerID string, u ScoreUpdate) (bool, error) {
	values := map[string]any{
		"score":                  u.Score,
		"correct_answers":        u.CorrectAnswers,
		"current_question_index": u.QuestionIndex,
		"updated_at":             u.At,
	}
	if u.Finished {
		values["finished_at"] = gorm.Expr("COALESCE(finished_at, ?)", u.At)
	}

	db := r.DB.WithContext(ctx)
	scoringRooms := db.Model(&models.Room{}).Select("id").
		Where("status IN ? AND rewards_distributed = ?",
			[]models.RoomStatus{models.RoomStatusActive, models.RoomStatusFinished}, false)

	res := db.Model(&models.Player{}).
		Where("id = ? AND room_id IN (?)", playerID, scoringRooms).
		Updates(values)
	if res.Error != nil {
		return false, fmt.Errorf("update score of player %s: %w", playerID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// AssignPositions persists final ranks, keyed by player id.
func (r *PlayerRepository) AssignPositions(ctx context.Context, positions map[string]int) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for playerID, position := range positions {
			if err := tx.Model(&models.Player{}).Where("id = ?", playerID).Update("position", position).Error; err != nil {
				return fmt.Errorf("assign position to player %s: %w", playerID, err)
			}
		}
		return nil
	})
}
