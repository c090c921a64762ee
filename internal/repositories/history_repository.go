package repositories

import (
	"context"
	"errors"

	"ifcoins/quizroom/internal/models"

	"gorm.io/gorm"
)

type HistoryRepository struct {
	DB *gorm.DB
}

// Create writes the match record once; a second write for the same room is a no-op.
func (r *HistoryRepository) Create(ctx context.Context, history *models.MatchHistory) error {
	db := r.DB.WithContext(ctx)

	var existing models.MatchHistory
	err := db.Where("room_id = ?", history.RoomID).First(&existing).Error
	if err == nil {
		*history = existing
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err := db.Create(history).Error; err != nil && !isDuplicate(err) {
		return err
	}
	return nil
}

func (r *HistoryRepository) GetByRoomID(ctx context.Context, roomID string) (*models.MatchHistory, error) {
	var history models.MatchHistory
	if err := r.DB.WithContext(ctx).Where("room_id = ?", roomID).First(&history).Error; err != nil {
		return nil, notFound(err)
	}
	return &history, nil
}

// ListByQuizID returns every finalized match of a quiz, most recent first.
func (r *HistoryRepository) ListByQuizID(ctx context.Context, quizID string) ([]models.MatchHistory, error) {
	histories := []models.MatchHistory{}
	err := r.DB.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("finished_at DESC").
		Find(&histories).Error
	return histories, err
}
