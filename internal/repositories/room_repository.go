package repositories

import (
	"context"
	"fmt"

	"ifcoins/quizroom/internal/models"

	"gorm.io/gorm"
)

type RoomRepository struct {
	DB *gorm.DB
}

// Create inserts a room. A join code clash with another open room yields ErrDuplicateKey.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	if err := r.DB.WithContext(ctx).Create(room).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

func (r *RoomRepository) GetByID(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	if err := r.DB.WithContext(ctx).First(&room, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &room, nil
}

// GetOpenByCode finds the non-finished room currently holding code.
func (r *RoomRepository) GetOpenByCode(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	err := r.DB.WithContext(ctx).
		Where("join_code = ? AND status <> ?", code, models.RoomStatusFinished).
		First(&room).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &room, nil
}

func (r *RoomRepository) JoinCodeInUse(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Room{}).
		Where("join_code = ? AND status <> ?", code, models.RoomStatusFinished).
		Count(&count).Error
	return count > 0, err
}

// ConditionalUpdate applies values to the room only if the extra where clause still
// holds, bumping version. It reports whether a row was changed.
func (r *RoomRepository) ConditionalUpdate(ctx context.Context, id string, values map[string]any, where string, args ...any) (bool, error) {
	updates := make(map[string]any, len(values)+1)
	for k, v := range values {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")

	query := r.DB.WithContext(ctx).Model(&models.Room{}).Where("id = ?", id)
	if where != "" {
		query = query.Where(where, args...)
	}
	res := query.Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("conditional update of room %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ListOpen returns waiting and active rooms, newest first.
func (r *RoomRepository) ListOpen(ctx context.Context) ([]models.Room, error) {
	rooms := []models.Room{}
	err := r.DB.WithContext(ctx).
		Where("status IN ?", []models.RoomStatus{models.RoomStatusWaiting, models.RoomStatusActive}).
		Order("created_at DESC").
		Find(&rooms).Error
	return rooms, err
}

// DeleteUnfinalized removes the room and its players in one transaction, unless
// rewards were already distributed. Returns false when the guard did not match.
func (r *RoomRepository) DeleteUnfinalized(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND rewards_distributed = ?", id, false).Delete(&models.Room{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := tx.Where("room_id = ?", id).Delete(&models.Player{}).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete room %s: %w", id, err)
	}
	return deleted, nil
}
