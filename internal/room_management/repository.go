package room_management

import (
	"context"
	"time"

	"ifcoins/quizroom/internal/models"
	"ifcoins/quizroom/internal/repositories"
)

// RoomStore is the persistent store of rooms. ConditionalUpdate is the only way
// room state changes after creation.
type RoomStore interface {
	Create(ctx context.Context, room *models.Room) error
	GetByID(ctx context.Context, id string) (*models.Room, error)
	GetOpenByCode(ctx context.Context, code string) (*models.Room, error)
	JoinCodeInUse(ctx context.Context, code string) (bool, error)
	ConditionalUpdate(ctx context.Context, id string, values map[string]any, where string, args ...any) (bool, error)
	ListOpen(ctx context.Context) ([]models.Room, error)
	DeleteUnfinalized(ctx context.Context, id string) (bool, error)
}

type PlayerStore interface {
	GetByID(ctx context.Context, id string) (*models.Player, error)
	GetByRoomAndUser(ctx context.Context, roomID, userID string) (*models.Player, error)
	ListByRoom(ctx context.Context, roomID string) ([]models.Player, error)
	JoinWithinCapacity(ctx context.Context, player *models.Player) (*models.Player, bool, error)
	DeleteMember(ctx context.Context, roomID, userID string, now time.Time) error
	UpdateScore(ctx context.Context, playerID string, update repositories.ScoreUpdate) (bool, error)
	AssignPositions(ctx context.Context, positions map[string]int) error
}

type HistoryStore interface {
	Create(ctx context.Context, history *models.MatchHistory) error
	GetByRoomID(ctx context.Context, roomID string) (*models.MatchHistory, error)
	ListByQuizID(ctx context.Context, quizID string) ([]models.MatchHistory, error)
}

// Ledger credits coins. Repeating a reference must not credit twice.
type Ledger interface {
	Credit(ctx context.Context, userID string, amount int, reference string) error
}

type CardInventory interface {
	Grant(ctx context.Context, userID, cardID string) error
}

type Publisher interface {
	Publish(ctx context.Context, roomID string, snapshot models.RoomSnapshot) error
}
