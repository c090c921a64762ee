package repositories

import (
	"context"
	"testing"
	"time"

	"ifcoins/quizroom/internal/models"
	"ifcoins/quizroom/internal/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestHistoryRepository(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	repo := &HistoryRepository{DB: db}
	ctx := context.Background()

	winner := "u1"
	finished := time.Now().Truncate(time.Second)
	history := &models.MatchHistory{
		RoomID:            "room-1",
		QuizID:            "quiz-1",
		HostID:            "host",
		WinnerID:          &winner,
		TotalPlayers:      2,
		StartedAt:         finished.Add(-time.Minute),
		FinishedAt:        finished,
		RewardType:        models.RewardCoins,
		RewardDescription: "1º: 100, 2º: 50, 3º: 0 moedas",
		RankingSnapshot: datatypes.NewJSONType([]models.RankingEntry{
			{PlayerID: "p1", UserID: "u1", Position: 1, Score: 50},
			{PlayerID: "p2", UserID: "u2", Position: 2, Score: 30},
		}),
		RecipientOutcomes: datatypes.NewJSONType([]models.RecipientOutcome{
			{UserID: "u1", Position: 1, Kind: models.RewardCoins, Amount: 100, Attempted: true, Succeeded: true},
		}),
	}
	require.NoError(t, repo.Create(ctx, history))
	firstID := history.ID

	duplicate := &models.MatchHistory{RoomID: "room-1", QuizID: "quiz-1", HostID: "host", RewardType: models.RewardNone}
	require.NoError(t, repo.Create(ctx, duplicate))
	assert.Equal(t, firstID, duplicate.ID, "second write returns the stored record")

	got, err := repo.GetByRoomID(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", *got.WinnerID)
	assert.Len(t, got.RankingSnapshot.Data(), 2)
	assert.Equal(t, 100, got.RecipientOutcomes.Data()[0].Amount)

	_, err = repo.GetByRoomID(ctx, "room-2")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Create(ctx, &models.MatchHistory{
		RoomID: "room-2", QuizID: "quiz-1", HostID: "host", RewardType: models.RewardNone,
		FinishedAt: finished.Add(time.Hour),
	}))
	list, err := repo.ListByQuizID(ctx, "quiz-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "room-2", list[0].RoomID)
}
