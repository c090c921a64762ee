package room_management

import (
	"sort"

	"ifcoins/quizroom/internal/models"
)

// RankPlayers orders players by score (highest first). Ties go to whoever finished
// first, then to whoever joined first, and finally to the lower player id so the
// result is the same on every run. Positions are 1..N.
func RankPlayers(players []models.Player) []models.RankingEntry {
	ordered := make([]models.Player, len(players))
	copy(ordered, players)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		switch {
		case a.FinishedAt != nil && b.FinishedAt != nil:
			if !a.FinishedAt.Equal(*b.FinishedAt) {
				return a.FinishedAt.Before(*b.FinishedAt)
			}
		case a.FinishedAt != nil:
			return true
		case b.FinishedAt != nil:
			return false
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.ID < b.ID
	})

	ranking := make([]models.RankingEntry, len(ordered))
	for i, p := range ordered {
		ranking[i] = models.RankingEntry{
			PlayerID:       p.ID,
			UserID:         p.UserID,
			Position:       i + 1,
			Score:          p.Score,
			CorrectAnswers: p.CorrectAnswers,
		}
	}
	return ranking
}
