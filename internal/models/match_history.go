package models

import (
	"time"

	"gorm.io/datatypes"
)

// RankingEntry is one row of the final leaderboard.
type RankingEntry struct {
	PlayerID       string `json:"playerId"`
	UserID         string `json:"userId"`
	Position       int    `json:"position"`
	Score          int    `json:"score"`
	CorrectAnswers int    `json:"correctAnswers"`
}

// RecipientOutcome records a single credit or grant attempt made during finalization.
type RecipientOutcome struct {
	UserID    string     `json:"userId"`
	Position  int        `json:"position"`
	Kind      RewardType `json:"kind"`
	Amount    int        `json:"amount,omitempty"`
	CardID    string     `json:"cardId,omitempty"`
	Attempted bool       `json:"attempted"`
	Succeeded bool       `json:"succeeded"`
	Error     string     `json:"error,omitempty"`
}

// MatchHistory is the immutable record written once a room's rewards are finalized.
type MatchHistory struct {
	ID                uint                                   `gorm:"primaryKey" json:"id"`
	RoomID            string                                 `gorm:"type:varchar(36);not null;uniqueIndex" json:"roomId"`
	QuizID            string                                 `gorm:"not null;index" json:"quizId"`
	HostID            string                                 `gorm:"not null" json:"hostId"`
	WinnerID          *string                                `json:"winnerId,omitempty"`
	TotalPlayers      int                                    `gorm:"not null" json:"totalPlayers"`
	StartedAt         time.Time                              `json:"startedAt"`
	FinishedAt        time.Time                              `json:"finishedAt"`
	RewardType        RewardType                             `gorm:"type:varchar(16);not null" json:"rewardType"`
	RewardDescription string                                 `json:"rewardDescription"`
	RankingSnapshot   datatypes.JSONType[[]RankingEntry]     `json:"rankingSnapshot"`
	RecipientOutcomes datatypes.JSONType[[]RecipientOutcome] `json:"perRecipientOutcome"`
	PartialFailure    bool                                   `gorm:"not null;default:false" json:"partialFailure"`
	CreatedAt         time.Time                              `json:"createdAt"`
}

// TableName keeps the plural form used by the rest of the platform.
func (MatchHistory) TableName() string {
	return "match_histories"
}

// FailedRecipients lists the recipients whose distribution must be followed up manually.
func (h *MatchHistory) FailedRecipients() []RecipientOutcome {
	var failed []RecipientOutcome
	for _, outcome := range h.RecipientOutcomes.Data() {
		if outcome.Attempted && !outcome.Succeeded {
			failed = append(failed, outcome)
		}
	}
	return failed
}
