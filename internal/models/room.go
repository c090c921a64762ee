package models

import (
	"errors"
	"fmt"
	"time"
)

// RoomStatus only ever moves forward: waiting -> active -> finished.
type RoomStatus string

const (
	RoomStatusWaiting  RoomStatus = "waiting"
	RoomStatusActive   RoomStatus = "active"
	RoomStatusFinished RoomStatus = "finished"
)

// RewardType is the discriminant of RewardPolicy.
type RewardType string

const (
	RewardCoins    RewardType = "coins"
	RewardCard     RewardType = "card"
	RewardExternal RewardType = "external"
	RewardNone     RewardType = "none"
)

// Room is one live multiplayer quiz session.
type Room struct {
	ID                     string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	QuizID                 string       `gorm:"not null;index" json:"quizId"`
	JoinCode               string       `gorm:"type:varchar(6);not null;index:idx_rooms_open_join_code,unique,where:status <> 'finished'" json:"joinCode"`
	HostID                 string       `gorm:"not null;index" json:"hostId"`
	Status                 RoomStatus   `gorm:"type:varchar(16);not null;index" json:"status"`
	MaxPlayers             int          `gorm:"not null" json:"maxPlayers"`
	PlayerCount            int          `gorm:"not null;default:0" json:"playerCount"`
	CurrentQuestionIndex   int          `gorm:"not null;default:0" json:"currentQuestionIndex"`
	QuestionStartedAt      *time.Time   `json:"questionStartedAt,omitempty"`
	TimePerQuestionSeconds int          `gorm:"not null" json:"timePerQuestionSeconds"`
	RewardPolicy           RewardPolicy `gorm:"type:text;serializer:json" json:"rewardPolicy"`
	RewardsDistributed     bool         `gorm:"not null;default:false" json:"rewardsDistributed"`
	Version                int64        `gorm:"not null;default:0" json:"version"`
	CreatedAt              time.Time    `json:"createdAt"`
	UpdatedAt              time.Time    `json:"updatedAt"`
	StartedAt              *time.Time   `json:"startedAt,omitempty"`
	FinishedAt             *time.Time   `json:"finishedAt,omitempty"`
}

// QuestionDeadline is advisory only; the host's timer decides when to advance.
func (r *Room) QuestionDeadline() *time.Time {
	if r.Status != RoomStatusActive || r.QuestionStartedAt == nil {
		return nil
	}
	deadline := r.QuestionStartedAt.Add(time.Duration(r.TimePerQuestionSeconds) * time.Second)
	return &deadline
}

// RewardPolicy describes what, if anything, the top ranks receive.
type RewardPolicy struct {
	Type        RewardType `json:"type"`
	Coins1st    int        `json:"coins1st,omitempty"`
	Coins2nd    int        `json:"coins2nd,omitempty"`
	Coins3rd    int        `json:"coins3rd,omitempty"`
	CardID      string     `json:"cardId,omitempty"`
	Description string     `json:"description,omitempty"`
}

// CoinAmounts returns the configured credit per rank, index 0 being 1st place.
func (p RewardPolicy) CoinAmounts() []int {
	return []int{p.Coins1st, p.Coins2nd, p.Coins3rd}
}

func (p RewardPolicy) Validate() error {
	switch p.Type {
	case RewardCoins:
		for _, amount := range p.CoinAmounts() {
			if amount < 0 {
				return errors.New("coin amounts must not be negative")
			}
		}
	case RewardCard:
		if p.CardID == "" {
			return errors.New("cardId is required for card rewards")
		}
	case RewardExternal:
		if p.Description == "" {
			return errors.New("description is required for external rewards")
		}
	case RewardNone:
	default:
		return fmt.Errorf("unknown reward type %q", p.Type)
	}
	return nil
}

// Describe renders the human readable description stored in match history.
func (p RewardPolicy) Describe() string {
	switch p.Type {
	case RewardCoins:
		return fmt.Sprintf("1º: %d, 2º: %d, 3º: %d moedas", p.Coins1st, p.Coins2nd, p.Coins3rd)
	case RewardCard:
		return fmt.Sprintf("Carta %s para o 1º lugar", p.CardID)
	case RewardExternal:
		return p.Description
	default:
		return "Sem recompensa"
	}
}
