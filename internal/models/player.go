package models

import "time"

// Player is a user's membership in one room. (RoomID, UserID) is unique.
type Player struct {
	ID                   string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RoomID               string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_players_room_user" json:"roomId"`
	UserID               string     `gorm:"not null;uniqueIndex:idx_players_room_user;index" json:"userId"`
	JoinedAt             time.Time  `gorm:"not null" json:"joinedAt"`
	Score                int        `gorm:"not null;default:0" json:"score"`
	CorrectAnswers       int        `gorm:"not null;default:0" json:"correctAnswers"`
	CurrentQuestionIndex int        `gorm:"not null;default:0" json:"currentQuestionIndex"`
	FinishedAt           *time.Time `json:"finishedAt,omitempty"`
	Position             *int       `json:"position,omitempty"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}
