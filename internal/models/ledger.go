package models

import "time"

// Wallet holds a user's coin balance.
type Wallet struct {
	UserID    string    `gorm:"primaryKey" json:"userId"`
	Balance   int       `gorm:"not null;default:0" json:"balance"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CoinTransaction is an append-only ledger line. Reference makes credits idempotent.
type CoinTransaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"not null;index" json:"userId"`
	Amount    int       `gorm:"not null" json:"amount"`
	Reference string    `gorm:"not null;uniqueIndex" json:"reference"`
	CreatedAt time.Time `json:"createdAt"`
}

type Card struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Rarity    string    `json:"rarity"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserCard counts how many copies of a card a user owns.
type UserCard struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_user_cards_owner" json:"userId"`
	CardID    string    `gorm:"not null;uniqueIndex:idx_user_cards_owner" json:"cardId"`
	Quantity  int       `gorm:"not null;default:0" json:"quantity"`
	UpdatedAt time.Time `json:"updatedAt"`
}
