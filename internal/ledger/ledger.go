package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ifcoins/quizroom/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUnknownCard   = errors.New("unknown card")
	ErrInvalidAmount = errors.New("credit amount must be positive")
)

// CoinLedger credits coins to user wallets. Each credit carries a reference and
// repeating a reference is a no-op, so callers may retry freely.
type CoinLedger struct {
	DB *gorm.DB
}

func (l *CoinLedger) Credit(ctx context.Context, userID string, amount int, reference string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn := &models.CoinTransaction{UserID: userID, Amount: amount, Reference: reference}
		res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "reference"}}, DoNothing: true}).Create(txn)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		wallet := models.Wallet{UserID: userID, Balance: amount}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{"balance": gorm.Expr("wallets.balance + ?", amount)}),
		}).Create(&wallet).Error
	})
	if err != nil {
		return fmt.Errorf("credit %d coins to %s: %w", amount, userID, err)
	}
	return nil
}

func (l *CoinLedger) Balance(ctx context.Context, userID string) (int, error) {
	var wallet models.Wallet
	err := l.DB.WithContext(ctx).First(&wallet, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return wallet.Balance, err
}

// CardInventory grants collectible cards from the catalog.
type CardInventory struct {
	DB *gorm.DB
}

func (c *CardInventory) Grant(ctx context.Context, userID, cardID string) error {
	err := c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var card models.Card
		if err := tx.First(&card, "id = ?", strings.TrimSpace(cardID)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnknownCard
			}
			return err
		}
		owned := models.UserCard{UserID: userID, CardID: card.ID, Quantity: 1}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "card_id"}},
			DoUpdates: clause.Assignments(map[string]any{"quantity": gorm.Expr("user_cards.quantity + 1")}),
		}).Create(&owned).Error
	})
	if err != nil {
		return fmt.Errorf("grant card %s to %s: %w", cardID, userID, err)
	}
	return nil
}

func (c *CardInventory) Quantity(ctx context.Context, userID, cardID string) (int, error) {
	var owned models.UserCard
	err := c.DB.WithContext(ctx).Where("user_id = ? AND card_id = ?", userID, cardID).First(&owned).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return owned.Quantity, err
}
