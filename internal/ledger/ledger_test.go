package ledger

import (
	"context"
	"testing"

	"ifcoins/quizroom/internal/models"
	"ifcoins/quizroom/internal/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoinLedger_Credit(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	ledger := &CoinLedger{DB: db}
	ctx := context.Background()

	require.NoError(t, ledger.Credit(ctx, "u1", 100, "quizroom:r1:1"))
	require.NoError(t, ledger.Credit(ctx, "u1", 25, "quizroom:r2:3"))

	balance, err := ledger.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 125, balance)

	t.Run("repeated reference is a no-op", func(t *testing.T) {
		require.NoError(t, ledger.Credit(ctx, "u1", 100, "quizroom:r1:1"))
		balance, err := ledger.Balance(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 125, balance)

		var count int64
		require.NoError(t, db.Model(&models.CoinTransaction{}).Where("user_id = ?", "u1").Count(&count).Error)
		assert.Equal(t, int64(2), count)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		assert.ErrorIs(t, ledger.Credit(ctx, "u1", 0, "quizroom:r3:1"), ErrInvalidAmount)
	})

	t.Run("unknown wallet has zero balance", func(t *testing.T) {
		balance, err := ledger.Balance(ctx, "nobody")
		require.NoError(t, err)
		assert.Equal(t, 0, balance)
	})
}

func TestCoinLedger_CreditStoreFailure(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	testhelpers.DropTable(t, db, &models.CoinTransaction{})

	err := (&CoinLedger{DB: db}).Credit(context.Background(), "u1", 10, "ref")
	assert.Error(t, err)
}

func TestCardInventory_Grant(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	inventory := &CardInventory{DB: db}
	ctx := context.Background()
	require.NoError(t, db.Create(&models.Card{ID: "card-7", Name: "Capivara Dourada", Rarity: "rare"}).Error)

	require.NoError(t, inventory.Grant(ctx, "u1", "card-7"))
	require.NoError(t, inventory.Grant(ctx, "u1", "card-7"))

	qty, err := inventory.Quantity(ctx, "u1", "card-7")
	require.NoError(t, err)
	assert.Equal(t, 2, qty)

	err = inventory.Grant(ctx, "u1", "card-404")
	assert.ErrorIs(t, err, ErrUnknownCard)

	qty, err = inventory.Quantity(ctx, "u2", "card-7")
	require.NoError(t, err)
	assert.Equal(t, 0, qty)
}
