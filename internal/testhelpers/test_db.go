package testhelpers

import (
	"fmt"
	"strings"
	"testing"

	"ifcoins/quizroom/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	openSQLite = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.Silent),
		})
	}
	migrateSchema = func(db *gorm.DB) error { return db.AutoMigrate(Schema()...) }
)

// Schema lists every table the quiz room service owns.
func Schema() []any {
	return []any{
		&models.Room{},
		&models.Player{},
		&models.MatchHistory{},
		&models.Wallet{},
		&models.CoinTransaction{},
		&models.Card{},
		&models.UserCard{},
	}
}

// SetupTestDB creates an isolated in-memory SQLite database for tests.
// A single connection serialises writers the way row locks would on postgres.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := openSQLite(dsn)
	if err != nil {
		panic(fmt.Sprintf("failed to open test database: %v", err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(fmt.Sprintf("failed to get sql db: %v", err))
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := migrateSchema(db); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}
	return db
}

// DropTable removes a table to force repository errors.
func DropTable(t *testing.T, db *gorm.DB, model any) {
	t.Helper()
	if err := db.Migrator().DropTable(model); err != nil {
		panic(fmt.Sprintf("failed to drop table: %v", err))
	}
}
