package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/paperboy/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory SQLite database with every model migrated
func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// one connection so every query sees the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	db.Exec("PRAGMA foreign_keys = ON")

	err = db.AutoMigrate(
		&models.Newsletter{},
		&models.Article{},
		&models.EmailArchive{},
		&models.WeeklyDigest{},
		&models.InboundMessage{},
		&models.OutboundEmail{},
	)
	require.NoError(t, err)
	return db
}

func closeTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}
