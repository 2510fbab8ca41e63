package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"paper-trade-bot-go/internal/models"
)

// NewDatabase opens the trade-log database and migrates the schema.
// With the default in-memory DSN this starts empty on every boot.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open trade log database: %w", err)
	}

	if err := db.AutoMigrate(&models.Trade{}); err != nil {
		return nil, fmt.Errorf("failed to migrate trade log schema: %w", err)
	}

	return db, nil
}
