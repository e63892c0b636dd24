// Package localdb stores the local ledger in an embedded SQLite database.
package localdb

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/etnz/pocket"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config of the database file.
type Config struct {
	Path    string `mapstructure:"path"`
	LogMode bool   `mapstructure:"log_mode"`
}

// Open opens or creates the SQLite database at cfg.Path, tunes it and migrates
// its schema.
func Open(cfg Config) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create db dir: %w", pocket.ErrStorageFailure, err)
	}

	gormLogger := logger.Default
	if !cfg.LogMode {
		gormLogger = gormLogger.LogMode(logger.Silent)
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", pocket.ErrStorageFailure, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: get sql db: %w", pocket.ErrStorageFailure, err)
	}
	// SQLite has a single writer.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	_, _ = sqlDB.Exec("PRAGMA journal_mode = WAL;")
	_, _ = sqlDB.Exec("PRAGMA synchronous = NORMAL;")

	if err := db.AutoMigrate(&entry{}, &charge{}); err != nil {
		return nil, fmt.Errorf("%w: auto migrate: %w", pocket.ErrStorageFailure, err)
	}
	return db, nil
}

// Close releases the connections of db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// failure wraps err as a storage failure.
func failure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", pocket.ErrStorageFailure, op, err)
}
