package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/timmy/gallery/internal/config"
	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DriverMemory selects the in-process store; no database is opened.
const DriverMemory = "memory"

// NewImageStore builds the image store selected by cfg.Driver.
// Parameters:
//   - ctx: context used for startup logging.
//   - cfg: database configuration including driver and connection settings.
// Returns:
//   - ImageStore: the configured store.
//   - func() error: closes the underlying connection, never nil.
//   - error: non-nil if connection or migration fails.
func NewImageStore(ctx context.Context, cfg *config.DatabaseConfig) (ImageStore, func() error, error) {
	if cfg.Driver == DriverMemory {
		logger.CtxInfo(ctx, "Using in-memory image store")
		return NewMemoryImageRepository(), func() error { return nil }, nil
	}
	db, err := InitDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	return NewImageRepository(db), sqlDB.Close, nil
}

// InitDB initializes the database connection based on configuration and runs migrations.
// Parameters:
//   - ctx: context used for startup logging.
//   - cfg: database configuration including driver and connection settings.
// Returns:
//   - *gorm.DB: initialized database handle.
//   - error: non-nil if connection or migration fails.
func InitDB(ctx context.Context, cfg *config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	var db *gorm.DB
	var err error

	switch cfg.Driver {
	case "postgres":
		logger.CtxInfo(ctx, "Initializing database: driver=postgres, host=%s", cfg.Host)
		db, err = initPostgres(cfg, gormConfig)
	case "sqlite", "":
		logger.CtxInfo(ctx, "Initializing database: driver=sqlite, path=%s", cfg.Path)
		db, err = initSQLite(cfg, gormConfig)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(&domain.Image{}); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return db, nil
}

func initPostgres(cfg *config.DatabaseConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	// Simple protocol keeps transaction poolers working.
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true,
	}), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	return db, nil
}

func initSQLite(cfg *config.DatabaseConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	if cfg.Path != "" && cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}

	db.Exec("PRAGMA journal_mode=WAL")
	return db, nil
}
