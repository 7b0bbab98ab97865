package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/vitalform/backend-api/internal/config"
	"github.com/vitalform/backend-api/internal/logging"
)

// Database abstracts the credential store. Both the PostgreSQL pool and the
// SQLite connection implement it; services only ever see DBPool.
type Database interface {
	DBPool
	Close() error
	IsReady() bool
	HealthCheck(ctx context.Context) error
}

// NewConnection opens the store selected by cfg.Driver.
func NewConnection(cfg *config.DatabaseConfig) (Database, error) {
	return NewConnectionWithContext(context.Background(), cfg)
}

// NewConnectionWithContext opens the store selected by cfg.Driver using the
// given context for connection establishment.
func NewConnectionWithContext(ctx context.Context, cfg *config.DatabaseConfig) (Database, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = "sqlite"
	}

	log := logging.Default().WithComponent("database")

	switch driver {
	case "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			path = "vitalform.db"
		}
		log.Sugar().Infof("Connecting to SQLite database: %s", path)
		return NewSQLiteConnection(path)

	case "postgres", "postgresql":
		log.Sugar().Infof("Connecting to PostgreSQL database: %s@%s:%d/%s", cfg.User, cfg.Host, cfg.Port, cfg.DBName)
		return NewPostgresConnectionWithContext(ctx, cfg)

	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres)", driver)
	}
}
