package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vitalform/backend-api/internal/config"
	"github.com/vitalform/backend-api/internal/logging"
)

// PostgresDB wraps a pgx connection pool. Supabase exposes a regular
// Postgres connection string, so this is also the Supabase path.
type PostgresDB struct {
	Pool *pgxpool.Pool
}

var _ Database = (*PostgresDB)(nil)

// NewPostgresConnection creates a pool with the default context.
func NewPostgresConnection(cfg *config.DatabaseConfig) (*PostgresDB, error) {
	return NewPostgresConnectionWithContext(context.Background(), cfg)
}

// NewPostgresConnectionWithContext creates a pool, retrying a few times with
// backoff before giving up.
func NewPostgresConnectionWithContext(ctx context.Context, cfg *config.DatabaseConfig) (*PostgresDB, error) {
	poolConfig, err := buildPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	log := logging.Default().WithComponent("database").Sugar()

	var pool *pgxpool.Pool
	for attempts := 0; attempts < 3; attempts++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			break
		}
		log.Warnf("Database connection attempt %d failed: %v", attempts+1, err)
		if attempts < 2 {
			time.Sleep(time.Duration(1<<uint(attempts)) * time.Second)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool after retries: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Successfully connected to PostgreSQL")

	return &PostgresDB{Pool: pool}, nil
}

func buildPoolConfig(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if poolConfig.MinConns > poolConfig.MaxConns && poolConfig.MaxConns > 0 {
		return nil, fmt.Errorf("invalid pool sizing: min_conns (%d) > max_conns (%d)", poolConfig.MinConns, poolConfig.MaxConns)
	}

	if cfg.ConnMaxLifetime != "" {
		d, err := time.ParseDuration(cfg.ConnMaxLifetime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse conn_max_lifetime: %w", err)
		}
		poolConfig.MaxConnLifetime = d
	}
	if cfg.ConnMaxIdleTime != "" {
		d, err := time.ParseDuration(cfg.ConnMaxIdleTime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse conn_max_idle_time: %w", err)
		}
		poolConfig.MaxConnIdleTime = d
	}

	poolConfig.ConnConfig.Tracer = &sentryQueryTracer{}

	return poolConfig, nil
}

// Close closes the pool.
func (db *PostgresDB) Close() error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	return nil
}

// HealthCheck verifies connectivity.
func (db *PostgresDB) HealthCheck(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("postgres pool is not initialized")
	}
	return db.Pool.Ping(ctx)
}

func (db *PostgresDB) IsReady() bool {
	return db != nil && db.Pool != nil
}

func (db *PostgresDB) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	if db.Pool == nil {
		return nil, fmt.Errorf("postgres pool is not initialized")
	}
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return PgxRows{Rows: rows}, nil
}

func (db *PostgresDB) QueryRow(ctx context.Context, query string, args ...any) Row {
	if db.Pool == nil {
		return nil
	}
	return PgxRow{Row: db.Pool.QueryRow(ctx, query, args...)}
}

func (db *PostgresDB) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	if db.Pool == nil {
		return nil, fmt.Errorf("postgres pool is not initialized")
	}
	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return PgxResult{CommandTag: tag}, nil
}

func (db *PostgresDB) Begin(ctx context.Context) (Tx, error) {
	if db.Pool == nil {
		return nil, fmt.Errorf("postgres pool is not initialized")
	}
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return PgxTx{Tx: tx}, nil
}
