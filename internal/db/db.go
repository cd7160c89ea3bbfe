package db

import (
	"context"
	"ctchen222/car-dealership/internal/config"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/glebarez/go-sqlite"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// Dialect selects the DDL flavour used by InitializeSchema.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// driverNames maps a dialect to the database/sql driver registered for it.
var driverNames = map[Dialect]string{
	DialectPostgres: "pgx",
	DialectSQLite:   "sqlite",
}

// DriverName returns the database/sql driver name for d.
func (d Dialect) DriverName() (string, error) {
	name, ok := driverNames[d]
	if !ok {
		return "", fmt.Errorf("unsupported dialect %q", d)
	}
	return name, nil
}

// Connect opens a connection pool for cfg and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DBConfig) (*sqlx.DB, Dialect, error) {
	dialect := Dialect(cfg.Driver)
	driver, err := dialect.DriverName()
	if err != nil {
		return nil, "", err
	}

	pool, err := sqlx.Open(driver, cfg.DSN())
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database connection: %w", err)
	}

	if dialect == DialectSQLite {
		// One writer at a time; concurrent writers would get SQLITE_BUSY.
		pool.SetMaxOpenConns(1)
	} else {
		pool.SetMaxOpenConns(20)
		pool.SetMaxIdleConns(5)
		pool.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		pool.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}

	slog.InfoContext(ctx, "Connected to database", "driver", driver)
	return pool, dialect, nil
}
