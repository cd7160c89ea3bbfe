package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("db")

// tableSchema is the ordered DDL for one table. Every statement must be
// safe to run against an existing schema.
type tableSchema struct {
	table      string
	statements []string
}

var postgresSchema = []tableSchema{
	{
		table: "users",
		statements: []string{`
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL
	);`},
	},
	{
		table: "cars",
		statements: []string{`
	CREATE TABLE IF NOT EXISTS cars (
		id BIGSERIAL PRIMARY KEY,
		make VARCHAR(50) NOT NULL,
		model VARCHAR(50) NOT NULL,
		year INT NOT NULL,
		price NUMERIC(10, 2) NOT NULL,
		description TEXT,
		image_url VARCHAR(255),
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`, `
	CREATE OR REPLACE FUNCTION touch_updated_at() RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = CURRENT_TIMESTAMP;
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;`, `
	DROP TRIGGER IF EXISTS cars_touch_updated_at ON cars;`, `
	CREATE TRIGGER cars_touch_updated_at
		BEFORE UPDATE ON cars
		FOR EACH ROW EXECUTE FUNCTION touch_updated_at();`},
	},
}

var sqliteSchema = []tableSchema{
	{
		table: "users",
		statements: []string{`
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL
	);`},
	},
	{
		table: "cars",
		statements: []string{`
	CREATE TABLE IF NOT EXISTS cars (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		make TEXT NOT NULL,
		model TEXT NOT NULL,
		year INTEGER NOT NULL,
		price NUMERIC(10, 2) NOT NULL,
		description TEXT,
		image_url TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`, `
	CREATE TRIGGER IF NOT EXISTS cars_touch_updated_at
		AFTER UPDATE ON cars
		FOR EACH ROW WHEN NEW.updated_at = OLD.updated_at
	BEGIN
		UPDATE cars SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
	END;`},
	},
}

func schemaFor(d Dialect) ([]tableSchema, error) {
	switch d {
	case DialectPostgres:
		return postgresSchema, nil
	case DialectSQLite:
		return sqliteSchema, nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", d)
	}
}

// InitializeSchema creates the users and cars tables, in that order, on a
// single connection checked out from pool. The connection goes back to the
// pool on every path. The first failing statement stops the run.
func InitializeSchema(ctx context.Context, pool *sqlx.DB, dialect Dialect) error {
	ctx, span := tracer.Start(ctx, "db.InitializeSchema", trace.WithAttributes(
		attribute.String("db.dialect", string(dialect)),
	))
	defer span.End()

	tables, err := schemaFor(dialect)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unsupported dialect")
		return err
	}

	conn, err := pool.Connx(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to acquire connection")
		return fmt.Errorf("failed to acquire connection for schema setup: %w", err)
	}
	defer conn.Close()
	slog.InfoContext(ctx, "Database connection established for schema setup", "dialect", dialect)

	for _, ts := range tables {
		for _, stmt := range ts.statements {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "schema statement failed")
				return fmt.Errorf("failed to create %s table: %w", ts.table, err)
			}
		}
		slog.InfoContext(ctx, "Table is ready", "table", ts.table)
	}

	return nil
}
