// Package db opens the local SQLite database, applies migrations and wires
// up the repositories.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/akozadaev/inkpad/internal/client/migrations"
	"github.com/akozadaev/inkpad/internal/client/repositories/metadata"
	"github.com/akozadaev/inkpad/internal/client/repositories/notes"
	"github.com/akozadaev/inkpad/internal/client/repositories/pending"
	"github.com/pressly/goose/v3"
)

// Repositories bundles the stores backed by one local database.
type Repositories struct {
	Notes    notes.Repository
	Pending  pending.Queue
	Metadata metadata.Repository
	DB       *sql.DB
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if necessary) the database at dsn, migrates it and
// returns ready-to-use repositories. The caller owns the returned handle and
// must Close it. Callers are expected to blank-import a sqlite driver.
func Open(ctx context.Context, dsn string) (*Repositories, error) {
	database, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := RunMigrations(ctx, database); err != nil {
		_ = database.Close()
		return nil, err
	}

	return &Repositories{
		Notes:    notes.NewSQLiteRepository(database),
		Pending:  pending.NewSQLiteQueue(database),
		Metadata: metadata.NewSQLiteRepository(database),
		DB:       database,
	}, nil
}

// Close closes the underlying database.
func (r *Repositories) Close() error {
	return r.DB.Close()
}
