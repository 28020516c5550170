package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/zktaccess/zktadmin/internal/client/migrations"
	"github.com/zktaccess/zktadmin/internal/client/repositories/metadata"
	"github.com/zktaccess/zktadmin/internal/logging"

	_ "modernc.org/sqlite"
)

// RunMigrations applies the embedded goose migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// OpenSQLite opens (creating if needed) the session database at dsn and
// applies migrations. ":memory:" gives a session that lives as long as the
// process.
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	// One connection: the store is used by a single console and an
	// in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Open returns a Store persisted in the SQLite database at dsn together with
// the database handle, which the caller closes.
func Open(ctx context.Context, dsn string, logger logging.Logger) (*Store, *sql.DB, error) {
	db, err := OpenSQLite(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	return NewStore(metadata.NewSQLiteRepository(db), logger), db, nil
}
