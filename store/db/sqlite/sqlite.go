package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	// Import the pure Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/t3clone/t3chat/internal/profile"
	"github.com/t3clone/t3chat/store"
)

// SQLite is meant for development, demo mode and tests. It shares the SQL of the
// PostgreSQL driver apart from placeholders and the schema file.

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a database driver.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// busy_timeout avoids SQLITE_BUSY under concurrent writes from the background indexer.
	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	// A single writer connection keeps SQLite transactions serialised.
	sqliteDB.SetMaxOpenConns(1)

	return &DB{db: sqliteDB, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'chats')").Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	return exists, nil
}
