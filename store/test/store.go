package test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/t3clone/t3chat/internal/profile"
	"github.com/t3clone/t3chat/store"
	"github.com/t3clone/t3chat/store/db"
)

// NewTestingStore opens a migrated store. It uses a temporary SQLite file unless
// DRIVER=postgres and POSTGRES_TEST_DSN are set.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()

	p := getTestingProfile(t)
	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	s := store.New(dbDriver, p)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func getTestingProfile(t *testing.T) *profile.Profile {
	dir := t.TempDir()
	driver := getDriverFromEnv()
	dsn := filepath.Join(dir, "t3chat_test.db")
	if driver == "postgres" {
		dsn = os.Getenv("POSTGRES_TEST_DSN")
		if dsn == "" {
			t.Skip("POSTGRES_TEST_DSN is not set")
		}
	}
	return &profile.Profile{
		Mode:   "prod",
		Data:   dir,
		Driver: driver,
		DSN:    dsn,
	}
}

func getDriverFromEnv() string {
	driver := os.Getenv("DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	return driver
}
