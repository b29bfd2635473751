package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"issuetracker/internal/bootstrap/config"
)

func TestOpenCreatesSQLiteDirectory(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "dir", "issues.sqlite")

	db, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", DSN: dsn, LogLevel: "silent"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := sqlDB.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(dsn)); err != nil {
		t.Fatalf("sqlite directory not created: %v", err)
	}
}

func TestOpenRejectsUnsupportedDriverAndLevel(t *testing.T) {
	if _, err := Open(context.Background(), config.DatabaseConfig{Driver: "postgres", DSN: "x"}); err == nil {
		t.Fatalf("Open(postgres) expected error")
	}
	if _, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", LogLevel: "chatty"}); err == nil {
		t.Fatalf("Open(bad log level) expected error")
	}
}
