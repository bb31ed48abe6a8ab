package db

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"

	"github.com/pressly/goose/v3"
)

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations, migrationsDir+"/*.sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(files) < 2 {
		t.Fatalf("expected users and credential migrations, got %v", files)
	}
}

func TestMigrateDB_UsesEmbeddedDir(t *testing.T) {
	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	if err := MigrateDB(context.Background(), nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if gotDir != migrationsDir {
		t.Fatalf("expected dir %q, got %q", migrationsDir, gotDir)
	}
}

func TestMigrateDB_WrapsError(t *testing.T) {
	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	boom := errors.New("boom")
	gooseUpContext = func(_ context.Context, _ *sql.DB, _ string, _ ...goose.OptionsFunc) error {
		return boom
	}

	err := MigrateDB(context.Background(), nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}
