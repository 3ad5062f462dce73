package bootstrap

import (
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/playlistbot/core/config"
	coredatabase "github.com/m3rciful/playlistbot/core/database"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunRequiresConfig(t *testing.T) {
	if _, err := Run(Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestRunMigratesWhenFSProvided(t *testing.T) {
	var migrated bool
	res, err := Run(Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Path: ":memory:"},
		Migrations: fstest.MapFS{"sqlite/0001_x.up.sql": {Data: []byte("SELECT 1;")}},
		LoggerInit: noLogger,
		Migrate: func(db *sqlx.DB, cfg coredatabase.Config, _ fs.FS) error {
			migrated = db != nil
			return nil
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	defer res.Close()
	if !migrated {
		t.Fatal("migrate hook was not called")
	}
}

func TestRunPropagatesMigrationFailure(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Path: ":memory:"},
		Migrations: fstest.MapFS{},
		LoggerInit: noLogger,
		Migrate: func(*sqlx.DB, coredatabase.Config, fs.FS) error {
			return boom
		},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestRunSkipsMigrationsWithoutFS(t *testing.T) {
	res, err := Run(Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Path: ":memory:"},
		LoggerInit: noLogger,
		Migrate: func(*sqlx.DB, coredatabase.Config, fs.FS) error {
			t.Fatal("migrate must not run without an FS")
			return nil
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	_ = res.Close()
}
