package database

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/playlistbot/core/logger"
)

// Migrator applies embedded migrations for the configured driver.
// Migrations live in a per-driver directory of the provided FS
// (sqlite/0001_init.up.sql, postgres/0001_init.up.sql, ...).
type Migrator struct {
	m      *migrate.Migrate
	files  []string
	driver string
}

// NewMigrator wires golang-migrate to an already opened connection.
// The returned Migrator must not be closed: closing it would close db.
func NewMigrator(db *sqlx.DB, cfg Config, migrations fs.FS) (*Migrator, error) {
	if db == nil || migrations == nil {
		return nil, fmt.Errorf("migrate: db and migrations are required")
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	files := listMigrationFiles(migrations, cfg.Driver)
	logFiles("resolve", files, slog.String("path", cfg.Driver))

	src, err := iofs.New(migrations, cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations source: %w", err)
	}
	var drv migratedb.Driver
	if cfg.Driver == DriverPostgres {
		drv, err = migratepg.WithInstance(db.DB, &migratepg.Config{})
	} else {
		drv, err = migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	}
	if err != nil {
		return nil, migrationError("init", fmt.Errorf("failed to initialize migration driver: %w", err))
	}
	m, err := migrate.NewWithInstance("iofs", src, cfg.Driver, drv)
	if err != nil {
		return nil, migrationError("init", fmt.Errorf("failed to initialize migrations: %w", err))
	}
	return &Migrator{m: m, files: files, driver: cfg.Driver}, nil
}

// RunMigrations applies all up migrations for cfg.Driver from migrations.
func RunMigrations(db *sqlx.DB, cfg Config, migrations fs.FS) error {
	mg, err := NewMigrator(db, cfg, migrations)
	if err != nil {
		return err
	}
	return mg.Up()
}

// Up applies all pending migrations.
func (mg *Migrator) Up() error {
	from, _, _ := mg.Version()
	start := time.Now()
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return migrationError("apply", fmt.Errorf("migration execution failed: %w", err))
	}
	to, _, _ := mg.Version()

	applied := selectApplied(mg.files, uint64(from), uint64(to))
	if len(applied) > 0 {
		logFiles("apply", applied)
	}
	mg.summary("summary", from, to,
		slog.Int("files", len(applied)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// Down rolls back the given number of migrations.
func (mg *Migrator) Down(steps int) error {
	if steps <= 0 {
		return fmt.Errorf("migrate down: steps must be > 0")
	}
	from, _, _ := mg.Version()
	if err := mg.m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return migrationError("rollback", fmt.Errorf("migration rollback failed: %w", err))
	}
	to, _, _ := mg.Version()
	mg.summary("rollback", from, to)
	return nil
}

// Version reports the applied schema version; 0 when nothing was applied yet.
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func (mg *Migrator) summary(event string, from, to uint, extra ...slog.Attr) {
	logger.LogEvent(logger.Background(), logger.MIG, slog.LevelInfo, event,
		append([]slog.Attr{
			slog.String("status", "ok"),
			slog.String("driver", mg.driver),
			slog.Uint64("from_ver", uint64(from)),
			slog.Uint64("to_ver", uint64(to)),
		}, extra...)...)
}

func migrationError(event string, err error) error {
	logger.LogEvent(logger.Background(), logger.MIG, slog.LevelError, event,
		slog.String("status", "fail"),
		slog.String("err", err.Error()),
	)
	return err
}

// logFiles writes a debug line previewing the first migration file names.
func logFiles(event string, files []string, extra ...slog.Attr) {
	preview, truncated := logger.SummarizeStrings(files, 6)
	attrs := append([]slog.Attr{
		slog.Int("files_total", len(files)),
		slog.String("files_preview", preview),
	}, extra...)
	if truncated {
		attrs = append(attrs, slog.Bool("files_truncated", true))
	}
	logger.LogEvent(logger.Background(), logger.MIG, slog.LevelDebug, event, attrs...)
}

func listMigrationFiles(fsys fs.FS, dir string) []string {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := path.Base(e.Name())
		if strings.HasSuffix(name, ".up.sql") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

func selectApplied(files []string, from, to uint64) []string {
	var out []string
	if to <= from {
		return out
	}
	for _, f := range files {
		v := parseVersion(f)
		if v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
