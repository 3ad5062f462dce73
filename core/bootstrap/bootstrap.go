// Package bootstrap brings up the infrastructure every bot needs before its
// handlers are wired: logging, the database and its schema.
package bootstrap

import (
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/playlistbot/core/config"
	coredatabase "github.com/m3rciful/playlistbot/core/database"
	"github.com/m3rciful/playlistbot/core/logger"
)

// Options describe one bootstrap. The function fields are hooks for tests;
// nil picks the real implementation.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config
	// Migrations holds per-driver migration directories; nil skips migrating.
	Migrations fs.FS

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(*sqlx.DB, coredatabase.Config, fs.FS) error
}

func (o *Options) fillDefaults() {
	if o.LoggerInit == nil {
		o.LoggerInit = logger.InitLogger
	}
	if o.Connect == nil {
		o.Connect = coredatabase.Connect
	}
	if o.Migrate == nil {
		o.Migrate = coredatabase.RunMigrations
	}
}

// Result is what Run brought up.
type Result struct {
	DB *sqlx.DB
}

// Close releases everything Run opened.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run initializes the logger, connects to the database and migrates it.
// Nothing stays open when it fails.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	opts.fillDefaults()

	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	start := time.Now()
	db, err := opts.Connect(opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	res := &Result{DB: db}

	if opts.Migrations != nil {
		if err := opts.Migrate(db, opts.Database, opts.Migrations); err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
	}

	logger.Info(logger.Background(), "app", "bootstrap",
		slog.String("status", "ok"),
		slog.String("driver", opts.Database.Driver),
		slog.Bool("migrated", opts.Migrations != nil),
		slog.Duration("duration", logger.Took(start)),
	)
	return res, nil
}
