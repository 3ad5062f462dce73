package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/m3rciful/playlistbot/core/logger"
)

const (
	pingTimeout = 5 * time.Second
	pingEvery   = 2 * time.Second
	// pgStartupWait covers a Postgres container that is still booting.
	pgStartupWait = 30 * time.Second
)

// Connect opens the pool described by cfg and waits until the database
// answers.
func Connect(cfg Config) (*sqlx.DB, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	start := time.Now()
	target := []slog.Attr{
		slog.String("driver", cfg.Driver),
		slog.String("db", cfg.Target()),
	}
	fail := func(event string, err error) error {
		logger.LogEvent(logger.Background(), logger.DB, slog.LevelError, event,
			append(target, slog.String("status", "fail"), slog.String("err", err.Error()))...)
		return err
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fail("db.connect", fmt.Errorf("db open: %w", err))
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)
	if cfg.InMemory() {
		// closing the last connection would drop the database
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	wait := pingTimeout
	if cfg.Driver == DriverPostgres {
		wait = pgStartupWait
	}
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	if err := WaitReady(ctx, db); err != nil {
		_ = db.Close()
		return nil, fail("db.ping", fmt.Errorf("db ping: %w", err))
	}

	logger.LogEvent(logger.Background(), logger.DB, slog.LevelInfo, "db.connect",
		append(target,
			slog.String("status", "ok"),
			slog.Int("pool_open", cfg.MaxConnections),
			slog.Duration("duration", logger.Took(start)),
		)...)
	return db, nil
}

// WaitReady pings db every few seconds until it answers or ctx ends.
func WaitReady(ctx context.Context, db *sqlx.DB) error {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	for {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("database not ready: %w", err)
		case <-ticker.C:
		}
	}
}
