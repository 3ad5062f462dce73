package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/m3rciful/playlistbot/core/buildinfo"
	corecmd "github.com/m3rciful/playlistbot/core/cmd"
	coredatabase "github.com/m3rciful/playlistbot/core/database"
	"github.com/m3rciful/playlistbot/core/logger"
	"github.com/m3rciful/playlistbot/internal/app"
	"github.com/m3rciful/playlistbot/internal/config"
	"github.com/m3rciful/playlistbot/internal/store"
)

// runCommand starts the bot; it is also the default action.
func runCommand() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "Run the bot until interrupted",
		Action: runBot,
	}
}

func runBot(_ context.Context, cmd *cli.Command) error {
	return corecmd.Run(corecmd.Options{
		ConfigPath:        cmd.String("config"),
		ConfigEnvVar:      configEnvVar,
		DefaultConfigPath: defaultConfigPath,
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := config.Load(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Bootstrap: func(cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			c, ok := cfg.(*config.Config)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", cfg)
			}
			return app.New(c, app.Options{})
		},
	})
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: withMigrator(func(mg *coredatabase.Migrator, _ *cli.Command) error {
					return mg.Up()
				}),
			},
			{
				Name:  "down",
				Usage: "Roll back migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "steps",
						Usage: "Number of migrations to roll back",
						Value: 1,
					},
				},
				Action: withMigrator(func(mg *coredatabase.Migrator, cmd *cli.Command) error {
					return mg.Down(int(cmd.Int("steps")))
				}),
			},
			{
				Name:  "version",
				Usage: "Print the current schema version",
				Action: withMigrator(func(mg *coredatabase.Migrator, _ *cli.Command) error {
					v, dirty, err := mg.Version()
					if err != nil {
						return err
					}
					fmt.Printf("schema version %d (dirty=%t)\n", v, dirty)
					return nil
				}),
			},
		},
	}
}

// withMigrator loads configuration, opens the database and hands fn a migrator.
func withMigrator(fn func(*coredatabase.Migrator, *cli.Command) error) cli.ActionFunc {
	return func(_ context.Context, cmd *cli.Command) error {
		path, err := corecmd.ResolveConfigPath(cmd.String("config"), configEnvVar, defaultConfigPath)
		if err != nil {
			return err
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		if err := logger.InitLogger(cfg.CoreConfig()); err != nil {
			return err
		}
		defer logger.Shutdown()

		db, err := coredatabase.Connect(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		mg, err := coredatabase.NewMigrator(db, cfg.Database, store.Migrations())
		if err != nil {
			return err
		}
		return fn(mg, cmd)
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print build information",
		Action: func(context.Context, *cli.Command) error {
			fmt.Println(buildinfo.String())
			return nil
		},
	}
}
