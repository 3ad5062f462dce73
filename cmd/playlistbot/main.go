package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/m3rciful/playlistbot/core/buildinfo"
)

const (
	configEnvVar      = "CONFIG_PATH"
	defaultConfigPath = "config.yaml"
)

func main() {
	app := &cli.Command{
		Name:    "playlistbot",
		Usage:   "Telegram bot that keeps playlists of forwarded audio",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file (YAML or TOML); falls back to $" + configEnvVar,
			},
		},
		Action: runBot,
		Commands: []*cli.Command{
			runCommand(),
			migrateCommand(),
			versionCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "playlistbot: %v\n", err)
		os.Exit(1)
	}
}
