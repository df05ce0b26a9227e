package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/flownote/internal"
	pkgconfig "github.com/starford/flownote/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Debug("config file not found, using defaults", slog.String("path", configPath))
	}
	if dir := cmd.String("state-dir"); dir != "" {
		cfg.Storage.StateDir = dir
	}
	return cfg, nil
}

func withConfig(fn func(ctx context.Context, cmd *cli.Command, opts []internal.Option) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return fn(ctx, cmd, []internal.Option{internal.WithConfig(cfg)})
	}
}

func run(ctx context.Context, _ *cli.Command, opts []internal.Option) error {
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "flownote",
		Usage:  "Local-first notes and flows stored in a directory you choose",
		Action: withConfig(run),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "state-dir",
				Usage:   "Directory for the handle database and local fallback storage",
				Sources: cli.EnvVars("FLOWNOTE_STATE_DIR"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "connect",
				Usage:     "Store data in DIR and move the local data into it (stop the server first)",
				ArgsUsage: "DIR",
				Action: withConfig(func(ctx context.Context, cmd *cli.Command, opts []internal.Option) error {
					dir := cmd.Args().First()
					if dir == "" {
						return fmt.Errorf("connect: DIR is required")
					}
					return internal.Connect(ctx, dir, opts...)
				}),
			},
			{
				Name:      "restore",
				Usage:     "Re-grant access to the connected directory, or pick DIR when it is gone",
				ArgsUsage: "[DIR]",
				Action: withConfig(func(ctx context.Context, cmd *cli.Command, opts []internal.Option) error {
					return internal.RestoreAccess(ctx, cmd.Args().First(), opts...)
				}),
			},
			{
				Name:  "disconnect",
				Usage: "Forget the directory and go back to local storage; files are kept",
				Action: withConfig(func(ctx context.Context, _ *cli.Command, opts []internal.Option) error {
					return internal.Disconnect(ctx, opts...)
				}),
			},
			{
				Name:  "status",
				Usage: "Print the storage state as JSON",
				Action: withConfig(func(ctx context.Context, _ *cli.Command, opts []internal.Option) error {
					return internal.Status(ctx, opts...)
				}),
			},
			{
				Name:  "mcp",
				Usage: "Serve MCP tools over stdio",
				Action: withConfig(func(ctx context.Context, _ *cli.Command, opts []internal.Option) error {
					return internal.ServeMCP(ctx, opts...)
				}),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
