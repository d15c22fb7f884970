package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/bindrune/internal"
	pkgconfig "github.com/starford/bindrune/pkg/config"
)

// loadConfig merges the optional config file with command-line flags.
// Flags win over file values, which win over defaults.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()

	if path := cmd.String("config"); path != "" {
		if err := pkgconfig.LoadIfExists(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if cmd.IsSet("port") {
		cfg.API.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("graph") {
		cfg.API.Graph = cmd.String("graph")
	}
	if cmd.IsSet("token") {
		cfg.API.Token = cmd.String("token")
	}
	if cmd.IsSet("output") {
		cfg.Bundle.OutputDir = cmd.String("output")
	}
	if cmd.IsSet("cache") {
		cfg.Bundle.CacheDir = cmd.String("cache")
	}
	if cmd.IsSet("history") {
		cfg.History.Path = cmd.String("history")
	}
	return cfg, nil
}

func apiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port of the Roam Local API",
			Sources: cli.EnvVars("ROAM_API_PORT"),
		},
		&cli.StringFlag{
			Name:    "graph",
			Aliases: []string{"g"},
			Usage:   "Name of the Roam graph",
			Sources: cli.EnvVars("ROAM_GRAPH"),
		},
		&cli.StringFlag{
			Name:    "token",
			Aliases: []string{"t"},
			Usage:   "Bearer token for the Roam Local API",
			Sources: cli.EnvVars("ROAM_API_TOKEN"),
		},
	}
}

func runBundle(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return internal.RunBundle(ctx,
		internal.WithConfig(cfg),
		internal.WithSource(cmd.String("markdown-file")),
		internal.WithWatch(cmd.Bool("watch")),
	)
}

func runConvert(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunConvert(ctx,
		cmd.String("markdown-file"),
		cmd.String("out-file"),
		internal.WithConfig(cfg),
	)
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("listen-port") {
		cfg.Preview.Port = int(cmd.Int("listen-port"))
	}
	if err := cfg.Preview.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return internal.RunServe(ctx, internal.WithConfig(cfg))
}

func runHistory(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunHistory(ctx, int(cmd.Int("limit")), internal.WithConfig(cfg))
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:  "bindrune",
		Usage: "Bundle Roam Research Markdown exports into self-contained directories with local assets",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Sources: cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "bundle",
				Usage:  "Fetch remote images and rewrite a Markdown export into an .mdbundle directory",
				Action: runBundle,
				Flags: append(apiFlags(),
					&cli.StringFlag{
						Name:     "markdown-file",
						Aliases:  []string{"m"},
						Usage:    "Path to the Markdown file to process",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Directory where bundles are written",
					},
					&cli.StringFlag{
						Name:    "cache",
						Usage:   "Asset cache directory (empty disables caching)",
						Sources: cli.EnvVars("ROAM_ASSET_CACHE"),
					},
					&cli.StringFlag{
						Name:  "history",
						Usage: "Path to the run-journal SQLite database",
					},
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "Re-bundle whenever the source file changes",
					},
				),
			},
			{
				Name:   "convert",
				Usage:  "Rewrite a Roam outline export into standard Markdown",
				Action: runConvert,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "markdown-file",
						Aliases:  []string{"m"},
						Usage:    "Path to the Markdown file to convert",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "out-file",
						Aliases: []string{"O"},
						Usage:   "Output file path (default: <stem>_converted.md)",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve produced bundles over HTTP for preview",
				Action: runServe,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "listen-port",
						Usage: "Preview server port",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Directory where bundles are read from",
					},
				},
			},
			{
				Name:   "history",
				Usage:  "Show recent bundle runs",
				Action: runHistory,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "history",
						Usage: "Path to the run-journal SQLite database",
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Expose the bundler as an MCP server over stdio",
				Action: runMCP,
				Flags:  apiFlags(),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
