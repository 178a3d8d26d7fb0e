package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/taxonomy-explorer/internal"
	pkgconfig "github.com/starford/taxonomy-explorer/pkg/config"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
}

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func browse(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if url := cmd.String("url"); url != "" {
		cfg.Browser.URL = url
	}
	return internal.RunBrowser(ctx, internal.WithConfig(cfg))
}

func locate(ctx context.Context, cmd *cli.Command) error {
	target := cmd.Args().First()
	if target == "" {
		return fmt.Errorf("locate: bigId argument is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if url := cmd.String("url"); url != "" {
		cfg.Browser.URL = url
	}
	return internal.RunLocate(ctx, target, cmd.Bool("name"), internal.WithConfig(cfg))
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func urlFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "url",
		Usage:   "Taxonomy server base URL (overrides browser.url)",
		Sources: cli.EnvVars("TAXONOMY_URL"),
	}
}

func main() {
	nameFlag := &cli.BoolFlag{
		Name:  "name",
		Usage: "Treat the argument as a category name instead of a bigId",
	}

	cmd := &cli.Command{
		Name:  "taxonomy-explorer",
		Usage: "Serve, browse and locate categories of a hierarchical sound taxonomy",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Index the ontology source and serve the tree, detail panels and events over HTTP",
				Flags:  []cli.Flag{configFlag()},
				Action: serve,
			},
			{
				Name:   "browse",
				Usage:  "Explore the taxonomy interactively in the terminal",
				Flags:  []cli.Flag{configFlag(), urlFlag()},
				Action: browse,
			},
			{
				Name:      "locate",
				Usage:     "Print the rows shown once the path to a node is expanded",
				ArgsUsage: "<bigId | name>",
				Flags:     []cli.Flag{configFlag(), urlFlag(), nameFlag},
				Action:    locate,
			},
			{
				Name:   "mcp",
				Usage:  "Serve taxonomy tools to MCP clients over stdio",
				Flags:  []cli.Flag{configFlag()},
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
