package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/starford/whatday/internal"
	"github.com/starford/whatday/internal/highlight"
	pkgconfig "github.com/starford/whatday/pkg/config"
)

// loadConfig reads the --config file on top of the defaults. A missing file
// leaves the defaults in place.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
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

func highlightPage(ctx context.Context, cmd *cli.Command) error {
	target := cmd.Args().First()
	if target == "" {
		return fmt.Errorf("highlight: a file or URL is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if l := cmd.String("locale"); l != "" {
		cfg.Highlight.Locale = l
	}
	if pos := cmd.String("icon"); pos != "" {
		cfg.Highlight.IconPosition = highlight.IconPosition(pos)
	}
	if cmd.Bool("no-background") {
		cfg.Highlight.Background = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts := []internal.Option{internal.WithConfig(cfg)}
	if path := cmd.String("output"); path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("highlight: %w", err)
		}
		defer f.Close()
		opts = append(opts, internal.WithOutput(f))
	}

	res, err := internal.Highlight(ctx, target, opts...)
	if err != nil {
		return fmt.Errorf("highlight: %w", err)
	}
	fmt.Fprintf(os.Stderr, "%d dates highlighted (locale %s, %s)\n", res.Total, res.Locale, res.Duration)
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg))
}

func main() {
	// maxprocs.Set only fails on an invalid GOMAXPROCS; runtime defaults apply then.
	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))

	cmd := &cli.Command{
		Name:   "whatday",
		Usage:  "Highlight dates in pages and show the day of the week they fall on",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Watch the page directory and serve the HTTP API",
				Action: serve,
			},
			{
				Name:      "highlight",
				Usage:     "Highlight a single file or URL and print the HTML",
				ArgsUsage: "<file|url>",
				Action:    highlightPage,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write HTML to `FILE` instead of stdout"},
					&cli.StringFlag{Name: "locale", Aliases: []string{"l"}, Usage: "Force a locale such as pl-PL"},
					&cli.StringFlag{Name: "icon", Usage: "Indicator position: before or after"},
					&cli.BoolFlag{Name: "no-background", Usage: "Underline dates instead of filling them"},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
