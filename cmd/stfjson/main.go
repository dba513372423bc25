package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/taviso/stfjson/internal"
	"github.com/taviso/stfjson/internal/index"
	"github.com/taviso/stfjson/internal/mcpserver"
	"github.com/taviso/stfjson/internal/stf"
	"github.com/taviso/stfjson/internal/storage"
	"github.com/taviso/stfjson/internal/tree"
	pkgconfig "github.com/taviso/stfjson/pkg/config"
)

// loadConfig builds the effective configuration: defaults, then the optional
// config file, then command-line overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("log-level") {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
			return nil, fmt.Errorf("bad log level: %w", err)
		}
		cfg.App.LogLevel = lvl
	}
	if cmd.IsSet("date-format") {
		cfg.Convert.DateFormat = int(cmd.Int("date-format"))
	}
	if cmd.IsSet("compact") {
		cfg.Convert.Compact = cmd.Bool("compact")
	}
	if cmd.IsSet("archive") {
		cfg.Archive.Path = cmd.String("archive")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// stderrLogger builds the diagnostics logger for the conversion commands.
// Output goes to stderr so stdout stays clean for the JSON document.
func stderrLogger(cfg *internal.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// convert is the default action: read one STF stream, write the JSON
// document. Any error aborts without partial output.
func convert(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := stderrLogger(cfg)

	var in io.Reader = os.Stdin
	if p := cmd.String("input"); p != "" {
		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	var out io.Writer = os.Stdout
	if p := cmd.String("output"); p != "" {
		f, err := os.Create(p)
		if err != nil {
			return fmt.Errorf("open output: %w", err)
		}
		defer f.Close()
		out = f
	}

	builder := stf.NewBuilder(stf.NewLexer(in, logger), logger)
	builder.SetDateFormat(cfg.Convert.DateFormat)

	doc, err := builder.Run()
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}

	return tree.Encode(out, doc, cfg.Convert.Compact)
}

// indexAction does a one-shot archive sync into the SQLite index.
func indexAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := stderrLogger(cfg)

	store, err := storage.NewFS(cfg.Archive.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	return index.Sync(db, store, logger)
}

// serveAction runs the archive HTTP server.
func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Run(ctx, internal.WithConfig(cfg))
}

// mcpAction serves the archive over MCP on stdin/stdout.
func mcpAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := stderrLogger(cfg)

	store, err := storage.NewFS(cfg.Archive.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return mcpserver.New(store, db, logger).ServeStdio()
}

func main() {
	commonFlags := []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("APP_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (debug, info, warn, error)",
		},
		&cli.StringFlag{
			Name:  "archive",
			Usage: "Path to the directory of .stf exports",
		},
	}

	cmd := &cli.Command{
		Name:   "stfjson",
		Usage:  "Convert Lotus Agenda STF exports to JSON, with an indexed archive server",
		Action: convert,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Input STF file (default: stdin)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output JSON file (default: stdout)",
			},
			&cli.IntFlag{
				Name:  "date-format",
				Usage: "Initial date format selector (1-12)",
			},
			&cli.BoolFlag{
				Name:  "compact",
				Usage: "Emit compact JSON instead of pretty-printed",
			},
		}, commonFlags...),
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Convert and index every export in the archive",
				Action: indexAction,
				Flags:  commonFlags,
			},
			{
				Name:   "serve",
				Usage:  "Serve the archive over HTTP with live re-indexing",
				Action: serveAction,
				Flags:  commonFlags,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the archive over the Model Context Protocol on stdio",
				Action: mcpAction,
				Flags:  commonFlags,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
