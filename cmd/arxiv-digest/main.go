package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"arxivdigest/internal/config"
	"arxivdigest/internal/database"
	"arxivdigest/internal/feed"
	"arxivdigest/internal/netutil"
	"arxivdigest/internal/notify"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version will be set during build
var Version = "dev"

// Exit statuses reported to the shell.
const (
	exitOK = iota
	exitNotFound
	exitConfig
	exitNetwork
	exitCertificate
	exitMalformedFeed
	exitFailure
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCommand(stdout)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

// exitCode maps a failure to the status that identifies which boundary
// failed.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, feed.ErrNotFound):
		return exitNotFound
	case errors.Is(err, feed.ErrConfiguration), errors.Is(err, config.ErrInvalidConfig):
		return exitConfig
	case errors.Is(err, feed.ErrCertificate):
		return exitCertificate
	case errors.Is(err, feed.ErrNetwork):
		return exitNetwork
	case errors.Is(err, feed.ErrMalformedFeed):
		return exitMalformedFeed
	default:
		return exitFailure
	}
}

// app holds everything a subcommand needs, built from the loaded config.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	db      *database.DB
	service *feed.Service
}

func newApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath, opts.envFile)
	if err != nil {
		return nil, err
	}
	if opts.dbPath != "" {
		cfg.DBPath = opts.dbPath
	}

	logger, err := newLogger(cfg.LogLevel, opts.debug)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("error creating database directory: %w", err)
	}
	db, err := database.NewDB(cfg.DBPath, database.DefaultConfig())
	if err != nil {
		return nil, err
	}

	network := netutil.Options{UseProxy: cfg.UseProxy, CABundlePath: cfg.CABundlePath}
	client := feed.NewClient(feed.ClientConfig{BaseURL: cfg.BaseURL, Network: network}, logger)

	var notifier feed.Notifier
	if cfg.SlackWebhookURL != "" {
		notifier = notify.NewSlack(cfg.SlackWebhookURL, network, logger)
	}

	service := feed.NewService(feed.Config{
		Category:         cfg.Category,
		Keywords:         cfg.Keywords,
		MaxResults:       cfg.MaxResults,
		AbstractMaxChars: cfg.AbstractMaxChars,
	}, client, database.NewStarStore(db), notifier, logger)

	return &app{cfg: cfg, logger: logger, db: db, service: service}, nil
}

func (a *app) Close() {
	a.db.Close()
	_ = a.logger.Sync()
}

// newLogger writes human-readable logs to stderr, keeping stdout for the
// digest and listings.
func newLogger(level string, debug bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if debug {
		lvl = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
