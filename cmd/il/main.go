package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/untoldecay/InstructionLog/internal/cache"
	"github.com/untoldecay/InstructionLog/internal/config"
	"github.com/untoldecay/InstructionLog/internal/engine"
	"github.com/untoldecay/InstructionLog/internal/logging"
	"github.com/untoldecay/InstructionLog/internal/storage"
	"github.com/untoldecay/InstructionLog/internal/storage/sqlite"
)

// skipStoreAnnotation marks commands that run without an open store.
const skipStoreAnnotation = "il/skip-store"

var (
	dbPath     string
	actorFlag  string
	jsonOutput bool
	noCache    bool
	logLevel   string
	verbose    bool

	rootCtx    context.Context
	rootCancel context.CancelFunc

	settings  *config.Settings
	logger    *slog.Logger
	logCloser io.Closer
	store     *sqlite.SQLiteStorage
	eng       *engine.Engine
	sessionID string
)

var rootCmd = &cobra.Command{
	Use:   "il",
	Short: "il - versioned instruction store",
	Long: `il stores named instruction documents and keeps the full history of
every edit: archived snapshots, an audit changelog, diffs, restore and
bulk find/replace.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return err
		}
		var err error
		settings, err = config.Load()
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("json") && settings.JSON {
			jsonOutput = true
		}

		level := settings.LogLevel
		if logLevel != "" {
			level = logLevel
		}
		if verbose {
			level = "debug"
		}
		logger, logCloser, err = logging.New(logging.Options{
			Level:      level,
			File:       settings.LogFile,
			MaxSizeMB:  settings.LogMaxSizeMB,
			MaxBackups: settings.LogMaxBackups,
			MaxAgeDays: settings.LogMaxAgeDays,
			Stderr:     cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}

		sessionID = uuid.NewString()
		rootCtx = engine.ContextWithSession(rootCtx, sessionID)
		cmd.SetContext(rootCtx)

		if cmd.Annotations[skipStoreAnnotation] == "true" {
			return nil
		}
		return openEngine(rootCtx)
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "instructions", Title: "Working With Instructions:"},
		&cobra.Group{ID: "history", Title: "History:"},
		&cobra.Group{ID: "data", Title: "Bulk & Interchange:"},
		&cobra.Group{ID: "setup", Title: "Setup & Preferences:"},
	)

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: auto-discover .instructions/instructions.db)")
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", "", "Actor name recorded in history (default: $IL_ACTOR, git user.name, $USER)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "Read straight from the database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (default: log.level)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Shorthand for --log-level debug")
}

// openEngine opens the store, the cache and the engine from settings.
func openEngine(ctx context.Context) error {
	path, err := config.DBPath(dbPath)
	if err != nil {
		return err
	}
	store, err = sqlite.New(ctx, path)
	if err != nil {
		return err
	}

	overflow, err := engine.ParseMajorOverflow(settings.MajorOverflow)
	if err != nil {
		return err
	}
	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithKeepCount(settings.KeepVersions),
		engine.WithMajorCap(settings.MaxMajor, overflow),
		engine.WithBulkRetries(engine.DefaultRetryAttempts),
	}

	if settings.CacheEnabled && !noCache {
		cfg := cache.Config{TTL: settings.CacheTTL, Logger: logger}
		if settings.CacheInMemory || path == ":memory:" {
			cfg.InMemory = true
		} else {
			cfg.Path = filepath.Join(filepath.Dir(path), "cache")
		}
		c, err := cache.OpenBadger(cfg)
		if err != nil {
			// The cache is advisory; run without it.
			logger.Warn("cache unavailable", "error", err)
		} else {
			opts = append(opts, engine.WithCache(c))
		}
	}

	eng = engine.New(store, opts...)
	logger.Debug("engine ready", "db", path, "session", sessionID)
	return nil
}

// closeAll releases everything PersistentPreRunE opened.
func closeAll() {
	if eng != nil {
		if err := eng.Close(); err != nil && logger != nil {
			logger.Warn("failed to close cache", "error", err)
		}
		eng = nil
	}
	if store != nil {
		_ = store.Close()
		store = nil
	}
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
}

// execute runs the CLI with args and tears down afterwards.
func execute(ctx context.Context, args []string) error {
	rootCtx, rootCancel = context.WithCancel(ctx)
	defer rootCancel()
	defer closeAll()

	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(rootCtx)
}

// exitCode maps error kinds to process exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, storage.ErrNotFound):
		return 3
	case errors.Is(err, storage.ErrConflict), errors.Is(err, storage.ErrVersionConflict):
		return 4
	case errors.Is(err, storage.ErrInvalidArgument):
		return 2
	}
	return 1
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
