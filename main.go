package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasky/internal/commands"
	"github.com/colonyops/tasky/internal/core/config"
	"github.com/colonyops/tasky/internal/core/logging"
	"github.com/colonyops/tasky/internal/data/db"
	"github.com/colonyops/tasky/internal/data/stores"
	"github.com/colonyops/tasky/internal/llm"
	"github.com/colonyops/tasky/internal/tasky"
	"github.com/colonyops/tasky/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

// openDatabase opens the store, moving a corrupted database file aside and
// starting fresh when SQLite reports corruption.
func openDatabase(cfg *config.Config) (*db.DB, error) {
	opts := db.OpenOptions{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		BusyTimeout:  cfg.Database.BusyTimeout,
	}

	database, err := db.Open(cfg.DataDir, opts)
	if err == nil || !stores.IsCorruptionError(err) {
		return database, err
	}

	log.Warn().Err(err).Str("data_dir", cfg.DataDir).Msg("database corrupted, backing up and recreating")
	if err := stores.RecoverFromCorruption(cfg.DataDir); err != nil {
		return nil, err
	}
	return db.Open(cfg.DataDir, opts)
}

func main() {
	ctx := context.Background()

	var (
		logCloser func()
		taskyApp  = &tasky.App{}
		database  *db.DB
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "tasky",
		Usage:     "Turn free-form notes into scheduled tasks",
		UsageText: "tasky [global options] command [command options]",
		Description: `Tasky sends free-form text to a language model, stores the main tasks and
subtasks it extracts, and keeps a main task's status in step with its
subtasks.

Run 'tasky serve' to start the HTTP API.
Run 'tasky seed' to create a demo user with one task.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("TASKY_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to stderr)",
				Sources:     cli.EnvVars("TASKY_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "log-format",
				Usage:       "log format (console, json)",
				Sources:     cli.EnvVars("TASKY_LOG_FORMAT"),
				Value:       string(logutils.FormatConsole),
				Destination: &flags.LogFormat,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("TASKY_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("TASKY_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.StringFlag{
				Name:        "user",
				Aliases:     []string{"u"},
				Usage:       "user id for commands that act on a user's tasks",
				Sources:     cli.EnvVars("TASKY_USER"),
				Destination: &flags.User,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logutils.New(flags.LogLevel, flags.LogFile, logutils.Format(flags.LogFormat))
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger.Hook(logging.ContextHook{})
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			database, err = openDatabase(cfg)
			if err != nil {
				return ctx, fmt.Errorf("open database: %w", err)
			}

			// Create stores
			userStore := stores.NewUserStore(database)
			taskStore := stores.NewTaskStore(database)
			exportStore := stores.NewExportStore(database)

			completer := llm.NewOpenAIClient(llm.Options{
				APIKey:  cfg.LLM.APIKey,
				Model:   cfg.LLM.Model,
				BaseURL: cfg.LLM.BaseURL,
				Timeout: cfg.LLM.Timeout,
			})

			svcLogger := log.With().Str("component", "tasky").Logger()

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*taskyApp = *tasky.NewApp(
				tasky.NewGenerateService(userStore, taskStore, completer, svcLogger,
					tasky.WithConcurrency(cfg.Generation.Concurrency)),
				tasky.NewTaskService(taskStore, userStore, svcLogger),
				tasky.NewUserService(userStore, svcLogger),
				tasky.NewExportService(taskStore, exportStore, svcLogger),
				cfg,
				database,
			)

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			// Close database connection
			if database != nil {
				if err := database.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}

			// Close log file
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewServeCmd(flags, taskyApp).Register(app)
	app = commands.NewUserCmd(flags, taskyApp).Register(app)
	app = commands.NewGenerateCmd(flags, taskyApp).Register(app)
	app = commands.NewTasksCmd(flags, taskyApp).Register(app)
	app = commands.NewSubtaskCmd(flags, taskyApp).Register(app)
	app = commands.NewSeedCmd(flags, taskyApp).Register(app)
	app = commands.NewExportCmd(flags, taskyApp).Register(app)
	app = commands.NewDBCmd(flags, taskyApp).Register(app)
	app = commands.NewConfigValidateCmd(flags).Register(app)

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Println()
		fmt.Println(runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
