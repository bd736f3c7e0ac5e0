package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/delegates/backend/internal/infrastructure/config"
	"github.com/delegates/backend/internal/infrastructure/logger"
	"github.com/delegates/backend/internal/infrastructure/persistence"
	"github.com/delegates/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath string
		logLevel   string
	)

	flag.StringVar(&configPath, "config", "", "Path to config file (default: ./config.toml)")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides log.level")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if err := execute(configPath, logLevel, args[0]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func execute(configPath, logLevel, command string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if logLevel == "" {
		logLevel = cfg.Log.Level
	}
	log, err := logger.NewForEnvironment(cfg.App.Env, logger.Config{
		Level:  logLevel,
		Format: cfg.Log.Format,
		Output: "stdout",
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx := context.Background()
	providers, err := telemetry.Start(ctx, telemetry.FromConfig(cfg.Telemetry, cfg.App.Name), log)
	if err != nil {
		return fmt.Errorf("start telemetry: %w", err)
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			log.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}()
	log = providers.Logger(log, logger.ParseLevel(cfg.Telemetry.LogsLevel))

	log.Info("Migration CLI started",
		zap.String("command", command),
		zap.String("driver", cfg.Database.Driver),
	)

	db, err := persistence.Open(cfg, log)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	switch command {
	case "up":
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Info("Migrations applied successfully")

	case "status":
		tables, err := db.MigrationStatus()
		if err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		for _, t := range tables {
			state := "missing"
			if t.Exists {
				state = "present"
			}
			fmt.Printf("  %-12s %s\n", t.Table, state)
		}

	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func printUsage() {
	fmt.Println(`Database Migration CLI

Usage:
  migrate [flags] <command>

Commands:
  up        Create or update the users and contacts tables
  status    Show which tables exist

Flags:
  -config string      Path to config file (default: ./config.toml)
  -log-level string   Log level (default: log.level from config)

Environment Variables:
  DELEGATES_DATABASE_DRIVER   postgres or sqlite (default: sqlite)
  DELEGATES_DATABASE_PATH     sqlite database file (default: delegates.db)
  DELEGATES_DATABASE_HOST     postgres host (default: localhost)
  DELEGATES_DATABASE_PORT     postgres port (default: 5432)

Examples:
  migrate up
  DELEGATES_DATABASE_DRIVER=postgres migrate status`)
}
