package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dukerupert/larder/internal/config"
	"github.com/dukerupert/larder/internal/database"
	"github.com/dukerupert/larder/internal/logging"
)

var (
	flagEnvFile  string
	flagPort     string
	flagDB       string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "larder",
	Short: "Track food in the house and get told before it goes off",
	Long: "Larder keeps an inventory of groceries with their expiry dates, a shopping\n" +
		"list that merges duplicate entries, and sends reminders as products near\n" +
		"their expiry date. Running it with no subcommand starts the server.",
	Example: `  larder
  larder serve --port 9000
  larder sweep
  larder lookup 3017620422003
  larder classify "молоко 3.2%" --lang ru`,
	RunE: runServe,
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagEnvFile, "env-file", "", "Path to a .env file (default ./.env)")
	pf.StringVar(&flagPort, "port", "", "HTTP port (overrides LARDER_PORT)")
	pf.StringVar(&flagDB, "db", "", "SQLite database path (overrides LARDER_DB_PATH)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// loadConfig reads the environment and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	var files []string
	if flagEnvFile != "" {
		files = append(files, flagEnvFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}
	if flagPort != "" {
		cfg.Port = flagPort
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	return cfg, nil
}

// setup loads config, configures logging and opens the database.
func setup() (*config.Config, *slog.Logger, *sql.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, logger, db, nil
}
