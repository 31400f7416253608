package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/authkeep/authkeep-go/internal/config"
	"github.com/authkeep/authkeep-go/internal/logging"
)

// envFile is the dotenv file loaded before reading configuration.
var envFile string

// NewRootCmd creates the root command for the authkeep CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "api",
		Short:        "authkeep - account registration and authentication service",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// loadConfig reads the dotenv file, the environment and builds the logger.
func loadConfig() (config.Config, *slog.Logger, error) {
	if err := godotenv.Load(envFile); err != nil {
		slog.Warn("no .env file found, using environment variables", "path", envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.New(os.Stdout, cfg.Env, level)
	slog.SetDefault(logger)

	return cfg, logger, nil
}
