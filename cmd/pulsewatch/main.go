package main

import (
	"fmt"
	"os"

	"PulseWatch/internal/config"
	"PulseWatch/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "pulsewatch",
	Short: "Uptime monitoring engine",
	Long: `PulseWatch periodically checks registered URLs, records status transitions,
and serves incident, uptime and SLO analytics over HTTP.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env необязателен, переменные окружения имеют приоритет
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "configs", "directory with config.yaml")
	rootCmd.AddCommand(serveCmd, migrateCmd, validateTargetCmd)
}

// loadConfig загружает конфигурацию и настраивает логирование
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Setup(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
