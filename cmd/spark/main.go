package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/spark/internal/config"
)

func main() {
	var configPath string
	var envFile string
	var batchFile string

	rootCmd := &cobra.Command{
		Use:   "spark",
		Short: "spark turns content fragments into linked notes",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// a missing .env is fine, the real environment still applies
			if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env") {
				return fmt.Errorf("load env file: %w", err)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "path to .env file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run spark http server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "process a batch of fragments and print notes and links",
		RunE: func(cmd *cobra.Command, args []string) error {
			if batchFile == "" {
				return fmt.Errorf("--file is required")
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runIngest(cmd.Context(), cfg, batchFile, cmd.OutOrStdout())
		},
	}
	ingestCmd.Flags().StringVar(&batchFile, "file", "", "path to batch yaml")

	rootCmd.AddCommand(serveCmd, ingestCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

// loadConfig reads the config file, or uses defaults when no path is given.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path == "" {
		cfg, err = config.Parse([]byte("{}"))
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}
