package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"council-assistant-backend/internal/config"
	"council-assistant-backend/internal/logging"
)

var version = "dev"

var (
	cfg    config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:           "council-server",
	Short:         "Council website chat assistant",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if path, _ := cmd.Flags().GetString("catalog"); path != "" {
			cfg.CatalogFile = path
		}
		l, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		logger = l
		return nil
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().String("catalog", "", "response catalog YAML file (overrides CATALOG_FILE)")
	rootCmd.AddCommand(serveCmd, askCmd, migrateCmd, catalogCmd)
}

func main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
