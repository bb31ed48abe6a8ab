package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"realty-api/internal/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "realty-api",
		Short:         "Auth and session API for the real estate marketplace",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

// loadConfig lee .env si existe y luego el entorno.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}
	return config.LoadConfig()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.LogDevelopment {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
