package cmd

import (
	"trackcrate/config"
	"trackcrate/db"
	"trackcrate/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations and exit",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.Init(logger.Config{Level: cfg.LogLevel})

		if err := db.Connect(cfg); err != nil {
			logger.Fatal("failed to connect to database", logger.ErrorField(err))
		}
		defer db.Close()

		if err := db.Migrate(db.DB); err != nil {
			logger.Fatal("failed to migrate database", logger.ErrorField(err))
		}
		logger.Info("database migrated")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
