package cmd

import (
	"context"
	"os"

	"trackcrate/config"
	"trackcrate/core/csvimport"
	"trackcrate/db"
	"trackcrate/logger"

	"github.com/spf13/cobra"
)

var (
	importCSVUser int64
	importCSVFile string
)

var importCSVCmd = &cobra.Command{
	Use:   "import-csv",
	Short: "Reconcile an analysis CSV against a user's library",
	Long: `Reconcile a CSV export of audio-analysis attributes against the
given user's library. Rows are matched by Spotify id; unmatched rows are
counted, never created.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.Init(logger.Config{Level: cfg.LogLevel})

		if importCSVUser <= 0 || importCSVFile == "" {
			logger.Fatal("both --user and --file are required")
		}

		if err := db.Connect(cfg); err != nil {
			logger.Fatal("failed to connect to database", logger.ErrorField(err))
		}
		defer db.Close()

		file, err := os.Open(importCSVFile)
		if err != nil {
			logger.Fatal("failed to open csv file", logger.ErrorField(err))
		}
		defer file.Close()

		reconciler := csvimport.NewReconciler(db.DB)
		report, err := reconciler.Reconcile(context.Background(), importCSVUser, file)
		if err != nil {
			logger.Fatal("reconciliation failed", logger.ErrorField(err))
		}

		logger.Info("reconciliation finished",
			logger.Int("updated", report.Updated),
			logger.Int("notFound", report.NotFound))
	},
}

func init() {
	importCSVCmd.Flags().Int64Var(&importCSVUser, "user", 0, "library owner user id")
	importCSVCmd.Flags().StringVar(&importCSVFile, "file", "", "path to the analysis csv")
	rootCmd.AddCommand(importCSVCmd)
}
