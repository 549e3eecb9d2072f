package cmd

import (
	"fmt"
	"os"

	"trackcrate/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trackcrate",
	Short: "Trackcrate is a personal music library manager.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
