package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/dukerupert/larder/internal/server"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one expiry sweep now and print the report",
	Long: "Checks every product against the notification preferences, delivers\n" +
		"reminders through the configured channels and prints the run report as JSON.",
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, logger, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	srv := server.New(db, cfg, logger, server.Options{})
	report, err := srv.Scheduler().RunNow(cmd.Context())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
