package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dukerupert/larder/internal/server"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <backup-id> <destination>",
	Short: "Download and decrypt a backup into a new database file",
	Long: "Fetches the backup from object storage, decrypts it with the configured\n" +
		"passphrase and writes it to destination after an integrity check. The\n" +
		"running database is never touched; stop the server and swap the file in.",
	Args: cobra.ExactArgs(2),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid backup id %q", args[0])
	}

	cfg, logger, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	mgr := server.New(db, cfg, logger, server.Options{}).BackupManager()
	if err := mgr.Restore(cmd.Context(), id, args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "restored backup %d to %s\n", id, args[1])
	return nil
}
