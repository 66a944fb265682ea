package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/larder/internal/push"
)

var vapidCmd = &cobra.Command{
	Use:   "vapid",
	Short: "Generate a VAPID key pair for web push",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "LARDER_VAPID_PUBLIC_KEY=%s\n", pub)
		fmt.Fprintf(w, "LARDER_VAPID_PRIVATE_KEY=%s\n", priv)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(vapidCmd)
}
