package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage tutoring sessions",
}

var sessionsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete closed sessions past retention and idle open sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.requireStore(); err != nil {
			return err
		}

		n, err := a.manager.Purge(cmd.Context(), time.Now())
		if err != nil {
			return fmt.Errorf("purge sessions: %w", err)
		}
		fmt.Printf("Purged %d sessions.\n", n)
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsPurgeCmd)
}
