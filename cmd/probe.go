package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Probe the configured backends and print the selected one",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		sel, _ := a.prober.Active()
		fmt.Printf("Selected: %s\n", sel.Candidate)
		if sel.Fallback {
			fmt.Println("No candidate answered; the fallback backend is active.")
		}
		return nil
	},
}
