package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics <token>",
	Short: "Show session analytics for a lesson",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.reports.Report(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Lesson: %s\n\n", report.Topic)

		if report.TotalSessions == 0 {
			fmt.Println("No sessions recorded yet.")
			return nil
		}

		// Header.
		fmt.Printf("%-12s  %-16s  %-10s  %-10s  %s\n",
			"Session", "Date", "Duration", "Rating", "Score")
		fmt.Println(strings.Repeat("─", 64))

		for _, r := range report.Sessions {
			fmt.Printf("%-12s  %-16s  %-10s  %-10s  %s\n",
				r.SessionID, r.Date, r.Duration, r.Rating, r.Score)
		}

		fmt.Println(strings.Repeat("─", 64))
		fmt.Printf("Total sessions: %d   Average rating: %.1f\n", report.TotalSessions, report.AvgRating)
		return nil
	},
}
