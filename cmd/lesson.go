package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var lessonCmd = &cobra.Command{
	Use:   "lesson",
	Short: "Inspect published lessons",
}

var lessonShowCmd = &cobra.Command{
	Use:   "show <token>",
	Short: "Show a lesson and its session summaries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if format != "json" && format != "yaml" {
			return fmt.Errorf("invalid format %q: must be json or yaml", format)
		}

		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		l, err := a.registry.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if format == "yaml" {
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(l); err != nil {
				return fmt.Errorf("encode lesson: %w", err)
			}
			return enc.Close()
		}

		out, err := json.MarshalIndent(l, "", "  ")
		if err != nil {
			return fmt.Errorf("encode lesson: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	lessonShowCmd.Flags().StringP("format", "f", "json", "Output format: json or yaml")

	lessonCmd.AddCommand(lessonShowCmd)
}
