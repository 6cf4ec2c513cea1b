package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/lessonforge/internal/lessons"
	"github.com/abhisek/lessonforge/internal/plan"
)

var planCmd = &cobra.Command{
	Use:   "plan <topic>",
	Short: "Draft a lesson plan and refine it interactively",
	Long: `Draft a lesson plan for a topic, then refine it with free-text feedback.

Type "finalize" to publish the plan. The access token is printed on success.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	topic := strings.Join(args, " ")

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.store == nil {
		fmt.Fprintln(os.Stderr, "Using the memory driver: the lesson is lost when this command exits.")
	}

	fmt.Printf("Drafting a plan for %q with %s...\n\n", topic, a.client.Active())
	d, err := a.registry.Create(ctx, topic)
	if err != nil {
		return err
	}
	if d.FellBack {
		fmt.Println("(the backend did not return a usable plan; showing the template plan)")
	}
	if err := printPlan(os.Stdout, d.Plan); err != nil {
		return err
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("\nFeedback (or %q): ", lessons.FinalizeCommand)
		if !scanner.Scan() {
			fmt.Println("\n(input closed, draft discarded)")
			return nil
		}
		feedback := strings.TrimSpace(scanner.Text())
		if feedback == "" {
			continue
		}

		res, err := a.registry.ApplyFeedback(ctx, d.ID, feedback)
		if err != nil {
			return err
		}
		if res.Finalized {
			fmt.Printf("\nLesson published. Access token: %s\n", res.Token)
			return nil
		}
		if !res.Revised {
			fmt.Println("(the revision could not be applied; the plan is unchanged)")
			continue
		}

		fmt.Println()
		if err := printPlan(os.Stdout, res.Draft.Plan); err != nil {
			return err
		}
	}
}

// printPlan writes p as YAML.
func printPlan(w io.Writer, p plan.Plan) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return enc.Close()
}
