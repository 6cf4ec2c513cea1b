package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/lessonforge/internal/lessons"
)

const doneCommand = "/done"

var chatCmd = &cobra.Command{
	Use:   "chat <token>",
	Short: "Start a tutoring session on a published lesson",
	Long: `Start a tutoring session for the lesson behind an access token.

Type "/done <rating>" to finish, with a rating from 1 to 5 or no rating at all.`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.manager.Start(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Tutor: %s\n", s.Turns[0].Text)

	state := s.State()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nYou: ")
		if !scanner.Scan() {
			fmt.Println("\n(input closed, session left open)")
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if rest, ok := strings.CutPrefix(line, doneCommand); ok {
			rating := lessons.NotRated
			if r := strings.TrimSpace(rest); r != "" {
				rating, err = lessons.ParseRating(r)
				if err != nil {
					fmt.Println("Rating must be 1 to 5, or leave it out.")
					continue
				}
			}

			summary, err := a.manager.Complete(ctx, s.ID, rating)
			if err != nil {
				return err
			}
			fmt.Printf("\n── Session complete: %d mins, rating %s ──\n", summary.DurationMinutes, summary.Rating)
			return nil
		}

		res, err := a.manager.Turn(ctx, s.ID, line)
		if err != nil {
			return err
		}
		fmt.Printf("\nTutor: %s\n", res.Reply)
		if res.State != state {
			fmt.Printf("[%s]\n", res.State)
			state = res.State
		}
	}
}
