package session

import (
	"fmt"
	"strings"

	"github.com/abhisek/lessonforge/internal/plan"
)

const tutorPrompt = `You are a patient tutor guiding a student through a lesson:
1. Check understanding before moving on
2. Explain concepts conversationally
3. Offer a practice quiz with hints
4. Administer the assessment
5. Be supportive and encouraging
When you begin the practice quiz, say "Here's a practice quiz". When the assessment is over, say "Assessment completed."`

// welcomeMessage is the tutor's opening turn.
func welcomeMessage(p plan.Plan) string {
	return fmt.Sprintf("Welcome! Let's learn about '%s'. Ready to begin?", p.Topic())
}

// buildSystem renders the tutor preamble with the plan and current step.
func buildSystem(p plan.Plan, step int, instructions string) string {
	var b strings.Builder
	b.WriteString(tutorPrompt)
	b.WriteString(instructions)
	b.WriteString("\n\nLesson Plan: ")
	b.Write(p.JSON())
	fmt.Fprintf(&b, "\nCurrent Step: %d", step)
	return b.String()
}

// buildTranscript renders the last window turns as speaker-labeled lines.
func buildTranscript(turns []Turn, window int) string {
	if window > 0 && len(turns) > window {
		turns = turns[len(turns)-window:]
	}
	lines := make([]string, len(turns))
	for i, t := range turns {
		lines[i] = fmt.Sprintf("%s: %s", t.Speaker, t.Text)
	}
	return strings.Join(lines, "\n")
}
