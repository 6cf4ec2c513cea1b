package plan

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a lesson planner for classroom teachers.

Given a topic, produce:
1. Learning objectives (3-5 short statements)
2. A step-by-step teaching workflow
3. 5 assessment questions, each with its answer
4. A practice quiz, each question with a hint

Respond with a single JSON object and nothing else:
{"objectives": [string], "workflow": [string], "assessment": [{"question": string, "answer": string}], "practice_quiz": [{"question": string, "hint": string}]}`

// buildDraftMessage constructs the user message for a fresh plan.
func buildDraftMessage(topic string) string {
	return "Topic: " + topic
}

// buildRevisionMessage embeds the teacher's feedback and the current plan.
func buildRevisionMessage(current Plan, feedback string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Modify the lesson plan based on this feedback: %s\n", strings.TrimSpace(feedback))
	b.WriteString("Keep the same JSON shape.\n\n")
	b.WriteString("Current plan:\n")
	b.Write(current.JSON())
	return b.String()
}
