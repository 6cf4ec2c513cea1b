package plan

import "fmt"

// Fallback builds the template plan used when a model reply cannot be
// parsed. The result depends only on topic.
func Fallback(topic string) Plan {
	return Plan{
		Objectives: []string{
			fmt.Sprintf("Understand the core ideas of %s", topic),
			fmt.Sprintf("Explain %s in your own words", topic),
			fmt.Sprintf("Apply %s to a simple example", topic),
		},
		Workflow: []string{
			fmt.Sprintf("Introduce %s and why it matters", topic),
			fmt.Sprintf("Walk through the key ideas of %s", topic),
			"Work through an example together",
			"Practice quiz with hints",
			"Assessment",
		},
		Assessment: []AssessmentItem{
			{
				Question: fmt.Sprintf("What is %s?", topic),
				Answer:   fmt.Sprintf("A short definition of %s in the student's own words.", topic),
			},
		},
		PracticeQuiz: []QuizItem{
			{
				Question: fmt.Sprintf("Name one key idea of %s.", topic),
				Hint:     "Look back at the first learning objective.",
			},
		},
	}
}
