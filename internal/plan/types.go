package plan

import "encoding/json"

// Plan is a structured lesson plan.
type Plan struct {
	Objectives   []string         `json:"objectives" yaml:"objectives"`
	Workflow     []string         `json:"workflow" yaml:"workflow"`
	Assessment   []AssessmentItem `json:"assessment" yaml:"assessment"`
	PracticeQuiz []QuizItem       `json:"practice_quiz" yaml:"practice_quiz"`
}

// AssessmentItem is a graded question with its expected answer.
type AssessmentItem struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// QuizItem is an ungraded practice question with a hint.
type QuizItem struct {
	Question string `json:"question" yaml:"question"`
	Hint     string `json:"hint" yaml:"hint"`
}

// Topic returns the first objective, which doubles as the lesson's display
// title.
func (p Plan) Topic() string {
	if len(p.Objectives) == 0 {
		return ""
	}
	return p.Objectives[0]
}

// JSON serializes the plan. Empty sequences encode as [] rather than null.
func (p Plan) JSON() []byte {
	n := p.Clone()
	// Marshal of plain strings and slices cannot fail.
	b, _ := json.Marshal(n)
	return b
}

// Clone returns a deep copy with nil sequences replaced by empty ones.
func (p Plan) Clone() Plan {
	return Plan{
		Objectives:   append([]string{}, p.Objectives...),
		Workflow:     append([]string{}, p.Workflow...),
		Assessment:   append([]AssessmentItem{}, p.Assessment...),
		PracticeQuiz: append([]QuizItem{}, p.PracticeQuiz...),
	}
}
