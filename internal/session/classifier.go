package session

import (
	"regexp"
	"strconv"
	"strings"
)

// Transition is a classifier's verdict on a tutor reply.
type Transition struct {
	// Step is the new progress cursor. Only meaningful when Changed.
	Step    int
	Changed bool

	// Reply is the text to store and show, with any control markup removed.
	Reply string
}

// PhaseClassifier maps a tutor reply to a progress transition.
type PhaseClassifier interface {
	Classify(reply string, workflowLen int) Transition

	// Instructions are appended to the tutor preamble so the model knows
	// how to signal transitions. May be empty.
	Instructions() string
}

// SubstringClassifier detects transitions from phrases in the reply.
// "assessment completed" wins over "practice quiz".
type SubstringClassifier struct{}

func (SubstringClassifier) Classify(reply string, workflowLen int) Transition {
	lower := strings.ToLower(reply)
	switch {
	case strings.Contains(lower, "assessment completed"):
		return Transition{Step: workflowLen, Changed: true, Reply: reply}
	case strings.Contains(lower, "practice quiz"):
		return Transition{Step: QuizStep, Changed: true, Reply: reply}
	}
	return Transition{Reply: reply}
}

func (SubstringClassifier) Instructions() string { return "" }

var phaseTag = regexp.MustCompile(`(?i)\[\[\s*phase\s*:\s*(quiz|complete|step\s*=\s*(\d+))\s*\]\]`)

// TagClassifier reads explicit [[phase:...]] tags emitted by the model and
// strips them from the stored reply. The first valid tag wins.
type TagClassifier struct{}

func (TagClassifier) Classify(reply string, workflowLen int) Transition {
	t := Transition{}
	for _, m := range phaseTag.FindAllStringSubmatch(reply, -1) {
		if t.Changed {
			break
		}
		switch kind := strings.ToLower(m[1]); {
		case kind == "quiz":
			t.Step, t.Changed = QuizStep, true
		case kind == "complete":
			t.Step, t.Changed = workflowLen, true
		default:
			n, err := strconv.Atoi(m[2])
			if err == nil && n >= 0 && n < workflowLen {
				t.Step, t.Changed = n, true
			}
		}
	}

	cleaned := strings.TrimSpace(phaseTag.ReplaceAllString(reply, ""))
	if cleaned == "" {
		cleaned = strings.TrimSpace(reply)
	}
	t.Reply = cleaned
	return t
}

func (TagClassifier) Instructions() string {
	return `
When you move to a new workflow step, end your reply with [[phase:step=N]] where N is the zero-based step.
When you start the practice quiz, end your reply with [[phase:quiz]].
When the assessment is finished, end your reply with [[phase:complete]].`
}

// ClassifierByName returns the classifier for "substring" or "tag".
func ClassifierByName(name string) (PhaseClassifier, bool) {
	switch strings.ToLower(name) {
	case "", "substring":
		return SubstringClassifier{}, true
	case "tag":
		return TagClassifier{}, true
	}
	return nil, false
}
