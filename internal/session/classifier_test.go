package session

import "testing"

func TestSubstringClassifier(t *testing.T) {
	tests := []struct {
		name        string
		reply       string
		wantChanged bool
		wantStep    int
	}{
		{"assessment", "Great job! Assessment completed.", true, 4},
		{"quiz", "Here's a practice quiz for you.", true, QuizStep},
		{"case insensitive", "PRACTICE QUIZ time", true, QuizStep},
		{"assessment wins", "Assessment completed. No more practice quiz.", true, 4},
		{"neither", "Let's talk about chlorophyll.", false, 0},
		{"near miss", "The assessment is complete", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SubstringClassifier{}.Classify(tt.reply, 4)
			if got.Changed != tt.wantChanged {
				t.Fatalf("Changed = %v, want %v", got.Changed, tt.wantChanged)
			}
			if got.Changed && got.Step != tt.wantStep {
				t.Errorf("Step = %d, want %d", got.Step, tt.wantStep)
			}
			if got.Reply != tt.reply {
				t.Errorf("reply altered: %q", got.Reply)
			}
		})
	}
}

func TestTagClassifier(t *testing.T) {
	tests := []struct {
		name        string
		reply       string
		wantChanged bool
		wantStep    int
		wantReply   string
	}{
		{"quiz", "Try these! [[phase:quiz]]", true, QuizStep, "Try these!"},
		{"complete", "All done. [[PHASE:complete]]", true, 3, "All done."},
		{"step", "Now the light reactions. [[phase:step=2]]", true, 2, "Now the light reactions."},
		{"step out of range", "Skip ahead [[phase:step=9]]", false, 0, "Skip ahead"},
		{"first tag wins", "[[phase:step=1]] then [[phase:quiz]]", true, 1, "then"},
		{"phrases ignored", "Here's a practice quiz", false, 0, "Here's a practice quiz"},
		{"tag only", "[[phase:quiz]]", true, QuizStep, "[[phase:quiz]]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TagClassifier{}.Classify(tt.reply, 3)
			if got.Changed != tt.wantChanged {
				t.Fatalf("Changed = %v, want %v", got.Changed, tt.wantChanged)
			}
			if got.Changed && got.Step != tt.wantStep {
				t.Errorf("Step = %d, want %d", got.Step, tt.wantStep)
			}
			if got.Reply != tt.wantReply {
				t.Errorf("Reply = %q, want %q", got.Reply, tt.wantReply)
			}
		})
	}
}

func TestClassifierByName(t *testing.T) {
	if _, ok := ClassifierByName("substring"); !ok {
		t.Error("expected substring classifier")
	}
	if c, ok := ClassifierByName("TAG"); !ok || c.Instructions() == "" {
		t.Error("expected tag classifier with instructions")
	}
	if _, ok := ClassifierByName("regex"); ok {
		t.Error("expected unknown classifier to be rejected")
	}
}
