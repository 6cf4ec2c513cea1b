package plan

import (
	"bytes"
	"testing"
)

const photosynthesisJSON = `{
	"objectives": ["Describe how plants make food", "Name the inputs of photosynthesis"],
	"workflow": ["Introduce light energy", "Explain chlorophyll", "Practice quiz", "Assessment"],
	"assessment": [{"question": "What gas do plants absorb?", "answer": "Carbon dioxide"}],
	"practice_quiz": [{"question": "Where does photosynthesis happen?", "hint": "Think green."}]
}`

func TestExtract_ValidPlan(t *testing.T) {
	p, err := Extract(photosynthesisJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Objectives) != 2 || p.Objectives[0] != "Describe how plants make food" {
		t.Errorf("unexpected objectives: %v", p.Objectives)
	}
	if len(p.Workflow) != 4 {
		t.Errorf("expected 4 workflow steps, got %d", len(p.Workflow))
	}
	if p.Assessment[0].Answer != "Carbon dioxide" {
		t.Errorf("unexpected assessment: %+v", p.Assessment)
	}
	if p.PracticeQuiz[0].Hint != "Think green." {
		t.Errorf("unexpected quiz: %+v", p.PracticeQuiz)
	}
}

func TestExtract_SurroundingProse(t *testing.T) {
	raw := "Sure! Here is your lesson plan:\n```json\n" + photosynthesisJSON + "\n```\nLet me know if you want changes."
	p, err := Extract(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Topic() != "Describe how plants make food" {
		t.Errorf("unexpected topic: %q", p.Topic())
	}
}

func TestExtract_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no braces", "I cannot help with that."},
		{"reversed braces", "} nothing {"},
		{"broken json", `{"objectives": ["a"], "workflow": [}`},
		{"missing field", `{"objectives": ["a"], "workflow": ["b"], "assessment": []}`},
		{"empty objectives", `{"objectives": [], "workflow": ["b"], "assessment": [], "practice_quiz": []}`},
		{"empty workflow", `{"objectives": ["a"], "workflow": [], "assessment": [], "practice_quiz": []}`},
		{"assessment without answer", `{"objectives": ["a"], "workflow": ["b"], "assessment": [{"question": "q"}], "practice_quiz": []}`},
		{"quiz without hint", `{"objectives": ["a"], "workflow": ["b"], "assessment": [], "practice_quiz": [{"question": "q"}]}`},
		{"objective not a string", `{"objectives": [1], "workflow": ["b"], "assessment": [], "practice_quiz": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Extract(tt.raw); err == nil {
				t.Fatalf("expected error for %q", tt.raw)
			}
		})
	}
}

func TestExtract_Idempotent(t *testing.T) {
	plans := []Plan{
		Fallback("Fractions"),
		{
			Objectives:   []string{"One"},
			Workflow:     []string{"Step"},
			Assessment:   []AssessmentItem{},
			PracticeQuiz: []QuizItem{},
		},
	}

	for _, want := range plans {
		got, err := Extract(string(want.JSON()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Equal(got.JSON(), want.JSON()) {
			t.Errorf("round trip changed plan:\n got %s\nwant %s", got.JSON(), want.JSON())
		}
	}
}

func TestPlanJSON_EmptySequences(t *testing.T) {
	got := string(Plan{Objectives: []string{"x"}}.JSON())
	want := `{"objectives":["x"],"workflow":[],"assessment":[],"practice_quiz":[]}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestExtractOrFallback(t *testing.T) {
	p, fellBack := ExtractOrFallback(photosynthesisJSON, "Photosynthesis")
	if fellBack {
		t.Fatal("expected extraction to succeed")
	}
	if len(p.Workflow) != 4 {
		t.Errorf("unexpected plan: %+v", p)
	}

	p, fellBack = ExtractOrFallback("garbage", "Photosynthesis")
	if !fellBack {
		t.Fatal("expected fallback")
	}
	if !bytes.Equal(p.JSON(), Fallback("Photosynthesis").JSON()) {
		t.Error("expected the fallback template")
	}
}

func TestFallback_Deterministic(t *testing.T) {
	a := Fallback("Volcanoes").JSON()
	b := Fallback("Volcanoes").JSON()
	if !bytes.Equal(a, b) {
		t.Fatalf("fallback not deterministic:\n%s\n%s", a, b)
	}
	if !bytes.Contains(a, []byte("Volcanoes")) {
		t.Error("fallback should reference the topic")
	}
	if bytes.Equal(a, Fallback("Tides").JSON()) {
		t.Error("different topics should give different fallbacks")
	}
}

func TestFallback_SatisfiesSchema(t *testing.T) {
	for _, topic := range []string{"Photosynthesis", "", `quote " and brace }`} {
		if _, err := Extract(string(Fallback(topic).JSON())); err != nil {
			t.Errorf("fallback for %q does not validate: %v", topic, err)
		}
	}
}
