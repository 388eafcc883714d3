package planning

import "testing"

func TestShouldPlan(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"What services do you offer?", false},
		{"What services do you offer? And how much do they cost?", true},
		{"How do I contact you?", false},
		{"hello", false},
		{"I am opening a new retail business next quarter and I need to understand what consulting packages you provide and whether you can help with digital transformation for a company of our size", true},
	}

	p := &Planner{}
	for _, tt := range tests {
		if got := p.ShouldPlan(tt.query); got != tt.want {
			t.Errorf("ShouldPlan(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestParseSteps(t *testing.T) {
	got := ParseSteps(`Here are the sub-questions:
1. What consulting packages are available?
2) How is pricing structured?

Some trailing commentary.`)

	if len(got) != 2 {
		t.Fatalf("steps = %d, want 2", len(got))
	}
	if got[0] != "What consulting packages are available?" {
		t.Errorf("step[0] = %q", got[0])
	}
	if got[1] != "How is pricing structured?" {
		t.Errorf("step[1] = %q", got[1])
	}
}

func TestParseStepsCapped(t *testing.T) {
	got := ParseSteps("1. a\n2. b\n3. c\n4. d\n5. e\n6. f")
	if len(got) != maxPlanSteps {
		t.Errorf("steps = %d, want cap %d", len(got), maxPlanSteps)
	}
}

func TestParseStepsEmpty(t *testing.T) {
	if got := ParseSteps("no numbered lines here"); len(got) != 0 {
		t.Errorf("steps = %v, want none", got)
	}
}
