package normalize

import "testing"

func TestNormalizeMisspellings(t *testing.T) {
	n := New()

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"email typo", "what is your emial", "what is your email"},
		{"email hyphen", "send me an e-mail", "send me an email"},
		{"contact typo", "how do I contct you", "how do I contact you"},
		{"location typo", "what is your locaton", "what is your location"},
		{"address typo", "whats the adress", "whats the address"},
		{"phone typo", "give me your phne number", "give me your phone number"},
		{"services typo", "what servces do you offer", "what services do you offer"},
		{"services singular typo", "what servce do you offer", "what services do you offer"},
		{"services truncated typo", "what servic do you offer", "what services do you offer"},
		{"business typo", "tell me about your bussiness", "tell me about your business"},
		{"available typo", "are you avaliable tomorrow", "are you available tomorrow"},
		{"case insensitive", "EMIAL please", "email please"},
		{"substring not matched", "premialist", "premialist"},
		{"clean query untouched", "what services do you offer", "what services do you offer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Normalize(tt.query)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestNormalizeEntityExpansion(t *testing.T) {
	n := New()

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"bare name expanded", "what does Githaf do", "what does Githaf Consulting do"},
		{"lowercase expanded", "tell me about githaf", "tell me about Githaf Consulting"},
		{"already expanded untouched", "contact Githaf Consulting", "contact Githaf Consulting"},
		{"mixed case suffix untouched", "about githaf consulting services", "about githaf consulting services"},
		{"multiple mentions", "Githaf and githaf again", "Githaf Consulting and Githaf Consulting again"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Normalize(tt.query)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := New()

	queries := []string{
		"what is your emial adress at githaf",
		"how do I contct githaf consulting",
		"plain question with no corrections",
	}
	for _, q := range queries {
		once := n.Normalize(q)
		twice := n.Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent: first %q, second %q", once, twice)
		}
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	n := New()

	for _, q := range []string{"", "   "} {
		if got := n.Normalize(q); got != q {
			t.Errorf("Normalize(%q) = %q, want unchanged", q, got)
		}
	}
}
