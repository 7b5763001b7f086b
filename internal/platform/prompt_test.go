package platform

import (
	"strings"
	"testing"
)

func TestIsGreeting(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"مرحبا", true},
		{"مرحبا!", true},
		{"مرحبا.", true},
		{"مرحباً", true}, // tanwin spelling normalizes
		{"أهلا", true},
		{"السلام عليكم", true},
		{"هاي", true},
		{"سلام", true},
		{"ما هي ساعات الدوام؟", false},
		{"hello", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsGreeting(tt.text); got != tt.want {
			t.Errorf("IsGreeting(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestWelcomeMessage(t *testing.T) {
	got := WelcomeMessage("سالم", "متجر الياسمين")
	if !strings.Contains(got, "سالم") || !strings.Contains(got, "متجر الياسمين") {
		t.Errorf("welcome missing substitutions: %q", got)
	}

	// Defaults when nothing is known about the user or company.
	got = WelcomeMessage("", "")
	if !strings.Contains(got, "صديقي") || !strings.Contains(got, "الشركة") {
		t.Errorf("welcome missing defaults: %q", got)
	}
}

func testCompany() map[string]any {
	return map[string]any{
		"name": "متجر الياسمين",
		"city": "عمّان",
		"hours": map[string]any{
			"days": []any{"الأحد", "الخميس"},
			"from": "9:00",
			"to":   "17:00",
		},
		"phone": map[string]any{
			"cc":     "+962",
			"number": "790000000",
		},
		"prompt": "نبيع الورود والهدايا.",
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	got := BuildSystemPrompt(testCompany())

	for _, want := range []string{
		"متجر الياسمين",
		"عمّان",
		"من 9:00 إلى 17:00",
		"الأحد, الخميس",
		"+962 790000000",
		"نبيع الورود والهدايا.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestBuildSystemPromptDeterministic(t *testing.T) {
	if BuildSystemPrompt(testCompany()) != BuildSystemPrompt(testCompany()) {
		t.Error("same company document should yield the same prompt")
	}
}

func TestBuildSystemPromptEmptyCompany(t *testing.T) {
	got := BuildSystemPrompt(nil)
	if !strings.Contains(got, "الشركة") {
		t.Errorf("empty company should fall back to defaults:\n%s", got)
	}
}
