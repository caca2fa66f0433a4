package util

import "testing"

func TestIsBlank(t *testing.T) {
	for _, s := range []string{"", " ", "\n\t ", " "} {
		if !IsBlank(s) {
			t.Errorf("IsBlank(%q) = false", s)
		}
	}
	for _, s := range []string{"hi", " .", "\thello\n"} {
		if IsBlank(s) {
			t.Errorf("IsBlank(%q) = true", s)
		}
	}
}

func TestContainsAnyFold(t *testing.T) {
	phrases := []string{"goodbye", "exit"}

	tests := []struct {
		in    string
		match string
		ok    bool
	}{
		{"Goodbye!", "goodbye", true},
		{"ok, EXIT now", "exit", true},
		{"where is the exit sign", "exit", true},
		{"good bye", "", false},
		{"hello there", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ContainsAnyFold(tt.in, phrases)
		if ok != tt.ok || got != tt.match {
			t.Errorf("ContainsAnyFold(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.match, tt.ok)
		}
	}
}

func TestContainsAnyFoldSkipsBlankPhrases(t *testing.T) {
	if p, ok := ContainsAnyFold("anything", []string{"", "  "}); ok {
		t.Errorf("blank phrase matched: %q", p)
	}
}
