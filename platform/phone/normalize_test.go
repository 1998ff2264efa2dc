package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"dutch national format", "06 12345678", "+31612345678"},
		{"already e164", "+31612345678", "+31612345678"},
		{"surrounding whitespace", "  +31 6 1234 5678  ", "+31612345678"},
		{"unparseable falls back to trimmed input", " not-a-number ", "not-a-number"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeE164(tt.input); got != tt.want {
				t.Errorf("NormalizeE164(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
