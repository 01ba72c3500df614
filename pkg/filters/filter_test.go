package filters

import "testing"

func TestMatcher(t *testing.T) {
	tests := []struct {
		name    string
		mode    Mode
		pattern string
		input   string
		want    bool
	}{
		{"contains case-insensitive", ModeContains, "FILL", "fill:raw:255:0:0:1", true},
		{"contains miss", ModeContains, "stroke", "fill:raw:255:0:0:1", false},
		{"empty mode defaults to contains", "", "button", "Button / Primary", true},
		{"exact hit", ModeExact, "fill:raw:255:0:0:1", "fill:raw:255:0:0:1", true},
		{"exact ignores case", ModeExact, "Card Title", "card title", true},
		{"exact rejects substring", ModeExact, "fill", "fill:raw:255:0:0:1", false},
		{"regex", ModeRegex, `^fill:raw:\d+`, "fill:raw:255:0:0:1", true},
		{"regex miss", ModeRegex, `^stroke:`, "fill:raw:255:0:0:1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.mode, tt.pattern)
			if err != nil {
				t.Fatal(err)
			}
			if got := m.Match(tt.input); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestMatcherErrors(t *testing.T) {
	if _, err := New(ModeRegex, "("); err == nil {
		t.Error("expected error for invalid regex")
	}
	if _, err := New("fuzzy", "x"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestMatchAny(t *testing.T) {
	m, err := New(ModeContains, "hero")
	if err != nil {
		t.Fatal(err)
	}
	if !m.MatchAny("fill:raw:0:0:0:1", "Hero Banner", "Footer") {
		t.Error("expected a hit on the node name")
	}
	if m.MatchAny("Footer", "Sidebar") {
		t.Error("expected no hit")
	}
}
