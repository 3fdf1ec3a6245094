package tui

import (
	"testing"

	"github.com/muesli/termenv"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestColorProfile(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		env      map[string]string
		detected termenv.Profile
		want     termenv.Profile
	}{
		{"no color wins", map[string]string{"NO_COLOR": "1", "COLORTERM": "truecolor"}, termenv.TrueColor, termenv.Ascii},
		{"truecolor upgrade", map[string]string{"COLORTERM": "truecolor"}, termenv.ANSI256, termenv.TrueColor},
		{"256 upgrade", map[string]string{"TERM": "xterm-256color"}, termenv.ANSI, termenv.ANSI256},
		{"ascii stays", map[string]string{"TERM": "xterm-256color"}, termenv.Ascii, termenv.Ascii},
		{"detected kept", map[string]string{}, termenv.ANSI256, termenv.ANSI256},
	}
	for _, tt := range tests {
		if got := colorProfile(envMap(tt.env), tt.detected); got != tt.want {
			t.Fatalf("%s: got %v want %v", tt.name, got, tt.want)
		}
	}
}

func TestDarkBackground(t *testing.T) {
	t.Parallel()
	tests := []struct {
		theme  string
		fgbg   string
		dark   bool
		wantOK bool
	}{
		{"light", "15;0", false, true},
		{"dark", "", true, true},
		{"auto", "15;0", true, true},
		{"auto", "0;15", false, true},
		{"", "default;default", false, false},
		{"auto", "", false, false},
	}
	for _, tt := range tests {
		dark, ok := darkBackground(tt.theme, envMap(map[string]string{"COLORFGBG": tt.fgbg}))
		if dark != tt.dark || ok != tt.wantOK {
			t.Fatalf("darkBackground(%q, %q) = %v,%v want %v,%v", tt.theme, tt.fgbg, dark, ok, tt.dark, tt.wantOK)
		}
	}
}
