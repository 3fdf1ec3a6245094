package tui

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

// Palette. Every color adapts to the terminal background.
var (
	colorMuted = ac("240", "243")

	colorSelectedBg = ac("#e9e9e9", "#262626")
	colorSelectedFg = ac("235", "255")

	colorSurfaceBg = ac("255", "235")
	colorSurfaceFg = ac("235", "252")
	colorControlBg = ac("252", "235")
	colorInputBg   = ac("254", "234")

	colorAccent   = ac("27", "62")
	colorAccentFg = ac("255", "235")

	colorSuccessFg = ac("28", "78")
	colorErrorFg   = ac("160", "203")

	colorModalSurfaceBg = colorSurfaceBg
	colorModalSurfaceFg = colorSurfaceFg
	colorModalHeaderBg  = colorControlBg
	colorModalHeaderFg  = colorSurfaceFg
)

var statusColors = map[string]lipgloss.AdaptiveColor{
	"ativo":     ac("28", "78"),
	"inativo":   ac("130", "214"),
	"arquivado": ac("244", "242"),
}

func statusColor(s string) lipgloss.TerminalColor {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return colorMuted
}

func styleMuted() lipgloss.Style {
	st := lipgloss.NewStyle().Foreground(colorMuted)
	// Faint text is unreadable on light backgrounds.
	if lipgloss.HasDarkBackground() {
		st = st.Faint(true)
	}
	return st
}

func styleError() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorErrorFg)
}

func applyColorProfilePreference() {
	lipgloss.SetColorProfile(colorProfile(os.Getenv, termenv.ColorProfile()))
}

// colorProfile honors NO_COLOR but not CLICOLOR (termenv.EnvColorProfile
// would), and upgrades the detected profile when TERM/COLORTERM claim more.
func colorProfile(getenv func(string) string, detected termenv.Profile) termenv.Profile {
	if strings.TrimSpace(getenv("NO_COLOR")) != "" || detected == termenv.Ascii {
		return termenv.Ascii
	}
	colorterm := strings.ToLower(getenv("COLORTERM"))
	if strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit") {
		return termenv.TrueColor
	}
	if strings.Contains(strings.ToLower(getenv("TERM")), "256color") && detected == termenv.ANSI {
		return termenv.ANSI256
	}
	return detected
}

func applyThemePreference(theme string) {
	if dark, ok := darkBackground(theme, os.Getenv); ok {
		lipgloss.SetHasDarkBackground(dark)
		return
	}
	if runtime.GOOS == "darwin" {
		if dark, ok := macOSHasDarkAppearance(); ok {
			lipgloss.SetHasDarkBackground(dark)
		}
	}
	// Otherwise lipgloss queries the terminal.
}

// darkBackground resolves an explicit theme, then the COLORFGBG ("fg;bg") hint.
func darkBackground(theme string, getenv func(string) string) (dark, ok bool) {
	switch strings.ToLower(strings.TrimSpace(theme)) {
	case "light":
		return false, true
	case "dark":
		return true, true
	}
	v := strings.TrimSpace(getenv("COLORFGBG"))
	if v == "" {
		return false, false
	}
	bg, err := strconv.Atoi(strings.TrimSpace(v[strings.LastIndex(v, ";")+1:]))
	if err != nil {
		return false, false
	}
	return bg < 7, true
}

func macOSHasDarkAppearance() (dark bool, ok bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	// Prints "Dark" in dark mode; exits 1 (key missing) in light mode.
	out, err := exec.CommandContext(ctx, "defaults", "read", "-g", "AppleInterfaceStyle").CombinedOutput()
	switch {
	case ctx.Err() != nil:
		return false, false
	case err == nil:
		return strings.Contains(strings.ToLower(string(out)), "dark"), true
	}
	if ee, isExit := err.(*exec.ExitError); isExit && ee.ExitCode() == 1 {
		return false, true
	}
	return false, false
}
