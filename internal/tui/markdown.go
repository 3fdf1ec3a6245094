package tui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

type rendererKey struct {
	dark  bool
	width int
}

// helpRenderers caches glamour renderers per background and wrap width.
// A fixed style is used instead of WithAutoStyle, which queries the terminal.
var helpRenderers sync.Map // rendererKey -> *glamour.TermRenderer

func renderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	r, err := helpRenderer(rendererKey{dark: lipgloss.HasDarkBackground(), width: max(width, 10)})
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func helpRenderer(key rendererKey) (*glamour.TermRenderer, error) {
	if r, ok := helpRenderers.Load(key); ok {
		return r.(*glamour.TermRenderer), nil
	}
	cfg := styles.LightStyleConfig
	if key.dark {
		cfg = styles.DarkStyleConfig
	}
	var margin uint
	cfg.Document.Margin = &margin
	r, err := glamour.NewTermRenderer(glamour.WithStyles(cfg), glamour.WithWordWrap(key.width))
	if err != nil {
		return nil, err
	}
	actual, _ := helpRenderers.LoadOrStore(key, r)
	return actual.(*glamour.TermRenderer), nil
}
