package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// normalizePane forces s to be exactly width columns wide (ANSI-aware) and height
// lines tall.
func normalizePane(s string, width, height int) string {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	lines := strings.Split(s, "\n")

	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}

	for i := range lines {
		lines[i] = fitLine(lines[i], width)
	}
	return strings.Join(lines, "\n")
}

func fitLine(ln string, width int) string {
	w := xansi.StringWidth(ln)
	if w > width {
		switch {
		case width <= 0:
			ln = ""
		case width == 1:
			ln = xansi.Cut(ln, 0, 1)
		default:
			ln = xansi.Cut(ln, 0, width-1) + "…"
		}
		w = xansi.StringWidth(ln)
	}
	if w < width {
		ln += strings.Repeat(" ", width-w)
	}
	return ln
}

func modalWidth(termW int) int {
	w := termW - 8
	if w > 72 {
		w = 72
	}
	if w < 24 {
		w = 24
	}
	return w
}

// modalBodyWidth is the usable text width inside renderModalBox.
func modalBodyWidth(termW int) int {
	return modalWidth(termW) - 4
}

// renderModalBox draws a title bar over a padded surface. No borders: some
// terminals show background artifacts around bordered boxes with a background.
func renderModalBox(termW int, title, content string) string {
	w := modalWidth(termW)
	header := lipgloss.NewStyle().
		Width(w).
		Padding(0, 2).
		Bold(true).
		Foreground(colorModalHeaderFg).
		Background(colorModalHeaderBg).
		Render(title)
	body := lipgloss.NewStyle().
		Width(w).
		Padding(1, 2).
		Foreground(colorModalSurfaceFg).
		Background(colorModalSurfaceBg).
		Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

// overlayCenter places fg over the middle of bg, line by line.
func overlayCenter(bg, fg string, width, height int) string {
	if width <= 0 || height <= 0 {
		return fg
	}
	bgLines := strings.Split(normalizePane(bg, width, height), "\n")
	fgLines := strings.Split(fg, "\n")
	fgW := 0
	for _, l := range fgLines {
		if w := xansi.StringWidth(l); w > fgW {
			fgW = w
		}
	}
	if fgW > width {
		fgW = width
	}
	top := (height - len(fgLines)) / 2
	if top < 0 {
		top = 0
	}
	left := (width - fgW) / 2
	for i, l := range fgLines {
		row := top + i
		if row >= len(bgLines) {
			break
		}
		base := bgLines[row]
		l = fitLine(l, fgW)
		bgLines[row] = xansi.Cut(base, 0, left) + l + xansi.Cut(base, left+fgW, width)
	}
	return strings.Join(bgLines, "\n")
}
