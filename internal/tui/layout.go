package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// normalizePane forces s to exactly width columns (ANSI-aware) and height lines so that
// lipgloss.JoinHorizontal lines columns up.
func normalizePane(s string, width, height int) string {
	width = max(width, 0)
	height = max(height, 0)

	lines := strings.Split(s, "\n")
	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}

	for i, ln := range lines {
		lines[i] = fitWidth(ln, width)
	}
	return strings.Join(lines, "\n")
}

// fitWidth truncates with an ellipsis or pads ln to width columns.
func fitWidth(ln string, width int) string {
	// Bound StringWidth on pathological lines.
	if width > 0 && len(ln) > 8192 {
		ln = xansi.Cut(ln, 0, width)
	}
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

// splitWidths divides total columns into n widths that differ by at most one.
func splitWidths(total, n int) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, n)
	base, extra := total/n, total%n
	for i := range out {
		out[i] = base
		if i < extra {
			out[i]++
		}
	}
	return out
}

func joinColumns(cols []string, widths []int, height int) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = normalizePane(c, widths[i], height)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}
