package tui

import (
	"fmt"
	"io"
	"strings"

	"ruleboard/internal/model"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// poolItem adapts a catalog template to bubbles/list.
type poolItem struct {
	tpl model.TemplateItem
}

func (i poolItem) FilterValue() string { return i.tpl.Label }
func (i poolItem) Title() string       { return i.tpl.Label }

func (i poolItem) Description() string {
	if !i.tpl.RequiresInput {
		return ""
	}
	return strings.Join(i.tpl.InputFields, ", ")
}

// poolDelegate renders one template per line: label plus a marker for parameterized ones.
type poolDelegate struct {
	normal   lipgloss.Style
	selected lipgloss.Style
	meta     lipgloss.Style
	focused  *bool
}

func newPoolDelegate(focused *bool) poolDelegate {
	return poolDelegate{
		normal:   lipgloss.NewStyle(),
		selected: styleSelected(),
		meta:     lipgloss.NewStyle().Foreground(colorParamMetaFg),
		focused:  focused,
	}
}

func (d poolDelegate) Height() int                             { return 1 }
func (d poolDelegate) Spacing() int                            { return 0 }
func (d poolDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d poolDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	contentW := m.Width()
	if contentW < 4 {
		return
	}
	it, ok := item.(poolItem)
	if !ok {
		return
	}

	line := it.tpl.Label
	if it.tpl.RequiresInput {
		line += " " + d.meta.Render(glyphNeedsInput())
	}
	line = fitWidth(line, contentW)

	if index == m.Index() && d.focused != nil && *d.focused {
		fmt.Fprint(w, d.selected.Render(line))
		return
	}
	fmt.Fprint(w, d.normal.Render(line))
}
