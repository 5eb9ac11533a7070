package tui

import (
	"fmt"
	"strings"

	"ruleboard/internal/model"

	"github.com/charmbracelet/lipgloss"
)

// dropSlot is the insertion point shown while dragging: the row index the item would take
// in the target bucket's displayed order.
type dropSlot struct {
	bucket string
	slot   int
}

// targetIndex converts a displayed slot into the index the engine expects. When an item
// is dragged within its own bucket the rows below it shift up by one.
func targetIndex(items []model.ItemInstance, slot int, draggedID string) int {
	if draggedID != "" {
		for i, it := range items {
			if it.InstanceID == draggedID && slot > i {
				return slot - 1
			}
		}
	}
	return slot
}

type bucketView struct {
	name      string
	items     []model.ItemInstance
	collapsed bool
	focused   bool
	cursor    int    // selected row, -1 for none
	drop      int    // drop slot, -1 when not a drop target
	draggedID string // rendered dimmed while in flight
}

func renderBucket(v bucketView, width int) string {
	innerW := max(width-4, 4)

	marker := glyphTwistyExpanded()
	if v.collapsed {
		marker = glyphTwistyCollapsed()
	}
	head := fmt.Sprintf("%s %s (%d)", marker, v.name, len(v.items))
	headStyle := lipgloss.NewStyle().Bold(true).Foreground(colorChromeFg)
	if v.collapsed {
		headStyle = headStyle.Foreground(colorCollapsedFg)
	}
	lines := []string{headStyle.Render(fitWidth(head, innerW))}

	dropLine := lipgloss.NewStyle().Foreground(colorDropMarkerFg).Bold(true).Render(fitWidth(glyphDropMarker(), innerW))

	if v.collapsed {
		if v.drop >= 0 {
			lines = append(lines, styleError().Render(fitWidth("folded: drops rejected", innerW)))
		}
		return stylePane(v.focused).Width(width - 2).Render(strings.Join(lines, "\n"))
	}

	if len(v.items) == 0 && v.drop < 0 {
		lines = append(lines, styleMuted().Render(fitWidth("(empty)", innerW)))
	}
	for i, it := range v.items {
		if v.drop == i {
			lines = append(lines, dropLine)
		}
		lines = append(lines, renderInstanceRow(it, innerW, v.cursor == i, it.InstanceID == v.draggedID))
	}
	if v.drop >= len(v.items) {
		lines = append(lines, dropLine)
	}
	return stylePane(v.focused).Width(width - 2).Render(strings.Join(lines, "\n"))
}

func renderInstanceRow(it model.ItemInstance, width int, selected, dragged bool) string {
	label := it.Label
	if sum := it.ValuesSummary(); sum != "" {
		label += " " + lipgloss.NewStyle().Foreground(colorParamMetaFg).Render("("+sum+")")
	}
	line := fitWidth(label, width)
	switch {
	case dragged:
		return styleMuted().Render(line)
	case selected:
		return styleSelected().Render(line)
	default:
		return line
	}
}
