package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// confirmModalFocus is the highlighted button of a yes/no dialog.
type confirmModalFocus int

const (
	confirmFocusConfirm confirmModalFocus = iota
	confirmFocusCancel
)

func (f confirmModalFocus) toggle() confirmModalFocus { return 1 - f }

func renderConfirmModal(width int, title, body, confirmLabel, cancelLabel string, focus confirmModalFocus) string {
	bodyW := modalBodyWidth(width)

	// Buttons stay borderless: a border nested in the modal box smears in some terminals.
	plain := lipgloss.NewStyle().Padding(0, 1).Foreground(colorSurfaceFg).Background(colorControlBg)
	active := plain.Foreground(colorSelectedFg).Background(colorSelectedBg).Bold(true)

	buttons := make([]string, 0, 3)
	for i, label := range []string{confirmLabel, cancelLabel} {
		st := plain
		if confirmModalFocus(i) == focus {
			st = active
		}
		if i > 0 {
			buttons = append(buttons, lipgloss.NewStyle().Background(colorControlBg).Render(" "))
		}
		buttons = append(buttons, st.Render(label))
	}

	return renderModalBox(width, title, strings.Join([]string{
		lipgloss.NewStyle().Width(bodyW).Render(body),
		"",
		lipgloss.JoinHorizontal(lipgloss.Top, buttons...),
		"",
		styleMuted().Width(bodyW).Render("y submit · n/esc cancel · tab switch · enter choose"),
	}, "\n"))
}
