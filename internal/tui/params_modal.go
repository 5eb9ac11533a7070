package tui

import (
	"errors"
	"strings"

	"ruleboard/internal/editor"
	"ruleboard/internal/model"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// paramsModal edits the draft of a pending placement, one textinput per input field.
type paramsModal struct {
	draft   model.PendingPlacement
	inputs  []textinput.Model
	focus   int
	missing map[string]bool
	err     string
	keys    modalKeyMap
	saved   model.ItemInstance
}

func newParamsModal(draft model.PendingPlacement) *paramsModal {
	pm := &paramsModal{draft: draft, keys: defaultModalKeyMap(), missing: map[string]bool{}}
	for _, f := range draft.InputFields {
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = f
		in.CharLimit = 200
		in.Width = 32
		in.SetValue(draft.DraftValues[f])
		pm.inputs = append(pm.inputs, in)
	}
	pm.setFocus(0)
	return pm
}

func (pm *paramsModal) setFocus(i int) {
	if len(pm.inputs) == 0 {
		return
	}
	i = (i + len(pm.inputs)) % len(pm.inputs)
	for j := range pm.inputs {
		if j == i {
			pm.inputs[j].Focus()
		} else {
			pm.inputs[j].Blur()
		}
	}
	pm.focus = i
}

func (pm *paramsModal) values() map[string]string {
	out := make(map[string]string, len(pm.inputs))
	for i, f := range pm.draft.InputFields {
		out[f] = pm.inputs[i].Value()
	}
	return out
}

type paramsResult int

const (
	paramsPending paramsResult = iota
	paramsSaved
	paramsCancelled
)

// update routes a key to the modal. Saving writes every field into the capture flow and
// then saves; an incomplete draft keeps the modal open with the missing fields marked.
func (pm *paramsModal) update(msg tea.KeyMsg, sess *editor.Session) (paramsResult, tea.Cmd) {
	switch {
	case key.Matches(msg, pm.keys.Cancel):
		_, _ = sess.Apply(editor.CancelCmd{})
		return paramsCancelled, nil
	case msg.String() == "enter" && pm.focus < len(pm.inputs)-1:
		pm.setFocus(pm.focus + 1)
		return paramsPending, nil
	case key.Matches(msg, pm.keys.Save):
		return pm.save(sess), nil
	case key.Matches(msg, pm.keys.Next):
		pm.setFocus(pm.focus + 1)
		return paramsPending, nil
	case key.Matches(msg, pm.keys.Prev):
		pm.setFocus(pm.focus - 1)
		return paramsPending, nil
	}
	if len(pm.inputs) == 0 {
		return paramsPending, nil
	}
	var cmd tea.Cmd
	pm.inputs[pm.focus], cmd = pm.inputs[pm.focus].Update(msg)
	return paramsPending, cmd
}

func (pm *paramsModal) save(sess *editor.Session) paramsResult {
	for _, f := range pm.draft.InputFields {
		if _, err := sess.Apply(editor.SetFieldCmd{Field: f, Value: pm.values()[f]}); err != nil {
			pm.err = err.Error()
			return paramsPending
		}
	}
	inst, err := sess.Capture.Save()
	if err != nil {
		pm.err = err.Error()
		var incomplete *editor.IncompleteParametersError
		if errors.As(err, &incomplete) {
			pm.missing = map[string]bool{}
			for _, f := range incomplete.Missing {
				pm.missing[f] = true
			}
			for i, f := range pm.draft.InputFields {
				if pm.missing[f] {
					pm.setFocus(i)
					break
				}
			}
		}
		return paramsPending
	}
	pm.saved = inst
	return paramsSaved
}

func (pm *paramsModal) view(width int, h help.Model) string {
	title := "Parameters: " + pm.draft.Label
	if pm.draft.IsEdit() {
		title = "Edit " + pm.draft.Label
	}
	bodyW := modalBodyWidth(width)

	labelW := 0
	for _, f := range pm.draft.InputFields {
		labelW = max(labelW, len(f))
	}
	rows := make([]string, 0, len(pm.inputs)+4)
	for i, f := range pm.draft.InputFields {
		label := lipgloss.NewStyle().Width(labelW + 2).Render(f)
		if pm.missing[f] {
			label = styleError().Width(labelW + 2).Render(f)
		}
		in := pm.inputs[i]
		in.Width = max(bodyW-labelW-4, 8)
		field := lipgloss.NewStyle().Background(colorInputBg).Render(in.View())
		rows = append(rows, label+field)
	}
	if len(rows) == 0 {
		rows = append(rows, styleMuted().Render("(no input fields)"))
	}
	target := styleMuted().Render("→ " + pm.draft.TargetBucket)
	rows = append([]string{target, ""}, rows...)
	if pm.err != "" {
		rows = append(rows, "", styleError().Width(bodyW).Render(pm.err))
	}
	rows = append(rows, "", styleMuted().Width(bodyW).Render(h.ShortHelpView(pm.keys.ShortHelp())))
	return renderModalBox(width, title, strings.Join(rows, "\n"))
}

func modalBodyWidth(width int) int {
	w := width - 12
	if w > 72 {
		w = 72
	}
	return max(w, 20)
}

func renderModalBox(width int, title, body string) string {
	bodyW := modalBodyWidth(width)
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorAccentFg).
		Background(colorAccent).
		Padding(0, 1).
		Width(bodyW).
		Render(title)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorFocusBorder).
		Background(colorSurfaceBg).
		Foreground(colorSurfaceFg).
		Padding(0, 1).
		Render(header + "\n\n" + body)
}
