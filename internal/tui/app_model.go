package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ruleboard/internal/editor"
	"ruleboard/internal/format"
	"ruleboard/internal/model"
	"ruleboard/internal/store"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

type focusPane int

const (
	focusPool focusPane = iota
	focusBoard
)

func (f focusPane) String() string {
	if f == focusBoard {
		return "buckets"
	}
	return "pool"
}

type modalKind int

const (
	modalNone modalKind = iota
	modalParams
	modalPreview
	modalConfirmSubmit
)

const poolWidth = 28

type submitDoneMsg struct {
	res model.SubmitResult
	err error
}

type appModel struct {
	ctx  context.Context
	sess *editor.Session
	st   store.Store
	cfg  Config
	log  *zap.Logger

	keys keyMap
	help help.Model

	width  int
	height int

	focus       focusPane
	pool        list.Model
	poolFocused *bool
	filter      textinput.Model
	filtering   bool

	bucket int // selected column
	row    int // selected row in the column
	drop   *dropSlot
	// draggedID is set while an instance (not a template) is in flight.
	draggedID string

	modal   modalKind
	params  *paramsModal
	preview viewport.Model
	confirm confirmModalFocus

	// changes is bumped by the session listener; saved is the value last persisted.
	changes     *int
	saved       int
	unsubscribe func()

	status     string
	statusErr  bool
	submitting bool
}

func newAppModel(ctx context.Context, cfg Config) appModel {
	if ctx == nil {
		ctx = context.Background()
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	focused := true
	m := appModel{
		ctx:         ctx,
		sess:        cfg.Session,
		st:          cfg.Store,
		cfg:         cfg,
		log:         log,
		keys:        defaultKeyMap(),
		help:        help.New(),
		focus:       focusPool,
		poolFocused: &focused,
		changes:     new(int),
		width:       100,
		height:      30,
	}
	m.help.ShowAll = cfg.ShowHelp

	m.pool = list.New(nil, newPoolDelegate(m.poolFocused), poolWidth, 20)
	m.pool.SetShowTitle(false)
	m.pool.SetShowStatusBar(false)
	m.pool.SetShowHelp(false)
	m.pool.SetShowPagination(false)
	m.pool.SetFilteringEnabled(false)
	m.pool.DisableQuitKeybindings()

	m.filter = textinput.New()
	m.filter.Prompt = "/ "
	m.filter.Placeholder = "search pool"
	m.filter.CharLimit = 80
	m.filter.Width = poolWidth - 4

	counter := m.changes
	m.unsubscribe = m.sess.Subscribe(func(editor.Snapshot) { *counter++ })

	m.restoreUIState()
	m.refreshPool()
	m.resize()
	if err := m.sess.State().LoadErr; err != nil {
		m.setError(err)
	}
	return m
}

func (m appModel) close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m appModel) Init() tea.Cmd { return nil }

func (m *appModel) resize() {
	h := max(m.height-5, 4)
	m.pool.SetSize(poolWidth-4, h-2)
	m.preview.Width = max(modalBodyWidth(m.width), 20)
	m.preview.Height = max(m.height-8, 4)
}

func (m *appModel) refreshPool() {
	tpls := m.sess.Catalog().Search(m.filter.Value())
	items := make([]list.Item, 0, len(tpls))
	for _, t := range tpls {
		items = append(items, poolItem{tpl: t})
	}
	m.pool.SetItems(items)
}

func (m *appModel) setFocus(f focusPane) {
	m.focus = f
	*m.poolFocused = f == focusPool
}

func (m *appModel) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *appModel) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
}

func (m appModel) bucketNames() []string { return m.sess.Buckets().Names() }

func (m appModel) currentBucket() string {
	names := m.bucketNames()
	if len(names) == 0 {
		return ""
	}
	return names[clampInt(m.bucket, 0, len(names)-1)]
}

func (m appModel) currentInstance() (model.ItemInstance, bool) {
	items := m.sess.Buckets().Get(m.currentBucket())
	if m.row < 0 || m.row >= len(items) {
		return model.ItemInstance{}, false
	}
	return items[m.row], true
}

func (m *appModel) clampCursor() {
	names := m.bucketNames()
	m.bucket = clampInt(m.bucket, 0, max(len(names)-1, 0))
	n := len(m.sess.Buckets().Get(m.currentBucket()))
	m.row = clampInt(m.row, 0, max(n-1, 0))
}

// persist writes the assignment and one event when the session listener reported a change.
func (m *appModel) persist(typ, entityID string, payload any) {
	if *m.changes == m.saved {
		return
	}
	if err := m.st.SaveAssignment(m.ctx, m.sess.Assignment()); err != nil {
		m.log.Warn("save failed", zap.Error(err))
		m.setError(fmt.Errorf("save failed: %w", err))
		return
	}
	if err := m.st.AppendEvent(typ, entityID, payload); err != nil {
		m.log.Warn("event append failed", zap.Error(err))
	}
	m.saved = *m.changes
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case submitDoneMsg:
		m.submitting = false
		if msg.err != nil {
			m.log.Warn("submit failed", zap.Error(msg.err))
			m.setError(fmt.Errorf("submit failed: %w", msg.err))
			return m, nil
		}
		_ = m.st.AppendEvent("assignment.submit", msg.res.ID, map[string]any{"target": msg.res.Target, "status": msg.res.Status})
		m.log.Info("assignment submitted", zap.String("id", msg.res.ID), zap.String("target", msg.res.Target))
		m.setStatus(fmt.Sprintf("submitted %s to %s", msg.res.ID, msg.res.Target))
		return m, nil

	case clipboardDoneMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("copy %s: %w", msg.what, msg.err))
			return m, nil
		}
		m.setStatus("copied " + msg.what)
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m appModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.modal {
	case modalParams:
		res, cmd := m.params.update(msg, m.sess)
		switch res {
		case paramsSaved:
			draft, inst := m.params.draft, m.params.saved
			m.modal, m.params = modalNone, nil
			typ := "instance.place"
			if draft.IsEdit() {
				typ = "instance.edit"
			}
			m.persist(typ, inst.InstanceID, map[string]any{"bucket": draft.TargetBucket, "values": inst.Values})
			m.setStatus("saved " + draft.Label)
			if _, i, ok := m.sess.Buckets().Locate(inst.InstanceID); ok {
				m.row = i
			}
			m.clampCursor()
		case paramsCancelled:
			m.modal, m.params = modalNone, nil
			m.setStatus("cancelled")
		}
		return m, cmd
	case modalPreview:
		switch {
		case key.Matches(msg, m.keys.Abandon), key.Matches(msg, m.keys.Preview), key.Matches(msg, m.keys.Quit):
			m.modal = modalNone
			return m, nil
		case key.Matches(msg, m.keys.Copy):
			return m, m.copyJSON()
		}
		var cmd tea.Cmd
		m.preview, cmd = m.preview.Update(msg)
		return m, cmd
	case modalConfirmSubmit:
		return m.updateConfirmSubmit(msg)
	}

	if m.filtering {
		return m.updateFilter(msg)
	}
	if m.drop != nil {
		return m.updateDrag(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusPool {
			m.setFocus(focusBoard)
		} else {
			m.setFocus(focusPool)
		}
		m.clampCursor()
		return m, nil
	case key.Matches(msg, m.keys.Preview):
		m.openPreview()
		return m, nil
	case key.Matches(msg, m.keys.Copy):
		return m, m.copyJSON()
	case key.Matches(msg, m.keys.Submit):
		if m.submitting {
			return m, nil
		}
		m.modal, m.confirm = modalConfirmSubmit, confirmFocusConfirm
		return m, nil
	}

	if m.focus == focusPool {
		return m.updatePool(msg)
	}
	return m.updateBoard(msg)
}

func (m appModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filter.SetValue("")
		fallthrough
	case "enter":
		m.filtering = false
		m.filter.Blur()
		m.refreshPool()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.refreshPool()
	return m, cmd
}

func (m appModel) updatePool(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		return m, m.filter.Focus()
	case key.Matches(msg, m.keys.Grab), key.Matches(msg, m.keys.Drop):
		it, ok := m.pool.SelectedItem().(poolItem)
		if !ok {
			return m, nil
		}
		if _, err := m.sess.Apply(editor.DragStartCmd{Source: editor.PoolSource(it.tpl.ID)}); err != nil {
			m.setError(err)
			return m, nil
		}
		bucket := m.currentBucket()
		m.drop = &dropSlot{bucket: bucket, slot: len(m.sess.Buckets().Get(bucket))}
		m.draggedID = ""
		m.setFocus(focusBoard)
		m.setStatus("dragging " + it.tpl.Label + ": ←/→ bucket, ↑/↓ position, enter drop, esc cancel")
		return m, nil
	case key.Matches(msg, m.keys.Right):
		m.setFocus(focusBoard)
		m.clampCursor()
		return m, nil
	}
	var cmd tea.Cmd
	m.pool, cmd = m.pool.Update(msg)
	return m, cmd
}

func (m appModel) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	names := m.bucketNames()
	switch {
	case key.Matches(msg, m.keys.Left):
		if m.bucket == 0 {
			m.setFocus(focusPool)
			return m, nil
		}
		m.bucket--
		m.clampCursor()
	case key.Matches(msg, m.keys.Right):
		if m.bucket < len(names)-1 {
			m.bucket++
		}
		m.clampCursor()
	case key.Matches(msg, m.keys.Up):
		m.row--
		m.clampCursor()
	case key.Matches(msg, m.keys.Down):
		m.row++
		m.clampCursor()
	case key.Matches(msg, m.keys.Collapse):
		bucket := m.currentBucket()
		collapsed := !m.sess.State().IsCollapsed(bucket)
		_, _ = m.sess.Apply(editor.CollapseCmd{Bucket: bucket, Collapsed: collapsed})
		m.saveUIState()
	case key.Matches(msg, m.keys.Grab):
		it, ok := m.currentInstance()
		if !ok || m.sess.State().IsCollapsed(m.currentBucket()) {
			return m, nil
		}
		if _, err := m.sess.Apply(editor.DragStartCmd{Source: editor.InstanceSource(it.InstanceID)}); err != nil {
			m.setError(err)
			return m, nil
		}
		m.drop = &dropSlot{bucket: m.currentBucket(), slot: m.row}
		m.draggedID = it.InstanceID
		m.setStatus("moving " + it.Label + ": ←/→ bucket, ↑/↓ position, enter drop, esc cancel")
	case key.Matches(msg, m.keys.Remove):
		it, ok := m.currentInstance()
		if !ok {
			return m, nil
		}
		bucket := m.currentBucket()
		if _, err := m.sess.Apply(editor.RemoveCmd{InstanceID: it.InstanceID}); err != nil {
			m.setError(err)
			return m, nil
		}
		m.persist("instance.remove", it.InstanceID, map[string]any{"bucket": bucket})
		m.setStatus("removed " + it.Label)
		m.clampCursor()
	case key.Matches(msg, m.keys.Edit):
		it, ok := m.currentInstance()
		if !ok {
			return m, nil
		}
		if _, err := m.sess.Apply(editor.EditCmd{InstanceID: it.InstanceID}); err != nil {
			if errors.Is(err, editor.ErrNotParameterized) {
				m.setStatus(it.Label + " has no parameters")
				return m, nil
			}
			m.setError(err)
			return m, nil
		}
		return m, m.openParams()
	}
	return m, nil
}

func (m appModel) updateDrag(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	names := m.bucketNames()
	if len(names) == 0 {
		_, _ = m.sess.Apply(editor.AbandonCmd{})
		m.drop = nil
		return m, nil
	}
	idx := indexOf(names, m.drop.bucket)
	switch {
	case key.Matches(msg, m.keys.Abandon):
		_, _ = m.sess.Apply(editor.AbandonCmd{})
		m.drop, m.draggedID = nil, ""
		m.setStatus("drag cancelled")
		return m, nil
	case key.Matches(msg, m.keys.Left):
		idx = max(idx-1, 0)
		m.drop.bucket = names[idx]
		m.drop.slot = len(m.sess.Buckets().Get(names[idx]))
	case key.Matches(msg, m.keys.Right):
		idx = min(idx+1, len(names)-1)
		m.drop.bucket = names[idx]
		m.drop.slot = len(m.sess.Buckets().Get(names[idx]))
	case key.Matches(msg, m.keys.Up):
		m.drop.slot = max(m.drop.slot-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.drop.slot = min(m.drop.slot+1, len(m.sess.Buckets().Get(m.drop.bucket)))
	case key.Matches(msg, m.keys.Drop):
		return m.dropHere()
	}
	m.bucket = idx
	return m, nil
}

func (m appModel) dropHere() (tea.Model, tea.Cmd) {
	target := *m.drop
	dragged := m.draggedID
	items := m.sess.Buckets().Get(target.bucket)
	index := targetIndex(items, target.slot, dragged)
	m.drop, m.draggedID = nil, ""

	out, err := m.sess.Apply(editor.DragEndCmd{Target: editor.At(target.bucket, index)})
	if err != nil {
		m.setError(err)
		return m, nil
	}
	switch out {
	case editor.OutcomeAbandoned:
		m.setError(fmt.Errorf("drop rejected: %s is folded", target.bucket))
	case editor.OutcomeAwaitingParameters:
		return m, m.openParams()
	case editor.OutcomeInserted:
		placed := m.sess.Buckets().Get(target.bucket)
		m.row = clampInt(index, 0, max(len(placed)-1, 0))
		id := ""
		if m.row < len(placed) {
			id = placed[m.row].InstanceID
		}
		m.persist("instance.place", id, map[string]any{"bucket": target.bucket, "index": m.row})
		m.setStatus("placed in " + target.bucket)
	case editor.OutcomeReordered, editor.OutcomeMoved:
		m.persist("instance."+out.String(), dragged, map[string]any{"to": target.bucket, "index": index})
		m.setStatus(out.String())
		if _, i, ok := m.sess.Buckets().Locate(dragged); ok {
			m.row = i
		}
	}
	m.clampCursor()
	return m, nil
}

func (m *appModel) openParams() tea.Cmd {
	draft, ok := m.sess.Capture.Draft()
	if !ok {
		return nil
	}
	m.params = newParamsModal(draft)
	m.modal = modalParams
	return textinput.Blink
}

func (m *appModel) openPreview() {
	m.resize()
	m.preview = viewport.New(m.preview.Width, m.preview.Height)
	m.preview.SetContent(renderMarkdown(format.Markdown(m.sess.Preview()), m.preview.Width))
	m.modal = modalPreview
}

func (m appModel) updateConfirmSubmit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "left", "right", "h", "l":
		m.confirm = m.confirm.toggle()
		return m, nil
	case "y":
		m.modal = modalNone
		return m, m.submit()
	case "n", "esc", "q":
		m.modal = modalNone
		m.setStatus("submit cancelled")
		return m, nil
	case "enter":
		m.modal = modalNone
		if m.confirm == confirmFocusConfirm {
			return m, m.submit()
		}
		m.setStatus("submit cancelled")
	}
	return m, nil
}

func (m appModel) submitTarget() string {
	if m.cfg.Remote != nil {
		return "the remote backend"
	}
	return "the local workspace history"
}

func (m appModel) copyJSON() tea.Cmd {
	b, err := json.MarshalIndent(m.sess.Preview(), "", "  ")
	if err != nil {
		return func() tea.Msg { return clipboardDoneMsg{what: "json", err: err} }
	}
	return copyToClipboard("json", string(b))
}

// submit projects the current state on the update goroutine and sends it from a command,
// so the session is never touched concurrently.
func (m *appModel) submit() tea.Cmd {
	if m.submitting {
		return nil
	}
	m.submitting = true
	m.setStatus("submitting…")
	doc := m.sess.Preview()
	st, remote, ctx := m.st, m.cfg.Remote, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if remote == nil {
			res, err := st.SubmitAssignment(ctx, doc)
			return submitDoneMsg{res: res, err: err}
		}
		res, err := remote.SubmitAssignment(ctx, doc)
		if err != nil {
			return submitDoneMsg{err: err}
		}
		res, err = st.RecordSubmission(ctx, doc, res)
		return submitDoneMsg{res: res, err: err}
	}
}

func (m *appModel) restoreUIState() {
	ui, err := m.st.LoadTUIState()
	if err != nil || ui == nil {
		return
	}
	for _, b := range ui.Collapsed {
		_, _ = m.sess.Apply(editor.CollapseCmd{Bucket: b, Collapsed: true})
	}
	if i := indexOf(m.bucketNames(), ui.SelectedBucket); i >= 0 {
		m.bucket = i
	}
	if ui.Pane == focusBoard.String() {
		m.setFocus(focusBoard)
	}
	m.filter.SetValue(ui.PoolFilter)
}

func (m appModel) saveUIState() {
	ui := &store.TUIState{
		Pane:           m.focus.String(),
		SelectedBucket: m.currentBucket(),
		PoolFilter:     strings.TrimSpace(m.filter.Value()),
	}
	for _, name := range m.bucketNames() {
		if m.sess.State().IsCollapsed(name) {
			ui.Collapsed = append(ui.Collapsed, name)
		}
	}
	if err := m.st.SaveTUIState(ui); err != nil {
		m.log.Debug("tui state not saved", zap.Error(err))
	}
}

func (m appModel) View() string {
	header := lipgloss.NewStyle().Bold(true).Render("ruleboard")
	if ws := strings.TrimSpace(m.cfg.Workspace); ws != "" {
		header += styleMuted().Render("  " + ws)
	}
	header += styleMuted().Render(fmt.Sprintf("  %d placed", m.sess.Snapshot().Total()))

	bodyH := max(m.height-4, 4)
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.viewPool(bodyH), m.viewBoard(max(m.width-poolWidth, 20), bodyH))

	status := styleMuted().Render(m.status)
	if m.statusErr {
		status = styleError().Render(m.status)
	}
	footer := m.help.View(m.keys)

	view := strings.Join([]string{header, body, fitWidth(status, m.width), footer}, "\n")
	switch m.modal {
	case modalParams:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.params.view(m.width, m.help))
	case modalPreview:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			renderModalBox(m.width, "Preview (y copy json, esc close)", m.preview.View()))
	case modalConfirmSubmit:
		snap := m.sess.Snapshot()
		body := fmt.Sprintf("Send %d placed instance(s) across %d bucket(s) to %s?", snap.Total(), len(snap.Order), m.submitTarget())
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			renderConfirmModal(m.width, "Submit assignment", body, "Submit", "Cancel", m.confirm))
	}
	return view
}

func (m appModel) viewPool(height int) string {
	lines := []string{lipgloss.NewStyle().Bold(true).Render("Pool")}
	if m.filtering || m.filter.Value() != "" {
		lines = append(lines, m.filter.View())
	}
	if len(m.pool.Items()) == 0 {
		lines = append(lines, styleMuted().Render("(no templates)"))
	} else {
		lines = append(lines, m.pool.View())
	}
	inner := normalizePane(strings.Join(lines, "\n"), poolWidth-4, height-2)
	return stylePane(m.focus == focusPool && m.drop == nil).Render(inner)
}

func (m appModel) viewBoard(width, height int) string {
	names := m.bucketNames()
	if len(names) == 0 {
		return styleMuted().Render("no buckets")
	}
	widths := splitWidths(width, len(names))
	cols := make([]string, len(names))
	for i, name := range names {
		v := bucketView{
			name:      name,
			items:     m.sess.Buckets().Get(name),
			collapsed: m.sess.State().IsCollapsed(name),
			focused:   m.focus == focusBoard && i == m.bucket,
			cursor:    -1,
			drop:      -1,
			draggedID: m.draggedID,
		}
		if m.drop != nil {
			v.focused = name == m.drop.bucket
			if name == m.drop.bucket {
				v.drop = m.drop.slot
			}
		} else if v.focused {
			v.cursor = m.row
		}
		cols[i] = renderBucket(v, widths[i])
	}
	return joinColumns(cols, widths, height)
}

func indexOf(xs []string, x string) int {
	for i, s := range xs {
		if s == x {
			return i
		}
	}
	return -1
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
