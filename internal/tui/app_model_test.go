package tui

import (
	"context"
	"strings"
	"testing"

	"ruleboard/internal/editor"
	"ruleboard/internal/model"
	"ruleboard/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

func testAssignment(buckets ...model.Bucket) model.Assignment {
	if len(buckets) == 0 {
		buckets = []model.Bucket{{Name: "key1"}, {Name: "key2"}}
	}
	return model.Assignment{
		Catalog: []model.TemplateItem{
			{ID: "pool-1", Label: "Credit Check"},
			{ID: "pool-2", Label: "Range", RequiresInput: true, InputFields: []string{"start", "end"}},
		},
		Buckets: buckets,
	}
}

func newTestModel(t *testing.T, a model.Assignment) (appModel, store.Store) {
	t.Helper()
	st := store.Store{Dir: t.TempDir()}
	sess := editor.NewSession(editor.Options{IDs: editor.NewCounterIDs("inst")})
	if err := sess.Hydrate(a); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	m := newAppModel(context.Background(), Config{Session: sess, Store: st})
	t.Cleanup(m.close)
	return m, st
}

func keyRunes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
	keyCtrlS = tea.KeyMsg{Type: tea.KeyCtrlS}
)

func press(t *testing.T, m appModel, msgs ...tea.KeyMsg) appModel {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		nm, ok := next.(appModel)
		if !ok {
			t.Fatalf("unexpected model type %T", next)
		}
		m = nm
	}
	return m
}

func storedBucket(t *testing.T, st store.Store, name string) []model.ItemInstance {
	t.Helper()
	a, err := st.LoadAssignment(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, b := range a.Buckets {
		if b.Name == name {
			return b.Instances
		}
	}
	t.Fatalf("bucket %q not stored", name)
	return nil
}

func TestPlacePlainTemplateFromPoolPersists(t *testing.T) {
	m, st := newTestModel(t, testAssignment())

	m = press(t, m, keySpace)
	if m.drop == nil || m.sess.State().Phase != editor.PhaseDragging {
		t.Fatalf("expected drag in progress, phase=%v", m.sess.State().Phase)
	}
	m = press(t, m, keyEnter)

	items := m.sess.Buckets().Get("key1")
	if len(items) != 1 || items[0].TemplateID != "pool-1" {
		t.Fatalf("expected Credit Check in key1, got %+v", items)
	}
	if got := storedBucket(t, st, "key1"); len(got) != 1 || got[0].InstanceID != items[0].InstanceID {
		t.Fatalf("expected placement persisted, got %+v", got)
	}
	evs, err := st.ReadEventsTail(0)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(evs) != 1 || evs[0].Type != "instance.place" {
		t.Fatalf("expected one instance.place event, got %+v", evs)
	}
}

func TestParameterizedDropOpensModalAndSaves(t *testing.T) {
	m, st := newTestModel(t, testAssignment())

	m = press(t, m, keyDown, keySpace, keyRight, keyEnter)
	if m.modal != modalParams {
		t.Fatalf("expected parameter modal, got %v", m.modal)
	}
	if n := len(m.sess.Buckets().Get("key2")); n != 0 {
		t.Fatalf("draft must not reach the bucket store, key2 has %d", n)
	}

	m = press(t, m, keyRunes("10"), keyEnter, keyRunes("20"), keyEnter)
	if m.modal != modalNone {
		t.Fatalf("expected modal closed after save")
	}
	items := m.sess.Buckets().Get("key2")
	if len(items) != 1 {
		t.Fatalf("expected one instance in key2, got %+v", items)
	}
	if items[0].Values["start"] != "10" || items[0].Values["end"] != "20" {
		t.Fatalf("unexpected values: %+v", items[0].Values)
	}
	if got := storedBucket(t, st, "key2"); len(got) != 1 || got[0].Values["end"] != "20" {
		t.Fatalf("expected saved values persisted, got %+v", got)
	}
}

func TestIncompleteParametersKeepModalOpen(t *testing.T) {
	m, _ := newTestModel(t, testAssignment())

	m = press(t, m, keyDown, keySpace, keyEnter, keyRunes("10"), keyCtrlS)
	if m.modal != modalParams {
		t.Fatalf("expected modal to stay open")
	}
	if !m.params.missing["end"] || m.params.missing["start"] {
		t.Fatalf("expected only end missing, got %+v", m.params.missing)
	}
	if m.sess.Snapshot().Total() != 0 {
		t.Fatalf("nothing should be placed yet")
	}

	m = press(t, m, keyEsc)
	if m.modal != modalNone || m.sess.State().Phase != editor.PhaseIdle {
		t.Fatalf("expected cancel to return to idle, phase=%v", m.sess.State().Phase)
	}
	if m.sess.Snapshot().Total() != 0 {
		t.Fatalf("cancel must leave the buckets unchanged")
	}
}

func TestEscAbandonsDrag(t *testing.T) {
	m, _ := newTestModel(t, testAssignment())

	m = press(t, m, keySpace, keyRight, keyEsc)
	if m.drop != nil || m.sess.State().Phase != editor.PhaseIdle {
		t.Fatalf("expected idle after esc")
	}
	if m.sess.Snapshot().Total() != 0 {
		t.Fatalf("abandoned drag must not place anything")
	}
}

func TestDropOnFoldedBucketIsRejected(t *testing.T) {
	m, st := newTestModel(t, testAssignment())

	m = press(t, m, keyTab, keyRunes("c"), keyTab, keySpace, keyEnter)
	if !m.sess.State().IsCollapsed("key1") {
		t.Fatalf("expected key1 folded")
	}
	if m.sess.Snapshot().Total() != 0 {
		t.Fatalf("drop onto folded bucket must be rejected")
	}
	if !m.statusErr || !strings.Contains(m.status, "rejected") {
		t.Fatalf("expected rejection status, got %q", m.status)
	}
	ui, err := st.LoadTUIState()
	if err != nil {
		t.Fatalf("tui state: %v", err)
	}
	if len(ui.Collapsed) != 1 || ui.Collapsed[0] != "key1" {
		t.Fatalf("expected folded bucket remembered, got %+v", ui.Collapsed)
	}
}

func TestMoveInstanceAcrossBuckets(t *testing.T) {
	a := testAssignment(
		model.Bucket{Name: "key1", Instances: []model.ItemInstance{{InstanceID: "a", TemplateID: "pool-1"}}},
		model.Bucket{Name: "key2", Instances: []model.ItemInstance{{InstanceID: "b", TemplateID: "pool-1"}}},
	)
	m, st := newTestModel(t, a)

	m = press(t, m, keyTab, keySpace, keyRight, keyEnter)
	if got := m.sess.Buckets().Get("key2"); len(got) != 2 || got[1].InstanceID != "a" {
		t.Fatalf("expected a appended to key2, got %+v", got)
	}
	if len(m.sess.Buckets().Get("key1")) != 0 {
		t.Fatalf("expected key1 empty after move")
	}
	if got := storedBucket(t, st, "key2"); len(got) != 2 {
		t.Fatalf("expected move persisted, got %+v", got)
	}
}

func TestRemoveSelectedInstance(t *testing.T) {
	a := testAssignment(
		model.Bucket{Name: "key1", Instances: []model.ItemInstance{{InstanceID: "a", TemplateID: "pool-1"}, {InstanceID: "b", TemplateID: "pool-1"}}},
		model.Bucket{Name: "key2"},
	)
	m, _ := newTestModel(t, a)

	m = press(t, m, keyTab, keyDown, keyRunes("x"))
	got := m.sess.Buckets().Get("key1")
	if len(got) != 1 || got[0].InstanceID != "a" {
		t.Fatalf("expected b removed, got %+v", got)
	}
}

func TestEditPlainInstanceIsRefused(t *testing.T) {
	a := testAssignment(
		model.Bucket{Name: "key1", Instances: []model.ItemInstance{{InstanceID: "a", TemplateID: "pool-1"}}},
	)
	m, _ := newTestModel(t, a)

	m = press(t, m, keyTab, keyRunes("e"))
	if m.modal != modalNone {
		t.Fatalf("plain instances have no parameter dialog")
	}
	if !strings.Contains(m.status, "no parameters") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestPoolSearchFiltersTemplates(t *testing.T) {
	m, _ := newTestModel(t, testAssignment())

	m = press(t, m, keyRunes("/"), keyRunes("ran"), keyEnter)
	if n := len(m.pool.Items()); n != 1 {
		t.Fatalf("expected one match for 'ran', got %d", n)
	}
	if it := m.pool.SelectedItem().(poolItem); it.tpl.ID != "pool-2" {
		t.Fatalf("expected Range selected, got %s", it.tpl.ID)
	}
}

func TestTargetIndexWithinOwnBucket(t *testing.T) {
	items := []model.ItemInstance{{InstanceID: "a"}, {InstanceID: "b"}, {InstanceID: "c"}}
	cases := []struct {
		slot    int
		dragged string
		want    int
	}{
		{slot: 3, dragged: "a", want: 2},
		{slot: 0, dragged: "c", want: 0},
		{slot: 1, dragged: "a", want: 0},
		{slot: 2, dragged: "", want: 2},
	}
	for _, tc := range cases {
		if got := targetIndex(items, tc.slot, tc.dragged); got != tc.want {
			t.Fatalf("targetIndex(slot=%d, dragged=%q) = %d, want %d", tc.slot, tc.dragged, got, tc.want)
		}
	}
}

func TestSubmitAsksForConfirmation(t *testing.T) {
	m, st := newTestModel(t, testAssignment())

	m = press(t, m, keySpace, keyEnter) // place Credit Check into key1
	m = press(t, m, keyRunes("S"))
	if m.modal != modalConfirmSubmit {
		t.Fatalf("expected confirm modal; got %v", m.modal)
	}
	m = press(t, m, keyEsc)
	if m.modal != modalNone || m.submitting {
		t.Fatalf("esc should cancel the submit")
	}

	m = press(t, m, keyRunes("S"))
	next, cmd := m.Update(keyRunes("y"))
	m = next.(appModel)
	if cmd == nil || !m.submitting {
		t.Fatalf("expected a submit command")
	}
	next, _ = m.Update(cmd())
	m = next.(appModel)
	if m.submitting || m.statusErr || !strings.HasPrefix(m.status, "submitted ") {
		t.Fatalf("unexpected status after submit: %q (err=%v)", m.status, m.statusErr)
	}

	subs, err := st.ListSubmissions(context.Background(), 0)
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	if len(subs) != 1 || len(subs[0].Document.Buckets) != 2 {
		t.Fatalf("expected one recorded submission with both buckets; got %#v", subs)
	}
}

func TestCopyPreviewJSON(t *testing.T) {
	var copied string
	prev := writeClipboard
	writeClipboard = func(s string) error { copied = s; return nil }
	t.Cleanup(func() { writeClipboard = prev })

	m, _ := newTestModel(t, testAssignment())
	m = press(t, m, keySpace, keyEnter)
	m = press(t, m, keyRunes("p"))
	if m.modal != modalPreview {
		t.Fatalf("expected preview modal")
	}
	next, cmd := m.Update(keyRunes("y"))
	m = next.(appModel)
	if cmd == nil {
		t.Fatalf("expected copy command")
	}
	next, _ = m.Update(cmd())
	m = next.(appModel)

	if !strings.Contains(copied, `"key1"`) || !strings.Contains(copied, `"Credit Check"`) {
		t.Fatalf("unexpected clipboard content: %s", copied)
	}
	if m.status != "copied json" {
		t.Fatalf("unexpected status %q", m.status)
	}
}
