package editor

import (
	"errors"
	"reflect"
	"testing"

	"ruleboard/internal/model"
)

func TestDragPlainTemplateInsertsFreshInstance(t *testing.T) {
	s := newTestSession(t)

	if err := s.Engine.DragStart(PoolSource("pool-1")); err != nil {
		t.Fatalf("drag start: %v", err)
	}
	out, err := s.Engine.DragEnd(AppendTo("key1"))
	if err != nil {
		t.Fatalf("drag end: %v", err)
	}
	if out != OutcomeInserted {
		t.Fatalf("expected inserted, got %s", out)
	}
	got := s.Buckets().Get("key1")
	if len(got) != 1 || got[0].InstanceID != "inst-1" || got[0].TemplateID != "pool-1" || got[0].Label != "Credit Check" {
		t.Fatalf("unexpected key1: %#v", got)
	}
	if s.State().Phase != PhaseIdle {
		t.Fatalf("expected idle, got %s", s.State().Phase)
	}
	if s.Catalog().Len() != 4 {
		t.Fatalf("catalog changed after placement")
	}
}

func TestSameTemplateTwiceYieldsDistinctInstances(t *testing.T) {
	s := newTestSession(t)
	for i := 0; i < 2; i++ {
		if _, err := s.Place("pool-3", AppendTo("key2"), nil); err != nil {
			t.Fatalf("place: %v", err)
		}
	}
	got := s.Buckets().Get("key2")
	if len(got) != 2 || got[0].InstanceID == got[1].InstanceID {
		t.Fatalf("expected two distinct instances, got %v", instanceIDs(got))
	}
}

func TestScenarioA_ParameterizedDropWaitsForSave(t *testing.T) {
	s := newTestSession(t)

	if err := s.Engine.DragStart(PoolSource("pool-2")); err != nil {
		t.Fatalf("drag start: %v", err)
	}
	out, err := s.Engine.DragEnd(AppendTo("key1"))
	if err != nil {
		t.Fatalf("drag end: %v", err)
	}
	if out != OutcomeAwaitingParameters {
		t.Fatalf("expected awaiting-parameters, got %s", out)
	}
	if len(s.Buckets().Get("key1")) != 0 {
		t.Fatalf("key1 changed before save")
	}

	if err := s.Capture.SetField("start", "10"); err != nil {
		t.Fatalf("set start: %v", err)
	}
	if err := s.Capture.SetField("end", "20"); err != nil {
		t.Fatalf("set end: %v", err)
	}
	inst, err := s.Capture.Save()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	got := s.Buckets().Get("key1")
	if len(got) != 1 || got[0].InstanceID != inst.InstanceID {
		t.Fatalf("expected saved instance in key1, got %#v", got)
	}
	if want := map[string]string{"start": "10", "end": "20"}; !reflect.DeepEqual(got[0].Values, want) {
		t.Fatalf("values: want %v got %v", want, got[0].Values)
	}
	if s.State().Phase != PhaseIdle || s.State().Pending != nil {
		t.Fatalf("expected idle with no pending placement")
	}
}

func TestScenarioB_ReorderViaDrag(t *testing.T) {
	s := newTestSession(t, model.Bucket{Name: "key1", Instances: []model.ItemInstance{plain("A", "pool-1"), plain("B", "pool-3")}})

	out, err := s.Move("B", At("key1", 0))
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if out != OutcomeReordered {
		t.Fatalf("expected reordered, got %s", out)
	}
	if got := instanceIDs(s.Buckets().Get("key1")); !reflect.DeepEqual(got, []string{"B", "A"}) {
		t.Fatalf("expected [B A], got %v", got)
	}
}

func TestScenarioC_MoveAcrossBucketsViaDrag(t *testing.T) {
	s := newTestSession(t,
		model.Bucket{Name: "key1", Instances: []model.ItemInstance{plain("A", "pool-1")}},
		model.Bucket{Name: "key2"},
	)
	out, err := s.Move("A", At("key2", 0))
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if out != OutcomeMoved {
		t.Fatalf("expected moved, got %s", out)
	}
	if len(s.Buckets().Get("key1")) != 0 {
		t.Fatalf("expected key1 empty")
	}
	if got := instanceIDs(s.Buckets().Get("key2")); !reflect.DeepEqual(got, []string{"A"}) {
		t.Fatalf("expected key2 [A], got %v", got)
	}
}

func TestScenarioD_RemoveUnknownInstance(t *testing.T) {
	s := newTestSession(t, model.Bucket{Name: "key1", Instances: []model.ItemInstance{plain("A", "pool-1")}})
	before := s.Snapshot()

	removed, err := s.Engine.Remove("ghost")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed {
		t.Fatalf("expected nothing removed")
	}
	if !reflect.DeepEqual(before, s.Snapshot()) {
		t.Fatalf("snapshot changed")
	}
}

func TestDropOverInstanceUsesItsIndex(t *testing.T) {
	s := newTestSession(t,
		model.Bucket{Name: "key1", Instances: []model.ItemInstance{plain("A", "pool-1"), plain("B", "pool-1")}},
		model.Bucket{Name: "key2", Instances: []model.ItemInstance{plain("C", "pool-3")}},
	)
	if _, err := s.Move("C", Over("B")); err != nil {
		t.Fatalf("move: %v", err)
	}
	if got := instanceIDs(s.Buckets().Get("key1")); !reflect.DeepEqual(got, []string{"A", "C", "B"}) {
		t.Fatalf("expected C before B, got %v", got)
	}
}

func TestDropOnUnknownTargetAbandons(t *testing.T) {
	s := newTestSession(t, model.Bucket{Name: "key1", Instances: []model.ItemInstance{plain("A", "pool-1")}})
	before := s.Snapshot()

	out, err := s.Move("A", AppendTo("nowhere"))
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if out != OutcomeAbandoned {
		t.Fatalf("expected abandoned, got %s", out)
	}
	if !reflect.DeepEqual(before, s.Snapshot()) {
		t.Fatalf("snapshot changed")
	}
	if s.State().Phase != PhaseIdle {
		t.Fatalf("expected idle")
	}
}

func TestDropOnCollapsedBucketIsRejected(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.Apply(CollapseCmd{Bucket: "key2", Collapsed: true}); err != nil {
		t.Fatalf("collapse: %v", err)
	}
	out, err := s.Place("pool-1", AppendTo("key2"), nil)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if out != OutcomeAbandoned {
		t.Fatalf("expected abandoned, got %s", out)
	}
	if s.Snapshot().Total() != 0 {
		t.Fatalf("expected no placement into collapsed bucket")
	}
}

func TestAbandonLeavesStoreUntouched(t *testing.T) {
	s := newTestSession(t, model.Bucket{Name: "key1", Instances: []model.ItemInstance{plain("A", "pool-1")}})
	before := s.Snapshot()

	if _, err := s.Apply(DragStartCmd{Source: InstanceSource("A")}); err != nil {
		t.Fatalf("drag start: %v", err)
	}
	if s.State().Drag == nil || s.State().Drag.OriginBucket != "key1" {
		t.Fatalf("expected origin bucket captured, got %#v", s.State().Drag)
	}
	if _, err := s.Apply(AbandonCmd{}); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if !reflect.DeepEqual(before, s.Snapshot()) {
		t.Fatalf("snapshot changed")
	}
	if _, err := s.Engine.DragEnd(AppendTo("key1")); !errors.Is(err, ErrNotDragging) {
		t.Fatalf("expected ErrNotDragging after abandon, got %v", err)
	}
}

func TestDragStartUnknownSource(t *testing.T) {
	s := newTestSession(t)
	if err := s.Engine.DragStart(PoolSource("pool-99")); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}
	if err := s.Engine.DragStart(InstanceSource("ghost")); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}
	if s.State().Phase != PhaseIdle {
		t.Fatalf("expected idle")
	}
}

func TestInstanceRemovedMidDragIsAbandoned(t *testing.T) {
	s := newTestSession(t, model.Bucket{Name: "key1", Instances: []model.ItemInstance{plain("A", "pool-1")}}, model.Bucket{Name: "key2"})
	if err := s.Engine.DragStart(InstanceSource("A")); err != nil {
		t.Fatalf("drag start: %v", err)
	}
	if _, err := s.Engine.Remove("A"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	out, err := s.Engine.DragEnd(AppendTo("key2"))
	if err != nil {
		t.Fatalf("drag end: %v", err)
	}
	if out != OutcomeAbandoned || s.Snapshot().Total() != 0 {
		t.Fatalf("expected abandoned stale drag, got %s with %d instances", out, s.Snapshot().Total())
	}
}

func TestGesturesBlockedWhileAwaitingParameters(t *testing.T) {
	s := newTestSession(t, model.Bucket{Name: "key1", Instances: []model.ItemInstance{plain("A", "pool-1")}})
	if _, err := s.Apply(DragStartCmd{Source: PoolSource("pool-2")}); err != nil {
		t.Fatalf("drag start: %v", err)
	}
	if out, _ := s.Apply(DragEndCmd{Target: AppendTo("key1")}); out != OutcomeAwaitingParameters {
		t.Fatalf("expected awaiting-parameters, got %s", out)
	}

	if err := s.Engine.DragStart(InstanceSource("A")); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for drag start, got %v", err)
	}
	if _, err := s.Engine.Remove("A"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for remove, got %v", err)
	}
	if err := s.Engine.BeginEdit("A"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for edit, got %v", err)
	}
}

func TestCountConservedAcrossMoves(t *testing.T) {
	s := newTestSession(t,
		model.Bucket{Name: "key1", Instances: []model.ItemInstance{plain("a", "pool-1"), plain("b", "pool-1"), plain("c", "pool-3")}},
		model.Bucket{Name: "key2", Instances: []model.ItemInstance{plain("d", "pool-1")}},
		model.Bucket{Name: "key3"},
	)
	moves := []struct {
		id     string
		target DropTarget
	}{
		{"a", At("key3", 0)},
		{"d", Over("b")},
		{"b", AppendTo("key2")},
		{"c", At("key1", 0)},
		{"a", Over("c")},
	}
	for _, m := range moves {
		if _, err := s.Move(m.id, m.target); err != nil {
			t.Fatalf("move %s: %v", m.id, err)
		}
		snap := s.Snapshot()
		assertSingleOwnership(t, snap)
		if snap.Total() != 4 {
			t.Fatalf("after moving %s expected 4 instances, got %d", m.id, snap.Total())
		}
	}
}
