package editor

import (
	"errors"
	"reflect"
	"testing"

	"ruleboard/internal/model"
)

func openRange(t *testing.T, s *Session, target DropTarget) {
	t.Helper()
	if err := s.Engine.DragStart(PoolSource("pool-2")); err != nil {
		t.Fatalf("drag start: %v", err)
	}
	if out, err := s.Engine.DragEnd(target); err != nil || out != OutcomeAwaitingParameters {
		t.Fatalf("drag end: %s %v", out, err)
	}
}

func TestSaveWithMissingFieldKeepsFlowOpen(t *testing.T) {
	s := newTestSession(t)
	openRange(t, s, AppendTo("key1"))

	_ = s.Capture.SetField("start", "10")
	_ = s.Capture.SetField("end", "   ")
	_, err := s.Capture.Save()

	var incomplete *IncompleteParametersError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteParametersError, got %v", err)
	}
	if !reflect.DeepEqual(incomplete.Missing, []string{"end"}) {
		t.Fatalf("expected end missing, got %v", incomplete.Missing)
	}
	if s.State().Phase != PhaseAwaitingParameters {
		t.Fatalf("expected flow to stay open, got %s", s.State().Phase)
	}
	if s.Snapshot().Total() != 0 {
		t.Fatalf("store changed on failed save")
	}
	draft, ok := s.Capture.Draft()
	if !ok || draft.DraftValues["start"] != "10" {
		t.Fatalf("expected draft retained, got %#v", draft)
	}
}

func TestCancelIsANoOpOnTheStore(t *testing.T) {
	s := newTestSession(t, model.Bucket{Name: "key1", Instances: []model.ItemInstance{plain("A", "pool-1")}})
	before := s.Snapshot()
	calls := 0
	s.Subscribe(func(Snapshot) { calls++ })

	openRange(t, s, At("key1", 0))
	_ = s.Capture.SetField("start", "1")
	_ = s.Capture.SetField("end", "2")
	if !s.Capture.Cancel() {
		t.Fatalf("expected cancel to report a pending placement")
	}

	if !reflect.DeepEqual(before, s.Snapshot()) {
		t.Fatalf("snapshot changed")
	}
	if calls != 0 {
		t.Fatalf("expected no notifications, got %d", calls)
	}
	if s.State().Phase != PhaseIdle || s.State().Pending != nil {
		t.Fatalf("expected idle with no pending placement")
	}
	if s.Capture.Cancel() {
		t.Fatalf("second cancel should report nothing pending")
	}
}

func TestSaveInsertsAtStagedIndex(t *testing.T) {
	s := newTestSession(t, model.Bucket{Name: "key1", Instances: []model.ItemInstance{plain("A", "pool-1"), plain("B", "pool-1")}})
	openRange(t, s, Over("B"))
	_ = s.Capture.SetField("start", "1")
	_ = s.Capture.SetField("end", "2")
	inst, err := s.Capture.Save()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := instanceIDs(s.Buckets().Get("key1")); !reflect.DeepEqual(got, []string{"A", inst.InstanceID, "B"}) {
		t.Fatalf("expected new instance between A and B, got %v", got)
	}
}

func TestSetFieldErrors(t *testing.T) {
	s := newTestSession(t)
	if err := s.Capture.SetField("start", "1"); !errors.Is(err, ErrNoPendingPlacement) {
		t.Fatalf("expected ErrNoPendingPlacement, got %v", err)
	}
	openRange(t, s, AppendTo("key1"))
	if err := s.Capture.SetField("colour", "red"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestEditUpdatesValuesInPlace(t *testing.T) {
	s := newTestSession(t, model.Bucket{Name: "key1", Instances: []model.ItemInstance{
		plain("A", "pool-1"),
		{InstanceID: "R", TemplateID: "pool-2", Values: map[string]string{"start": "1", "end": "2"}},
	}})
	before := s.Snapshot()

	if _, err := s.Apply(EditCmd{InstanceID: "R"}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	draft, _ := s.Capture.Draft()
	if draft.DraftValues["start"] != "1" || draft.DraftValues["end"] != "2" {
		t.Fatalf("expected draft seeded with current values, got %v", draft.DraftValues)
	}
	if _, err := s.Apply(SetFieldCmd{Field: "end", Value: "9"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if out, err := s.Apply(SaveCmd{}); err != nil || out != OutcomeNone {
		t.Fatalf("save: %s %v", out, err)
	}

	got := s.Buckets().Get("key1")
	if !reflect.DeepEqual(instanceIDs(got), instanceIDs(before.Get("key1"))) {
		t.Fatalf("edit changed order: %v", instanceIDs(got))
	}
	if got[1].Values["end"] != "9" || got[1].Values["start"] != "1" {
		t.Fatalf("unexpected values: %v", got[1].Values)
	}
}

func TestEditPlainInstanceRejected(t *testing.T) {
	s := newTestSession(t, model.Bucket{Name: "key1", Instances: []model.ItemInstance{plain("A", "pool-1")}})
	if err := s.Engine.BeginEdit("A"); !errors.Is(err, ErrNotParameterized) {
		t.Fatalf("expected ErrNotParameterized, got %v", err)
	}
	if err := s.Engine.BeginEdit("ghost"); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}
}

func TestPlaceWithIncompleteValuesCancels(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Place("pool-2", AppendTo("key1"), map[string]string{"start": "10"})
	var incomplete *IncompleteParametersError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteParametersError, got %v", err)
	}
	if s.State().Phase != PhaseIdle || s.Snapshot().Total() != 0 {
		t.Fatalf("expected idle and empty store after failed place")
	}
}
