package editor

import (
	"fmt"
	"strings"

	"ruleboard/internal/model"

	"go.uber.org/zap"
)

// Outcome reports which transition a drag-end took before returning to idle (or parking
// in AwaitingParameters).
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeReordered
	OutcomeMoved
	OutcomeInserted
	OutcomeAwaitingParameters
	OutcomeAbandoned
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReordered:
		return "reordered"
	case OutcomeMoved:
		return "moved"
	case OutcomeInserted:
		return "inserted"
	case OutcomeAwaitingParameters:
		return "awaiting-parameters"
	case OutcomeAbandoned:
		return "abandoned"
	default:
		return "none"
	}
}

// Engine interprets drag gestures:
//
//	Idle -> Dragging -> {Reordering | CrossBucketMoving | AwaitingParameters | direct insert} -> Idle
type Engine struct {
	st      *AssignmentState
	ids     IDGenerator
	capture *Capture
	log     *zap.Logger
}

func NewEngine(st *AssignmentState, ids IDGenerator, capture *Capture, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{st: st, ids: ids, capture: capture, log: log}
}

func (e *Engine) Phase() Phase { return e.st.Phase }

// DragStart captures the dragged entity and, for an instance, its origin bucket.
func (e *Engine) DragStart(src DragSource) error {
	if e.st.Phase == PhaseAwaitingParameters {
		return ErrBusy
	}
	drag := &DragState{Source: src}
	switch {
	case src.FromPool():
		if _, ok := e.st.Catalog.Find(src.TemplateID); !ok {
			e.st.idle()
			return fmt.Errorf("template %q: %w", src.TemplateID, ErrUnknownSource)
		}
	case strings.TrimSpace(src.InstanceID) != "":
		bucket, _, ok := e.st.Buckets.Locate(src.InstanceID)
		if !ok {
			e.st.idle()
			return fmt.Errorf("instance %q: %w", src.InstanceID, ErrUnknownSource)
		}
		drag.OriginBucket = bucket
	default:
		e.st.idle()
		return ErrUnknownSource
	}
	e.st.Phase = PhaseDragging
	e.st.Drag = drag
	e.log.Debug("drag start", zap.String("source", src.String()), zap.String("origin", drag.OriginBucket))
	return nil
}

// Abandon ends the gesture without touching the store (released outside any target).
func (e *Engine) Abandon() {
	if e.st.Phase != PhaseDragging {
		return
	}
	e.log.Debug("drag abandoned", zap.String("source", e.st.Drag.Source.String()))
	e.st.idle()
}

// DragEnd resolves the drop target and applies the matching transition.
func (e *Engine) DragEnd(t DropTarget) (Outcome, error) {
	if e.st.Phase == PhaseAwaitingParameters {
		return OutcomeNone, ErrBusy
	}
	if e.st.Phase != PhaseDragging || e.st.Drag == nil {
		return OutcomeNone, ErrNotDragging
	}
	drag := *e.st.Drag

	bucket, ok := e.resolveBucket(t)
	if !ok || e.st.IsCollapsed(bucket) {
		e.log.Debug("drop rejected",
			zap.String("source", drag.Source.String()),
			zap.String("bucket", t.Bucket),
			zap.String("over", t.OverInstanceID),
			zap.Bool("collapsed", ok))
		e.st.idle()
		return OutcomeAbandoned, nil
	}
	index := e.resolveIndex(bucket, t)

	if !drag.Source.FromPool() {
		return e.dropInstance(drag, bucket, index)
	}
	return e.dropTemplate(drag, bucket, index)
}

func (e *Engine) dropInstance(drag DragState, bucket string, index int) (Outcome, error) {
	defer e.st.idle()
	id := drag.Source.InstanceID
	current, _, ok := e.st.Buckets.Locate(id)
	if !ok {
		// Removed mid-gesture: stale reference.
		return OutcomeAbandoned, nil
	}
	if current == bucket {
		if index < 0 {
			index = len(e.st.Buckets.Get(bucket)) - 1
		}
		e.st.Buckets.Reorder(bucket, id, index)
		e.log.Debug("reordered", zap.String("instance", id), zap.String("bucket", bucket), zap.Int("index", index))
		return OutcomeReordered, nil
	}
	e.st.Buckets.MoveAcrossBuckets(current, bucket, id, index)
	e.log.Debug("moved", zap.String("instance", id), zap.String("from", current), zap.String("to", bucket), zap.Int("index", index))
	return OutcomeMoved, nil
}

func (e *Engine) dropTemplate(drag DragState, bucket string, index int) (Outcome, error) {
	tpl, ok := e.st.Catalog.Find(drag.Source.TemplateID)
	if !ok {
		e.st.idle()
		return OutcomeAbandoned, nil
	}
	if tpl.Parameterized() {
		p := model.PendingPlacement{
			SourceTemplateID: tpl.ID,
			TargetBucket:     bucket,
			TargetIndex:      index,
			Label:            tpl.Label,
			InputFields:      tpl.InputFields,
			DraftValues:      map[string]string{},
		}
		e.st.Phase = PhaseIdle
		e.st.Drag = nil
		if err := e.capture.Open(p); err != nil {
			return OutcomeNone, err
		}
		e.log.Debug("awaiting parameters", zap.String("template", tpl.ID), zap.String("bucket", bucket))
		return OutcomeAwaitingParameters, nil
	}

	defer e.st.idle()
	id, err := freshID(e.ids, e.st.Buckets)
	if err != nil {
		return OutcomeNone, err
	}
	if err := e.st.Buckets.Insert(bucket, model.NewInstance(id, tpl, nil), index); err != nil {
		return OutcomeNone, err
	}
	e.log.Debug("inserted", zap.String("template", tpl.ID), zap.String("instance", id), zap.String("bucket", bucket), zap.Int("index", index))
	return OutcomeInserted, nil
}

func (e *Engine) resolveBucket(t DropTarget) (string, bool) {
	if b := strings.TrimSpace(t.Bucket); b != "" && e.st.Buckets.HasBucket(b) {
		return b, true
	}
	if over := strings.TrimSpace(t.OverInstanceID); over != "" {
		if b, _, ok := e.st.Buckets.Locate(over); ok {
			return b, true
		}
	}
	return "", false
}

func (e *Engine) resolveIndex(bucket string, t DropTarget) int {
	if over := strings.TrimSpace(t.OverInstanceID); over != "" {
		if b, i, ok := e.st.Buckets.Locate(over); ok && b == bucket {
			return i
		}
	}
	if t.Index >= 0 {
		return t.Index
	}
	return -1
}

// Remove deletes a placed instance. Unknown ids are a no-op.
func (e *Engine) Remove(instanceID string) (bool, error) {
	if e.st.Phase == PhaseAwaitingParameters {
		return false, ErrBusy
	}
	removed := e.st.Buckets.Remove(strings.TrimSpace(instanceID))
	e.log.Debug("remove", zap.String("instance", instanceID), zap.Bool("removed", removed))
	return removed, nil
}

// BeginEdit opens the capture flow on a placed, parameterized instance, seeded with its
// current values.
func (e *Engine) BeginEdit(instanceID string) error {
	if e.st.Phase != PhaseIdle {
		return ErrBusy
	}
	bucket, index, ok := e.st.Buckets.Locate(strings.TrimSpace(instanceID))
	if !ok {
		return fmt.Errorf("instance %q: %w", instanceID, ErrUnknownSource)
	}
	inst := e.st.Buckets.Get(bucket)[index]
	if !inst.RequiresInput {
		return fmt.Errorf("instance %q: %w", instanceID, ErrNotParameterized)
	}
	return e.capture.Open(model.PendingPlacement{
		SourceTemplateID: inst.TemplateID,
		TargetBucket:     bucket,
		TargetIndex:      index,
		InstanceID:       inst.InstanceID,
		Label:            inst.Label,
		InputFields:      inst.InputFields,
		DraftValues:      inst.Values,
	})
}

// freshID draws ids until one is free in the store. Generators already guarantee
// uniqueness per session; this also covers ids that arrived through hydration.
func freshID(ids IDGenerator, store *BucketStore) (string, error) {
	for i := 0; i < 1024; i++ {
		id := ids.Next()
		if !store.Has(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("id generator exhausted: %w", ErrDuplicateInstance)
}
