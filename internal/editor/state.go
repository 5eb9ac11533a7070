package editor

import (
	"strings"

	"ruleboard/internal/model"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDragging
	PhaseAwaitingParameters
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDragging:
		return "dragging"
	case PhaseAwaitingParameters:
		return "awaiting-parameters"
	default:
		return "unknown"
	}
}

// DragSource identifies the dragged entity: a pool template or a placed instance.
// Exactly one of the fields is set.
type DragSource struct {
	TemplateID string `json:"templateId,omitempty"`
	InstanceID string `json:"instanceId,omitempty"`
}

func PoolSource(templateID string) DragSource {
	return DragSource{TemplateID: strings.TrimSpace(templateID)}
}

func InstanceSource(instanceID string) DragSource {
	return DragSource{InstanceID: strings.TrimSpace(instanceID)}
}

func (s DragSource) FromPool() bool { return s.TemplateID != "" && s.InstanceID == "" }

func (s DragSource) String() string {
	if s.FromPool() {
		return "pool:" + s.TemplateID
	}
	return "instance:" + s.InstanceID
}

// DropTarget is where a gesture was released. Bucket wins when it names a known bucket;
// otherwise the bucket holding OverInstanceID is used. The index is taken from
// OverInstanceID, then Index (>= 0); when neither resolves the item is appended.
type DropTarget struct {
	Bucket         string `json:"bucket,omitempty"`
	OverInstanceID string `json:"over,omitempty"`
	Index          int    `json:"index"`
}

// AppendTo targets the end of bucket (dropped on the container, not a row).
func AppendTo(bucket string) DropTarget { return DropTarget{Bucket: bucket, Index: -1} }

func At(bucket string, index int) DropTarget { return DropTarget{Bucket: bucket, Index: index} }

func Over(instanceID string) DropTarget { return DropTarget{OverInstanceID: instanceID, Index: -1} }

// DragState is captured at drag start. OriginBucket is empty for pool templates.
type DragState struct {
	Source       DragSource
	OriginBucket string
}

// AssignmentState is all editor state. The engine, the capture flow and the session share
// one instance by pointer; nothing else holds editor state.
type AssignmentState struct {
	Catalog   *Catalog
	Buckets   *BucketStore
	Phase     Phase
	Drag      *DragState
	Pending   *model.PendingPlacement
	Collapsed map[string]bool
	LoadErr   error
}

func NewAssignmentState(catalog *Catalog, buckets *BucketStore) *AssignmentState {
	if catalog == nil {
		catalog, _ = NewCatalog(nil)
	}
	if buckets == nil {
		buckets = NewBucketStore(nil)
	}
	return &AssignmentState{
		Catalog:   catalog,
		Buckets:   buckets,
		Phase:     PhaseIdle,
		Collapsed: map[string]bool{},
	}
}

func (st *AssignmentState) idle() {
	st.Phase = PhaseIdle
	st.Drag = nil
	st.Pending = nil
}

// SetCollapsed hides or shows a bucket in the shell. Collapsed buckets reject drops.
func (st *AssignmentState) SetCollapsed(bucket string, collapsed bool) {
	if !st.Buckets.HasBucket(bucket) {
		return
	}
	if collapsed {
		st.Collapsed[bucket] = true
		return
	}
	delete(st.Collapsed, bucket)
}

func (st *AssignmentState) IsCollapsed(bucket string) bool {
	return st.Collapsed[bucket]
}
