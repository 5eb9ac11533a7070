package model

import (
	"strings"
	"time"
)

// TemplateItem is a catalog-defined task descriptor. Templates are never placed into a
// bucket directly; every placement derives a fresh ItemInstance.
type TemplateItem struct {
	ID            string   `json:"id" yaml:"id"`
	Label         string   `json:"label" yaml:"label"`
	RequiresInput bool     `json:"requiresInput" yaml:"requiresInput"`
	InputFields   []string `json:"inputFields,omitempty" yaml:"inputFields,omitempty"`
}

// Parameterized reports whether placing the template must go through parameter capture.
func (t TemplateItem) Parameterized() bool { return t.RequiresInput }

type ItemInstance struct {
	InstanceID    string            `json:"instanceId" yaml:"instanceId"`
	TemplateID    string            `json:"templateId" yaml:"templateId"`
	Label         string            `json:"label" yaml:"label,omitempty"`
	RequiresInput bool              `json:"requiresInput" yaml:"requiresInput,omitempty"`
	InputFields   []string          `json:"inputFields,omitempty" yaml:"inputFields,omitempty"`
	Values        map[string]string `json:"values,omitempty" yaml:"values,omitempty"`
}

// NewInstance derives an instance from a template. values may be nil for plain templates.
func NewInstance(id string, t TemplateItem, values map[string]string) ItemInstance {
	inst := ItemInstance{
		InstanceID:    id,
		TemplateID:    t.ID,
		Label:         t.Label,
		RequiresInput: t.RequiresInput,
		InputFields:   append([]string(nil), t.InputFields...),
	}
	if t.RequiresInput {
		inst.Values = CopyValues(values)
		if inst.Values == nil {
			inst.Values = map[string]string{}
		}
	}
	return inst
}

// Clone returns a deep copy (slices and maps are not shared).
func (it ItemInstance) Clone() ItemInstance {
	out := it
	out.InputFields = append([]string(nil), it.InputFields...)
	out.Values = CopyValues(it.Values)
	return out
}

// ValuesSummary renders the values in input-field order ("10, 20").
func (it ItemInstance) ValuesSummary() string {
	if !it.RequiresInput || len(it.Values) == 0 {
		return ""
	}
	parts := make([]string, 0, len(it.InputFields))
	for _, f := range it.InputFields {
		if v, ok := it.Values[f]; ok && strings.TrimSpace(v) != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

type Bucket struct {
	Name      string         `json:"name" yaml:"name"`
	Instances []ItemInstance `json:"instances" yaml:"instances"`
}

// PendingPlacement is a staged instance awaiting parameter input. It never appears in the
// bucket store. InstanceID is set only when editing an already-placed instance.
type PendingPlacement struct {
	SourceTemplateID string            `json:"sourceTemplateId"`
	TargetBucket     string            `json:"targetBucket"`
	TargetIndex      int               `json:"targetIndex"`
	InstanceID       string            `json:"instanceId,omitempty"`
	Label            string            `json:"label"`
	InputFields      []string          `json:"inputFields"`
	DraftValues      map[string]string `json:"draftValues"`
}

// IsEdit reports whether the placement edits an existing instance rather than creating one.
func (p PendingPlacement) IsEdit() bool { return strings.TrimSpace(p.InstanceID) != "" }

// Assignment is the payload exchanged with the load collaborator: the fixed catalog plus the
// declared buckets (in order) with their current contents.
type Assignment struct {
	Catalog []TemplateItem `json:"catalog" yaml:"catalog"`
	Buckets []Bucket       `json:"buckets" yaml:"buckets"`
}

type SubmitResult struct {
	ID          string    `json:"id"`
	SubmittedAt time.Time `json:"submittedAt"`
	Target      string    `json:"target"`
	Status      int       `json:"status,omitempty"`
	Message     string    `json:"message,omitempty"`
}

type Event struct {
	ID       string    `json:"id"`
	TS       time.Time `json:"ts"`
	Type     string    `json:"type"`
	EntityID string    `json:"entityId"`
	Payload  any       `json:"payload"`
}

// CopyValues copies in; nil stays nil.
func CopyValues(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
