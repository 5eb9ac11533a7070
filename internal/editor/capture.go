package editor

import (
	"fmt"
	"strings"

	"ruleboard/internal/model"

	"go.uber.org/zap"
)

// Capture is the parameter dialog sub-state. Drafts never reach the bucket store until
// Save succeeds; Cancel leaves the store untouched.
type Capture struct {
	st  *AssignmentState
	ids IDGenerator
	log *zap.Logger
}

func NewCapture(st *AssignmentState, ids IDGenerator, log *zap.Logger) *Capture {
	if log == nil {
		log = zap.NewNop()
	}
	return &Capture{st: st, ids: ids, log: log}
}

// Open stages p and moves the editor into AwaitingParameters. Draft values are limited to
// the placement's input fields; missing ones start empty.
func (c *Capture) Open(p model.PendingPlacement) error {
	if c.st.Phase == PhaseAwaitingParameters {
		return ErrBusy
	}
	draft := make(map[string]string, len(p.InputFields))
	for _, f := range p.InputFields {
		draft[f] = p.DraftValues[f]
	}
	p.InputFields = append([]string(nil), p.InputFields...)
	p.DraftValues = draft
	c.st.Pending = &p
	c.st.Drag = nil
	c.st.Phase = PhaseAwaitingParameters
	return nil
}

// Draft returns a copy of the pending placement.
func (c *Capture) Draft() (model.PendingPlacement, bool) {
	if c.st.Pending == nil {
		return model.PendingPlacement{}, false
	}
	p := *c.st.Pending
	p.InputFields = append([]string(nil), p.InputFields...)
	p.DraftValues = model.CopyValues(p.DraftValues)
	return p, true
}

func (c *Capture) SetField(field, value string) error {
	p := c.st.Pending
	if p == nil {
		return ErrNoPendingPlacement
	}
	for _, f := range p.InputFields {
		if f == field {
			p.DraftValues[field] = value
			return nil
		}
	}
	return fmt.Errorf("%q: %w", field, ErrUnknownField)
}

// Missing lists input fields whose draft value is blank, in field order.
func (c *Capture) Missing() []string {
	p := c.st.Pending
	if p == nil {
		return nil
	}
	var out []string
	for _, f := range p.InputFields {
		if strings.TrimSpace(p.DraftValues[f]) == "" {
			out = append(out, f)
		}
	}
	return out
}

// Save commits the draft. A new placement gets a fresh id and is inserted at the staged
// position; an edit updates the existing instance's values in place. On
// IncompleteParametersError the flow stays open.
func (c *Capture) Save() (model.ItemInstance, error) {
	p := c.st.Pending
	if p == nil {
		return model.ItemInstance{}, ErrNoPendingPlacement
	}
	if missing := c.Missing(); len(missing) > 0 {
		return model.ItemInstance{}, &IncompleteParametersError{Missing: missing}
	}
	values := model.CopyValues(p.DraftValues)

	if p.IsEdit() {
		id := p.InstanceID
		c.st.idle()
		if !c.st.Buckets.UpdateValues(id, values) {
			c.log.Debug("edit target gone", zap.String("instance", id))
			return model.ItemInstance{}, nil
		}
		bucket, i, _ := c.st.Buckets.Locate(id)
		c.log.Debug("parameters updated", zap.String("instance", id), zap.String("bucket", bucket))
		return c.st.Buckets.Get(bucket)[i], nil
	}

	tpl, ok := c.st.Catalog.Find(p.SourceTemplateID)
	if !ok {
		return model.ItemInstance{}, fmt.Errorf("template %q: %w", p.SourceTemplateID, ErrUnknownSource)
	}
	id, err := freshID(c.ids, c.st.Buckets)
	if err != nil {
		return model.ItemInstance{}, err
	}
	inst := model.NewInstance(id, tpl, values)
	if err := c.st.Buckets.Insert(p.TargetBucket, inst, p.TargetIndex); err != nil {
		return model.ItemInstance{}, err
	}
	c.st.idle()
	c.log.Debug("parameterized instance placed", zap.String("template", tpl.ID), zap.String("instance", id), zap.String("bucket", p.TargetBucket))
	return inst, nil
}

// Cancel discards the pending placement. Returns false when nothing was pending.
func (c *Capture) Cancel() bool {
	if c.st.Pending == nil {
		return false
	}
	c.log.Debug("parameters cancelled", zap.String("template", c.st.Pending.SourceTemplateID))
	c.st.idle()
	return true
}
