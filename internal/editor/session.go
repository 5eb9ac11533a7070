package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ruleboard/internal/model"

	"go.uber.org/zap"
)

// Loader is the external collaborator that supplies the session's starting state.
type Loader interface {
	LoadAssignment(ctx context.Context) (model.Assignment, error)
}

// Submitter receives the canonical document on explicit submission.
type Submitter interface {
	SubmitAssignment(ctx context.Context, doc model.Document) (model.SubmitResult, error)
}

type Options struct {
	IDs    IDGenerator
	Logger *zap.Logger
}

// Session composes the editor: one AssignmentState shared by the engine and the capture
// flow, plus the load/submit boundary.
type Session struct {
	st      *AssignmentState
	ids     IDGenerator
	log     *zap.Logger
	Engine  *Engine
	Capture *Capture
}

func NewSession(opts Options) *Session {
	ids := opts.IDs
	if ids == nil {
		ids = NewRandomIDs()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	st := NewAssignmentState(nil, nil)
	capture := NewCapture(st, ids, log)
	return &Session{
		st:      st,
		ids:     ids,
		log:     log,
		Capture: capture,
		Engine:  NewEngine(st, ids, capture, log),
	}
}

func (s *Session) State() *AssignmentState { return s.st }

func (s *Session) Catalog() *Catalog { return s.st.Catalog }

func (s *Session) Buckets() *BucketStore { return s.st.Buckets }

func (s *Session) Snapshot() Snapshot { return s.st.Buckets.Snapshot() }

func (s *Session) Subscribe(fn Listener) func() { return s.st.Buckets.Subscribe(fn) }

// Load hydrates from l. On failure the editor is left empty (no buckets, no catalog) with
// LoadErr set; the error is still returned so callers can surface it.
func (s *Session) Load(ctx context.Context, l Loader) error {
	if l == nil {
		return s.fail(errors.New("no loader configured"))
	}
	a, err := l.LoadAssignment(ctx)
	if err != nil {
		return s.fail(err)
	}
	if err := s.Hydrate(a); err != nil {
		return s.fail(err)
	}
	snap := s.Snapshot()
	s.log.Info("assignment loaded",
		zap.Int("templates", s.st.Catalog.Len()),
		zap.Int("buckets", len(snap.Order)),
		zap.Int("instances", snap.Total()))
	return nil
}

func (s *Session) fail(err error) error {
	empty, _ := NewCatalog(nil)
	s.st.Catalog = empty
	_ = s.st.Buckets.Hydrate(nil)
	s.st.idle()
	s.st.Collapsed = map[string]bool{}
	s.st.LoadErr = fmt.Errorf("%w: %v", ErrLoadFailed, err)
	s.log.Warn("assignment load failed", zap.Error(err))
	return s.st.LoadErr
}

// Hydrate replaces the whole editor state with a. Instances are normalized against the
// catalog (label, requiresInput and inputFields come from their template); instances
// without an id get a fresh one.
func (s *Session) Hydrate(a model.Assignment) error {
	catalog, err := NewCatalog(a.Catalog)
	if err != nil {
		return err
	}
	if r, ok := s.ids.(Reserver); ok {
		for _, b := range a.Buckets {
			for _, it := range b.Instances {
				if id := strings.TrimSpace(it.InstanceID); id != "" {
					r.Reserve(id)
				}
			}
		}
	}

	taken := map[string]bool{}
	buckets := make([]model.Bucket, 0, len(a.Buckets))
	for _, b := range a.Buckets {
		nb := model.Bucket{Name: strings.TrimSpace(b.Name)}
		for _, it := range b.Instances {
			tpl, ok := catalog.Find(it.TemplateID)
			if !ok {
				return fmt.Errorf("bucket %q: instance %q references unknown template %q", nb.Name, it.InstanceID, it.TemplateID)
			}
			id := strings.TrimSpace(it.InstanceID)
			if id == "" {
				for id == "" || taken[id] {
					id = s.ids.Next()
				}
			}
			taken[id] = true
			inst := model.NewInstance(id, tpl, nil)
			if tpl.RequiresInput {
				inst.Values = make(map[string]string, len(tpl.InputFields))
				for k, v := range it.Values {
					inst.Values[strings.TrimSpace(k)] = v
				}
				for _, f := range tpl.InputFields {
					if _, ok := inst.Values[f]; !ok {
						inst.Values[f] = ""
					}
				}
			}
			nb.Instances = append(nb.Instances, inst)
		}
		buckets = append(buckets, nb)
	}

	s.st.idle()
	s.st.Catalog = catalog
	s.st.Collapsed = map[string]bool{}
	s.st.LoadErr = nil
	return s.st.Buckets.Hydrate(buckets)
}

// Assignment exports the current catalog and bucket contents (for persisting a draft).
func (s *Session) Assignment() model.Assignment {
	snap := s.Snapshot()
	a := model.Assignment{Catalog: s.st.Catalog.List(), Buckets: make([]model.Bucket, 0, len(snap.Order))}
	for _, name := range snap.Order {
		a.Buckets = append(a.Buckets, model.Bucket{Name: name, Instances: snap.Buckets[name]})
	}
	return a
}

func (s *Session) Preview() model.Document {
	return Project(s.st.Buckets.Snapshot())
}

// Submit projects the current state and hands it to sub. The bucket store is never
// changed by a submission, whatever the result.
func (s *Session) Submit(ctx context.Context, sub Submitter) (model.SubmitResult, error) {
	if sub == nil {
		return model.SubmitResult{}, ErrNoSubmitter
	}
	doc := s.Preview()
	res, err := sub.SubmitAssignment(ctx, doc)
	if err != nil {
		s.log.Warn("submit failed", zap.Error(err))
		return res, err
	}
	s.log.Info("assignment submitted", zap.String("id", res.ID), zap.String("target", res.Target))
	return res, nil
}

// Command is a discrete editor message. Apply consumes one at a time.
type Command interface{ command() }

type DragStartCmd struct{ Source DragSource }
type DragEndCmd struct{ Target DropTarget }
type AbandonCmd struct{}
type RemoveCmd struct{ InstanceID string }
type EditCmd struct{ InstanceID string }
type SetFieldCmd struct{ Field, Value string }
type SaveCmd struct{}
type CancelCmd struct{}
type CollapseCmd struct {
	Bucket    string
	Collapsed bool
}

func (DragStartCmd) command() {}
func (DragEndCmd) command()   {}
func (AbandonCmd) command()   {}
func (RemoveCmd) command()    {}
func (EditCmd) command()      {}
func (SetFieldCmd) command()  {}
func (SaveCmd) command()      {}
func (CancelCmd) command()    {}
func (CollapseCmd) command()  {}

func (s *Session) Apply(cmd Command) (Outcome, error) {
	switch c := cmd.(type) {
	case DragStartCmd:
		return OutcomeNone, s.Engine.DragStart(c.Source)
	case DragEndCmd:
		return s.Engine.DragEnd(c.Target)
	case AbandonCmd:
		s.Engine.Abandon()
		return OutcomeAbandoned, nil
	case RemoveCmd:
		_, err := s.Engine.Remove(c.InstanceID)
		return OutcomeNone, err
	case EditCmd:
		if err := s.Engine.BeginEdit(c.InstanceID); err != nil {
			return OutcomeNone, err
		}
		return OutcomeAwaitingParameters, nil
	case SetFieldCmd:
		return OutcomeNone, s.Capture.SetField(c.Field, c.Value)
	case SaveCmd:
		p, ok := s.Capture.Draft()
		if _, err := s.Capture.Save(); err != nil {
			return OutcomeNone, err
		}
		if ok && !p.IsEdit() {
			return OutcomeInserted, nil
		}
		return OutcomeNone, nil
	case CancelCmd:
		s.Capture.Cancel()
		return OutcomeNone, nil
	case CollapseCmd:
		s.st.SetCollapsed(c.Bucket, c.Collapsed)
		return OutcomeNone, nil
	default:
		return OutcomeNone, fmt.Errorf("unknown command %T", cmd)
	}
}

// Place drags templateID from the pool onto target and, for parameterized templates,
// saves values through the capture flow. If values are incomplete the placement is
// cancelled and the IncompleteParametersError returned.
func (s *Session) Place(templateID string, target DropTarget, values map[string]string) (Outcome, error) {
	if err := s.Engine.DragStart(PoolSource(templateID)); err != nil {
		return OutcomeNone, err
	}
	out, err := s.Engine.DragEnd(target)
	if err != nil || out != OutcomeAwaitingParameters {
		return out, err
	}
	if err := s.fill(values); err != nil {
		return OutcomeNone, err
	}
	return OutcomeInserted, nil
}

// Move drags an existing instance onto target (reorder or cross-bucket move).
func (s *Session) Move(instanceID string, target DropTarget) (Outcome, error) {
	if err := s.Engine.DragStart(InstanceSource(instanceID)); err != nil {
		return OutcomeNone, err
	}
	return s.Engine.DragEnd(target)
}

// Edit replaces the parameters of a placed instance. Fields not given keep their value.
func (s *Session) Edit(instanceID string, values map[string]string) error {
	if err := s.Engine.BeginEdit(instanceID); err != nil {
		return err
	}
	return s.fill(values)
}

func (s *Session) fill(values map[string]string) error {
	for k, v := range values {
		if err := s.Capture.SetField(k, v); err != nil {
			s.Capture.Cancel()
			return err
		}
	}
	if _, err := s.Capture.Save(); err != nil {
		s.Capture.Cancel()
		return err
	}
	return nil
}
