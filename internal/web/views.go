package web

import (
	"strings"

	"ruleboard/internal/editor"
	"ruleboard/internal/model"
)

type boardVM struct {
	Workspace string
	Query     string
	Pool      []model.TemplateItem
	Buckets   []bucketVM
	Total     int
	Phase     string
	Dragging  string
	Pending   *pendingVM
	Flash     string
	FlashErr  bool
	LoadErr   string
}

type bucketVM struct {
	Name      string
	Collapsed bool
	Items     []instanceVM
}

type instanceVM struct {
	ID            string
	Label         string
	Summary       string
	RequiresInput bool
}

type pendingVM struct {
	Label  string
	Bucket string
	Edit   bool
	Fields []fieldVM
}

type fieldVM struct {
	Name    string
	Value   string
	Missing bool
}

// boardVMLocked builds the view model; s.mu must be held.
func (s *Server) boardVMLocked(query string) boardVM {
	st := s.sess.State()
	snap := s.sess.Snapshot()
	vm := boardVM{
		Workspace: s.cfg.Workspace,
		Query:     strings.TrimSpace(query),
		Pool:      s.sess.Catalog().Search(query),
		Total:     snap.Total(),
		Phase:     st.Phase.String(),
		Flash:     s.flash,
		FlashErr:  s.flashErr,
	}
	if st.LoadErr != nil {
		vm.LoadErr = st.LoadErr.Error()
	}
	if st.Phase == editor.PhaseDragging && st.Drag != nil {
		vm.Dragging = st.Drag.Source.String()
	}
	for _, name := range snap.Order {
		b := bucketVM{Name: name, Collapsed: st.IsCollapsed(name)}
		for _, it := range snap.Buckets[name] {
			b.Items = append(b.Items, instanceVM{
				ID:            it.InstanceID,
				Label:         it.Label,
				Summary:       it.ValuesSummary(),
				RequiresInput: it.RequiresInput,
			})
		}
		vm.Buckets = append(vm.Buckets, b)
	}
	if draft, ok := s.sess.Capture.Draft(); ok {
		missing := map[string]bool{}
		for _, f := range s.sess.Capture.Missing() {
			missing[f] = true
		}
		p := &pendingVM{Label: draft.Label, Bucket: draft.TargetBucket, Edit: draft.IsEdit()}
		for _, f := range draft.InputFields {
			p.Fields = append(p.Fields, fieldVM{Name: f, Value: draft.DraftValues[f], Missing: missing[f] && s.flashErr})
		}
		vm.Pending = p
	}
	return vm
}
