package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"ruleboard/internal/editor"
	"ruleboard/internal/model"

	"github.com/starfederation/datastar-go/datastar"
	"go.uber.org/zap"
)

type dragSignals struct {
	// Source is "pool:<templateId>" or "instance:<instanceId>".
	Source string `json:"source"`
	Bucket string `json:"bucket"`
	Over   string `json:"over"`
	Index  *int   `json:"index"`
}

func parseSource(raw string) (editor.DragSource, error) {
	kind, id, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || strings.TrimSpace(id) == "" {
		return editor.DragSource{}, fmt.Errorf("invalid drag source %q (expected pool:<id> or instance:<id>)", raw)
	}
	switch kind {
	case "pool":
		return editor.PoolSource(id), nil
	case "instance":
		return editor.InstanceSource(id), nil
	default:
		return editor.DragSource{}, fmt.Errorf("invalid drag source kind %q", kind)
	}
}

func (d dragSignals) target() editor.DropTarget {
	t := editor.DropTarget{Bucket: strings.TrimSpace(d.Bucket), OverInstanceID: strings.TrimSpace(d.Over), Index: -1}
	if d.Index != nil && *d.Index >= 0 {
		t.Index = *d.Index
	}
	return t
}

// respond patches the flash signals for the caller. Board changes reach every tab through
// /events, so mutations never return HTML themselves.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, extra map[string]any) {
	s.mu.Lock()
	sig := map[string]any{"flash": s.flash, "flashError": s.flashErr}
	s.mu.Unlock()
	for k, v := range extra {
		sig[k] = v
	}
	sse := datastar.NewSSE(w, r)
	_ = sse.MarshalAndPatchSignals(sig)
}

func (s *Server) setFlashLocked(msg string, isErr bool) {
	s.flash = msg
	s.flashErr = isErr
}

// persistLocked writes the assignment and one event when the listener saw a change.
func (s *Server) persistLocked(ctx context.Context, typ, entityID string, payload any) {
	if s.changes == s.saved {
		return
	}
	if err := s.st.SaveAssignment(ctx, s.sess.Assignment()); err != nil {
		s.log.Warn("save failed", zap.Error(err))
		s.setFlashLocked("save failed: "+err.Error(), true)
		return
	}
	if err := s.st.AppendEvent(typ, entityID, payload); err != nil {
		s.log.Warn("event append failed", zap.Error(err))
	}
	s.saved = s.changes
}

func (s *Server) handleDragStart(w http.ResponseWriter, r *http.Request) {
	var sig dragSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	src, err := parseSource(sig.Source)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if s.sess.State().Phase == editor.PhaseDragging {
		// A previous gesture never reported its end.
		s.sess.Engine.Abandon()
	}
	if _, err := s.sess.Apply(editor.DragStartCmd{Source: src}); err != nil {
		s.setFlashLocked(err.Error(), true)
	} else {
		s.setFlashLocked("", false)
	}
	s.mu.Unlock()

	s.hub.broadcast()
	s.respond(w, r, map[string]any{"phase": s.phase()})
}

func (s *Server) handleDragEnd(w http.ResponseWriter, r *http.Request) {
	var sig dragSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	target := sig.target()

	s.mu.Lock()
	before := s.sess.Snapshot()
	drag := s.sess.State().Drag
	out, err := s.sess.Apply(editor.DragEndCmd{Target: target})
	switch {
	case err != nil:
		s.setFlashLocked(err.Error(), true)
	case out == editor.OutcomeAbandoned:
		s.setFlashLocked("drop rejected: unknown or folded bucket", true)
	case out == editor.OutcomeAwaitingParameters:
		s.setFlashLocked("", false)
	default:
		s.setFlashLocked("", false)
		entityID := createdID(before, s.sess.Snapshot())
		if drag != nil && drag.Source.InstanceID != "" {
			entityID = drag.Source.InstanceID
		}
		typ := "instance." + out.String()
		if out == editor.OutcomeInserted {
			typ = "instance.place"
		}
		payload := map[string]any{"outcome": out.String(), "bucket": target.Bucket, "over": target.OverInstanceID}
		s.persistLocked(r.Context(), typ, entityID, payload)
	}
	s.mu.Unlock()

	s.hub.broadcast()
	s.respond(w, r, map[string]any{"outcome": out.String(), "phase": s.phase()})
}

// createdID returns the id present in after but not in before.
func createdID(before, after editor.Snapshot) string {
	for _, name := range after.Order {
		for _, it := range after.Buckets[name] {
			if _, _, ok := before.Locate(it.InstanceID); !ok {
				return it.InstanceID
			}
		}
	}
	return ""
}

func (s *Server) handleDragAbandon(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.sess.State().Phase == editor.PhaseDragging {
		_, _ = s.sess.Apply(editor.AbandonCmd{})
	}
	s.mu.Unlock()
	s.hub.broadcast()
	s.respond(w, r, map[string]any{"phase": s.phase()})
}

type paramsSignals struct {
	Field string            `json:"field"`
	Value string            `json:"value"`
	Draft map[string]string `json:"draft"`
}

// readParams accepts either a form (inputs named "f.<field>") or datastar signals
// {field, value} / {draft: {...}}.
func readParams(r *http.Request) (map[string]string, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data" {
		if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, err
		}
		out := map[string]string{}
		for k, vs := range r.Form {
			if name, ok := strings.CutPrefix(k, "f."); ok && len(vs) > 0 {
				out[name] = vs[0]
			}
		}
		return out, nil
	}
	var sig paramsSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		return nil, err
	}
	out := map[string]string{}
	for k, v := range sig.Draft {
		out[k] = v
	}
	if f := strings.TrimSpace(sig.Field); f != "" {
		out[f] = sig.Value
	}
	return out, nil
}

func (s *Server) setFieldsLocked(values map[string]string) error {
	for k, v := range values {
		if _, err := s.sess.Apply(editor.SetFieldCmd{Field: k, Value: v}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleParamsField(w http.ResponseWriter, r *http.Request) {
	values, err := readParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	if err := s.setFieldsLocked(values); err != nil {
		s.setFlashLocked(err.Error(), true)
	}
	s.mu.Unlock()
	s.respond(w, r, nil)
}

func (s *Server) handleParamsSave(w http.ResponseWriter, r *http.Request) {
	values, err := readParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	draft, _ := s.sess.Capture.Draft()
	if err := s.setFieldsLocked(values); err != nil {
		s.setFlashLocked(err.Error(), true)
	} else if inst, err := s.sess.Capture.Save(); err != nil {
		s.setFlashLocked(err.Error(), true)
	} else {
		typ := "instance.place"
		if draft.IsEdit() {
			typ = "instance.edit"
		}
		s.setFlashLocked("saved "+draft.Label, false)
		s.persistLocked(r.Context(), typ, inst.InstanceID, map[string]any{"bucket": draft.TargetBucket, "values": inst.Values})
	}
	s.mu.Unlock()

	s.hub.broadcast()
	s.respond(w, r, map[string]any{"phase": s.phase()})
}

func (s *Server) handleParamsCancel(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, _ = s.sess.Apply(editor.CancelCmd{})
	s.setFlashLocked("", false)
	s.mu.Unlock()
	s.hub.broadcast()
	s.respond(w, r, map[string]any{"phase": s.phase()})
}

func (s *Server) handleInstanceRemove(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	s.mu.Lock()
	bucket, _, _ := s.sess.Buckets().Locate(id)
	removed, err := s.sess.Engine.Remove(id)
	switch {
	case err != nil:
		s.setFlashLocked(err.Error(), true)
	case removed:
		s.setFlashLocked("", false)
		s.persistLocked(r.Context(), "instance.remove", id, map[string]any{"bucket": bucket})
	}
	s.mu.Unlock()
	s.hub.broadcast()
	s.respond(w, r, map[string]any{"removed": removed})
}

func (s *Server) handleInstanceEdit(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	s.mu.Lock()
	if _, err := s.sess.Apply(editor.EditCmd{InstanceID: id}); err != nil {
		s.setFlashLocked(err.Error(), true)
	} else {
		s.setFlashLocked("", false)
	}
	s.mu.Unlock()
	s.hub.broadcast()
	s.respond(w, r, map[string]any{"phase": s.phase()})
}

type collapseSignals struct {
	Collapsed *bool `json:"collapsed"`
}

// handleBucketCollapse toggles the bucket unless the body says {"collapsed": bool}. The
// folded set is shared with the TUI through the workspace's tui_state.json.
func (s *Server) handleBucketCollapse(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	var sig collapseSignals
	_ = datastar.ReadSignals(r, &sig)

	s.mu.Lock()
	if !s.sess.Buckets().HasBucket(name) {
		s.mu.Unlock()
		http.NotFound(w, r)
		return
	}
	collapsed := !s.sess.State().IsCollapsed(name)
	if sig.Collapsed != nil {
		collapsed = *sig.Collapsed
	}
	_, _ = s.sess.Apply(editor.CollapseCmd{Bucket: name, Collapsed: collapsed})
	var folded []string
	for _, b := range s.sess.Buckets().Names() {
		if s.sess.State().IsCollapsed(b) {
			folded = append(folded, b)
		}
	}
	s.mu.Unlock()

	if ui, err := s.st.LoadTUIState(); err == nil {
		ui.Collapsed = folded
		if err := s.st.SaveTUIState(ui); err != nil {
			s.log.Debug("tui state not saved", zap.Error(err))
		}
	}
	s.hub.broadcast()
	s.respond(w, r, map[string]any{"collapsed": collapsed})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	doc := s.sess.Preview()
	s.mu.Unlock()

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(append(b, '\n'))
}

type previewVM struct {
	Workspace string
	Body      any
}

func (s *Server) handlePreviewHTML(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	doc := s.sess.Preview()
	s.mu.Unlock()
	s.writeHTMLTemplate(w, "preview", previewVM{Workspace: s.cfg.Workspace, Body: previewHTML(doc)})
}

// handleSubmit projects under the lock and sends outside it, so a slow backend never
// blocks the board.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	doc := s.sess.Preview()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var (
		res       model.SubmitResult
		err       error
		recordErr error
	)
	if s.cfg.Submitter != nil {
		res, err = s.cfg.Submitter.SubmitAssignment(ctx, doc)
		if err == nil {
			// The backend has accepted doc at this point; a failed local copy does not undo that.
			var recorded model.SubmitResult
			if recorded, recordErr = s.st.RecordSubmission(ctx, doc, res); recordErr == nil {
				res = recorded
			}
		}
	} else {
		res, err = s.st.SubmitAssignment(ctx, doc)
	}

	s.mu.Lock()
	switch {
	case err != nil:
		s.log.Warn("submit failed", zap.Error(err))
		s.setFlashLocked("submit failed: "+err.Error(), true)
	case recordErr != nil:
		s.log.Warn("submission accepted but not recorded locally", zap.String("id", res.ID), zap.Error(recordErr))
		s.setFlashLocked(fmt.Sprintf("submitted %s to %s; local record failed: %v", res.ID, submitTarget(res), recordErr), true)
		_ = s.st.AppendEvent("assignment.submit", res.ID, map[string]any{"target": res.Target, "status": res.Status, "recorded": false})
	default:
		s.log.Info("assignment submitted", zap.String("id", res.ID), zap.String("target", res.Target))
		s.setFlashLocked(fmt.Sprintf("submitted %s to %s", res.ID, res.Target), false)
		_ = s.st.AppendEvent("assignment.submit", res.ID, map[string]any{"target": res.Target, "status": res.Status})
	}
	s.mu.Unlock()

	s.hub.broadcast()
	s.respond(w, r, map[string]any{"submissionId": res.ID})
}

func submitTarget(res model.SubmitResult) string {
	if res.Target != "" {
		return res.Target
	}
	return "remote"
}

func (s *Server) phase() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess.State().Phase.String()
}
