package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"ruleboard/internal/model"
)

type DoctorIssueLevel string

const (
	DoctorIssueLevelError DoctorIssueLevel = "error"
	DoctorIssueLevelWarn  DoctorIssueLevel = "warn"
)

type DoctorIssue struct {
	Level   DoctorIssueLevel `json:"level"`
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Path    string           `json:"path,omitempty"`
	Line    int              `json:"line,omitempty"`

	EventID    string `json:"eventId,omitempty"`
	Bucket     string `json:"bucket,omitempty"`
	InstanceID string `json:"instanceId,omitempty"`
	TemplateID string `json:"templateId,omitempty"`
}

type DoctorReport struct {
	Issues []DoctorIssue `json:"issues"`
}

func (r DoctorReport) HasErrors() bool {
	for _, it := range r.Issues {
		if it.Level == DoctorIssueLevelError {
			return true
		}
	}
	return false
}

var ErrDoctorIssuesFound = errors.New("doctor: issues found")

// Doctor checks the workspace state, the event log and the TUI state file. Problems are
// reported as issues; only an unusable dir is returned as an error.
func (s Store) Doctor(ctx context.Context) (DoctorReport, error) {
	if strings.TrimSpace(s.Dir) == "" {
		return DoctorReport{}, errors.New("store dir is empty")
	}
	var issues []DoctorIssue

	a, err := s.LoadAssignment(ctx)
	switch {
	case errors.Is(err, ErrNotInitialized):
		issues = append(issues, DoctorIssue{
			Level:   DoctorIssueLevelError,
			Code:    "not_initialized",
			Message: err.Error(),
			Path:    s.sqlitePath(),
		})
	case err != nil:
		issues = append(issues, DoctorIssue{
			Level:   DoctorIssueLevelError,
			Code:    "state_unreadable",
			Message: err.Error(),
			Path:    s.sqlitePath(),
		})
	default:
		issues = append(issues, checkAssignment(a)...)
		issues = append(issues, s.checkTUIState(a)...)
	}

	issues = append(issues, s.checkEvents()...)
	return DoctorReport{Issues: issuesOrEmpty(issues)}, nil
}

func checkAssignment(a model.Assignment) []DoctorIssue {
	var issues []DoctorIssue

	templates := map[string]model.TemplateItem{}
	for _, t := range a.Catalog {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			issues = append(issues, DoctorIssue{Level: DoctorIssueLevelError, Code: "template_missing_id", Message: fmt.Sprintf("template %q has no id", t.Label)})
			continue
		}
		if _, dup := templates[id]; dup {
			issues = append(issues, DoctorIssue{Level: DoctorIssueLevelError, Code: "duplicate_template", Message: "duplicate template id " + id, TemplateID: id})
			continue
		}
		if t.RequiresInput && len(t.InputFields) == 0 {
			issues = append(issues, DoctorIssue{Level: DoctorIssueLevelError, Code: "template_without_fields", Message: "parameterized template declares no input fields", TemplateID: id})
		}
		templates[id] = t
	}

	buckets := map[string]bool{}
	instances := map[string]string{}
	for _, b := range a.Buckets {
		if buckets[b.Name] {
			issues = append(issues, DoctorIssue{Level: DoctorIssueLevelError, Code: "duplicate_bucket", Message: "duplicate bucket " + b.Name, Bucket: b.Name})
		}
		buckets[b.Name] = true

		for _, it := range b.Instances {
			if prev, dup := instances[it.InstanceID]; dup {
				issues = append(issues, DoctorIssue{
					Level:      DoctorIssueLevelError,
					Code:       "duplicate_instance",
					Message:    fmt.Sprintf("instance %s is in %s and %s", it.InstanceID, prev, b.Name),
					Bucket:     b.Name,
					InstanceID: it.InstanceID,
				})
				continue
			}
			instances[it.InstanceID] = b.Name

			if _, ok := templates[it.TemplateID]; !ok {
				issues = append(issues, DoctorIssue{
					Level:      DoctorIssueLevelWarn,
					Code:       "orphan_instance",
					Message:    "instance derives from a template no longer in the catalog",
					Bucket:     b.Name,
					InstanceID: it.InstanceID,
					TemplateID: it.TemplateID,
				})
			}
			if it.RequiresInput {
				var missing []string
				for _, f := range it.InputFields {
					if strings.TrimSpace(it.Values[f]) == "" {
						missing = append(missing, f)
					}
				}
				if len(missing) > 0 {
					issues = append(issues, DoctorIssue{
						Level:      DoctorIssueLevelWarn,
						Code:       "incomplete_parameters",
						Message:    "missing " + strings.Join(missing, ", "),
						Bucket:     b.Name,
						InstanceID: it.InstanceID,
					})
				}
			}
		}
	}
	return issues
}

func (s Store) checkTUIState(a model.Assignment) []DoctorIssue {
	st, err := s.LoadTUIState()
	if err != nil {
		return []DoctorIssue{{Level: DoctorIssueLevelWarn, Code: "tui_state_unreadable", Message: err.Error(), Path: s.tuiStatePath()}}
	}
	known := map[string]bool{}
	for _, b := range a.Buckets {
		known[b.Name] = true
	}
	var issues []DoctorIssue
	for _, b := range st.Collapsed {
		if !known[b] {
			issues = append(issues, DoctorIssue{
				Level:   DoctorIssueLevelWarn,
				Code:    "stale_collapsed_bucket",
				Message: "folded bucket no longer exists",
				Path:    s.tuiStatePath(),
				Bucket:  b,
			})
		}
	}
	return issues
}

func (s Store) checkEvents() []DoctorIssue {
	p := s.eventsPath()
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return []DoctorIssue{{Level: DoctorIssueLevelError, Code: "events_open_failed", Message: err.Error(), Path: p}}
	}
	defer f.Close()

	var issues []DoctorIssue
	seen := map[string]int{}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}

		// Workspaces synced through git can pick up conflict markers.
		if bytes.HasPrefix(b, []byte("<<<<<<<")) || bytes.HasPrefix(b, []byte("=======")) || bytes.HasPrefix(b, []byte(">>>>>>>")) {
			issues = append(issues, DoctorIssue{Level: DoctorIssueLevelError, Code: "merge_marker", Message: "merge conflict marker in events log", Path: p, Line: lineNo})
			continue
		}

		var ev model.Event
		if err := json.Unmarshal(b, &ev); err != nil {
			issues = append(issues, DoctorIssue{Level: DoctorIssueLevelError, Code: "malformed_json", Message: err.Error(), Path: p, Line: lineNo})
			continue
		}
		if strings.TrimSpace(ev.Type) == "" {
			issues = append(issues, DoctorIssue{Level: DoctorIssueLevelError, Code: "missing_type", Message: "missing event type", Path: p, Line: lineNo, EventID: ev.ID})
		}
		if strings.TrimSpace(ev.EntityID) == "" {
			issues = append(issues, DoctorIssue{Level: DoctorIssueLevelWarn, Code: "missing_entity_id", Message: "missing entity id", Path: p, Line: lineNo, EventID: ev.ID})
		}
		if id := strings.TrimSpace(ev.ID); id != "" {
			if prev, dup := seen[id]; dup {
				issues = append(issues, DoctorIssue{
					Level:   DoctorIssueLevelError,
					Code:    "duplicate_event",
					Message: fmt.Sprintf("duplicate event id (also on line %d)", prev),
					Path:    p,
					Line:    lineNo,
					EventID: id,
				})
			} else {
				seen[id] = lineNo
			}
		}
	}
	if err := sc.Err(); err != nil {
		issues = append(issues, DoctorIssue{Level: DoctorIssueLevelError, Code: "events_scan_failed", Message: err.Error(), Path: p})
	}
	return issues
}

func issuesOrEmpty(xs []DoctorIssue) []DoctorIssue {
	if xs == nil {
		return []DoctorIssue{}
	}
	return xs
}
