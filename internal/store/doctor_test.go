package store

import (
	"context"
	"os"
	"strings"
	"testing"

	"ruleboard/internal/model"
)

func issueCodes(r DoctorReport) []string {
	var out []string
	for _, it := range r.Issues {
		out = append(out, it.Code)
	}
	return out
}

func hasCode(r DoctorReport, code string) bool {
	for _, it := range r.Issues {
		if it.Code == code {
			return true
		}
	}
	return false
}

func TestDoctor_UninitializedWorkspace(t *testing.T) {
	r, err := Store{Dir: t.TempDir()}.Doctor(context.Background())
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if !r.HasErrors() || !hasCode(r, "not_initialized") {
		t.Fatalf("expected not_initialized; got %v", issueCodes(r))
	}
}

func TestDoctor_CleanWorkspaceHasNoIssues(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	ctx := context.Background()
	if err := s.SaveAssignment(ctx, DemoAssignment()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.AppendEvent("workspace.init", "ws", nil); err != nil {
		t.Fatalf("append: %v", err)
	}

	r, err := s.Doctor(ctx)
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if len(r.Issues) != 0 {
		t.Fatalf("expected no issues; got %#v", r.Issues)
	}
}

func TestDoctor_ReportsEventLogProblemsWithLine(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	ctx := context.Background()
	if err := s.SaveAssignment(ctx, DemoAssignment()); err != nil {
		t.Fatalf("save: %v", err)
	}
	line := `{"id":"evt-1","ts":"2026-01-01T00:00:00Z","type":"instance.place","entityId":"copy-1","payload":{}}`
	body := strings.Join([]string{line, "{not json}", line, "<<<<<<< HEAD"}, "\n") + "\n"
	if err := os.WriteFile(s.eventsPath(), []byte(body), 0o644); err != nil {
		t.Fatalf("write events: %v", err)
	}

	r, err := s.Doctor(ctx)
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	lines := map[string]int{}
	for _, it := range r.Issues {
		lines[it.Code] = it.Line
	}
	if lines["malformed_json"] != 2 || lines["duplicate_event"] != 3 || lines["merge_marker"] != 4 {
		t.Fatalf("unexpected issues: %#v", r.Issues)
	}
}

func TestDoctor_WarnsAboutStaleFoldAndOrphans(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	ctx := context.Background()
	a := DemoAssignment()
	a.Buckets[0].Instances = []model.ItemInstance{
		{InstanceID: "copy-1", TemplateID: "pool-99", Label: "Gone"},
		{InstanceID: "copy-2", TemplateID: "pool-1", Label: "Loan Application", RequiresInput: true,
			InputFields: []string{"applicantName", "loanAmount"}, Values: map[string]string{"applicantName": "Ada"}},
	}
	if err := s.SaveAssignment(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveTUIState(&TUIState{Collapsed: []string{"key1", "archived"}}); err != nil {
		t.Fatalf("save tui state: %v", err)
	}

	r, err := s.Doctor(ctx)
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if r.HasErrors() {
		t.Fatalf("expected warnings only; got %#v", r.Issues)
	}
	for _, code := range []string{"orphan_instance", "incomplete_parameters", "stale_collapsed_bucket"} {
		if !hasCode(r, code) {
			t.Fatalf("expected %s; got %v", code, issueCodes(r))
		}
	}
}

func TestCheckAssignment_Duplicates(t *testing.T) {
	a := model.Assignment{
		Catalog: []model.TemplateItem{{ID: "t1", Label: "A"}, {ID: "t1", Label: "B"}},
		Buckets: []model.Bucket{
			{Name: "k", Instances: []model.ItemInstance{{InstanceID: "i1", TemplateID: "t1"}}},
			{Name: "k", Instances: []model.ItemInstance{{InstanceID: "i1", TemplateID: "t1"}}},
		},
	}
	r := DoctorReport{Issues: checkAssignment(a)}
	for _, code := range []string{"duplicate_template", "duplicate_bucket", "duplicate_instance"} {
		if !hasCode(r, code) {
			t.Fatalf("expected %s; got %v", code, issueCodes(r))
		}
	}
}
