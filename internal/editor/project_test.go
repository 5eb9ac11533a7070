package editor

import (
	"encoding/json"
	"testing"

	"ruleboard/internal/model"

	"github.com/google/go-cmp/cmp"
)

func TestProjectDocument(t *testing.T) {
	s := newTestSession(t,
		model.Bucket{Name: "key1", Instances: []model.ItemInstance{
			{InstanceID: "r1", TemplateID: "pool-2", Values: map[string]string{"end": "20", "start": "10"}},
			plain("c1", "pool-1"),
		}},
		model.Bucket{Name: "key2"},
	)

	got := s.Preview()
	want := model.Document{Buckets: []model.DocumentBucket{
		{Name: "key1", Entries: []model.DocumentEntry{
			{InstanceID: "r1", Label: "Range", RequiresInput: true, Parameters: model.Params{{Field: "start", Value: "10"}, {Field: "end", Value: "20"}}},
			{InstanceID: "c1", Label: "Credit Check", Parameters: model.Params{}},
		}},
		{Name: "key2", Entries: []model.DocumentEntry{}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestProjectIsDeterministic(t *testing.T) {
	s := newTestSession(t, model.Bucket{Name: "key1", Instances: []model.ItemInstance{
		{InstanceID: "r1", TemplateID: "pool-4", Values: map[string]string{"uploadedBy": "ann", "fileType": "pdf"}},
	}})

	first, err := json.Marshal(s.Preview())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := json.Marshal(Project(s.Snapshot()))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(again) != string(first) {
			t.Fatalf("projection not deterministic:\n%s\n%s", first, again)
		}
	}
	want := `{"key1":[{"instanceId":"r1","label":"Document Upload","requiresInput":true,"parameters":{"fileType":"pdf","uploadedBy":"ann"}}]}`
	if string(first) != want {
		t.Fatalf("unexpected encoding:\n got %s\nwant %s", first, want)
	}
}

func TestProjectEmptyStore(t *testing.T) {
	doc := Project(NewBucketStore(nil).Snapshot())
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{}` {
		t.Fatalf("unexpected empty document: %s", b)
	}
}
