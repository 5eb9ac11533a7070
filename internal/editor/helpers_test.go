package editor

import (
	"testing"

	"ruleboard/internal/model"
)

func testCatalog() []model.TemplateItem {
	return []model.TemplateItem{
		{ID: "pool-1", Label: "Credit Check"},
		{ID: "pool-2", Label: "Range", RequiresInput: true, InputFields: []string{"start", "end"}},
		{ID: "pool-3", Label: "Fraud Check"},
		{ID: "pool-4", Label: "Document Upload", RequiresInput: true, InputFields: []string{"fileType", "uploadedBy"}},
	}
}

func plain(id, templateID string) model.ItemInstance {
	return model.ItemInstance{InstanceID: id, TemplateID: templateID}
}

func newTestSession(t *testing.T, buckets ...model.Bucket) *Session {
	t.Helper()
	if len(buckets) == 0 {
		buckets = []model.Bucket{{Name: "key1"}, {Name: "key2"}, {Name: "key3"}}
	}
	s := NewSession(Options{IDs: NewCounterIDs("inst")})
	if err := s.Hydrate(model.Assignment{Catalog: testCatalog(), Buckets: buckets}); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	return s
}

func instanceIDs(items []model.ItemInstance) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.InstanceID)
	}
	return out
}

// assertSingleOwnership fails when an instance id shows up in more than one bucket slot.
func assertSingleOwnership(t *testing.T, snap Snapshot) {
	t.Helper()
	seen := map[string]string{}
	for _, name := range snap.Order {
		for _, it := range snap.Buckets[name] {
			if prev, ok := seen[it.InstanceID]; ok {
				t.Fatalf("instance %s owned by %q and %q", it.InstanceID, prev, name)
			}
			seen[it.InstanceID] = name
		}
	}
}
