package editor

import (
	"sort"

	"ruleboard/internal/model"
)

// Project converts a snapshot into the canonical submission document. It is pure: the
// same snapshot always yields the same document, byte for byte once encoded.
func Project(s Snapshot) model.Document {
	doc := model.Document{Buckets: make([]model.DocumentBucket, 0, len(s.Order))}
	for _, name := range s.Order {
		items := s.Buckets[name]
		entries := make([]model.DocumentEntry, 0, len(items))
		for _, it := range items {
			entries = append(entries, model.DocumentEntry{
				InstanceID:    it.InstanceID,
				Label:         it.Label,
				RequiresInput: it.RequiresInput,
				Parameters:    projectParams(it),
			})
		}
		doc.Buckets = append(doc.Buckets, model.DocumentBucket{Name: name, Entries: entries})
	}
	return doc
}

// projectParams orders values by input field, then any extra keys alphabetically.
func projectParams(it model.ItemInstance) model.Params {
	out := model.Params{}
	if !it.RequiresInput {
		return out
	}
	seen := map[string]bool{}
	for _, f := range it.InputFields {
		if v, ok := it.Values[f]; ok {
			out = append(out, model.Param{Field: f, Value: v})
			seen[f] = true
		}
	}
	var extra []string
	for k := range it.Values {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		out = append(out, model.Param{Field: k, Value: it.Values[k]})
	}
	return out
}
