package editor

import (
	"strings"

	"ruleboard/internal/model"
)

// Catalog is the read-only template pool. Its order is fixed for the session and never
// reflects bucket membership.
type Catalog struct {
	items []model.TemplateItem
	byID  map[string]int
}

func NewCatalog(items []model.TemplateItem) (*Catalog, error) {
	c := &Catalog{
		items: make([]model.TemplateItem, 0, len(items)),
		byID:  map[string]int{},
	}
	for _, t := range items {
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" {
			return nil, CatalogError{Reason: "template id is empty"}
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, CatalogError{TemplateID: t.ID, Reason: "duplicate template id"}
		}
		fields, err := normalizeTemplateFields(t)
		if err != nil {
			return nil, err
		}
		t.InputFields = fields
		c.byID[t.ID] = len(c.items)
		c.items = append(c.items, t)
	}
	return c, nil
}

// normalizeTemplateFields returns the trimmed field names of t, the same names values are
// keyed by at placement time.
func normalizeTemplateFields(t model.TemplateItem) ([]string, error) {
	if !t.RequiresInput {
		if len(t.InputFields) > 0 {
			return nil, CatalogError{TemplateID: t.ID, Reason: "inputFields set but requiresInput is false"}
		}
		return nil, nil
	}
	if len(t.InputFields) == 0 {
		return nil, CatalogError{TemplateID: t.ID, Reason: "requiresInput without inputFields"}
	}
	fields := make([]string, 0, len(t.InputFields))
	seen := map[string]bool{}
	for _, f := range t.InputFields {
		f = strings.TrimSpace(f)
		if f == "" {
			return nil, CatalogError{TemplateID: t.ID, Reason: "empty input field name"}
		}
		if seen[f] {
			return nil, CatalogError{TemplateID: t.ID, Reason: "duplicate input field " + f}
		}
		seen[f] = true
		fields = append(fields, f)
	}
	return fields, nil
}

// List returns the templates in declared order. The caller owns the returned slice.
func (c *Catalog) List() []model.TemplateItem {
	if c == nil {
		return nil
	}
	out := make([]model.TemplateItem, 0, len(c.items))
	for _, t := range c.items {
		t.InputFields = append([]string(nil), t.InputFields...)
		out = append(out, t)
	}
	return out
}

func (c *Catalog) Find(id string) (model.TemplateItem, bool) {
	if c == nil {
		return model.TemplateItem{}, false
	}
	i, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return model.TemplateItem{}, false
	}
	t := c.items[i]
	t.InputFields = append([]string(nil), t.InputFields...)
	return t, true
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// Search filters the pool by a case-insensitive label substring. An empty query returns
// the whole pool.
func (c *Catalog) Search(query string) []model.TemplateItem {
	q := strings.ToLower(strings.TrimSpace(query))
	all := c.List()
	if q == "" {
		return all
	}
	out := make([]model.TemplateItem, 0, len(all))
	for _, t := range all {
		if strings.Contains(strings.ToLower(t.Label), q) {
			out = append(out, t)
		}
	}
	return out
}
