package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ruleboard/internal/editor"
	"ruleboard/internal/model"

	"gopkg.in/yaml.v3"
)

// ReadAssignmentFile parses a seed assignment. .json files are read as JSON; anything else
// as YAML.
func ReadAssignmentFile(path string) (model.Assignment, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return model.Assignment{}, err
	}
	var a model.Assignment
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(b, &a)
	default:
		err = yaml.Unmarshal(b, &a)
	}
	if err != nil {
		return model.Assignment{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return a, nil
}

// ImportSeed copies src into the workspace as its seed file. The next LoadAssignment on an
// empty workspace picks it up.
func (s Store) ImportSeed(src string) error {
	a, err := ReadAssignmentFile(src)
	if err != nil {
		return err
	}
	if err := validateSeed(a); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(src), err)
	}
	name := "assignment.yaml"
	if strings.EqualFold(filepath.Ext(src), ".json") {
		name = "assignment.json"
	}
	for _, n := range seedFileNames {
		if n != name {
			_ = os.Remove(filepath.Join(s.Dir, n))
		}
	}
	return copyFileAtomic(src, filepath.Join(s.Dir, name))
}

// DemoAssignment is the loan-processing pool with three empty rule buckets.
func DemoAssignment() model.Assignment {
	return model.Assignment{
		Catalog: []model.TemplateItem{
			{ID: "pool-1", Label: "Loan Application", RequiresInput: true, InputFields: []string{"applicantName", "loanAmount"}},
			{ID: "pool-2", Label: "Credit Check"},
			{ID: "pool-3", Label: "Income Verification", RequiresInput: true, InputFields: []string{"income", "employmentStatus"}},
			{ID: "pool-4", Label: "Property Assessment", RequiresInput: true, InputFields: []string{"propertyValue", "assessmentDate"}},
			{ID: "pool-5", Label: "Final Approval"},
			{ID: "pool-6", Label: "Document Upload", RequiresInput: true, InputFields: []string{"fileType", "uploadedBy"}},
			{ID: "pool-7", Label: "Fraud Check"},
		},
		Buckets: []model.Bucket{
			{Name: "key1", Instances: []model.ItemInstance{}},
			{Name: "key2", Instances: []model.ItemInstance{}},
			{Name: "key3", Instances: []model.ItemInstance{}},
		},
	}
}

// validateSeed rejects a seed the editor could not hydrate: a bad catalog or an instance
// that names an unknown template. Nothing invalid is copied into or imported by a workspace.
func validateSeed(a model.Assignment) error {
	catalog, err := editor.NewCatalog(a.Catalog)
	if err != nil {
		return err
	}
	for _, b := range a.Buckets {
		for _, it := range b.Instances {
			if _, ok := catalog.Find(it.TemplateID); !ok {
				return fmt.Errorf("bucket %q: instance %q references unknown template %q", b.Name, it.InstanceID, it.TemplateID)
			}
		}
	}
	return nil
}
