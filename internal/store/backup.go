package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"ruleboard/internal/model"

	"gopkg.in/yaml.v3"
)

// ExportAssignment writes the current workspace state to path in the seed format, so
// `init --from path` restores it. A .json extension selects JSON; anything else is YAML.
func (s Store) ExportAssignment(ctx context.Context, path string) (model.Assignment, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return model.Assignment{}, errors.New("export: missing path")
	}
	a, err := s.LoadAssignment(ctx)
	if err != nil {
		return model.Assignment{}, err
	}
	b, err := encodeAssignment(a, path)
	if err != nil {
		return model.Assignment{}, err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.Assignment{}, err
	}
	if err := atomicWriteFile(dir, filepath.Base(path)+".*.tmp", path, b, 0o644); err != nil {
		return model.Assignment{}, err
	}
	return a, nil
}

func encodeAssignment(a model.Assignment, path string) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		b, err := json.MarshalIndent(a, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	}
	return yaml.Marshal(a)
}
