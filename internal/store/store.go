package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ruleboard/internal/model"
)

const (
	sqliteFileName = "ruleboard.sqlite"
	eventsFileName = "events.jsonl"
)

// Seed files picked up once when a workspace has no state yet.
var seedFileNames = []string{"assignment.yaml", "assignment.yml", "assignment.json"}

var ErrNotInitialized = errors.New("workspace not initialized (run `ruleboard init`)")

// Store is a ruleboard workspace directory: the SQLite state, the event log, the TUI state
// and the logs folder all live under Dir.
type Store struct {
	Dir string
}

func WorkspaceDir(name string) (string, error) {
	name, err := NormalizeWorkspaceName(name)
	if err != nil {
		return "", err
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "workspaces", name), nil
}

func (s Store) Ensure() error {
	if strings.TrimSpace(s.Dir) == "" {
		return errors.New("store dir is empty")
	}
	return os.MkdirAll(s.Dir, 0o755)
}

func (s Store) LogDir() string {
	return filepath.Join(s.Dir, "logs")
}

func (s Store) sqlitePath() string {
	return filepath.Join(s.Dir, sqliteFileName)
}

func (s Store) seedPath() (string, bool) {
	for _, name := range seedFileNames {
		p := filepath.Join(s.Dir, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, true
		}
	}
	return "", false
}

// LoadAssignment implements editor.Loader. A workspace without state imports its seed file
// (assignment.yaml/json) once; without either it returns ErrNotInitialized.
func (s Store) LoadAssignment(ctx context.Context) (model.Assignment, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return model.Assignment{}, err
	}
	defer db.Close()

	ok, err := sqliteInitialized(ctx, db)
	if err != nil {
		return model.Assignment{}, err
	}
	if !ok {
		path, found := s.seedPath()
		if !found {
			return model.Assignment{}, ErrNotInitialized
		}
		a, err := ReadAssignmentFile(path)
		if err != nil {
			return model.Assignment{}, fmt.Errorf("import %s: %w", filepath.Base(path), err)
		}
		if err := validateSeed(a); err != nil {
			return model.Assignment{}, fmt.Errorf("import %s: %w", filepath.Base(path), err)
		}
		if err := saveAssignment(ctx, db, a); err != nil {
			return model.Assignment{}, err
		}
	}
	return loadAssignment(ctx, db)
}

// SaveAssignment replaces the stored catalog and buckets with a.
func (s Store) SaveAssignment(ctx context.Context, a model.Assignment) error {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	return saveAssignment(ctx, db, a)
}

// Initialized reports whether the workspace has saved state (or a seed waiting to import).
func (s Store) Initialized(ctx context.Context) (bool, error) {
	if _, err := os.Stat(s.sqlitePath()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			_, found := s.seedPath()
			return found, nil
		}
		return false, err
	}
	db, err := s.openSQLite(ctx)
	if err != nil {
		return false, err
	}
	defer db.Close()
	ok, err := sqliteInitialized(ctx, db)
	if err != nil || ok {
		return ok, err
	}
	_, found := s.seedPath()
	return found, nil
}
