package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	tuiStateFileName = "tui_state.json"
	tuiStateVersion  = 1
)

// TUIState is the per-workspace editor view state: cursor position, pool filter and
// folded buckets. The web board shares the folded list.
type TUIState struct {
	Version int `json:"version"`

	// Pane is "pool" or "buckets".
	Pane           string `json:"pane,omitempty"`
	SelectedBucket string `json:"selectedBucket,omitempty"`
	PoolFilter     string `json:"poolFilter,omitempty"`

	Collapsed []string `json:"collapsed,omitempty"`
}

func (s Store) tuiStatePath() string {
	return filepath.Join(s.Dir, tuiStateFileName)
}

// LoadTUIState never fails on a missing or corrupt file; both yield the zero state.
func (s Store) LoadTUIState() (*TUIState, error) {
	st := &TUIState{Version: tuiStateVersion}
	if strings.TrimSpace(s.Dir) == "" {
		return st, nil
	}
	b, err := os.ReadFile(s.tuiStatePath())
	switch {
	case errors.Is(err, os.ErrNotExist):
		return st, nil
	case err != nil:
		return nil, err
	}
	var loaded TUIState
	if json.Unmarshal(b, &loaded) != nil {
		return st, nil
	}
	loaded.normalize()
	return &loaded, nil
}

func (s Store) SaveTUIState(st *TUIState) error {
	if st == nil || strings.TrimSpace(s.Dir) == "" {
		return nil
	}
	if err := s.Ensure(); err != nil {
		return err
	}
	st.normalize()
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(s.Dir, tuiStateFileName+".*.tmp", s.tuiStatePath(), b, 0o644)
}

// normalize trims names and drops blank or repeated folded buckets, keeping first-seen order.
func (st *TUIState) normalize() {
	if st.Version == 0 {
		st.Version = tuiStateVersion
	}
	st.Pane = strings.TrimSpace(st.Pane)
	st.SelectedBucket = strings.TrimSpace(st.SelectedBucket)
	if len(st.Collapsed) == 0 {
		st.Collapsed = nil
		return
	}
	seen := make(map[string]bool, len(st.Collapsed))
	out := st.Collapsed[:0]
	for _, name := range st.Collapsed {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	if len(out) == 0 {
		out = nil
	}
	st.Collapsed = out
}
