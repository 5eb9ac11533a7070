package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ruleboard/internal/model"

	"github.com/google/uuid"
)

func (s Store) eventsPath() string {
	return filepath.Join(s.Dir, eventsFileName)
}

// AppendEvent records one mutation in the workspace's append-only events.jsonl.
func (s Store) AppendEvent(typ, entityID string, payload any) error {
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return errors.New("event: missing type")
	}
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return errors.New("event: missing entity id")
	}
	if err := s.Ensure(); err != nil {
		return err
	}
	ev := model.Event{
		ID:       "evt-" + uuid.NewString(),
		TS:       time.Now().UTC(),
		Type:     typ,
		EntityID: entityID,
		Payload:  payload,
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(s.eventsPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return err
	}
	return f.Close()
}

// ReadEventsTail returns the last limit events in file order. limit <= 0 returns all.
func (s Store) ReadEventsTail(limit int) ([]model.Event, error) {
	f, err := os.Open(s.eventsPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Event{}, nil
		}
		return nil, err
	}
	defer f.Close()

	out := []model.Event{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var ev model.Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", eventsFileName, line, err)
		}
		out = append(out, ev)
		if limit > 0 && len(out) > limit {
			out = out[1:]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
