package editor

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// IDGenerator issues instance ids. Implementations must never return the same value twice
// within a session.
type IDGenerator interface {
	Next() string
}

// Reserver is implemented by generators that can be told about ids already in use
// (for example after hydrating from a previous session).
type Reserver interface {
	Reserve(ids ...string)
}

// CounterIDs issues prefix-1, prefix-2, ... and skips reserved values.
type CounterIDs struct {
	prefix   string
	n        uint64
	reserved map[string]bool
}

func NewCounterIDs(prefix string) *CounterIDs {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "inst"
	}
	return &CounterIDs{prefix: prefix, reserved: map[string]bool{}}
}

func (g *CounterIDs) Next() string {
	for {
		g.n++
		id := fmt.Sprintf("%s-%d", g.prefix, g.n)
		if !g.reserved[id] {
			return id
		}
	}
}

func (g *CounterIDs) Reserve(ids ...string) {
	for _, id := range ids {
		g.reserved[id] = true
	}
}

// RandomIDs issues copy-<uuid> tokens. Every issued and reserved id is remembered, so a
// repeat draw is discarded instead of returned.
type RandomIDs struct {
	seen map[string]bool
	draw func() string
}

func NewRandomIDs() *RandomIDs {
	return &RandomIDs{
		seen: map[string]bool{},
		draw: func() string { return "copy-" + uuid.NewString() },
	}
}

func (g *RandomIDs) Next() string {
	for {
		id := g.draw()
		if g.seen[id] {
			continue
		}
		g.seen[id] = true
		return id
	}
}

func (g *RandomIDs) Reserve(ids ...string) {
	for _, id := range ids {
		g.seen[id] = true
	}
}
