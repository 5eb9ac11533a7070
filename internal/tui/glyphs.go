package tui

import (
	"os"
	"strings"
	"sync/atomic"
)

// glyphSet holds the markers drawn on the board. Fonts without the geometric shapes block
// render the unicode set as boxes, so RULEBOARD_TUI_GLYPHS=ascii swaps in plain text.
type glyphSet struct {
	name       string
	collapsed  string
	expanded   string
	needsInput string
	drop       string
}

var (
	glyphSetUnicode = &glyphSet{name: "unicode", collapsed: "▸", expanded: "▾", needsInput: "⋯", drop: "──▶ drop here"}
	glyphSetASCII   = &glyphSet{name: "ascii", collapsed: ">", expanded: "v", needsInput: "...", drop: "--> drop here"}
)

var activeGlyphs atomic.Pointer[glyphSet]

func init() { activeGlyphs.Store(glyphSetUnicode) }

// applyGlyphPreference reads RULEBOARD_TUI_GLYPHS (unicode|utf8|ascii). Unknown values keep
// the current set.
func applyGlyphPreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("RULEBOARD_TUI_GLYPHS"))) {
	case "", "unicode", "utf8":
		setGlyphs(glyphSetUnicode)
	case "ascii":
		setGlyphs(glyphSetASCII)
	}
}

func setGlyphs(gs *glyphSet) { activeGlyphs.Store(gs) }

func glyphs() *glyphSet { return activeGlyphs.Load() }

func glyphTwistyCollapsed() string { return glyphs().collapsed }
func glyphTwistyExpanded() string  { return glyphs().expanded }
func glyphNeedsInput() string      { return glyphs().needsInput }
func glyphDropMarker() string      { return glyphs().drop }
