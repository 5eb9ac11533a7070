package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type writerFunc func(w io.Writer, v any, pretty bool) error

var writers = map[string]writerFunc{
	"json": WriteJSON,
	"edn":  WriteEDN,
}

// Formats lists the values accepted by --format.
var Formats = []string{"json", "edn"}

// Write encodes v in the named format. An empty name means json.
func Write(w io.Writer, v any, format string, pretty bool) error {
	name := strings.ToLower(strings.TrimSpace(format))
	if name == "" {
		name = "json"
	}
	fn, ok := writers[name]
	if !ok {
		return fmt.Errorf("unknown format: %s (expected %s)", format, strings.Join(Formats, "|"))
	}
	return fn(w, v, pretty)
}

// WriteJSON writes one JSON value and a newline. Labels such as "Q&A <draft>" are written
// as-is rather than as & escapes.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
