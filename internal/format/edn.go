package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteEDN writes a strict EDN representation of v.
//
// v is marshalled through JSON first (so json tags and custom MarshalJSON apply) and then
// re-read as a token stream. Map keys keep their encoded order: the submission document's
// bucket order is meaningful.
func WriteEDN(w io.Writer, v any, pretty bool) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	x, err := readValue(dec)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := ednEncoder{pretty: pretty, indent: 2}
	enc.writeAny(&buf, x, 0)
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}

type ednPair struct {
	key string
	val any
}

// ednMap is a JSON object with its key order kept.
type ednMap []ednPair

func readValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := ednMap{}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("edn: expected object key, got %v", kt)
				}
				val, err := readValue(dec)
				if err != nil {
					return nil, err
				}
				m = append(m, ednPair{key: key, val: val})
			}
			_, err := dec.Token()
			return m, err
		case '[':
			xs := []any{}
			for dec.More() {
				val, err := readValue(dec)
				if err != nil {
					return nil, err
				}
				xs = append(xs, val)
			}
			_, err := dec.Token()
			return xs, err
		}
		return nil, fmt.Errorf("edn: unexpected delimiter %v", t)
	default:
		return tok, nil
	}
}

type ednEncoder struct {
	pretty bool
	indent int
}

func (e ednEncoder) writeAny(buf *bytes.Buffer, v any, level int) {
	switch t := v.(type) {
	case nil:
		buf.WriteString("nil")
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		buf.WriteString(strconv.Quote(t))
	case json.Number:
		buf.WriteString(t.String())
	case []any:
		e.writeVec(buf, t, level)
	case ednMap:
		e.writeMap(buf, t, level)
	default:
		buf.WriteString(strconv.Quote(fmt.Sprintf("%v", v)))
	}
}

func (e ednEncoder) writeVec(buf *bytes.Buffer, xs []any, level int) {
	buf.WriteByte('[')
	if len(xs) == 0 {
		buf.WriteByte(']')
		return
	}
	e.open(buf)
	for i, it := range xs {
		e.pad(buf, level+1)
		e.writeAny(buf, it, level+1)
		e.sep(buf, i == len(xs)-1)
	}
	e.close(buf, level)
	buf.WriteByte(']')
}

func (e ednEncoder) writeMap(buf *bytes.Buffer, m ednMap, level int) {
	buf.WriteByte('{')
	if len(m) == 0 {
		buf.WriteByte('}')
		return
	}
	e.open(buf)
	for i, kv := range m {
		e.pad(buf, level+1)
		// JSON keys become EDN keywords.
		buf.WriteByte(':')
		buf.WriteString(ednKeyword(kv.key))
		buf.WriteByte(' ')
		e.writeAny(buf, kv.val, level+1)
		e.sep(buf, i == len(m)-1)
	}
	e.close(buf, level)
	buf.WriteByte('}')
}

func (e ednEncoder) open(buf *bytes.Buffer) {
	if e.pretty {
		buf.WriteByte('\n')
	}
}

func (e ednEncoder) pad(buf *bytes.Buffer, level int) {
	if e.pretty {
		buf.WriteString(strings.Repeat(" ", level*e.indent))
	}
}

func (e ednEncoder) sep(buf *bytes.Buffer, last bool) {
	if last {
		return
	}
	if e.pretty {
		buf.WriteByte('\n')
	} else {
		buf.WriteByte(' ')
	}
}

func (e ednEncoder) close(buf *bytes.Buffer, level int) {
	if e.pretty {
		buf.WriteByte('\n')
		buf.WriteString(strings.Repeat(" ", level*e.indent))
	}
}

func ednKeyword(s string) string {
	s = strings.TrimSpace(s)
	return strings.ReplaceAll(s, " ", "-")
}
