package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Document is the canonical submission document:
//
//	{ "<bucket>": [ {"instanceId", "label", "requiresInput", "parameters": {...}}, ... ], ... }
//
// Buckets serialize in declared order (not map order), which is why Document carries a slice
// and implements its own JSON encoding.
type Document struct {
	Buckets []DocumentBucket
}

type DocumentBucket struct {
	Name    string
	Entries []DocumentEntry
}

type DocumentEntry struct {
	InstanceID    string `json:"instanceId"`
	Label         string `json:"label"`
	RequiresInput bool   `json:"requiresInput"`
	Parameters    Params `json:"parameters"`
}

type Param struct {
	Field string
	Value string
}

// Params is an ordered string->string object.
type Params []Param

func (p Params) Map() map[string]string {
	out := make(map[string]string, len(p))
	for _, kv := range p {
		out[kv.Field] = kv.Value
	}
	return out
}

func (p Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(kv.Field)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *Params) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := expectDelim(dec, '{'); err != nil {
		return fmt.Errorf("parameters: %w", err)
	}
	out := Params{}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return fmt.Errorf("parameters: %w", err)
		}
		var v string
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("parameters.%s: %w", key, err)
		}
		out = append(out, Param{Field: key, Value: v})
	}
	*p = out
	return nil
}

// Bucket returns the entries for name.
func (d Document) Bucket(name string) ([]DocumentEntry, bool) {
	for _, b := range d.Buckets {
		if b.Name == name {
			return b.Entries, true
		}
	}
	return nil, false
}

func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, b := range d.Buckets {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(b.Name)
		if err != nil {
			return nil, err
		}
		entries := b.Entries
		if entries == nil {
			entries = []DocumentEntry{}
		}
		v, err := json.Marshal(entries)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (d *Document) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := expectDelim(dec, '{'); err != nil {
		return fmt.Errorf("document: %w", err)
	}
	out := Document{}
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return fmt.Errorf("document: %w", err)
		}
		var entries []DocumentEntry
		if err := dec.Decode(&entries); err != nil {
			return fmt.Errorf("document[%s]: %w", name, err)
		}
		if entries == nil {
			entries = []DocumentEntry{}
		}
		out.Buckets = append(out.Buckets, DocumentBucket{Name: name, Entries: entries})
	}
	*d = out
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", errors.New("expected object key")
	}
	return key, nil
}
