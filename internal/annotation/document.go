package annotation

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Entry is one top-level key of the persisted document with its ranges.
type Entry struct {
	Key    string
	Ranges []Range
}

// Document is the persisted JSON object in key encounter order. Keys are raw
// strings: a document written by an old version may hold unnormalized paths.
type Document struct {
	entries []Entry
}

// NewDocument builds a document from entries. A repeated key keeps its first
// position and its lists are concatenated, as when decoding JSON.
func NewDocument(entries ...Entry) Document {
	var d Document
	for _, e := range entries {
		d.Append(e.Key, e.Ranges)
	}
	return d
}

// Entries returns a copy of the entries in order.
func (d Document) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	for i, e := range d.entries {
		out[i] = Entry{Key: e.Key, Ranges: append([]Range(nil), e.Ranges...)}
	}
	return out
}

func (d Document) Len() int { return len(d.entries) }

// Lookup returns the ranges stored under the exact raw key.
func (d Document) Lookup(key string) ([]Range, bool) {
	for _, e := range d.entries {
		if e.Key == key {
			return append([]Range(nil), e.Ranges...), true
		}
	}
	return nil, false
}

// Set replaces or appends key.
func (d *Document) Set(key string, ranges []Range) {
	ranges = append([]Range{}, ranges...)
	for i := range d.entries {
		if d.entries[i].Key == key {
			d.entries[i].Ranges = ranges
			return
		}
	}
	d.entries = append(d.entries, Entry{Key: key, Ranges: ranges})
}

// Append adds ranges after those already stored under key, or appends key.
func (d *Document) Append(key string, ranges []Range) {
	for i := range d.entries {
		if d.entries[i].Key == key {
			d.entries[i].Ranges = append(d.entries[i].Ranges, ranges...)
			return
		}
	}
	d.Set(key, ranges)
}

// Equal reports whether both documents hold the same keys in the same order with equal lists.
func (d Document) Equal(o Document) bool {
	if len(d.entries) != len(o.entries) {
		return false
	}
	for i, e := range d.entries {
		oe := o.entries[i]
		if e.Key != oe.Key || len(e.Ranges) != len(oe.Ranges) {
			return false
		}
		for j := range e.Ranges {
			if !e.Ranges[j].Equal(oe.Ranges[j]) {
				return false
			}
		}
	}
	return true
}

// RangeCount returns the number of ranges across all keys.
func (d Document) RangeCount() int {
	n := 0
	for _, e := range d.entries {
		n += len(e.Ranges)
	}
	return n
}

func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range d.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		ranges := e.Ranges
		if ranges == nil {
			ranges = []Range{}
		}
		val, err := json.Marshal(ranges)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", e.Key, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("annotation document must be a JSON object")
	}

	var out Document
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}

		var ranges []Range
		if err := dec.Decode(&ranges); err != nil {
			return fmt.Errorf("entry %q: %w", key, err)
		}
		// A repeated key must not drop the lists decoded before it.
		out.Append(key, ranges)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*d = out
	return nil
}
