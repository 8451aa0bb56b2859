// Package inventory defines the record model shared by the fan-out
// collector and the export pipeline.
package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is one structured fact-set about one target or sub-entity
// (one disk, one CPU, one installed application). Field order is
// preserved from insertion, so positional renderings (CSV columns)
// stay stable across records produced by the same probe.
//
// A field whose source value is unavailable is carried as nil, never
// omitted.
type Record struct {
	names  []string
	values map[string]any
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]any)}
}

// Set stores a field value, appending the field name to the order on
// first insertion.
func (r *Record) Set(name string, value any) {
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = value
}

// SetFront stores a field value at the front of the field order.
// Used for stamping the target identifier so it renders as the first
// column. No-op reorder if the field already exists.
func (r *Record) SetFront(name string, value any) {
	if _, ok := r.values[name]; !ok {
		r.names = append([]string{name}, r.names...)
	}
	r.values[name] = value
}

// Get returns the field value and whether the field is present.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Value returns the field value, or nil when absent.
func (r *Record) Value(name string) any {
	return r.values[name]
}

// Fields returns the field names in insertion order.
func (r *Record) Fields() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.names)
}

// MarshalJSON renders the record as a JSON object with fields in
// insertion order. Nested values (maps, slices from raw probes) are
// marshaled with the standard encoder, so sub-objects survive intact.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field name %q: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[name])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field %q: %w", name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RecordSet is an ordered sequence of records: target iteration order
// first, then the natural order emitted by the probe for multi-record
// targets. The fan-out collector returns it immutable; the export
// pipeline only reads it.
type RecordSet []*Record

// Fields returns the union of field names across all records,
// preserving first-seen order. This is the header row for positional
// formats.
func (rs RecordSet) Fields() []string {
	var names []string
	seen := make(map[string]bool)
	for _, r := range rs {
		for _, name := range r.names {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}
