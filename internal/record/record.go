// Package record implements LoGrok's data model: a field descriptor, a
// schema (the ordered field list produced by the LogFormat compiler) and
// a record (one extracted log line). Records share a single *Schema
// instance so field lookup is an index into a slice rather than a
// per-record map allocation.
package record

import (
	"fmt"
	"strings"

	"github.com/mimecast/logrok/internal/value"
)

// FieldKind classifies the value a field holds, decided by the directive
// table, never by content sniffing.
type FieldKind int

const (
	// KindString is an opaque string field.
	KindString FieldKind = iota
	// KindInt is a field coerced to integer at extraction time.
	KindInt
	// KindTimestamp is a string field known to carry a date/time, stored
	// verbatim (no calendar parsing, by design, for throughput reasons).
	KindTimestamp
)

// Descriptor names one field of a schema.
type Descriptor struct {
	Name string
	Kind FieldKind
}

// Schema is the ordered field list shared by every record extracted under
// one compiled LogFormat pattern. Field names are unique within a schema.
type Schema struct {
	Fields []Descriptor
	index  map[string]int
}

// NewSchema builds a schema from an ordered descriptor list.
func NewSchema(fields []Descriptor) *Schema {
	s := &Schema{
		Fields: fields,
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		s.index[f.Name] = i
	}
	return s
}

// IndexOf returns the position of a named field in the schema.
func (s *Schema) IndexOf(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Names returns the ordered field names, e.g. for "select *".
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

func (s *Schema) String() string {
	return fmt.Sprintf("Schema(%s)", strings.Join(s.Names(), ","))
}

// Record is one extracted log line: an ordered association of field name to
// value, sharing its field set with every other record in the dataset.
// Values are immutable after extraction.
type Record struct {
	Schema *Schema
	Values []value.Value
}

// Get looks up a field by name.
func (r Record) Get(name string) (value.Value, bool) {
	i, ok := r.Schema.IndexOf(name)
	if !ok {
		return value.Value{}, false
	}
	return r.Values[i], true
}

// MustGet is like Get but returns the zero value when absent; callers that
// have already validated the field exists against the schema use this to
// avoid repeating the ok-check.
func (r Record) MustGet(name string) value.Value {
	v, _ := r.Get(name)
	return v
}

// Dataset is the fully materialized, read-only sequence of records
// produced by row extraction. Every record shares the same *Schema.
type Dataset struct {
	Schema  *Schema
	Records []Record
}
