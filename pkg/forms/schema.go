// Package forms declares form fields, their validation rules, and the
// records they validate.
package forms

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	// ErrUnknownField is returned when a scope names a field the schema
	// does not declare.
	ErrUnknownField = errors.New("forms: unknown field")

	// ErrDuplicateField is returned when a schema declares a field twice.
	ErrDuplicateField = errors.New("forms: duplicate field")
)

// Record maps field names to their current values.
type Record map[string]string

// Clone returns a copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return Record{}
	}
	return maps.Clone(r)
}

// Subset returns the values of the named fields. Missing fields map to "".
func (r Record) Subset(fields []string) Record {
	out := make(Record, len(fields))
	for _, f := range fields {
		out[f] = r[f]
	}
	return out
}

// Errors maps field names to a single message each.
type Errors map[string]string

// Has reports whether the field has an error.
func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Fields returns the failing field names in sorted order.
func (e Errors) Fields() []string {
	return slices.Sorted(maps.Keys(e))
}

// Clone returns a copy of the errors.
func (e Errors) Clone() Errors {
	if e == nil {
		return Errors{}
	}
	return maps.Clone(e)
}

func (e Errors) String() string {
	parts := make([]string, 0, len(e))
	for _, f := range e.Fields() {
		parts = append(parts, f+": "+e[f])
	}
	return strings.Join(parts, "; ")
}

// Result is the outcome of validating a record against a scope. Exactly one
// of Valid and Errors is populated.
type Result struct {
	// Valid holds the accepted values when every field passed.
	Valid Record

	// Errors holds one message per failing field.
	Errors Errors
}

// OK reports whether validation passed.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Schema is an ordered set of fields with their rules.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema creates a schema from the given fields.
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: empty name", ErrUnknownField)
		}
		if _, ok := s.index[f.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateField, f.Name)
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// MustSchema is NewSchema that panics on error.
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Field returns the named field.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Fields returns the fields in declaration order.
func (s *Schema) Fields() []Field {
	return slices.Clone(s.fields)
}

// Names returns the field names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Defaults returns a record holding every field's default value.
func (s *Schema) Defaults() Record {
	r := make(Record, len(s.fields))
	for _, f := range s.fields {
		r[f.Name] = f.Default
	}
	return r
}

// Validate checks the fields named by scope. Every failing field is
// reported; within a field the first failing rule supplies the message.
// The returned error is reserved for unknown fields and a done context.
func (s *Schema) Validate(ctx context.Context, record Record, scope []string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	errs := make(Errors)
	for _, name := range scope {
		i, ok := s.index[name]
		if !ok {
			return Result{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
		value := record[name]
		for _, rule := range s.fields[i].Rules {
			if !rule.Check(value) {
				errs[name] = rule.Message()
				break
			}
		}
	}

	if len(errs) > 0 {
		return Result{Errors: errs}, nil
	}
	return Result{Valid: record.Subset(scope)}, nil
}
