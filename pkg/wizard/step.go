package wizard

import (
	"fmt"
	"slices"
)

// Step is one page of a wizard and the fields it governs.
type Step struct {
	ID          string
	Name        string
	Description string
	Fields      []string
}

// Registry is the fixed, ordered sequence of steps of a wizard.
type Registry struct {
	steps   []Step
	fieldOf map[string]int
}

// NewRegistry validates and indexes the steps.
func NewRegistry(steps ...Step) (*Registry, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}

	r := &Registry{
		steps:   make([]Step, len(steps)),
		fieldOf: make(map[string]int),
	}
	ids := make(map[string]struct{}, len(steps))

	for i, s := range steps {
		if s.ID == "" {
			return nil, fmt.Errorf("%w: step %d has no id", ErrDuplicateStep, i)
		}
		if _, ok := ids[s.ID]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateStep, s.ID)
		}
		ids[s.ID] = struct{}{}

		for _, f := range s.Fields {
			if prev, ok := r.fieldOf[f]; ok {
				return nil, fmt.Errorf("%w: %q in steps %q and %q", ErrDuplicateField, f, steps[prev].ID, s.ID)
			}
			r.fieldOf[f] = i
		}

		s.Fields = slices.Clone(s.Fields)
		r.steps[i] = s
	}

	return r, nil
}

// MustRegistry is NewRegistry that panics on error.
func MustRegistry(steps ...Step) *Registry {
	r, err := NewRegistry(steps...)
	if err != nil {
		panic(err)
	}
	return r
}

// Len returns the number of steps.
func (r *Registry) Len() int {
	return len(r.steps)
}

// Last returns the index of the final step.
func (r *Registry) Last() int {
	return len(r.steps) - 1
}

// Step returns the step at index i.
func (r *Registry) Step(i int) (Step, error) {
	if i < 0 || i >= len(r.steps) {
		return Step{}, fmt.Errorf("%w: %d not in [0,%d)", ErrStepOutOfRange, i, len(r.steps))
	}
	s := r.steps[i]
	s.Fields = slices.Clone(s.Fields)
	return s, nil
}

// Fields returns the field names validated when leaving step i.
func (r *Registry) Fields(i int) ([]string, error) {
	s, err := r.Step(i)
	if err != nil {
		return nil, err
	}
	return s.Fields, nil
}

// AllFields returns every field in declaration order.
func (r *Registry) AllFields() []string {
	out := make([]string, 0, len(r.fieldOf))
	for _, s := range r.steps {
		out = append(out, s.Fields...)
	}
	return out
}

// StepOf returns the index of the step that declares field.
func (r *Registry) StepOf(field string) (int, bool) {
	i, ok := r.fieldOf[field]
	return i, ok
}

// Steps returns a copy of all steps.
func (r *Registry) Steps() []Step {
	out := make([]Step, len(r.steps))
	for i, s := range r.steps {
		s.Fields = slices.Clone(s.Fields)
		out[i] = s
	}
	return out
}
