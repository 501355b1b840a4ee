package wizard

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/gabrielmiguelok/stepform/pkg/forms"
)

// Definition is the YAML form of a wizard:
//
//	name: signup
//	steps:
//	  - id: "1"
//	    name: Personal Information
//	    fields:
//	      - name: email
//	        type: email
//	        rules:
//	          - {rule: required, message: Email is required}
//	          - {rule: email, message: Invalid email address}
type Definition struct {
	Name  string    `yaml:"name"`
	Title string    `yaml:"title,omitempty"`
	Steps []StepDef `yaml:"steps"`
}

// StepDef declares one step.
type StepDef struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Fields      []FieldDef `yaml:"fields,omitempty"`
}

// FieldDef declares one field.
type FieldDef struct {
	Name         string      `yaml:"name"`
	Label        string      `yaml:"label,omitempty"`
	Type         string      `yaml:"type,omitempty"`
	Placeholder  string      `yaml:"placeholder,omitempty"`
	Help         string      `yaml:"help,omitempty"`
	Autocomplete string      `yaml:"autocomplete,omitempty"`
	Default      string      `yaml:"default,omitempty"`
	Options      []OptionDef `yaml:"options,omitempty"`
	Rules        []RuleDef   `yaml:"rules,omitempty"`
}

// OptionDef is a select option.
type OptionDef struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

// RuleDef names a rule. Value carries the length for min_length and
// max_length and the expression for pattern.
type RuleDef struct {
	Rule    string   `yaml:"rule"`
	Value   any      `yaml:"value,omitempty"`
	Values  []string `yaml:"values,omitempty"`
	Message string   `yaml:"message,omitempty"`
}

// ErrDefinition wraps every problem found while building a definition.
var ErrDefinition = errors.New("wizard: invalid definition")

// ParseDefinition decodes a YAML definition. Unknown keys are rejected.
func ParseDefinition(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var d Definition
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDefinition, err)
	}
	return &d, nil
}

// LoadDefinition reads and decodes a YAML definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wizard: read definition: %w", err)
	}
	return ParseDefinition(data)
}

// Build turns the definition into a registry and the schema that
// validates it.
func (d *Definition) Build() (*Registry, *forms.Schema, error) {
	steps := make([]Step, 0, len(d.Steps))
	var fields []forms.Field

	for _, sd := range d.Steps {
		step := Step{ID: sd.ID, Name: sd.Name, Description: sd.Description}
		for _, fd := range sd.Fields {
			f, err := fd.field()
			if err != nil {
				return nil, nil, fmt.Errorf("%w: step %q: %v", ErrDefinition, sd.ID, err)
			}
			step.Fields = append(step.Fields, f.Name)
			fields = append(fields, f)
		}
		steps = append(steps, step)
	}

	reg, err := NewRegistry(steps...)
	if err != nil {
		return nil, nil, err
	}
	schema, err := forms.NewSchema(fields...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDefinition, err)
	}
	return reg, schema, nil
}

func (fd FieldDef) field() (forms.Field, error) {
	if fd.Name == "" {
		return forms.Field{}, errors.New("field without name")
	}

	typ := forms.FieldType(fd.Type)
	if typ == "" {
		typ = forms.FieldText
	}

	f := forms.Field{
		Name:         fd.Name,
		Type:         typ,
		Label:        fd.Label,
		Placeholder:  fd.Placeholder,
		Help:         fd.Help,
		Autocomplete: fd.Autocomplete,
		Default:      fd.Default,
	}
	for _, rd := range fd.Rules {
		r, err := rd.rule()
		if err != nil {
			return forms.Field{}, fmt.Errorf("field %q: %w", fd.Name, err)
		}
		f.Rules = append(f.Rules, r)
	}

	if len(fd.Options) > 0 {
		opts := make([]forms.Option, len(fd.Options))
		for i, o := range fd.Options {
			opts[i] = forms.Option{Value: o.Value, Label: o.Label}
		}
		forms.WithOptions(opts...)(&f)
	}
	return f, nil
}

func (rd RuleDef) rule() (forms.Rule, error) {
	switch rd.Rule {
	case "required":
		return forms.Required(rd.Message), nil
	case "email":
		return forms.Email(rd.Message), nil
	case "min_length", "max_length":
		n, err := strconv.Atoi(fmt.Sprint(rd.Value))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%s needs a non-negative integer value, got %v", rd.Rule, rd.Value)
		}
		if rd.Rule == "min_length" {
			return forms.MinLength(n, rd.Message), nil
		}
		return forms.MaxLength(n, rd.Message), nil
	case "pattern":
		expr, ok := rd.Value.(string)
		if !ok || expr == "" {
			return nil, errors.New("pattern needs a string value")
		}
		return forms.CompilePattern(expr, rd.Message)
	case "one_of":
		if len(rd.Values) == 0 {
			return nil, errors.New("one_of needs values")
		}
		return forms.OneOfRule{Values: rd.Values, Msg: rd.Message}, nil
	default:
		return nil, fmt.Errorf("unknown rule %q", rd.Rule)
	}
}

// Defaults returns the default value of every field that declares one.
func (d *Definition) Defaults() forms.Record {
	rec := make(forms.Record)
	for _, sd := range d.Steps {
		for _, fd := range sd.Fields {
			if fd.Default != "" {
				rec[fd.Name] = fd.Default
			}
		}
	}
	return rec
}
