package forms

// FieldType identifies the input type used to render a field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldTel      FieldType = "tel"
	FieldNumber   FieldType = "number"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	FieldURL      FieldType = "url"
	FieldDate     FieldType = "date"
)

// Field is one input of a form: how to present it and which rules its
// value must satisfy. Rules are checked in order and the first failure is
// the field's message.
type Field struct {
	Name         string
	Type         FieldType
	Label        string
	Placeholder  string
	Help         string
	Autocomplete string
	Default      string
	Options      []Option // select fields only
	Rules        []Rule
}

// Option is one choice of a select field.
type Option struct {
	Value string
	Label string
}

// Required reports whether the field carries a RequiredRule.
func (f Field) Required() bool {
	for _, r := range f.Rules {
		if _, ok := r.(RequiredRule); ok {
			return true
		}
	}
	return false
}

// FieldOption adjusts a field built by TextField, EmailField or
// SelectField. Definitions loaded from YAML set Field directly.
type FieldOption func(*Field)

func build(name string, typ FieldType, label string, opts []FieldOption) Field {
	f := Field{Name: name, Type: typ, Label: label}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// WithRules appends rules.
func WithRules(rules ...Rule) FieldOption {
	return func(f *Field) { f.Rules = append(f.Rules, rules...) }
}

// WithRequired puts a RequiredRule first, so an empty value reports the
// required message rather than a format message.
func WithRequired(msg ...string) FieldOption {
	return func(f *Field) { f.Rules = append([]Rule{Required(msg...)}, f.Rules...) }
}

// WithDefault sets the value a new record starts with.
func WithDefault(value string) FieldOption {
	return func(f *Field) { f.Default = value }
}

// WithOptions sets the select options and restricts the value to them.
func WithOptions(options ...Option) FieldOption {
	return func(f *Field) {
		f.Options = options
		allowed := make([]string, 0, len(options))
		for _, o := range options {
			allowed = append(allowed, o.Value)
		}
		f.Rules = append(f.Rules, OneOf(allowed...))
	}
}

func TextField(name, label string, opts ...FieldOption) Field {
	return build(name, FieldText, label, opts)
}

// EmailField adds the email format rule after any rules from opts.
func EmailField(name, label string, msg string, opts ...FieldOption) Field {
	f := build(name, FieldEmail, label, opts)
	f.Rules = append(f.Rules, Email(msg))
	return f
}

func SelectField(name, label string, options []Option, opts ...FieldOption) Field {
	return build(name, FieldSelect, label, append([]FieldOption{WithOptions(options...)}, opts...))
}
