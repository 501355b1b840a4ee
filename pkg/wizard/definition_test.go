package wizard

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielmiguelok/stepform/pkg/forms"
)

const sampleDefinition = `
name: signup
title: Create your account
steps:
  - id: "1"
    name: Personal Information
    fields:
      - name: email
        type: email
        rules:
          - {rule: required, message: Email is required}
          - {rule: email, message: Invalid email address}
  - id: "2"
    name: Address
    fields:
      - name: country
        default: US
        options:
          - {value: US, label: United States}
          - {value: CA, label: Canada}
      - name: zip
        rules:
          - {rule: pattern, value: '^\d{5}$', message: Invalid ZIP code}
          - {rule: max_length, value: 5}
  - id: "3"
    name: Complete
`

func TestParseDefinition(t *testing.T) {
	def, err := ParseDefinition([]byte(sampleDefinition))
	require.NoError(t, err)
	assert.Equal(t, "signup", def.Name)

	reg, schema, err := def.Build()
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, []string{"email", "country", "zip"}, reg.AllFields())
	assert.Equal(t, forms.Record{"country": "US"}, def.Defaults())

	country, ok := schema.Field("country")
	require.True(t, ok)
	assert.Equal(t, forms.FieldText, country.Type)
	assert.Len(t, country.Options, 2)

	res, err := schema.Validate(context.Background(), forms.Record{
		"email":   "bad-email",
		"country": "MX",
		"zip":     "1234",
	}, reg.AllFields())
	require.NoError(t, err)
	assert.Equal(t, forms.Errors{
		"email":   "Invalid email address",
		"country": "Invalid selection",
		"zip":     "Invalid ZIP code",
	}, res.Errors)
}

func TestParseDefinition_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "name: x\nstepz: []\n"},
		{"unknown rule", "steps:\n  - id: a\n    fields:\n      - name: f\n        rules: [{rule: shout}]\n"},
		{"bad pattern", "steps:\n  - id: a\n    fields:\n      - name: f\n        rules: [{rule: pattern, value: '('}]\n"},
		{"bad length", "steps:\n  - id: a\n    fields:\n      - name: f\n        rules: [{rule: min_length, value: many}]\n"},
		{"unnamed field", "steps:\n  - id: a\n    fields:\n      - label: nothing\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := ParseDefinition([]byte(tt.yaml))
			if err == nil {
				_, _, err = def.Build()
			}
			assert.ErrorIs(t, err, ErrDefinition)
		})
	}
}

func TestBuild_DuplicateFieldAcrossSteps(t *testing.T) {
	def := &Definition{Steps: []StepDef{
		{ID: "a", Fields: []FieldDef{{Name: "email"}}},
		{ID: "b", Fields: []FieldDef{{Name: "email"}}},
	}}
	_, _, err := def.Build()
	assert.ErrorIs(t, err, ErrDuplicateField)
}

func TestLoadDefinition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wizard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDefinition), 0o600))

	def, err := LoadDefinition(path)
	require.NoError(t, err)
	assert.Len(t, def.Steps, 3)

	_, err = LoadDefinition(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
