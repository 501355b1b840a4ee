package forms

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func personSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := NewSchema(
		TextField("firstName", "First Name", WithRequired("First name is required")),
		TextField("lastName", "Last Name", WithRequired("Last name is required")),
		EmailField("email", "Email", "Invalid email address", WithRequired("Email is required")),
		TextField("zip", "ZIP", WithRules(Pattern(`^\d{5}$`, "Invalid ZIP code"))),
	)
	require.NoError(t, err)
	return s
}

func TestSchemaValidate_ReportsEveryFailingField(t *testing.T) {
	s := personSchema(t)

	res, err := s.Validate(context.Background(), Record{"email": "bad-email"}, []string{"firstName", "lastName", "email"})
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Nil(t, res.Valid)

	want := Errors{
		"firstName": "First name is required",
		"lastName":  "Last name is required",
		"email":     "Invalid email address",
	}
	if diff := cmp.Diff(want, res.Errors); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestSchemaValidate_FirstRuleWins(t *testing.T) {
	s := personSchema(t)

	res, err := s.Validate(context.Background(), Record{}, []string{"email"})
	require.NoError(t, err)
	assert.Equal(t, Errors{"email": "Email is required"}, res.Errors)
}

func TestSchemaValidate_ScopeLimitsFields(t *testing.T) {
	s := personSchema(t)
	rec := Record{"firstName": "John", "lastName": "Doe", "email": "bad-email", "zip": "x"}

	res, err := s.Validate(context.Background(), rec, []string{"firstName", "lastName"})
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, Record{"firstName": "John", "lastName": "Doe"}, res.Valid)
}

func TestSchemaValidate_Deterministic(t *testing.T) {
	s := personSchema(t)
	rec := Record{"firstName": "", "email": "nope", "zip": "12"}
	scope := s.Names()

	first, err := s.Validate(context.Background(), rec, scope)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := s.Validate(context.Background(), rec, scope)
		require.NoError(t, err)
		require.Empty(t, cmp.Diff(first, again))
	}
}

func TestSchemaValidate_UnknownField(t *testing.T) {
	s := personSchema(t)
	_, err := s.Validate(context.Background(), Record{}, []string{"phone"})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestSchemaValidate_CancelledContext(t *testing.T) {
	s := personSchema(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Validate(ctx, Record{}, s.Names())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSchemaValidate_EmptyScope(t *testing.T) {
	s := personSchema(t)
	res, err := s.Validate(context.Background(), Record{"firstName": ""}, nil)
	require.NoError(t, err)
	assert.True(t, res.OK())
}

func TestNewSchema_Duplicate(t *testing.T) {
	_, err := NewSchema(TextField("a", "A"), TextField("a", "A again"))
	assert.ErrorIs(t, err, ErrDuplicateField)
}

func TestSchemaDefaults(t *testing.T) {
	s := MustSchema(
		TextField("country", "Country", WithDefault("US")),
		TextField("city", "City"),
	)
	assert.Equal(t, Record{"country": "US", "city": ""}, s.Defaults())
	assert.Equal(t, []string{"country", "city"}, s.Names())
}

func TestRecordCloneIsIndependent(t *testing.T) {
	r := Record{"a": "1"}
	c := r.Clone()
	c["a"] = "2"
	assert.Equal(t, "1", r["a"])
}

func TestErrorsString(t *testing.T) {
	e := Errors{"zip": "Invalid ZIP code", "email": "Invalid email address"}
	assert.Equal(t, []string{"email", "zip"}, e.Fields())
	assert.Equal(t, "email: Invalid email address; zip: Invalid ZIP code", e.String())
}
