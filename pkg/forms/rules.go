package forms

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// Rule checks a single field value.
//
// Rules other than Required treat an empty value as valid so that
// optional fields can carry format rules.
type Rule interface {
	// Check reports whether the value satisfies the rule.
	Check(value string) bool

	// Message returns the message shown when Check fails.
	Message() string
}

// RequiredRule rejects blank values.
type RequiredRule struct {
	Msg string
}

func (r RequiredRule) Check(value string) bool {
	return strings.TrimSpace(value) != ""
}

func (r RequiredRule) Message() string {
	if r.Msg != "" {
		return r.Msg
	}
	return "This field is required"
}

// EmailRule validates email format.
type EmailRule struct {
	Msg string
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func (r EmailRule) Check(value string) bool {
	if value == "" {
		return true
	}
	return emailRegex.MatchString(value)
}

func (r EmailRule) Message() string {
	if r.Msg != "" {
		return r.Msg
	}
	return "Please enter a valid email address"
}

// MinLengthRule enforces a minimum length in runes.
type MinLengthRule struct {
	Min int
	Msg string
}

func (r MinLengthRule) Check(value string) bool {
	if value == "" {
		return true
	}
	return utf8.RuneCountInString(value) >= r.Min
}

func (r MinLengthRule) Message() string {
	if r.Msg != "" {
		return r.Msg
	}
	return fmt.Sprintf("Must be at least %d characters", r.Min)
}

// MaxLengthRule enforces a maximum length in runes.
type MaxLengthRule struct {
	Max int
	Msg string
}

func (r MaxLengthRule) Check(value string) bool {
	return utf8.RuneCountInString(value) <= r.Max
}

func (r MaxLengthRule) Message() string {
	if r.Msg != "" {
		return r.Msg
	}
	return fmt.Sprintf("Must be at most %d characters", r.Max)
}

// PatternRule matches the value against a compiled expression.
type PatternRule struct {
	Re  *regexp.Regexp
	Msg string
}

func (r PatternRule) Check(value string) bool {
	if value == "" {
		return true
	}
	return r.Re.MatchString(value)
}

func (r PatternRule) Message() string {
	if r.Msg != "" {
		return r.Msg
	}
	return "Invalid format"
}

// OneOfRule restricts the value to a fixed set.
type OneOfRule struct {
	Values []string
	Msg    string
}

func (r OneOfRule) Check(value string) bool {
	if value == "" {
		return true
	}
	return slices.Contains(r.Values, value)
}

func (r OneOfRule) Message() string {
	if r.Msg != "" {
		return r.Msg
	}
	return "Invalid selection"
}

// CustomRule wraps a predicate.
type CustomRule struct {
	Fn  func(value string) bool
	Msg string
}

func (r CustomRule) Check(value string) bool {
	return r.Fn(value)
}

func (r CustomRule) Message() string {
	return r.Msg
}

// Convenience constructors. The optional msg overrides the default message.

// Required returns a required rule.
func Required(msg ...string) Rule {
	return RequiredRule{Msg: first(msg)}
}

// Email returns an email rule.
func Email(msg ...string) Rule {
	return EmailRule{Msg: first(msg)}
}

// MinLength returns a minimum length rule.
func MinLength(n int, msg ...string) Rule {
	return MinLengthRule{Min: n, Msg: first(msg)}
}

// MaxLength returns a maximum length rule.
func MaxLength(n int, msg ...string) Rule {
	return MaxLengthRule{Max: n, Msg: first(msg)}
}

// Pattern returns a pattern rule. It panics if the expression does not
// compile; use CompilePattern for expressions read from files.
func Pattern(expr string, msg ...string) Rule {
	return PatternRule{Re: regexp.MustCompile(expr), Msg: first(msg)}
}

// CompilePattern is Pattern for untrusted expressions.
func CompilePattern(expr string, msg ...string) (Rule, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("forms: compile pattern %q: %w", expr, err)
	}
	return PatternRule{Re: re, Msg: first(msg)}, nil
}

// OneOf returns a one-of rule.
func OneOf(values ...string) Rule {
	return OneOfRule{Values: values}
}

// Custom returns a custom rule.
func Custom(fn func(value string) bool, msg string) Rule {
	return CustomRule{Fn: fn, Msg: msg}
}

func first(msg []string) string {
	if len(msg) > 0 {
		return msg[0]
	}
	return ""
}
