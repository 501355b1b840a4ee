package wizard

import (
	"context"

	"github.com/gabrielmiguelok/stepform/pkg/forms"
)

// Validator validates the fields named by scope. A non-nil error means
// validation could not run; field failures are reported in the Result.
type Validator interface {
	Validate(ctx context.Context, record forms.Record, scope []string) (forms.Result, error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, record forms.Record, scope []string) (forms.Result, error)

func (f ValidatorFunc) Validate(ctx context.Context, record forms.Record, scope []string) (forms.Result, error) {
	return f(ctx, record, scope)
}

// Sink receives the validated record on submit.
type Sink interface {
	Submit(ctx context.Context, record forms.Record) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, record forms.Record) error

func (f SinkFunc) Submit(ctx context.Context, record forms.Record) error {
	return f(ctx, record)
}

type discardSink struct{}

func (discardSink) Submit(context.Context, forms.Record) error { return nil }

// Transition is passed to hooks after a step change.
type Transition struct {
	From      int
	To        int
	Direction Direction
	StepID    string
}

// Hooks are optional callbacks fired after state has been updated. They
// run on the goroutine that called the action and must not call back into
// the controller's actions.
type Hooks struct {
	OnTransition func(ctx context.Context, t Transition)
	OnRejected   func(ctx context.Context, step int, errs forms.Errors)
	OnSubmitted  func(ctx context.Context, record forms.Record)
}

// Merge combines hooks; each callback of h runs before the one of other.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		OnTransition: chain2(h.OnTransition, other.OnTransition),
		OnRejected:   chain3(h.OnRejected, other.OnRejected),
		OnSubmitted:  chain2(h.OnSubmitted, other.OnSubmitted),
	}
}

func chain2[T any](a, b func(context.Context, T)) func(context.Context, T) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, v T) {
		a(ctx, v)
		b(ctx, v)
	}
}

func chain3[A, B any](a, b func(context.Context, A, B)) func(context.Context, A, B) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, x A, y B) {
		a(ctx, x, y)
		b(ctx, x, y)
	}
}
