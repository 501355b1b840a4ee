// Package wizard implements a multi-step form controller. Each step owns a
// set of fields; moving forward validates only the current step's fields,
// moving back never validates, and submit validates the whole record and
// hands it to a Sink.
package wizard

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gabrielmiguelok/stepform/pkg/forms"
	"github.com/gabrielmiguelok/stepform/pkg/logging"
)

// Controller owns the position, record and errors of one form session.
//
// Actions are serialised: while GoNext, GoPrevious or Submit is in flight,
// further actions return ErrBusy. State is only written once the validator
// and sink have returned, so a cancelled action leaves it untouched.
// Accessors are safe to call from any goroutine.
type Controller struct {
	steps     *Registry
	validator Validator
	sink      Sink
	hooks     Hooks
	logger    logging.Logger

	pending atomic.Bool

	mu     sync.Mutex
	record forms.Record
	errs   forms.Errors
	state  State
}

// Option configures a Controller.
type Option func(*Controller)

// WithSink sets the submission sink. Without one, submitted records are
// discarded.
func WithSink(s Sink) Option {
	return func(c *Controller) {
		if s != nil {
			c.sink = s
		}
	}
}

// WithHooks adds lifecycle callbacks. May be given more than once.
func WithHooks(h Hooks) Option {
	return func(c *Controller) {
		c.hooks = c.hooks.Merge(h)
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDefaults seeds the record. Unknown fields are ignored.
func WithDefaults(values forms.Record) Option {
	return func(c *Controller) {
		for k, v := range values {
			if _, ok := c.steps.StepOf(k); ok {
				c.record[k] = v
			}
		}
	}
}

// New creates a controller positioned on the first step.
func New(steps *Registry, v Validator, opts ...Option) (*Controller, error) {
	if steps == nil || steps.Len() == 0 {
		return nil, ErrNoSteps
	}
	if v == nil {
		return nil, ErrNoValidator
	}

	c := &Controller{
		steps:     steps,
		validator: v,
		sink:      discardSink{},
		logger:    logging.NopLogger{},
		record:    make(forms.Record),
		errs:      make(forms.Errors),
	}
	for _, f := range steps.AllFields() {
		c.record[f] = ""
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Registry returns the step registry.
func (c *Controller) Registry() *Registry {
	return c.steps
}

// Steps returns all steps.
func (c *Controller) Steps() []Step {
	return c.steps.Steps()
}

// Step returns the active step.
func (c *Controller) Step() Step {
	c.mu.Lock()
	i := c.state.Current
	c.mu.Unlock()

	s, _ := c.steps.Step(i)
	return s
}

// State returns a snapshot of the position.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Record returns a copy of the record.
func (c *Controller) Record() forms.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record.Clone()
}

// Errors returns a copy of the current field errors.
func (c *Controller) Errors() forms.Errors {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errs.Clone()
}

// Value returns a field's value.
func (c *Controller) Value(field string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record[field]
}

// SetValue updates a field.
func (c *Controller) SetValue(field, value string) error {
	if _, ok := c.steps.StepOf(field); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Submitted {
		return ErrSubmitted
	}
	c.record[field] = value
	return nil
}

// SetValues updates every known field in values and ignores the rest.
func (c *Controller) SetValues(values map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Submitted {
		return ErrSubmitted
	}
	for k, v := range values {
		if _, ok := c.steps.StepOf(k); ok {
			c.record[k] = v
		}
	}
	return nil
}

// Pending reports whether an action is in flight.
func (c *Controller) Pending() bool {
	return c.pending.Load()
}

// CanGoNext reports whether a Next action is offered.
func (c *Controller) CanGoNext() bool {
	st := c.State()
	return !st.Submitted && st.Current < c.steps.Last()
}

// CanGoPrevious reports whether a Previous action is offered.
func (c *Controller) CanGoPrevious() bool {
	st := c.State()
	return !st.Submitted && st.Current > 0
}

// CanSubmit reports whether a Submit action is offered. With a single step
// this is the only action.
func (c *Controller) CanSubmit() bool {
	st := c.State()
	return !st.Submitted && st.Current == c.steps.Last()
}

// GoNext validates the active step's fields and, if they pass, moves to the
// following step. A validation failure is reported in Outcome.Errors with a
// nil error and leaves the position unchanged.
func (c *Controller) GoNext(ctx context.Context) (Outcome, error) {
	if !c.pending.CompareAndSwap(false, true) {
		return Outcome{}, ErrBusy
	}
	defer c.pending.Store(false)

	c.mu.Lock()
	from := c.state.Current
	if c.state.Submitted {
		c.mu.Unlock()
		return Outcome{From: from, To: from}, ErrSubmitted
	}
	if from >= c.steps.Last() {
		c.mu.Unlock()
		return Outcome{From: from, To: from}, fmt.Errorf("%w: next from final step %d", ErrInvalidTransition, from)
	}
	record := c.record.Clone()
	c.mu.Unlock()

	scope, err := c.steps.Fields(from)
	if err != nil {
		return Outcome{From: from, To: from}, err
	}

	res, err := c.validate(ctx, record, scope)
	if err != nil {
		return Outcome{From: from, To: from}, fmt.Errorf("wizard: validate step %d: %w", from, err)
	}

	if !res.OK() {
		c.reject(ctx, from, res.Errors)
		return Outcome{From: from, To: from, Errors: res.Errors.Clone()}, nil
	}

	c.mu.Lock()
	for _, f := range scope {
		delete(c.errs, f)
	}
	out := c.moveLocked(from + 1)
	c.mu.Unlock()

	c.afterMove(ctx, out)
	return out, nil
}

// GoPrevious moves to the preceding step without validating.
func (c *Controller) GoPrevious(ctx context.Context) (Outcome, error) {
	if !c.pending.CompareAndSwap(false, true) {
		return Outcome{}, ErrBusy
	}
	defer c.pending.Store(false)

	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	c.mu.Lock()
	from := c.state.Current
	if c.state.Submitted {
		c.mu.Unlock()
		return Outcome{From: from, To: from}, ErrSubmitted
	}
	if from == 0 {
		c.mu.Unlock()
		return Outcome{From: from, To: from}, fmt.Errorf("%w: previous from first step", ErrInvalidTransition)
	}
	out := c.moveLocked(from - 1)
	c.mu.Unlock()

	c.afterMove(ctx, out)
	return out, nil
}

// Submit validates every field and, if all pass, hands the record to the
// sink exactly once. A sink error is returned and the controller stays on
// the final step so the caller may retry.
func (c *Controller) Submit(ctx context.Context) (Outcome, error) {
	if !c.pending.CompareAndSwap(false, true) {
		return Outcome{}, ErrBusy
	}
	defer c.pending.Store(false)

	c.mu.Lock()
	at := c.state.Current
	if c.state.Submitted {
		c.mu.Unlock()
		return Outcome{From: at, To: at}, ErrSubmitted
	}
	if at != c.steps.Last() {
		c.mu.Unlock()
		return Outcome{From: at, To: at}, fmt.Errorf("%w: submit from step %d", ErrInvalidTransition, at)
	}
	record := c.record.Clone()
	c.mu.Unlock()

	res, err := c.validate(ctx, record, c.steps.AllFields())
	if err != nil {
		return Outcome{From: at, To: at}, fmt.Errorf("wizard: validate record: %w", err)
	}
	if !res.OK() {
		c.reject(ctx, at, res.Errors)
		return Outcome{From: at, To: at, Errors: res.Errors.Clone()}, nil
	}

	if err := c.sink.Submit(ctx, res.Valid.Clone()); err != nil {
		c.logger.Warn("submission failed", logging.Err(err))
		return Outcome{From: at, To: at}, fmt.Errorf("wizard: submit: %w", err)
	}

	c.mu.Lock()
	c.state.Submitted = true
	c.errs = make(forms.Errors)
	c.mu.Unlock()

	c.logger.Info("form submitted", logging.Int("fields", len(res.Valid)))
	if c.hooks.OnSubmitted != nil {
		c.hooks.OnSubmitted(ctx, res.Valid.Clone())
	}
	return Outcome{From: at, To: at, Submitted: true}, nil
}

// validate runs the validator and treats a context that ended while it ran
// as a failure, so a late result is never applied.
func (c *Controller) validate(ctx context.Context, record forms.Record, scope []string) (forms.Result, error) {
	res, err := c.validator.Validate(ctx, record, scope)
	if err != nil {
		return forms.Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return forms.Result{}, err
	}
	return res, nil
}

func (c *Controller) reject(ctx context.Context, step int, errs forms.Errors) {
	c.mu.Lock()
	c.errs = errs.Clone()
	c.mu.Unlock()

	c.logger.Debug("validation failed",
		logging.Int("step", step),
		logging.Strings("fields", errs.Fields()),
	)
	if c.hooks.OnRejected != nil {
		c.hooks.OnRejected(ctx, step, errs.Clone())
	}
}

func (c *Controller) moveLocked(to int) Outcome {
	from := c.state.Current
	dir := directionOf(from, to)
	c.state.Previous = from
	c.state.Current = to
	c.state.Direction = dir
	return Outcome{Moved: true, From: from, To: to, Direction: dir}
}

func (c *Controller) afterMove(ctx context.Context, out Outcome) {
	step, _ := c.steps.Step(out.To)
	c.logger.Debug("step changed",
		logging.Int("from", out.From),
		logging.Int("to", out.To),
		logging.String("direction", out.Direction.String()),
	)
	if c.hooks.OnTransition != nil {
		c.hooks.OnTransition(ctx, Transition{
			From:      out.From,
			To:        out.To,
			Direction: out.Direction,
			StepID:    step.ID,
		})
	}
}
