package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/gabrielmiguelok/stepform/pkg/forms"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func signupSteps() []Step {
	return []Step{
		{ID: "1", Name: "Personal Information", Fields: []string{"firstName", "lastName", "email"}},
		{ID: "2", Name: "Address", Fields: []string{"country", "state", "city", "street", "zip"}},
		{ID: "3", Name: "Complete"},
	}
}

func signupSchema() *forms.Schema {
	return forms.MustSchema(
		forms.TextField("firstName", "First name", forms.WithRequired("First name is required")),
		forms.TextField("lastName", "Last name", forms.WithRequired("Last name is required")),
		forms.EmailField("email", "Email address", "Invalid email address", forms.WithRequired("Email is required")),
		forms.TextField("country", "Country", forms.WithRequired("Country is required")),
		forms.TextField("state", "State", forms.WithRequired("State is required")),
		forms.TextField("city", "City", forms.WithRequired("City is required")),
		forms.TextField("street", "Street", forms.WithRequired("Street is required")),
		forms.TextField("zip", "ZIP", forms.WithRequired("Zip is required")),
	)
}

func validRecord() forms.Record {
	return forms.Record{
		"firstName": "John",
		"lastName":  "Doe",
		"email":     "john@x.com",
		"country":   "US",
		"state":     "NY",
		"city":      "New York",
		"street":    "5th Avenue",
		"zip":       "10001",
	}
}

type recordingSink struct {
	mu      sync.Mutex
	records []forms.Record
	err     error
}

func (s *recordingSink) Submit(_ context.Context, r forms.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return s.err
}

func (s *recordingSink) calls() []forms.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]forms.Record(nil), s.records...)
}

func newController(t *testing.T, opts ...Option) *Controller {
	t.Helper()
	c, err := New(MustRegistry(signupSteps()...), signupSchema(), opts...)
	require.NoError(t, err)
	return c
}

// advance moves c to step i using a valid record.
func advance(t *testing.T, c *Controller, i int) {
	t.Helper()
	require.NoError(t, c.SetValues(validRecord()))
	for c.State().Current < i {
		out, err := c.GoNext(context.Background())
		require.NoError(t, err)
		require.True(t, out.Moved)
	}
}

func TestNew(t *testing.T) {
	_, err := New(nil, signupSchema())
	assert.ErrorIs(t, err, ErrNoSteps)

	_, err = New(MustRegistry(signupSteps()...), nil)
	assert.ErrorIs(t, err, ErrNoValidator)

	c := newController(t, WithDefaults(forms.Record{"country": "US", "unknown": "x"}))
	assert.Equal(t, State{}, c.State())
	assert.Equal(t, "US", c.Value("country"))
	assert.Len(t, c.Record(), 8)
	assert.Empty(t, c.Errors())
}

func TestScenario_BadEmailThenFixed(t *testing.T) {
	c := newController(t)
	ctx := context.Background()

	require.NoError(t, c.SetValue("firstName", "John"))
	require.NoError(t, c.SetValue("lastName", "Doe"))
	require.NoError(t, c.SetValue("email", "bad-email"))

	out, err := c.GoNext(ctx)
	require.NoError(t, err)
	assert.False(t, out.Moved)
	assert.Equal(t, forms.Errors{"email": "Invalid email address"}, out.Errors)
	assert.Equal(t, forms.Errors{"email": "Invalid email address"}, c.Errors())
	assert.Equal(t, 0, c.State().Current)

	require.NoError(t, c.SetValue("email", "john@x.com"))
	out, err = c.GoNext(ctx)
	require.NoError(t, err)
	assert.True(t, out.Moved)
	assert.Empty(t, c.Errors())

	st := c.State()
	assert.Equal(t, 1, st.Current)
	assert.Equal(t, 0, st.Previous)
	assert.Equal(t, DirectionForward, st.Direction)
}

func TestGoNext_ValidStepAdvances(t *testing.T) {
	for i := 0; i < 2; i++ {
		c := newController(t)
		advance(t, c, i)

		out, err := c.GoNext(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Outcome{Moved: true, From: i, To: i + 1, Direction: DirectionForward}, out)
		assert.Equal(t, State{Current: i + 1, Previous: i, Direction: DirectionForward}, c.State())
	}
}

func TestGoNext_InvalidStepReportsOnlyItsFields(t *testing.T) {
	tests := []struct {
		step    int
		blank   []string
		wantErr forms.Errors
	}{
		{0, []string{"lastName"}, forms.Errors{"lastName": "Last name is required"}},
		{0, []string{"firstName", "email"}, forms.Errors{
			"firstName": "First name is required",
			"email":     "Email is required",
		}},
		{1, []string{"zip", "city"}, forms.Errors{
			"zip":  "Zip is required",
			"city": "City is required",
		}},
	}

	for _, tt := range tests {
		c := newController(t)
		advance(t, c, tt.step)
		for _, f := range tt.blank {
			require.NoError(t, c.SetValue(f, ""))
		}
		// Invalid fields on other steps must not be reported.
		if tt.step == 0 {
			require.NoError(t, c.SetValue("zip", ""))
		}
		before := c.State()

		out, err := c.GoNext(context.Background())
		require.NoError(t, err)
		assert.False(t, out.Moved)
		assert.True(t, out.Rejected())
		if diff := cmp.Diff(tt.wantErr, out.Errors); diff != "" {
			t.Errorf("step %d errors (-want +got):\n%s", tt.step, diff)
		}
		assert.Equal(t, before, c.State())
	}
}

func TestGoNext_ErrorsReplacedNotMerged(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.SetValues(validRecord()))
	require.NoError(t, c.SetValue("firstName", ""))

	_, err := c.GoNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, forms.Errors{"firstName": "First name is required"}, c.Errors())

	require.NoError(t, c.SetValue("firstName", "John"))
	require.NoError(t, c.SetValue("email", "nope"))
	_, err = c.GoNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, forms.Errors{"email": "Invalid email address"}, c.Errors())
}

func TestGoNext_FromFinalStep(t *testing.T) {
	c := newController(t)
	advance(t, c, 2)

	_, err := c.GoNext(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 2, c.State().Current)
}

func TestGoPrevious_NeverValidates(t *testing.T) {
	for i := 1; i <= 2; i++ {
		c := newController(t)
		advance(t, c, i)
		for _, f := range c.Registry().AllFields() {
			require.NoError(t, c.SetValue(f, ""))
		}

		out, err := c.GoPrevious(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Outcome{Moved: true, From: i, To: i - 1, Direction: DirectionBackward}, out)
		assert.Equal(t, State{Current: i - 1, Previous: i, Direction: DirectionBackward}, c.State())
		assert.Empty(t, c.Errors())
	}
}

func TestGoPrevious_FromFirstStep(t *testing.T) {
	c := newController(t)
	_, err := c.GoPrevious(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, State{}, c.State())
}

func TestPreviousThenNextRoundTrip(t *testing.T) {
	c := newController(t)
	advance(t, c, 2)

	_, err := c.GoPrevious(context.Background())
	require.NoError(t, err)
	_, err = c.GoNext(context.Background())
	require.NoError(t, err)

	assert.Equal(t, State{Current: 2, Previous: 1, Direction: DirectionForward}, c.State())
}

func TestSubmit_Valid(t *testing.T) {
	sink := &recordingSink{}
	var submitted []forms.Record
	c := newController(t, WithSink(sink), WithHooks(Hooks{
		OnSubmitted: func(_ context.Context, r forms.Record) { submitted = append(submitted, r) },
	}))
	advance(t, c, 2)

	out, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Submitted)
	assert.True(t, c.State().Submitted)

	calls := sink.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, validRecord(), calls[0])
	assert.Len(t, submitted, 1)

	_, err = c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitted)
	_, err = c.GoPrevious(context.Background())
	assert.ErrorIs(t, err, ErrSubmitted)
	assert.ErrorIs(t, c.SetValue("email", "x@y.com"), ErrSubmitted)
	assert.Len(t, sink.calls(), 1)

	assert.False(t, c.CanSubmit())
	assert.False(t, c.CanGoPrevious())
	assert.False(t, c.CanGoNext())
}

func TestSubmit_InvalidAnywhere(t *testing.T) {
	sink := &recordingSink{}
	c := newController(t, WithSink(sink))
	advance(t, c, 2)
	require.NoError(t, c.SetValue("email", "bad-email"))
	require.NoError(t, c.SetValue("street", ""))

	out, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.False(t, out.Submitted)
	assert.Equal(t, forms.Errors{
		"email":  "Invalid email address",
		"street": "Street is required",
	}, out.Errors)
	assert.Equal(t, 2, c.State().Current)
	assert.False(t, c.State().Submitted)
	assert.Empty(t, sink.calls())
}

func TestSubmit_NotOnFinalStep(t *testing.T) {
	c := newController(t)
	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSubmit_SinkErrorAllowsRetry(t *testing.T) {
	sink := &recordingSink{err: errors.New("unavailable")}
	c := newController(t, WithSink(sink))
	advance(t, c, 2)

	_, err := c.Submit(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, sink.err)
	assert.False(t, c.State().Submitted)

	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()

	out, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Submitted)
	assert.Len(t, sink.calls(), 2)
}

func TestSingleStepOnlySubmits(t *testing.T) {
	reg := MustRegistry(Step{ID: "only", Fields: []string{"email"}})
	schema := forms.MustSchema(forms.EmailField("email", "Email", "Invalid email address", forms.WithRequired()))
	sink := &recordingSink{}
	c, err := New(reg, schema, WithSink(sink))
	require.NoError(t, err)

	assert.False(t, c.CanGoNext())
	assert.False(t, c.CanGoPrevious())
	assert.True(t, c.CanSubmit())

	_, err = c.GoNext(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, c.SetValue("email", "a@b.co"))
	out, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Submitted)
	assert.Equal(t, []forms.Record{{"email": "a@b.co"}}, sink.calls())
}

func TestSetValue_UnknownField(t *testing.T) {
	c := newController(t)
	assert.ErrorIs(t, c.SetValue("phone", "1"), ErrUnknownField)
}

// blockingValidator holds every call until released or the context ends.
type blockingValidator struct {
	inner   Validator
	started chan struct{}
	release chan struct{}
}

func newBlockingValidator() *blockingValidator {
	return &blockingValidator{
		inner:   signupSchema(),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (b *blockingValidator) Validate(ctx context.Context, r forms.Record, scope []string) (forms.Result, error) {
	b.started <- struct{}{}
	select {
	case <-b.release:
	case <-ctx.Done():
		return forms.Result{}, ctx.Err()
	}
	return b.inner.Validate(context.Background(), r, scope)
}

func TestPendingActionIgnoresSecondActivation(t *testing.T) {
	v := newBlockingValidator()
	c, err := New(MustRegistry(signupSteps()...), v)
	require.NoError(t, err)
	require.NoError(t, c.SetValues(validRecord()))

	type result struct {
		out Outcome
		err error
	}
	done := make(chan result)
	go func() {
		out, err := c.GoNext(context.Background())
		done <- result{out, err}
	}()

	<-v.started
	assert.True(t, c.Pending())

	_, err = c.GoNext(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	_, err = c.GoPrevious(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, State{}, c.State())

	close(v.release)
	res := <-done
	require.NoError(t, res.err)
	assert.True(t, res.out.Moved)
	assert.Equal(t, 1, c.State().Current)
	assert.False(t, c.Pending())
}

func TestCancelWhilePendingLeavesStateUnchanged(t *testing.T) {
	v := newBlockingValidator()
	c, err := New(MustRegistry(signupSteps()...), v)
	require.NoError(t, err)
	require.NoError(t, c.SetValue("email", "bad-email"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		_, err := c.GoNext(ctx)
		done <- err
	}()

	<-v.started
	cancel()
	err = <-done

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, State{}, c.State())
	assert.Empty(t, c.Errors())
	assert.False(t, c.Pending())
}

func TestLateResultAfterCancelIsDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	v := ValidatorFunc(func(_ context.Context, r forms.Record, scope []string) (forms.Result, error) {
		cancel()
		return forms.Result{Valid: r.Subset(scope)}, nil
	})
	c, err := New(MustRegistry(signupSteps()...), v)
	require.NoError(t, err)

	_, err = c.GoNext(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, c.State().Current)
}

func TestHooks(t *testing.T) {
	var transitions []Transition
	var rejected []int
	c := newController(t,
		WithHooks(Hooks{OnTransition: func(_ context.Context, tr Transition) { transitions = append(transitions, tr) }}),
		WithHooks(Hooks{OnRejected: func(_ context.Context, step int, _ forms.Errors) { rejected = append(rejected, step) }}),
	)

	_, err := c.GoNext(context.Background())
	require.NoError(t, err)
	advance(t, c, 1)
	_, err = c.GoPrevious(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{0}, rejected)
	assert.Equal(t, []Transition{
		{From: 0, To: 1, Direction: DirectionForward, StepID: "2"},
		{From: 1, To: 0, Direction: DirectionBackward, StepID: "1"},
	}, transitions)
}
