package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielmiguelok/stepform/pkg/forms"
	"github.com/gabrielmiguelok/stepform/pkg/wizard"
)

func newWizard(t *testing.T, c *Collector) *wizard.Controller {
	t.Helper()
	steps := wizard.MustRegistry(
		wizard.Step{ID: "personal", Name: "Personal", Fields: []string{"email"}},
		wizard.Step{ID: "done", Name: "Done"},
	)
	schema := forms.MustSchema(
		forms.EmailField("email", "Email", "Invalid email address", forms.WithRequired()),
	)
	ctrl, err := wizard.New(steps, schema, wizard.WithHooks(c.Hooks(steps)))
	require.NoError(t, err)
	return ctrl
}

func TestHooksCountWizardActivity(t *testing.T) {
	c := New("")
	ctrl := newWizard(t, c)
	ctx := context.Background()

	require.NoError(t, ctrl.SetValue("email", "bad-email"))
	out, err := ctrl.GoNext(ctx)
	require.NoError(t, err)
	require.True(t, out.Rejected())
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ValidationFailures.WithLabelValues("personal")))

	require.NoError(t, ctrl.SetValue("email", "john@x.com"))
	_, err = ctrl.GoNext(ctx)
	require.NoError(t, err)
	_, err = ctrl.GoPrevious(ctx)
	require.NoError(t, err)
	_, err = ctrl.GoNext(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Transitions.WithLabelValues("forward")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Transitions.WithLabelValues("backward")))

	out, err = ctrl.Submit(ctx)
	require.NoError(t, err)
	require.True(t, out.Submitted)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Submissions))
}

func TestStepLabelFallsBackToIndex(t *testing.T) {
	assert.Equal(t, "4", stepLabel(nil, 4))
	steps := wizard.MustRegistry(wizard.Step{ID: "only"})
	assert.Equal(t, "only", stepLabel(steps, 0))
	assert.Equal(t, "3", stepLabel(steps, 3))
}

func TestSessionsAndEvents(t *testing.T) {
	c := New("")
	c.SetLiveSessions(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(c.LiveSessions))

	c.ObserveEvent("next", 2*time.Millisecond, nil)
	c.ObserveEvent("next", time.Millisecond, errors.New("busy"))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Events.WithLabelValues("next", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Events.WithLabelValues("next", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.EventDuration))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New("")
	c.Submissions.Inc()

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "stepform_submissions_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
