package signup

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gabrielmiguelok/stepform/pkg/core"
	"github.com/gabrielmiguelok/stepform/pkg/forms"
	"github.com/gabrielmiguelok/stepform/pkg/logging"
	"github.com/gabrielmiguelok/stepform/pkg/wizard"
)

// Events handled by the wizard component.
const (
	EventChange   = "change"
	EventNext     = "next"
	EventPrevious = "previous"
	EventSubmit   = "submit"
)

// Config builds wizard components.
type Config struct {
	// Definition defaults to DefaultDefinition.
	Definition *wizard.Definition

	// Sink receives submitted records. Defaults to LogSink.
	Sink wizard.Sink

	// Hooks are attached to every controller.
	Hooks wizard.Hooks

	Logger logging.Logger
}

// Factory builds the definition once and returns a factory that creates
// one independent wizard per session.
func Factory(cfg Config) (core.Factory, error) {
	if cfg.Definition == nil {
		cfg.Definition = DefaultDefinition()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger{}
	}
	if cfg.Sink == nil {
		cfg.Sink = LogSink(cfg.Logger)
	}

	steps, schema, err := cfg.Definition.Build()
	if err != nil {
		return nil, err
	}
	defaults := cfg.Definition.Defaults()

	return func() core.Component {
		return &Wizard{
			title:    cfg.Definition.Title,
			name:     cfg.Definition.Name,
			steps:    steps,
			schema:   schema,
			defaults: defaults,
			sink:     cfg.Sink,
			hooks:    cfg.Hooks,
			logger:   cfg.Logger,
		}
	}, nil
}

// Wizard is the live component that drives a wizard.Controller.
type Wizard struct {
	core.BaseComponent

	title    string
	name     string
	steps    *wizard.Registry
	schema   *forms.Schema
	defaults forms.Record
	sink     wizard.Sink
	hooks    wizard.Hooks
	logger   logging.Logger

	ctrl        *wizard.Controller
	submitError string
}

// Name returns the component name.
func (c *Wizard) Name() string {
	if c.title != "" {
		return c.title
	}
	return c.name
}

// Events lists the event names HandleEvent understands.
func (c *Wizard) Events() []string {
	return []string{EventChange, EventNext, EventPrevious, EventSubmit}
}

// Controller returns the underlying controller, nil before Mount.
func (c *Wizard) Controller() *wizard.Controller {
	return c.ctrl
}

// Mount creates the controller. Query parameters naming a field prefill
// it.
func (c *Wizard) Mount(ctx context.Context, params core.Params, session core.Session) error {
	logger := c.logger
	if sid := session.GetString("request_id"); sid != "" {
		logger = logger.With(logging.String("request_id", sid))
	}

	ctrl, err := wizard.New(c.steps, c.schema,
		wizard.WithSink(c.sink),
		wizard.WithHooks(c.hooks),
		wizard.WithLogger(logger),
		wizard.WithDefaults(c.defaults),
	)
	if err != nil {
		return err
	}
	if err := ctrl.SetValues(params); err != nil {
		return err
	}

	c.ctrl = ctrl
	c.sync()
	return nil
}

// HandleEvent dispatches client events. Actions that arrive while another
// is pending are dropped.
func (c *Wizard) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	if c.ctrl == nil {
		return errors.New("signup: event before mount")
	}
	defer c.sync()

	var err error
	switch event {
	case EventChange:
		err = c.ctrl.SetValue(stringValue(payload["field"]), stringValue(payload["value"]))

	case EventNext:
		if err = c.ctrl.SetValues(stringMap(payload)); err == nil {
			_, err = c.ctrl.GoNext(ctx)
		}

	case EventPrevious:
		_, err = c.ctrl.GoPrevious(ctx)

	case EventSubmit:
		if err = c.ctrl.SetValues(stringMap(payload)); err == nil {
			err = c.submit(ctx)
		}

	default:
		return fmt.Errorf("signup: unknown event %q", event)
	}

	if errors.Is(err, wizard.ErrBusy) {
		return nil
	}
	return err
}

func (c *Wizard) submit(ctx context.Context) error {
	out, err := c.ctrl.Submit(ctx)
	switch {
	case errors.Is(err, wizard.ErrBusy), errors.Is(err, wizard.ErrSubmitted), errors.Is(err, wizard.ErrInvalidTransition):
		return err
	case err != nil:
		// Delivery failed; stay on the review step so the user can retry.
		c.logger.Warn("signup delivery failed", logging.Err(err))
		c.submitError = "We could not submit your details. Please try again."
		return nil
	}
	if out.Submitted {
		c.submitError = ""
	}
	return nil
}

// Render renders the current step.
func (c *Wizard) Render(ctx context.Context) core.Renderer {
	return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		if c.ctrl == nil {
			return errors.New("signup: render before mount")
		}
		return wizardTemplate.Execute(w, c.view())
	})
}

// sync mirrors controller state into assigns so the router can tell
// whether a render is needed.
func (c *Wizard) sync() {
	st := c.ctrl.State()
	a := c.Assigns()
	a.Set("step", st.Current)
	a.Set("previous", st.Previous)
	a.Set("direction", st.Direction.String())
	a.Set("submitted", st.Submitted)
	a.Set("errors", map[string]string(c.ctrl.Errors()))
	a.Set("record", map[string]string(c.ctrl.Record()))
	a.Set("submit_error", c.submitError)
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

// stringMap flattens an event payload into field values. A nested
// "values" object takes precedence over top-level keys.
func stringMap(payload map[string]any) map[string]string {
	out := make(map[string]string, len(payload))
	for k, v := range payload {
		if k == "values" {
			continue
		}
		out[k] = stringValue(v)
	}
	if nested, ok := payload["values"].(map[string]any); ok {
		for k, v := range nested {
			out[k] = stringValue(v)
		}
	}
	return out
}
