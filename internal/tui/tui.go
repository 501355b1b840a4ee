// Package tui runs a wizard in the terminal with Bubble Tea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gabrielmiguelok/stepform/pkg/forms"
	"github.com/gabrielmiguelok/stepform/pkg/wizard"
)

// ErrCancelled is returned by Run when the user quits before submitting.
var ErrCancelled = errors.New("tui: cancelled")

type action int

const (
	actionNext action = iota
	actionPrevious
	actionSubmit
)

// actionDoneMsg carries the result of a controller action run off the
// update loop.
type actionDoneMsg struct {
	action  action
	outcome wizard.Outcome
	err     error
}

// Model is the Bubble Tea model for one wizard run.
type Model struct {
	ctx    context.Context
	ctrl   *wizard.Controller
	schema *forms.Schema
	title  string

	inputs  []textinput.Model
	names   []string
	focus   int
	spinner spinner.Model
	pending bool
	err     error

	submitted bool
	cancelled bool
	width     int
}

// New creates a model over ctrl. Labels and placeholders come from
// schema; it may be nil.
func New(ctx context.Context, ctrl *wizard.Controller, schema *forms.Schema, title string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleStepCurrent

	m := Model{
		ctx:     ctx,
		ctrl:    ctrl,
		schema:  schema,
		title:   title,
		spinner: sp,
	}
	m.loadStep()
	return m
}

// loadStep builds one text input per field of the active step.
func (m *Model) loadStep() {
	step := m.ctrl.Step()
	m.names = step.Fields
	m.inputs = make([]textinput.Model, len(step.Fields))
	m.focus = 0

	for i, name := range step.Fields {
		in := textinput.New()
		in.Prompt = "› "
		in.CharLimit = 256
		in.Width = 40
		if f, ok := m.field(name); ok {
			in.Placeholder = f.Placeholder
			if f.Type == forms.FieldEmail {
				in.Placeholder = firstNonEmpty(f.Placeholder, "name@example.com")
			}
		}
		in.SetValue(m.ctrl.Value(name))
		m.inputs[i] = in
	}
	if len(m.inputs) > 0 {
		m.inputs[0].Focus()
	}
}

func (m Model) field(name string) (forms.Field, bool) {
	if m.schema == nil {
		return forms.Field{}, false
	}
	return m.schema.Field(name)
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles key presses and action results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case actionDoneMsg:
		return m.finish(msg)

	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "tab", "down":
			m.moveFocus(1)
			return m, nil
		case "shift+tab", "up":
			m.moveFocus(-1)
			return m, nil
		case "enter":
			if m.ctrl.CanSubmit() {
				return m.start(actionSubmit)
			}
			return m.start(actionNext)
		case "ctrl+b":
			if m.ctrl.CanGoPrevious() {
				return m.start(actionPrevious)
			}
			return m, nil
		}
	}

	if len(m.inputs) == 0 || m.pending {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) moveFocus(delta int) {
	if len(m.inputs) == 0 {
		return
	}
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.inputs)) % len(m.inputs)
	m.inputs[m.focus].Focus()
}

// start copies the inputs into the controller and runs the action in a
// command. A second activation while one is pending is ignored.
func (m Model) start(a action) (tea.Model, tea.Cmd) {
	if m.pending {
		return m, nil
	}

	for i, name := range m.names {
		if err := m.ctrl.SetValue(name, m.inputs[i].Value()); err != nil {
			m.err = err
			return m, nil
		}
	}

	m.pending = true
	m.err = nil
	ctx, ctrl := m.ctx, m.ctrl
	run := func() tea.Msg {
		var (
			out wizard.Outcome
			err error
		)
		switch a {
		case actionNext:
			out, err = ctrl.GoNext(ctx)
		case actionPrevious:
			out, err = ctrl.GoPrevious(ctx)
		case actionSubmit:
			out, err = ctrl.Submit(ctx)
		}
		return actionDoneMsg{action: a, outcome: out, err: err}
	}
	return m, tea.Batch(run, m.spinner.Tick)
}

func (m Model) finish(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	m.pending = false

	switch {
	case errors.Is(msg.err, wizard.ErrBusy):
		return m, nil
	case msg.err != nil:
		m.err = msg.err
		return m, nil
	case msg.outcome.Submitted:
		m.submitted = true
		return m, tea.Quit
	case msg.outcome.Moved:
		m.loadStep()
	case msg.outcome.Rejected():
		m.focusFirstError(msg.outcome.Errors)
	}
	return m, nil
}

func (m *Model) focusFirstError(errs forms.Errors) {
	for i, name := range m.names {
		if errs.Has(name) {
			m.moveFocus(i - m.focus)
			return
		}
	}
}

// View renders the header, the active step and the key hints.
func (m Model) View() string {
	if m.submitted {
		return styleStepDone.Render("✓ Submitted. Thank you!") + "\n"
	}

	var b strings.Builder
	if m.title != "" {
		b.WriteString(styleTitle.Render(m.title))
		b.WriteString("\n")
	}
	b.WriteString(m.header())
	b.WriteString("\n\n")

	errs := m.ctrl.Errors()
	for i, name := range m.names {
		label := name
		if f, ok := m.field(name); ok && f.Label != "" {
			label = f.Label
		}
		b.WriteString(styleLabel.Render(label))
		b.WriteString("\n")
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n")
		if msg, ok := errs[name]; ok {
			b.WriteString(styleError.Render(msg))
			b.WriteString("\n")
		}
	}

	if m.ctrl.CanSubmit() {
		b.WriteString(m.review())
	}

	if m.err != nil {
		b.WriteString(styleError.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}
	if m.pending {
		b.WriteString(m.spinner.View() + " working…\n")
	}

	hints := []string{"tab", "next field", "esc", "quit"}
	if m.ctrl.CanGoPrevious() {
		hints = append([]string{"ctrl+b", "back"}, hints...)
	}
	if m.ctrl.CanSubmit() {
		hints = append([]string{"enter", "submit"}, hints...)
	} else {
		hints = append([]string{"enter", "next"}, hints...)
	}
	b.WriteString(hintBar(hints...))

	return styleBox.Render(b.String()) + "\n"
}

// header renders the step list with the current step highlighted and an
// arrow for the last move.
func (m Model) header() string {
	st := m.ctrl.State()
	steps := m.ctrl.Steps()
	parts := make([]string, len(steps))
	for i, s := range steps {
		label := fmt.Sprintf("%d %s", i+1, s.Name)
		switch {
		case i < st.Current:
			parts[i] = styleStepDone.Render("✓ " + label)
		case i == st.Current:
			parts[i] = styleStepCurrent.Render(arrow(st.Direction) + label)
		default:
			parts[i] = styleStepUpcoming.Render("  " + label)
		}
	}
	return strings.Join(parts, styleStepUpcoming.Render(" ─ "))
}

func (m Model) review() string {
	record := m.ctrl.Record()
	var b strings.Builder
	for _, s := range m.ctrl.Steps() {
		for _, name := range s.Fields {
			label := name
			if f, ok := m.field(name); ok && f.Label != "" {
				label = f.Label
			}
			fmt.Fprintf(&b, "%s: %s\n", styleStepUpcoming.Render(label), record[name])
		}
	}
	return b.String()
}

func arrow(d wizard.Direction) string {
	switch d {
	case wizard.DirectionForward:
		return "→ "
	case wizard.DirectionBackward:
		return "← "
	default:
		return "● "
	}
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}

// Submitted reports whether the wizard finished with a submission.
func (m Model) Submitted() bool {
	return m.submitted
}

// Cancelled reports whether the user quit.
func (m Model) Cancelled() bool {
	return m.cancelled
}

// Run drives ctrl interactively until it is submitted or the user quits,
// and returns the submitted record.
func Run(ctx context.Context, ctrl *wizard.Controller, schema *forms.Schema, title string, opts ...tea.ProgramOption) (forms.Record, error) {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	final, err := tea.NewProgram(New(ctx, ctrl, schema, title), opts...).Run()
	if err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return nil, fmt.Errorf("tui: unexpected model %T", final)
	}
	if !m.Submitted() {
		return nil, ErrCancelled
	}
	return ctrl.Record(), nil
}
