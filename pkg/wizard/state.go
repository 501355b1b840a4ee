package wizard

import "github.com/gabrielmiguelok/stepform/pkg/forms"

// Direction is the direction of the most recent transition.
type Direction int

const (
	// DirectionNone is reported before the first transition.
	DirectionNone Direction = iota
	DirectionForward
	DirectionBackward
)

func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionBackward:
		return "backward"
	default:
		return "none"
	}
}

// Sign returns 1 for forward, -1 for backward and 0 otherwise. Presentation
// uses it as the slide offset multiplier.
func (d Direction) Sign() int {
	switch d {
	case DirectionForward:
		return 1
	case DirectionBackward:
		return -1
	default:
		return 0
	}
}

func directionOf(from, to int) Direction {
	switch {
	case to > from:
		return DirectionForward
	case to < from:
		return DirectionBackward
	default:
		return DirectionNone
	}
}

// State is a snapshot of a controller's position.
type State struct {
	// Current is the active step index.
	Current int

	// Previous is the value Current held before the last transition.
	Previous int

	// Direction of the last transition.
	Direction Direction

	// Submitted is set once the record has been handed to the sink.
	Submitted bool
}

// Outcome describes the effect of one action.
type Outcome struct {
	// Moved is true when the step index changed.
	Moved bool

	From      int
	To        int
	Direction Direction

	// Submitted is true when this action delivered the record.
	Submitted bool

	// Errors holds the per-field failures when validation blocked the
	// action. Empty otherwise.
	Errors forms.Errors
}

// Rejected reports whether validation blocked the action.
func (o Outcome) Rejected() bool {
	return len(o.Errors) > 0
}
