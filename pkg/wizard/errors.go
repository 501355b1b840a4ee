package wizard

import "errors"

// Contract violations. A failed validation is never reported through
// these; see Outcome.Errors.
var (
	ErrNoSteps           = errors.New("wizard: no steps")
	ErrDuplicateStep     = errors.New("wizard: duplicate or empty step id")
	ErrDuplicateField    = errors.New("wizard: field declared by more than one step")
	ErrStepOutOfRange    = errors.New("wizard: step index out of range")
	ErrUnknownField      = errors.New("wizard: unknown field")
	ErrInvalidTransition = errors.New("wizard: transition not allowed from current step")
	ErrSubmitted         = errors.New("wizard: already submitted")
	ErrBusy              = errors.New("wizard: another action is pending")
	ErrNoValidator       = errors.New("wizard: validator is required")
)
