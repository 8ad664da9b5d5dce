package wizard

import "errors"

var (
	// errors
	ErrSessionNotFound    = errors.New("wizard session not found")
	ErrSubmissionInFlight = errors.New("step submission already in progress")
	ErrNoConference       = errors.New("basic info must be submitted first")
	ErrModeMismatch       = errors.New("operation not available in this wizard mode")
	ErrStepLocked         = errors.New("required previous steps are not completed")
	ErrIncomplete         = errors.New("required steps are not completed")
	ErrInvalidStep        = errors.New("invalid step")
	ErrEntityNotFound     = errors.New("entity not found")
)
