package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a status change is not allowed
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidState is returned when a status is not a pipeline status
	ErrInvalidState = errors.New("invalid status")

	// ErrConfirmedLocked is returned when cancelling a confirmed referral
	ErrConfirmedLocked = errors.New("confirmed referral cannot be cancelled")
)

// TransitionError describes a rejected status change. It matches
// ErrInvalidTransition with errors.Is. Expected is the forward status
// the current one leads to, empty when there is none.
type TransitionError struct {
	From     Status
	To       Status
	Expected Status
	Reason   string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
	if e.Expected != "" {
		msg += fmt.Sprintf(", expected %s", e.Expected)
	}
	if e.Reason != "" {
		msg += fmt.Sprintf(" (%s)", e.Reason)
	}
	return msg
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
