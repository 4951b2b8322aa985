package workflow

import "context"

// StateMachine tracks a referral's current status and validates requested changes
type StateMachine interface {
	// State returns the current status
	State() Status

	// Next returns the single forward status expected after the current one
	Next() (Status, bool)

	// Transition validates the request and moves to the target status
	Transition(ctx context.Context, to Status) error
}
