package entity

import "errors"

// Domain errors for referral tracking
var (
	// Lookup errors
	ErrNotFound = errors.New("not found")

	// Limit errors
	ErrLimitBelowUsage = errors.New("referral limit cannot be lowered below used count")
	ErrLimitExhausted  = errors.New("referral limit exhausted")
	ErrInvalidLimit    = errors.New("referral limit must not be negative")

	// Persistence errors
	ErrConcurrentModification = errors.New("referral was modified concurrently")
)
