package workflow

import (
	"fmt"
	"strings"
)

// Status represents a referral's position in the hiring pipeline
type Status string

const (
	StatusPending            Status = "Pending"
	StatusVerified           Status = "Verified"
	StatusInterviewScheduled Status = "Interview Scheduled"
	StatusConfirmed          Status = "Confirmed"
	StatusRejected           Status = "Rejected"
	StatusCancelled          Status = "Cancelled"
)

var validStatuses = map[Status]bool{
	StatusPending:            true,
	StatusVerified:           true,
	StatusInterviewScheduled: true,
	StatusConfirmed:          true,
	StatusRejected:           true,
	StatusCancelled:          true,
}

var terminalStatuses = map[Status]bool{
	StatusConfirmed: true,
	StatusRejected:  true,
	StatusCancelled: true,
}

// IsTerminal returns true if no further transitions may leave the status
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// String returns the wire label of the status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is one of the pipeline statuses
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// ParseStatus converts a wire label to a Status. The compact form
// "InterviewScheduled" is accepted alongside "Interview Scheduled".
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.TrimSpace(raw))
	if s.IsValid() {
		return s, nil
	}
	if strings.EqualFold(string(s), "InterviewScheduled") {
		return StatusInterviewScheduled, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidState, raw)
}
