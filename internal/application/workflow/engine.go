package workflow

import (
	"context"
	"time"

	"github.com/garyjia/referral-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/referral-workflow/internal/domain/workflow"
)

// ReferralEngine validates and applies referral status changes and runs the
// side effects bound to the destination status
type ReferralEngine interface {
	// RequestTransition moves a referral to the requested status. Validation
	// errors are returned before anything is written; side-effect failures
	// after the commit are reported only through the result.
	RequestTransition(ctx context.Context, req TransitionRequest) (*TransitionResult, error)

	// CurrentStatus returns the stored status of a referral
	CurrentStatus(ctx context.Context, referralID int64) (domainwf.Status, error)
}

// TransitionRequest is a caller's request to change a referral's status
type TransitionRequest struct {
	ReferralID  int64
	Status      domainwf.Status
	InterviewAt *time.Time
}

// TransitionResult reports a committed transition
type TransitionResult struct {
	Success           bool                         `json:"success"`
	ReferralID        int64                        `json:"referral_id"`
	PreviousStatus    domainwf.Status              `json:"previous_status"`
	Status            domainwf.Status              `json:"status"`
	NotificationsSent int                          `json:"notifications_sent"`
	ScheduledAt       *time.Time                   `json:"scheduled_at,omitempty"`
	Notifications     []entity.NotificationOutcome `json:"notifications,omitempty"`
	EarningID         *int64                       `json:"earning_id,omitempty"`
}

func (r *TransitionResult) record(outcome entity.NotificationOutcome) {
	r.Notifications = append(r.Notifications, outcome)
	r.NotificationsSent = entity.CountDelivered(r.Notifications)
}
