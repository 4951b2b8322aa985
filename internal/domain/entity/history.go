package entity

import (
	"time"

	"github.com/garyjia/referral-workflow/internal/domain/workflow"
)

// ReferralStatusChange is one row of a referral's status audit trail
type ReferralStatusChange struct {
	ID             int64           `json:"id"`
	ReferralID     int64           `json:"referral_id"`
	PreviousStatus workflow.Status `json:"previous_status"`
	NewStatus      workflow.Status `json:"new_status"`
	InterviewAt    *time.Time      `json:"interview_at,omitempty"`
	ChangedAt      time.Time       `json:"changed_at"`
}
