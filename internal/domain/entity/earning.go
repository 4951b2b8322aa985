package entity

import "time"

// Earning is a referral bonus record, created once when a referral is confirmed
type Earning struct {
	ID          int64     `json:"id"`
	ReferralID  int64     `json:"referral_id"`
	EmployeeID  *int64    `json:"employee_id,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	CreatedAt   time.Time `json:"created_at"`
}

// BonusFor returns the bonus owed for confirming a referral of the given job.
// A missing job or a non-positive bonus yields zero.
func BonusFor(job *Job) int64 {
	if job == nil || job.ReferralBonusCents <= 0 {
		return 0
	}
	return job.ReferralBonusCents
}
