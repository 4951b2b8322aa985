package entity

// ReferralLimit caps the outstanding referrals of one employee
type ReferralLimit struct {
	ID         int64 `json:"id"`
	EmployeeID int64 `json:"employee_id"`
	LimitCount int   `json:"limit_count"`
	UsedCount  int   `json:"used_count"`
}

// Remaining returns how many referral slots are still free
func (l *ReferralLimit) Remaining() int {
	if l.UsedCount >= l.LimitCount {
		return 0
	}
	return l.LimitCount - l.UsedCount
}
