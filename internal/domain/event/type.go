package event

// Type identifies the type of domain event
type Type string

const (
	TypeReferralStatusChanged Type = "referral.status_changed"
	TypeEarningRecorded       Type = "earning.recorded"
	TypeLimitUpdated          Type = "referral_limit.updated"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeReferralStatusChanged,
		TypeEarningRecorded,
		TypeLimitUpdated:
		return true
	default:
		return false
	}
}
