package entity

// RecipientRole identifies who a notification is addressed to
type RecipientRole string

const (
	RecipientCandidate RecipientRole = "candidate"
	RecipientEmployee  RecipientRole = "employee"
)

// DeliveryStatus is the best-effort outcome of one notification attempt
type DeliveryStatus string

const (
	DeliverySent             DeliveryStatus = "SENT"
	DeliverySkippedNoAddress DeliveryStatus = "SKIPPED_NO_ADDRESS"
	DeliveryFailed           DeliveryStatus = "FAILED"
)

// NotificationOutcome records what happened to a single notification side effect
type NotificationOutcome struct {
	Recipient RecipientRole  `json:"recipient"`
	Address   string         `json:"address,omitempty"`
	Subject   string         `json:"subject"`
	Status    DeliveryStatus `json:"status"`
	Reason    string         `json:"reason,omitempty"`
}

// Delivered reports whether the notification was sent
func (o NotificationOutcome) Delivered() bool {
	return o.Status == DeliverySent
}

// CountDelivered returns how many outcomes were sent
func CountDelivered(outcomes []NotificationOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Delivered() {
			n++
		}
	}
	return n
}
