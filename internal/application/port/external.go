package port

import (
	"context"
	"io"
	"time"
)

// Notifier delivers a message to one address. Implementations report
// misconfiguration at send time, never at construction.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EventPublisher pushes serialized domain events to an external channel
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// EarningReportRow is one line of the earnings export
type EarningReportRow struct {
	EarningID     int64
	ReferralID    int64
	CandidateName string
	EmployeeName  string
	JobTitle      string
	AmountCents   int64
	CreatedAt     time.Time
}

// EarningsReportWriter renders earnings rows into a downloadable document
type EarningsReportWriter interface {
	ContentType() string
	Write(w io.Writer, rows []EarningReportRow) error
}
