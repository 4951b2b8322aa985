package workflow

import (
	"fmt"
	"time"

	"github.com/garyjia/referral-workflow/internal/domain/entity"
)

const (
	interviewLayout    = "Monday, January 2, 2006 3:04 PM"
	confirmationLayout = "Monday, January 2, 2006"
)

// Message is a rendered notification
type Message struct {
	Subject string
	Body    string
}

// MessageBuilder renders notification content in a fixed time zone
type MessageBuilder struct {
	loc *time.Location
}

// NewMessageBuilder creates a builder rendering timestamps in loc (UTC when nil)
func NewMessageBuilder(loc *time.Location) *MessageBuilder {
	if loc == nil {
		loc = time.UTC
	}
	return &MessageBuilder{loc: loc}
}

func (b *MessageBuilder) Verified(ref *entity.Referral) Message {
	return Message{
		Subject: "Your referral has been verified",
		Body: fmt.Sprintf("Dear %s,\n\n"+
			"We are pleased to inform you that your referral for the position '%s' has been verified by our team.\n\n"+
			"Thank you for your interest. We will contact you with next steps if applicable.\n\n"+
			"Best regards,\nHR Team",
			ref.CandidateName, ref.JobTitle("the advertised role")),
	}
}

func (b *MessageBuilder) InterviewCandidate(ref *entity.Referral, at time.Time) Message {
	return Message{
		Subject: "Interview Scheduled",
		Body: fmt.Sprintf("Dear %s,\n\n"+
			"Your interview has been scheduled for %s. Please arrive 10 minutes early and bring any requested documents.\n\n"+
			"If you need to reschedule, please contact us.\n\n"+
			"Best regards,\nHR Team",
			ref.CandidateName, b.formatInterview(at)),
	}
}

// InterviewEmployee is the courtesy notice sent to the referring employee
func (b *MessageBuilder) InterviewEmployee(ref *entity.Referral, at time.Time) Message {
	return Message{
		Subject: fmt.Sprintf("Interview Scheduled for %s", ref.CandidateName),
		Body: fmt.Sprintf("Dear %s,\n\n"+
			"An interview for your referred candidate %s has been scheduled for %s. "+
			"We wanted to keep you informed for your convenience.\n\n"+
			"Best regards,\nHR Team",
			ref.EmployeeName(), ref.CandidateName, b.formatInterview(at)),
	}
}

func (b *MessageBuilder) Confirmed(ref *entity.Referral, confirmedAt time.Time) Message {
	return Message{
		Subject: "Congratulations — Your Referral Is Confirmed",
		Body: fmt.Sprintf("Dear %s,\n\n"+
			"Congratulations! We are delighted to confirm your referral for the position '%s'.\n\n"+
			"Start Date: %s\n"+
			"Details: Our HR representative will reach out with onboarding next steps and documentation.\n\n"+
			"Welcome aboard and best wishes,\nHR Team",
			ref.CandidateName, ref.JobTitle("the role"), confirmedAt.In(b.loc).Format(confirmationLayout)),
	}
}

func (b *MessageBuilder) formatInterview(at time.Time) string {
	return at.In(b.loc).Format(interviewLayout)
}
