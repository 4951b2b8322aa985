package workflow

import (
	domainwf "github.com/garyjia/referral-workflow/internal/domain/workflow"
)

// cancellationUnsupported is reported for every Cancelled request that is not
// already refused by the confirmed lock
const cancellationUnsupported = "cancellation is not supported"

// BuildReferralStateMachine creates a state machine configured for the referral pipeline
func BuildReferralStateMachine(initial domainwf.Status) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	// Forward pipeline: exactly one next status each
	builder.Configure(domainwf.StatusPending).Permit(domainwf.StatusVerified)
	builder.Configure(domainwf.StatusVerified).Permit(domainwf.StatusInterviewScheduled)
	builder.Configure(domainwf.StatusInterviewScheduled).Permit(domainwf.StatusConfirmed)

	// Rejection short-circuits the table from any active status
	builder.PermitFromAnyActive(domainwf.StatusRejected)

	// Cancellation has no pipeline rule yet
	builder.Forbid(domainwf.StatusConfirmed, domainwf.StatusCancelled, domainwf.ErrConfirmedLocked)
	builder.Unsupported(domainwf.StatusCancelled, cancellationUnsupported)

	// CONFIRMED, REJECTED and CANCELLED are terminal - no outgoing transitions

	return builder.Build(initial)
}
