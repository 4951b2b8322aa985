package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/referral-workflow/internal/application/dispatcher"
	"github.com/garyjia/referral-workflow/internal/application/port"
	"github.com/garyjia/referral-workflow/internal/domain/entity"
	"github.com/garyjia/referral-workflow/internal/domain/event"
	domainwf "github.com/garyjia/referral-workflow/internal/domain/workflow"
	"github.com/garyjia/referral-workflow/pkg/utils"
)

// engineImpl is the concrete implementation of ReferralEngine
type engineImpl struct {
	referralRepo port.ReferralRepository
	earningRepo  port.EarningRepository
	historyRepo  port.HistoryRepository
	txManager    port.TransactionManager
	notifier     port.Notifier
	dispatcher   dispatcher.Dispatcher
	messages     *MessageBuilder
	logger       *zap.Logger
	now          func() time.Time

	locks *referralLocks
}

// EngineOption configures the referral engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithClock overrides the clock used for confirmation and history timestamps
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// WithLocation sets the time zone used to render notification timestamps
func WithLocation(loc *time.Location) EngineOption {
	return func(e *engineImpl) {
		e.messages = NewMessageBuilder(loc)
	}
}

// NewEngine creates a new referral engine
func NewEngine(
	referralRepo port.ReferralRepository,
	earningRepo port.EarningRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	notifier port.Notifier,
	logger *zap.Logger,
	opts ...EngineOption,
) ReferralEngine {
	e := &engineImpl{
		referralRepo: referralRepo,
		earningRepo:  earningRepo,
		historyRepo:  historyRepo,
		txManager:    txManager,
		notifier:     notifier,
		messages:     NewMessageBuilder(time.UTC),
		logger:       logger,
		now:          time.Now,
		locks:        newReferralLocks(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RequestTransition validates and commits a status change, then runs its side effects
func (e *engineImpl) RequestTransition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	referral, previous, err := e.commit(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &TransitionResult{
		Success:        true,
		ReferralID:     referral.ID,
		PreviousStatus: previous,
		Status:         referral.Status,
		ScheduledAt:    referral.InterviewAt,
	}

	e.logger.Info("Referral status changed",
		zap.Int64("referral_id", referral.ID),
		zap.String("from", previous.String()),
		zap.String("to", referral.Status.String()))

	e.runSideEffects(ctx, referral, result)
	e.emitStatusChanged(ctx, result)

	return result, nil
}

// CurrentStatus returns the stored status of a referral
func (e *engineImpl) CurrentStatus(ctx context.Context, referralID int64) (domainwf.Status, error) {
	referral, err := e.load(ctx, referralID)
	if err != nil {
		return "", err
	}
	return referral.Status, nil
}

// commit holds the referral lock across load, validate and write
func (e *engineImpl) commit(ctx context.Context, req TransitionRequest) (*entity.Referral, domainwf.Status, error) {
	unlock := e.locks.Lock(req.ReferralID)
	defer unlock()

	referral, err := e.load(ctx, req.ReferralID)
	if err != nil {
		return nil, "", err
	}

	previous := referral.Status
	if !previous.IsValid() {
		return nil, "", fmt.Errorf("%w: referral %d has status %q", domainwf.ErrInvalidState, referral.ID, previous)
	}

	machine := BuildReferralStateMachine(previous)
	if err := machine.Transition(ctx, req.Status); err != nil {
		e.logger.Warn("Rejected referral transition",
			zap.Int64("referral_id", referral.ID),
			zap.String("from", previous.String()),
			zap.String("to", req.Status.String()),
			zap.Error(err))
		return nil, "", err
	}

	changedAt := e.now()
	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.referralRepo.UpdateStatus(txCtx, referral.ID, previous, req.Status, req.InterviewAt, changedAt); err != nil {
			return err
		}

		change := &entity.ReferralStatusChange{
			ReferralID:     referral.ID,
			PreviousStatus: previous,
			NewStatus:      req.Status,
			InterviewAt:    req.InterviewAt,
			ChangedAt:      changedAt,
		}
		if err := e.historyRepo.Create(txCtx, change); err != nil {
			return fmt.Errorf("failed to create history record: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, "", err
	}

	referral.Status = req.Status
	referral.InterviewAt = req.InterviewAt
	referral.UpdatedAt = changedAt

	return referral, previous, nil
}

func (e *engineImpl) load(ctx context.Context, referralID int64) (*entity.Referral, error) {
	referral, err := e.referralRepo.GetByID(ctx, referralID)
	if err != nil {
		return nil, fmt.Errorf("failed to load referral %d: %w", referralID, err)
	}
	if referral == nil {
		return nil, fmt.Errorf("referral %d: %w", referralID, entity.ErrNotFound)
	}
	return referral, nil
}

// runSideEffects performs the work bound to the destination status.
// Each step is isolated so one failure never skips the next.
func (e *engineImpl) runSideEffects(ctx context.Context, referral *entity.Referral, result *TransitionResult) {
	switch referral.Status {
	case domainwf.StatusVerified:
		e.guard(referral.ID, "verification notice", func() {
			result.record(e.notify(ctx, entity.RecipientCandidate, referral.CandidateEmail, e.messages.Verified(referral)))
		})

	case domainwf.StatusInterviewScheduled:
		if referral.InterviewAt == nil {
			return
		}
		at := *referral.InterviewAt
		e.guard(referral.ID, "candidate interview notice", func() {
			result.record(e.notify(ctx, entity.RecipientCandidate, referral.CandidateEmail, e.messages.InterviewCandidate(referral, at)))
		})
		e.guard(referral.ID, "employee interview notice", func() {
			result.record(e.notify(ctx, entity.RecipientEmployee, referral.EmployeeEmail(), e.messages.InterviewEmployee(referral, at)))
		})

	case domainwf.StatusConfirmed:
		confirmedAt := referral.UpdatedAt
		e.guard(referral.ID, "confirmation notice", func() {
			result.record(e.notify(ctx, entity.RecipientCandidate, referral.CandidateEmail, e.messages.Confirmed(referral, confirmedAt)))
		})
		e.guard(referral.ID, "earning", func() {
			e.recordEarning(ctx, referral, confirmedAt, result)
		})
	}
}

// guard recovers a panicking side effect and logs it
func (e *engineImpl) guard(referralID int64, step string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Side effect panicked",
				zap.Int64("referral_id", referralID),
				zap.String("step", step),
				zap.Any("panic", r))
		}
	}()
	fn()
}

func (e *engineImpl) notify(ctx context.Context, role entity.RecipientRole, address string, msg Message) entity.NotificationOutcome {
	outcome := entity.NotificationOutcome{
		Recipient: role,
		Address:   strings.TrimSpace(address),
		Subject:   msg.Subject,
	}

	if outcome.Address == "" {
		outcome.Status = entity.DeliverySkippedNoAddress
		return outcome
	}

	if err := e.notifier.Send(ctx, outcome.Address, msg.Subject, msg.Body); err != nil {
		outcome.Status = entity.DeliveryFailed
		outcome.Reason = err.Error()
		e.logger.Warn("Notification failed",
			zap.String("recipient", string(role)),
			zap.String("to", outcome.Address),
			zap.Error(err))
		return outcome
	}

	outcome.Status = entity.DeliverySent
	e.logger.Info("Notification sent",
		zap.String("recipient", string(role)),
		zap.String("to", outcome.Address),
		zap.String("subject", msg.Subject))
	return outcome
}

func (e *engineImpl) recordEarning(ctx context.Context, referral *entity.Referral, confirmedAt time.Time, result *TransitionResult) {
	earning := &entity.Earning{
		ReferralID:  referral.ID,
		EmployeeID:  referral.EmployeeID,
		AmountCents: entity.BonusFor(referral.Job),
		CreatedAt:   confirmedAt,
	}

	if err := e.earningRepo.Add(ctx, earning); err != nil {
		e.logger.Error("Failed to record earning",
			zap.Int64("referral_id", referral.ID),
			zap.Error(err))
		return
	}

	id := earning.ID
	result.EarningID = &id

	e.dispatch(ctx, event.TypeEarningRecorded, referral.ID, map[string]interface{}{
		"earning_id":   earning.ID,
		"amount_cents": earning.AmountCents,
	})
}

func (e *engineImpl) emitStatusChanged(ctx context.Context, result *TransitionResult) {
	payload := map[string]interface{}{
		"previous_status":    result.PreviousStatus.String(),
		"new_status":         result.Status.String(),
		"notifications_sent": result.NotificationsSent,
	}
	if result.ScheduledAt != nil {
		payload["interview_at"] = result.ScheduledAt.UTC().Format(time.RFC3339)
	}
	e.dispatch(ctx, event.TypeReferralStatusChanged, result.ReferralID, payload)
}

// dispatch fires an event asynchronously if a dispatcher is configured
func (e *engineImpl) dispatch(ctx context.Context, eventType event.Type, referralID int64, payload map[string]interface{}) {
	if e.dispatcher == nil {
		return
	}
	evt := event.NewEventWithCorrelation(eventType, referralID, payload, utils.RequestIDFromContext(ctx))
	e.dispatcher.DispatchAsync(ctx, evt)
}

// IsValidationError reports whether err was raised before anything was written
func IsValidationError(err error) bool {
	return errors.Is(err, domainwf.ErrInvalidTransition) ||
		errors.Is(err, domainwf.ErrInvalidState) ||
		errors.Is(err, domainwf.ErrConfirmedLocked)
}
