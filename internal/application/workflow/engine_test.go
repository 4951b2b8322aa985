package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/referral-workflow/internal/domain/entity"
	"github.com/garyjia/referral-workflow/internal/domain/event"
	domainwf "github.com/garyjia/referral-workflow/internal/domain/workflow"
	"github.com/garyjia/referral-workflow/pkg/utils"
)

var fixedNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

type engineFixture struct {
	referrals  *mockReferralRepo
	earnings   *mockEarningRepo
	history    *mockHistoryRepo
	notifier   *mockNotifier
	dispatcher *mockDispatcher
	engine     ReferralEngine
}

func newFixture(referrals ...*entity.Referral) *engineFixture {
	f := &engineFixture{
		referrals:  newMockReferralRepo(referrals...),
		earnings:   &mockEarningRepo{},
		history:    &mockHistoryRepo{},
		notifier:   &mockNotifier{},
		dispatcher: &mockDispatcher{},
	}
	f.engine = NewEngine(
		f.referrals, f.earnings, f.history,
		&mockTxManager{repo: f.referrals},
		f.notifier,
		zap.NewNop(),
		WithDispatcher(f.dispatcher),
		WithClock(func() time.Time { return fixedNow }),
	)
	return f
}

func int64Ptr(v int64) *int64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func newReferral(id int64, status domainwf.Status) *entity.Referral {
	return &entity.Referral{
		ID:             id,
		CandidateName:  "Ada Lovelace",
		CandidateEmail: "ada@example.com",
		Status:         status,
		JobID:          int64Ptr(10),
		EmployeeID:     int64Ptr(20),
		Job:            &entity.Job{ID: 10, Title: "Backend Engineer", ReferralBonusCents: 500},
		Employee:       &entity.Employee{ID: 20, Name: "Grace Hopper", Email: "grace@example.com"},
	}
}

func TestRequestTransition_PendingToVerified(t *testing.T) {
	f := newFixture(newReferral(1, domainwf.StatusPending))

	result, err := f.engine.RequestTransition(context.Background(), TransitionRequest{
		ReferralID: 1,
		Status:     domainwf.StatusVerified,
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.NotificationsSent)
	assert.Nil(t, result.ScheduledAt)
	assert.Equal(t, domainwf.StatusPending, result.PreviousStatus)
	assert.Equal(t, domainwf.StatusVerified, f.referrals.get(1).Status)

	sent := f.notifier.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "ada@example.com", sent[0].To)
	assert.Equal(t, "Your referral has been verified", sent[0].Subject)
	assert.Contains(t, sent[0].Body, "'Backend Engineer'")
	assert.Empty(t, f.earnings.earnings)
}

func TestRequestTransition_InterviewToConfirmedRecordsEarning(t *testing.T) {
	f := newFixture(newReferral(2, domainwf.StatusInterviewScheduled))

	result, err := f.engine.RequestTransition(context.Background(), TransitionRequest{
		ReferralID: 2,
		Status:     domainwf.StatusConfirmed,
	})

	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusConfirmed, f.referrals.get(2).Status)
	assert.Equal(t, 1, result.NotificationsSent)

	require.Len(t, f.earnings.earnings, 1)
	earning := f.earnings.earnings[0]
	assert.Equal(t, int64(500), earning.AmountCents)
	assert.Equal(t, int64(2), earning.ReferralID)
	assert.Equal(t, int64Ptr(20), earning.EmployeeID)
	assert.Equal(t, fixedNow, earning.CreatedAt)
	require.NotNil(t, result.EarningID)
	assert.Equal(t, earning.ID, *result.EarningID)

	assert.Len(t, f.dispatcher.ofType(event.TypeEarningRecorded), 1)
}

func TestRequestTransition_EarningAmount(t *testing.T) {
	tests := []struct {
		name string
		job  *entity.Job
		want int64
	}{
		{"missing job", nil, 0},
		{"negative bonus", &entity.Job{ID: 10, ReferralBonusCents: -100}, 0},
		{"zero bonus", &entity.Job{ID: 10}, 0},
		{"positive bonus", &entity.Job{ID: 10, ReferralBonusCents: 125000}, 125000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := newReferral(3, domainwf.StatusInterviewScheduled)
			ref.Job = tt.job
			f := newFixture(ref)

			_, err := f.engine.RequestTransition(context.Background(), TransitionRequest{ReferralID: 3, Status: domainwf.StatusConfirmed})

			require.NoError(t, err)
			require.Len(t, f.earnings.earnings, 1)
			assert.Equal(t, tt.want, f.earnings.earnings[0].AmountCents)
		})
	}
}

func TestRequestTransition_ConfirmedUsesRoleFallback(t *testing.T) {
	ref := newReferral(4, domainwf.StatusInterviewScheduled)
	ref.Job = nil
	f := newFixture(ref)

	_, err := f.engine.RequestTransition(context.Background(), TransitionRequest{ReferralID: 4, Status: domainwf.StatusConfirmed})

	require.NoError(t, err)
	sent := f.notifier.messages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Body, "'the role'")
	assert.Contains(t, sent[0].Body, "Start Date: Friday, March 15, 2024")
}

func TestRequestTransition_InterviewScheduled(t *testing.T) {
	at := time.Date(2024, 4, 2, 14, 0, 0, 0, time.UTC)

	t.Run("notifies candidate and employee", func(t *testing.T) {
		f := newFixture(newReferral(5, domainwf.StatusVerified))

		result, err := f.engine.RequestTransition(context.Background(), TransitionRequest{
			ReferralID:  5,
			Status:      domainwf.StatusInterviewScheduled,
			InterviewAt: timePtr(at),
		})

		require.NoError(t, err)
		assert.Equal(t, 2, result.NotificationsSent)
		require.NotNil(t, result.ScheduledAt)
		assert.True(t, at.Equal(*result.ScheduledAt))

		sent := f.notifier.messages()
		require.Len(t, sent, 2)
		assert.Equal(t, "ada@example.com", sent[0].To)
		assert.Equal(t, "Interview Scheduled", sent[0].Subject)
		assert.Contains(t, sent[0].Body, "Tuesday, April 2, 2024 2:00 PM")
		assert.Equal(t, "grace@example.com", sent[1].To)
		assert.Equal(t, "Interview Scheduled for Ada Lovelace", sent[1].Subject)
		assert.Contains(t, sent[1].Body, "Dear Grace Hopper")
	})

	t.Run("candidate failure does not block employee", func(t *testing.T) {
		f := newFixture(newReferral(6, domainwf.StatusVerified))
		f.notifier.sendFn = func(to string) error {
			if to == "ada@example.com" {
				return errSMTPDown
			}
			return nil
		}

		result, err := f.engine.RequestTransition(context.Background(), TransitionRequest{
			ReferralID:  6,
			Status:      domainwf.StatusInterviewScheduled,
			InterviewAt: timePtr(at),
		})

		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, 1, result.NotificationsSent)
		require.Len(t, result.Notifications, 2)
		assert.Equal(t, entity.DeliveryFailed, result.Notifications[0].Status)
		assert.Contains(t, result.Notifications[0].Reason, "connection refused")
		assert.Equal(t, entity.DeliverySent, result.Notifications[1].Status)
	})

	t.Run("panicking notifier is contained", func(t *testing.T) {
		f := newFixture(newReferral(7, domainwf.StatusVerified))
		f.notifier.sendFn = func(to string) error {
			if to == "ada@example.com" {
				panic("template exploded")
			}
			return nil
		}

		result, err := f.engine.RequestTransition(context.Background(), TransitionRequest{
			ReferralID:  7,
			Status:      domainwf.StatusInterviewScheduled,
			InterviewAt: timePtr(at),
		})

		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, 1, result.NotificationsSent)
		assert.Equal(t, domainwf.StatusInterviewScheduled, f.referrals.get(7).Status)
	})

	t.Run("without timestamp commits silently", func(t *testing.T) {
		f := newFixture(newReferral(8, domainwf.StatusVerified))

		result, err := f.engine.RequestTransition(context.Background(), TransitionRequest{
			ReferralID: 8,
			Status:     domainwf.StatusInterviewScheduled,
		})

		require.NoError(t, err)
		assert.Equal(t, 0, result.NotificationsSent)
		assert.Nil(t, result.ScheduledAt)
		assert.Empty(t, f.notifier.messages())
		assert.Equal(t, domainwf.StatusInterviewScheduled, f.referrals.get(8).Status)
	})

	t.Run("missing addresses are skipped", func(t *testing.T) {
		ref := newReferral(9, domainwf.StatusVerified)
		ref.CandidateEmail = "  "
		ref.Employee = nil
		f := newFixture(ref)

		result, err := f.engine.RequestTransition(context.Background(), TransitionRequest{
			ReferralID:  9,
			Status:      domainwf.StatusInterviewScheduled,
			InterviewAt: timePtr(at),
		})

		require.NoError(t, err)
		assert.Equal(t, 0, result.NotificationsSent)
		require.Len(t, result.Notifications, 2)
		for _, o := range result.Notifications {
			assert.Equal(t, entity.DeliverySkippedNoAddress, o.Status)
		}
	})
}

func TestRequestTransition_RenderTimeZone(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*60*60)
	referrals := newMockReferralRepo(newReferral(11, domainwf.StatusVerified))
	notifier := &mockNotifier{}
	engine := NewEngine(referrals, &mockEarningRepo{}, &mockHistoryRepo{}, &mockTxManager{repo: referrals},
		notifier, zap.NewNop(), WithLocation(loc))

	at := time.Date(2024, 4, 2, 14, 0, 0, 0, time.UTC)
	_, err := engine.RequestTransition(context.Background(), TransitionRequest{
		ReferralID: 11, Status: domainwf.StatusInterviewScheduled, InterviewAt: timePtr(at),
	})

	require.NoError(t, err)
	require.NotEmpty(t, notifier.messages())
	assert.Contains(t, notifier.messages()[0].Body, "Tuesday, April 2, 2024 10:00 PM")
}

func TestRequestTransition_InterviewTimestampAlwaysOverwritten(t *testing.T) {
	ref := newReferral(12, domainwf.StatusPending)
	ref.InterviewAt = timePtr(fixedNow)
	f := newFixture(ref)

	result, err := f.engine.RequestTransition(context.Background(), TransitionRequest{ReferralID: 12, Status: domainwf.StatusVerified})

	require.NoError(t, err)
	assert.Nil(t, result.ScheduledAt)
	assert.Nil(t, f.referrals.get(12).InterviewAt)

	// A timestamp on a non-interview destination is still persisted
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	f2 := newFixture(newReferral(13, domainwf.StatusPending))
	result, err = f2.engine.RequestTransition(context.Background(), TransitionRequest{
		ReferralID: 13, Status: domainwf.StatusVerified, InterviewAt: timePtr(at),
	})

	require.NoError(t, err)
	require.NotNil(t, f2.referrals.get(13).InterviewAt)
	assert.True(t, at.Equal(*f2.referrals.get(13).InterviewAt))
	require.NotNil(t, result.ScheduledAt)
}

func TestRequestTransition_Rejected(t *testing.T) {
	for _, from := range []domainwf.Status{domainwf.StatusPending, domainwf.StatusVerified, domainwf.StatusInterviewScheduled} {
		t.Run(string(from), func(t *testing.T) {
			f := newFixture(newReferral(20, from))

			result, err := f.engine.RequestTransition(context.Background(), TransitionRequest{ReferralID: 20, Status: domainwf.StatusRejected})

			require.NoError(t, err)
			assert.True(t, result.Success)
			assert.Equal(t, 0, result.NotificationsSent)
			assert.Equal(t, domainwf.StatusRejected, f.referrals.get(20).Status)
			assert.Empty(t, f.notifier.messages())
			assert.Empty(t, f.earnings.earnings)
		})
	}

	for _, from := range []domainwf.Status{domainwf.StatusConfirmed, domainwf.StatusRejected, domainwf.StatusCancelled} {
		t.Run("from terminal "+string(from), func(t *testing.T) {
			f := newFixture(newReferral(21, from))

			_, err := f.engine.RequestTransition(context.Background(), TransitionRequest{ReferralID: 21, Status: domainwf.StatusRejected})

			assert.ErrorIs(t, err, domainwf.ErrInvalidTransition)
			assert.Equal(t, from, f.referrals.get(21).Status)
		})
	}
}

func TestRequestTransition_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		from    domainwf.Status
		to      domainwf.Status
		wantErr error
	}{
		{"skip ahead", domainwf.StatusPending, domainwf.StatusConfirmed, domainwf.ErrInvalidTransition},
		{"backwards", domainwf.StatusVerified, domainwf.StatusPending, domainwf.ErrInvalidTransition},
		{"same status", domainwf.StatusVerified, domainwf.StatusVerified, domainwf.ErrInvalidTransition},
		{"from confirmed", domainwf.StatusConfirmed, domainwf.StatusPending, domainwf.ErrInvalidTransition},
		{"cancel confirmed", domainwf.StatusConfirmed, domainwf.StatusCancelled, domainwf.ErrConfirmedLocked},
		{"cancel pending", domainwf.StatusPending, domainwf.StatusCancelled, domainwf.ErrInvalidTransition},
		{"unknown target", domainwf.StatusPending, domainwf.Status("Hired"), domainwf.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(newReferral(30, tt.from))

			result, err := f.engine.RequestTransition(context.Background(), TransitionRequest{ReferralID: 30, Status: tt.to})

			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsValidationError(err))
			assert.Equal(t, tt.from, f.referrals.get(30).Status)
			assert.Empty(t, f.history.changes)
			assert.Empty(t, f.notifier.messages())
			assert.Empty(t, f.dispatcher.events)
		})
	}
}

func TestRequestTransition_InvalidTransitionCarriesStatuses(t *testing.T) {
	f := newFixture(newReferral(31, domainwf.StatusPending))

	_, err := f.engine.RequestTransition(context.Background(), TransitionRequest{ReferralID: 31, Status: domainwf.StatusInterviewScheduled})

	var terr *domainwf.TransitionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, domainwf.StatusPending, terr.From)
	assert.Equal(t, domainwf.StatusInterviewScheduled, terr.To)
	assert.Equal(t, domainwf.StatusVerified, terr.Expected)
	assert.Contains(t, err.Error(), "expected Verified")
}

func TestRequestTransition_CancelledUnsupported(t *testing.T) {
	f := newFixture(newReferral(32, domainwf.StatusVerified))

	_, err := f.engine.RequestTransition(context.Background(), TransitionRequest{ReferralID: 32, Status: domainwf.StatusCancelled})

	var terr *domainwf.TransitionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "cancellation is not supported", terr.Reason)
}

func TestRequestTransition_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.engine.RequestTransition(context.Background(), TransitionRequest{ReferralID: 404, Status: domainwf.StatusVerified})

	assert.ErrorIs(t, err, entity.ErrNotFound)
	assert.False(t, IsValidationError(err))
}

func TestRequestTransition_LoadError(t *testing.T) {
	f := newFixture()
	f.referrals.getErr = errors.New("disk I/O error")

	_, err := f.engine.RequestTransition(context.Background(), TransitionRequest{ReferralID: 1, Status: domainwf.StatusVerified})

	require.Error(t, err)
	assert.NotErrorIs(t, err, entity.ErrNotFound)
}

func TestRequestTransition_HistoryFailureRollsBack(t *testing.T) {
	f := newFixture(newReferral(40, domainwf.StatusPending))
	f.history.createFn = func(change *entity.ReferralStatusChange) error {
		return errors.New("history table locked")
	}

	_, err := f.engine.RequestTransition(context.Background(), TransitionRequest{ReferralID: 40, Status: domainwf.StatusVerified})

	require.Error(t, err)
	assert.Equal(t, domainwf.StatusPending, f.referrals.get(40).Status)
	assert.Empty(t, f.notifier.messages())
}

func TestRequestTransition_WritesHistory(t *testing.T) {
	f := newFixture(newReferral(41, domainwf.StatusPending))

	_, err := f.engine.RequestTransition(context.Background(), TransitionRequest{ReferralID: 41, Status: domainwf.StatusVerified})

	require.NoError(t, err)
	require.Len(t, f.history.changes, 1)
	change := f.history.changes[0]
	assert.Equal(t, int64(41), change.ReferralID)
	assert.Equal(t, domainwf.StatusPending, change.PreviousStatus)
	assert.Equal(t, domainwf.StatusVerified, change.NewStatus)
	assert.Equal(t, fixedNow, change.ChangedAt)
	assert.Equal(t, fixedNow, f.referrals.get(41).UpdatedAt)
}

func TestRequestTransition_ConcurrentModification(t *testing.T) {
	f := newFixture(newReferral(50, domainwf.StatusPending))
	// Another process moves the referral between our read and write
	f.referrals.beforeUpdate = func(id int64) {
		f.referrals.mu.Lock()
		f.referrals.referrals[id].Status = domainwf.StatusRejected
		f.referrals.mu.Unlock()
		f.referrals.beforeUpdate = nil
	}

	_, err := f.engine.RequestTransition(context.Background(), TransitionRequest{ReferralID: 50, Status: domainwf.StatusVerified})

	assert.ErrorIs(t, err, entity.ErrConcurrentModification)
	assert.Empty(t, f.notifier.messages())
	assert.Empty(t, f.history.changes)
}

func TestRequestTransition_ConcurrentConfirmationsRecordOneEarning(t *testing.T) {
	f := newFixture(newReferral(60, domainwf.StatusInterviewScheduled))

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.RequestTransition(context.Background(), TransitionRequest{ReferralID: 60, Status: domainwf.StatusConfirmed})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, domainwf.ErrInvalidTransition)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.earnings.earnings, 1)
}

func TestRequestTransition_EarningFailureKeepsSuccess(t *testing.T) {
	f := newFixture(newReferral(70, domainwf.StatusInterviewScheduled))
	f.earnings.addFn = func(earning *entity.Earning) error {
		return errors.New("constraint failed")
	}

	result, err := f.engine.RequestTransition(context.Background(), TransitionRequest{ReferralID: 70, Status: domainwf.StatusConfirmed})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.NotificationsSent)
	assert.Nil(t, result.EarningID)
	assert.Equal(t, domainwf.StatusConfirmed, f.referrals.get(70).Status)
}

func TestRequestTransition_EarningIndependentOfNotification(t *testing.T) {
	f := newFixture(newReferral(71, domainwf.StatusInterviewScheduled))
	f.notifier.sendFn = func(to string) error { return errSMTPDown }

	result, err := f.engine.RequestTransition(context.Background(), TransitionRequest{ReferralID: 71, Status: domainwf.StatusConfirmed})

	require.NoError(t, err)
	assert.Equal(t, 0, result.NotificationsSent)
	assert.Len(t, f.earnings.earnings, 1)
}

func TestRequestTransition_EmitsStatusChanged(t *testing.T) {
	f := newFixture(newReferral(80, domainwf.StatusPending))
	ctx := utils.WithRequestID(context.Background(), "req-123")

	_, err := f.engine.RequestTransition(ctx, TransitionRequest{ReferralID: 80, Status: domainwf.StatusVerified})

	require.NoError(t, err)
	events := f.dispatcher.ofType(event.TypeReferralStatusChanged)
	require.Len(t, events, 1)
	assert.Equal(t, int64(80), events[0].ReferralID)
	assert.Equal(t, "req-123", events[0].CorrelationID)
	assert.Equal(t, "Pending", events[0].GetPayloadString("previous_status"))
	assert.Equal(t, "Verified", events[0].GetPayloadString("new_status"))
}

func TestCurrentStatus(t *testing.T) {
	f := newFixture(newReferral(90, domainwf.StatusVerified))

	status, err := f.engine.CurrentStatus(context.Background(), 90)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusVerified, status)

	_, err = f.engine.CurrentStatus(context.Background(), 91)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestReferralLocks(t *testing.T) {
	locks := newReferralLocks()

	unlock := locks.Lock(1)
	acquired := make(chan struct{})
	go func() {
		release := locks.Lock(1)
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock() acquired a held referral lock")
	case <-time.After(20 * time.Millisecond):
	}

	otherDone := make(chan struct{})
	go func() {
		locks.Lock(2)()
		close(otherDone)
	}()
	<-otherDone

	unlock()
	unlock()
	<-acquired

	assert.Eventually(t, func() bool { return locks.size() == 0 }, time.Second, time.Millisecond)
}
