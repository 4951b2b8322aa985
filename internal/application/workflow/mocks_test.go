package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/garyjia/referral-workflow/internal/application/dispatcher"
	"github.com/garyjia/referral-workflow/internal/domain/entity"
	"github.com/garyjia/referral-workflow/internal/domain/event"
	domainwf "github.com/garyjia/referral-workflow/internal/domain/workflow"
)

// mockReferralRepo is an in-memory store with compare-and-swap status updates
type mockReferralRepo struct {
	mu        sync.Mutex
	referrals map[int64]*entity.Referral
	getErr    error
	// beforeUpdate runs inside UpdateStatus before the compare step
	beforeUpdate func(id int64)
}

func newMockReferralRepo(referrals ...*entity.Referral) *mockReferralRepo {
	m := &mockReferralRepo{referrals: make(map[int64]*entity.Referral)}
	for _, r := range referrals {
		m.referrals[r.ID] = r
	}
	return m
}

func (m *mockReferralRepo) GetByID(ctx context.Context, id int64) (*entity.Referral, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.referrals[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *mockReferralRepo) Create(ctx context.Context, referral *entity.Referral) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.referrals[referral.ID] = referral
	return nil
}

func (m *mockReferralRepo) UpdateStatus(ctx context.Context, id int64, expected, next domainwf.Status, interviewAt *time.Time, changedAt time.Time) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.referrals[id]
	if !ok || r.Status != expected {
		return entity.ErrConcurrentModification
	}
	r.Status = next
	r.InterviewAt = interviewAt
	r.UpdatedAt = changedAt
	return nil
}

func (m *mockReferralRepo) List(ctx context.Context) ([]*entity.Referral, error) {
	return nil, nil
}

func (m *mockReferralRepo) SearchByEmployeeName(ctx context.Context, name string) ([]*entity.Referral, error) {
	return nil, nil
}

func (m *mockReferralRepo) get(id int64) entity.Referral {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.referrals[id]
}

type mockEarningRepo struct {
	mu       sync.Mutex
	earnings []*entity.Earning
	addFn    func(earning *entity.Earning) error
}

func (m *mockEarningRepo) Add(ctx context.Context, earning *entity.Earning) error {
	if m.addFn != nil {
		if err := m.addFn(earning); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	earning.ID = int64(len(m.earnings) + 1)
	m.earnings = append(m.earnings, earning)
	return nil
}

func (m *mockEarningRepo) GetByReferralID(ctx context.Context, referralID int64) (*entity.Earning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.earnings {
		if e.ReferralID == referralID {
			return e, nil
		}
	}
	return nil, nil
}

func (m *mockEarningRepo) List(ctx context.Context) ([]*entity.Earning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entity.Earning(nil), m.earnings...), nil
}

type mockHistoryRepo struct {
	mu       sync.Mutex
	changes  []*entity.ReferralStatusChange
	createFn func(change *entity.ReferralStatusChange) error
}

func (m *mockHistoryRepo) Create(ctx context.Context, change *entity.ReferralStatusChange) error {
	if m.createFn != nil {
		if err := m.createFn(change); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, change)
	return nil
}

func (m *mockHistoryRepo) GetByReferralID(ctx context.Context, referralID int64) ([]*entity.ReferralStatusChange, error) {
	return nil, nil
}

// mockTxManager runs fn directly and restores the referral snapshot when fn fails
type mockTxManager struct {
	repo *mockReferralRepo
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	var snapshot map[int64]entity.Referral
	if m.repo != nil {
		m.repo.mu.Lock()
		snapshot = make(map[int64]entity.Referral, len(m.repo.referrals))
		for id, r := range m.repo.referrals {
			snapshot[id] = *r
		}
		m.repo.mu.Unlock()
	}

	if err := fn(ctx); err != nil {
		if m.repo != nil {
			m.repo.mu.Lock()
			for id, r := range snapshot {
				r := r
				m.repo.referrals[id] = &r
			}
			m.repo.mu.Unlock()
		}
		return err
	}
	return nil
}

type sentMessage struct {
	To      string
	Subject string
	Body    string
}

// mockNotifier records messages; sendFn may fail or panic per address
type mockNotifier struct {
	mu     sync.Mutex
	sent   []sentMessage
	sendFn func(to string) error
}

func (m *mockNotifier) Send(ctx context.Context, to, subject, body string) error {
	if m.sendFn != nil {
		if err := m.sendFn(to); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{To: to, Subject: subject, Body: body})
	return nil
}

func (m *mockNotifier) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

// mockDispatcher captures async events synchronously
type mockDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockDispatcher) Subscribe(eventType event.Type, name string, handler dispatcher.Handler) {}

func (m *mockDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	m.DispatchAsync(ctx, evt)
	return nil
}

func (m *mockDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockDispatcher) ListHandlers(eventType event.Type) []dispatcher.HandlerInfo { return nil }

func (m *mockDispatcher) Close() error { return nil }

func (m *mockDispatcher) ofType(t event.Type) []*event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*event.Event
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

var errSMTPDown = errors.New("smtp: connection refused")
