package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/garyjia/referral-workflow/internal/application/port"
	"github.com/garyjia/referral-workflow/internal/domain/entity"
	"github.com/garyjia/referral-workflow/internal/domain/workflow"
)

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

type mockLimitRepo struct {
	limits    map[int64]*entity.ReferralLimit
	findErr   error
	saveFunc  func(limit *entity.ReferralLimit) error
	addCalls  int
	saveCalls int
}

func newMockLimitRepo(limits ...*entity.ReferralLimit) *mockLimitRepo {
	m := &mockLimitRepo{limits: make(map[int64]*entity.ReferralLimit)}
	for _, l := range limits {
		m.limits[l.EmployeeID] = l
	}
	return m
}

func (m *mockLimitRepo) FindByEmployee(ctx context.Context, employeeID int64) (*entity.ReferralLimit, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	l, ok := m.limits[employeeID]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (m *mockLimitRepo) Add(ctx context.Context, limit *entity.ReferralLimit) error {
	m.addCalls++
	limit.ID = int64(len(m.limits) + 1)
	cp := *limit
	m.limits[limit.EmployeeID] = &cp
	return nil
}

func (m *mockLimitRepo) Save(ctx context.Context, limit *entity.ReferralLimit) error {
	m.saveCalls++
	if m.saveFunc != nil {
		if err := m.saveFunc(limit); err != nil {
			return err
		}
	}
	cp := *limit
	m.limits[limit.EmployeeID] = &cp
	return nil
}

func (m *mockLimitRepo) List(ctx context.Context) ([]*entity.ReferralLimit, error) {
	var out []*entity.ReferralLimit
	for _, l := range m.limits {
		out = append(out, l)
	}
	return out, nil
}

func (m *mockLimitRepo) IncrementUsed(ctx context.Context, employeeID int64) (bool, error) {
	l, ok := m.limits[employeeID]
	if !ok || l.UsedCount >= l.LimitCount {
		return false, nil
	}
	l.UsedCount++
	return true, nil
}

type mockEmployeeRepo struct {
	employees map[int64]*entity.Employee
}

func (m *mockEmployeeRepo) GetByID(ctx context.Context, id int64) (*entity.Employee, error) {
	return m.employees[id], nil
}

func (m *mockEmployeeRepo) Create(ctx context.Context, employee *entity.Employee) error {
	m.employees[employee.ID] = employee
	return nil
}

type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type mockReferralRepo struct {
	referrals  []*entity.Referral
	searchFunc func(name string) ([]*entity.Referral, error)
}

func (m *mockReferralRepo) GetByID(ctx context.Context, id int64) (*entity.Referral, error) {
	for _, r := range m.referrals {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockReferralRepo) Create(ctx context.Context, referral *entity.Referral) error {
	m.referrals = append(m.referrals, referral)
	return nil
}

func (m *mockReferralRepo) UpdateStatus(ctx context.Context, id int64, expected, next workflow.Status, interviewAt *time.Time, changedAt time.Time) error {
	return nil
}

func (m *mockReferralRepo) List(ctx context.Context) ([]*entity.Referral, error) {
	return m.referrals, nil
}

func (m *mockReferralRepo) SearchByEmployeeName(ctx context.Context, name string) ([]*entity.Referral, error) {
	if m.searchFunc != nil {
		return m.searchFunc(name)
	}
	return nil, nil
}

type mockEarningRepo struct {
	earnings []*entity.Earning
	listErr  error
}

func (m *mockEarningRepo) Add(ctx context.Context, earning *entity.Earning) error {
	m.earnings = append(m.earnings, earning)
	return nil
}

func (m *mockEarningRepo) GetByReferralID(ctx context.Context, referralID int64) (*entity.Earning, error) {
	return nil, nil
}

func (m *mockEarningRepo) List(ctx context.Context) ([]*entity.Earning, error) {
	return m.earnings, m.listErr
}

type mockHistoryRepo struct {
	changes []*entity.ReferralStatusChange
}

func (m *mockHistoryRepo) Create(ctx context.Context, change *entity.ReferralStatusChange) error {
	m.changes = append(m.changes, change)
	return nil
}

func (m *mockHistoryRepo) GetByReferralID(ctx context.Context, referralID int64) ([]*entity.ReferralStatusChange, error) {
	var out []*entity.ReferralStatusChange
	for _, c := range m.changes {
		if c.ReferralID == referralID {
			out = append(out, c)
		}
	}
	return out, nil
}

type mockJobRepo struct {
	jobs []*entity.Job
}

func (m *mockJobRepo) GetByID(ctx context.Context, id int64) (*entity.Job, error) { return nil, nil }

func (m *mockJobRepo) Create(ctx context.Context, job *entity.Job) error {
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *mockJobRepo) List(ctx context.Context) ([]*entity.Job, error) { return m.jobs, nil }

type mockReportWriter struct {
	rows []port.EarningReportRow
}

func (m *mockReportWriter) ContentType() string { return "text/plain" }

func (m *mockReportWriter) Write(w io.Writer, rows []port.EarningReportRow) error {
	m.rows = rows
	_, err := io.WriteString(w, "report")
	return err
}

type mockNotifier struct {
	sendFunc func(ctx context.Context, to, subject, body string) error
}

func (m *mockNotifier) Send(ctx context.Context, to, subject, body string) error {
	if m.sendFunc != nil {
		return m.sendFunc(ctx, to, subject, body)
	}
	return nil
}
