package port

import (
	"context"
	"time"

	"github.com/garyjia/referral-workflow/internal/domain/entity"
	"github.com/garyjia/referral-workflow/internal/domain/workflow"
)

// ReferralRepository defines persistence operations for Referral.
// Getters return nil, nil when no row matches.
type ReferralRepository interface {
	// GetByID loads a referral together with its job and employee
	GetByID(ctx context.Context, id int64) (*entity.Referral, error)

	// Create inserts a new referral
	Create(ctx context.Context, referral *entity.Referral) error

	// UpdateStatus writes the new status, interview time and changedAt only if the
	// stored status still equals expected; otherwise it returns entity.ErrConcurrentModification
	UpdateStatus(ctx context.Context, id int64, expected, next workflow.Status, interviewAt *time.Time, changedAt time.Time) error

	// List returns all referrals with job and employee, newest first
	List(ctx context.Context) ([]*entity.Referral, error)

	// SearchByEmployeeName returns referrals whose referring employee name contains name
	SearchByEmployeeName(ctx context.Context, name string) ([]*entity.Referral, error)
}

// EarningRepository is the append-only earning ledger
type EarningRepository interface {
	Add(ctx context.Context, earning *entity.Earning) error
	GetByReferralID(ctx context.Context, referralID int64) (*entity.Earning, error)
	List(ctx context.Context) ([]*entity.Earning, error)
}

// ReferralLimitRepository defines persistence operations for ReferralLimit
type ReferralLimitRepository interface {
	FindByEmployee(ctx context.Context, employeeID int64) (*entity.ReferralLimit, error)
	Add(ctx context.Context, limit *entity.ReferralLimit) error
	Save(ctx context.Context, limit *entity.ReferralLimit) error
	List(ctx context.Context) ([]*entity.ReferralLimit, error)

	// IncrementUsed consumes one slot if used_count < limit_count and reports
	// whether a slot was consumed
	IncrementUsed(ctx context.Context, employeeID int64) (bool, error)
}

// HistoryRepository defines persistence operations for the status audit trail
type HistoryRepository interface {
	Create(ctx context.Context, change *entity.ReferralStatusChange) error
	GetByReferralID(ctx context.Context, referralID int64) ([]*entity.ReferralStatusChange, error)
}

// EmployeeRepository provides read access to employees
type EmployeeRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Employee, error)
	Create(ctx context.Context, employee *entity.Employee) error
}

// JobRepository provides read access to jobs
type JobRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Job, error)
	Create(ctx context.Context, job *entity.Job) error
	List(ctx context.Context) ([]*entity.Job, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
