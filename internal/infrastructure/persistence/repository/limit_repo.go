package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/referral-workflow/internal/application/port"
	"github.com/garyjia/referral-workflow/internal/domain/entity"
)

// ReferralLimitRepository implements port.ReferralLimitRepository
type ReferralLimitRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReferralLimitRepository creates a new referral limit repository
func NewReferralLimitRepository(db *sql.DB, logger *zap.Logger) port.ReferralLimitRepository {
	return &ReferralLimitRepository{
		db:     db,
		logger: logger,
	}
}

// FindByEmployee retrieves the limit record of an employee
func (r *ReferralLimitRepository) FindByEmployee(ctx context.Context, employeeID int64) (*entity.ReferralLimit, error) {
	query := `
		SELECT id, employee_id, limit_count, used_count
		FROM referral_limits
		WHERE employee_id = ?
	`

	var limit entity.ReferralLimit
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, employeeID).Scan(
		&limit.ID,
		&limit.EmployeeID,
		&limit.LimitCount,
		&limit.UsedCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get referral limit", zap.Int64("employee_id", employeeID), zap.Error(err))
		return nil, fmt.Errorf("failed to get referral limit: %w", err)
	}

	return &limit, nil
}

// Add creates a limit record
func (r *ReferralLimitRepository) Add(ctx context.Context, limit *entity.ReferralLimit) error {
	query := `INSERT INTO referral_limits (employee_id, limit_count, used_count) VALUES (?, ?, ?)`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, limit.EmployeeID, limit.LimitCount, limit.UsedCount)
	if err != nil {
		r.logger.Error("Failed to create referral limit", zap.Int64("employee_id", limit.EmployeeID), zap.Error(err))
		return fmt.Errorf("failed to create referral limit: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	limit.ID = id
	return nil
}

// Save persists the limit count. The stored used count is never overwritten;
// a limit that has fallen below it is refused with entity.ErrLimitBelowUsage.
func (r *ReferralLimitRepository) Save(ctx context.Context, limit *entity.ReferralLimit) error {
	query := `
		UPDATE referral_limits
		SET limit_count = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND used_count <= ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, limit.LimitCount, limit.ID, limit.LimitCount)
	if err != nil {
		r.logger.Error("Failed to save referral limit", zap.Int64("id", limit.ID), zap.Error(err))
		return fmt.Errorf("failed to save referral limit: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		existing, err := r.FindByEmployee(ctx, limit.EmployeeID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("referral limit %d: %w", limit.ID, entity.ErrNotFound)
		}
		return fmt.Errorf("%w: used %d, requested %d", entity.ErrLimitBelowUsage, existing.UsedCount, limit.LimitCount)
	}

	return nil
}

// List retrieves all limit records ordered by employee
func (r *ReferralLimitRepository) List(ctx context.Context) ([]*entity.ReferralLimit, error) {
	query := `
		SELECT id, employee_id, limit_count, used_count
		FROM referral_limits
		ORDER BY employee_id ASC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list referral limits", zap.Error(err))
		return nil, fmt.Errorf("failed to list referral limits: %w", err)
	}
	defer rows.Close()

	var limits []*entity.ReferralLimit
	for rows.Next() {
		var limit entity.ReferralLimit
		if err := rows.Scan(&limit.ID, &limit.EmployeeID, &limit.LimitCount, &limit.UsedCount); err != nil {
			return nil, fmt.Errorf("failed to scan referral limit: %w", err)
		}
		limits = append(limits, &limit)
	}

	return limits, rows.Err()
}

// IncrementUsed consumes one slot while used_count < limit_count
func (r *ReferralLimitRepository) IncrementUsed(ctx context.Context, employeeID int64) (bool, error) {
	query := `
		UPDATE referral_limits
		SET used_count = used_count + 1, updated_at = CURRENT_TIMESTAMP
		WHERE employee_id = ? AND used_count < limit_count
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, employeeID)
	if err != nil {
		r.logger.Error("Failed to increment used count", zap.Int64("employee_id", employeeID), zap.Error(err))
		return false, fmt.Errorf("failed to increment used count: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected == 1, nil
}

// Verify interface compliance
var _ port.ReferralLimitRepository = (*ReferralLimitRepository)(nil)
