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

// EarningRepository implements port.EarningRepository.
// The referral_id column is unique, so a referral earns at most once.
type EarningRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEarningRepository creates a new earning repository
func NewEarningRepository(db *sql.DB, logger *zap.Logger) port.EarningRepository {
	return &EarningRepository{
		db:     db,
		logger: logger,
	}
}

// Add appends an earning to the ledger
func (r *EarningRepository) Add(ctx context.Context, earning *entity.Earning) error {
	query := `
		INSERT INTO earnings (referral_id, employee_id, amount_cents, created_at)
		VALUES (?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		earning.ReferralID,
		nullableInt64(earning.EmployeeID),
		earning.AmountCents,
		earning.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create earning", zap.Int64("referral_id", earning.ReferralID), zap.Error(err))
		return fmt.Errorf("failed to create earning: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	earning.ID = id
	return nil
}

// GetByReferralID retrieves the earning recorded for a referral
func (r *EarningRepository) GetByReferralID(ctx context.Context, referralID int64) (*entity.Earning, error) {
	query := `
		SELECT id, referral_id, employee_id, amount_cents, created_at
		FROM earnings
		WHERE referral_id = ?
	`

	earning, err := scanEarning(getExecutor(ctx, r.db).QueryRowContext(ctx, query, referralID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get earning", zap.Int64("referral_id", referralID), zap.Error(err))
		return nil, fmt.Errorf("failed to get earning: %w", err)
	}

	return earning, nil
}

// List retrieves all earnings, newest first
func (r *EarningRepository) List(ctx context.Context) ([]*entity.Earning, error) {
	query := `
		SELECT id, referral_id, employee_id, amount_cents, created_at
		FROM earnings
		ORDER BY created_at DESC, id DESC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list earnings", zap.Error(err))
		return nil, fmt.Errorf("failed to list earnings: %w", err)
	}
	defer rows.Close()

	var earnings []*entity.Earning
	for rows.Next() {
		earning, err := scanEarning(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan earning: %w", err)
		}
		earnings = append(earnings, earning)
	}

	return earnings, rows.Err()
}

func scanEarning(row rowScanner) (*entity.Earning, error) {
	var earning entity.Earning
	var employeeID sql.NullInt64

	if err := row.Scan(&earning.ID, &earning.ReferralID, &employeeID, &earning.AmountCents, &earning.CreatedAt); err != nil {
		return nil, err
	}

	earning.EmployeeID = int64Ptr(employeeID)
	return &earning, nil
}

// Verify interface compliance
var _ port.EarningRepository = (*EarningRepository)(nil)
