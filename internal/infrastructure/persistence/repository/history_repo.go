package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/referral-workflow/internal/application/port"
	"github.com/garyjia/referral-workflow/internal/domain/entity"
	"github.com/garyjia/referral-workflow/internal/domain/workflow"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new history record
func (r *HistoryRepository) Create(ctx context.Context, change *entity.ReferralStatusChange) error {
	query := `
		INSERT INTO referral_status_history (
			referral_id, previous_status, new_status, interview_at, changed_at
		) VALUES (?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		change.ReferralID,
		change.PreviousStatus.String(),
		change.NewStatus.String(),
		nullableTime(change.InterviewAt),
		change.ChangedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	change.ID = id
	return nil
}

// GetByReferralID retrieves all history records for a referral, oldest first
func (r *HistoryRepository) GetByReferralID(ctx context.Context, referralID int64) ([]*entity.ReferralStatusChange, error) {
	query := `
		SELECT id, referral_id, previous_status, new_status, interview_at, changed_at
		FROM referral_status_history
		WHERE referral_id = ?
		ORDER BY changed_at ASC, id ASC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, referralID)
	if err != nil {
		r.logger.Error("Failed to get history by referral ID", zap.Int64("referral_id", referralID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.ReferralStatusChange
	for rows.Next() {
		var record entity.ReferralStatusChange
		var previous, next string
		var interviewAt sql.NullTime

		err := rows.Scan(
			&record.ID,
			&record.ReferralID,
			&previous,
			&next,
			&interviewAt,
			&record.ChangedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}

		record.PreviousStatus = workflow.Status(previous)
		record.NewStatus = workflow.Status(next)
		record.InterviewAt = timePtr(interviewAt)
		records = append(records, &record)
	}

	return records, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
