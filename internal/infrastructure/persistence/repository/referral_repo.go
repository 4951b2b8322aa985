package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/referral-workflow/internal/application/port"
	"github.com/garyjia/referral-workflow/internal/domain/entity"
	"github.com/garyjia/referral-workflow/internal/domain/workflow"
)

const referralSelect = `
	SELECT r.id, r.candidate_name, r.candidate_email, r.status, r.interview_at,
		r.job_id, r.employee_id, r.created_at, r.updated_at,
		j.id, j.title, j.description, j.referral_bonus_cents, j.created_by, j.created_at,
		e.id, e.name, e.email
	FROM referrals r
	LEFT JOIN jobs j ON j.id = r.job_id
	LEFT JOIN employees e ON e.id = r.employee_id
`

// ReferralRepository implements port.ReferralRepository
type ReferralRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReferralRepository creates a new referral repository
func NewReferralRepository(db *sql.DB, logger *zap.Logger) port.ReferralRepository {
	return &ReferralRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new referral; an empty status defaults to Pending
func (r *ReferralRepository) Create(ctx context.Context, referral *entity.Referral) error {
	if referral.Status == "" {
		referral.Status = workflow.StatusPending
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO referrals (
			candidate_name, candidate_email, status, interview_at,
			job_id, employee_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		referral.CandidateName,
		referral.CandidateEmail,
		referral.Status.String(),
		nullableTime(referral.InterviewAt),
		nullableInt64(referral.JobID),
		nullableInt64(referral.EmployeeID),
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create referral", zap.Error(err))
		return fmt.Errorf("failed to create referral: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	referral.ID = id
	referral.CreatedAt = now
	referral.UpdatedAt = now
	return nil
}

// GetByID retrieves a referral with its job and employee
func (r *ReferralRepository) GetByID(ctx context.Context, id int64) (*entity.Referral, error) {
	row := getExecutor(ctx, r.db).QueryRowContext(ctx, referralSelect+" WHERE r.id = ?", id)

	referral, err := scanReferral(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get referral by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get referral: %w", err)
	}

	return referral, nil
}

// UpdateStatus compares the stored status with expected and swaps in next
func (r *ReferralRepository) UpdateStatus(ctx context.Context, id int64, expected, next workflow.Status, interviewAt *time.Time, changedAt time.Time) error {
	query := `
		UPDATE referrals
		SET status = ?, interview_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		next.String(),
		nullableTime(interviewAt),
		changedAt.UTC(),
		id,
		expected.String(),
	)
	if err != nil {
		r.logger.Error("Failed to update status",
			zap.Int64("id", id),
			zap.String("status", next.String()),
			zap.Error(err))
		return fmt.Errorf("failed to update status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("referral %d no longer %s: %w", id, expected, entity.ErrConcurrentModification)
	}

	return nil
}

// List retrieves all referrals, newest first
func (r *ReferralRepository) List(ctx context.Context) ([]*entity.Referral, error) {
	return r.query(ctx, referralSelect+" ORDER BY r.created_at DESC, r.id DESC")
}

// SearchByEmployeeName retrieves referrals whose employee name contains name (ASCII case-insensitive).
// Wildcards in name match literally.
func (r *ReferralRepository) SearchByEmployeeName(ctx context.Context, name string) ([]*entity.Referral, error) {
	return r.query(ctx, referralSelect+` WHERE e.name LIKE '%' || ? || '%' ESCAPE '\' ORDER BY r.created_at DESC, r.id DESC`, escapeLike(name))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *ReferralRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.Referral, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list referrals", zap.Error(err))
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	defer rows.Close()

	var referrals []*entity.Referral
	for rows.Next() {
		referral, err := scanReferral(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan referral: %w", err)
		}
		referrals = append(referrals, referral)
	}

	return referrals, rows.Err()
}

func scanReferral(row rowScanner) (*entity.Referral, error) {
	var (
		referral    entity.Referral
		status      string
		interviewAt sql.NullTime
		jobID       sql.NullInt64
		employeeID  sql.NullInt64

		jID          sql.NullInt64
		jTitle       sql.NullString
		jDescription sql.NullString
		jBonus       sql.NullInt64
		jCreatedBy   sql.NullString
		jCreatedAt   sql.NullTime

		eID    sql.NullInt64
		eName  sql.NullString
		eEmail sql.NullString
	)

	err := row.Scan(
		&referral.ID,
		&referral.CandidateName,
		&referral.CandidateEmail,
		&status,
		&interviewAt,
		&jobID,
		&employeeID,
		&referral.CreatedAt,
		&referral.UpdatedAt,
		&jID, &jTitle, &jDescription, &jBonus, &jCreatedBy, &jCreatedAt,
		&eID, &eName, &eEmail,
	)
	if err != nil {
		return nil, err
	}

	referral.Status = workflow.Status(status)
	referral.InterviewAt = timePtr(interviewAt)
	referral.JobID = int64Ptr(jobID)
	referral.EmployeeID = int64Ptr(employeeID)

	if jID.Valid {
		referral.Job = &entity.Job{
			ID:                 jID.Int64,
			Title:              jTitle.String,
			Description:        jDescription.String,
			ReferralBonusCents: jBonus.Int64,
			CreatedBy:          jCreatedBy.String,
			CreatedAt:          jCreatedAt.Time,
		}
	}
	if eID.Valid {
		referral.Employee = &entity.Employee{
			ID:    eID.Int64,
			Name:  eName.String,
			Email: eEmail.String,
		}
	}

	return &referral, nil
}

// Verify interface compliance
var _ port.ReferralRepository = (*ReferralRepository)(nil)
