package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/referral-workflow/internal/application/port"
	"github.com/garyjia/referral-workflow/internal/domain/entity"
)

// JobRepository implements port.JobRepository
type JobRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *sql.DB, logger *zap.Logger) port.JobRepository {
	return &JobRepository{
		db:     db,
		logger: logger,
	}
}

func (r *JobRepository) GetByID(ctx context.Context, id int64) (*entity.Job, error) {
	query := `
		SELECT id, title, description, referral_bonus_cents, created_by, created_at
		FROM jobs
		WHERE id = ?
	`

	job, err := scanJob(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get job", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO jobs (title, description, referral_bonus_cents, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		job.Title,
		job.Description,
		job.ReferralBonusCents,
		job.CreatedBy,
		job.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create job", zap.Error(err))
		return fmt.Errorf("failed to create job: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	job.ID = id
	return nil
}

// List retrieves all jobs, newest first
func (r *JobRepository) List(ctx context.Context) ([]*entity.Job, error) {
	query := `
		SELECT id, title, description, referral_bonus_cents, created_by, created_at
		FROM jobs
		ORDER BY created_at DESC, id DESC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list jobs", zap.Error(err))
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*entity.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

func scanJob(row rowScanner) (*entity.Job, error) {
	var job entity.Job
	err := row.Scan(&job.ID, &job.Title, &job.Description, &job.ReferralBonusCents, &job.CreatedBy, &job.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Verify interface compliance
var _ port.JobRepository = (*JobRepository)(nil)
