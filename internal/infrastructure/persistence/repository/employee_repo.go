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

// EmployeeRepository implements port.EmployeeRepository
type EmployeeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *sql.DB, logger *zap.Logger) port.EmployeeRepository {
	return &EmployeeRepository{
		db:     db,
		logger: logger,
	}
}

func (r *EmployeeRepository) GetByID(ctx context.Context, id int64) (*entity.Employee, error) {
	var employee entity.Employee
	err := getExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, name, email FROM employees WHERE id = ?`, id,
	).Scan(&employee.ID, &employee.Name, &employee.Email)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get employee", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	return &employee, nil
}

func (r *EmployeeRepository) Create(ctx context.Context, employee *entity.Employee) error {
	result, err := getExecutor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO employees (name, email) VALUES (?, ?)`, employee.Name, employee.Email)
	if err != nil {
		r.logger.Error("Failed to create employee", zap.Error(err))
		return fmt.Errorf("failed to create employee: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	employee.ID = id
	return nil
}

// Verify interface compliance
var _ port.EmployeeRepository = (*EmployeeRepository)(nil)
