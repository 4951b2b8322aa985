package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/referral-workflow/internal/application/dispatcher"
	"github.com/garyjia/referral-workflow/internal/application/port"
	"github.com/garyjia/referral-workflow/internal/domain/entity"
	"github.com/garyjia/referral-workflow/internal/domain/event"
)

// LimitService manages per-employee referral quotas
type LimitService interface {
	// SetLimit creates or updates an employee's limit. A limit below the
	// employee's current usage is refused and the record left unchanged.
	SetLimit(ctx context.Context, employeeID int64, limitCount int) (*LimitResult, error)

	// ConsumeSlot records one new referral against the employee's limit
	ConsumeSlot(ctx context.Context, employeeID int64) error

	// ListLimits returns every stored limit
	ListLimits(ctx context.Context) ([]*entity.ReferralLimit, error)
}

// LimitResult reports a stored limit
type LimitResult struct {
	Success bool                  `json:"success"`
	Created bool                  `json:"created"`
	Limit   *entity.ReferralLimit `json:"limit"`
}

type limitServiceImpl struct {
	limitRepo    port.ReferralLimitRepository
	employeeRepo port.EmployeeRepository
	txManager    port.TransactionManager
	dispatcher   dispatcher.Dispatcher
	logger       Logger
}

// NewLimitService creates a new LimitService. dispatcher may be nil.
func NewLimitService(
	limitRepo port.ReferralLimitRepository,
	employeeRepo port.EmployeeRepository,
	txManager port.TransactionManager,
	dispatcher dispatcher.Dispatcher,
	logger Logger,
) LimitService {
	return &limitServiceImpl{
		limitRepo:    limitRepo,
		employeeRepo: employeeRepo,
		txManager:    txManager,
		dispatcher:   dispatcher,
		logger:       logger,
	}
}

// SetLimit creates or updates an employee's referral limit
func (s *limitServiceImpl) SetLimit(ctx context.Context, employeeID int64, limitCount int) (*LimitResult, error) {
	if limitCount < 0 {
		return nil, fmt.Errorf("%w: %d", entity.ErrInvalidLimit, limitCount)
	}

	employee, err := s.employeeRepo.GetByID(ctx, employeeID)
	if err != nil {
		s.logger.Error("Failed to get employee", "error", err, "employee_id", employeeID)
		return nil, fmt.Errorf("get employee: %w", err)
	}
	if employee == nil {
		return nil, fmt.Errorf("employee %d: %w", employeeID, entity.ErrNotFound)
	}

	result := &LimitResult{Success: true}
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		limit, err := s.limitRepo.FindByEmployee(txCtx, employeeID)
		if err != nil {
			return fmt.Errorf("find limit: %w", err)
		}

		if limit == nil {
			limit = &entity.ReferralLimit{EmployeeID: employeeID, LimitCount: limitCount}
			if err := s.limitRepo.Add(txCtx, limit); err != nil {
				return fmt.Errorf("create limit: %w", err)
			}
			result.Created = true
			result.Limit = limit
			return nil
		}

		if limit.UsedCount > limitCount {
			return fmt.Errorf("%w: used %d, requested %d", entity.ErrLimitBelowUsage, limit.UsedCount, limitCount)
		}

		limit.LimitCount = limitCount
		if err := s.limitRepo.Save(txCtx, limit); err != nil {
			return fmt.Errorf("save limit: %w", err)
		}
		result.Limit = limit
		return nil
	})
	if err != nil {
		if !errors.Is(err, entity.ErrLimitBelowUsage) {
			s.logger.Error("Failed to set referral limit", "error", err, "employee_id", employeeID)
		}
		return nil, err
	}

	s.logger.Info("Referral limit set",
		"employee_id", employeeID,
		"limit_count", limitCount,
		"used_count", result.Limit.UsedCount,
		"created", result.Created,
	)

	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeLimitUpdated, 0, map[string]interface{}{
			"employee_id": employeeID,
			"limit_count": limitCount,
			"used_count":  result.Limit.UsedCount,
		}))
	}

	return result, nil
}

// ConsumeSlot atomically increments the used count while a slot remains
func (s *limitServiceImpl) ConsumeSlot(ctx context.Context, employeeID int64) error {
	limit, err := s.limitRepo.FindByEmployee(ctx, employeeID)
	if err != nil {
		return fmt.Errorf("find limit: %w", err)
	}
	if limit == nil {
		return fmt.Errorf("referral limit for employee %d: %w", employeeID, entity.ErrNotFound)
	}

	consumed, err := s.limitRepo.IncrementUsed(ctx, employeeID)
	if err != nil {
		s.logger.Error("Failed to consume referral slot", "error", err, "employee_id", employeeID)
		return fmt.Errorf("increment used: %w", err)
	}
	if !consumed {
		return fmt.Errorf("employee %d: %w", employeeID, entity.ErrLimitExhausted)
	}

	s.logger.Info("Referral slot consumed", "employee_id", employeeID)
	return nil
}

// ListLimits returns every stored limit
func (s *limitServiceImpl) ListLimits(ctx context.Context) ([]*entity.ReferralLimit, error) {
	limits, err := s.limitRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list limits: %w", err)
	}
	return limits, nil
}
