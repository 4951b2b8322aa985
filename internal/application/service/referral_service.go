package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/garyjia/referral-workflow/internal/application/port"
	"github.com/garyjia/referral-workflow/internal/domain/entity"
)

// ReferralService serves the read side of referrals and their ledger
type ReferralService interface {
	ListReferrals(ctx context.Context) ([]*entity.Referral, error)
	SearchByEmployeeName(ctx context.Context, name string) ([]*entity.Referral, error)
	GetHistory(ctx context.Context, referralID int64) ([]*entity.ReferralStatusChange, error)
	ListEarnings(ctx context.Context) ([]*entity.Earning, error)
	ListJobs(ctx context.Context) ([]*entity.Job, error)

	// ExportEarnings writes every earning, joined with its referral, using the report writer
	ExportEarnings(ctx context.Context, w io.Writer) error
	ExportContentType() string
}

type referralServiceImpl struct {
	referralRepo port.ReferralRepository
	earningRepo  port.EarningRepository
	historyRepo  port.HistoryRepository
	jobRepo      port.JobRepository
	report       port.EarningsReportWriter
	logger       Logger
}

// NewReferralService creates a new ReferralService
func NewReferralService(
	referralRepo port.ReferralRepository,
	earningRepo port.EarningRepository,
	historyRepo port.HistoryRepository,
	jobRepo port.JobRepository,
	report port.EarningsReportWriter,
	logger Logger,
) ReferralService {
	return &referralServiceImpl{
		referralRepo: referralRepo,
		earningRepo:  earningRepo,
		historyRepo:  historyRepo,
		jobRepo:      jobRepo,
		report:       report,
		logger:       logger,
	}
}

// ListReferrals returns all referrals with job and employee
func (s *referralServiceImpl) ListReferrals(ctx context.Context) ([]*entity.Referral, error) {
	referrals, err := s.referralRepo.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list referrals", "error", err)
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	return referrals, nil
}

// SearchByEmployeeName returns referrals made by employees whose name contains name
func (s *referralServiceImpl) SearchByEmployeeName(ctx context.Context, name string) ([]*entity.Referral, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: employee name is required", ErrInvalidInput)
	}

	referrals, err := s.referralRepo.SearchByEmployeeName(ctx, name)
	if err != nil {
		s.logger.Error("Failed to search referrals", "error", err, "employee_name", name)
		return nil, fmt.Errorf("search referrals: %w", err)
	}
	return referrals, nil
}

// GetHistory returns the status audit trail of a referral, oldest first
func (s *referralServiceImpl) GetHistory(ctx context.Context, referralID int64) ([]*entity.ReferralStatusChange, error) {
	referral, err := s.referralRepo.GetByID(ctx, referralID)
	if err != nil {
		return nil, fmt.Errorf("get referral: %w", err)
	}
	if referral == nil {
		return nil, fmt.Errorf("referral %d: %w", referralID, entity.ErrNotFound)
	}

	changes, err := s.historyRepo.GetByReferralID(ctx, referralID)
	if err != nil {
		s.logger.Error("Failed to get referral history", "error", err, "referral_id", referralID)
		return nil, fmt.Errorf("get history: %w", err)
	}
	return changes, nil
}

func (s *referralServiceImpl) ListEarnings(ctx context.Context) ([]*entity.Earning, error) {
	earnings, err := s.earningRepo.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list earnings", "error", err)
		return nil, fmt.Errorf("list earnings: %w", err)
	}
	return earnings, nil
}

func (s *referralServiceImpl) ListJobs(ctx context.Context) ([]*entity.Job, error) {
	jobs, err := s.jobRepo.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list jobs", "error", err)
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// ExportEarnings renders the earnings ledger
func (s *referralServiceImpl) ExportEarnings(ctx context.Context, w io.Writer) error {
	earnings, err := s.ListEarnings(ctx)
	if err != nil {
		return err
	}

	referrals, err := s.ListReferrals(ctx)
	if err != nil {
		return err
	}
	byID := make(map[int64]*entity.Referral, len(referrals))
	for _, r := range referrals {
		byID[r.ID] = r
	}

	rows := make([]port.EarningReportRow, 0, len(earnings))
	for _, e := range earnings {
		row := port.EarningReportRow{
			EarningID:   e.ID,
			ReferralID:  e.ReferralID,
			AmountCents: e.AmountCents,
			CreatedAt:   e.CreatedAt,
		}
		if r, ok := byID[e.ReferralID]; ok {
			row.CandidateName = r.CandidateName
			row.EmployeeName = r.EmployeeName()
			row.JobTitle = r.JobTitle("")
		}
		rows = append(rows, row)
	}

	if err := s.report.Write(w, rows); err != nil {
		s.logger.Error("Failed to render earnings report", "error", err, "rows", len(rows))
		return fmt.Errorf("render earnings report: %w", err)
	}

	s.logger.Info("Earnings report exported", "rows", len(rows))
	return nil
}

func (s *referralServiceImpl) ExportContentType() string {
	return s.report.ContentType()
}
