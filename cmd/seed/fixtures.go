package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/garyjia/referral-workflow/internal/application/port"
	"github.com/garyjia/referral-workflow/internal/application/service"
	"github.com/garyjia/referral-workflow/internal/domain/entity"
)

// Fixtures is the seed file layout. Jobs and employees are referenced by key.
type Fixtures struct {
	Jobs      []JobFixture      `yaml:"jobs"`
	Employees []EmployeeFixture `yaml:"employees"`
	Referrals []ReferralFixture `yaml:"referrals"`
}

// JobFixture describes one job
type JobFixture struct {
	Key                string `yaml:"key"`
	Title              string `yaml:"title"`
	Description        string `yaml:"description"`
	ReferralBonusCents int64  `yaml:"referral_bonus_cents"`
	CreatedBy          string `yaml:"created_by"`
}

// EmployeeFixture describes one employee and, optionally, their referral limit
type EmployeeFixture struct {
	Key   string `yaml:"key"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Limit *int   `yaml:"limit"`
}

// ReferralFixture describes one Pending referral
type ReferralFixture struct {
	CandidateName  string `yaml:"candidate_name"`
	CandidateEmail string `yaml:"candidate_email"`
	Job            string `yaml:"job"`
	Employee       string `yaml:"employee"`
}

// Summary counts what a seed run wrote
type Summary struct {
	Jobs      int
	Employees int
	Limits    int
	Referrals int
	Skipped   int
}

// LoadFixtures reads a seed file
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures file: %w", err)
	}

	var fixtures Fixtures
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fixtures: %w", err)
	}

	if err := fixtures.validate(); err != nil {
		return nil, err
	}
	return &fixtures, nil
}

func (f *Fixtures) validate() error {
	jobs := make(map[string]bool, len(f.Jobs))
	for i, j := range f.Jobs {
		if j.Key == "" || j.Title == "" {
			return fmt.Errorf("jobs[%d]: key and title are required", i)
		}
		if jobs[j.Key] {
			return fmt.Errorf("jobs[%d]: duplicate key %q", i, j.Key)
		}
		jobs[j.Key] = true
	}

	employees := make(map[string]bool, len(f.Employees))
	for i, e := range f.Employees {
		if e.Key == "" || e.Name == "" {
			return fmt.Errorf("employees[%d]: key and name are required", i)
		}
		if employees[e.Key] {
			return fmt.Errorf("employees[%d]: duplicate key %q", i, e.Key)
		}
		if e.Limit != nil && *e.Limit < 0 {
			return fmt.Errorf("employees[%d]: %w", i, entity.ErrInvalidLimit)
		}
		employees[e.Key] = true
	}

	for i, r := range f.Referrals {
		if r.CandidateName == "" {
			return fmt.Errorf("referrals[%d]: candidate_name is required", i)
		}
		if r.Job != "" && !jobs[r.Job] {
			return fmt.Errorf("referrals[%d]: unknown job %q", i, r.Job)
		}
		if r.Employee != "" && !employees[r.Employee] {
			return fmt.Errorf("referrals[%d]: unknown employee %q", i, r.Employee)
		}
	}
	return nil
}

// Seeder writes fixtures through the repositories and the limit service
type Seeder struct {
	Jobs      port.JobRepository
	Employees port.EmployeeRepository
	Referrals port.ReferralRepository
	Limits    service.LimitService
	TxManager port.TransactionManager
	Logger    *zap.Logger
}

// Run seeds jobs, employees and limits, then creates each referral as Pending.
// Every referral by an employee with a limit consumes one slot; a referral
// whose employee has no slot left is skipped.
func (s *Seeder) Run(ctx context.Context, fixtures *Fixtures) (*Summary, error) {
	summary := &Summary{}
	jobIDs := make(map[string]int64, len(fixtures.Jobs))
	employeeIDs := make(map[string]int64, len(fixtures.Employees))

	for _, jf := range fixtures.Jobs {
		job := &entity.Job{
			Title:              jf.Title,
			Description:        jf.Description,
			ReferralBonusCents: jf.ReferralBonusCents,
			CreatedBy:          jf.CreatedBy,
		}
		if err := s.Jobs.Create(ctx, job); err != nil {
			return summary, fmt.Errorf("seed job %q: %w", jf.Key, err)
		}
		jobIDs[jf.Key] = job.ID
		summary.Jobs++
	}

	for _, ef := range fixtures.Employees {
		employee := &entity.Employee{Name: ef.Name, Email: ef.Email}
		if err := s.Employees.Create(ctx, employee); err != nil {
			return summary, fmt.Errorf("seed employee %q: %w", ef.Key, err)
		}
		employeeIDs[ef.Key] = employee.ID
		summary.Employees++

		if ef.Limit != nil {
			if _, err := s.Limits.SetLimit(ctx, employee.ID, *ef.Limit); err != nil {
				return summary, fmt.Errorf("seed limit for %q: %w", ef.Key, err)
			}
			summary.Limits++
		}
	}

	for i, rf := range fixtures.Referrals {
		referral := &entity.Referral{
			CandidateName:  rf.CandidateName,
			CandidateEmail: rf.CandidateEmail,
		}
		if id, ok := jobIDs[rf.Job]; ok {
			referral.JobID = &id
		}
		if id, ok := employeeIDs[rf.Employee]; ok {
			referral.EmployeeID = &id
		}

		err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
			if referral.EmployeeID != nil {
				err := s.Limits.ConsumeSlot(txCtx, *referral.EmployeeID)
				if err != nil && !errors.Is(err, entity.ErrNotFound) {
					return err
				}
			}
			return s.Referrals.Create(txCtx, referral)
		})
		if errors.Is(err, entity.ErrLimitExhausted) {
			s.Logger.Warn("Referral limit exhausted, skipping referral",
				zap.Int("index", i),
				zap.String("candidate", rf.CandidateName),
				zap.String("employee", rf.Employee))
			summary.Skipped++
			continue
		}
		if err != nil {
			return summary, fmt.Errorf("seed referral %d: %w", i, err)
		}
		summary.Referrals++
	}

	return summary, nil
}
