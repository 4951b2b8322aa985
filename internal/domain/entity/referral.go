package entity

import (
	"time"

	"github.com/garyjia/referral-workflow/internal/domain/workflow"
)

// Referral represents one candidate proposed by one employee for one job
type Referral struct {
	ID             int64           `json:"id"`
	CandidateName  string          `json:"candidate_name"`
	CandidateEmail string          `json:"candidate_email,omitempty"`
	Status         workflow.Status `json:"status"`
	InterviewAt    *time.Time      `json:"interview_at,omitempty"`
	JobID          *int64          `json:"job_id,omitempty"`
	EmployeeID     *int64          `json:"employee_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Read-through references loaded with the referral
	Job      *Job      `json:"job,omitempty"`
	Employee *Employee `json:"employee,omitempty"`
}

// JobTitle returns the job title, or fallback when the job is unknown
func (r *Referral) JobTitle(fallback string) string {
	if r.Job == nil || r.Job.Title == "" {
		return fallback
	}
	return r.Job.Title
}

// EmployeeEmail returns the referring employee's email, if known
func (r *Referral) EmployeeEmail() string {
	if r.Employee == nil {
		return ""
	}
	return r.Employee.Email
}

// EmployeeName returns the referring employee's name, if known
func (r *Referral) EmployeeName() string {
	if r.Employee == nil {
		return ""
	}
	return r.Employee.Name
}

// Job is a position open for referrals
type Job struct {
	ID                 int64     `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	ReferralBonusCents int64     `json:"referral_bonus_cents"`
	CreatedBy          string    `json:"created_by,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// Employee is a referring employee
type Employee struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}
