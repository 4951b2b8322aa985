package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/referral-workflow/internal/application/service"
	"github.com/garyjia/referral-workflow/internal/application/workflow"
	"github.com/garyjia/referral-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/referral-workflow/internal/domain/workflow"
	"github.com/garyjia/referral-workflow/pkg/utils"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	health   HealthFunc
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, health HealthFunc, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		health:   health,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// StatusRequest is the body of POST /api/referrals/:id/status
type StatusRequest struct {
	Status      string  `json:"status" binding:"required"`
	InterviewAt *string `json:"interview_at"`
}

// HRStatusRequest is the body of POST /api/hr/update-referral-status
type HRStatusRequest struct {
	ReferralID        int64   `json:"referral_id" binding:"required"`
	NewStatus         string  `json:"new_status" binding:"required"`
	InterviewDateTime *string `json:"interview_date_time"`
}

// SetLimitRequest is the body of POST /api/hr/referral-limits
type SetLimitRequest struct {
	EmployeeID int64 `json:"employee_id" binding:"required"`
	LimitCount *int  `json:"limit_count" binding:"required"`
}

// TestNotificationRequest is the body of POST /api/notifications/test
type TestNotificationRequest struct {
	To      string `json:"to" binding:"required"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// interviewLayouts are accepted for interview timestamps; zoneless forms are read as UTC
var interviewLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	healthy := true
	var components interface{}
	if h.health != nil {
		healthy, components = h.health()
	}

	response := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	}
	code := http.StatusOK
	if !healthy {
		response.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, Response{
		Success: healthy,
		Data:    response,
	})
}

// UpdateStatus handles POST /api/referrals/:id/status
func (h *Handlers) UpdateStatus(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	h.transition(c, id, req.Status, req.InterviewAt)
}

// UpdateReferralStatus handles POST /api/hr/update-referral-status
func (h *Handlers) UpdateReferralStatus(c *gin.Context) {
	var req HRStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	h.transition(c, req.ReferralID, req.NewStatus, req.InterviewDateTime)
}

// transition parses the wire values and runs the engine
func (h *Handlers) transition(c *gin.Context, referralID int64, rawStatus string, rawInterview *string) {
	if err := utils.ValidateID("referral_id", referralID); err != nil {
		h.badRequest(c, err.Error(), err)
		return
	}

	status, err := domainwf.ParseStatus(rawStatus)
	if err != nil {
		h.badRequest(c, err.Error(), err)
		return
	}

	interviewAt, err := parseInterviewTime(rawInterview)
	if err != nil {
		h.badRequest(c, err.Error(), err)
		return
	}

	result, err := h.services.Engine.RequestTransition(c.Request.Context(), workflow.TransitionRequest{
		ReferralID:  referralID,
		Status:      status,
		InterviewAt: interviewAt,
	})
	if err != nil {
		h.writeError(c, "Failed to update referral status", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListReferrals handles GET /api/referrals
func (h *Handlers) ListReferrals(c *gin.Context) {
	referrals, err := h.services.Referrals.ListReferrals(c.Request.Context())
	if err != nil {
		h.writeError(c, "Failed to list referrals", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: referrals})
}

// SearchReferrals handles GET /api/referrals/search?employee_name=
func (h *Handlers) SearchReferrals(c *gin.Context) {
	referrals, err := h.services.Referrals.SearchByEmployeeName(c.Request.Context(), c.Query("employee_name"))
	if err != nil {
		h.writeError(c, "Failed to search referrals", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: referrals})
}

// GetHistory handles GET /api/referrals/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	history, err := h.services.Referrals.GetHistory(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "Failed to get referral history", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// ListEarnings handles GET /api/hr/earnings
func (h *Handlers) ListEarnings(c *gin.Context) {
	earnings, err := h.services.Referrals.ListEarnings(c.Request.Context())
	if err != nil {
		h.writeError(c, "Failed to list earnings", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: earnings})
}

// ExportEarnings handles GET /api/hr/earnings/export
func (h *Handlers) ExportEarnings(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.services.Referrals.ExportEarnings(c.Request.Context(), &buf); err != nil {
		h.writeError(c, "Failed to export earnings", err)
		return
	}

	filename := fmt.Sprintf("earnings-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, h.services.Referrals.ExportContentType(), buf.Bytes())
}

// ListJobs handles GET /api/hr/jobs
func (h *Handlers) ListJobs(c *gin.Context) {
	jobs, err := h.services.Referrals.ListJobs(c.Request.Context())
	if err != nil {
		h.writeError(c, "Failed to list jobs", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: jobs})
}

// ListLimits handles GET /api/hr/referral-limits
func (h *Handlers) ListLimits(c *gin.Context) {
	limits, err := h.services.Limits.ListLimits(c.Request.Context())
	if err != nil {
		h.writeError(c, "Failed to list referral limits", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: limits})
}

// SetLimit handles POST /api/hr/referral-limits
func (h *Handlers) SetLimit(c *gin.Context) {
	var req SetLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	result, err := h.services.Limits.SetLimit(c.Request.Context(), req.EmployeeID, *req.LimitCount)
	if err != nil {
		h.writeError(c, "Failed to set referral limit", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SendTestNotification handles POST /api/notifications/test
func (h *Handlers) SendTestNotification(c *gin.Context) {
	var req TestNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	if err := h.services.Notifications.SendTest(c.Request.Context(), req.To, req.Subject, req.Body); err != nil {
		h.writeError(c, "Failed to send test notification", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// parseID reads the :id path parameter, writing a 400 when it is not a positive integer
func (h *Handlers) parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(c, "invalid referral ID", err)
		return 0, false
	}
	return id, true
}

func (h *Handlers) badRequest(c *gin.Context, message string, err error) {
	h.logger.Info("Rejected request", "path", c.FullPath(), "reason", message, "error", err)
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: message})
}

// writeError maps application errors to HTTP status codes
func (h *Handlers) writeError(c *gin.Context, logMsg string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error(logMsg, "error", err, "path", c.FullPath())
	} else {
		h.logger.Info(logMsg, "error", err, "path", c.FullPath(), "status", code)
	}
	c.JSON(code, Response{Success: false, Error: err.Error()})
}

// statusFor returns the HTTP status for an application error
func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case workflow.IsValidationError(err),
		errors.Is(err, entity.ErrLimitBelowUsage),
		errors.Is(err, entity.ErrInvalidLimit),
		errors.Is(err, entity.ErrLimitExhausted):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// parseInterviewTime parses an optional interview timestamp
func parseInterviewTime(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	for _, layout := range interviewLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid interview time %q: expected RFC 3339", value)
}
