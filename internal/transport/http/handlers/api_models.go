package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/juanjice29/PortalCapacitaciones/internal/core/domain"
	"github.com/juanjice29/PortalCapacitaciones/internal/transport/http/middleware"
	"github.com/juanjice29/PortalCapacitaciones/internal/usecase"
)

// ErrorResponse is the uniform error payload returned by every endpoint.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse builds the error payload for the current request.
func NewErrorResponse(c *gin.Context, status int, message string) ErrorResponse {
	return ErrorResponse{
		Status:  status,
		Error:   statusText(status),
		Message: message,
		Path:    c.Request.URL.Path,
		TraceID: middleware.GetTraceID(c),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// AccountSummary describes the API view of an account. Password material
// never appears here.
type AccountSummary struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Provider string `json:"provider"`
	Enabled  bool   `json:"enabled"`
}

func accountSummary(account domain.Account) AccountSummary {
	return AccountSummary{
		ID:       account.ID,
		Email:    account.Email,
		FullName: account.FullName,
		Role:     string(account.Role),
		Provider: string(account.Provider),
		Enabled:  account.Enabled,
	}
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest defines the account registration payload. Role is
// optional and defaults to USER.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

// AuthResponse describes the response returned for a successful credential exchange.
type AuthResponse struct {
	Token     string         `json:"token"`
	TokenType string         `json:"token_type"`
	ExpiresIn int            `json:"expires_in"`
	User      AccountSummary `json:"user"`
}

func authResponse(result *usecase.AuthResult) AuthResponse {
	return AuthResponse{
		Token:     result.Token,
		TokenType: "Bearer",
		ExpiresIn: int(result.ExpiresIn.Seconds()),
		User:      accountSummary(result.Account),
	}
}

// AccountUpdateRequest carries an admin account edit. Absent fields are
// left untouched.
type AccountUpdateRequest struct {
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	Enabled  *bool   `json:"enabled"`
}

// EnrollRequest defines the enrollment creation payload.
type EnrollRequest struct {
	CourseID string `json:"course_id" binding:"required"`
}

// EnrollmentStatusRequest carries a manual aggregate status transition.
type EnrollmentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ModuleProgressRequest carries one module-progress submission.
type ModuleProgressRequest struct {
	ModuleID          string `json:"module_id" binding:"required"`
	Status            string `json:"status" binding:"required"`
	CompletedChapters int    `json:"completed_chapters" binding:"gte=0"`
}

// ModuleProgressView is the API view of one module-progress record.
type ModuleProgressView struct {
	ModuleID          string    `json:"module_id"`
	Status            string    `json:"status"`
	CompletedChapters int       `json:"completed_chapters"`
	LastUpdated       time.Time `json:"last_updated"`
}

// EnrollmentView is the API view of an enrollment with its modules.
type EnrollmentView struct {
	ID               string               `json:"id"`
	AccountID        string               `json:"account_id"`
	CourseID         string               `json:"course_id"`
	Status           string               `json:"status"`
	EnrolledAt       time.Time            `json:"enrolled_at"`
	LastStatusChange time.Time            `json:"last_status_change"`
	Modules          []ModuleProgressView `json:"modules"`
}

func enrollmentView(enrollment domain.Enrollment) EnrollmentView {
	modules := make([]ModuleProgressView, 0, len(enrollment.Modules))
	for _, m := range enrollment.Modules {
		modules = append(modules, ModuleProgressView{
			ModuleID:          m.ModuleID,
			Status:            string(m.Status),
			CompletedChapters: m.CompletedChapters,
			LastUpdated:       m.LastUpdated,
		})
	}
	return EnrollmentView{
		ID:               enrollment.ID,
		AccountID:        enrollment.AccountID,
		CourseID:         enrollment.CourseID,
		Status:           string(enrollment.Status),
		EnrolledAt:       enrollment.EnrolledAt,
		LastStatusChange: enrollment.LastStatusChange,
		Modules:          modules,
	}
}

func enrollmentViews(enrollments []domain.Enrollment) []EnrollmentView {
	views := make([]EnrollmentView, 0, len(enrollments))
	for _, e := range enrollments {
		views = append(views, enrollmentView(e))
	}
	return views
}

// ProgressEntryView is one row of a progress report.
type ProgressEntryView struct {
	Enrollment EnrollmentView `json:"enrollment"`
	Completion float64        `json:"completion"`
}

func progressViews(entries []usecase.CourseProgressEntry) []ProgressEntryView {
	views := make([]ProgressEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, ProgressEntryView{
			Enrollment: enrollmentView(entry.Enrollment),
			Completion: entry.Completion,
		})
	}
	return views
}

// HealthResponse reports liveness information.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}
