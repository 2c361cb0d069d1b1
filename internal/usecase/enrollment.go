package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/juanjice29/PortalCapacitaciones/internal/core/domain"
	"github.com/juanjice29/PortalCapacitaciones/internal/core/port"
	"github.com/juanjice29/PortalCapacitaciones/internal/repository"
)

var (
	// ErrDuplicateEnrollment indicates the account is already enrolled in the course.
	ErrDuplicateEnrollment = errors.New("account already enrolled in course")
	// ErrEnrollmentNotFound indicates the enrollment does not exist.
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	// ErrInvalidStatus indicates an unrecognized enrollment status value.
	ErrInvalidStatus = errors.New("invalid enrollment status")
)

// ModuleProgressInput carries one module-progress submission.
type ModuleProgressInput struct {
	ModuleID          string
	Status            domain.EnrollmentStatus
	CompletedChapters int
}

// CourseProgressEntry summarizes one learner's standing in a course report.
type CourseProgressEntry struct {
	Enrollment domain.Enrollment
	Completion float64
}

// EnrollmentService manages the enrollment lifecycle: creation, manual
// status transitions, module-progress submissions with aggregate
// recomputation, and the progress reports over the result.
//
// Self-access is gated per call: learners reach only their own enrollments,
// staff roles reach everything.
type EnrollmentService struct {
	enrollments port.EnrollmentRepository
	accounts    port.AccountRepository
	publisher   port.EventPublisher
	logger      *zap.Logger
	now         func() time.Time
}

// NewEnrollmentService constructs an EnrollmentService instance.
func NewEnrollmentService(
	enrollments port.EnrollmentRepository,
	accounts port.AccountRepository,
	publisher port.EventPublisher,
	logger *zap.Logger,
) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		enrollments: enrollments,
		accounts:    accounts,
		publisher:   publisher,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock injects a custom clock, primarily for tests.
func (s *EnrollmentService) WithClock(now func() time.Time) *EnrollmentService {
	if now != nil {
		s.now = now
	}
	return s
}

// Enroll creates an enrollment for the account in the course. The caller
// must be the account owner or hold a staff role. At most one enrollment
// exists per (account, course) pair.
func (s *EnrollmentService) Enroll(ctx context.Context, identity *domain.Identity, accountID, courseID string) (*domain.Enrollment, error) {
	if err := domain.OwnerOr(domain.RoleAdmin, domain.RoleInstructor).Authorize(identity, accountID); err != nil {
		return nil, err
	}
	if accountID == "" || courseID == "" {
		return nil, fmt.Errorf("account id and course id are required")
	}

	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	now := s.now().UTC()
	enrollment := domain.NewEnrollment(uuid.NewString(), accountID, courseID, now)

	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrDuplicateEnrollment
		}
		return nil, fmt.Errorf("create enrollment: %w", err)
	}

	if s.publisher != nil {
		event := domain.EnrollmentCreatedEvent{
			EnrollmentID: enrollment.ID,
			AccountID:    enrollment.AccountID,
			CourseID:     enrollment.CourseID,
			EnrolledAt:   now,
		}
		if err := s.publisher.PublishEnrollmentCreated(ctx, event); err != nil {
			s.logger.Warn("publish enrollment created", zap.Error(err))
		}
	}

	return &enrollment, nil
}

// ListByAccount returns the account's enrollments. Learners see only their
// own; staff roles see anyone's.
func (s *EnrollmentService) ListByAccount(ctx context.Context, identity *domain.Identity, accountID string) ([]domain.Enrollment, error) {
	if err := domain.OwnerOr(domain.RoleAdmin, domain.RoleInstructor).Authorize(identity, accountID); err != nil {
		return nil, err
	}

	enrollments, err := s.enrollments.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// UpdateStatus applies a manual aggregate status transition. Only the
// enrolled learner may drive their own status by hand; staff reach progress
// through the reports instead. Idempotent: re-applying the current status
// changes nothing and emits no event.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, identity *domain.Identity, enrollmentID string, status domain.EnrollmentStatus) (*domain.Enrollment, error) {
	if _, ok := domain.ParseEnrollmentStatus(string(status)); !ok {
		return nil, ErrInvalidStatus
	}

	enrollment, err := s.enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("lookup enrollment: %w", err)
	}

	if err := domain.OwnerOr().Authorize(identity, enrollment.AccountID); err != nil {
		return nil, err
	}

	oldStatus := enrollment.Status
	now := s.now().UTC()
	if !enrollment.ApplyStatus(status, now) {
		return enrollment, nil
	}

	if err := s.enrollments.UpdateStatus(ctx, enrollment.ID, enrollment.Status, now); err != nil {
		return nil, fmt.Errorf("update enrollment status: %w", err)
	}

	s.emitStatusChanged(ctx, *enrollment, oldStatus, now)

	return enrollment, nil
}

// UpsertModuleProgress records one module submission and recomputes the
// enrollment's aggregate status from the full module set. Merge, recompute,
// and write-back run in one repository transaction.
func (s *EnrollmentService) UpsertModuleProgress(ctx context.Context, identity *domain.Identity, enrollmentID string, input ModuleProgressInput) (*domain.Enrollment, error) {
	if input.ModuleID == "" {
		return nil, fmt.Errorf("module id is required")
	}
	if _, ok := domain.ParseEnrollmentStatus(string(input.Status)); !ok {
		return nil, ErrInvalidStatus
	}
	if input.CompletedChapters < 0 {
		return nil, fmt.Errorf("completed chapters must not be negative")
	}

	enrollment, err := s.enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("lookup enrollment: %w", err)
	}

	if err := domain.OwnerOr(domain.RoleAdmin, domain.RoleInstructor).Authorize(identity, enrollment.AccountID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	submission := domain.ModuleProgress{
		ID:                uuid.NewString(),
		EnrollmentID:      enrollment.ID,
		ModuleID:          input.ModuleID,
		Status:            input.Status,
		CompletedChapters: input.CompletedChapters,
		LastUpdated:       now,
	}

	// Merge and recompute happen inside the repository transaction, against
	// the module set as it exists at commit time. Concurrent submissions for
	// the same enrollment therefore serialize instead of clobbering each
	// other's aggregate status.
	updated, previous, err := s.enrollments.SaveModuleProgress(ctx, enrollment.ID, submission, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("save module progress: %w", err)
	}

	if updated.Status != previous {
		s.emitStatusChanged(ctx, *updated, previous, now)
	}

	return updated, nil
}

// UserProgress reports one account's standing across all its enrollments.
func (s *EnrollmentService) UserProgress(ctx context.Context, identity *domain.Identity, accountID string) ([]CourseProgressEntry, error) {
	if err := domain.OwnerOr(domain.RoleAdmin, domain.RoleInstructor).Authorize(identity, accountID); err != nil {
		return nil, err
	}

	enrollments, err := s.enrollments.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}

	return progressEntries(enrollments), nil
}

// CourseProgress reports every learner's standing in one course. Staff only.
func (s *EnrollmentService) CourseProgress(ctx context.Context, identity *domain.Identity, courseID string) ([]CourseProgressEntry, error) {
	if err := domain.Roles(domain.RoleAdmin, domain.RoleInstructor).Authorize(identity, ""); err != nil {
		return nil, err
	}

	enrollments, err := s.enrollments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list course enrollments: %w", err)
	}

	return progressEntries(enrollments), nil
}

func progressEntries(enrollments []domain.Enrollment) []CourseProgressEntry {
	entries := make([]CourseProgressEntry, 0, len(enrollments))
	for _, enrollment := range enrollments {
		entries = append(entries, CourseProgressEntry{
			Enrollment: enrollment,
			Completion: completionRatio(enrollment),
		})
	}
	return entries
}

// completionRatio is the share of tracked modules in COMPLETADO state. An
// enrollment without modules reports 1.0 only when fully completed.
func completionRatio(enrollment domain.Enrollment) float64 {
	if len(enrollment.Modules) == 0 {
		if enrollment.Status == domain.StatusCompletado {
			return 1.0
		}
		return 0.0
	}

	completed := 0
	for _, m := range enrollment.Modules {
		if m.Status == domain.StatusCompletado {
			completed++
		}
	}
	return float64(completed) / float64(len(enrollment.Modules))
}

func (s *EnrollmentService) emitStatusChanged(ctx context.Context, enrollment domain.Enrollment, oldStatus domain.EnrollmentStatus, at time.Time) {
	if s.publisher == nil {
		return
	}
	event := domain.EnrollmentStatusChangedEvent{
		EnrollmentID: enrollment.ID,
		AccountID:    enrollment.AccountID,
		CourseID:     enrollment.CourseID,
		OldStatus:    oldStatus,
		NewStatus:    enrollment.Status,
		ChangedAt:    at,
	}
	if err := s.publisher.PublishEnrollmentStatusChanged(ctx, event); err != nil {
		s.logger.Warn("publish enrollment status changed", zap.Error(err))
	}
}
