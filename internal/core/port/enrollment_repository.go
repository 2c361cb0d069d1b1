package port

import (
	"context"
	"time"

	"github.com/juanjice29/PortalCapacitaciones/internal/core/domain"
)

// EnrollmentRepository exposes persistence behavior for enrollments and
// their module-progress children. Reads that return an Enrollment always
// hydrate its module set.
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment domain.Enrollment) error
	GetByID(ctx context.Context, id string) (*domain.Enrollment, error)
	GetByAccountAndCourse(ctx context.Context, accountID, courseID string) (*domain.Enrollment, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.Enrollment, error)
	ListByCourse(ctx context.Context, courseID string) ([]domain.Enrollment, error)
	UpdateStatus(ctx context.Context, id string, status domain.EnrollmentStatus, changedAt time.Time) error

	// SaveModuleProgress merges one module submission into the enrollment
	// under a row lock, recomputes the aggregate status from the full
	// module set, and persists both inside a single transaction, so
	// concurrent submissions for the same enrollment cannot lose updates.
	// Returns the resulting enrollment and the aggregate status that was
	// in force before the merge. The submission's ID is used only when the
	// module has no record yet.
	SaveModuleProgress(ctx context.Context, enrollmentID string, submission domain.ModuleProgress, now time.Time) (*domain.Enrollment, domain.EnrollmentStatus, error)
}
