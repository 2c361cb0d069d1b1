package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/juanjice29/PortalCapacitaciones/internal/core/domain"
	"github.com/juanjice29/PortalCapacitaciones/internal/core/port"
	"github.com/juanjice29/PortalCapacitaciones/internal/repository"
)

var enrollmentColumns = []string{
	"id",
	"account_id",
	"course_id",
	"status",
	"enrolled_at",
	"last_status_change",
}

var moduleProgressColumns = []string{
	"id",
	"enrollment_id",
	"module_id",
	"status",
	"completed_chapters",
	"last_updated",
}

// EnrollmentRepository implements port.EnrollmentRepository using PostgreSQL.
// Enrollment reads hydrate the module-progress children.
type EnrollmentRepository struct {
	pool    *pgxpool.Pool
	db      pgDatabase
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewEnrollmentRepository constructs a repository backed by any executor that
// can also open transactions.
func NewEnrollmentRepository(db pgDatabase) *EnrollmentRepository {
	repo := &EnrollmentRepository{
		db:      db,
		exec:    db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := db.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Create inserts a new enrollment row. A unique violation on the
// (account, course) pair maps to repository.ErrConflict.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment domain.Enrollment) error {
	stmt, args, err := r.builder.Insert("campus.enrollments").
		Columns(enrollmentColumns...).
		Values(
			enrollment.ID,
			enrollment.AccountID,
			enrollment.CourseID,
			enrollment.Status,
			enrollment.EnrolledAt,
			enrollment.LastStatusChange,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert enrollment sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert enrollment: %w", err)
	}

	return nil
}

// GetByID retrieves an enrollment with its module-progress children.
func (r *EnrollmentRepository) GetByID(ctx context.Context, id string) (*domain.Enrollment, error) {
	stmt, args, err := r.builder.
		Select(enrollmentColumns...).
		From("campus.enrollments").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select enrollment sql: %w", err)
	}

	enrollment, err := scanEnrollment(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan enrollment: %w", err)
	}

	modules, err := r.listModules(ctx, r.exec, enrollment.ID)
	if err != nil {
		return nil, err
	}
	enrollment.Modules = modules

	return enrollment, nil
}

// GetByAccountAndCourse retrieves the single enrollment for an
// (account, course) pair, with its module-progress children.
func (r *EnrollmentRepository) GetByAccountAndCourse(ctx context.Context, accountID, courseID string) (*domain.Enrollment, error) {
	stmt, args, err := r.builder.
		Select(enrollmentColumns...).
		From("campus.enrollments").
		Where(squirrel.Eq{"account_id": accountID, "course_id": courseID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select enrollment by account and course sql: %w", err)
	}

	enrollment, err := scanEnrollment(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan enrollment by account and course: %w", err)
	}

	modules, err := r.listModules(ctx, r.exec, enrollment.ID)
	if err != nil {
		return nil, err
	}
	enrollment.Modules = modules

	return enrollment, nil
}

// ListByAccount returns all enrollments for one account, modules included.
func (r *EnrollmentRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.Enrollment, error) {
	return r.list(ctx, squirrel.Eq{"account_id": accountID})
}

// ListByCourse returns all enrollments in one course, modules included.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]domain.Enrollment, error) {
	return r.list(ctx, squirrel.Eq{"course_id": courseID})
}

func (r *EnrollmentRepository) list(ctx context.Context, where squirrel.Eq) ([]domain.Enrollment, error) {
	stmt, args, err := r.builder.
		Select(enrollmentColumns...).
		From("campus.enrollments").
		Where(where).
		OrderBy("enrolled_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list enrollments sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()

	enrollments := make([]domain.Enrollment, 0)
	for rows.Next() {
		enrollment, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		enrollments = append(enrollments, *enrollment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollments: %w", err)
	}

	for i := range enrollments {
		modules, err := r.listModules(ctx, r.exec, enrollments[i].ID)
		if err != nil {
			return nil, err
		}
		enrollments[i].Modules = modules
	}

	return enrollments, nil
}

// UpdateStatus writes a manual status transition.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status domain.EnrollmentStatus, changedAt time.Time) error {
	stmt, args, err := r.builder.Update("campus.enrollments").
		Set("status", status).
		Set("last_status_change", changedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update enrollment status sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SaveModuleProgress merges one module submission into the enrollment and
// recomputes its aggregate status, all inside one transaction. The parent
// row is locked first so concurrent submissions for the same enrollment
// serialize instead of overwriting each other's recompute.
func (r *EnrollmentRepository) SaveModuleProgress(ctx context.Context, enrollmentID string, submission domain.ModuleProgress, now time.Time) (*domain.Enrollment, domain.EnrollmentStatus, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("begin save module progress: %w", err)
	}

	stmt, args, err := r.builder.
		Select(enrollmentColumns...).
		From("campus.enrollments").
		Where(squirrel.Eq{"id": enrollmentID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, "", rollback(ctx, tx, fmt.Errorf("build lock enrollment sql: %w", err))
	}

	enrollment, err := scanEnrollment(tx.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", rollback(ctx, tx, repository.ErrNotFound)
		}
		return nil, "", rollback(ctx, tx, fmt.Errorf("lock enrollment: %w", err))
	}

	modules, err := r.listModules(ctx, tx, enrollment.ID)
	if err != nil {
		return nil, "", rollback(ctx, tx, err)
	}
	enrollment.Modules = modules

	merged := enrollment.MergeModule(submission.ID, submission.ModuleID, submission.Status, submission.CompletedChapters, now)
	previous := enrollment.Status
	enrollment.ApplyStatus(domain.RecomputeStatus(enrollment.Status, enrollment.Modules), now)

	upsert := `
		INSERT INTO campus.module_progress
			(id, enrollment_id, module_id, status, completed_chapters, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (enrollment_id, module_id) DO UPDATE SET
			status = EXCLUDED.status,
			completed_chapters = EXCLUDED.completed_chapters,
			last_updated = EXCLUDED.last_updated
	`
	if _, err := tx.Exec(ctx, upsert,
		merged.ID,
		merged.EnrollmentID,
		merged.ModuleID,
		merged.Status,
		merged.CompletedChapters,
		merged.LastUpdated,
	); err != nil {
		return nil, "", rollback(ctx, tx, fmt.Errorf("upsert module progress: %w", err))
	}

	update := `
		UPDATE campus.enrollments
		   SET status = $1, last_status_change = $2
		 WHERE id = $3
	`
	if _, err := tx.Exec(ctx, update, enrollment.Status, enrollment.LastStatusChange, enrollment.ID); err != nil {
		return nil, "", rollback(ctx, tx, fmt.Errorf("update enrollment from module progress: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", fmt.Errorf("commit save module progress: %w", err)
	}

	return enrollment, previous, nil
}

func (r *EnrollmentRepository) listModules(ctx context.Context, q pgExecutor, enrollmentID string) ([]domain.ModuleProgress, error) {
	stmt, args, err := r.builder.
		Select(moduleProgressColumns...).
		From("campus.module_progress").
		Where(squirrel.Eq{"enrollment_id": enrollmentID}).
		OrderBy("module_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list module progress sql: %w", err)
	}

	rows, err := q.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query module progress: %w", err)
	}
	defer rows.Close()

	modules := make([]domain.ModuleProgress, 0)
	for rows.Next() {
		var m domain.ModuleProgress
		if err := rows.Scan(
			&m.ID,
			&m.EnrollmentID,
			&m.ModuleID,
			&m.Status,
			&m.CompletedChapters,
			&m.LastUpdated,
		); err != nil {
			return nil, fmt.Errorf("scan module progress: %w", err)
		}
		modules = append(modules, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate module progress: %w", err)
	}

	return modules, nil
}

func scanEnrollment(row pgx.Row) (*domain.Enrollment, error) {
	var enrollment domain.Enrollment
	if err := row.Scan(
		&enrollment.ID,
		&enrollment.AccountID,
		&enrollment.CourseID,
		&enrollment.Status,
		&enrollment.EnrolledAt,
		&enrollment.LastStatusChange,
	); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

var _ port.EnrollmentRepository = (*EnrollmentRepository)(nil)
