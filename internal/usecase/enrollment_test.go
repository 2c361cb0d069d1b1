package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/juanjice29/PortalCapacitaciones/internal/core/domain"
	"github.com/juanjice29/PortalCapacitaciones/internal/repository"
)

var (
	ownerIdentity      = &domain.Identity{AccountID: "acc-1", Email: "alice@example.com", Role: domain.RoleUser}
	strangerIdentity   = &domain.Identity{AccountID: "acc-2", Email: "mallory@example.com", Role: domain.RoleUser}
	adminIdentity      = &domain.Identity{AccountID: "acc-admin", Email: "admin@example.com", Role: domain.RoleAdmin}
	instructorIdentity = &domain.Identity{AccountID: "acc-staff", Email: "staff@example.com", Role: domain.RoleInstructor}
)

func newEnrollmentService(enrollments *mockEnrollmentRepository, accounts *mockAccountRepository, publisher *mockEventPublisher) *EnrollmentService {
	if accounts == nil {
		accounts = &mockAccountRepository{getByIDResult: &domain.Account{ID: "acc-1", Enabled: true}}
	}
	if publisher == nil {
		return NewEnrollmentService(enrollments, accounts, nil, nil)
	}
	return NewEnrollmentService(enrollments, accounts, publisher, nil)
}

func TestEnrollmentService_Enroll_Success(t *testing.T) {
	enrollments := &mockEnrollmentRepository{}
	publisher := &mockEventPublisher{}
	fixedNow := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	service := newEnrollmentService(enrollments, nil, publisher).
		WithClock(func() time.Time { return fixedNow })

	enrollment, err := service.Enroll(context.Background(), ownerIdentity, "acc-1", "course-go")
	if err != nil {
		t.Fatalf("Enroll returned error: %v", err)
	}

	if enrollment.Status != domain.StatusIniciado {
		t.Fatalf("expected new enrollment in INICIADO, got %s", enrollment.Status)
	}
	if enrollment.EnrolledAt != fixedNow {
		t.Fatalf("expected EnrolledAt %v, got %v", fixedNow, enrollment.EnrolledAt)
	}
	if enrollments.createCalls != 1 {
		t.Fatalf("expected one create, got %d", enrollments.createCalls)
	}
	if publisher.enrollmentCreatedCalls != 1 {
		t.Fatalf("expected one enrollment-created event, got %d", publisher.enrollmentCreatedCalls)
	}
	if publisher.lastEnrollmentCreated.CourseID != "course-go" {
		t.Fatalf("unexpected event payload: %+v", publisher.lastEnrollmentCreated)
	}
}

func TestEnrollmentService_Enroll_Duplicate(t *testing.T) {
	enrollments := &mockEnrollmentRepository{createErr: repository.ErrConflict}
	service := newEnrollmentService(enrollments, nil, nil)

	if _, err := service.Enroll(context.Background(), ownerIdentity, "acc-1", "course-go"); !errors.Is(err, ErrDuplicateEnrollment) {
		t.Fatalf("expected ErrDuplicateEnrollment, got %v", err)
	}
}

func TestEnrollmentService_Enroll_Authorization(t *testing.T) {
	if _, err := newEnrollmentService(&mockEnrollmentRepository{}, nil, nil).
		Enroll(context.Background(), strangerIdentity, "acc-1", "course-go"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for a stranger, got %v", err)
	}

	if _, err := newEnrollmentService(&mockEnrollmentRepository{}, nil, nil).
		Enroll(context.Background(), nil, "acc-1", "course-go"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for anonymous, got %v", err)
	}

	// Staff can enroll on behalf of a learner.
	if _, err := newEnrollmentService(&mockEnrollmentRepository{}, nil, nil).
		Enroll(context.Background(), instructorIdentity, "acc-1", "course-go"); err != nil {
		t.Fatalf("expected instructor to enroll on behalf of a learner, got %v", err)
	}
}

func TestEnrollmentService_Enroll_UnknownAccount(t *testing.T) {
	accounts := &mockAccountRepository{getByIDErr: repository.ErrNotFound}
	service := newEnrollmentService(&mockEnrollmentRepository{}, accounts, nil)

	if _, err := service.Enroll(context.Background(), adminIdentity, "acc-ghost", "course-go"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestEnrollmentService_UpdateStatus_Transition(t *testing.T) {
	existing := domain.NewEnrollment("enr-1", "acc-1", "course-go", time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	enrollments := &mockEnrollmentRepository{getByIDResult: &existing}
	publisher := &mockEventPublisher{}
	fixedNow := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	service := newEnrollmentService(enrollments, nil, publisher).
		WithClock(func() time.Time { return fixedNow })

	updated, err := service.UpdateStatus(context.Background(), ownerIdentity, "enr-1", domain.StatusEnProgreso)
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}

	if updated.Status != domain.StatusEnProgreso {
		t.Fatalf("expected EN_PROGRESO, got %s", updated.Status)
	}
	if enrollments.updateStatusCalls != 1 || enrollments.updateStatusStatus != domain.StatusEnProgreso {
		t.Fatalf("expected status write EN_PROGRESO, got %d calls with %s", enrollments.updateStatusCalls, enrollments.updateStatusStatus)
	}
	if publisher.statusChangedCalls != 1 {
		t.Fatalf("expected one status-changed event, got %d", publisher.statusChangedCalls)
	}
	if publisher.lastStatusChanged.OldStatus != domain.StatusIniciado || publisher.lastStatusChanged.NewStatus != domain.StatusEnProgreso {
		t.Fatalf("unexpected event payload: %+v", publisher.lastStatusChanged)
	}
}

func TestEnrollmentService_UpdateStatus_Idempotent(t *testing.T) {
	existing := domain.NewEnrollment("enr-1", "acc-1", "course-go", time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	existing.Status = domain.StatusEnProgreso
	enrollments := &mockEnrollmentRepository{getByIDResult: &existing}
	publisher := &mockEventPublisher{}

	service := newEnrollmentService(enrollments, nil, publisher)

	if _, err := service.UpdateStatus(context.Background(), ownerIdentity, "enr-1", domain.StatusEnProgreso); err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if enrollments.updateStatusCalls != 0 {
		t.Fatalf("re-applying the current status must not write, got %d calls", enrollments.updateStatusCalls)
	}
	if publisher.statusChangedCalls != 0 {
		t.Fatalf("re-applying the current status must not emit an event")
	}
}

func TestEnrollmentService_UpdateStatus_Validation(t *testing.T) {
	service := newEnrollmentService(&mockEnrollmentRepository{getByIDErr: repository.ErrNotFound}, nil, nil)

	if _, err := service.UpdateStatus(context.Background(), ownerIdentity, "enr-1", "FINALIZADO"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := service.UpdateStatus(context.Background(), ownerIdentity, "enr-missing", domain.StatusCompletado); !errors.Is(err, ErrEnrollmentNotFound) {
		t.Fatalf("expected ErrEnrollmentNotFound, got %v", err)
	}
}

func TestEnrollmentService_UpdateStatus_OwnershipEnforcedAfterLoad(t *testing.T) {
	existing := domain.NewEnrollment("enr-1", "acc-1", "course-go", time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	enrollments := &mockEnrollmentRepository{getByIDResult: &existing}

	service := newEnrollmentService(enrollments, nil, nil)
	if _, err := service.UpdateStatus(context.Background(), strangerIdentity, "enr-1", domain.StatusCompletado); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner, got %v", err)
	}
	if enrollments.updateStatusCalls != 0 {
		t.Fatalf("denied caller must not write")
	}
}

// Manual status transitions are owner-scoped: staff roles get no bypass on
// someone else's enrollment.
func TestEnrollmentService_UpdateStatus_NoStaffBypass(t *testing.T) {
	existing := domain.NewEnrollment("enr-1", "acc-1", "course-go", time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	enrollments := &mockEnrollmentRepository{getByIDResult: &existing}

	service := newEnrollmentService(enrollments, nil, nil)

	if _, err := service.UpdateStatus(context.Background(), adminIdentity, "enr-1", domain.StatusCompletado); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for admin on another learner's enrollment, got %v", err)
	}
	if _, err := service.UpdateStatus(context.Background(), instructorIdentity, "enr-1", domain.StatusCompletado); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for instructor, got %v", err)
	}
	if enrollments.updateStatusCalls != 0 {
		t.Fatalf("denied staff caller must not write")
	}
}

func TestEnrollmentService_UpsertModuleProgress_CompletesEnrollment(t *testing.T) {
	enrolledAt := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	existing := domain.NewEnrollment("enr-1", "acc-1", "course-go", enrolledAt)
	existing.Status = domain.StatusEnProgreso
	existing.MergeModule("mp-1", "module-1", domain.StatusCompletado, 4, enrolledAt)
	existing.MergeModule("mp-2", "module-2", domain.StatusEnProgreso, 1, enrolledAt)

	enrollments := &mockEnrollmentRepository{getByIDResult: &existing}
	publisher := &mockEventPublisher{}
	fixedNow := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	service := newEnrollmentService(enrollments, nil, publisher).
		WithClock(func() time.Time { return fixedNow })

	updated, err := service.UpsertModuleProgress(context.Background(), ownerIdentity, "enr-1", ModuleProgressInput{
		ModuleID:          "module-2",
		Status:            domain.StatusCompletado,
		CompletedChapters: 3,
	})
	if err != nil {
		t.Fatalf("UpsertModuleProgress returned error: %v", err)
	}

	if updated.Status != domain.StatusCompletado {
		t.Fatalf("expected recomputed status COMPLETADO, got %s", updated.Status)
	}
	if enrollments.saveProgressCalls != 1 {
		t.Fatalf("expected one transactional save, got %d", enrollments.saveProgressCalls)
	}
	if enrollments.savedProgress.ModuleID != "module-2" || enrollments.savedProgress.CompletedChapters != 3 {
		t.Fatalf("unexpected saved progress: %+v", enrollments.savedProgress)
	}
	if enrollments.savedProgress.ID != "mp-2" {
		t.Fatalf("expected existing module record to be updated in place, got id %s", enrollments.savedProgress.ID)
	}
	if enrollments.savedParentEnrollment.Status != domain.StatusCompletado {
		t.Fatalf("expected parent write-back with COMPLETADO, got %s", enrollments.savedParentEnrollment.Status)
	}
	if publisher.statusChangedCalls != 1 {
		t.Fatalf("expected one status-changed event, got %d", publisher.statusChangedCalls)
	}
	if publisher.lastStatusChanged.OldStatus != domain.StatusEnProgreso || publisher.lastStatusChanged.NewStatus != domain.StatusCompletado {
		t.Fatalf("unexpected event payload: %+v", publisher.lastStatusChanged)
	}
}

func TestEnrollmentService_UpsertModuleProgress_NoStatusChangeNoEvent(t *testing.T) {
	enrolledAt := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	existing := domain.NewEnrollment("enr-1", "acc-1", "course-go", enrolledAt)
	existing.Status = domain.StatusEnProgreso
	existing.MergeModule("mp-1", "module-1", domain.StatusEnProgreso, 1, enrolledAt)

	enrollments := &mockEnrollmentRepository{getByIDResult: &existing}
	publisher := &mockEventPublisher{}

	service := newEnrollmentService(enrollments, nil, publisher)

	if _, err := service.UpsertModuleProgress(context.Background(), ownerIdentity, "enr-1", ModuleProgressInput{
		ModuleID:          "module-2",
		Status:            domain.StatusIniciado,
		CompletedChapters: 0,
	}); err != nil {
		t.Fatalf("UpsertModuleProgress returned error: %v", err)
	}

	if enrollments.saveProgressCalls != 1 {
		t.Fatalf("the module record itself must still be saved, got %d calls", enrollments.saveProgressCalls)
	}
	if publisher.statusChangedCalls != 0 {
		t.Fatalf("unchanged aggregate status must not emit an event")
	}
}

func TestEnrollmentService_UpsertModuleProgress_Validation(t *testing.T) {
	service := newEnrollmentService(&mockEnrollmentRepository{}, nil, nil)

	if _, err := service.UpsertModuleProgress(context.Background(), ownerIdentity, "enr-1", ModuleProgressInput{
		Status: domain.StatusIniciado,
	}); err == nil {
		t.Fatalf("expected error for missing module id")
	}

	if _, err := service.UpsertModuleProgress(context.Background(), ownerIdentity, "enr-1", ModuleProgressInput{
		ModuleID: "module-1",
		Status:   "HECHO",
	}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}

	if _, err := service.UpsertModuleProgress(context.Background(), ownerIdentity, "enr-1", ModuleProgressInput{
		ModuleID:          "module-1",
		Status:            domain.StatusIniciado,
		CompletedChapters: -1,
	}); err == nil {
		t.Fatalf("expected error for negative completed chapters")
	}
}

func TestEnrollmentService_UserProgress_CompletionRatio(t *testing.T) {
	enrolledAt := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	half := domain.NewEnrollment("enr-1", "acc-1", "course-go", enrolledAt)
	half.MergeModule("mp-1", "module-1", domain.StatusCompletado, 4, enrolledAt)
	half.MergeModule("mp-2", "module-2", domain.StatusIniciado, 0, enrolledAt)

	untrackedDone := domain.NewEnrollment("enr-2", "acc-1", "course-sql", enrolledAt)
	untrackedDone.Status = domain.StatusCompletado

	untrackedFresh := domain.NewEnrollment("enr-3", "acc-1", "course-k8s", enrolledAt)

	enrollments := &mockEnrollmentRepository{listByAccountResult: []domain.Enrollment{half, untrackedDone, untrackedFresh}}
	service := newEnrollmentService(enrollments, nil, nil)

	entries, err := service.UserProgress(context.Background(), ownerIdentity, "acc-1")
	if err != nil {
		t.Fatalf("UserProgress returned error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	if entries[0].Completion != 0.5 {
		t.Fatalf("expected completion 0.5 for half-done enrollment, got %v", entries[0].Completion)
	}
	if entries[1].Completion != 1.0 {
		t.Fatalf("expected completion 1.0 for completed enrollment without modules, got %v", entries[1].Completion)
	}
	if entries[2].Completion != 0.0 {
		t.Fatalf("expected completion 0.0 for fresh enrollment, got %v", entries[2].Completion)
	}
}

func TestEnrollmentService_CourseProgress_StaffOnly(t *testing.T) {
	enrollments := &mockEnrollmentRepository{listByCourseResult: []domain.Enrollment{}}
	service := newEnrollmentService(enrollments, nil, nil)

	if _, err := service.CourseProgress(context.Background(), ownerIdentity, "course-go"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for learner, got %v", err)
	}
	if _, err := service.CourseProgress(context.Background(), instructorIdentity, "course-go"); err != nil {
		t.Fatalf("expected instructor access, got %v", err)
	}
	if _, err := service.CourseProgress(context.Background(), adminIdentity, "course-go"); err != nil {
		t.Fatalf("expected admin access, got %v", err)
	}
}

func TestEnrollmentService_ListByAccount_OwnerGate(t *testing.T) {
	enrollments := &mockEnrollmentRepository{listByAccountResult: []domain.Enrollment{}}
	service := newEnrollmentService(enrollments, nil, nil)

	if _, err := service.ListByAccount(context.Background(), strangerIdentity, "acc-1"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for stranger, got %v", err)
	}
	if _, err := service.ListByAccount(context.Background(), ownerIdentity, "acc-1"); err != nil {
		t.Fatalf("expected owner access, got %v", err)
	}
}
