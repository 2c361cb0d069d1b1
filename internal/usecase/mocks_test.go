package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/juanjice29/PortalCapacitaciones/internal/core/domain"
	"github.com/juanjice29/PortalCapacitaciones/internal/repository"
)

type accountLookup struct {
	account *domain.Account
	err     error
}

type mockAccountRepository struct {
	createErr      error
	createCalls    int
	createdAccount domain.Account

	getByIDResult *domain.Account
	getByIDErr    error
	getByIDCalls  int
	getByIDLastID string

	// getByEmail is consumed in order; the last entry repeats once the
	// queue is exhausted. An empty queue reports ErrNotFound.
	getByEmail          []accountLookup
	getByEmailCalls     int
	getByEmailLastEmail string

	existsByEmailResult bool
	existsByEmailErr    error
	existsByEmailCalls  int

	updateErr     error
	updateCalls   int
	updatedResult domain.Account

	deleteErr    error
	deleteCalls  int
	deleteLastID string

	listResult []domain.Account
	listErr    error
	listCalls  int
}

func (m *mockAccountRepository) Create(_ context.Context, account domain.Account) error {
	m.createCalls++
	m.createdAccount = account
	return m.createErr
}

func (m *mockAccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	m.getByIDCalls++
	m.getByIDLastID = id
	if m.getByIDResult != nil {
		copy := *m.getByIDResult
		return &copy, m.getByIDErr
	}
	return nil, m.getByIDErr
}

func (m *mockAccountRepository) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	idx := m.getByEmailCalls
	m.getByEmailCalls++
	m.getByEmailLastEmail = email

	if len(m.getByEmail) == 0 {
		return nil, repository.ErrNotFound
	}
	if idx >= len(m.getByEmail) {
		idx = len(m.getByEmail) - 1
	}
	entry := m.getByEmail[idx]
	if entry.account != nil {
		copy := *entry.account
		return &copy, entry.err
	}
	return nil, entry.err
}

func (m *mockAccountRepository) ExistsByEmail(context.Context, string) (bool, error) {
	m.existsByEmailCalls++
	return m.existsByEmailResult, m.existsByEmailErr
}

func (m *mockAccountRepository) Update(_ context.Context, account domain.Account) error {
	m.updateCalls++
	m.updatedResult = account
	return m.updateErr
}

func (m *mockAccountRepository) Delete(_ context.Context, id string) error {
	m.deleteCalls++
	m.deleteLastID = id
	return m.deleteErr
}

func (m *mockAccountRepository) List(context.Context) ([]domain.Account, error) {
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Account, len(m.listResult))
	copy(out, m.listResult)
	return out, nil
}

type mockEnrollmentRepository struct {
	createErr     error
	createCalls   int
	createdRecord domain.Enrollment

	getByIDResult *domain.Enrollment
	getByIDErr    error
	getByIDCalls  int

	getByAccountAndCourseResult *domain.Enrollment
	getByAccountAndCourseErr    error

	listByAccountResult []domain.Enrollment
	listByAccountErr    error
	listByAccountCalls  int

	listByCourseResult []domain.Enrollment
	listByCourseErr    error
	listByCourseCalls  int

	updateStatusErr    error
	updateStatusCalls  int
	updateStatusID     string
	updateStatusStatus domain.EnrollmentStatus

	saveProgressErr       error
	saveProgressCalls     int
	savedSubmission       domain.ModuleProgress
	savedProgress         domain.ModuleProgress
	savedParentEnrollment domain.Enrollment
}

func (m *mockEnrollmentRepository) Create(_ context.Context, enrollment domain.Enrollment) error {
	m.createCalls++
	m.createdRecord = enrollment
	return m.createErr
}

func (m *mockEnrollmentRepository) GetByID(_ context.Context, _ string) (*domain.Enrollment, error) {
	m.getByIDCalls++
	if m.getByIDResult != nil {
		copy := *m.getByIDResult
		copy.Modules = append([]domain.ModuleProgress(nil), m.getByIDResult.Modules...)
		return &copy, m.getByIDErr
	}
	return nil, m.getByIDErr
}

func (m *mockEnrollmentRepository) GetByAccountAndCourse(context.Context, string, string) (*domain.Enrollment, error) {
	if m.getByAccountAndCourseResult != nil {
		copy := *m.getByAccountAndCourseResult
		return &copy, m.getByAccountAndCourseErr
	}
	return nil, m.getByAccountAndCourseErr
}

func (m *mockEnrollmentRepository) ListByAccount(context.Context, string) ([]domain.Enrollment, error) {
	m.listByAccountCalls++
	if m.listByAccountErr != nil {
		return nil, m.listByAccountErr
	}
	out := make([]domain.Enrollment, len(m.listByAccountResult))
	copy(out, m.listByAccountResult)
	return out, nil
}

func (m *mockEnrollmentRepository) ListByCourse(context.Context, string) ([]domain.Enrollment, error) {
	m.listByCourseCalls++
	if m.listByCourseErr != nil {
		return nil, m.listByCourseErr
	}
	out := make([]domain.Enrollment, len(m.listByCourseResult))
	copy(out, m.listByCourseResult)
	return out, nil
}

func (m *mockEnrollmentRepository) UpdateStatus(_ context.Context, id string, status domain.EnrollmentStatus, _ time.Time) error {
	m.updateStatusCalls++
	m.updateStatusID = id
	m.updateStatusStatus = status
	return m.updateStatusErr
}

// SaveModuleProgress mirrors the transactional contract: merge into the
// stored enrollment, recompute, and report the previous aggregate status.
func (m *mockEnrollmentRepository) SaveModuleProgress(_ context.Context, enrollmentID string, submission domain.ModuleProgress, now time.Time) (*domain.Enrollment, domain.EnrollmentStatus, error) {
	m.saveProgressCalls++
	m.savedSubmission = submission
	if m.saveProgressErr != nil {
		return nil, "", m.saveProgressErr
	}
	if m.getByIDResult == nil || m.getByIDResult.ID != enrollmentID {
		return nil, "", repository.ErrNotFound
	}

	enrollment := *m.getByIDResult
	enrollment.Modules = append([]domain.ModuleProgress(nil), m.getByIDResult.Modules...)

	merged := enrollment.MergeModule(submission.ID, submission.ModuleID, submission.Status, submission.CompletedChapters, now)
	previous := enrollment.Status
	enrollment.ApplyStatus(domain.RecomputeStatus(enrollment.Status, enrollment.Modules), now)

	m.savedProgress = merged
	m.savedParentEnrollment = enrollment
	return &enrollment, previous, nil
}

type mockEventPublisher struct {
	registeredCalls int
	lastRegistered  domain.AccountRegisteredEvent
	registeredErr   error

	enrollmentCreatedCalls int
	lastEnrollmentCreated  domain.EnrollmentCreatedEvent
	enrollmentCreatedErr   error

	statusChangedCalls int
	lastStatusChanged  domain.EnrollmentStatusChangedEvent
	statusChangedErr   error
}

func (m *mockEventPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	m.registeredCalls++
	m.lastRegistered = event
	return m.registeredErr
}

func (m *mockEventPublisher) PublishEnrollmentCreated(_ context.Context, event domain.EnrollmentCreatedEvent) error {
	m.enrollmentCreatedCalls++
	m.lastEnrollmentCreated = event
	return m.enrollmentCreatedErr
}

func (m *mockEventPublisher) PublishEnrollmentStatusChanged(_ context.Context, event domain.EnrollmentStatusChangedEvent) error {
	m.statusChangedCalls++
	m.lastStatusChanged = event
	return m.statusChangedErr
}

var errRepositoryDown = errors.New("repository unavailable")
