package domain

import "time"

// EnrollmentStatus enumerates the lifecycle states of an enrollment and of
// each of its module-progress records.
type EnrollmentStatus string

const (
	StatusIniciado   EnrollmentStatus = "INICIADO"
	StatusEnProgreso EnrollmentStatus = "EN_PROGRESO"
	StatusCompletado EnrollmentStatus = "COMPLETADO"
)

// ParseEnrollmentStatus validates raw status input.
func ParseEnrollmentStatus(raw string) (EnrollmentStatus, bool) {
	switch EnrollmentStatus(raw) {
	case StatusIniciado, StatusEnProgreso, StatusCompletado:
		return EnrollmentStatus(raw), true
	}
	return "", false
}

// Enrollment links one account to one course. At most one enrollment exists
// per (account, course) pair.
type Enrollment struct {
	ID               string
	AccountID        string
	CourseID         string
	Status           EnrollmentStatus
	EnrolledAt       time.Time
	LastStatusChange time.Time
	Modules          []ModuleProgress
}

// ModuleProgress is a child of exactly one enrollment, keyed by module id.
type ModuleProgress struct {
	ID                string
	EnrollmentID      string
	ModuleID          string
	Status            EnrollmentStatus
	CompletedChapters int
	LastUpdated       time.Time
}

// NewEnrollment constructs a fresh enrollment in the INICIADO state.
func NewEnrollment(id, accountID, courseID string, now time.Time) Enrollment {
	return Enrollment{
		ID:               id,
		AccountID:        accountID,
		CourseID:         courseID,
		Status:           StatusIniciado,
		EnrolledAt:       now,
		LastStatusChange: now,
	}
}

// ApplyStatus transitions the enrollment to the given status, stamping the
// transition time. Reports whether the status actually changed.
func (e *Enrollment) ApplyStatus(status EnrollmentStatus, now time.Time) bool {
	if e.Status == status {
		return false
	}
	e.Status = status
	e.LastStatusChange = now
	return true
}

// MergeModule upserts a module-progress record into the enrollment's module
// set, keyed by module id, and returns the resulting record. Every merge
// refreshes LastUpdated on the touched record.
func (e *Enrollment) MergeModule(id, moduleID string, status EnrollmentStatus, completedChapters int, now time.Time) ModuleProgress {
	for i := range e.Modules {
		if e.Modules[i].ModuleID == moduleID {
			e.Modules[i].Status = status
			e.Modules[i].CompletedChapters = completedChapters
			e.Modules[i].LastUpdated = now
			return e.Modules[i]
		}
	}
	record := ModuleProgress{
		ID:                id,
		EnrollmentID:      e.ID,
		ModuleID:          moduleID,
		Status:            status,
		CompletedChapters: completedChapters,
		LastUpdated:       now,
	}
	e.Modules = append(e.Modules, record)
	return record
}

// RecomputeStatus derives an enrollment's aggregate status from its module
// set. An enrollment with zero modules never auto-promotes past its current
// status.
func RecomputeStatus(current EnrollmentStatus, modules []ModuleProgress) EnrollmentStatus {
	if len(modules) == 0 {
		return current
	}

	allCompleted := true
	anyStarted := false
	for _, m := range modules {
		switch m.Status {
		case StatusCompletado:
			anyStarted = true
		case StatusEnProgreso:
			anyStarted = true
			allCompleted = false
		default:
			allCompleted = false
		}
	}

	if allCompleted {
		return StatusCompletado
	}
	if anyStarted {
		return StatusEnProgreso
	}
	return current
}
