package domain

import "time"

// AccountRegisteredEvent is emitted after a new account is persisted,
// whether through local registration or first federated login.
type AccountRegisteredEvent struct {
	AccountID    string
	Email        string
	FullName     string
	Role         Role
	Provider     AuthProvider
	RegisteredAt time.Time
	Metadata     map[string]string
}

// EnrollmentCreatedEvent is emitted when an account enrolls in a course.
type EnrollmentCreatedEvent struct {
	EnrollmentID string
	AccountID    string
	CourseID     string
	EnrolledAt   time.Time
	Metadata     map[string]string
}

// EnrollmentStatusChangedEvent is emitted on every aggregate status
// transition, including those derived from module-progress recomputation.
type EnrollmentStatusChangedEvent struct {
	EnrollmentID string
	AccountID    string
	CourseID     string
	OldStatus    EnrollmentStatus
	NewStatus    EnrollmentStatus
	ChangedAt    time.Time
	Metadata     map[string]string
}
