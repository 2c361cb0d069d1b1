package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/juanjice29/PortalCapacitaciones/internal/core/domain"
	"github.com/juanjice29/PortalCapacitaciones/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("account_id", accountID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishAccountRegistered logs user.registered events.
func (p *StubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	payload := map[string]any{
		"account_id":    event.AccountID,
		"email":         event.Email,
		"full_name":     event.FullName,
		"role":          event.Role,
		"provider":      event.Provider,
		"registered_at": event.RegisteredAt,
	}
	p.logEvent(eventUserRegistered, event.AccountID, event.RegisteredAt, payload)
	return nil
}

// PublishEnrollmentCreated logs enrollment.created events.
func (p *StubPublisher) PublishEnrollmentCreated(_ context.Context, event domain.EnrollmentCreatedEvent) error {
	payload := map[string]any{
		"enrollment_id": event.EnrollmentID,
		"account_id":    event.AccountID,
		"course_id":     event.CourseID,
		"enrolled_at":   event.EnrolledAt,
	}
	p.logEvent(eventEnrollmentCreated, event.AccountID, event.EnrolledAt, payload)
	return nil
}

// PublishEnrollmentStatusChanged logs enrollment.status.changed events.
func (p *StubPublisher) PublishEnrollmentStatusChanged(_ context.Context, event domain.EnrollmentStatusChangedEvent) error {
	payload := map[string]any{
		"enrollment_id": event.EnrollmentID,
		"account_id":    event.AccountID,
		"course_id":     event.CourseID,
		"old_status":    event.OldStatus,
		"new_status":    event.NewStatus,
		"changed_at":    event.ChangedAt,
	}
	p.logEvent(eventEnrollmentStatusChanged, event.AccountID, event.ChangedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
