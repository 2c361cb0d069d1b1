package port

import (
	"context"

	"github.com/juanjice29/PortalCapacitaciones/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error
	PublishEnrollmentCreated(ctx context.Context, event domain.EnrollmentCreatedEvent) error
	PublishEnrollmentStatusChanged(ctx context.Context, event domain.EnrollmentStatusChangedEvent) error
}
