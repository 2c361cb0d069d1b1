package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/juanjice29/PortalCapacitaciones/internal/core/domain"
	"github.com/juanjice29/PortalCapacitaciones/internal/core/port"
	"github.com/juanjice29/PortalCapacitaciones/internal/infra/config"
)

const schemaVersion = "1.0"

// Event types carried in the envelope and used to derive topic names.
const (
	eventUserRegistered          = "user.registered"
	eventEnrollmentCreated       = "enrollment.created"
	eventEnrollmentStatusChanged = "enrollment.status.changed"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	AccountID string           `json:"account_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventType, accountID string, ts time.Time, payload any, extra map[string]string) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	for k, v := range extra {
		metadata[k] = v
	}

	envelope := eventEnvelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		AccountID: accountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(accountID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAccountRegistered publishes user.registered events.
func (p *EventPublisher) PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error {
	payload := struct {
		AccountID    string    `json:"account_id"`
		Email        string    `json:"email"`
		FullName     string    `json:"full_name"`
		Role         string    `json:"role"`
		Provider     string    `json:"provider"`
		RegisteredAt time.Time `json:"registered_at"`
	}{
		AccountID:    event.AccountID,
		Email:        event.Email,
		FullName:     event.FullName,
		Role:         string(event.Role),
		Provider:     string(event.Provider),
		RegisteredAt: event.RegisteredAt.UTC(),
	}

	return p.publish(ctx, eventUserRegistered, event.AccountID, event.RegisteredAt, payload, event.Metadata)
}

// PublishEnrollmentCreated publishes enrollment.created events.
func (p *EventPublisher) PublishEnrollmentCreated(ctx context.Context, event domain.EnrollmentCreatedEvent) error {
	payload := struct {
		EnrollmentID string    `json:"enrollment_id"`
		AccountID    string    `json:"account_id"`
		CourseID     string    `json:"course_id"`
		EnrolledAt   time.Time `json:"enrolled_at"`
	}{
		EnrollmentID: event.EnrollmentID,
		AccountID:    event.AccountID,
		CourseID:     event.CourseID,
		EnrolledAt:   event.EnrolledAt.UTC(),
	}

	return p.publish(ctx, eventEnrollmentCreated, event.AccountID, event.EnrolledAt, payload, event.Metadata)
}

// PublishEnrollmentStatusChanged publishes enrollment.status.changed events.
func (p *EventPublisher) PublishEnrollmentStatusChanged(ctx context.Context, event domain.EnrollmentStatusChangedEvent) error {
	payload := struct {
		EnrollmentID string    `json:"enrollment_id"`
		AccountID    string    `json:"account_id"`
		CourseID     string    `json:"course_id"`
		OldStatus    string    `json:"old_status"`
		NewStatus    string    `json:"new_status"`
		ChangedAt    time.Time `json:"changed_at"`
	}{
		EnrollmentID: event.EnrollmentID,
		AccountID:    event.AccountID,
		CourseID:     event.CourseID,
		OldStatus:    string(event.OldStatus),
		NewStatus:    string(event.NewStatus),
		ChangedAt:    event.ChangedAt.UTC(),
	}

	return p.publish(ctx, eventEnrollmentStatusChanged, event.AccountID, event.ChangedAt, payload, event.Metadata)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
