package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bwanakweli4ever/prozlab-backend/internal/core/domain"
	"github.com/bwanakweli4ever/prozlab-backend/internal/core/port"
	"github.com/bwanakweli4ever/prozlab-backend/internal/infra/config"
)

const schemaVersion = "1.0"

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
	Subject   string           `json:"subject,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, subject string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		Subject:   subject,
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
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishVerificationIssued publishes proz.verification.issued events.
// The payload carries the masked identifier only; raw addresses stay off
// the bus.
func (p *EventPublisher) PublishVerificationIssued(ctx context.Context, event domain.VerificationIssuedEvent) error {
	payload := struct {
		Identifier        string    `json:"identifier"`
		Purpose           string    `json:"purpose"`
		Delivery          string    `json:"delivery"`
		IssuedAt          time.Time `json:"issued_at"`
		ExpiresAt         time.Time `json:"expires_at"`
		DispatchSucceeded bool      `json:"dispatch_succeeded"`
	}{
		Identifier:        event.MaskedIdentifier,
		Purpose:           string(event.Purpose),
		Delivery:          event.Delivery,
		IssuedAt:          event.IssuedAt.UTC(),
		ExpiresAt:         event.ExpiresAt.UTC(),
		DispatchSucceeded: event.DispatchSucceeded,
	}

	return p.publish(ctx, event.EventID, "proz.verification.issued", event.MaskedIdentifier, event.IssuedAt, payload)
}

// PublishVerificationCompleted publishes proz.verification.completed events.
func (p *EventPublisher) PublishVerificationCompleted(ctx context.Context, event domain.VerificationCompletedEvent) error {
	payload := struct {
		Identifier string    `json:"identifier"`
		Purpose    string    `json:"purpose"`
		VerifiedAt time.Time `json:"verified_at"`
	}{
		Identifier: event.Identifier,
		Purpose:    string(event.Purpose),
		VerifiedAt: event.VerifiedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "proz.verification.completed", event.Identifier, event.VerifiedAt, payload)
}

// PublishPasswordResetCompleted publishes proz.password_reset.completed events.
func (p *EventPublisher) PublishPasswordResetCompleted(ctx context.Context, event domain.PasswordResetCompletedEvent) error {
	payload := struct {
		UserID     string    `json:"user_id"`
		Identifier string    `json:"identifier"`
		ChangedAt  time.Time `json:"changed_at"`
	}{
		UserID:     event.UserID,
		Identifier: event.Identifier,
		ChangedAt:  event.ChangedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "proz.password_reset.completed", event.UserID, event.ChangedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
