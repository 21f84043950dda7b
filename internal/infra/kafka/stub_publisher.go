package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bwanakweli4ever/prozlab-backend/internal/core/domain"
	"github.com/bwanakweli4ever/prozlab-backend/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, subject string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("subject", subject),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishVerificationIssued logs proz.verification.issued events.
func (p *StubPublisher) PublishVerificationIssued(_ context.Context, event domain.VerificationIssuedEvent) error {
	payload := map[string]any{
		"identifier":         event.MaskedIdentifier,
		"purpose":            event.Purpose,
		"delivery":           event.Delivery,
		"issued_at":          event.IssuedAt,
		"expires_at":         event.ExpiresAt,
		"dispatch_succeeded": event.DispatchSucceeded,
	}
	p.logEvent("proz.verification.issued", event.MaskedIdentifier, event.IssuedAt, payload)
	return nil
}

// PublishVerificationCompleted logs proz.verification.completed events.
func (p *StubPublisher) PublishVerificationCompleted(_ context.Context, event domain.VerificationCompletedEvent) error {
	payload := map[string]any{
		"identifier":  event.Identifier,
		"purpose":     event.Purpose,
		"verified_at": event.VerifiedAt,
	}
	p.logEvent("proz.verification.completed", event.Identifier, event.VerifiedAt, payload)
	return nil
}

// PublishPasswordResetCompleted logs proz.password_reset.completed events.
func (p *StubPublisher) PublishPasswordResetCompleted(_ context.Context, event domain.PasswordResetCompletedEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"identifier": event.Identifier,
		"changed_at": event.ChangedAt,
	}
	p.logEvent("proz.password_reset.completed", event.UserID, event.ChangedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
