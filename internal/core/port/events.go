package port

import (
	"context"

	"github.com/bwanakweli4ever/prozlab-backend/internal/core/domain"
)

// EventPublisher fans verification lifecycle events out to downstream
// consumers (notification center, audit, analytics).
type EventPublisher interface {
	PublishVerificationIssued(ctx context.Context, event domain.VerificationIssuedEvent) error
	PublishVerificationCompleted(ctx context.Context, event domain.VerificationCompletedEvent) error
	PublishPasswordResetCompleted(ctx context.Context, event domain.PasswordResetCompletedEvent) error
}
