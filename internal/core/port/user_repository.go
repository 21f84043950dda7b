package port

import (
	"context"
	"time"

	"github.com/bwanakweli4ever/prozlab-backend/internal/core/domain"
)

// UserRepository is the collaborator boundary to the account store. The
// verification layer never writes through it directly; the transport layer
// does, after a successful validation hands back (identifier, purpose).
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	MarkEmailVerified(ctx context.Context, email string, at time.Time) error
	MarkPhoneVerified(ctx context.Context, phone string, at time.Time) error
	UpdatePassword(ctx context.Context, userID, passwordHash string, changedAt time.Time) error
}
