package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bwanakweli4ever/prozlab-backend/internal/core/domain"
	"github.com/bwanakweli4ever/prozlab-backend/internal/core/port"
	"github.com/bwanakweli4ever/prozlab-backend/internal/infra/security"
	"github.com/bwanakweli4ever/prozlab-backend/internal/repository"
)

const minPasswordLength = 8

// ErrWeakPassword indicates the replacement password fails the local policy.
var ErrWeakPassword = errors.New("password does not meet requirements")

// ResetConfirmResult describes a completed password reset.
type ResetConfirmResult struct {
	UserID     string
	Identifier string
	ChangedAt  time.Time
}

// PasswordResetService drives the reset flow end to end: the request leg is
// a verification issuance with the password_reset purpose; the confirm leg
// consumes the token, hashes the new password, and updates the account store.
type PasswordResetService struct {
	verifier *VerificationService
	users    port.UserRepository
	events   port.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewPasswordResetService constructs the reset coordinator. The user
// repository may be nil; confirmation then fails with
// ErrUserStoreUnavailable while requests still issue tokens.
func NewPasswordResetService(verifier *VerificationService, users port.UserRepository, events port.EventPublisher, log *zap.Logger) *PasswordResetService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PasswordResetService{
		verifier: verifier,
		users:    users,
		events:   events,
		logger:   log,
		now:      time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *PasswordResetService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Request issues a reset token for the account registered under the email.
func (s *PasswordResetService) Request(ctx context.Context, email string) (*IssueResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	var name string
	if s.users != nil {
		user, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("lookup user: %w", err)
		}
		name = user.FullName
	}

	return s.verifier.Issue(ctx, email, domain.PurposePasswordReset, name)
}

// Confirm consumes the reset token and applies the new password.
func (s *PasswordResetService) Confirm(ctx context.Context, token, newPassword string) (*ResetConfirmResult, error) {
	newPassword = strings.TrimSpace(newPassword)
	if len(newPassword) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	if s.users == nil {
		return nil, ErrUserStoreUnavailable
	}

	validation, err := s.verifier.ValidateToken(ctx, domain.PurposePasswordReset, token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, validation.Identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	changedAt := s.now().UTC()
	if err := s.users.UpdatePassword(ctx, user.ID, hash, changedAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update password: %w", err)
	}

	s.publishCompletedReset(ctx, user.ID, validation.Identifier, changedAt)

	return &ResetConfirmResult{
		UserID:     user.ID,
		Identifier: validation.Identifier,
		ChangedAt:  changedAt,
	}, nil
}

func (s *PasswordResetService) publishCompletedReset(ctx context.Context, userID, identifier string, at time.Time) {
	if s.events == nil {
		return
	}

	event := domain.PasswordResetCompletedEvent{
		EventID:    uuid.NewString(),
		UserID:     userID,
		Identifier: identifier,
		ChangedAt:  at,
	}
	if err := s.events.PublishPasswordResetCompleted(ctx, event); err != nil {
		s.logger.Warn("publish password reset completed failed", zap.String("user_id", userID), zap.Error(err))
	}
}
