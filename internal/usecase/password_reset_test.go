package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwanakweli4ever/prozlab-backend/internal/core/domain"
	"github.com/bwanakweli4ever/prozlab-backend/internal/core/port"
	"github.com/bwanakweli4ever/prozlab-backend/internal/infra/config"
	"github.com/bwanakweli4ever/prozlab-backend/internal/infra/security"
	"github.com/bwanakweli4ever/prozlab-backend/internal/repository"
	"github.com/bwanakweli4ever/prozlab-backend/internal/repository/memory"
)

type userRepoMock struct {
	users map[string]*domain.User

	updatedID   string
	updatedHash string
	updatedAt   time.Time
}

func (m *userRepoMock) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if user, ok := m.users[email]; ok {
		return user, nil
	}
	return nil, repository.ErrNotFound
}

func (m *userRepoMock) GetByPhone(_ context.Context, _ string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}

func (m *userRepoMock) MarkEmailVerified(_ context.Context, _ string, _ time.Time) error {
	return nil
}

func (m *userRepoMock) MarkPhoneVerified(_ context.Context, _ string, _ time.Time) error {
	return nil
}

func (m *userRepoMock) UpdatePassword(_ context.Context, userID, passwordHash string, changedAt time.Time) error {
	m.updatedID = userID
	m.updatedHash = passwordHash
	m.updatedAt = changedAt
	return nil
}

func newResetFixture(t *testing.T, users *userRepoMock) (*PasswordResetService, *eventsMock, *dispatcherMock) {
	t.Helper()

	store := memory.NewKVStore()
	events := &eventsMock{}
	dispatcher := &dispatcherMock{}
	verifier := NewVerificationService(config.VerificationSettings{}, store, nil, dispatcher, events, nil)
	var repo port.UserRepository
	if users != nil {
		repo = users
	}
	return NewPasswordResetService(verifier, repo, events, nil), events, dispatcher
}

func TestPasswordResetService_RequestUnknownEmail(t *testing.T) {
	service, _, _ := newResetFixture(t, &userRepoMock{users: map[string]*domain.User{}})

	if _, err := service.Request(context.Background(), "ghost@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestPasswordResetService_RequestIssuesResetToken(t *testing.T) {
	users := &userRepoMock{users: map[string]*domain.User{
		"alice@example.com": {ID: "u-1", Email: "alice@example.com", FullName: "Alice Doe"},
	}}
	service, events, dispatcher := newResetFixture(t, users)

	result, err := service.Request(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("Request returned error: %v", err)
	}
	if result.Purpose != domain.PurposePasswordReset {
		t.Fatalf("expected the password_reset purpose, got %s", result.Purpose)
	}
	if result.Token == "" {
		t.Fatalf("expected a reset token")
	}
	if len(events.issued) != 1 {
		t.Fatalf("expected one issued event, got %d", len(events.issued))
	}

	// The account's display name is carried into the delivered message.
	if len(dispatcher.resets) != 1 {
		t.Fatalf("expected one dispatched reset message, got %d", len(dispatcher.resets))
	}
	if dispatcher.resets[0].Name != "Alice Doe" {
		t.Fatalf("expected the account name on the message, got %q", dispatcher.resets[0].Name)
	}
}

func TestPasswordResetService_ConfirmWeakPassword(t *testing.T) {
	service, _, _ := newResetFixture(t, &userRepoMock{users: map[string]*domain.User{}})

	if _, err := service.Confirm(context.Background(), "tok", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestPasswordResetService_ConfirmWithoutUserStore(t *testing.T) {
	service, _, _ := newResetFixture(t, nil)

	if _, err := service.Confirm(context.Background(), "tok", "correct horse battery"); !errors.Is(err, ErrUserStoreUnavailable) {
		t.Fatalf("expected ErrUserStoreUnavailable, got %v", err)
	}
}

func TestPasswordResetService_ConfirmUnknownToken(t *testing.T) {
	users := &userRepoMock{users: map[string]*domain.User{
		"alice@example.com": {ID: "u-1", Email: "alice@example.com"},
	}}
	service, _, _ := newResetFixture(t, users)

	if _, err := service.Confirm(context.Background(), "nope", "correct horse battery"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestPasswordResetService_ConfirmAppliesNewPassword(t *testing.T) {
	users := &userRepoMock{users: map[string]*domain.User{
		"alice@example.com": {ID: "u-1", Email: "alice@example.com"},
	}}
	service, events, _ := newResetFixture(t, users)
	ctx := context.Background()

	issued, err := service.Request(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Request returned error: %v", err)
	}

	result, err := service.Confirm(ctx, issued.Token, "correct horse battery")
	if err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	if result.UserID != "u-1" || result.Identifier != "alice@example.com" {
		t.Fatalf("unexpected confirm result: %+v", result)
	}
	if users.updatedID != "u-1" {
		t.Fatalf("expected the password update to target u-1, got %q", users.updatedID)
	}
	if !users.updatedAt.Equal(result.ChangedAt) {
		t.Fatalf("expected the change timestamp to match the result")
	}

	// The hash must verify against the submitted password and never equal it.
	if users.updatedHash == "correct horse battery" {
		t.Fatalf("password stored in the clear")
	}
	ok, err := security.VerifyPassword("correct horse battery", users.updatedHash)
	if err != nil || !ok {
		t.Fatalf("expected the stored hash to verify, ok=%v err=%v", ok, err)
	}

	if len(events.resets) != 1 {
		t.Fatalf("expected one reset completed event, got %d", len(events.resets))
	}
	if events.resets[0].UserID != "u-1" {
		t.Fatalf("expected the event to carry the user id, got %q", events.resets[0].UserID)
	}

	// The token is consumed; replay cannot change the password again.
	if _, err := service.Confirm(ctx, issued.Token, "another strong one"); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified on replay, got %v", err)
	}
}
