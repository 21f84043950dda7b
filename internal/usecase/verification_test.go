package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwanakweli4ever/prozlab-backend/internal/core/domain"
	"github.com/bwanakweli4ever/prozlab-backend/internal/core/port"
	"github.com/bwanakweli4ever/prozlab-backend/internal/infra/config"
	"github.com/bwanakweli4ever/prozlab-backend/internal/infra/security"
	"github.com/bwanakweli4ever/prozlab-backend/internal/repository"
	"github.com/bwanakweli4ever/prozlab-backend/internal/repository/memory"
)

type dispatcherMock struct {
	emails []port.EmailVerificationMessage
	phones []port.PhoneVerificationMessage
	resets []port.PasswordResetMessage
	err    error
}

func (m *dispatcherMock) SendEmailVerification(_ context.Context, msg port.EmailVerificationMessage) error {
	if m.err != nil {
		return m.err
	}
	m.emails = append(m.emails, msg)
	return nil
}

func (m *dispatcherMock) SendPhoneVerification(_ context.Context, msg port.PhoneVerificationMessage) error {
	if m.err != nil {
		return m.err
	}
	m.phones = append(m.phones, msg)
	return nil
}

func (m *dispatcherMock) SendPasswordReset(_ context.Context, msg port.PasswordResetMessage) error {
	if m.err != nil {
		return m.err
	}
	m.resets = append(m.resets, msg)
	return nil
}

type eventsMock struct {
	issued    []domain.VerificationIssuedEvent
	completed []domain.VerificationCompletedEvent
	resets    []domain.PasswordResetCompletedEvent
}

func (m *eventsMock) PublishVerificationIssued(_ context.Context, event domain.VerificationIssuedEvent) error {
	m.issued = append(m.issued, event)
	return nil
}

func (m *eventsMock) PublishVerificationCompleted(_ context.Context, event domain.VerificationCompletedEvent) error {
	m.completed = append(m.completed, event)
	return nil
}

func (m *eventsMock) PublishPasswordResetCompleted(_ context.Context, event domain.PasswordResetCompletedEvent) error {
	m.resets = append(m.resets, event)
	return nil
}

type verificationFixture struct {
	service    *VerificationService
	store      *memory.KVStore
	dispatcher *dispatcherMock
	events     *eventsMock
	advance    func(time.Duration)
}

func newVerificationFixture(t *testing.T) *verificationFixture {
	t.Helper()

	store := memory.NewKVStore()
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }
	store.WithClock(clock)

	dispatcher := &dispatcherMock{}
	events := &eventsMock{}
	limiter := NewRateLimiter(store, 5, time.Hour)

	service := NewVerificationService(config.VerificationSettings{}, store, limiter, dispatcher, events, nil)
	service.WithClock(clock)

	return &verificationFixture{
		service:    service,
		store:      store,
		dispatcher: dispatcher,
		events:     events,
		advance:    func(d time.Duration) { current = current.Add(d) },
	}
}

func TestVerificationService_IssueAndValidateToken(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()

	result, err := f.service.Issue(ctx, "alice@example.com", domain.PurposeEmailVerification, "Alice")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if result.Token == "" {
		t.Fatalf("expected a token for the email flow")
	}
	if result.Code != "" {
		t.Fatalf("did not expect a code for the email flow")
	}
	if result.Delivery != domain.DeliveryEmail {
		t.Fatalf("expected email delivery, got %s", result.Delivery)
	}
	if !result.Dispatched {
		t.Fatalf("expected dispatch to succeed")
	}
	if len(f.dispatcher.emails) != 1 || f.dispatcher.emails[0].Token != result.Token {
		t.Fatalf("expected the dispatcher to receive the token")
	}
	if f.dispatcher.emails[0].Name != "Alice" {
		t.Fatalf("expected the recipient name to reach the dispatcher, got %q", f.dispatcher.emails[0].Name)
	}

	validation, err := f.service.ValidateToken(ctx, domain.PurposeEmailVerification, result.Token)
	if err != nil {
		t.Fatalf("ValidateToken returned error: %v", err)
	}
	if validation.Identifier != "alice@example.com" {
		t.Fatalf("expected identifier alice@example.com, got %s", validation.Identifier)
	}

	// The token is single use; a replay reports the consumed state.
	if _, err := f.service.ValidateToken(ctx, domain.PurposeEmailVerification, result.Token); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified on replay, got %v", err)
	}

	if len(f.events.issued) != 1 || len(f.events.completed) != 1 {
		t.Fatalf("expected one issued and one completed event, got %d/%d", len(f.events.issued), len(f.events.completed))
	}
	if !f.events.issued[0].DispatchSucceeded {
		t.Fatalf("expected issued event to record dispatch success")
	}
}

func TestVerificationService_ValidateUnknownToken(t *testing.T) {
	f := newVerificationFixture(t)

	if _, err := f.service.ValidateToken(context.Background(), domain.PurposeEmailVerification, "nope"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestVerificationService_TokenExpiry(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()

	result, err := f.service.Issue(ctx, "alice@example.com", domain.PurposeEmailVerification, "")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	// The store's own expiry removes the record after the 24h TTL.
	f.advance(24*time.Hour + time.Minute)

	if _, err := f.service.ValidateToken(ctx, domain.PurposeEmailVerification, result.Token); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound for expired token, got %v", err)
	}
}

func TestVerificationService_ExpiredRecordStillStoredReportsExpiry(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()

	result, err := f.service.Issue(ctx, "alice@example.com", domain.PurposeEmailVerification, "")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	// Rewrite the record with a longer store TTL but an elapsed logical
	// expiry, mimicking a backend with coarse eviction. Records are keyed
	// by the token digest, never the raw token.
	key := "verify:email_verification:" + security.HashToken(result.Token)
	raw, err := f.store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if err := f.store.Set(ctx, key, raw, 48*time.Hour); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	f.advance(24*time.Hour + time.Minute)

	if _, err := f.service.ValidateToken(ctx, domain.PurposeEmailVerification, result.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	// The expired record is removed on sight.
	if _, err := f.service.ValidateToken(ctx, domain.PurposeEmailVerification, result.Token); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound after removal, got %v", err)
	}
}

func TestVerificationService_StoredTokensAreHashed(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()

	result, err := f.service.Issue(ctx, "alice@example.com", domain.PurposeEmailVerification, "")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	// The raw token must not be usable as a store key.
	if _, err := f.store.Get(ctx, "verify:email_verification:"+result.Token); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected no record keyed by the raw token, got %v", err)
	}

	raw, err := f.store.Get(ctx, "verify:email_verification:"+security.HashToken(result.Token))
	if err != nil {
		t.Fatalf("expected a record keyed by the token digest, got %v", err)
	}
	if strings.Contains(raw, result.Token) {
		t.Fatalf("raw token stored alongside the record")
	}

	idx, err := f.store.Get(ctx, "verify_idx:email_verification:alice@example.com")
	if err != nil {
		t.Fatalf("Get index returned error: %v", err)
	}
	if idx != security.HashToken(result.Token) {
		t.Fatalf("expected the index to hold the digest, got %q", idx)
	}
}

func TestVerificationService_ReissueReplacesPriorToken(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()

	first, err := f.service.Issue(ctx, "alice@example.com", domain.PurposeEmailVerification, "")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	second, err := f.service.Resend(ctx, "alice@example.com", domain.PurposeEmailVerification, "")
	if err != nil {
		t.Fatalf("Resend returned error: %v", err)
	}
	if first.Token == second.Token {
		t.Fatalf("expected a fresh token on reissue")
	}

	// At most one live record per identifier and purpose.
	if _, err := f.service.ValidateToken(ctx, domain.PurposeEmailVerification, first.Token); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected the prior token to be invalidated, got %v", err)
	}

	if _, err := f.service.ValidateToken(ctx, domain.PurposeEmailVerification, second.Token); err != nil {
		t.Fatalf("expected the fresh token to validate, got %v", err)
	}
}

func TestVerificationService_RateLimitAfterThreshold(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := f.service.Issue(ctx, "alice@example.com", domain.PurposeEmailVerification, ""); err != nil {
			t.Fatalf("Issue %d returned error: %v", i+1, err)
		}
	}

	_, err := f.service.Issue(ctx, "alice@example.com", domain.PurposeEmailVerification, "")
	var rateErr *RateLimitExceededError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected RateLimitExceededError, got %v", err)
	}
	if rateErr.RetryAfter <= 0 {
		t.Fatalf("expected a retry hint, got %v", rateErr.RetryAfter)
	}

	// Another identifier is unaffected.
	if _, err := f.service.Issue(ctx, "bob@example.com", domain.PurposeEmailVerification, ""); err != nil {
		t.Fatalf("expected an unrelated identifier to pass, got %v", err)
	}

	f.advance(time.Hour + time.Minute)

	if _, err := f.service.Issue(ctx, "alice@example.com", domain.PurposeEmailVerification, ""); err != nil {
		t.Fatalf("expected a fresh window after expiry, got %v", err)
	}
}

func TestVerificationService_OTPWrongCodeAttempts(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()

	result, err := f.service.Issue(ctx, "+250700000000", domain.PurposePhoneVerification, "")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if len(result.Code) != 6 {
		t.Fatalf("expected a 6 digit code, got %q", result.Code)
	}
	if result.Delivery != domain.DeliverySMS {
		t.Fatalf("expected sms delivery, got %s", result.Delivery)
	}

	wrong := "000000"
	if wrong == result.Code {
		wrong = "000001"
	}

	for i := 0; i < 5; i++ {
		_, err := f.service.ValidateCode(ctx, domain.PurposePhoneVerification, "+250700000000", wrong)
		if !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("expected ErrInvalidCode on attempt %d, got %v", i+1, err)
		}

		remaining, err := f.service.AttemptsRemaining(ctx, domain.PurposePhoneVerification, "+250700000000")
		if err != nil {
			t.Fatalf("AttemptsRemaining returned error: %v", err)
		}
		if remaining != 5-(i+1) {
			t.Fatalf("expected %d attempts remaining, got %d", 5-(i+1), remaining)
		}
	}

	// The attempt budget is exhausted; the record is destroyed.
	if _, err := f.service.ValidateCode(ctx, domain.PurposePhoneVerification, "+250700000000", wrong); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}

	if _, err := f.service.ValidateCode(ctx, domain.PurposePhoneVerification, "+250700000000", result.Code); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound after destruction, got %v", err)
	}
}

func TestVerificationService_OTPCorrectCode(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()

	result, err := f.service.Issue(ctx, "+250700000000", domain.PurposePhoneVerification, "")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	validation, err := f.service.ValidateCode(ctx, domain.PurposePhoneVerification, "+250700000000", result.Code)
	if err != nil {
		t.Fatalf("ValidateCode returned error: %v", err)
	}
	if validation.Identifier != "+250700000000" {
		t.Fatalf("expected the phone identifier, got %s", validation.Identifier)
	}

	if _, err := f.service.ValidateCode(ctx, domain.PurposePhoneVerification, "+250700000000", result.Code); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified on replay, got %v", err)
	}
}

func TestVerificationService_DispatchFailureDoesNotBlockVerification(t *testing.T) {
	f := newVerificationFixture(t)
	f.dispatcher.err = errors.New("smtp down")
	ctx := context.Background()

	result, err := f.service.Issue(ctx, "alice@example.com", domain.PurposeEmailVerification, "")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if result.Dispatched {
		t.Fatalf("expected dispatch failure to be reported")
	}
	if len(f.events.issued) != 1 || f.events.issued[0].DispatchSucceeded {
		t.Fatalf("expected issued event to record dispatch failure")
	}

	// The stored record is intact despite the failed delivery.
	if _, err := f.service.ValidateToken(ctx, domain.PurposeEmailVerification, result.Token); err != nil {
		t.Fatalf("expected the token to validate, got %v", err)
	}
}

func TestVerificationService_PurposeMismatch(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()

	if _, err := f.service.Issue(ctx, "alice@example.com", domain.Purpose("bogus"), ""); !errors.Is(err, ErrUnsupportedPurpose) {
		t.Fatalf("expected ErrUnsupportedPurpose, got %v", err)
	}
	if _, err := f.service.ValidateToken(ctx, domain.PurposePhoneVerification, "tok"); !errors.Is(err, ErrUnsupportedPurpose) {
		t.Fatalf("expected ErrUnsupportedPurpose for code-flow token validation, got %v", err)
	}
	if _, err := f.service.ValidateCode(ctx, domain.PurposeEmailVerification, "alice@example.com", "123456"); !errors.Is(err, ErrUnsupportedPurpose) {
		t.Fatalf("expected ErrUnsupportedPurpose for link-flow code validation, got %v", err)
	}
}

func TestVerificationService_ConcurrentPurposesAreIndependent(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()

	email, err := f.service.Issue(ctx, "alice@example.com", domain.PurposeEmailVerification, "")
	if err != nil {
		t.Fatalf("Issue email returned error: %v", err)
	}
	reset, err := f.service.Issue(ctx, "alice@example.com", domain.PurposePasswordReset, "")
	if err != nil {
		t.Fatalf("Issue reset returned error: %v", err)
	}

	// A reset token does not resolve in the email flow and vice versa.
	if _, err := f.service.ValidateToken(ctx, domain.PurposeEmailVerification, reset.Token); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected purposes to be scoped apart, got %v", err)
	}
	if _, err := f.service.ValidateToken(ctx, domain.PurposePasswordReset, reset.Token); err != nil {
		t.Fatalf("expected the reset token to validate in its own flow, got %v", err)
	}
	if _, err := f.service.ValidateToken(ctx, domain.PurposeEmailVerification, email.Token); err != nil {
		t.Fatalf("expected the email token to validate in its own flow, got %v", err)
	}
}
