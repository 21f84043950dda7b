package usecase

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bwanakweli4ever/prozlab-backend/internal/core/domain"
	"github.com/bwanakweli4ever/prozlab-backend/internal/core/port"
	"github.com/bwanakweli4ever/prozlab-backend/internal/infra/config"
	"github.com/bwanakweli4ever/prozlab-backend/internal/infra/logger"
	"github.com/bwanakweli4ever/prozlab-backend/internal/infra/security"
	"github.com/bwanakweli4ever/prozlab-backend/internal/repository"
)

const (
	tokenKeyPrefix = "verify"
	otpKeyPrefix   = "otp"
	indexKeyPrefix = "verify_idx"

	defaultEmailTokenTTL = 24 * time.Hour
	defaultOTPTTL        = 10 * time.Minute
	defaultResetTokenTTL = time.Hour
	defaultVerifiedTTL   = 24 * time.Hour
	defaultOTPWidth      = 6
	defaultAttemptCap    = 5
)

// IssueResult describes the stored verification artifact. Token or Code is
// populated depending on the flow; handlers only expose them in development
// mode.
type IssueResult struct {
	Identifier string
	Purpose    domain.Purpose
	Delivery   string
	Token      string
	Code       string
	ExpiresAt  time.Time
	Dispatched bool
}

// ValidationResult is returned on successful validation so the caller can act
// on the verified identifier (mark a user verified, authorize a reset).
type ValidationResult struct {
	Identifier string
	Purpose    domain.Purpose
	VerifiedAt time.Time
}

// VerificationService is the lifecycle manager for verification records:
// issuance behind the rate limiter, validation, expiry, and single-use
// consumption. All state lives in the injected KV store.
type VerificationService struct {
	store      port.KVStore
	limiter    *RateLimiter
	dispatcher port.NotificationDispatcher
	events     port.EventPublisher
	logger     *zap.Logger
	now        func() time.Time

	emailTokenTTL time.Duration
	otpTTL        time.Duration
	resetTokenTTL time.Duration
	verifiedTTL   time.Duration
	otpWidth      int
	attemptCap    int
}

// NewVerificationService constructs the lifecycle manager. Dispatcher and
// events may be nil; dispatch and publishing are then skipped.
func NewVerificationService(cfg config.VerificationSettings, store port.KVStore, limiter *RateLimiter, dispatcher port.NotificationDispatcher, events port.EventPublisher, log *zap.Logger) *VerificationService {
	if log == nil {
		log = zap.NewNop()
	}

	s := &VerificationService{
		store:         store,
		limiter:       limiter,
		dispatcher:    dispatcher,
		events:        events,
		logger:        log,
		now:           time.Now,
		emailTokenTTL: cfg.EmailTokenTTL,
		otpTTL:        cfg.OTPTTL,
		resetTokenTTL: cfg.ResetTokenTTL,
		verifiedTTL:   cfg.VerifiedRecordTTL,
		otpWidth:      cfg.OTPLength,
		attemptCap:    cfg.MaxAttempts,
	}

	if s.emailTokenTTL <= 0 {
		s.emailTokenTTL = defaultEmailTokenTTL
	}
	if s.otpTTL <= 0 {
		s.otpTTL = defaultOTPTTL
	}
	if s.resetTokenTTL <= 0 {
		s.resetTokenTTL = defaultResetTokenTTL
	}
	if s.verifiedTTL <= 0 {
		s.verifiedTTL = defaultVerifiedTTL
	}
	if s.otpWidth <= 0 {
		s.otpWidth = defaultOTPWidth
	}
	if s.attemptCap <= 0 {
		s.attemptCap = defaultAttemptCap
	}

	return s
}

// WithClock overrides the internal clock, used in tests.
func (s *VerificationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Issue creates and stores a verification record for the identifier, subject
// to the rate limiter, then hands the rendered message to the dispatcher.
// name is optional and only used to address the delivered message.
// Dispatch failures are logged and do not roll back the stored record; the
// user can request a resend, bounded by the same limiter.
func (s *VerificationService) Issue(ctx context.Context, identifier string, purpose domain.Purpose, name string) (*IssueResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("identifier is required")
	}
	if !purpose.Valid() {
		return nil, ErrUnsupportedPurpose
	}

	if s.limiter != nil {
		allowed, retryAfter, err := s.limiter.Allow(ctx, identifier)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, &RateLimitExceededError{Scope: string(purpose), RetryAfter: retryAfter}
		}
	}

	now := s.now().UTC()
	ttl := s.ttl(purpose)

	record := domain.VerificationRecord{
		Identifier: identifier,
		Purpose:    purpose,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}

	// Link tokens are persisted as their SHA-256 digest so a compromised
	// store cannot yield usable credentials; the raw token exists only in
	// the delivered message. OTP codes stay raw: they are matched by value
	// and already bounded by the attempt cap and a short TTL.
	var credential string
	if purpose.UsesCode() {
		code, err := security.GenerateNumericCode(s.otpWidth)
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		credential = code
		record.CodeOrToken = code
	} else {
		token, err := security.GenerateSecureToken(32)
		if err != nil {
			return nil, fmt.Errorf("generate token: %w", err)
		}
		credential = token
		record.CodeOrToken = security.HashToken(token)
	}

	if err := s.storeRecord(ctx, record, ttl); err != nil {
		return nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.Record(ctx, identifier); err != nil {
			s.logger.Warn("rate limit record failed",
				zap.String("purpose", string(purpose)),
				zap.Error(err),
			)
		}
	}

	result := &IssueResult{
		Identifier: identifier,
		Purpose:    purpose,
		Delivery:   purpose.Delivery(),
		ExpiresAt:  record.ExpiresAt,
	}
	if purpose.UsesCode() {
		result.Code = credential
	} else {
		result.Token = credential
	}

	result.Dispatched = s.dispatch(ctx, record, credential, name)

	s.publishIssued(ctx, record, result.Dispatched)

	return result, nil
}

// Resend invalidates any live record for the pair and issues a fresh one.
// Issue already replaces the prior record, so this is an alias kept for the
// transport layer's resend endpoints.
func (s *VerificationService) Resend(ctx context.Context, identifier string, purpose domain.Purpose, name string) (*IssueResult, error) {
	return s.Issue(ctx, identifier, purpose, name)
}

// ValidateToken resolves a link-flow token (email verification, password
// reset) against the store and walks the record through the state machine.
func (s *VerificationService) ValidateToken(ctx context.Context, purpose domain.Purpose, token string) (*ValidationResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenNotFound
	}
	if !purpose.Valid() || purpose.UsesCode() {
		return nil, ErrUnsupportedPurpose
	}

	key := tokenKey(purpose, security.HashToken(token))
	record, err := s.loadRecord(ctx, key)
	if err != nil {
		return nil, err
	}

	if record.Verified() {
		return nil, ErrAlreadyVerified
	}

	now := s.now().UTC()
	if record.Expired(now) {
		s.removeRecord(ctx, key, *record)
		return nil, ErrTokenExpired
	}

	record.VerifiedAt = &now
	if err := s.saveRecord(ctx, key, *record, s.verifiedTTL); err != nil {
		return nil, err
	}
	// The record is consumed; drop the live-record index eagerly.
	if err := s.store.Delete(ctx, indexKey(purpose, record.Identifier)); err != nil {
		s.logger.Warn("delete verification index failed", zap.Error(err))
	}

	s.publishCompleted(ctx, *record, now)

	return &ValidationResult{
		Identifier: record.Identifier,
		Purpose:    record.Purpose,
		VerifiedAt: now,
	}, nil
}

// ValidateCode resolves an OTP-flow record by identifier and matches the
// supplied code against it, tracking failed attempts up to the cap.
func (s *VerificationService) ValidateCode(ctx context.Context, purpose domain.Purpose, identifier, code string) (*ValidationResult, error) {
	identifier = strings.TrimSpace(identifier)
	code = strings.TrimSpace(code)
	if identifier == "" || code == "" {
		return nil, ErrTokenNotFound
	}
	if !purpose.Valid() || !purpose.UsesCode() {
		return nil, ErrUnsupportedPurpose
	}

	key := otpKey(purpose, identifier)
	record, err := s.loadRecord(ctx, key)
	if err != nil {
		return nil, err
	}

	if record.Verified() {
		return nil, ErrAlreadyVerified
	}

	now := s.now().UTC()
	if record.Expired(now) {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn("delete expired otp failed", zap.Error(err))
		}
		return nil, ErrTokenExpired
	}

	if subtle.ConstantTimeCompare([]byte(record.CodeOrToken), []byte(code)) != 1 {
		record.Attempts++
		if record.Attempts > s.attemptCap {
			if err := s.store.Delete(ctx, key); err != nil {
				s.logger.Warn("delete exhausted otp failed", zap.Error(err))
			}
			return nil, ErrTooManyAttempts
		}
		// Re-store with the remaining lifetime so a failed guess does not
		// extend the record.
		if err := s.saveRecord(ctx, key, *record, record.ExpiresAt.Sub(now)); err != nil {
			return nil, err
		}
		return nil, ErrInvalidCode
	}

	record.VerifiedAt = &now
	if err := s.saveRecord(ctx, key, *record, s.verifiedTTL); err != nil {
		return nil, err
	}

	s.publishCompleted(ctx, *record, now)

	return &ValidationResult{
		Identifier: record.Identifier,
		Purpose:    record.Purpose,
		VerifiedAt: now,
	}, nil
}

// AttemptsRemaining reports the failed-guess budget left on a pending OTP
// record, for the transport layer's error payloads.
func (s *VerificationService) AttemptsRemaining(ctx context.Context, purpose domain.Purpose, identifier string) (int, error) {
	record, err := s.loadRecord(ctx, otpKey(purpose, identifier))
	if err != nil {
		return 0, err
	}
	remaining := s.attemptCap - record.Attempts
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (s *VerificationService) ttl(purpose domain.Purpose) time.Duration {
	switch purpose {
	case domain.PurposePhoneVerification:
		return s.otpTTL
	case domain.PurposePasswordReset:
		return s.resetTokenTTL
	default:
		return s.emailTokenTTL
	}
}

// storeRecord persists the record and maintains the live-record index so at
// most one live record exists per (identifier, purpose) pair: issuing a new
// token replaces the prior one instead of accumulating.
func (s *VerificationService) storeRecord(ctx context.Context, record domain.VerificationRecord, ttl time.Duration) error {
	if record.Purpose.UsesCode() {
		// OTP flows key by identifier; the write itself replaces any prior
		// live record.
		return s.saveRecord(ctx, otpKey(record.Purpose, record.Identifier), record, ttl)
	}

	idxKey := indexKey(record.Purpose, record.Identifier)
	if prior, err := s.store.Get(ctx, idxKey); err == nil && prior != "" {
		if err := s.store.Delete(ctx, tokenKey(record.Purpose, prior)); err != nil {
			s.logger.Warn("replace prior verification token failed", zap.Error(err))
		}
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := s.saveRecord(ctx, tokenKey(record.Purpose, record.CodeOrToken), record, ttl); err != nil {
		return err
	}
	if err := s.store.Set(ctx, idxKey, record.CodeOrToken, ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *VerificationService) saveRecord(ctx context.Context, key string, record domain.VerificationRecord, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal verification record: %w", err)
	}
	if err := s.store.Set(ctx, key, string(payload), ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *VerificationService) loadRecord(ctx context.Context, key string) (*domain.VerificationRecord, error) {
	raw, err := s.store.Get(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var record domain.VerificationRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		s.logger.Warn("corrupt verification record", zap.String("key", key), zap.Error(err))
		return nil, ErrTokenNotFound
	}
	return &record, nil
}

func (s *VerificationService) removeRecord(ctx context.Context, key string, record domain.VerificationRecord) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("delete verification record failed", zap.Error(err))
	}
	if !record.Purpose.UsesCode() {
		if err := s.store.Delete(ctx, indexKey(record.Purpose, record.Identifier)); err != nil {
			s.logger.Warn("delete verification index failed", zap.Error(err))
		}
	}
}

// dispatch hands the rendered message to the transports. credential is the
// raw token or code; the record itself only carries the digest for link
// flows.
func (s *VerificationService) dispatch(ctx context.Context, record domain.VerificationRecord, credential, name string) bool {
	if s.dispatcher == nil {
		return false
	}

	var err error
	switch record.Purpose {
	case domain.PurposeEmailVerification:
		err = s.dispatcher.SendEmailVerification(ctx, port.EmailVerificationMessage{
			Email:     record.Identifier,
			Name:      name,
			Token:     credential,
			ExpiresAt: record.ExpiresAt,
		})
	case domain.PurposePhoneVerification:
		err = s.dispatcher.SendPhoneVerification(ctx, port.PhoneVerificationMessage{
			Phone:     record.Identifier,
			Code:      credential,
			ExpiresAt: record.ExpiresAt,
		})
	case domain.PurposePasswordReset:
		err = s.dispatcher.SendPasswordReset(ctx, port.PasswordResetMessage{
			Email:     record.Identifier,
			Name:      name,
			Token:     credential,
			ExpiresAt: record.ExpiresAt,
		})
	}

	if err != nil {
		s.logger.Warn("verification dispatch failed",
			zap.String("purpose", string(record.Purpose)),
			zap.String("contact", maskIdentifier(record)),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (s *VerificationService) publishIssued(ctx context.Context, record domain.VerificationRecord, dispatched bool) {
	if s.events == nil {
		return
	}

	event := domain.VerificationIssuedEvent{
		EventID:           uuid.NewString(),
		Identifier:        record.Identifier,
		MaskedIdentifier:  maskIdentifier(record),
		Purpose:           record.Purpose,
		Delivery:          record.Purpose.Delivery(),
		IssuedAt:          record.CreatedAt,
		ExpiresAt:         record.ExpiresAt,
		DispatchSucceeded: dispatched,
	}
	if err := s.events.PublishVerificationIssued(ctx, event); err != nil {
		s.logger.Warn("publish verification issued failed", zap.Error(err))
	}
}

func (s *VerificationService) publishCompleted(ctx context.Context, record domain.VerificationRecord, at time.Time) {
	if s.events == nil {
		return
	}

	event := domain.VerificationCompletedEvent{
		EventID:    uuid.NewString(),
		Identifier: record.Identifier,
		Purpose:    record.Purpose,
		VerifiedAt: at,
	}
	if err := s.events.PublishVerificationCompleted(ctx, event); err != nil {
		s.logger.Warn("publish verification completed failed", zap.Error(err))
	}
}

func maskIdentifier(record domain.VerificationRecord) string {
	if record.Purpose.Delivery() == domain.DeliverySMS {
		return logger.MaskPhone(record.Identifier)
	}
	return logger.MaskEmail(record.Identifier)
}

func tokenKey(purpose domain.Purpose, token string) string {
	return fmt.Sprintf("%s:%s:%s", tokenKeyPrefix, purpose, token)
}

func otpKey(purpose domain.Purpose, identifier string) string {
	return fmt.Sprintf("%s:%s:%s", otpKeyPrefix, purpose, identifier)
}

func indexKey(purpose domain.Purpose, identifier string) string {
	return fmt.Sprintf("%s:%s:%s", indexKeyPrefix, purpose, identifier)
}
