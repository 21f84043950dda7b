package domain

import "time"

// Purpose distinguishes concurrent verification flows for the same identifier.
type Purpose string

const (
	PurposeEmailVerification Purpose = "email_verification"
	PurposePhoneVerification Purpose = "phone_verification"
	PurposePasswordReset     Purpose = "password_reset"
)

// Valid reports whether the purpose is one of the supported flows.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeEmailVerification, PurposePhoneVerification, PurposePasswordReset:
		return true
	}
	return false
}

// UsesCode reports whether the purpose delivers a short numeric code rather
// than an opaque link token. Code flows are keyed by identifier because the
// code itself is not unique enough to index by.
func (p Purpose) UsesCode() bool {
	return p == PurposePhoneVerification
}

// Delivery channels for verification artifacts.
const (
	DeliveryEmail = "email"
	DeliverySMS   = "sms"
)

// Delivery returns the channel used to hand the artifact to the user.
func (p Purpose) Delivery() string {
	if p.UsesCode() {
		return DeliverySMS
	}
	return DeliveryEmail
}

// VerificationRecord is the stored association between an identifier, a
// purpose, and a single-use code or token with expiry state. The store owns
// each record exclusively; only the lifecycle manager mutates it.
type VerificationRecord struct {
	Identifier  string     `json:"identifier"`
	Purpose     Purpose    `json:"purpose"`
	CodeOrToken string     `json:"code_or_token"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	Attempts    int        `json:"attempts"`
}

// Verified reports whether the record has already been consumed.
func (r VerificationRecord) Verified() bool {
	return r.VerifiedAt != nil
}

// Expired reports whether the record's TTL has elapsed at the reference time.
func (r VerificationRecord) Expired(at time.Time) bool {
	return at.After(r.ExpiresAt)
}

// VerificationIssuedEvent is published after a verification artifact is
// stored, regardless of dispatch outcome.
type VerificationIssuedEvent struct {
	EventID           string    `json:"event_id"`
	Identifier        string    `json:"identifier"`
	MaskedIdentifier  string    `json:"masked_identifier"`
	Purpose           Purpose   `json:"purpose"`
	Delivery          string    `json:"delivery"`
	IssuedAt          time.Time `json:"issued_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	DispatchSucceeded bool      `json:"dispatch_succeeded"`
}

// VerificationCompletedEvent is published after a token or code validates
// successfully.
type VerificationCompletedEvent struct {
	EventID    string    `json:"event_id"`
	Identifier string    `json:"identifier"`
	Purpose    Purpose   `json:"purpose"`
	VerifiedAt time.Time `json:"verified_at"`
}

// PasswordResetCompletedEvent is published after a reset token was consumed
// and the new password applied.
type PasswordResetCompletedEvent struct {
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	Identifier string    `json:"identifier"`
	ChangedAt  time.Time `json:"changed_at"`
}
