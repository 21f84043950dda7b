package port

import (
	"context"
	"time"
)

// EmailVerificationMessage carries the data needed to deliver an email
// verification link.
type EmailVerificationMessage struct {
	Email     string
	Name      string
	Token     string
	ExpiresAt time.Time
}

// PhoneVerificationMessage carries the data needed to deliver an OTP code.
type PhoneVerificationMessage struct {
	Phone     string
	Code      string
	ExpiresAt time.Time
}

// PasswordResetMessage carries the data needed to deliver a reset link.
type PasswordResetMessage struct {
	Email     string
	Name      string
	Token     string
	ExpiresAt time.Time
}

// NotificationDispatcher hands rendered verification messages to the mail and
// SMS transports. Failures are reported to the caller but never corrupt
// verification state; the lifecycle manager logs them and carries on.
type NotificationDispatcher interface {
	SendEmailVerification(ctx context.Context, msg EmailVerificationMessage) error
	SendPhoneVerification(ctx context.Context, msg PhoneVerificationMessage) error
	SendPasswordReset(ctx context.Context, msg PasswordResetMessage) error
}
