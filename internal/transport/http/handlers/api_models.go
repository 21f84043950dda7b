package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// SendEmailVerificationRequest starts or restarts the email link flow.
type SendEmailVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
}

// VerifyEmailRequest consumes an email verification token.
type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// SendOTPRequest starts or restarts the phone code flow.
type SendOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// VerifyOTPRequest matches a code against the pending record for the phone.
type VerifyOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// ForgotPasswordRequest initiates the password reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest consumes a reset token and sets the new password.
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// IssueResponse is returned after a verification artifact is stored.
type IssueResponse struct {
	Message    string    `json:"message"`
	Identifier string    `json:"identifier"`
	Delivery   string    `json:"delivery"`
	ExpiresAt  time.Time `json:"expires_at"`
	Dispatched bool      `json:"dispatched"`
	// SECURITY: DevToken and DevCode are ONLY exposed in development mode
	// In production, verification credentials are sent via secure channels
	DevToken *string `json:"dev_token,omitempty"` // Development only
	DevCode  *string `json:"dev_code,omitempty"`  // Development only
}

// VerifyResponse is returned after a token or code validates successfully.
type VerifyResponse struct {
	Message    string    `json:"message"`
	Identifier string    `json:"identifier"`
	VerifiedAt time.Time `json:"verified_at"`
}

// InvalidCodeResponse reports an OTP mismatch with the remaining budget.
type InvalidCodeResponse struct {
	Error             string `json:"error"`
	AttemptsRemaining int    `json:"attempts_remaining"`
	TraceID           string `json:"trace_id,omitempty"`
}

// ResetConfirmResponse indicates that a password reset completed successfully.
type ResetConfirmResponse struct {
	Message   string    `json:"message"`
	UserID    string    `json:"user_id"`
	ChangedAt time.Time `json:"changed_at"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// StatusResponse reports which delivery channels and backends this
// deployment carries.
type StatusResponse struct {
	Service         string `json:"service"`
	Environment     string `json:"environment"`
	StoreBackend    string `json:"store_backend"`
	EmailConfigured bool   `json:"email_configured"`
	SMSEnabled      bool   `json:"sms_enabled"`
	EventsEnabled   bool   `json:"events_enabled"`
	DevMode         bool   `json:"dev_mode"`
}
