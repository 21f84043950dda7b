package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/bwanakweli4ever/prozlab-backend/internal/core/port"
	"github.com/bwanakweli4ever/prozlab-backend/internal/infra/logger"
)

// LoggingDispatcher records credential dispatch events instead of
// delivering them. Development deployments without SMTP or SNS credentials
// read tokens and codes from the log.
type LoggingDispatcher struct {
	logger *zap.Logger
}

// NewLoggingDispatcher constructs a dispatcher backed by structured logging.
func NewLoggingDispatcher(log *zap.Logger) *LoggingDispatcher {
	return &LoggingDispatcher{logger: log}
}

func (d *LoggingDispatcher) SendEmailVerification(_ context.Context, msg port.EmailVerificationMessage) error {
	if d == nil || d.logger == nil {
		return nil
	}

	d.logger.Info("dispatch email verification",
		zap.String("email", logger.MaskEmail(msg.Email)),
		zap.String("dev_token", msg.Token),
		zap.Time("expires_at", msg.ExpiresAt),
	)
	return nil
}

func (d *LoggingDispatcher) SendPhoneVerification(_ context.Context, msg port.PhoneVerificationMessage) error {
	if d == nil || d.logger == nil {
		return nil
	}

	d.logger.Info("dispatch phone verification",
		zap.String("phone", logger.MaskPhone(msg.Phone)),
		zap.String("dev_code", msg.Code),
		zap.Time("expires_at", msg.ExpiresAt),
	)
	return nil
}

func (d *LoggingDispatcher) SendPasswordReset(_ context.Context, msg port.PasswordResetMessage) error {
	if d == nil || d.logger == nil {
		return nil
	}

	d.logger.Info("dispatch password reset",
		zap.String("email", logger.MaskEmail(msg.Email)),
		zap.String("dev_token", msg.Token),
		zap.Time("expires_at", msg.ExpiresAt),
	)
	return nil
}

var _ port.NotificationDispatcher = (*LoggingDispatcher)(nil)
