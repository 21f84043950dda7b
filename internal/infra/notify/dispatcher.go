package notify

import (
	"context"
	"errors"

	"github.com/bwanakweli4ever/prozlab-backend/internal/core/port"
)

// ErrChannelUnconfigured is returned when a message targets a delivery
// channel this deployment has no transport for.
var ErrChannelUnconfigured = errors.New("notify: delivery channel not configured")

// Dispatcher routes verification messages to the configured mail and SMS
// transports. Either transport may be nil when the deployment does not
// carry that channel.
type Dispatcher struct {
	mail EmailSender
	sms  SMSSender
	tmpl templates
}

// NewDispatcher constructs a dispatcher over the given transports. baseURL
// is the public origin used to render verification links.
func NewDispatcher(mail EmailSender, sms SMSSender, baseURL string) *Dispatcher {
	return &Dispatcher{
		mail: mail,
		sms:  sms,
		tmpl: newTemplates(baseURL),
	}
}

func (d *Dispatcher) SendEmailVerification(_ context.Context, msg port.EmailVerificationMessage) error {
	if d.mail == nil {
		return ErrChannelUnconfigured
	}

	return d.mail.Send(
		msg.Email,
		d.tmpl.emailVerificationSubject(),
		d.tmpl.emailVerificationText(msg.Name, msg.Token, msg.ExpiresAt),
		d.tmpl.emailVerificationHTML(msg.Name, msg.Token, msg.ExpiresAt),
	)
}

func (d *Dispatcher) SendPhoneVerification(ctx context.Context, msg port.PhoneVerificationMessage) error {
	if d.sms == nil {
		return ErrChannelUnconfigured
	}

	return d.sms.SendSMS(ctx, msg.Phone, d.tmpl.otpText(msg.Code, msg.ExpiresAt))
}

func (d *Dispatcher) SendPasswordReset(_ context.Context, msg port.PasswordResetMessage) error {
	if d.mail == nil {
		return ErrChannelUnconfigured
	}

	return d.mail.Send(
		msg.Email,
		d.tmpl.passwordResetSubject(),
		d.tmpl.passwordResetText(msg.Name, msg.Token, msg.ExpiresAt),
		d.tmpl.passwordResetHTML(msg.Name, msg.Token, msg.ExpiresAt),
	)
}

var _ port.NotificationDispatcher = (*Dispatcher)(nil)
