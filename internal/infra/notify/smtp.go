package notify

import (
	"fmt"
	"net/smtp"
	"net/textproto"

	"github.com/jordan-wright/email"
	"go.uber.org/zap"

	"github.com/bwanakweli4ever/prozlab-backend/internal/infra/config"
	"github.com/bwanakweli4ever/prozlab-backend/internal/infra/logger"
)

// EmailSender delivers a single multipart message to one recipient.
type EmailSender interface {
	Send(to, subject, text, html string) error
}

// SMTPSender sends mail through a plain-auth SMTP relay.
type SMTPSender struct {
	cfg    config.SMTPSettings
	logger *zap.Logger
}

// NewSMTPSender constructs an SMTP-backed mail sender.
func NewSMTPSender(cfg config.SMTPSettings, log *zap.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, logger: log}
}

func (s *SMTPSender) Send(to, subject, text, html string) error {
	e := &email.Email{
		To:      []string{to},
		From:    fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.From),
		Subject: subject,
		Text:    []byte(text),
		HTML:    []byte(html),
		Headers: textproto.MIMEHeader{},
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	if err := e.Send(addr, auth); err != nil {
		return fmt.Errorf("send mail to %s: %w", logger.MaskEmail(to), err)
	}

	s.logger.Debug("mail delivered",
		zap.String("to", logger.MaskEmail(to)),
		zap.String("subject", subject),
	)
	return nil
}

var _ EmailSender = (*SMTPSender)(nil)
