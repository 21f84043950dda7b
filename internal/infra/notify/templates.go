package notify

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// templates renders delivery content for verification credentials. Links
// point back at the public API surface so the frontend can proxy them.
type templates struct {
	baseURL string
}

func newTemplates(baseURL string) templates {
	return templates{baseURL: strings.TrimRight(baseURL, "/")}
}

func (t templates) verificationURL(token string) string {
	return fmt.Sprintf("%s/api/v1/auth/email/verify?token=%s", t.baseURL, url.QueryEscape(token))
}

func (t templates) passwordResetURL(token string) string {
	return fmt.Sprintf("%s/api/v1/auth/password/reset?token=%s", t.baseURL, url.QueryEscape(token))
}

func (t templates) emailVerificationSubject() string {
	return "Verify your email address"
}

func (t templates) emailVerificationText(name, token string, expiresAt time.Time) string {
	link := t.verificationURL(token)
	return fmt.Sprintf(
		"Hello %s,\n\nPlease confirm your email address by opening the link below:\n\n%s\n\nThe link expires at %s.\n\nIf you did not request this, ignore this message.\n",
		displayName(name), link, expiresAt.UTC().Format(time.RFC1123),
	)
}

func (t templates) emailVerificationHTML(name, token string, expiresAt time.Time) string {
	link := t.verificationURL(token)
	return fmt.Sprintf(
		`<p>Hello %s,</p><p>Please confirm your email address:</p><p><a href="%s">Verify email</a></p><p>The link expires at %s.</p><p>If you did not request this, ignore this message.</p>`,
		displayName(name), link, expiresAt.UTC().Format(time.RFC1123),
	)
}

func (t templates) passwordResetSubject() string {
	return "Reset your password"
}

func (t templates) passwordResetText(name, token string, expiresAt time.Time) string {
	link := t.passwordResetURL(token)
	return fmt.Sprintf(
		"Hello %s,\n\nA password reset was requested for your account. Open the link below to choose a new password:\n\n%s\n\nThe link expires at %s.\n\nIf you did not request this, your password is unchanged.\n",
		displayName(name), link, expiresAt.UTC().Format(time.RFC1123),
	)
}

func (t templates) passwordResetHTML(name, token string, expiresAt time.Time) string {
	link := t.passwordResetURL(token)
	return fmt.Sprintf(
		`<p>Hello %s,</p><p>A password reset was requested for your account.</p><p><a href="%s">Reset password</a></p><p>The link expires at %s.</p><p>If you did not request this, your password is unchanged.</p>`,
		displayName(name), link, expiresAt.UTC().Format(time.RFC1123),
	)
}

func (t templates) otpText(code string, expiresAt time.Time) string {
	minutes := int(time.Until(expiresAt).Round(time.Minute).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, minutes)
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "there"
	}
	return name
}
