package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/devteria/identity_service/internal/logging"
)

// Sender is the outbound email capability the credential flows depend on.
// Send failures propagate to the caller; the flows decide whether to care.
type Sender interface {
	SendVerificationEmail(ctx context.Context, to, code string) error
	SendPasswordResetCode(ctx context.Context, to, code string) error
	SendPasswordChangeNotification(ctx context.Context, to, username string) error
}

// SMTPSender delivers over plain SMTP with optional auth.
type SMTPSender struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

func (s *SMTPSender) send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if s.User != "" {
		auth = smtp.PlainAuth("", s.User, s.Pass, s.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	if err := smtp.SendMail(addr, auth, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

func (s *SMTPSender) SendVerificationEmail(ctx context.Context, to, code string) error {
	body := fmt.Sprintf(
		"Thank you for registering with Identity Service.\r\n\r\n"+
			"Your verification code is: %s\r\n\r\n"+
			"The code is valid for 15 minutes. If you did not create this account, ignore this email.",
		code,
	)
	return s.send(to, "Verify your account - Identity Service", body)
}

func (s *SMTPSender) SendPasswordResetCode(ctx context.Context, to, code string) error {
	body := fmt.Sprintf(
		"You requested a password reset.\r\n\r\n"+
			"Your verification code is: %s\r\n\r\n"+
			"The code is valid for 10 minutes. If you did not request a reset, ignore this email.",
		code,
	)
	return s.send(to, "Password reset code - Identity Service", body)
}

func (s *SMTPSender) SendPasswordChangeNotification(ctx context.Context, to, username string) error {
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\n"+
			"The password for your account was just changed.\r\n\r\n"+
			"If this was not you, contact support immediately.",
		username,
	)
	return s.send(to, "Password changed - Identity Service", body)
}

// LogSender writes would-be emails to the log. Used when SMTP is not
// configured, e.g. local development.
type LogSender struct{}

func (LogSender) SendVerificationEmail(ctx context.Context, to, code string) error {
	logging.FromContext(ctx).Info("mail_verification", "to", to, "code", code)
	return nil
}

func (LogSender) SendPasswordResetCode(ctx context.Context, to, code string) error {
	logging.FromContext(ctx).Info("mail_password_reset", "to", to, "code", code)
	return nil
}

func (LogSender) SendPasswordChangeNotification(ctx context.Context, to, username string) error {
	logging.FromContext(ctx).Info("mail_password_changed", "to", to, "username", username)
	return nil
}
