package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"net/url"

	"github.com/stride-hq/kanban-api/internal/config"
	"github.com/stride-hq/kanban-api/internal/logging"
)

const resetEmailSubject = "Reset your password"

var resetEmailTemplate = template.Must(template.New("reset").Parse(`<html>
<body style="font-family: sans-serif; color: #333;">
  <h2>Password reset</h2>
  <p>We received a request to reset the password for your account.</p>
  <p><a href="{{.ResetLink}}">Click here to choose a new password</a></p>
  <p>The link is valid for one hour. If you did not request a reset, you can ignore this email.</p>
</body>
</html>`))

// Service sends transactional email over SMTP. When no SMTP host is
// configured (local development), messages are logged instead of sent so the
// reset flow stays testable without a mail server.
type Service struct {
	cfg    config.EmailConfig
	logger *logging.Logger
}

func NewService(cfg config.EmailConfig, logger *logging.Logger) *Service {
	return &Service{cfg: cfg, logger: logger}
}

// SendPasswordResetEmail delivers the reset link for the token to the
// address. net/smtp has no context support, so ctx only gates the early
// return.
func (s *Service) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.FrontendURL, url.QueryEscape(token))

	if s.cfg.SMTPHost == "" {
		s.logger.Info("SMTP not configured, logging reset link instead", "to", to, "reset_link", resetLink)
		return nil
	}

	var body bytes.Buffer
	if err := resetEmailTemplate.Execute(&body, struct{ ResetLink string }{resetLink}); err != nil {
		return fmt.Errorf("failed to render reset email: %w", err)
	}

	msg := bytes.Buffer{}
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.SMTPUser)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", resetEmailSubject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)

	if err := smtp.SendMail(addr, auth, s.cfg.SMTPUser, []string{to}, msg.Bytes()); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	s.logger.Info("password reset email sent", "to", to)
	return nil
}
