package notifications

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	htmltemplate "html/template"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"deskly/internal/shared/config"
	"deskly/pkg/logger"
)

// EmailService delivers a notification to its recipient
type EmailService interface {
	SendNotification(ctx context.Context, notification *EmailNotification) error
}

// SMTPConfig holds SMTP configuration
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	UseTLS    bool
	Timeout   time.Duration
}

// NewSMTPConfig maps the application email settings onto the mailer
func NewSMTPConfig(cfg config.EmailConfig) *SMTPConfig {
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	return &SMTPConfig{
		Host:      cfg.SMTPHost,
		Port:      port,
		Username:  cfg.SMTPUsername,
		Password:  cfg.SMTPPassword,
		FromEmail: cfg.FromEmail,
		FromName:  cfg.FromName,
		UseTLS:    true,
		Timeout:   30 * time.Second,
	}
}

func (c *SMTPConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("SMTP config is nil")
	}
	if c.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("SMTP port must be between 1 and 65535")
	}
	if c.FromEmail == "" {
		return fmt.Errorf("from email is required")
	}
	return nil
}

// SMTPEmailService sends rendered notifications over SMTP with STARTTLS
type SMTPEmailService struct {
	config *SMTPConfig
	logger *logger.Logger
}

func NewSMTPEmailService(cfg *SMTPConfig, log *logger.Logger) (*SMTPEmailService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SMTP configuration: %w", err)
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &SMTPEmailService{config: cfg, logger: log}, nil
}

func (s *SMTPEmailService) SendNotification(ctx context.Context, notification *EmailNotification) error {
	htmlBody, textBody, err := renderContent(notification)
	if err != nil {
		return fmt.Errorf("failed to generate email content: %w", err)
	}

	message := buildMessage(s.config.FromName, s.config.FromEmail, notification.RecipientEmail, notification.Subject, htmlBody, textBody, time.Now())

	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))

	if err := s.sendWithSTARTTLS(ctx, addr, auth, notification.RecipientEmail, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent", "type", string(notification.Type), "recipient_id", notification.RecipientID.String())
	return nil
}

func (s *SMTPEmailService) sendWithSTARTTLS(ctx context.Context, addr string, auth smtp.Auth, to string, message []byte) error {
	dialer := &net.Dialer{Timeout: s.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(s.config.Timeout))
	}

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer client.Close()

	if s.config.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err = client.StartTLS(&tls.Config{ServerName: s.config.Host}); err != nil {
				return fmt.Errorf("failed to start TLS: %w", err)
			}
		}
	}

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err = client.Mail(s.config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err = client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err = w.Write(message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}

	return client.Quit()
}

// LogEmailService writes notifications to the log instead of sending them
type LogEmailService struct {
	logger *logger.Logger
}

func NewLogEmailService(log *logger.Logger) *LogEmailService {
	if log == nil {
		log = logger.GetDefault()
	}
	return &LogEmailService{logger: log}
}

func (s *LogEmailService) SendNotification(_ context.Context, notification *EmailNotification) error {
	_, textBody, err := renderContent(notification)
	if err != nil {
		return err
	}
	s.logger.Info("email (not sent, SMTP disabled)",
		"type", string(notification.Type),
		"to", notification.RecipientEmail,
		"subject", notification.Subject,
		"body", textBody,
	)
	return nil
}

// buildMessage creates a multipart/alternative message with plain text first
func buildMessage(fromName, fromEmail, to, subject, htmlBody, textBody string, now time.Time) []byte {
	boundary := "deskly_" + strconv.FormatInt(now.UnixNano(), 10)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", fromName, fromEmail)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)

	if textBody != "" {
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", boundary, textBody)
	}
	if htmlBody != "" {
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", boundary, htmlBody)
	}
	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	return []byte(b.String())
}

type emailTemplate struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

func newEmailTemplate(name, html, text string) emailTemplate {
	return emailTemplate{
		html: htmltemplate.Must(htmltemplate.New(name).Option("missingkey=zero").Parse(html)),
		text: texttemplate.Must(texttemplate.New(name).Option("missingkey=zero").Parse(text)),
	}
}

var emailTemplates = map[NotificationType]emailTemplate{
	NotificationTypeCancellationConfirmation: newEmailTemplate("cancellation_confirmation",
		`<p>Hi {{.name}},</p><p>We received your request to cancel your booking at <strong>{{.listing}}</strong> starting {{.booking_start}}.</p><p>Estimated refund: <strong>{{.refund_amount}} {{.currency}}</strong>.</p>{{if eq .automatic "true"}}<p>Your refund is being processed automatically.</p>{{else}}<p>The host will review your request shortly.</p>{{end}}`,
		"Hi {{.name}},\n\nWe received your request to cancel your booking at {{.listing}} starting {{.booking_start}}.\nEstimated refund: {{.refund_amount}} {{.currency}}.\n{{if eq .automatic \"true\"}}Your refund is being processed automatically.{{else}}The host will review your request shortly.{{end}}\n"),
	NotificationTypeRefundRequest: newEmailTemplate("refund_request",
		`<p>Hi {{.name}},</p><p>A guest asked to cancel their booking at <strong>{{.listing}}</strong> starting {{.booking_start}}.</p><p>Reason: {{.reason}}</p><p>Refund under your policy: <strong>{{.refund_amount}} {{.currency}}</strong>.</p><p>Please approve or reject request {{.request_id}}.</p>`,
		"Hi {{.name}},\n\nA guest asked to cancel their booking at {{.listing}} starting {{.booking_start}}.\nReason: {{.reason}}\nRefund under your policy: {{.refund_amount}} {{.currency}}.\nPlease approve or reject request {{.request_id}}.\n"),
	NotificationTypeRefundApproved: newEmailTemplate("refund_approved",
		`<p>Hi {{.name}},</p><p>Your cancellation for <strong>{{.listing}}</strong> was approved.</p><p>Refund: <strong>{{.refund_amount}} {{.currency}}</strong>.</p>`,
		"Hi {{.name}},\n\nYour cancellation for {{.listing}} was approved.\nRefund: {{.refund_amount}} {{.currency}}.\n"),
	NotificationTypeRefundRejected: newEmailTemplate("refund_rejected",
		`<p>Hi {{.name}},</p><p>Your cancellation request for <strong>{{.listing}}</strong> was declined by the host.</p>{{if .rejection_reason}}<p>Reason: {{.rejection_reason}}</p>{{end}}<p>Your booking remains active.</p>`,
		"Hi {{.name}},\n\nYour cancellation request for {{.listing}} was declined by the host.\n{{if .rejection_reason}}Reason: {{.rejection_reason}}\n{{end}}Your booking remains active.\n"),
	NotificationTypeAutomaticRefund: newEmailTemplate("automatic_refund",
		`<p>Hi {{.name}},</p><p>Your booking at <strong>{{.listing}}</strong> has been cancelled and a refund of <strong>{{.refund_amount}} {{.currency}}</strong> has been issued.</p>`,
		"Hi {{.name}},\n\nYour booking at {{.listing}} has been cancelled and a refund of {{.refund_amount}} {{.currency}} has been issued.\n"),
}

// renderContent returns the html and text bodies for a notification
func renderContent(notification *EmailNotification) (string, string, error) {
	tmpl, ok := emailTemplates[notification.Type]
	if !ok {
		return "", "", fmt.Errorf("no template for notification type %s", notification.Type)
	}

	var htmlBuf, textBuf bytes.Buffer
	if err := tmpl.html.Execute(&htmlBuf, notification.TemplateData); err != nil {
		return "", "", fmt.Errorf("failed to execute HTML template: %w", err)
	}
	if err := tmpl.text.Execute(&textBuf, notification.TemplateData); err != nil {
		return "", "", fmt.Errorf("failed to execute text template: %w", err)
	}
	return htmlBuf.String(), textBuf.String(), nil
}
