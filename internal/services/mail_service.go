package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/Wikid82/warden/internal/config"
	"github.com/Wikid82/warden/internal/logger"
	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/util"
)

var ErrMailNotConfigured = errors.New("SMTP not configured")

const smtpDialTimeout = 10 * time.Second

// MailService sends resolution emails to submitters via SMTP.
type MailService struct {
	config config.SMTPConfig
}

// NewMailService creates a new mail service instance.
func NewMailService(cfg config.SMTPConfig) *MailService {
	return &MailService{config: cfg}
}

// IsConfigured returns true if SMTP is properly configured.
func (s *MailService) IsConfigured() bool {
	return s.config.Configured()
}

// NotifyResolved emails the submitter the outcome of their request.
func (s *MailService) NotifyResolved(ctx context.Context, req *models.BlockRequest) error {
	subject, body := ResolutionEmail(req)
	logger.Log().WithField("block_request_id", req.ID).
		WithField("email", util.MaskEmail(req.Email)).
		Debug("Sending resolution email")
	return s.SendEmail(ctx, req.Email, subject, body)
}

// ResolutionEmail renders the subject and plain-text body sent on resolution.
func ResolutionEmail(req *models.BlockRequest) (subject, body string) {
	domain := req.Website.Domain
	subject = fmt.Sprintf("Your request about blocking %s was resolved", domain)
	body = fmt.Sprintf("Your request from %s about blocking %s has status now %s",
		req.CreatedAt.UTC().Format(time.RFC1123), domain, req.OutcomeLabel())
	return subject, body
}

// SendEmail sends a plain-text email using the configured SMTP settings.
func (s *MailService) SendEmail(ctx context.Context, to, subject, body string) error {
	if !s.IsConfigured() {
		return ErrMailNotConfigured
	}

	msg := buildEmail(s.config.FromAddress, to, subject, body, time.Now())

	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	var auth smtp.Auth
	if s.config.Username != "" && s.config.Password != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	client, err := s.dial(ctx, addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.config.Encryption == "starttls" {
		if err := client.StartTLS(s.tlsConfig()); err != nil {
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	return deliver(client, auth, s.config.FromAddress, to, msg)
}

// dial connects to the relay, wrapping the connection in TLS for "ssl".
func (s *MailService) dial(ctx context.Context, addr string) (*smtp.Client, error) {
	dialer := &net.Dialer{Timeout: smtpDialTimeout}

	var conn net.Conn
	var err error
	if s.config.Encryption == "ssl" {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: s.tlsConfig()}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("SSL connection failed: %w", err)
		}
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("SMTP connection failed: %w", err)
		}
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}
	return client, nil
}

func (s *MailService) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName: s.config.Host,
		MinVersion: tls.VersionTLS12,
	}
}

func deliver(client *smtp.Client, auth smtp.Auth, from, to string, msg []byte) error {
	if auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}

	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}

// buildEmail constructs a properly formatted plain-text email message.
func buildEmail(from, to, subject, body string, now time.Time) []byte {
	headers := [][2]string{
		{"From", sanitizeEmailHeader(from)},
		{"To", sanitizeEmailHeader(to)},
		{"Subject", mime.QEncoding.Encode("utf-8", subject)},
		{"Date", now.Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/plain; charset=UTF-8"},
	}

	var msg bytes.Buffer
	for _, h := range headers {
		msg.WriteString(h[0] + ": " + h[1] + "\r\n")
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")

	return msg.Bytes()
}

var headerBreaks = strings.NewReplacer("\r", "", "\n", "")

// sanitizeEmailHeader strips line breaks so a value cannot start a new header.
func sanitizeEmailHeader(v string) string {
	return headerBreaks.Replace(v)
}
