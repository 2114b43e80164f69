// Package mailer delivers the digest as an HTML email over SMTP
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/bobmcallan/vire-digest/internal/common"
	"github.com/bobmcallan/vire-digest/internal/interfaces"
)

// SubjectPrefix starts every digest email subject
const SubjectPrefix = "[Daily Trading Digest]"

// sendFunc delivers a prepared message; swapped out in tests
type sendFunc func(ctx context.Context, cfg common.EmailConfig, msg []byte) error

// Service implements MailService
type Service struct {
	cfg    common.EmailConfig
	loc    *time.Location
	logger arbor.ILogger
	now    func() time.Time
	send   sendFunc
}

// NewService creates a mailer. loc is the zone used in the subject line.
func NewService(cfg common.EmailConfig, loc *time.Location, logger arbor.ILogger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		cfg:    cfg,
		loc:    loc,
		logger: logger,
		now:    time.Now,
		send:   sendSTARTTLS,
	}
}

// Enabled reports whether every SMTP setting and at least one recipient is configured
func (s *Service) Enabled() bool {
	return s.cfg.IsComplete()
}

// SendDigest renders markdown to HTML and sends it to every recipient
func (s *Service) SendDigest(ctx context.Context, markdown string) (int, error) {
	if !s.Enabled() {
		return 0, fmt.Errorf("smtp not fully configured")
	}

	body, err := RenderHTML(markdown)
	if err != nil {
		return 0, err
	}

	subject := fmt.Sprintf("%s %s", SubjectPrefix, s.now().In(s.loc).Format("2006-01-02 15:04 MST"))
	msg := buildMessage(s.cfg.From, s.cfg.To, subject, body, s.now())

	if err := s.send(ctx, s.cfg, msg); err != nil {
		return 0, fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info().Int("recipients", len(s.cfg.To)).Msg("Email sent")
	return len(s.cfg.To), nil
}

// buildMessage assembles a MIME message with a base64 encoded HTML body
func buildMessage(from string, to []string, subject, html string, date time.Time) []byte {
	var buf bytes.Buffer
	header := func(k, v string) {
		buf.WriteString(k)
		buf.WriteString(": ")
		buf.WriteString(v)
		buf.WriteString("\r\n")
	}

	header("From", from)
	header("To", strings.Join(to, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", subject))
	header("Date", date.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="utf-8"`)
	header("Content-Transfer-Encoding", "base64")
	buf.WriteString("\r\n")

	encoded := base64.StdEncoding.EncodeToString([]byte(html))
	for len(encoded) > 76 {
		buf.WriteString(encoded[:76])
		buf.WriteString("\r\n")
		encoded = encoded[76:]
	}
	buf.WriteString(encoded)
	buf.WriteString("\r\n")

	return buf.Bytes()
}

// sendSTARTTLS dials the server, upgrades with STARTTLS, authenticates and sends
func sendSTARTTLS(ctx context.Context, cfg common.EmailConfig, msg []byte) error {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	dialer := &net.Dialer{Timeout: cfg.GetTimeout()}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(cfg.GetTimeout()))
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}
	if err := client.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := client.Mail(cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range cfg.To {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}
	return client.Quit()
}

// Ensure Service implements MailService
var _ interfaces.MailService = (*Service)(nil)
