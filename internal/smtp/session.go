package smtp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-smtp"
	"github.com/welldanyogia/paperboy/internal/models"
)

var (
	errTemporary = &smtp.SMTPError{
		Code:         451,
		EnhancedCode: smtp.EnhancedCode{4, 3, 0},
		Message:      "Temporary error",
	}
	errBadRecipient = &smtp.SMTPError{
		Code:         550,
		EnhancedCode: smtp.EnhancedCode{5, 1, 1},
		Message:      "Invalid recipient address",
	}
	errDomainRejected = &smtp.SMTPError{
		Code:         550,
		EnhancedCode: smtp.EnhancedCode{5, 1, 1},
		Message:      "Domain not accepted",
	}
	errNoRecipients = &smtp.SMTPError{
		Code:         503,
		EnhancedCode: smtp.EnhancedCode{5, 5, 1},
		Message:      "No recipients specified",
	}
	errEmptyMessage = &smtp.SMTPError{
		Code:         554,
		EnhancedCode: smtp.EnhancedCode{5, 6, 0},
		Message:      "Empty message",
	}
)

// Session is one SMTP transaction. The raw DATA payload is spooled as an
// InboundMessage; parsing happens later in the inbox poller.
type Session struct {
	backend    *Backend
	from       string
	recipients []string
	remote     string
}

// NewSession starts a transaction on backend
func NewSession(backend *Backend) *Session {
	return &Session{backend: backend}
}

// Mail records the envelope sender
func (s *Session) Mail(from string, opts *smtp.MailOptions) error {
	s.from = from
	return nil
}

// Rcpt accepts a recipient whose domain the backend serves
func (s *Session) Rcpt(to string, opts *smtp.RcptOptions) error {
	domain, ok := recipientDomain(to)
	if !ok {
		return errBadRecipient
	}
	if !s.backend.accepts(domain) {
		if s.backend.security != nil {
			s.backend.security.SecurityEvent("rejected_recipient", s.remote, map[string]string{
				"recipient": to,
				"from":      s.from,
			})
		}
		return errDomainRejected
	}
	s.recipients = append(s.recipients, to)
	return nil
}

// Data spools the raw message once, however many recipients it has
func (s *Session) Data(r io.Reader) error {
	if len(s.recipients) == 0 {
		return errNoRecipients
	}

	raw, err := io.ReadAll(io.LimitReader(r, s.backend.maxSize+1))
	if err != nil {
		var smtpErr *smtp.SMTPError
		if errors.As(err, &smtpErr) {
			return smtpErr
		}
		s.backend.logger.Error("failed to read message", slog.Any("error", err))
		return errTemporary
	}
	switch {
	case int64(len(raw)) > s.backend.maxSize:
		if s.backend.security != nil {
			s.backend.security.OversizedPayload(s.remote, "smtp:DATA", s.backend.maxSize)
		}
		return smtp.ErrDataTooLarge
	case len(raw) == 0:
		return errEmptyMessage
	}

	msg := &models.InboundMessage{
		Raw:          raw,
		EnvelopeFrom: s.from,
		EnvelopeTo:   strings.Join(s.recipients, ","),
	}
	if err := s.backend.spool.Create(context.Background(), msg); err != nil {
		s.backend.logger.Error("failed to spool message", slog.Any("error", err))
		return errTemporary
	}

	s.backend.logger.Info("email spooled",
		slog.Uint64("inbound_id", uint64(msg.ID)),
		slog.String("from", s.from),
		slog.Int("recipients", len(s.recipients)),
		slog.Int("bytes", len(raw)))

	if s.backend.onSpooled != nil {
		s.backend.onSpooled(msg.ID)
	}
	return nil
}

// Reset clears the envelope for the next transaction
func (s *Session) Reset() {
	s.from = ""
	s.recipients = nil
}

// Logout is a no-op; nothing is held per connection
func (s *Session) Logout() error {
	return nil
}

// recipientDomain returns the lowercased domain of a RCPT TO address,
// with or without angle brackets
func recipientDomain(address string) (string, bool) {
	address = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(address, "<"), ">"))
	local, domain, found := strings.Cut(address, "@")
	if !found || local == "" || domain == "" || strings.Contains(domain, "@") {
		return "", false
	}
	return strings.ToLower(domain), true
}
