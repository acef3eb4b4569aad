package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/jhillyerd/enmime"
	"github.com/welldanyogia/paperboy/internal/config"
	apperrors "github.com/welldanyogia/paperboy/internal/errors"
	"github.com/welldanyogia/paperboy/internal/models"
)

const maxSubjectTitle = 100

// OutboundLog records delivery attempts
type OutboundLog interface {
	Create(ctx context.Context, email *models.OutboundEmail) error
	MarkSent(ctx context.Context, id uint, at time.Time) error
	MarkFailed(ctx context.Context, id uint, message string) error
}

// relaySender submits messages through an SMTP relay with go-smtp
type relaySender struct {
	addr     string
	username string
	password string
	// tls overrides the STARTTLS client configuration
	tls *tls.Config
}

// dial connects to the relay, upgrading with STARTTLS when the relay
// advertises it
func (s *relaySender) dial() (*smtp.Client, error) {
	c, err := smtp.Dial(s.addr)
	if err != nil {
		return nil, err
	}
	if ok, _ := c.Extension("STARTTLS"); !ok {
		return c, nil
	}
	_ = c.Quit()

	cfg := s.tls
	if cfg == nil {
		host, _, _ := net.SplitHostPort(s.addr)
		cfg = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	}
	return smtp.DialStartTLS(s.addr, cfg)
}

// Send implements enmime.Sender
func (s *relaySender) Send(reversePath string, recipients []string, msg []byte) error {
	c, err := s.dial()
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}
	defer c.Close()

	if s.username != "" {
		if err := c.Auth(sasl.NewPlainClient("", s.username, s.password)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := c.SendMail(reversePath, recipients, bytes.NewReader(msg)); err != nil {
		return err
	}
	return c.Quit()
}

// DelivererConfig holds configuration for the Deliverer
type DelivererConfig struct {
	Outbound config.OutboundConfig
	// Sender overrides the SMTP relay
	Sender enmime.Sender
	Log    OutboundLog
	Logger *slog.Logger
}

// Deliverer sends articles and digests to the reading device by email
type Deliverer struct {
	cfg    config.OutboundConfig
	sender enmime.Sender
	log    OutboundLog
	logger *slog.Logger
}

// NewDeliverer creates a new Deliverer
func NewDeliverer(cfg DelivererConfig) *Deliverer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sender := cfg.Sender
	if sender == nil {
		sender = &relaySender{
			addr:     cfg.Outbound.Addr(),
			username: cfg.Outbound.Username,
			password: cfg.Outbound.Password,
		}
	}
	return &Deliverer{
		cfg:    cfg.Outbound,
		sender: sender,
		log:    cfg.Log,
		logger: logger.With("component", "deliverer"),
	}
}

// Enabled reports whether a relay and device address are configured
func (d *Deliverer) Enabled() bool {
	return d.cfg.Enabled()
}

// FormatForDevice renders an article as plain text for e-reader delivery
func FormatForDevice(a *models.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", a.Title)
	if a.Author != "" {
		fmt.Fprintf(&b, "**By: %s**\n\n", a.Author)
	}
	if a.URL != "" {
		fmt.Fprintf(&b, "**Source:** %s\n\n", a.URL)
	}
	if a.PublicationDate != nil {
		fmt.Fprintf(&b, "**Published:** %s\n\n", a.PublicationDate.Format("2006-01-02"))
	}
	b.WriteString("---\n\n")
	b.WriteString(a.Content)
	return b.String()
}

func articleSubject(title string) string {
	if r := []rune(title); len(r) > maxSubjectTitle {
		title = string(r[:maxSubjectTitle])
	}
	return "Article: " + title
}

// DeliverArticle sends one article to the device address
func (d *Deliverer) DeliverArticle(ctx context.Context, a *models.Article) error {
	id := a.ID
	return d.send(ctx, articleSubject(a.Title), FormatForDevice(a), models.OutboundTypeArticle, &id)
}

// DeliverDigest sends a weekly digest to the device address
func (d *Deliverer) DeliverDigest(ctx context.Context, dg *models.WeeklyDigest) error {
	subject := fmt.Sprintf("Weekly Digest: %s - %s",
		dg.WeekStart.Format("2006-01-02"), dg.WeekEnd.Format("2006-01-02"))
	return d.send(ctx, subject, dg.Summary, models.OutboundTypeDigest, nil)
}

func (d *Deliverer) send(ctx context.Context, subject, body, emailType string, articleID *uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !d.Enabled() {
		return fmt.Errorf("%w: outbound mail is not configured", apperrors.ErrTransport)
	}

	record := &models.OutboundEmail{
		ToEmail:   d.cfg.DeviceEmail,
		Subject:   subject,
		EmailType: emailType,
		ArticleID: articleID,
	}
	if d.log != nil {
		if err := d.log.Create(ctx, record); err != nil {
			d.logger.Warn("failed to record outbound email", slog.Any("error", err))
		}
	}

	err := enmime.Builder().
		From("", d.cfg.FromEmail).
		To("", d.cfg.DeviceEmail).
		Subject(subject).
		Date(time.Now()).
		Text([]byte(body)).
		Send(d.sender)

	if err != nil {
		d.logger.Error("delivery failed",
			slog.String("type", emailType),
			slog.String("to", d.cfg.DeviceEmail),
			slog.Any("error", err))
		if d.log != nil && record.ID != 0 {
			_ = d.log.MarkFailed(ctx, record.ID, err.Error())
		}
		return fmt.Errorf("%w: %v", apperrors.ErrTransport, err)
	}

	if d.log != nil && record.ID != 0 {
		if err := d.log.MarkSent(ctx, record.ID, time.Now().UTC()); err != nil {
			d.logger.Warn("failed to mark outbound email sent", slog.Any("error", err))
		}
	}
	d.logger.Info("delivered", slog.String("type", emailType), slog.String("subject", subject))
	return nil
}
