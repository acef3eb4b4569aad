package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/welldanyogia/paperboy/internal/archive"
	"github.com/welldanyogia/paperboy/internal/classifier"
	"github.com/welldanyogia/paperboy/internal/mail"
	"github.com/welldanyogia/paperboy/internal/models"
)

const fiveFiltersTitle = "Article from FiveFilters"

// Router sends a decoded email down the path its classification selects
type Router struct {
	svc    *Service
	logger *slog.Logger
}

// NewRouter creates a Router over svc
func NewRouter(svc *Service) *Router {
	return &Router{svc: svc, logger: svc.logger.With("component", "router")}
}

// Classify returns the category of a decoded email
func Classify(email *mail.ParsedEmail) models.EmailType {
	return classifier.ClassifyEmail(email.Sender(), email.Subject)
}

func routingBody(email *mail.ParsedEmail) string {
	if email.HTML == "" {
		return email.Text
	}
	return email.HTML + "\n" + email.Text
}

// Route handles one email. It never returns an error; failures are reported
// in the outcome.
func (r *Router) Route(ctx context.Context, email *mail.ParsedEmail) models.ProcessingOutcome {
	emailType := Classify(email)
	if r.svc.observer != nil {
		r.svc.observer.EmailRouted(emailType)
	}

	var (
		urls []string
		err  error
	)
	switch emailType {
	case models.EmailTypeFiveFilters:
		urls, err = r.routeFiveFilters(ctx, email)
	case models.EmailTypeNewsletter:
		urls, err = r.routeNewsletter(ctx, email)
	default:
		urls, err = r.routeGeneric(ctx, email)
	}

	if err != nil {
		r.logger.Error("email routing failed",
			slog.String("message_id", email.MessageID),
			slog.String("type", string(emailType)),
			slog.Any("error", err))
		return models.ProcessingOutcome{Type: models.EmailTypeError, Error: err.Error(), URLs: urls}
	}

	r.logger.Info("email routed",
		slog.String("message_id", email.MessageID),
		slog.String("type", string(emailType)),
		slog.Int("urls", len(urls)))
	return models.ProcessingOutcome{Type: emailType, Processed: true, URLs: urls}
}

// routeFiveFilters imports every article link and delivers it once extracted
func (r *Router) routeFiveFilters(ctx context.Context, email *mail.ParsedEmail) ([]string, error) {
	title := strings.TrimSpace(email.Subject)
	if title == "" {
		title = fiveFiltersTitle
	}
	return r.importAll(ctx, r.svc.links.ExtractURLs(routingBody(email)), ImportOptions{
		Source:  models.SourceFiveFiltersEmail,
		Title:   title,
		Deliver: true,
	})
}

// routeNewsletter records the newsletter and imports its links
func (r *Router) routeNewsletter(ctx context.Context, email *mail.ParsedEmail) ([]string, error) {
	n, err := r.svc.storeNewsletter(ctx, email, false)
	if err != nil {
		return nil, err
	}
	if _, err := r.svc.ProcessNewsletter(ctx, n.ID); err != nil {
		return nil, err
	}
	return r.svc.links.ExtractURLs(n.RawContent), nil
}

// routeGeneric imports forwarded links. A message without links is kept as a
// processed newsletter so its content is not lost.
func (r *Router) routeGeneric(ctx context.Context, email *mail.ParsedEmail) ([]string, error) {
	urls := r.svc.links.ExtractURLs(routingBody(email))
	if len(urls) == 0 {
		_, err := r.svc.storeNewsletter(ctx, email, true)
		return nil, err
	}
	return r.importAll(ctx, urls, ImportOptions{Source: models.SourceForwardedEmail})
}

// importAll imports each URL. It fails only when every import failed.
func (r *Router) importAll(ctx context.Context, urls []string, opts ImportOptions) ([]string, error) {
	var lastErr error
	imported := 0
	for _, u := range urls {
		if _, _, err := r.svc.ImportFromURL(ctx, u, opts); err != nil {
			r.logger.Warn("link import failed", slog.String("url", u), slog.Any("error", err))
			lastErr = err
			continue
		}
		imported++
	}
	if imported == 0 && lastErr != nil {
		return urls, fmt.Errorf("no link could be imported: %w", lastErr)
	}
	return urls, nil
}

// storeNewsletter records an email as a newsletter without scheduling it
func (s *Service) storeNewsletter(ctx context.Context, email *mail.ParsedEmail, processed bool) (*models.Newsletter, error) {
	name := strings.TrimSpace(email.FromName)
	if name == "" {
		name = email.Sender()
	}
	n := &models.Newsletter{
		Name:       name,
		Email:      email.Sender(),
		Subject:    email.Subject,
		Sender:     email.Sender(),
		RawContent: routingBody(email),
		Processed:  processed,
	}
	if err := s.newsletters.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Processor archives inbound mail before routing it
type Processor struct {
	archive *archive.Engine
	router  *Router
	logger  *slog.Logger
}

// NewProcessor creates a Processor
func NewProcessor(engine *archive.Engine, router *Router, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{archive: engine, router: router, logger: logger.With("component", "processor")}
}

// HandleRaw archives raw and then routes it. When archiving fails the email
// is not routed. The outcome is recorded on the archive row.
func (p *Processor) HandleRaw(ctx context.Context, raw []byte) (uint, models.ProcessingOutcome, error) {
	parsed, parseErr := mail.Parse(raw)
	hint := models.EmailTypeUnknown
	if parseErr == nil {
		hint = Classify(parsed)
	}

	id, err := p.archive.Archive(ctx, raw, hint)
	if err != nil {
		return 0, models.ProcessingOutcome{}, err
	}

	var outcome models.ProcessingOutcome
	if parseErr != nil {
		outcome = models.ProcessingOutcome{Type: models.EmailTypeError, Error: parseErr.Error()}
	} else {
		outcome = p.router.Route(ctx, parsed)
	}

	if err := p.archive.RecordOutcome(ctx, id, outcome); err != nil {
		p.logger.Error("failed to record outcome", slog.Any("archive_id", id), slog.Any("error", err))
		return id, outcome, err
	}
	return id, outcome, nil
}
