// Package digest composes and delivers the weekly article digest.
package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/welldanyogia/paperboy/internal/errors"
	"github.com/welldanyogia/paperboy/internal/models"
	"github.com/welldanyogia/paperboy/internal/repository"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// Window is the span a digest covers
	Window = 7 * 24 * time.Hour

	maxPerSource      = 10
	maxSummaryRunes   = 300
	minOverviewPrompt = 100
)

const overviewPrompt = `Based on these articles from this week, provide a brief overview of the main themes and topics covered:

%s

Please provide a 2-3 sentence overview of the key themes and insights from this week's articles.`

// Overviewer writes the optional AI overview paragraph
type Overviewer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Sender delivers a digest by mail
type Sender interface {
	DeliverDigest(ctx context.Context, dg *models.WeeklyDigest) error
}

// Config holds dependencies for the Composer
type Config struct {
	Articles repository.ArticleRepository
	Digests  repository.DigestRepository
	// Overviewer and Sender are optional
	Overviewer Overviewer
	Sender     Sender
	Logger     *slog.Logger
}

// Composer builds weekly digests from processed articles
type Composer struct {
	articles   repository.ArticleRepository
	digests    repository.DigestRepository
	overviewer Overviewer
	sender     Sender
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a Composer
func New(cfg Config) *Composer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		articles:   cfg.Articles,
		digests:    cfg.Digests,
		overviewer: cfg.Overviewer,
		sender:     cfg.Sender,
		logger:     logger.With("component", "digest"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Generate creates the digest for the week ending at now. It returns nil
// without error when an earlier digest overlaps the window or when no
// processed article was created in it.
func (c *Composer) Generate(ctx context.Context, now time.Time) (*models.WeeklyDigest, error) {
	now = now.UTC()
	start := now.Add(-Window)

	exists, err := c.digests.ExistsOverlapping(ctx, start)
	if err != nil {
		return nil, err
	}
	if exists {
		c.logger.Info("weekly digest already exists for this period")
		return nil, nil
	}

	articles, err := c.articles.ListProcessedBetween(ctx, start, now)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		c.logger.Info("no articles to include in weekly digest")
		return nil, nil
	}

	dg := &models.WeeklyDigest{
		WeekStart:    start,
		WeekEnd:      now,
		Summary:      c.compose(ctx, articles),
		ArticleCount: len(articles),
	}
	if err := c.digests.Create(ctx, dg); err != nil {
		return nil, err
	}

	c.logger.Info("weekly digest generated", slog.Any("id", dg.ID), slog.Int("articles", len(articles)))
	return dg, nil
}

// SendLatest delivers the most recent digest and marks it sent
func (c *Composer) SendLatest(ctx context.Context) (*models.WeeklyDigest, error) {
	if c.sender == nil {
		return nil, fmt.Errorf("%w: delivery is not configured", apperrors.ErrTransport)
	}
	dg, err := c.digests.Latest(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: no digest has been generated", apperrors.ErrNotFound)
		}
		return nil, err
	}

	if err := c.sender.DeliverDigest(ctx, dg); err != nil {
		return nil, err
	}
	at := c.now()
	if err := c.digests.MarkSent(ctx, dg.ID, at); err != nil {
		return nil, err
	}
	dg.Sent = true
	dg.SentAt = &at
	c.logger.Info("weekly digest sent", slog.Any("id", dg.ID))
	return dg, nil
}

// List returns recent digests
func (c *Composer) List(ctx context.Context, limit int) ([]models.WeeklyDigest, error) {
	return c.digests.List(ctx, limit)
}

// compose renders the digest markdown
func (c *Composer) compose(ctx context.Context, articles []models.Article) string {
	first, last := articles[0].CreatedAt, articles[0].CreatedAt
	for _, a := range articles[1:] {
		if a.CreatedAt.Before(first) {
			first = a.CreatedAt
		}
		if a.CreatedAt.After(last) {
			last = a.CreatedAt
		}
	}

	var b strings.Builder
	b.WriteString("# Weekly Article Digest\n\n")
	fmt.Fprintf(&b, "**Period:** %s - %s\n", first.Format("January 02"), last.Format("January 02, 2006"))
	fmt.Fprintf(&b, "**Total Articles:** %d\n\n", len(articles))

	if overview := c.overview(ctx, articles); overview != "" {
		fmt.Fprintf(&b, "## Week Overview\n%s\n\n", overview)
	}

	order, bySource := groupBySource(articles)
	for _, source := range order {
		group := bySource[source]
		fmt.Fprintf(&b, "## %s (%d articles)\n\n", sourceHeading(source), len(group))
		if len(group) > maxPerSource {
			group = group[:maxPerSource]
		}
		for _, a := range group {
			writeArticle(&b, a)
		}
	}
	return b.String()
}

func writeArticle(b *strings.Builder, a models.Article) {
	fmt.Fprintf(b, "### %s\n", a.Title)
	if a.Author != "" {
		fmt.Fprintf(b, "*By %s*\n\n", a.Author)
	}
	if summary := a.BestSummary(); summary != "" {
		fmt.Fprintf(b, "%s\n\n", Truncate(summary, maxSummaryRunes))
	}
	fmt.Fprintf(b, "[Read Article](%s)\n\n", a.URL)
	if a.AISummaryProvider != "" {
		fmt.Fprintf(b, "*AI Summary by %s*\n\n", a.AISummaryProvider)
	}
	b.WriteString("---\n\n")
}

// overview asks the Overviewer for a short summary of the week. Failures
// leave the section out.
func (c *Composer) overview(ctx context.Context, articles []models.Article) string {
	if c.overviewer == nil {
		return ""
	}
	lines := make([]string, 0, len(articles))
	for _, a := range articles {
		summary := a.BestSummary()
		if summary == "" {
			summary = "Article: " + a.Title
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", a.Title, summary))
	}
	content := strings.Join(lines, "\n")
	if len(content) <= minOverviewPrompt {
		return ""
	}

	out, err := c.overviewer.Complete(ctx, fmt.Sprintf(overviewPrompt, content))
	if err != nil {
		c.logger.Warn("failed to generate week overview", slog.Any("error", err))
		return ""
	}
	return strings.TrimSpace(out)
}

func groupBySource(articles []models.Article) ([]string, map[string][]models.Article) {
	var order []string
	groups := make(map[string][]models.Article)
	for _, a := range articles {
		source := string(a.Source)
		if source == "" {
			source = "unknown"
		}
		if _, ok := groups[source]; !ok {
			order = append(order, source)
		}
		groups[source] = append(groups[source], a)
	}
	return order, groups
}

func sourceHeading(source string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(source, "_", " "))
}

// Truncate cuts s to max runes and appends "..." when it was longer
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
