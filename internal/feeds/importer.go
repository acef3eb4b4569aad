// Package feeds imports the item links of RSS and Atom feeds as articles.
package feeds

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	apperrors "github.com/welldanyogia/paperboy/internal/errors"
	"github.com/welldanyogia/paperboy/internal/extractor"
	"github.com/welldanyogia/paperboy/internal/ingest"
	"github.com/welldanyogia/paperboy/internal/models"
)

// ArticleImporter creates articles from URLs
type ArticleImporter interface {
	ImportFromURL(ctx context.Context, rawURL string, opts ingest.ImportOptions) (*models.Article, bool, error)
}

// Result reports one feed import
type Result struct {
	FeedTitle string   `json:"feed_title"`
	Items     int      `json:"items"`
	Created   int      `json:"created"`
	Existing  int      `json:"existing"`
	Failed    int      `json:"failed"`
	URLs      []string `json:"urls"`
}

// Config holds dependencies for the Importer
type Config struct {
	Articles ArticleImporter
	// Client fetches feeds. Defaults to the guarded extractor client.
	Client  *http.Client
	Timeout time.Duration
	Logger  *slog.Logger
}

// Importer fetches a feed and imports each item link with source rss
type Importer struct {
	articles ArticleImporter
	client   *http.Client
	timeout  time.Duration
	logger   *slog.Logger
}

// NewImporter creates an Importer
func NewImporter(cfg Config) *Importer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = extractor.DefaultFetchTimeout
	}
	if cfg.Client == nil {
		cfg.Client = extractor.NewGuardedClient(cfg.Timeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Importer{
		articles: cfg.Articles,
		client:   cfg.Client,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger.With("component", "feeds"),
	}
}

// Import fetches feedURL and imports every item link. Items that fail to
// import are counted, not fatal.
func (i *Importer) Import(ctx context.Context, feedURL string) (*Result, error) {
	page, err := extractor.Fetch(ctx, i.client, feedURL, i.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("%w: parse feed: %v", apperrors.ErrInvalidInput, err)
	}

	result := &Result{FeedTitle: feed.Title, Items: len(feed.Items), URLs: []string{}}
	origin := strings.TrimSpace(feed.Title)
	for _, item := range feed.Items {
		link := itemLink(item)
		if link == "" {
			result.Failed++
			continue
		}
		_, created, err := i.articles.ImportFromURL(ctx, link, ingest.ImportOptions{
			Source: models.SourceRSS,
			Origin: origin,
			Title:  strings.TrimSpace(item.Title),
		})
		if err != nil {
			i.logger.Warn("feed item import failed", slog.String("feed", feedURL), slog.String("url", link), slog.Any("error", err))
			result.Failed++
			continue
		}
		result.URLs = append(result.URLs, link)
		if created {
			result.Created++
		} else {
			result.Existing++
		}
	}

	i.logger.Info("feed imported",
		slog.String("feed", feedURL),
		slog.Int("items", result.Items),
		slog.Int("created", result.Created),
		slog.Int("failed", result.Failed))
	return result, nil
}

// itemLink prefers the item link and falls back to a permalink GUID
func itemLink(item *gofeed.Item) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	if len(item.Links) > 0 {
		return strings.TrimSpace(item.Links[0])
	}
	if strings.HasPrefix(item.GUID, "http://") || strings.HasPrefix(item.GUID, "https://") {
		return item.GUID
	}
	return ""
}
