package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/welldanyogia/paperboy/internal/errors"
)

// Result holds the fields extracted from an article page
type Result struct {
	Title           string
	Author          string
	PublicationDate *time.Time
	Text            string
	// Stage names the strategy that produced Text
	Stage string
}

// Observer is notified of every strategy attempt
type Observer interface {
	ObserveExtraction(stage string, ok bool, elapsed time.Duration)
}

// Config holds extractor dependencies
type Config struct {
	// Client performs page fetches. Defaults to NewGuardedClient.
	Client *http.Client
	// Timeout bounds a single fetch
	Timeout time.Duration
	// Strategies run in order until one yields text.
	// Defaults to Readability then Structural.
	Strategies []Strategy
	Observer   Observer
	Logger     *slog.Logger
}

// Extractor fetches a page once and runs the extraction strategies over it
type Extractor struct {
	client     *http.Client
	timeout    time.Duration
	strategies []Strategy
	observer   Observer
	logger     *slog.Logger
}

// New creates an Extractor
func New(cfg Config) *Extractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFetchTimeout
	}
	if cfg.Client == nil {
		cfg.Client = NewGuardedClient(cfg.Timeout)
	}
	if len(cfg.Strategies) == 0 {
		cfg.Strategies = []Strategy{Readability{}, Structural{}}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Extractor{
		client:     cfg.Client,
		timeout:    cfg.Timeout,
		strategies: cfg.Strategies,
		observer:   cfg.Observer,
		logger:     cfg.Logger,
	}
}

// Extract fetches rawURL and returns the first strategy result with a body.
// When no strategy yields a body the error wraps ErrExtractionFailed.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*Result, error) {
	page, err := Fetch(ctx, e.client, rawURL, e.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrExtractionFailed, err)
	}
	return e.ExtractPage(page)
}

// ExtractPage runs the strategies over an already fetched page
func (e *Extractor) ExtractPage(page *Page) (*Result, error) {
	var fallbackTitle string
	for _, strategy := range e.strategies {
		start := time.Now()
		res, err := strategy.Extract(page)
		ok := err == nil && res != nil && strings.TrimSpace(res.Text) != ""
		if e.observer != nil {
			e.observer.ObserveExtraction(strategy.Name(), ok, time.Since(start))
		}

		if !ok {
			attrs := []any{slog.String("url", page.URL.String()), slog.String("stage", strategy.Name())}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}
			e.logger.Warn("extraction stage yielded no body", attrs...)
			if res != nil && fallbackTitle == "" {
				fallbackTitle = res.Title
			}
			continue
		}

		res.Stage = strategy.Name()
		if res.Title == "" {
			res.Title = fallbackTitle
		}
		return res, nil
	}
	return nil, fmt.Errorf("%w: no stage produced a body for %s", apperrors.ErrExtractionFailed, page.URL.Redacted())
}
