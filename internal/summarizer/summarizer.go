package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/welldanyogia/paperboy/internal/config"
	apperrors "github.com/welldanyogia/paperboy/internal/errors"
)

// Variant is one of the three summary lengths
type Variant string

const (
	Brief    Variant = "brief"
	Standard Variant = "standard"
	Detailed Variant = "detailed"
)

// Variants lists the summary lengths in generation order
var Variants = []Variant{Brief, Standard, Detailed}

const (
	minContentLength = 100
	maxContentLength = 50000
)

// ErrContentTooShort is returned for bodies too short to summarize
var ErrContentTooShort = errors.New("content too short for summarization")

var prompts = map[Variant]string{
	Brief: `Please provide a very concise summary of this article in 1-2 sentences. Focus on the main point or key takeaway.

%sArticle content:
%s

Brief summary:`,
	Standard: `Please provide a clear, informative summary of this article in one paragraph (3-5 sentences). Include the main points and key insights.

%sArticle content:
%s

Standard summary:`,
	Detailed: `Please provide a comprehensive summary of this article in 2-3 paragraphs. Include the main arguments, key evidence, implications, and any important details that readers should know.

%sArticle content:
%s

Detailed summary:`,
}

// Summaries holds the generated variants. A nil field means that variant
// could not be produced.
type Summaries struct {
	Brief       *string
	Standard    *string
	Detailed    *string
	Provider    string
	Model       string
	GeneratedAt time.Time
}

func (s *Summaries) set(v Variant, text string) {
	switch v {
	case Brief:
		s.Brief = &text
	case Standard:
		s.Standard = &text
	case Detailed:
		s.Detailed = &text
	}
}

// Empty reports whether no variant was produced
func (s *Summaries) Empty() bool {
	return s.Brief == nil && s.Standard == nil && s.Detailed == nil
}

// Option configures a Service
type Option func(*Service)

// WithHTTPClient replaces the HTTP client used by the built-in providers
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.httpClient = c }
}

// WithProvider replaces the configured provider
func WithProvider(p Provider) Option {
	return func(s *Service) { s.provider = p }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithBackoff sets the first retry delay; later delays double
func WithBackoff(d time.Duration) Option {
	return func(s *Service) { s.backoff = d }
}

// Service generates article summaries through the configured provider
type Service struct {
	cfg        config.SummarizerConfig
	provider   Provider
	httpClient *http.Client
	backoff    time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// New validates cfg and builds the provider it selects
func New(cfg config.SummarizerConfig, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		cfg:     cfg,
		backoff: time.Second,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: cfg.Timeout()}
	}
	if s.provider == nil {
		s.provider = buildProvider(cfg, s.httpClient)
	}
	return s, nil
}

func buildProvider(cfg config.SummarizerConfig, client *http.Client) Provider {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return &anthropicProvider{client: client, baseURL: cfg.AnthropicBaseURL, apiKey: cfg.AnthropicKey, model: cfg.AnthropicModel}
	case config.ProviderLocal:
		return &localProvider{client: client, url: cfg.LocalURL, model: cfg.LocalModel}
	default:
		return &openAIProvider{client: client, baseURL: cfg.OpenAIBaseURL, apiKey: cfg.OpenAIKey, model: cfg.OpenAIModel}
	}
}

// ProviderInfo returns the provider and model names
func (s *Service) ProviderInfo() (string, string) {
	return s.provider.Name(), s.provider.Model()
}

// cutAtRune returns at most n bytes of text without splitting a rune
func cutAtRune(text string, n int) string {
	if len(text) <= n {
		return text
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}

// GenerateSummaries produces the brief, standard and detailed variants.
// Each variant is retried with exponential backoff; after the final failure
// an extractive summary is used when fallback is enabled and the provider is
// not local. The error wraps ErrSummarizationFailed only when every variant
// is missing.
func (s *Service) GenerateSummaries(ctx context.Context, text, title string) (*Summaries, error) {
	text = strings.TrimSpace(text)
	if len(text) < minContentLength {
		return nil, ErrContentTooShort
	}
	if len(text) > maxContentLength {
		text = cutAtRune(text, maxContentLength) + "..."
	}

	titleLine := ""
	if title = strings.TrimSpace(title); title != "" {
		titleLine = "Title: " + title + "\n\n"
	}

	provider, model := s.ProviderInfo()
	out := &Summaries{Provider: provider, Model: model, GeneratedAt: s.now().UTC()}

	var lastErr error
	for _, v := range Variants {
		prompt := fmt.Sprintf(prompts[v], titleLine, text)
		summary, err := s.completeWithRetries(ctx, prompt)
		if err == nil && summary != "" {
			out.set(v, summary)
			continue
		}
		if err == nil {
			err = fmt.Errorf("empty %s summary", v)
		}
		lastErr = err
		s.logger.Error("summary generation failed",
			slog.String("variant", string(v)),
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)

		if s.cfg.EnableFallback && provider != config.ProviderLocal {
			out.set(v, FallbackSummary(text, v))
		}
	}

	if out.Empty() {
		return out, fmt.Errorf("%w: %v", apperrors.ErrSummarizationFailed, lastErr)
	}
	return out, nil
}

// Complete runs a free-form prompt with the same retry policy
func (s *Service) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := s.completeWithRetries(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrSummarizationFailed, err)
	}
	return out, nil
}

func (s *Service) completeWithRetries(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	delay := s.backoff
	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout())
		out, err := s.provider.Complete(callCtx, prompt)
		cancel()
		if err == nil {
			return out, nil
		}
		lastErr = err
		s.logger.Warn("summarization attempt failed",
			slog.Int("attempt", attempt+1),
			slog.String("provider", s.provider.Name()),
			slog.String("error", err.Error()),
		)

		if attempt == s.cfg.MaxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return "", fmt.Errorf("all %d attempts failed: %w", s.cfg.MaxRetries, lastErr)
}

// FallbackSummary builds an extractive summary from the leading sentences
func FallbackSummary(text string, v Variant) string {
	var sentences []string
	for _, part := range strings.Split(strings.ReplaceAll(text, "\n", " "), ". ") {
		part = strings.TrimSuffix(strings.TrimSpace(part), ".")
		if len(part) > 20 {
			sentences = append(sentences, part)
		}
	}
	join := func(ss []string) string {
		if len(ss) == 0 {
			return ""
		}
		return strings.Join(ss, ". ") + "."
	}

	switch v {
	case Brief:
		return join(sentences[:min(2, len(sentences))])
	case Standard:
		return join(sentences[:min(5, len(sentences))])
	default:
		selected := sentences[:min(10, len(sentences))]
		mid := len(selected) / 2
		return join(selected[:mid]) + "\n\n" + join(selected[mid:])
	}
}
