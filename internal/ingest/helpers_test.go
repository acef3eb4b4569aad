package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/paperboy/internal/classifier"
	"github.com/welldanyogia/paperboy/internal/database"
	"github.com/welldanyogia/paperboy/internal/extractor"
	"github.com/welldanyogia/paperboy/internal/links"
	"github.com/welldanyogia/paperboy/internal/models"
	"github.com/welldanyogia/paperboy/internal/repository"
	"github.com/welldanyogia/paperboy/internal/storage"
	"github.com/welldanyogia/paperboy/internal/summarizer"
	"gorm.io/gorm"
)

const articleText = "Goroutines are cheap to start but not free to leak. " +
	"Every goroutine you launch needs a clear owner and a way to stop. " +
	"Channels are the usual tool for signalling completion between them. " +
	"Context cancellation propagates shutdown through a call tree."

// stubExtractor returns canned results keyed by URL
type stubExtractor struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func newStubExtractor() *stubExtractor {
	return &stubExtractor{calls: map[string]int{}, fail: map[string]bool{}}
}

func (e *stubExtractor) Extract(_ context.Context, rawURL string) (*extractor.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls[rawURL]++
	if e.fail[rawURL] {
		return nil, errors.New("no stage produced a body")
	}
	published := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return &extractor.Result{
		Title:           "Go Concurrency Patterns",
		Author:          "Jane Doe",
		PublicationDate: &published,
		Text:            articleText,
		Stage:           "readability",
	}, nil
}

func (e *stubExtractor) count(rawURL string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[rawURL]
}

// stubSummarizer returns fixed summaries or an error
type stubSummarizer struct {
	err   error
	calls int
}

func (s *stubSummarizer) GenerateSummaries(_ context.Context, _, _ string) (*summarizer.Summaries, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	brief, standard, detailed := "brief", "standard summary", "detailed summary"
	return &summarizer.Summaries{
		Brief:       &brief,
		Standard:    &standard,
		Detailed:    &detailed,
		Provider:    "openai",
		Model:       "gpt-4o-mini",
		GeneratedAt: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	}, nil
}

// stubDeliverer records delivered article ids
type stubDeliverer struct {
	mu        sync.Mutex
	err       error
	delivered []uint
}

func (d *stubDeliverer) DeliverArticle(_ context.Context, a *models.Article) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.delivered = append(d.delivered, a.ID)
	return nil
}

// recordingPublisher collects published event types
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(eventType string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

// countingObserver tallies observer callbacks
type countingObserver struct {
	mu            sync.Mutex
	imported      map[models.ArticleSource]int
	routed        map[models.EmailType]int
	summaryFailed int
	deliveries    map[bool]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{
		imported:   map[models.ArticleSource]int{},
		routed:     map[models.EmailType]int{},
		deliveries: map[bool]int{},
	}
}

func (o *countingObserver) ArticleImported(source models.ArticleSource) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.imported[source]++
}

func (o *countingObserver) EmailRouted(emailType models.EmailType) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.routed[emailType]++
}

func (o *countingObserver) SummarizationFailed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.summaryFailed++
}

func (o *countingObserver) DeliveryAttempted(ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deliveries[ok]++
}

// testEnv bundles a Service over an in-memory database and a temp library
type testEnv struct {
	db          *gorm.DB
	articles    repository.ArticleRepository
	newsletters repository.NewsletterRepository
	store       *storage.Store
	extractor   *stubExtractor
	summarizer  *stubSummarizer
	deliverer   *stubDeliverer
	events      *recordingPublisher
	observer    *countingObserver
	svc         *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Connect("sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })

	store, err := storage.NewStore(t.TempDir(), nil)
	require.NoError(t, err)

	env := &testEnv{
		db:          db,
		articles:    repository.NewArticleRepository(db),
		newsletters: repository.NewNewsletterRepository(db),
		store:       store,
		extractor:   newStubExtractor(),
		summarizer:  &stubSummarizer{},
		deliverer:   &stubDeliverer{},
		events:      &recordingPublisher{},
		observer:    newCountingObserver(),
	}
	env.svc = NewService(Config{
		Articles:    env.articles,
		Newsletters: env.newsletters,
		Store:       store,
		Extractor:   env.extractor,
		Links:       links.NewExtractor(classifier.NewHeuristics()),
		Summarizer:  env.summarizer,
		Deliverer:   env.deliverer,
		Events:      env.events,
		Observer:    env.observer,
	})
	return env
}
