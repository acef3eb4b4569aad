package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/welldanyogia/paperboy/internal/errors"
)

const articleHTML = `<!DOCTYPE html>
<html><head>
<title>Understanding Backpressure in Streaming Systems</title>
<meta name="author" content="Jane Doe">
<meta property="article:published_time" content="2024-03-05T10:00:00Z">
</head>
<body>
<nav><a href="/">Home</a> <a href="/about">About</a></nav>
<article>
<h1>Understanding Backpressure in Streaming Systems</h1>
<p>Backpressure is the mechanism by which a slow consumer signals a fast producer to slow down. Without it, buffers grow without bound and the process eventually runs out of memory, usually at the worst possible moment in production.</p>
<p>Most streaming frameworks implement backpressure either by blocking the producer when a bounded queue is full, or by having the consumer explicitly request a number of items it is prepared to handle. Both approaches keep memory usage predictable.</p>
<p>In Go, a buffered channel gives you the blocking variety for free. When the channel is full, the sending goroutine parks until the receiver catches up, which propagates the slowdown upstream through every stage of the pipeline.</p>
<p>The pull-based variety needs a little more ceremony but makes the flow of demand explicit, which is useful when the consumer lives on the other side of a network connection and cannot simply block the producer's goroutine.</p>
</article>
<footer>Copyright 2024</footer>
</body></html>`

func newTestServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, body := range routes {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(body))
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// emptyStrategy simulates a structured extractor that finds nothing
type emptyStrategy struct{ title string }

func (emptyStrategy) Name() string { return "empty" }

func (s emptyStrategy) Extract(*Page) (*Result, error) {
	return &Result{Title: s.title}, nil
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveExtraction(stage string, ok bool, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if ok {
		o.calls = append(o.calls, stage+":ok")
	} else {
		o.calls = append(o.calls, stage+":empty")
	}
}

// ==================== Extract Tests ====================

func TestExtract_ReadabilityStage(t *testing.T) {
	// Arrange
	srv := newTestServer(t, map[string]string{"/post": articleHTML})
	ex := New(Config{Client: srv.Client()})

	// Act
	res, err := ex.Extract(context.Background(), srv.URL+"/post")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StageReadability, res.Stage)
	assert.Contains(t, res.Title, "Backpressure")
	assert.Contains(t, res.Text, "buffered channel")
	assert.NotContains(t, res.Text, "Copyright 2024")
}

func TestExtract_FallbackTriesSelectorsInOrder(t *testing.T) {
	// Arrange
	page := `<html><head><title>Fallback Title</title></head><body>
		<header>Site header</header>
		<main>Text inside main</main>
		<div class="post-content">
			<script>var tracking = 1;</script>
			First line of the post

			Second line of the post
		</div>
		<div class="content">   </div>
	</body></html>`
	srv := newTestServer(t, map[string]string{"/a": page})
	obs := &recordingObserver{}
	ex := New(Config{
		Client:     srv.Client(),
		Strategies: []Strategy{emptyStrategy{}, Structural{}},
		Observer:   obs,
	})

	// Act
	res, err := ex.Extract(context.Background(), srv.URL+"/a")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StageStructural, res.Stage)
	assert.Equal(t, "Fallback Title", res.Title)
	assert.Equal(t, "First line of the post\nSecond line of the post", res.Text)
	assert.Equal(t, []string{"empty:empty", "structural:ok"}, obs.calls)
}

func TestExtract_FallbackUsesBodyWhenNoSelectorMatches(t *testing.T) {
	// Arrange
	page := `<html><body><nav>menu</nav><div>Only body text</div><footer>foot</footer></body></html>`
	srv := newTestServer(t, map[string]string{"/b": page})
	ex := New(Config{Client: srv.Client(), Strategies: []Strategy{emptyStrategy{title: "From stage one"}, Structural{}}})

	// Act
	res, err := ex.Extract(context.Background(), srv.URL+"/b")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Only body text", res.Text)
	assert.Equal(t, "From stage one", res.Title)
}

func TestExtract_StructuralReadsMetaTags(t *testing.T) {
	// Arrange
	srv := newTestServer(t, map[string]string{"/m": articleHTML})
	ex := New(Config{Client: srv.Client(), Strategies: []Strategy{Structural{}}})

	// Act
	res, err := ex.Extract(context.Background(), srv.URL+"/m")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", res.Author)
	require.NotNil(t, res.PublicationDate)
	assert.Equal(t, time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), *res.PublicationDate)
	assert.NotContains(t, res.Text, "About")
}

func TestExtract_AllStagesEmpty(t *testing.T) {
	// Arrange
	srv := newTestServer(t, map[string]string{"/e": `<html><body>   </body></html>`})
	ex := New(Config{Client: srv.Client(), Strategies: []Strategy{emptyStrategy{}, Structural{}}})

	// Act
	_, err := ex.Extract(context.Background(), srv.URL+"/e")

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrExtractionFailed)
}

func TestExtract_HTTPErrorIsExtractionFailure(t *testing.T) {
	// Arrange
	srv := newTestServer(t, map[string]string{})
	ex := New(Config{Client: srv.Client()})

	// Act
	_, err := ex.Extract(context.Background(), srv.URL+"/missing")

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrExtractionFailed)
	assert.Contains(t, err.Error(), "404")
}

func TestExtract_RejectsNonHTTPURL(t *testing.T) {
	ex := New(Config{Client: http.DefaultClient})

	_, err := ex.Extract(context.Background(), "ftp://example.com/file")
	assert.ErrorIs(t, err, apperrors.ErrExtractionFailed)
}

func TestGuardedClient_BlocksLoopback(t *testing.T) {
	// Arrange
	srv := newTestServer(t, map[string]string{"/x": articleHTML})
	ex := New(Config{Client: NewGuardedClient(2 * time.Second)})

	// Act
	_, err := ex.Extract(context.Background(), srv.URL+"/x")

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrExtractionFailed)
}

// ==================== Helper Tests ====================

func TestNormalizeAuthors(t *testing.T) {
	assert.Equal(t, "Jane Doe, John Roe", normalizeAuthors("By Jane Doe and John Roe"))
	assert.Equal(t, "A, B, C", normalizeAuthors("A, B & C"))
	assert.Equal(t, "", normalizeAuthors("  "))
}

func TestStripBlankLines(t *testing.T) {
	assert.Equal(t, "a\nb", stripBlankLines("  a  \n\n\t\n b\n"))
}

// ==================== BasicSummary Tests ====================

func TestBasicSummary_ShortTextUnchanged(t *testing.T) {
	assert.Equal(t, "Just a few words.", BasicSummary("  Just a few words. ", 200))
}

func TestBasicSummary_CutsAtLateSentenceEnd(t *testing.T) {
	// Arrange
	words := append(strings.Fields(strings.Repeat("word ", 195)), "final.", "tail", "tail", "tail", "tail", "tail")

	// Act
	got := BasicSummary(strings.Join(words, " "), 200)

	// Assert
	assert.True(t, strings.HasSuffix(got, "final."))
	assert.False(t, strings.HasSuffix(got, "..."))
}

func TestBasicSummary_AppendsEllipsisWhenStopIsEarly(t *testing.T) {
	// Arrange
	text := "Intro. " + strings.Repeat("word ", 250)

	// Act
	got := BasicSummary(text, 200)

	// Assert
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Len(t, strings.Fields(strings.TrimSuffix(got, "...")), 200)
}
