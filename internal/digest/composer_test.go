package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/welldanyogia/paperboy/internal/database"
	apperrors "github.com/welldanyogia/paperboy/internal/errors"
	"github.com/welldanyogia/paperboy/internal/models"
	"github.com/welldanyogia/paperboy/internal/repository"
	"gorm.io/gorm"
)

type fakeOverviewer struct {
	out    string
	err    error
	prompt string
}

func (f *fakeOverviewer) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.out, f.err
}

type fakeSender struct {
	err  error
	sent []uint
}

func (f *fakeSender) DeliverDigest(_ context.Context, dg *models.WeeklyDigest) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, dg.ID)
	return nil
}

type ComposerTestSuite struct {
	suite.Suite
	db         *gorm.DB
	articles   repository.ArticleRepository
	digests    repository.DigestRepository
	overviewer *fakeOverviewer
	sender     *fakeSender
	composer   *Composer
	ctx        context.Context
	now        time.Time
}

func (s *ComposerTestSuite) SetupTest() {
	db, err := database.Connect("sqlite://:memory:")
	s.Require().NoError(err)
	s.Require().NoError(database.Migrate(db))

	s.db = db
	s.articles = repository.NewArticleRepository(db)
	s.digests = repository.NewDigestRepository(db)
	s.overviewer = &fakeOverviewer{out: "A week about Go."}
	s.sender = &fakeSender{}
	s.composer = New(Config{Articles: s.articles, Digests: s.digests, Overviewer: s.overviewer, Sender: s.sender})
	s.ctx = context.Background()
	s.now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
}

func (s *ComposerTestSuite) TearDownTest() {
	database.Close(s.db)
}

func TestComposerTestSuite(t *testing.T) {
	suite.Run(t, new(ComposerTestSuite))
}

func (s *ComposerTestSuite) addArticle(title string, source models.ArticleSource, age time.Duration, processed bool) *models.Article {
	a := &models.Article{
		URL:       "https://example.com/post/" + strings.ReplaceAll(strings.ToLower(title), " ", "-"),
		Title:     title,
		Source:    source,
		Processed: processed,
		Summary:   "A basic summary of " + title + " that is long enough to be useful.",
		CreatedAt: s.now.Add(-age),
	}
	s.Require().NoError(s.articles.Create(s.ctx, a))
	return a
}

// ==== Generate Tests ====

func (s *ComposerTestSuite) TestGenerate_ComposesDigest() {
	// Arrange
	s.addArticle("Go Generics", models.SourceURL, 24*time.Hour, true)
	s.addArticle("Release Notes", models.SourceFiveFiltersEmail, 48*time.Hour, true)
	s.addArticle("Unprocessed", models.SourceURL, time.Hour, false)
	s.addArticle("Too Old", models.SourceURL, 8*24*time.Hour, true)

	// Act
	dg, err := s.composer.Generate(s.ctx, s.now)

	// Assert
	s.Require().NoError(err)
	s.Require().NotNil(dg)
	s.Equal(2, dg.ArticleCount)
	s.True(dg.WeekStart.Equal(s.now.Add(-Window)))
	s.True(dg.WeekEnd.Equal(s.now))

	s.Contains(dg.Summary, "# Weekly Article Digest")
	s.Contains(dg.Summary, "**Period:** March 08 - March 09, 2024")
	s.Contains(dg.Summary, "**Total Articles:** 2")
	s.Contains(dg.Summary, "## Week Overview\nA week about Go.")
	s.Contains(dg.Summary, "## Url (1 articles)")
	s.Contains(dg.Summary, "## Fivefilters Email (1 articles)")
	s.Contains(dg.Summary, "[Read Article](https://example.com/post/go-generics)")
	s.NotContains(dg.Summary, "Unprocessed")
	s.NotContains(dg.Summary, "Too Old")
	s.Contains(s.overviewer.prompt, "- Go Generics: A basic summary")
}

func (s *ComposerTestSuite) TestGenerate_NoOpWhenDigestExists() {
	s.addArticle("Go Generics", models.SourceURL, time.Hour, true)
	first, err := s.composer.Generate(s.ctx, s.now)
	s.Require().NoError(err)
	s.Require().NotNil(first)

	second, err := s.composer.Generate(s.ctx, s.now.Add(24*time.Hour))

	s.NoError(err)
	s.Nil(second)
	list, err := s.composer.List(s.ctx, 10)
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *ComposerTestSuite) TestGenerate_NoOpWithoutArticles() {
	dg, err := s.composer.Generate(s.ctx, s.now)

	s.NoError(err)
	s.Nil(dg)
}

func (s *ComposerTestSuite) TestGenerate_OverviewFailureIsOmitted() {
	s.overviewer.err = errors.New("provider down")
	s.addArticle("Go Generics", models.SourceURL, time.Hour, true)

	dg, err := s.composer.Generate(s.ctx, s.now)

	s.Require().NoError(err)
	s.NotContains(dg.Summary, "Week Overview")
}

func (s *ComposerTestSuite) TestGenerate_LimitsArticlesPerSource() {
	for i := 0; i < 12; i++ {
		s.addArticle(fmt.Sprintf("Article %02d", i), models.SourceRSS, time.Duration(i+1)*time.Minute, true)
	}

	dg, err := s.composer.Generate(s.ctx, s.now)

	s.Require().NoError(err)
	s.Contains(dg.Summary, "## Rss (12 articles)")
	s.Equal(10, strings.Count(dg.Summary, "[Read Article]"))
}

// ==== SendLatest Tests ====

func (s *ComposerTestSuite) TestSendLatest_MarksSent() {
	s.addArticle("Go Generics", models.SourceURL, time.Hour, true)
	dg, err := s.composer.Generate(s.ctx, s.now)
	s.Require().NoError(err)

	sent, err := s.composer.SendLatest(s.ctx)

	s.Require().NoError(err)
	s.True(sent.Sent)
	s.Equal([]uint{dg.ID}, s.sender.sent)
	latest, err := s.digests.Latest(s.ctx)
	s.Require().NoError(err)
	s.True(latest.Sent)
	s.NotNil(latest.SentAt)
}

func (s *ComposerTestSuite) TestSendLatest_DeliveryFailureLeavesUnsent() {
	s.addArticle("Go Generics", models.SourceURL, time.Hour, true)
	_, err := s.composer.Generate(s.ctx, s.now)
	s.Require().NoError(err)
	s.sender.err = apperrors.ErrTransport

	_, err = s.composer.SendLatest(s.ctx)

	s.ErrorIs(err, apperrors.ErrTransport)
	latest, err := s.digests.Latest(s.ctx)
	s.Require().NoError(err)
	s.False(latest.Sent)
}

func (s *ComposerTestSuite) TestSendLatest_NothingGenerated() {
	_, err := s.composer.SendLatest(s.ctx)

	s.ErrorIs(err, apperrors.ErrNotFound)
}

// ==== Helper Tests ====

func TestTruncate(t *testing.T) {
	exact := strings.Repeat("a", 300)
	assert.Equal(t, exact, Truncate(exact, 300))

	long := strings.Repeat("b", 301)
	got := Truncate(long, 300)
	assert.Equal(t, strings.Repeat("b", 300)+"...", got)

	assert.Equal(t, "héllo...", Truncate("héllo wörld", 5))
}

func TestWriteArticle_UsesBestSummary(t *testing.T) {
	// Arrange
	brief := "An AI written brief"
	a := models.Article{Title: "Generics", URL: "https://blog.example.com/post/generics", Summary: "Plain summary", AISummaryBrief: &brief}
	var b strings.Builder

	// Act
	writeArticle(&b, a)

	// Assert
	require.Contains(t, b.String(), "An AI written brief\n\n")
	assert.NotContains(t, b.String(), "Plain summary")
}
