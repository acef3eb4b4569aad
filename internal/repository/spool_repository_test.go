package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/paperboy/internal/models"
)

// ==================== Inbound Spool Tests ====================

func TestInboundRepository_PollAndMarkSeen(t *testing.T) {
	db := newTestDB(t)
	defer closeTestDB(db)
	repo := NewInboundRepository(db)
	ctx := context.Background()

	// Arrange
	for _, raw := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Create(ctx, &models.InboundMessage{Raw: []byte(raw), EnvelopeFrom: "a@b"}))
	}

	// Act
	batch, err := repo.PollUnseen(ctx, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.NoError(t, repo.MarkSeen(ctx, batch[0].ID))

	// Assert
	assert.Equal(t, "first", string(batch[0].Raw))
	unseen, err := repo.CountUnseen(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unseen)

	next, err := repo.PollUnseen(ctx, 10)
	require.NoError(t, err)
	require.Len(t, next, 2)
	assert.Equal(t, "second", string(next[0].Raw))
}

func TestInboundRepository_RejectsEmptyRaw(t *testing.T) {
	db := newTestDB(t)
	defer closeTestDB(db)

	err := NewInboundRepository(db).Create(context.Background(), &models.InboundMessage{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestInboundRepository_MarkSeenNotFound(t *testing.T) {
	db := newTestDB(t)
	defer closeTestDB(db)

	err := NewInboundRepository(db).MarkSeen(context.Background(), 77)
	assert.ErrorIs(t, err, ErrNotFound)
}

// ==================== Outbound Tests ====================

func TestOutboundRepository_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	defer closeTestDB(db)
	repo := NewOutboundRepository(db)
	ctx := context.Background()

	// Arrange
	ok := &models.OutboundEmail{ToEmail: "me@kindle.com", Subject: "A", EmailType: models.OutboundTypeArticle}
	bad := &models.OutboundEmail{ToEmail: "me@kindle.com", Subject: "B", EmailType: models.OutboundTypeArticle}
	require.NoError(t, repo.Create(ctx, ok))
	require.NoError(t, repo.Create(ctx, bad))

	// Act
	require.NoError(t, repo.MarkSent(ctx, ok.ID, time.Now()))
	require.NoError(t, repo.MarkFailed(ctx, bad.ID, "connection refused"))

	// Assert
	items, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	byID := map[uint]models.OutboundEmail{}
	for _, it := range items {
		byID[it.ID] = it
	}
	assert.True(t, byID[ok.ID].Sent)
	assert.NotNil(t, byID[ok.ID].SentAt)
	assert.False(t, byID[bad.ID].Sent)
	assert.Equal(t, "connection refused", byID[bad.ID].ErrorMessage)
}

// ==================== Newsletter Tests ====================

func TestNewsletterRepository_ArticlesAndProcessed(t *testing.T) {
	db := newTestDB(t)
	defer closeTestDB(db)
	newsletters := NewNewsletterRepository(db)
	articles := NewArticleRepository(db)
	ctx := context.Background()

	// Arrange
	n := &models.Newsletter{Name: "Weekly", Email: "weekly@news.com", RawContent: "<html></html>"}
	require.NoError(t, newsletters.Create(ctx, n))
	require.NoError(t, articles.Create(ctx, &models.Article{URL: "https://e.com/1", Title: "t", NewsletterID: &n.ID}))

	// Act
	require.NoError(t, newsletters.MarkProcessed(ctx, n.ID))
	got, err := newsletters.GetWithArticles(ctx, n.ID)

	// Assert
	require.NoError(t, err)
	assert.True(t, got.Processed)
	require.Len(t, got.Articles, 1)
	assert.Equal(t, "https://e.com/1", got.Articles[0].URL)

	list, total, err := newsletters.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Empty(t, list[0].RawContent)
}

func TestNewsletterRepository_NotFound(t *testing.T) {
	db := newTestDB(t)
	defer closeTestDB(db)

	_, err := NewNewsletterRepository(db).GetByID(context.Background(), 3)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, NewNewsletterRepository(db).MarkProcessed(context.Background(), 3), ErrNotFound)
}

// ==================== Digest Tests ====================

func TestDigestRepository_WindowAndSent(t *testing.T) {
	db := newTestDB(t)
	defer closeTestDB(db)
	repo := NewDigestRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	// Arrange
	exists, err := repo.ExistsOverlapping(ctx, now.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.False(t, exists)

	d := &models.WeeklyDigest{WeekStart: now.AddDate(0, 0, -7), WeekEnd: now, Summary: "# Digest", ArticleCount: 3}
	require.NoError(t, repo.Create(ctx, d))

	// Act
	exists, err = repo.ExistsOverlapping(ctx, now.AddDate(0, 0, -8))
	require.NoError(t, err)
	later, err := repo.ExistsOverlapping(ctx, now)
	require.NoError(t, err)
	require.NoError(t, repo.MarkSent(ctx, d.ID, now))

	// Assert
	assert.True(t, exists)
	assert.False(t, later)
	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.True(t, latest.Sent)
	assert.Equal(t, 3, latest.ArticleCount)
}
