//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/welldanyogia/paperboy/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PostgresIntegrationTestSuite runs the repositories against a real PostgreSQL
type PostgresIntegrationTestSuite struct {
	suite.Suite
	container testcontainers.Container
	db        *gorm.DB
	articles  ArticleRepository
	archive   ArchiveRepository
	digests   DigestRepository
	inbound   InboundRepository
}

// SetupSuite starts a PostgreSQL container and migrates the schema
func (s *PostgresIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "paperboy_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	s.Require().NoError(err)
	s.container = container

	host, err := container.Host(ctx)
	s.Require().NoError(err)
	port, err := container.MappedPort(ctx, "5432")
	s.Require().NoError(err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=paperboy_test sslmode=disable",
		host, port.Port())
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)
	s.db = db

	s.Require().NoError(db.AutoMigrate(
		&models.Newsletter{},
		&models.Article{},
		&models.EmailArchive{},
		&models.WeeklyDigest{},
		&models.InboundMessage{},
		&models.OutboundEmail{},
	))

	s.articles = NewArticleRepository(db)
	s.archive = NewArchiveRepository(db)
	s.digests = NewDigestRepository(db)
	s.inbound = NewInboundRepository(db)
}

// TearDownSuite stops the container
func (s *PostgresIntegrationTestSuite) TearDownSuite() {
	if s.db != nil {
		closeTestDB(s.db)
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

// SetupTest truncates every table
func (s *PostgresIntegrationTestSuite) SetupTest() {
	s.db.Exec("TRUNCATE articles, newsletters, email_archives, weekly_digests, inbound_messages, outbound_emails RESTART IDENTITY CASCADE")
}

func TestPostgresIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresIntegrationTestSuite))
}

// ==================== Article Tests ====================

func (s *PostgresIntegrationTestSuite) TestArticle_DuplicateURLMapsToSentinel() {
	ctx := context.Background()

	first := &models.Article{URL: "https://example.com/a", Title: "A", Source: models.SourceURL}
	s.Require().NoError(s.articles.Create(ctx, first))

	dup := &models.Article{URL: "https://example.com/a", Title: "Again", Source: models.SourceRSS}
	err := s.articles.Create(ctx, dup)

	s.ErrorIs(err, ErrDuplicateEntry)
}

func (s *PostgresIntegrationTestSuite) TestArticle_SearchIsCaseInsensitive() {
	ctx := context.Background()

	s.Require().NoError(s.articles.Create(ctx, &models.Article{
		URL: "https://example.com/go", Title: "Concurrency in GO", Source: models.SourceURL,
	}))
	s.Require().NoError(s.articles.Create(ctx, &models.Article{
		URL: "https://example.com/rust", Title: "Ownership", Content: "go is mentioned here", Source: models.SourceURL,
	}))

	byTitle, err := s.articles.Search(ctx, "go", false, 10)
	s.Require().NoError(err)
	s.Len(byTitle, 1)

	withContent, err := s.articles.Search(ctx, "go", true, 10)
	s.Require().NoError(err)
	s.Len(withContent, 2)
}

func (s *PostgresIntegrationTestSuite) TestArticle_StatsGroupsByStatus() {
	ctx := context.Background()

	s.Require().NoError(s.articles.Create(ctx, &models.Article{URL: "https://example.com/1", Source: models.SourceURL}))
	s.Require().NoError(s.articles.Create(ctx, &models.Article{
		URL: "https://example.com/2", Source: models.SourceRSS, Status: models.StatusProcessed, Processed: true,
	}))

	stats, err := s.articles.Stats(ctx)
	s.Require().NoError(err)

	s.Equal(int64(2), stats.Total)
	s.Equal(int64(1), stats.Processed)
	s.Equal(int64(1), stats.ByStatus["inbox"])
	s.Equal(int64(1), stats.BySource["rss"])
}

// ==================== Archive Tests ====================

func (s *PostgresIntegrationTestSuite) TestArchive_MergeTagsIsAtomic() {
	ctx := context.Background()

	email := &models.EmailArchive{MessageID: "<1@example.com>", Sender: "a@example.com", ReceivedAt: time.Now()}
	s.Require().NoError(s.archive.Create(ctx, email))

	tags, err := s.archive.MergeTags(ctx, email.ID, func(current string) string {
		if current == "" {
			return "work"
		}
		return current + ",work"
	})
	s.Require().NoError(err)
	s.Equal("work", tags)

	stored, err := s.archive.GetByID(ctx, email.ID)
	s.Require().NoError(err)
	s.Equal("work", stored.Tags)
}

func (s *PostgresIntegrationTestSuite) TestArchive_DuplicateMessageID() {
	ctx := context.Background()

	s.Require().NoError(s.archive.Create(ctx, &models.EmailArchive{MessageID: "<dup@example.com>", ReceivedAt: time.Now()}))
	err := s.archive.Create(ctx, &models.EmailArchive{MessageID: "<dup@example.com>", ReceivedAt: time.Now()})

	s.ErrorIs(err, ErrDuplicateEntry)
}

// ==================== Digest Tests ====================

func (s *PostgresIntegrationTestSuite) TestDigest_ExistsOverlapping() {
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	s.Require().NoError(s.digests.Create(ctx, &models.WeeklyDigest{
		WeekStart: now.Add(-7 * 24 * time.Hour),
		WeekEnd:   now,
	}))

	overlapping, err := s.digests.ExistsOverlapping(ctx, now.Add(-3*24*time.Hour))
	s.Require().NoError(err)
	s.True(overlapping)

	later, err := s.digests.ExistsOverlapping(ctx, now.Add(24*time.Hour))
	s.Require().NoError(err)
	s.False(later)
}

// ==================== Inbound Spool Tests ====================

func (s *PostgresIntegrationTestSuite) TestInbound_PollAndMarkSeen() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s.Require().NoError(s.inbound.Create(ctx, &models.InboundMessage{
			Raw:          []byte(fmt.Sprintf("Subject: %d\r\n\r\nbody", i)),
			EnvelopeFrom: "a@example.com",
		}))
	}

	batch, err := s.inbound.PollUnseen(ctx, 2)
	s.Require().NoError(err)
	s.Len(batch, 2)

	s.Require().NoError(s.inbound.MarkSeen(ctx, batch[0].ID))

	backlog, err := s.inbound.CountUnseen(ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), backlog)
}
