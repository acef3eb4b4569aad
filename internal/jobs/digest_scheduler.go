package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/welldanyogia/paperboy/internal/models"
)

// DigestGenerator builds the digest for the window ending at now. It
// returns nil when nothing was generated.
type DigestGenerator interface {
	Generate(ctx context.Context, now time.Time) (*models.WeeklyDigest, error)
}

// DigestSchedulerConfig holds configuration for the digest scheduler
type DigestSchedulerConfig struct {
	// Interval is how often generation is attempted
	Interval time.Duration
}

// DigestScheduler periodically attempts to generate the weekly digest.
// The generator itself skips windows that already have one.
type DigestScheduler struct {
	*loop
	generator DigestGenerator
	logger    *slog.Logger
	now       func() time.Time
}

// NewDigestScheduler creates a new digest scheduler
func NewDigestScheduler(generator DigestGenerator, config DigestSchedulerConfig, logger *slog.Logger) *DigestScheduler {
	if config.Interval <= 0 {
		config.Interval = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &DigestScheduler{
		generator: generator,
		logger:    logger.With("component", "digest_scheduler"),
		now:       time.Now,
	}
	s.loop = newLoop("digest_scheduler", config.Interval, s.RunOnce, logger)
	return s
}

// RunOnce attempts one generation
func (s *DigestScheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	digest, err := s.generator.Generate(ctx, s.now())
	if err != nil {
		s.logger.Error("digest generation failed", slog.Any("error", err))
		return
	}
	if digest == nil {
		s.logger.Debug("no digest generated")
		return
	}
	s.logger.Info("weekly digest generated",
		slog.Uint64("digest_id", uint64(digest.ID)),
		slog.Int("article_count", digest.ArticleCount))
}
