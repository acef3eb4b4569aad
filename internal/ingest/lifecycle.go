package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/welldanyogia/paperboy/internal/errors"
	"github.com/welldanyogia/paperboy/internal/models"
	"github.com/welldanyogia/paperboy/internal/repository"
	"github.com/welldanyogia/paperboy/internal/storage"
)

const searchLimit = 100

// ArticleUpdate holds editable article fields. Nil fields are left unchanged.
type ArticleUpdate struct {
	Title   *string  `json:"title"`
	Author  *string  `json:"author"`
	Summary *string  `json:"summary"`
	Tags    []string `json:"tags"`
}

// Statistics combines index and file store numbers
type Statistics struct {
	Database *repository.ArticleStats `json:"database"`
	Files    *storage.Stats           `json:"files"`
	Sync     SyncStatus               `json:"sync_status"`
}

// SyncStatus compares index and file counts
type SyncStatus struct {
	DatabaseArticles int64 `json:"database_articles"`
	FileArticles     int   `json:"file_articles"`
	InSync           bool  `json:"in_sync"`
	Difference       int64 `json:"difference"`
}

// SyncResult reports a reconciliation run
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
	// Removed counts stale duplicate files left behind by an interrupted move
	Removed int `json:"removed"`
}

// RegenerateResult reports a summary regeneration run
type RegenerateResult struct {
	Regenerated []uint          `json:"regenerated"`
	Failed      map[uint]string `json:"failed"`
}

// CleanupResult reports a cleanup run
type CleanupResult struct {
	RemovedDirs     int         `json:"removed_directories"`
	RelinkedRecords int         `json:"relinked_records"`
	OrphanedRecords int         `json:"orphaned_records"`
	Statistics      *Statistics `json:"statistics"`
}

// transition moves an article's file into stage and updates the row
func (s *Service) transition(ctx context.Context, id uint, stage storage.Stage, mutate func(*models.Article)) (*models.Article, error) {
	article, err := s.getArticle(ctx, id)
	if err != nil {
		return nil, err
	}

	if mutate != nil {
		mutate(article)
	}
	article.Status = statusForStage(stage)

	if article.FilePath != "" && s.store.Exists(article.FilePath) {
		newPath, err := s.store.Move(article.FilePath, stage)
		if err != nil {
			return nil, fmt.Errorf("move article file: %w", err)
		}
		article.FilePath = newPath
	}

	if err := s.articles.Save(ctx, article); err != nil {
		return nil, err
	}
	s.logger.Info("article moved", slog.Any("id", id), slog.String("stage", string(stage)))
	return article, nil
}

// MarkProcessed flags an article processed and moves it to the processed stage
func (s *Service) MarkProcessed(ctx context.Context, id uint) (*models.Article, error) {
	return s.transition(ctx, id, storage.StageProcessed, func(a *models.Article) {
		a.Processed = true
	})
}

// MarkSent flags an article delivered and moves it to the sent stage
func (s *Service) MarkSent(ctx context.Context, id uint) (*models.Article, error) {
	return s.transition(ctx, id, storage.StageSent, func(a *models.Article) {
		a.SentToDevice = true
	})
}

// ArchiveArticle moves an article to the archive stage
func (s *Service) ArchiveArticle(ctx context.Context, id uint) (*models.Article, error) {
	return s.transition(ctx, id, storage.StageArchive, nil)
}

// SendToDevice delivers an article and marks it sent. On transport failure
// the sent flag stays false.
func (s *Service) SendToDevice(ctx context.Context, id uint) (*models.Article, error) {
	if s.deliverer == nil {
		return nil, fmt.Errorf("%w: delivery is not configured", apperrors.ErrTransport)
	}
	article, err := s.getArticle(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.deliverer.DeliverArticle(ctx, article)
	if s.observer != nil {
		s.observer.DeliveryAttempted(err == nil)
	}
	if err != nil {
		s.logger.Error("delivery failed", slog.Any("id", id), slog.String("stage", "deliver"), slog.Any("error", err))
		return nil, err
	}
	return s.MarkSent(ctx, id)
}

// Update edits an article in the index and in its file
func (s *Service) Update(ctx context.Context, id uint, upd ArticleUpdate) (*models.Article, error) {
	article, err := s.getArticle(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		article.Title = *upd.Title
	}
	if upd.Author != nil {
		article.Author = *upd.Author
	}
	if upd.Summary != nil {
		article.Summary = *upd.Summary
	}
	if upd.Tags != nil {
		article.SetTags(upd.Tags)
	}

	if article.FilePath != "" && s.store.Exists(article.FilePath) {
		newPath, err := s.store.Update(article.FilePath, func(m *storage.Metadata) {
			m.Title = article.Title
			m.Author = article.Author
			m.Summary = article.Summary
			m.Tags = article.TagList()
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("update article file: %w", err)
		}
		article.FilePath = newPath
	}

	if err := s.articles.Save(ctx, article); err != nil {
		return nil, err
	}
	return article, nil
}

// Delete removes an article row and its file
func (s *Service) Delete(ctx context.Context, id uint) error {
	article, err := s.getArticle(ctx, id)
	if err != nil {
		return err
	}
	if article.FilePath != "" {
		if err := s.store.Delete(article.FilePath); err != nil {
			return fmt.Errorf("delete article file: %w", err)
		}
	}
	return s.articles.Delete(ctx, id)
}

// Search matches the index and adds file-only matches the index lacks
func (s *Service) Search(ctx context.Context, query string, inContent bool) ([]models.Article, error) {
	results, err := s.articles.Search(ctx, query, inContent, searchLimit)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(results))
	for _, a := range results {
		seen[a.URL] = struct{}{}
	}

	entries, err := s.store.Search(query, inContent)
	if err != nil {
		s.logger.Warn("file search failed", slog.Any("error", err))
		return results, nil
	}
	for _, e := range entries {
		if _, ok := seen[e.Metadata.URL]; ok {
			continue
		}
		seen[e.Metadata.URL] = struct{}{}
		var a models.Article
		applyMetadata(&a, e.Metadata, "", e.Path, e.Stage)
		a.CreatedAt = e.Metadata.CreatedAt
		results = append(results, a)
	}
	return results, nil
}

// Statistics reports index counts, file counts and whether they agree
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	dbStats, err := s.articles.Stats(ctx)
	if err != nil {
		return nil, err
	}
	fileStats, err := s.store.Statistics()
	if err != nil {
		return nil, err
	}

	diff := dbStats.Total - int64(fileStats.Total)
	if diff < 0 {
		diff = -diff
	}
	return &Statistics{
		Database: dbStats,
		Files:    fileStats,
		Sync: SyncStatus{
			DatabaseArticles: dbStats.Total,
			FileArticles:     fileStats.Total,
			InSync:           diff == 0,
			Difference:       diff,
		},
	}, nil
}

// RegenerateSummaries runs the summarizer again for each article with content
func (s *Service) RegenerateSummaries(ctx context.Context, ids []uint) (*RegenerateResult, error) {
	if s.summarizer == nil {
		return nil, fmt.Errorf("%w: summarizer is not configured", apperrors.ErrSummarizationFailed)
	}

	result := &RegenerateResult{Regenerated: []uint{}, Failed: map[uint]string{}}
	for _, id := range ids {
		if err := s.regenerate(ctx, id); err != nil {
			s.logger.Warn("summary regeneration failed", slog.Any("id", id), slog.Any("error", err))
			result.Failed[id] = err.Error()
			continue
		}
		result.Regenerated = append(result.Regenerated, id)
	}
	return result, nil
}

func (s *Service) regenerate(ctx context.Context, id uint) error {
	article, err := s.getArticle(ctx, id)
	if err != nil {
		return err
	}
	if article.Content == "" {
		return fmt.Errorf("%w: article has no content", apperrors.ErrInvalidInput)
	}

	sums, err := s.summarizer.GenerateSummaries(ctx, article.Content, article.Title)
	if err != nil {
		if s.observer != nil {
			s.observer.SummarizationFailed()
		}
		return err
	}
	article.AISummaryBrief = sums.Brief
	article.AISummaryStandard = sums.Standard
	article.AISummaryDetailed = sums.Detailed
	article.AISummaryProvider = sums.Provider
	article.AISummaryModel = sums.Model
	generated := sums.GeneratedAt
	article.AISummaryGeneratedAt = &generated

	if article.FilePath != "" && s.store.Exists(article.FilePath) {
		newPath, err := s.store.Update(article.FilePath, func(m *storage.Metadata) {
			m.AISummaryBrief = article.AISummaryBrief
			m.AISummaryStandard = article.AISummaryStandard
			m.AISummaryDetailed = article.AISummaryDetailed
			m.AISummaryProvider = article.AISummaryProvider
			m.AISummaryModel = article.AISummaryModel
			m.AISummaryGeneratedAt = article.AISummaryGeneratedAt
		}, nil)
		if err != nil {
			return fmt.Errorf("update article file: %w", err)
		}
		article.FilePath = newPath
	}
	return s.articles.Save(ctx, article)
}

// SyncWithFiles reconciles the index with the file store. Files create
// missing rows and overwrite rows older than the file. When an interrupted
// move left two files for one URL, the most recently updated one wins and
// the other is removed.
func (s *Service) SyncWithFiles(ctx context.Context) (*SyncResult, error) {
	entries, err := s.store.All()
	if err != nil {
		return nil, err
	}

	result := &SyncResult{}
	newest := make(map[string]storage.Entry)
	var order []string
	for _, e := range entries {
		u := e.Metadata.URL
		if u == "" {
			s.logger.Warn("article file without url", slog.String("path", e.Path))
			result.Errors++
			continue
		}
		current, ok := newest[u]
		if !ok {
			newest[u] = e
			order = append(order, u)
			continue
		}
		stale := e
		if e.Metadata.UpdatedAt.After(current.Metadata.UpdatedAt) {
			newest[u], stale = e, current
		}
		if err := s.store.Delete(stale.Path); err != nil {
			s.logger.Warn("failed to remove stale article file", slog.String("path", stale.Path), slog.Any("error", err))
		} else {
			result.Removed++
		}
	}

	for _, u := range order {
		if err := s.syncEntry(ctx, newest[u], result); err != nil {
			s.logger.Error("failed to sync article file", slog.String("path", newest[u].Path), slog.Any("error", err))
			result.Errors++
		}
	}

	s.logger.Info("file sync completed",
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
		slog.Int("errors", result.Errors),
		slog.Int("removed", result.Removed))
	return result, nil
}

func (s *Service) syncEntry(ctx context.Context, e storage.Entry, result *SyncResult) error {
	meta, body, err := s.store.Load(e.Path)
	if err != nil {
		return err
	}

	existing, err := s.articles.GetByURL(ctx, meta.URL)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		article := &models.Article{CreatedAt: meta.CreatedAt}
		applyMetadata(article, meta, body, e.Path, e.Stage)
		s.dropUnknownNewsletter(ctx, article)
		if err := s.articles.Create(ctx, article); err != nil {
			return err
		}
		result.Created++
	case err != nil:
		return err
	case meta.UpdatedAt.After(existing.UpdatedAt):
		applyMetadata(existing, meta, body, e.Path, e.Stage)
		s.dropUnknownNewsletter(ctx, existing)
		if err := s.articles.Save(ctx, existing); err != nil {
			return err
		}
		result.Updated++
	}
	return nil
}

// dropUnknownNewsletter clears a newsletter reference the index does not have
func (s *Service) dropUnknownNewsletter(ctx context.Context, a *models.Article) {
	if a.NewsletterID == nil {
		return
	}
	if _, err := s.newsletters.GetByID(ctx, *a.NewsletterID); err != nil {
		a.NewsletterID = nil
	}
}

// RegenerateIndexes rewrites the library README files and metadata export
func (s *Service) RegenerateIndexes() error {
	if err := s.store.WriteIndexes(); err != nil {
		return err
	}
	_, err := s.store.ExportMetadata()
	return err
}

// Cleanup removes empty directories, refreshes indexes and counts rows whose
// file is missing
func (s *Service) Cleanup(ctx context.Context) (*CleanupResult, error) {
	removed, err := s.store.CleanupEmptyDirs()
	if err != nil {
		return nil, err
	}
	if err := s.RegenerateIndexes(); err != nil {
		return nil, err
	}

	withFiles, err := s.articles.ListWithFiles(ctx)
	if err != nil {
		return nil, err
	}
	orphans, relinked := 0, 0
	for i := range withFiles {
		a := &withFiles[i]
		if s.store.Exists(a.FilePath) {
			continue
		}
		if s.relink(ctx, a) {
			relinked++
			continue
		}
		s.logger.Warn("article row without file", slog.Any("id", a.ID), slog.String("path", a.FilePath))
		orphans++
	}

	stats, err := s.Statistics(ctx)
	if err != nil {
		return nil, err
	}
	return &CleanupResult{RemovedDirs: removed, RelinkedRecords: relinked, OrphanedRecords: orphans, Statistics: stats}, nil
}

// relink points a row whose file moved outside the service at the newest
// file for the same URL
func (s *Service) relink(ctx context.Context, a *models.Article) bool {
	e, err := s.store.FindByURL(a.URL)
	if err != nil {
		return false
	}
	old := a.FilePath
	a.FilePath = e.Path
	a.Status = statusForStage(e.Stage)
	if err := s.articles.Save(ctx, a); err != nil {
		s.logger.Error("failed to relink article file", slog.Any("id", a.ID), slog.Any("error", err))
		return false
	}
	s.logger.Info("article file relinked", slog.Any("id", a.ID), slog.String("from", old), slog.String("to", e.Path))
	return true
}
