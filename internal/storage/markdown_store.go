package storage

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Stage is a lifecycle directory of the store
type Stage string

const (
	StageInbox       Stage = "inbox"
	StageProcessed   Stage = "processed"
	StageArchive     Stage = "archive"
	StageSent        Stage = "sent"
	StageNewsletters Stage = "newsletters"
	StageRSS         Stage = "rss"
	StageDrafts      Stage = "drafts"
)

// Stages lists every article stage in display order
var Stages = []Stage{
	StageInbox, StageProcessed, StageArchive, StageSent,
	StageNewsletters, StageRSS, StageDrafts,
}

const (
	metadataDir    = "metadata"
	templatesDir   = "templates"
	indexFile      = "README.md"
	exportFile     = "articles_export.json"
	maxSlugLength  = 100
	wordsPerMinute = 200
)

var stageDescriptions = map[Stage]string{
	StageInbox:       "New articles waiting to be processed",
	StageProcessed:   "Articles that have been processed and are ready to read",
	StageArchive:     "Archived articles",
	StageSent:        "Articles delivered to the reading device",
	StageNewsletters: "Articles extracted from newsletters",
	StageRSS:         "Articles imported from RSS feeds",
	StageDrafts:      "Draft articles",
}

// partitioned stages keep files under YYYY/MM
func (st Stage) partitioned() bool {
	switch st {
	case StageProcessed, StageArchive, StageSent, StageNewsletters, StageRSS:
		return true
	}
	return false
}

// Valid reports whether st is a known stage
func (st Stage) Valid() bool {
	for _, s := range Stages {
		if s == st {
			return true
		}
	}
	return false
}

// Entry is a file in the store with its metadata
type Entry struct {
	Path     string    `json:"file_path"`
	Stage    Stage     `json:"status"`
	Metadata *Metadata `json:"metadata"`
}

// Stats summarises file counts per stage
type Stats struct {
	Total   int           `json:"total"`
	ByStage map[Stage]int `json:"by_stage"`
}

// Store is the markdown file library rooted at a directory
type Store struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates the stage directories below root
func NewStore(root string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid storage root: %w", err)
	}

	dirs := append([]string{metadataDir, templatesDir}, stageNames()...)
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(absRoot, d), 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	return &Store{
		root:   absRoot,
		logger: logger.With("component", "markdown_store"),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func stageNames() []string {
	names := make([]string, len(Stages))
	for i, st := range Stages {
		names[i] = string(st)
	}
	return names
}

// Root returns the absolute store root
func (s *Store) Root() string {
	return s.root
}

// FileID derives the stable short id of an article file
func FileID(url string, createdAt time.Time) string {
	sum := md5.Sum([]byte(url + "_" + formatTime(createdAt)))
	return hex.EncodeToString(sum[:])[:12]
}

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
var whitespaceRun = regexp.MustCompile(`\s+`)
var dotRun = regexp.MustCompile(`\.{2,}`)

// SanitizeFilename turns a title into a filesystem-safe slug
func SanitizeFilename(title string) string {
	name := unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(title), "")
	name = whitespaceRun.ReplaceAllString(name, "_")
	name = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' {
			return r
		}
		return -1
	}, name)
	name = dotRun.ReplaceAllString(name, ".")

	if runes := []rune(name); len(runes) > maxSlugLength {
		name = string(runes[:maxSlugLength])
	}
	name = strings.TrimRight(name, "_-.")
	if name == "" {
		return "untitled"
	}
	return name
}

// ReadingTime estimates minutes at 200 words per minute, at least one
func ReadingTime(words int) int {
	if m := words / wordsPerMinute; m > 1 {
		return m
	}
	return 1
}

// dirFor returns the relative directory a file for meta belongs in
func dirFor(meta *Metadata, stage Stage) string {
	if stage == StageInbox {
		switch meta.Source {
		case string(StageRSS):
			stage = StageRSS
		case "newsletter":
			stage = StageNewsletters
		}
	}
	if !stage.partitioned() {
		return string(stage)
	}
	return filepath.Join(string(stage), meta.CreatedAt.Format("2006"), meta.CreatedAt.Format("01"))
}

func fileNameFor(meta *Metadata) string {
	return fmt.Sprintf("%s_%s_%s.md", meta.CreatedAt.Format("20060102"), meta.FileID, SanitizeFilename(meta.Title))
}

// prepare fills derived fields and normalises timestamps to UTC
func (s *Store) prepare(meta *Metadata, body string) {
	now := s.now()
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	if meta.UpdatedAt.IsZero() {
		meta.UpdatedAt = meta.CreatedAt
	}
	meta.CreatedAt = meta.CreatedAt.UTC()
	meta.UpdatedAt = meta.UpdatedAt.UTC()
	if meta.PublicationDate != nil {
		t := meta.PublicationDate.UTC()
		meta.PublicationDate = &t
	}
	if meta.AISummaryGeneratedAt != nil {
		t := meta.AISummaryGeneratedAt.UTC()
		meta.AISummaryGeneratedAt = &t
	}
	if meta.Tags == nil {
		meta.Tags = []string{}
	}
	if meta.FileID == "" {
		meta.FileID = FileID(meta.URL, meta.CreatedAt)
	}
	meta.WordCount = len(strings.Fields(body))
	meta.ReadingTimeMinutes = ReadingTime(meta.WordCount)
}

// Save writes meta and body into stage and returns the relative path.
// Derived fields of meta are filled in place.
func (s *Store) Save(meta *Metadata, body string, stage Stage) (string, error) {
	if !stage.Valid() {
		return "", fmt.Errorf("unknown stage %q", stage)
	}
	s.prepare(meta, body)

	relPath := filepath.ToSlash(filepath.Join(dirFor(meta, stage), fileNameFor(meta)))
	fullPath, err := s.validatePath(relPath)
	if err != nil {
		return "", err
	}

	content, err := encodeDocument(meta, body)
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(fullPath, content); err != nil {
		return "", err
	}

	s.logger.Debug("article file saved", "path", relPath, "stage", stage)
	return relPath, nil
}

// Load reads metadata and body from a relative path
func (s *Store) Load(relPath string) (*Metadata, string, error) {
	data, err := s.readFile(relPath)
	if err != nil {
		return nil, "", err
	}
	meta, body, err := decodeDocument(data)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", relPath, err)
	}
	return meta, body, nil
}

// StageOf derives a file's stage from its location
func (s *Store) StageOf(relPath string) Stage {
	first := strings.SplitN(filepath.ToSlash(filepath.Clean(relPath)), "/", 2)[0]
	if st := Stage(first); st.Valid() {
		return st
	}
	return StageInbox
}

// Move rewrites a file into stage, setting stage-derived flags. The new file
// is in place before the old one is removed.
func (s *Store) Move(relPath string, stage Stage) (string, error) {
	meta, body, err := s.Load(relPath)
	if err != nil {
		return "", err
	}

	switch stage {
	case StageProcessed:
		meta.Processed = true
	case StageSent:
		meta.SentToDevice = true
	}
	meta.UpdatedAt = s.now()

	newPath, err := s.Save(meta, body, stage)
	if err != nil {
		return "", err
	}
	if newPath != relPath {
		if err := s.Delete(relPath); err != nil {
			return newPath, fmt.Errorf("remove previous file: %w", err)
		}
	}

	s.logger.Info("article file moved", "from", relPath, "to", newPath, "stage", stage)
	return newPath, nil
}

// Update applies patch to a file's metadata and optionally replaces the body.
// The file stays in its stage; a title change renames it.
func (s *Store) Update(relPath string, patch func(*Metadata), body *string) (string, error) {
	meta, oldBody, err := s.Load(relPath)
	if err != nil {
		return "", err
	}
	if patch != nil {
		patch(meta)
	}
	if body != nil {
		oldBody = *body
	}
	meta.UpdatedAt = s.now()

	newPath, err := s.Save(meta, oldBody, s.StageOf(relPath))
	if err != nil {
		return "", err
	}
	if newPath != relPath {
		if err := s.Delete(relPath); err != nil {
			return newPath, fmt.Errorf("remove previous file: %w", err)
		}
	}
	return newPath, nil
}

// walk visits every article file below dir, skipping index files
func (s *Store) walk(dir string, fn func(relPath string) error) error {
	start := filepath.Join(s.root, dir)
	if _, err := os.Stat(start); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".md" || d.Name() == indexFile {
			return nil
		}
		rel, err := s.relative(path)
		if err != nil {
			return err
		}
		return fn(rel)
	})
}

// All loads every article file. Unreadable files are logged and skipped.
func (s *Store) All() ([]Entry, error) {
	var entries []Entry
	for _, st := range Stages {
		err := s.walk(string(st), func(rel string) error {
			meta, _, err := s.Load(rel)
			if err != nil {
				s.logger.Warn("skipping unreadable article file", "path", rel, "error", err)
				return nil
			}
			entries = append(entries, Entry{Path: rel, Stage: st, Metadata: meta})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", st, err)
		}
	}
	return entries, nil
}

func sortNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Metadata.CreatedAt.After(entries[j].Metadata.CreatedAt)
	})
}

// List returns files newest first, optionally restricted to one stage
func (s *Store) List(stage Stage, limit, offset int) ([]Entry, error) {
	entries, err := s.All()
	if err != nil {
		return nil, err
	}

	if stage != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if e.Stage == stage {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	sortNewestFirst(entries)

	if offset > 0 {
		if offset >= len(entries) {
			return []Entry{}, nil
		}
		entries = entries[offset:]
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

// Search matches query case-insensitively against title and tags, and the
// body when inBody is set
func (s *Store) Search(query string, inBody bool) ([]Entry, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []Entry{}, nil
	}

	var matches []Entry
	for _, st := range Stages {
		err := s.walk(string(st), func(rel string) error {
			meta, body, err := s.Load(rel)
			if err != nil {
				return nil
			}
			if matchesQuery(meta, body, q, inBody) {
				matches = append(matches, Entry{Path: rel, Stage: st, Metadata: meta})
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", st, err)
		}
	}
	sortNewestFirst(matches)
	return matches, nil
}

func matchesQuery(meta *Metadata, body, q string, inBody bool) bool {
	if strings.Contains(strings.ToLower(meta.Title), q) {
		return true
	}
	for _, tag := range meta.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return inBody && strings.Contains(strings.ToLower(body), q)
}

// FindByURL returns the most recently updated file for url
func (s *Store) FindByURL(url string) (*Entry, error) {
	entries, err := s.All()
	if err != nil {
		return nil, err
	}

	var found *Entry
	for i := range entries {
		e := &entries[i]
		if e.Metadata.URL != url {
			continue
		}
		if found == nil || e.Metadata.UpdatedAt.After(found.Metadata.UpdatedAt) {
			found = e
		}
	}
	if found == nil {
		return nil, ErrFileNotFound
	}
	return found, nil
}

// Statistics counts article files per stage
func (s *Store) Statistics() (*Stats, error) {
	stats := &Stats{ByStage: make(map[Stage]int, len(Stages))}
	for _, st := range Stages {
		count := 0
		if err := s.walk(string(st), func(string) error {
			count++
			return nil
		}); err != nil {
			return nil, fmt.Errorf("walk %s: %w", st, err)
		}
		stats.ByStage[st] = count
		stats.Total += count
	}
	return stats, nil
}

// WriteIndexes writes a README per stage directory (once) and refreshes the
// library README with counts and recent articles
func (s *Store) WriteIndexes() error {
	for _, st := range Stages {
		path := filepath.Join(s.root, string(st), indexFile)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		title := strings.ToUpper(string(st[:1])) + string(st[1:])
		content := fmt.Sprintf("# %s\n\n%s\n", title, stageDescriptions[st])
		if err := writeFileAtomic(path, []byte(content)); err != nil {
			return err
		}
	}

	stats, err := s.Statistics()
	if err != nil {
		return err
	}
	recent, err := s.List("", 10, 0)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("# Article Library\n\n")
	fmt.Fprintf(&b, "Total articles: %d\n\n", stats.Total)
	b.WriteString("## Stages\n\n")
	for _, st := range Stages {
		fmt.Fprintf(&b, "- [%s](%s/) (%d): %s\n", st, st, stats.ByStage[st], stageDescriptions[st])
	}
	if len(recent) > 0 {
		b.WriteString("\n## Recent Articles\n\n")
		for _, e := range recent {
			fmt.Fprintf(&b, "- [%s](%s) - %s\n", e.Metadata.Title, e.Path, e.Metadata.CreatedAt.Format("2006-01-02"))
		}
	}
	fmt.Fprintf(&b, "\n_Last updated: %s_\n", s.now().Format(time.RFC3339))

	return writeFileAtomic(filepath.Join(s.root, indexFile), []byte(b.String()))
}

// ExportMetadata writes every file's metadata to metadata/articles_export.json
// and returns the relative path of the export
func (s *Store) ExportMetadata() (string, error) {
	entries, err := s.All()
	if err != nil {
		return "", err
	}
	if entries == nil {
		entries = []Entry{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode export: %w", err)
	}
	rel := filepath.ToSlash(filepath.Join(metadataDir, exportFile))
	if err := writeFileAtomic(filepath.Join(s.root, metadataDir, exportFile), data); err != nil {
		return "", err
	}
	return rel, nil
}

// CleanupEmptyDirs removes empty year/month directories under the stages and
// returns how many were removed
func (s *Store) CleanupEmptyDirs() (int, error) {
	removed := 0
	for _, st := range Stages {
		base := filepath.Join(s.root, string(st))
		var dirs []string
		err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			if d.IsDir() && path != base {
				dirs = append(dirs, path)
			}
			return nil
		})
		if err != nil {
			return removed, fmt.Errorf("walk %s: %w", st, err)
		}

		// deepest first so emptied parents go too
		sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
		for _, dir := range dirs {
			children, err := os.ReadDir(dir)
			if err != nil || len(children) > 0 {
				continue
			}
			if err := os.Remove(dir); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
