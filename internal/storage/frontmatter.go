package storage

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const frontMatterDelim = "---"

// Metadata is the article metadata carried in a file's front matter
type Metadata struct {
	Title                string     `json:"title"`
	URL                  string     `json:"url"`
	Author               string     `json:"author,omitempty"`
	PublicationDate      *time.Time `json:"publication_date,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	Processed            bool       `json:"processed"`
	SentToDevice         bool       `json:"sent_to_kindle"`
	Source               string     `json:"source"`
	Tags                 []string   `json:"tags"`
	Summary              string     `json:"summary,omitempty"`
	AISummaryBrief       *string    `json:"ai_summary_brief,omitempty"`
	AISummaryStandard    *string    `json:"ai_summary_standard,omitempty"`
	AISummaryDetailed    *string    `json:"ai_summary_detailed,omitempty"`
	AISummaryProvider    string     `json:"ai_summary_provider,omitempty"`
	AISummaryModel       string     `json:"ai_summary_model,omitempty"`
	AISummaryGeneratedAt *time.Time `json:"ai_summary_generated_at,omitempty"`
	NewsletterID         *uint      `json:"newsletter_id,omitempty"`
	FileID               string     `json:"file_id"`
	WordCount            int        `json:"word_count"`
	ReadingTimeMinutes   int        `json:"reading_time_minutes"`
}

// frontMatter is the on-disk shape. Timestamps are kept as text so files
// written with other timestamp layouts still load.
type frontMatter struct {
	Title                string   `yaml:"title"`
	URL                  string   `yaml:"url"`
	Author               string   `yaml:"author,omitempty"`
	PublicationDate      string   `yaml:"publication_date,omitempty"`
	CreatedAt            string   `yaml:"created_at"`
	UpdatedAt            string   `yaml:"updated_at"`
	Processed            bool     `yaml:"processed"`
	SentToDevice         bool     `yaml:"sent_to_kindle"`
	Source               string   `yaml:"source"`
	Tags                 []string `yaml:"tags"`
	Summary              string   `yaml:"summary,omitempty"`
	AISummaryBrief       *string  `yaml:"ai_summary_brief,omitempty"`
	AISummaryStandard    *string  `yaml:"ai_summary_standard,omitempty"`
	AISummaryDetailed    *string  `yaml:"ai_summary_detailed,omitempty"`
	AISummaryProvider    string   `yaml:"ai_summary_provider,omitempty"`
	AISummaryModel       string   `yaml:"ai_summary_model,omitempty"`
	AISummaryGeneratedAt string   `yaml:"ai_summary_generated_at,omitempty"`
	NewsletterID         *uint    `yaml:"newsletter_id,omitempty"`
	FileID               string   `yaml:"file_id"`
	WordCount            int      `yaml:"word_count"`
	ReadingTimeMinutes   int      `yaml:"reading_time_minutes"`
}

// accepted timestamp layouts, tried in order; the first is the one written
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func parseTimePtr(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := parseTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (m *Metadata) toFrontMatter() frontMatter {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	return frontMatter{
		Title:                m.Title,
		URL:                  m.URL,
		Author:               m.Author,
		PublicationDate:      formatTimePtr(m.PublicationDate),
		CreatedAt:            formatTime(m.CreatedAt),
		UpdatedAt:            formatTime(m.UpdatedAt),
		Processed:            m.Processed,
		SentToDevice:         m.SentToDevice,
		Source:               m.Source,
		Tags:                 tags,
		Summary:              m.Summary,
		AISummaryBrief:       m.AISummaryBrief,
		AISummaryStandard:    m.AISummaryStandard,
		AISummaryDetailed:    m.AISummaryDetailed,
		AISummaryProvider:    m.AISummaryProvider,
		AISummaryModel:       m.AISummaryModel,
		AISummaryGeneratedAt: formatTimePtr(m.AISummaryGeneratedAt),
		NewsletterID:         m.NewsletterID,
		FileID:               m.FileID,
		WordCount:            m.WordCount,
		ReadingTimeMinutes:   m.ReadingTimeMinutes,
	}
}

func (fm *frontMatter) toMetadata() (*Metadata, error) {
	m := &Metadata{
		Title:              fm.Title,
		URL:                fm.URL,
		Author:             fm.Author,
		Processed:          fm.Processed,
		SentToDevice:       fm.SentToDevice,
		Source:             fm.Source,
		Tags:               fm.Tags,
		Summary:            fm.Summary,
		AISummaryBrief:     fm.AISummaryBrief,
		AISummaryStandard:  fm.AISummaryStandard,
		AISummaryDetailed:  fm.AISummaryDetailed,
		AISummaryProvider:  fm.AISummaryProvider,
		AISummaryModel:     fm.AISummaryModel,
		NewsletterID:       fm.NewsletterID,
		FileID:             fm.FileID,
		WordCount:          fm.WordCount,
		ReadingTimeMinutes: fm.ReadingTimeMinutes,
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}

	var err error
	if m.PublicationDate, err = parseTimePtr(fm.PublicationDate); err != nil {
		return nil, fmt.Errorf("publication_date: %w", err)
	}
	if m.AISummaryGeneratedAt, err = parseTimePtr(fm.AISummaryGeneratedAt); err != nil {
		return nil, fmt.Errorf("ai_summary_generated_at: %w", err)
	}
	if fm.CreatedAt != "" {
		if m.CreatedAt, err = parseTime(fm.CreatedAt); err != nil {
			return nil, fmt.Errorf("created_at: %w", err)
		}
	}
	if fm.UpdatedAt != "" {
		if m.UpdatedAt, err = parseTime(fm.UpdatedAt); err != nil {
			return nil, fmt.Errorf("updated_at: %w", err)
		}
	}
	return m, nil
}

// encodeDocument renders front matter, a blank line and the body
func encodeDocument(m *Metadata, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(frontMatterDelim + "\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	fm := m.toFrontMatter()
	if err := enc.Encode(&fm); err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}

	buf.WriteString(frontMatterDelim + "\n\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// cutLine splits off the first line of s. The line excludes its "\n" or
// "\r\n" terminator.
func cutLine(s string) (line, rest string, found bool) {
	line, rest, found = strings.Cut(s, "\n")
	return strings.TrimSuffix(line, "\r"), rest, found
}

// decodeDocument splits a file into metadata and body. A file without front
// matter loads as an untitled article whose body is the whole file. CRLF is
// accepted around the delimiters; the body is returned byte for byte.
func decodeDocument(data []byte) (*Metadata, string, error) {
	text := string(data)
	untitled := &Metadata{Title: "Untitled", Tags: []string{}}

	first, rest, found := cutLine(text)
	if first != frontMatterDelim || !found {
		return untitled, text, nil
	}

	var header strings.Builder
	closed := false
	for {
		line, next, more := cutLine(rest)
		if line == frontMatterDelim {
			rest, closed = next, true
			break
		}
		if !more {
			break
		}
		header.WriteString(line)
		header.WriteByte('\n')
		rest = next
	}
	if !closed {
		return untitled, text, nil
	}

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(header.String()), &fm); err != nil {
		return nil, "", fmt.Errorf("parse front matter: %w", err)
	}
	m, err := fm.toMetadata()
	if err != nil {
		return nil, "", err
	}

	// one blank line separates front matter and body
	if after, ok := strings.CutPrefix(rest, "\r\n"); ok {
		rest = after
	} else {
		rest = strings.TrimPrefix(rest, "\n")
	}
	return m, rest, nil
}
