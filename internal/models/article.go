package models

import (
	"sort"
	"strings"
	"time"
)

// ArticleSource records where an article entered the system
type ArticleSource string

const (
	SourceURL              ArticleSource = "url"
	SourceRSS              ArticleSource = "rss"
	SourceEmail            ArticleSource = "email"
	SourceNewsletter       ArticleSource = "newsletter"
	SourceForwardedEmail   ArticleSource = "forwarded_email"
	SourceFiveFiltersEmail ArticleSource = "fivefilters_email"
)

// Valid reports whether s is one of the known sources
func (s ArticleSource) Valid() bool {
	switch s {
	case SourceURL, SourceRSS, SourceEmail, SourceNewsletter, SourceForwardedEmail, SourceFiveFiltersEmail:
		return true
	}
	return false
}

// ArticleStatus is the lifecycle state of an article
type ArticleStatus string

const (
	StatusInbox     ArticleStatus = "inbox"
	StatusProcessed ArticleStatus = "processed"
	StatusSent      ArticleStatus = "sent"
	StatusArchived  ArticleStatus = "archived"
)

// Valid reports whether s is one of the known statuses
func (s ArticleStatus) Valid() bool {
	switch s {
	case StatusInbox, StatusProcessed, StatusSent, StatusArchived:
		return true
	}
	return false
}

// Article is a unit of readable content, unique by URL
type Article struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	URL             string        `gorm:"uniqueIndex;not null;size:2048" json:"url"`
	Title           string        `gorm:"not null" json:"title"`
	Author          string        `gorm:"size:512" json:"author,omitempty"`
	PublicationDate *time.Time    `json:"publication_date,omitempty"`
	Content         string        `gorm:"type:text" json:"content,omitempty"`
	MarkdownContent string        `gorm:"type:text" json:"-"`
	Summary         string        `gorm:"type:text" json:"summary,omitempty"`
	Tags            string        `json:"tags,omitempty"`
	Source          ArticleSource `gorm:"size:32;index" json:"source"`
	Status          ArticleStatus `gorm:"size:16;index;default:inbox" json:"status"`
	Processed       bool          `gorm:"default:false;index" json:"processed"`
	SentToDevice    bool          `gorm:"default:false" json:"sent_to_device"`
	FilePath        string        `gorm:"size:1024" json:"file_path,omitempty"`
	NewsletterID    *uint         `gorm:"index" json:"newsletter_id,omitempty"`

	AISummaryBrief       *string    `gorm:"type:text" json:"ai_summary_brief,omitempty"`
	AISummaryStandard    *string    `gorm:"type:text" json:"ai_summary_standard,omitempty"`
	AISummaryDetailed    *string    `gorm:"type:text" json:"ai_summary_detailed,omitempty"`
	AISummaryProvider    string     `gorm:"size:32" json:"ai_summary_provider,omitempty"`
	AISummaryModel       string     `gorm:"size:128" json:"ai_summary_model,omitempty"`
	AISummaryGeneratedAt *time.Time `json:"ai_summary_generated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Newsletter *Newsletter `gorm:"foreignKey:NewsletterID;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName returns the table name for Article
func (Article) TableName() string {
	return "articles"
}

// TagList splits the stored tag string
func (a *Article) TagList() []string {
	return SplitTags(a.Tags)
}

// SetTags normalizes and stores tags
func (a *Article) SetTags(tags []string) {
	a.Tags = JoinTags(tags)
}

// BestSummary prefers AI summaries over the basic one
func (a *Article) BestSummary() string {
	switch {
	case a.AISummaryStandard != nil && *a.AISummaryStandard != "":
		return *a.AISummaryStandard
	case a.AISummaryBrief != nil && *a.AISummaryBrief != "":
		return *a.AISummaryBrief
	default:
		return a.Summary
	}
}

// ArticleListItem is a lightweight version for list views
type ArticleListItem struct {
	ID           uint          `json:"id"`
	URL          string        `json:"url"`
	Title        string        `json:"title"`
	Author       string        `json:"author,omitempty"`
	Source       ArticleSource `json:"source"`
	Status       ArticleStatus `json:"status"`
	Processed    bool          `json:"processed"`
	SentToDevice bool          `json:"sent_to_device"`
	CreatedAt    time.Time     `json:"created_at"`
}

// SplitTags parses a comma-delimited tag string, dropping empties
func SplitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// JoinTags trims, deduplicates and sorts tags into a comma-delimited string
func JoinTags(tags []string) string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}
