package extractor

import (
	"bytes"
	"html"
	"strings"
	"time"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// Strategy names
const (
	StageReadability = "readability"
	StageStructural  = "structural"
)

// Strategy turns a fetched page into article fields. A result with an empty
// Text means the strategy found nothing.
type Strategy interface {
	Name() string
	Extract(page *Page) (*Result, error)
}

// Readability runs the readability article-extraction algorithm
type Readability struct{}

// Name implements Strategy
func (Readability) Name() string { return StageReadability }

// Extract implements Strategy
func (Readability) Extract(page *Page) (*Result, error) {
	article, err := readability.FromReader(bytes.NewReader(page.HTML), page.URL)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	if err := article.RenderText(&text); err != nil {
		return nil, err
	}

	res := &Result{
		Title:  normalizeText(article.Title()),
		Author: normalizeAuthors(article.Byline()),
		Text:   stripBlankLines(text.String()),
	}
	if published, err := article.PublishedTime(); err == nil && !published.IsZero() {
		t := published.UTC()
		res.PublicationDate = &t
	}
	return res, nil
}

// ContentSelectors are tried in order by the structural strategy
var ContentSelectors = []string{
	"article",
	"[role=main]",
	".content",
	".article-content",
	".post-content",
	".entry-content",
	"main",
}

// Structural strips page chrome and searches well-known content containers
type Structural struct {
	Selectors []string
}

// Name implements Strategy
func (Structural) Name() string { return StageStructural }

// Extract implements Strategy
func (s Structural) Extract(page *Page) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.HTML))
	if err != nil {
		return nil, err
	}

	res := &Result{Title: normalizeText(doc.Find("title").First().Text())}
	if v, ok := doc.Find(`meta[name="author"]`).Attr("content"); ok {
		res.Author = normalizeAuthors(v)
	}
	if v, ok := doc.Find(`meta[property="article:published_time"]`).Attr("content"); ok {
		res.PublicationDate = parseTime(v)
	}
	doc.Find("script, style, nav, header, footer").Remove()

	selectors := s.Selectors
	if len(selectors) == 0 {
		selectors = ContentSelectors
	}

	var text string
	for _, sel := range selectors {
		doc.Find(sel).EachWithBreak(func(_ int, node *goquery.Selection) bool {
			text = stripBlankLines(node.Text())
			return text == ""
		})
		if text != "" {
			break
		}
	}
	if text == "" {
		text = stripBlankLines(doc.Find("body").Text())
	}

	res.Text = text
	return res, nil
}

var strictPolicy = bluemonday.StrictPolicy()

// normalizeText drops any markup and collapses whitespace
func normalizeText(s string) string {
	s = html.UnescapeString(strictPolicy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// normalizeAuthors turns a byline into a comma-joined author list
func normalizeAuthors(byline string) string {
	byline = normalizeText(byline)
	byline = strings.TrimPrefix(byline, "By ")
	byline = strings.TrimPrefix(byline, "by ")
	if byline == "" {
		return ""
	}
	parts := strings.FieldsFunc(byline, func(r rune) bool { return r == ',' || r == '&' })
	var authors []string
	for _, p := range parts {
		for _, a := range strings.Split(p, " and ") {
			if a = strings.TrimSpace(a); a != "" {
				authors = append(authors, a)
			}
		}
	}
	return strings.Join(authors, ", ")
}

// stripBlankLines trims every line and removes the empty ones
func stripBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func parseTime(value string) *time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, strings.TrimSpace(value)); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
