package classifier

import (
	"net/url"
	"regexp"
	"strings"
)

// URLClassifier decides whether a link is likely to point at an article
type URLClassifier interface {
	IsArticleURL(rawURL string) bool
	IsArticleLink(text, rawURL string) bool
	IsNoise(rawURL string) bool
}

// Heuristics is the keyword/pattern based URLClassifier
type Heuristics struct {
	// NoiseMarkers are case-insensitive substrings that disqualify a URL
	NoiseMarkers []string
	// SocialDomains are hosts (and their subdomains) that never carry articles
	SocialDomains []string
	// Patterns are matched against the lowercased URL path
	Patterns []*regexp.Regexp
	// CallToAction phrases in anchor text accept the link outright
	CallToAction []string
	// TitleStopWords disqualify long anchor text from counting as a title
	TitleStopWords []string
	// MinTitleLength is the anchor text length above which text is treated as a title
	MinTitleLength int
	// Strict rejects URLs that match no article pattern
	Strict bool
}

var defaultPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/article/`),
	regexp.MustCompile(`/post/`),
	regexp.MustCompile(`/blog/`),
	regexp.MustCompile(`/news/`),
	regexp.MustCompile(`/story/`),
	regexp.MustCompile(`/\d{4}/\d{2}/`),
	regexp.MustCompile(`\.html$`),
	regexp.MustCompile(`/[a-z-]+-[a-z-]+`),
}

// NewHeuristics returns the default classifier
func NewHeuristics() *Heuristics {
	return &Heuristics{
		NoiseMarkers: []string{
			"unsubscribe", "preferences", "profile", "account",
			"tracking", "analytics", "/ads/", "/ad/", "//ads.", "adclick", "doubleclick",
		},
		SocialDomains: []string{
			"facebook.com", "twitter.com", "x.com", "linkedin.com",
			"instagram.com", "youtube.com", "tiktok.com", "pinterest.com",
		},
		Patterns: defaultPatterns,
		CallToAction: []string{
			"read more", "full article", "continue reading", "view article",
			"read full", "more info", "learn more", "full story",
		},
		TitleStopWords: []string{"subscribe", "follow", "share"},
		MinTitleLength: 20,
	}
}

// IsNoise reports whether the URL is a tracking, account or social link
func (h *Heuristics) IsNoise(rawURL string) bool {
	lowered := strings.ToLower(rawURL)
	for _, marker := range h.NoiseMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return h.isSocial(lowered)
}

func (h *Heuristics) isSocial(lowered string) bool {
	u, err := url.Parse(lowered)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	for _, domain := range h.SocialDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// IsArticleURL rejects noise first, then accepts article-shaped paths.
// Other URLs are accepted unless Strict is set.
func (h *Heuristics) IsArticleURL(rawURL string) bool {
	if h.IsNoise(rawURL) {
		return false
	}
	if h.MatchesArticlePattern(rawURL) {
		return true
	}
	return !h.Strict
}

// IsArticleLink looks at the anchor text before falling back to the URL
func (h *Heuristics) IsArticleLink(text, rawURL string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	for _, phrase := range h.CallToAction {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	if len(text) > h.MinTitleLength && !containsAny(text, h.TitleStopWords) {
		return true
	}
	return h.IsArticleURL(rawURL)
}

// MatchesArticlePattern reports whether the URL path has an article shape.
// Noise markers are not consulted.
func (h *Heuristics) MatchesArticlePattern(rawURL string) bool {
	path := strings.ToLower(rawURL)
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		path = strings.ToLower(u.EscapedPath())
	}
	for _, p := range h.Patterns {
		if p.MatchString(path) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
