package links

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/welldanyogia/paperboy/internal/classifier"
)

// urlPattern is http(s):// followed by the RFC 3986 unreserved, reserved and
// percent-encoding characters, matched greedily.
var urlPattern = regexp.MustCompile(`https?://[A-Za-z0-9\-._~:/?#\[\]@!$&'()*+,;=%]+`)

// trailing characters the greedy class swallows from surrounding prose or markup
const trailingPunct = `.,);'">`

// Extractor pulls candidate article URLs out of email and newsletter bodies
type Extractor struct {
	classifier classifier.URLClassifier
}

// NewExtractor creates an Extractor backed by the given classifier
func NewExtractor(c classifier.URLClassifier) *Extractor {
	if c == nil {
		c = classifier.NewHeuristics()
	}
	return &Extractor{classifier: c}
}

// ExtractURLs returns the unique candidate article URLs found in raw.
// Anchors are read with a lenient HTML parser, then the raw text is scanned
// for bare links. Callers must not depend on the order of the result.
func (e *Extractor) ExtractURLs(raw string) []string {
	seen := make(map[string]struct{})
	var urls []string
	add := func(u string) {
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}

	for _, u := range e.anchorURLs(raw) {
		add(u)
	}

	for _, hit := range urlPattern.FindAllString(raw, -1) {
		u := cleanMatch(hit)
		if _, ok := seen[u]; ok {
			continue
		}
		if e.classifier.IsArticleURL(u) {
			add(u)
		}
	}

	return urls
}

func (e *Extractor) anchorURLs(raw string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil
	}

	var urls []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
			return
		}
		if e.classifier.IsNoise(href) {
			return
		}
		if e.classifier.IsArticleLink(s.Text(), href) {
			urls = append(urls, href)
		}
	})
	return urls
}

func cleanMatch(hit string) string {
	hit = strings.ReplaceAll(hit, "&amp;", "&")
	return strings.TrimRight(hit, trailingPunct)
}
