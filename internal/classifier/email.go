package classifier

import (
	"strings"

	"github.com/welldanyogia/paperboy/internal/models"
)

var (
	fiveFiltersMarkers = []string{"fivefilters", "full-text-rss"}
	newsletterMarkers  = []string{
		"newsletter", "digest", "weekly", "daily", "update",
		"bulletin", "briefing", "roundup", "summary",
	}
)

// ClassifyEmail returns the category of an inbound email. The first match
// wins: fivefilters, then newsletter, then generic.
func ClassifyEmail(sender, subject string) models.EmailType {
	sender = strings.ToLower(sender)
	subject = strings.ToLower(subject)

	if containsAny(sender, fiveFiltersMarkers) {
		return models.EmailTypeFiveFilters
	}
	if containsAny(sender, newsletterMarkers) || containsAny(subject, newsletterMarkers) {
		return models.EmailTypeNewsletter
	}
	return models.EmailTypeGeneric
}
