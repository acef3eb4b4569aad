package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/welldanyogia/paperboy/internal/models"
)

func TestClassifyEmail(t *testing.T) {
	tests := []struct {
		name    string
		sender  string
		subject string
		want    models.EmailType
	}{
		{"fivefilters beats newsletter subject", "push@fivefilters.org", "Weekly Digest", models.EmailTypeFiveFilters},
		{"full-text-rss sender", "Full-Text-RSS <bot@example.com>", "Article", models.EmailTypeFiveFilters},
		{"newsletter sender", "newsletter@site.com", "Hello", models.EmailTypeNewsletter},
		{"newsletter subject", "alice@site.com", "Your Daily Briefing", models.EmailTypeNewsletter},
		{"roundup subject", "bob@site.com", "Friday ROUNDUP", models.EmailTypeNewsletter},
		{"generic", "carol@site.com", "Look at this", models.EmailTypeGeneric},
		{"empty", "", "", models.EmailTypeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyEmail(tt.sender, tt.subject))
		})
	}
}
