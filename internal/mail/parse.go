package mail

import (
	"bytes"
	"fmt"
	"html"
	netmail "net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/microcosm-cc/bluemonday"
	"github.com/welldanyogia/paperboy/internal/models"
)

const snippetLength = 255

// ParsedEmail is the decoded view of a raw RFC 5322 message
type ParsedEmail struct {
	MessageID   string
	FromName    string
	FromAddress string
	To          []string
	Subject     string
	Date        *time.Time
	Headers     map[string][]string
	Text        string
	HTML        string
	Attachments []models.AttachmentInfo
	Snippet     string
}

// Sender returns the From address, or the display name when there is none
func (p *ParsedEmail) Sender() string {
	if p.FromAddress != "" {
		return p.FromAddress
	}
	return p.FromName
}

// Recipient returns the first To address
func (p *ParsedEmail) Recipient() string {
	if len(p.To) == 0 {
		return ""
	}
	return p.To[0]
}

// Body returns the HTML body when present, else the text body
func (p *ParsedEmail) Body() string {
	if p.HTML != "" {
		return p.HTML
	}
	return p.Text
}

// Parse decodes raw with enmime. When the envelope cannot be decoded at all an
// empty ParsedEmail is returned along with the error so callers can still
// keep the raw bytes.
func Parse(raw []byte) (*ParsedEmail, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return &ParsedEmail{Headers: map[string][]string{}}, fmt.Errorf("decode envelope: %w", err)
	}

	parsed := &ParsedEmail{
		MessageID: strings.TrimSpace(env.GetHeader("Message-ID")),
		Subject:   strings.TrimSpace(env.GetHeader("Subject")),
		Text:      env.Text,
		HTML:      env.HTML,
		Headers:   make(map[string][]string),
	}

	for _, key := range env.GetHeaderKeys() {
		parsed.Headers[key] = env.GetHeaderValues(key)
	}

	// Parse From header
	if from, err := env.AddressList("From"); err == nil && len(from) > 0 {
		parsed.FromName = from[0].Name
		parsed.FromAddress = from[0].Address
	} else {
		parsed.FromName, parsed.FromAddress = parseFromHeader(env.GetHeader("From"))
	}

	if to, err := env.AddressList("To"); err == nil {
		for _, addr := range to {
			parsed.To = append(parsed.To, addr.Address)
		}
	} else if raw := strings.TrimSpace(env.GetHeader("To")); raw != "" {
		parsed.To = []string{raw}
	}

	if d := env.GetHeader("Date"); d != "" {
		if t, err := netmail.ParseDate(d); err == nil {
			parsed.Date = &t
		}
	}

	parsed.Snippet = generateSnippet(parsed.Text, parsed.HTML)

	// Attachment descriptors only, never content
	for _, att := range env.Attachments {
		parsed.Attachments = append(parsed.Attachments, describe(att))
	}
	for _, att := range env.Inlines {
		if att.FileName != "" {
			parsed.Attachments = append(parsed.Attachments, describe(att))
		}
	}

	return parsed, nil
}

func describe(p *enmime.Part) models.AttachmentInfo {
	return models.AttachmentInfo{
		Filename:    p.FileName,
		ContentType: p.ContentType,
		Size:        int64(len(p.Content)),
	}
}

var fromPattern = regexp.MustCompile(`^"?([^"<]*?)"?\s*<([^<>]+)>$`)

// parseFromHeader extracts name and email from a From header
func parseFromHeader(from string) (name, email string) {
	from = strings.TrimSpace(from)
	if from == "" {
		return "", ""
	}

	if addr, err := netmail.ParseAddress(from); err == nil {
		return addr.Name, addr.Address
	}

	// Headers net/mail rejects, e.g. an unquoted comma in the name
	if matches := fromPattern.FindStringSubmatch(from); matches != nil {
		return strings.TrimSpace(matches[1]), strings.TrimSpace(matches[2])
	}

	return "", from
}

var snippetPolicy = bluemonday.StrictPolicy()

// generateSnippet creates a preview snippet from email body
func generateSnippet(bodyText, bodyHTML string) string {
	var text string

	if bodyText != "" {
		text = bodyText
	} else if bodyHTML != "" {
		text = html.UnescapeString(snippetPolicy.Sanitize(bodyHTML))
	}

	// Clean up whitespace
	text = strings.Join(strings.Fields(text), " ")

	if runes := []rune(text); len(runes) > snippetLength {
		text = string(runes[:snippetLength-3]) + "..."
	}

	return text
}
