package extractor

import "strings"

// DefaultSummaryWords is the word budget of BasicSummary
const DefaultSummaryWords = 200

// BasicSummary returns the first maxWords words of text. The cut is moved back
// to the last full stop when that stop lies in the final fifth of the
// truncated text; otherwise an ellipsis is appended.
func BasicSummary(text string, maxWords int) string {
	if maxWords <= 0 {
		maxWords = DefaultSummaryWords
	}
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return strings.TrimSpace(text)
	}

	summary := strings.Join(words[:maxWords], " ")
	if last := strings.LastIndex(summary, "."); last >= 0 && float64(last) > float64(len(summary))*0.8 {
		return summary[:last+1]
	}
	return summary + "..."
}
