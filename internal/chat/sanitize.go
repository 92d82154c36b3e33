package chat

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultDisplayName replaces names that sanitize to nothing.
	DefaultDisplayName = "Anonymous"

	ellipsis = "..."
)

var (
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
	scriptPattern = regexp.MustCompile(`(?i)script`)
	namePattern   = regexp.MustCompile(`[<>"'&]`)
)

// Sanitizer cleans chat input. Output is a fixpoint: cleaning it again
// returns it unchanged.
type Sanitizer struct {
	maxContent int
	maxName    int
}

// NewSanitizer creates a sanitizer with rune limits for content and names.
// maxContent includes the ellipsis appended on truncation.
func NewSanitizer(maxContent, maxName int) *Sanitizer {
	if maxContent <= len(ellipsis) {
		maxContent = 500
	}
	if maxName <= 0 {
		maxName = 50
	}
	return &Sanitizer{maxContent: maxContent, maxName: maxName}
}

// stripMarkup removes tags and the token "script" until nothing changes,
// so removals cannot splice a new match together.
func stripMarkup(s string) string {
	for {
		next := scriptPattern.ReplaceAllString(tagPattern.ReplaceAllString(s, ""), "")
		if next == s {
			return s
		}
		s = next
	}
}

// CleanContent strips markup, trims, and truncates to the content limit.
// An empty result means the message must be rejected.
func (s *Sanitizer) CleanContent(content string) string {
	cleaned := strings.TrimSpace(stripMarkup(content))
	if utf8.RuneCountInString(cleaned) > s.maxContent {
		runes := []rune(cleaned)
		cleaned = string(runes[:s.maxContent-len(ellipsis)]) + ellipsis
	}
	return cleaned
}

// CleanDisplayName strips markup and unsafe characters, trims, and
// truncates to the name limit. Empty names become DefaultDisplayName.
func (s *Sanitizer) CleanDisplayName(name string) string {
	cleaned := name
	for {
		next := namePattern.ReplaceAllString(stripMarkup(cleaned), "")
		if next == cleaned {
			break
		}
		cleaned = next
	}
	cleaned = strings.TrimSpace(cleaned)
	if utf8.RuneCountInString(cleaned) > s.maxName {
		cleaned = strings.TrimSpace(string([]rune(cleaned)[:s.maxName]))
	}
	if cleaned == "" {
		return DefaultDisplayName
	}
	return cleaned
}
