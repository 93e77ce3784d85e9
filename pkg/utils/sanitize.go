package utils

import (
	"html"
	"regexp"
	"strings"
)

// Dangerous patterns for XSS prevention
var (
	scriptTagRegex = regexp.MustCompile(`(?i)<script[^>]*>.*?</script>`)
	onEventRegex   = regexp.MustCompile(`(?i)\s+on\w+\s*=`)
)

// SanitizeMessageContent strips script tags and inline event handlers from
// user-supplied message text and escapes the remaining HTML entities.
// Trimming is left to the caller so length validation sees the final form.
func SanitizeMessageContent(content string) string {
	content = scriptTagRegex.ReplaceAllString(content, "")
	content = onEventRegex.ReplaceAllString(content, " ")
	return html.EscapeString(content)
}

// SanitizeHTML escapes HTML entities to prevent XSS
// Use this for any user-generated content that will be displayed
func SanitizeHTML(input string) string {
	return html.EscapeString(input)
}

// TruncateRunes shortens s to at most max runes. Used for message previews
// denormalized onto conversations.
func TruncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// TruncatePreview shortens escaped text to at most max runes, backing off
// when the cut would split an HTML entity. After EscapeString every "&"
// starts an entity, so an unterminated one at the tail means a split.
func TruncatePreview(s string, max int) string {
	truncated := TruncateRunes(s, max)
	if truncated == s {
		return s
	}
	if i := strings.LastIndex(truncated, "&"); i >= 0 && !strings.Contains(truncated[i:], ";") {
		truncated = truncated[:i]
	}
	return truncated
}

// NormalizeWhitespace collapses repeated whitespace and trims the result.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
