package mailbody

import (
	"regexp"
	"strings"
)

var (
	scriptStyleRegex = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagRegex         = regexp.MustCompile(`<[^>]*>`)
	invisibleRegex   = regexp.MustCompile("[​‌‍‎‏‪-‮⁠\uFEFF]")
	bracketRegex     = regexp.MustCompile(`\[[^\[\]]*\]`)
	urlRegex         = regexp.MustCompile(`https?://\S+`)
	newlineRegex     = regexp.MustCompile(`\n{3,}`)
	spaceRegex       = regexp.MustCompile(`[ \t]+`)
)

// StripHTML removes markup from an HTML body, leaving readable text.
func StripHTML(s string) string {
	s = scriptStyleRegex.ReplaceAllString(s, " ")
	s = tagRegex.ReplaceAllString(s, " ")

	// Unescape HTML entities (basic ones)
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&quot;", "\"")
	s = strings.ReplaceAll(s, "&#39;", "'")

	return s
}

// Clean normalizes decoded body text: strips zero-width and bidi control
// characters, bracketed tag tokens and bare URLs, collapses whitespace runs
// and excess blank lines, and trims the result.
func Clean(s string) string {
	if s == "" {
		return ""
	}

	s = invisibleRegex.ReplaceAllString(s, "")
	s = bracketRegex.ReplaceAllString(s, " ")
	s = urlRegex.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRegex.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = newlineRegex.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}
