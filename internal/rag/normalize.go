package rag

import (
	"regexp"
	"strings"
)

// UnknownPage is the label used when the backend cannot attribute a page.
const UnknownPage = "Unknown"

var pageMarker = regexp.MustCompile(`(?i)\[Page\s+(?:Unknown|\d+)\]`)

// NormalizeContent strips backend page markers such as "[Page 12]" or
// "[PAGE UNKNOWN]" from chunk text. Surrounding whitespace is kept as-is.
func NormalizeContent(content string) string {
	for pageMarker.MatchString(content) {
		content = pageMarker.ReplaceAllString(content, "")
	}
	return content
}

// NormalizePage turns a raw page attribution ("[Page 12]", " 12 ", "") into a
// bare label, falling back to UnknownPage.
func NormalizePage(raw string) string {
	label := strings.TrimSpace(raw)
	if len(label) >= len("[page") && strings.EqualFold(label[:len("[page")], "[page") {
		label = strings.TrimSuffix(label[len("[page"):], "]")
		label = strings.TrimSpace(label)
	}
	if label == "" {
		return UnknownPage
	}
	if strings.EqualFold(label, UnknownPage) {
		return UnknownPage
	}
	return label
}

// HasKnownPage reports whether the page label attributes a concrete page.
func HasKnownPage(page string) bool {
	page = strings.TrimSpace(page)
	return page != "" && !strings.EqualFold(page, UnknownPage)
}
