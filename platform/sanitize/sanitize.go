// Package sanitize provides text sanitization utilities for inbound text.
package sanitize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// htmlTagRegex matches HTML tags
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)
	spaceRegex   = regexp.MustCompile(`[ \t\f\v]+`)
)

// StripHTML removes all HTML tags from a string, making it safe for text-only display.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.ReplaceAll(result, "&lt;", "<")
	result = strings.ReplaceAll(result, "&gt;", ">")
	result = strings.ReplaceAll(result, "&amp;", "&")
	result = strings.ReplaceAll(result, "&quot;", "\"")
	result = strings.ReplaceAll(result, "&#39;", "'")
	// Re-strip after entity decode to catch encoded tags
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text sanitizes free text (notes, comments): strips HTML and
// normalizes to NFC so visually equal strings compare equal.
func Text(s string) string {
	return norm.NFC.String(StripHTML(s))
}

// Line sanitizes a single-line value such as a name or city: like Text,
// but runs of horizontal whitespace collapse to one space.
func Line(s string) string {
	return spaceRegex.ReplaceAllString(Text(s), " ")
}

// Clean trims and NFC-normalizes s without touching its characters. Values
// owned by an external system of record go through Clean, not Text.
func Clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// CleanLine is Clean with runs of horizontal whitespace collapsed.
func CleanLine(s string) string {
	return spaceRegex.ReplaceAllString(Clean(s), " ")
}
