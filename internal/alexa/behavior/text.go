package behavior

import (
	"regexp"
	"strings"
)

var (
	markupPattern     = regexp.MustCompile(`<.+?>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Normalize collapses runs of whitespace into single spaces and trims
// the result, so two texts differing only in spacing coalesce into the
// same batch.
func Normalize(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// StripTags removes markup tags, leaving the plain spoken text. Used
// for fingerprinting and for estimating spoken duration.
func StripTags(text string) string {
	return markupPattern.ReplaceAllString(text, "")
}

// PlainText is the normalized, tag-free form of a spoken text.
func PlainText(text string) string {
	return Normalize(StripTags(text))
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeXML escapes the five XML special characters for embedding text
// in an SSML document.
func EscapeXML(text string) string {
	return xmlEscaper.Replace(text)
}
