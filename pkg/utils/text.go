// Package utils provides shared utilities for text handling and logging.
package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Truncate returns s truncated to maxLen characters, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// NormalizeText composes s to Unicode NFC, trims it, and collapses runs of whitespace
// (including the hard line breaks of the printed record) into single spaces.
func NormalizeText(s string) string {
	s = norm.NFC.String(s)
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s))
	wasSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

// Tokens splits normalized text into whitespace-separated tokens.
func Tokens(s string) []string {
	return strings.Fields(NormalizeText(s))
}

// Slug lowercases s and keeps only letters and digits, joining words with "-".
// "Mr. SMITH of Ohio" becomes "mr-smith-of-ohio".
func Slug(s string) string {
	var parts []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}
	for _, r := range norm.NFC.String(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()
	return strings.Join(parts, "-")
}
