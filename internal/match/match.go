// Package match implements the string matching used for conversation
// and contact resolution: unicode-aware case folding, display-name
// cleanup, phone normalization, and fuzzy scoring.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// Fold returns the case-folded form of s, suitable for
// case-insensitive comparison across scripts.
func Fold(s string) string {
	return folder.String(s)
}

// FoldEqual reports whether a and b are equal under case folding.
func FoldEqual(a, b string) bool {
	return Fold(a) == Fold(b)
}

// FoldContains reports whether haystack contains needle under case folding.
func FoldContains(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}

// FoldHasPrefix reports whether s starts with prefix under case folding.
func FoldHasPrefix(s, prefix string) bool {
	return strings.HasPrefix(Fold(s), Fold(prefix))
}

// CleanName strips emoji and punctuation from a display name, keeping
// letters, digits, spaces, apostrophes and hyphens, and collapses runs
// of whitespace. Contact and chat names frequently carry decorative
// characters that would defeat matching.
func CleanName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastSpace := true
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-':
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			// emoji, symbols, punctuation: treat as a word break
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// NormalizePhone reduces a phone number to its digits.
// Returns "" for inputs with no digits (including email addresses).
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneVariants returns the normalized number plus US country-code
// variants. Handles in the messages store sometimes carry the leading
// "1" while the address book does not, and vice versa.
func PhoneVariants(phone string) []string {
	n := NormalizePhone(phone)
	if n == "" {
		return nil
	}
	variants := []string{n}
	switch {
	case strings.HasPrefix(n, "1") && len(n) == 11:
		variants = append(variants, n[1:])
	case len(n) == 10:
		variants = append(variants, "1"+n)
	}
	return variants
}

// IsRawAddress reports whether s looks like a phone number or email
// rather than a person or chat name.
func IsRawAddress(s string) bool {
	if strings.ContainsRune(s, '@') {
		return true
	}
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9') && !strings.ContainsRune("+- ()", r) {
			return false
		}
	}
	return NormalizePhone(s) != ""
}

// CanonicalAddress folds a raw address to its deduplication key:
// digits for phone numbers, the folded string for emails.
func CanonicalAddress(addr string) string {
	if strings.ContainsRune(addr, '@') {
		return Fold(strings.TrimSpace(addr))
	}
	if n := NormalizePhone(addr); n != "" {
		return n
	}
	return Fold(strings.TrimSpace(addr))
}
