package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "John Smith", "John Smith"},
		{"emoji stripped", "🔥 D1 Haters 🔥", "D1 Haters"},
		{"punctuation breaks words", "Mom&Dad", "Mom Dad"},
		{"apostrophe kept", "O'Brien", "O'Brien"},
		{"hyphen kept", "Anne-Marie", "Anne-Marie"},
		{"whitespace collapsed", "  a   b  ", "a b"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanName(tt.in))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "15551234567", NormalizePhone("+1 (555) 123-4567"))
	assert.Equal(t, "", NormalizePhone("mom@example.com"))
	assert.Equal(t, "", NormalizePhone(""))
}

func TestPhoneVariants(t *testing.T) {
	assert.Equal(t, []string{"15551234567", "5551234567"}, PhoneVariants("+1 555 123 4567"))
	assert.Equal(t, []string{"5551234567", "15551234567"}, PhoneVariants("555-123-4567"))
	assert.Equal(t, []string{"44123"}, PhoneVariants("44123"))
	assert.Nil(t, PhoneVariants("no digits"))
}

func TestIsRawAddress(t *testing.T) {
	assert.True(t, IsRawAddress("+1 555 123 4567"))
	assert.True(t, IsRawAddress("mom@example.com"))
	assert.False(t, IsRawAddress("Mom"))
	assert.False(t, IsRawAddress(""))
	assert.False(t, IsRawAddress("+- ()"))
}

func TestCanonicalAddress(t *testing.T) {
	assert.Equal(t, "15551234567", CanonicalAddress("+1 (555) 123-4567"))
	assert.Equal(t, "mom@example.com", CanonicalAddress(" Mom@Example.COM "))
}

func TestFoldContains(t *testing.T) {
	assert.True(t, FoldContains("Family Group", "family"))
	assert.True(t, FoldContains("STRASSE", "strasse"))
	assert.False(t, FoldContains("Family", "work"))
}

func TestScore_ExactBeatsSubstring(t *testing.T) {
	exact := Score("Mom", "Mom")
	partial := Score("Mom", "Mom's Book Club")
	assert.Equal(t, 1.0, exact)
	assert.Greater(t, exact, partial)
	assert.Greater(t, partial, 0.0)
}

func TestScore_Misspelling(t *testing.T) {
	s := Score("Jhon", "John Smith")
	assert.Greater(t, s, 0.6, "one transposition should still match a word")
}

func TestScore_Initials(t *testing.T) {
	assert.GreaterOrEqual(t, Score("js", "John Smith"), 0.8)
}

func TestScore_WordStarts(t *testing.T) {
	assert.GreaterOrEqual(t, Score("jo sm", "John Smith"), 0.75)
}

func TestScore_NoMatch(t *testing.T) {
	assert.Less(t, Score("zzz", "John Smith"), 0.3)
	assert.Equal(t, 0.0, Score("", "John Smith"))
	assert.Equal(t, 0.0, Score("x", ""))
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("abc", "abc"))
	assert.Equal(t, 3, levenshtein("", "abc"))
	assert.Equal(t, 1, levenshtein("kitten", "mitten"))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
}
