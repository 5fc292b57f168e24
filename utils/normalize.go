package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldChain = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldVietnamese lowercases s, strips diacritics ("Đổi Vỏ" -> "doi vo")
// and collapses runs of whitespace to a single space. Đ/đ do not carry
// a combining mark in NFD, so they are mapped explicitly.
func FoldVietnamese(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if out, _, err := transform.String(foldChain, s); err == nil {
		s = out
	}
	s = strings.Map(func(r rune) rune {
		if r == 'đ' {
			return 'd'
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// ContainsFolded reports whether the folded form of s contains the folded keyword.
func ContainsFolded(s, keyword string) bool {
	return strings.Contains(FoldVietnamese(s), FoldVietnamese(keyword))
}
