package matching

import (
	"regexp"
	"sort"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// stopwords never carry product identity.
var stopwords = map[string]struct{}{
	"microsoft":   {},
	"inc":         {},
	"corporation": {},
	"corp":        {},
	"the":         {},
	"llc":         {},
	"co":          {},
	"company":     {},
}

const minTokenLen = 3

// Normalize lowercases s, collapses every run of non-alphanumeric
// characters to a single space and trims the result.
func Normalize(s string) string {
	return strings.TrimSpace(nonAlnum.ReplaceAllString(strings.ToLower(s), " "))
}

// TokenSet is an unordered set of tokens.
type TokenSet map[string]struct{}

// Tokenize normalizes s and returns its tokens, dropping stopwords and
// tokens shorter than three characters.
func Tokenize(s string) TokenSet {
	set := make(TokenSet)
	for _, tok := range strings.Fields(Normalize(s)) {
		if len(tok) < minTokenLen {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

// Intersect counts tokens present in both sets.
func (s TokenSet) Intersect(other TokenSet) int {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	n := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			n++
		}
	}
	return n
}

// Sorted returns the tokens in lexical order.
func (s TokenSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for tok := range s {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}
