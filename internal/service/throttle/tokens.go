package throttle

import "strings"

// tokenSet splits text on whitespace and returns the unique tokens.
func tokenSet(text string) map[string]struct{} {
	fields := strings.Fields(text)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// newTokenCount returns the number of tokens present in candidate that
// were absent from previous. The comparison is a set difference:
// order-insensitive and duplicate-insensitive, so "the the the" against
// "the" introduces zero new tokens.
func newTokenCount(candidate, previous string) int {
	prev := tokenSet(previous)
	count := 0
	for tok := range tokenSet(candidate) {
		if _, ok := prev[tok]; !ok {
			count++
		}
	}
	return count
}

// tokenCount returns the whitespace-split token count of text.
func tokenCount(text string) int {
	return len(strings.Fields(text))
}

// endsOnBoundary reports whether trimmed text ends with one of the
// configured sentence-boundary characters.
func endsOnBoundary(text, boundaryChars string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	last := trimmed[len(trimmed)-1]
	return strings.IndexByte(boundaryChars, last) >= 0
}
