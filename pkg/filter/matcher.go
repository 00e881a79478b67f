package filter

import "regexp"

// Matcher is a compiled multi-pattern matcher. It answers a single question:
// which compiled pattern, if any, matches a candidate string. When several
// patterns match the same candidate, the highest compiled index wins, so
// callers that need a different precedence must arrange their compile order
// accordingly.
type Matcher struct {
	patterns []*regexp.Regexp
}

// newMatcher wraps already-compiled expressions in the given order.
func newMatcher(patterns []*regexp.Regexp) *Matcher {
	return &Matcher{patterns: patterns}
}

// Match returns the index of the matching pattern with the highest compiled
// index, or -1 when no pattern matches.
func (m *Matcher) Match(candidate string) int {
	for i := len(m.patterns) - 1; i >= 0; i-- {
		if m.patterns[i].MatchString(candidate) {
			return i
		}
	}
	return -1
}

// Len returns the number of compiled patterns.
func (m *Matcher) Len() int {
	return len(m.patterns)
}
