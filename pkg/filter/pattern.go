// Package filter implements the pattern-based device admission filter: an
// ordered list of accept/reject patterns compiled into a multi-pattern
// matcher, evaluated against every alias of a candidate block device.
package filter

import (
	"regexp"

	"k8s.io/klog/v2"
)

// Polarity says whether a matching pattern admits or rejects a device name.
type Polarity bool

const (
	Accept Polarity = true
	Reject Polarity = false
)

// Pattern is one parsed filter entry.
type Pattern struct {
	Polarity Polarity
	Body     string
}

// PatternSet is an immutable compiled pattern list. It is safe for unlimited
// concurrent use once built.
//
// Patterns are compiled in reverse configuration order: the pattern at
// configuration position i lands at matcher index N-1-i. The matcher prefers
// the highest compiled index on ties, so the earliest configured pattern wins
// when several patterns match the same alias.
type PatternSet struct {
	matcher  *Matcher
	accept   []bool
	patterns []Pattern
}

// parsePattern splits a raw pattern string into its polarity and body.
//
// The first character must be 'a' (accept) or 'r' (reject). The second
// character selects a separator: '(' pairs with ')', '[' with ']', '{' with
// '}', any other character closes with itself. The remainder must end with
// exactly that separator; the trimmed remainder becomes the body.
func parsePattern(raw string) (Pattern, error) {
	if raw == "" {
		return Pattern{}, &ConfigError{Pattern: raw, Err: ErrBadPolarity}
	}

	var polarity Polarity
	switch raw[0] {
	case 'a':
		polarity = Accept
	case 'r':
		polarity = Reject
	default:
		return Pattern{}, &ConfigError{Pattern: raw, Err: ErrBadPolarity}
	}

	rest := raw[1:]
	if rest == "" {
		return Pattern{}, &ConfigError{Pattern: raw, Err: ErrUnterminatedPattern}
	}

	var sep byte
	switch rest[0] {
	case '(':
		sep = ')'
	case '[':
		sep = ']'
	case '{':
		sep = '}'
	default:
		sep = rest[0]
	}
	rest = rest[1:]

	if rest == "" || rest[len(rest)-1] != sep {
		return Pattern{}, &ConfigError{Pattern: raw, Err: ErrUnterminatedPattern}
	}

	body := rest[:len(rest)-1]
	if body == "" {
		return Pattern{}, &ConfigError{Pattern: raw, Err: ErrEmptyPattern}
	}

	return Pattern{Polarity: polarity, Body: body}, nil
}

// Compile parses and compiles an ordered pattern list. A single malformed
// pattern fails the whole compile; no partial PatternSet is produced.
func Compile(patterns []string) (*PatternSet, error) {
	count := len(patterns)
	compiled := make([]*regexp.Regexp, count)
	accept := make([]bool, count)
	parsed := make([]Pattern, count)

	// Fill back to front: the matcher gives the opposite precedence to what
	// the configuration order requires.
	for i, raw := range patterns {
		p, err := parsePattern(raw)
		if err != nil {
			return nil, err
		}
		re, err := regexp.Compile(p.Body)
		if err != nil {
			return nil, &ConfigError{Pattern: raw, Err: err}
		}
		ix := count - 1 - i
		compiled[ix] = re
		accept[ix] = bool(p.Polarity)
		parsed[i] = p
	}

	klog.V(4).Infof("Compiled %d filter patterns", count)
	return &PatternSet{matcher: newMatcher(compiled), accept: accept, patterns: parsed}, nil
}

// Len returns the number of compiled patterns.
func (ps *PatternSet) Len() int {
	return ps.matcher.Len()
}

// Patterns returns the parsed patterns in configuration order.
func (ps *PatternSet) Patterns() []Pattern {
	return ps.patterns
}

// Match evaluates a single device name against the set. It returns the
// polarity of the winning pattern, or ok=false when nothing matched.
func (ps *PatternSet) Match(name string) (polarity Polarity, ok bool) {
	m := ps.matcher.Match(name)
	if m < 0 {
		return Reject, false
	}
	return Polarity(ps.accept[m]), true
}
