// Package filters narrows scan results by user-supplied queries.
// Matchers work on plain strings (group keys, node names) so callers
// decide which fields a query applies to.
package filters

import (
	"fmt"
	"regexp"
	"strings"
)

type Mode string

const (
	ModeContains Mode = "contains"
	ModeExact    Mode = "exact"
	ModeRegex    Mode = "regex"
)

// Matcher is one compiled query. Contains and exact matching are
// case-insensitive; regex patterns control their own flags.
type Matcher struct {
	mode    Mode
	pattern string
	re      *regexp.Regexp
}

// New compiles a query. An empty mode means ModeContains.
func New(mode Mode, pattern string) (*Matcher, error) {
	if mode == "" {
		mode = ModeContains
	}
	m := &Matcher{mode: mode, pattern: pattern}
	switch mode {
	case ModeContains, ModeExact:
	case ModeRegex:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("filter pattern: %w", err)
		}
		m.re = re
	default:
		return nil, fmt.Errorf("unknown filter mode %q", mode)
	}
	return m, nil
}

// Match reports whether s satisfies the query.
func (m *Matcher) Match(s string) bool {
	switch m.mode {
	case ModeExact:
		return strings.EqualFold(s, m.pattern)
	case ModeRegex:
		return m.re.MatchString(s)
	default:
		return strings.Contains(strings.ToLower(s), strings.ToLower(m.pattern))
	}
}

// MatchAny reports whether any candidate satisfies the query.
func (m *Matcher) MatchAny(candidates ...string) bool {
	for _, c := range candidates {
		if m.Match(c) {
			return true
		}
	}
	return false
}
