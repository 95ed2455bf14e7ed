// Package allowlist exempts files from protection by base name
package allowlist

import (
	"fmt"
	"path/filepath"
	"regexp"

	pperrors "github.com/filegirl/filegirl/pkg/errors"
)

// Matcher holds compiled white_names patterns. Patterns are matched in
// configuration order against the base name of a path, never the full path.
type Matcher struct {
	patterns []*regexp.Regexp
}

// New compiles every pattern once. The first pattern that fails to compile
// aborts with a PatternError.
func New(patterns []string) (*Matcher, error) {
	m := &Matcher{patterns: make([]*regexp.Regexp, 0, len(patterns))}

	for i, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, pperrors.NewPatternError(fmt.Sprintf("invalid white_names pattern #%d %q", i, pattern), err).
				WithContext("pattern", pattern)
		}
		m.patterns = append(m.patterns, re)
	}

	return m, nil
}

// IsExempt checks if a base name matches any pattern
func (m *Matcher) IsExempt(basename string) bool {
	if m == nil {
		return false
	}

	for _, re := range m.patterns {
		if re.MatchString(basename) {
			return true
		}
	}
	return false
}

// IsPathExempt checks the base name of path
func (m *Matcher) IsPathExempt(path string) bool {
	return m.IsExempt(filepath.Base(path))
}

// GetPatterns returns all configured patterns in order
func (m *Matcher) GetPatterns() []string {
	if m == nil {
		return nil
	}

	result := make([]string, len(m.patterns))
	for i, re := range m.patterns {
		result[i] = re.String()
	}
	return result
}
