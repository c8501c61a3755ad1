package middleware

import "strings"

const wildcardSuffix = "/**"

// PathMatcher reports whether a request path is on the public allow-list.
// Patterns are exact paths or prefixes ending in "/**", which match the
// prefix itself and everything below it.
type PathMatcher struct {
	exact    map[string]struct{}
	prefixes []string
}

// NewPathMatcher compiles patterns into a matcher. Blank patterns are ignored.
func NewPathMatcher(patterns []string) PathMatcher {
	m := PathMatcher{exact: make(map[string]struct{}, len(patterns))}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.HasSuffix(p, wildcardSuffix) {
			m.prefixes = append(m.prefixes, strings.TrimSuffix(p, wildcardSuffix))
			continue
		}
		m.exact[p] = struct{}{}
	}
	return m
}

// Match reports whether path is public.
func (m PathMatcher) Match(path string) bool {
	if _, ok := m.exact[path]; ok {
		return true
	}
	for _, prefix := range m.prefixes {
		if prefix == "" || path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
