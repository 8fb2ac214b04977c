package router

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// matchWildcard matches value against a pattern where `*` is the only
// wildcard. All other glob metacharacters are escaped so filters like
// "[alert]*" or "renovate[bot]" match literally; doublestar still gives
// `*`/`**` their path-aware semantics (`feature/*`, `docs/**`).
func matchWildcard(pattern, value string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	ok, err := doublestar.Match(escapeGlobMeta(pattern), value)
	if err != nil {
		// Bad pattern never matches
		return false
	}
	return ok
}

var globMetaEscaper = strings.NewReplacer(
	`\`, `\\`,
	`[`, `\[`,
	`]`, `\]`,
	`{`, `\{`,
	`}`, `\}`,
	`?`, `\?`,
)

func escapeGlobMeta(pattern string) string {
	return globMetaEscaper.Replace(pattern)
}

// matchAnyWildcard reports whether value matches at least one pattern.
// An empty pattern list is non-restrictive.
func matchAnyWildcard(patterns []string, value string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if matchWildcard(p, value) {
			return true
		}
	}
	return false
}
