package relevance

import "strings"

// normalizePath lower-cases, converts backslashes to forward slashes, and
// strips leading slashes.
func normalizePath(p string) string {
	p = strings.ToLower(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimLeft(p, "/")
}

// PathsMatch reports whether two file paths refer to the same file.
// Matching is case-insensitive with separators normalized. Exact matches
// pass; otherwise the shorter path must be a suffix of the longer one and
// the character preceding the suffix must be '/', so "oauth.py" does not
// match "auth.py" while "/repo/src/auth.py" matches "auth.py".
func PathsMatch(a, b string) bool {
	na, nb := normalizePath(a), normalizePath(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	long, short := na, nb
	if len(nb) > len(na) {
		long, short = nb, na
	}
	if !strings.HasSuffix(long, short) {
		return false
	}
	return long[len(long)-len(short)-1] == '/'
}
