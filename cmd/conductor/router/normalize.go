package router

import "strings"

// NormalizeWebhookPath canonicalizes webhook paths so registration and
// routing agree on the index key: leading slash, no query string,
// lowercase, no trailing slash (except root).
func NormalizeWebhookPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	path = strings.ToLower(path)
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}
