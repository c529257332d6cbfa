package cache

import (
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"

	"github.com/zeebo/blake3"
)

// Key derives the normalized request identity used as the cache key. Two
// requests that differ only in query-parameter order or fragment identify
// the same entry.
func Key(req *http.Request) string {
	sum := blake3.Sum256([]byte(req.Method + " " + normalizeURL(req.URL)))
	return hex.EncodeToString(sum[:])
}

// normalizeURL renders a URL with its query parameters sorted and its
// fragment dropped.
func normalizeURL(u *url.URL) string {
	normalized := *u
	normalized.Fragment = ""
	if normalized.RawQuery != "" {
		// url.Values.Encode sorts keys.
		normalized.RawQuery = normalized.Query().Encode()
	}
	normalized.Host = strings.ToLower(normalized.Host)
	normalized.Scheme = strings.ToLower(normalized.Scheme)
	return normalized.String()
}
