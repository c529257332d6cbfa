package intercept

import (
	"net/http"
	"path"
	"strings"
)

// Class is a coarse request classification used to route a request to the
// partition registered for that kind of content.
type Class int

const (
	// ClassNavigation is a document navigation (the client asking for HTML).
	ClassNavigation Class = iota
	// ClassImage is an image fetch.
	ClassImage
	// ClassAsset is a script or stylesheet fetch.
	ClassAsset
	// ClassFont is a web-font fetch.
	ClassFont
	// ClassOther is everything else.
	ClassOther
)

// String returns the class name for logging and partition registration.
func (c Class) String() string {
	switch c {
	case ClassNavigation:
		return "pages"
	case ClassImage:
		return "images"
	case ClassAsset:
		return "assets"
	case ClassFont:
		return "fonts"
	default:
		return "other"
	}
}

var (
	imageExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
		".webp": true, ".svg": true, ".ico": true, ".avif": true,
	}
	assetExtensions = map[string]bool{
		".js": true, ".mjs": true, ".css": true, ".map": true,
	}
	fontExtensions = map[string]bool{
		".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
	}
)

// Classify buckets a request by what the client is asking for. The Accept
// header is authoritative for navigations; file extension covers the static
// asset classes.
func Classify(req *http.Request) Class {
	accept := req.Header.Get("Accept")
	if strings.Contains(accept, "text/html") {
		return ClassNavigation
	}

	ext := strings.ToLower(path.Ext(req.URL.Path))
	switch {
	case imageExtensions[ext] || strings.HasPrefix(accept, "image/"):
		return ClassImage
	case assetExtensions[ext]:
		return ClassAsset
	case fontExtensions[ext] || strings.HasPrefix(accept, "font/"):
		return ClassFont
	default:
		return ClassOther
	}
}

// cacheableMethod reports whether the request is a safe, idempotent read.
// Only GET-equivalent requests are eligible for caching.
func cacheableMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == ""
}
