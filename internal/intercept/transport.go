// Package intercept hooks every outbound request the client makes,
// classifies it, and dispatches it through the matching cache strategy, or
// lets it pass through untouched. It implements http.RoundTripper so it can
// be installed as the transport of the application's HTTP client.
package intercept

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/vigil/internal/cache"
)

// maxCacheableBody caps how much of a response the transport will buffer
// for caching. Larger responses pass through unstored.
const maxCacheableBody = 4 << 20

// Transport is the interception layer. Failure semantics: a network failure
// on a cache-ineligible request propagates to the caller unchanged; on a
// cache-eligible request with no cached match it also propagates, except for
// navigations, which receive the offline fallback page.
type Transport struct {
	base        http.RoundTripper
	manager     *cache.Manager
	denylist    []string
	offlinePage []byte
	onActivity  func(context.Context)
	logger      *slog.Logger
}

// Option customizes a Transport.
type Option func(*Transport)

// WithActivityCallback installs a callback invoked on every intercepted
// request. The supervisor uses it to refresh the liveness record.
func WithActivityCallback(fn func(context.Context)) Option {
	return func(t *Transport) {
		t.onActivity = fn
	}
}

// WithOfflinePage sets the HTML document served to navigation requests when
// the network is unavailable and no cached match exists.
func WithOfflinePage(page []byte) Option {
	return func(t *Transport) {
		t.offlinePage = page
	}
}

// New creates the interception transport. The denylist holds URL fragments
// (path prefixes in practice) that must always go straight to the network:
// remote-data-store API calls, authentication endpoints, analytics beacons.
func New(base http.RoundTripper, manager *cache.Manager, denylist []string, logger *slog.Logger, opts ...Option) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &Transport{
		base:     base,
		manager:  manager,
		denylist: denylist,
		logger:   logger.With("component", "intercept"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.onActivity != nil {
		t.onActivity(req.Context())
	}

	// Non-idempotent requests pass through untouched.
	if !cacheableMethod(req.Method) {
		return t.base.RoundTrip(req)
	}

	// Denylisted targets always go straight to the network, even if they
	// superficially match another partition's admission predicate.
	if t.denied(req) {
		return t.base.RoundTrip(req)
	}

	partition, ok := t.manager.Route(req)
	if !ok {
		return t.base.RoundTrip(req)
	}

	switch partition.Strategy {
	case cache.CacheFirst:
		return t.cacheFirst(req, partition.Name)
	case cache.StaleWhileRevalidate:
		return t.staleWhileRevalidate(req, partition.Name)
	case cache.NetworkFirst:
		return t.networkFirst(req, partition.Name)
	default:
		return t.base.RoundTrip(req)
	}
}

func (t *Transport) denied(req *http.Request) bool {
	target := req.URL.String()
	for _, d := range t.denylist {
		if strings.HasPrefix(req.URL.Path, d) || strings.Contains(target, d) {
			return true
		}
	}
	return false
}

// cacheFirst serves from cache when present and fresh, otherwise fetches
// and stores.
func (t *Transport) cacheFirst(req *http.Request, partition string) (*http.Response, error) {
	if entry, err := t.manager.Match(req.Context(), partition, req); err == nil {
		return cachedResponse(req, entry), nil
	}

	resp, err := t.fetchAndStore(req, partition)
	if err != nil {
		return t.maybeOffline(req, err)
	}
	return resp, nil
}

// staleWhileRevalidate returns a cached match immediately while a detached
// fetch refreshes the entry for next time. On a miss it behaves like
// cacheFirst.
func (t *Transport) staleWhileRevalidate(req *http.Request, partition string) (*http.Response, error) {
	entry, err := t.manager.Match(req.Context(), partition, req)
	if err != nil {
		resp, fetchErr := t.fetchAndStore(req, partition)
		if fetchErr != nil {
			return t.maybeOffline(req, fetchErr)
		}
		return resp, nil
	}

	// Refresh outside the request's lifetime: the caller already has its
	// answer and must not be held up or cancelled along with it.
	refreshReq := req.Clone(context.WithoutCancel(req.Context()))
	go func() {
		resp, err := t.fetchAndStore(refreshReq, partition)
		if err != nil {
			t.logger.Debug("background revalidation failed",
				"url", refreshReq.URL.String(),
				"error", err)
			return
		}
		// The refreshed body was already stored; the response itself is
		// unwanted.
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	return cachedResponse(req, entry), nil
}

// networkFirst attempts the network with a fallback to cache on failure.
func (t *Transport) networkFirst(req *http.Request, partition string) (*http.Response, error) {
	resp, err := t.fetchAndStore(req, partition)
	if err == nil {
		return resp, nil
	}

	if entry, matchErr := t.manager.Match(req.Context(), partition, req); matchErr == nil {
		t.logger.Debug("network failed, serving cached response",
			"url", req.URL.String())
		return cachedResponse(req, entry), nil
	}

	return t.maybeOffline(req, err)
}

// fetchAndStore performs the network fetch and stores a successful response
// body in the partition. Cache writes never fail the request.
func (t *Transport) fetchAndStore(req *http.Request, partition string) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK || resp.Body == nil {
		return resp, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCacheableBody+1))
	closeErr := resp.Body.Close()
	if err != nil || closeErr != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	if len(body) > maxCacheableBody {
		return resp, nil
	}

	contentType := resp.Header.Get("Content-Type")
	if putErr := t.manager.Put(req.Context(), partition, req, body, contentType); putErr != nil {
		t.logger.Warn("failed to store response in cache",
			"partition", partition,
			"url", req.URL.String(),
			"error", putErr)
	}

	return resp, nil
}

// maybeOffline substitutes the offline fallback page for failed
// navigations. Every other failure propagates unchanged.
func (t *Transport) maybeOffline(req *http.Request, err error) (*http.Response, error) {
	if Classify(req) != ClassNavigation || len(t.offlinePage) == 0 {
		return nil, err
	}
	t.logger.Info("serving offline fallback page",
		"url", req.URL.String(),
		"error", err)
	return &http.Response{
		Status:     http.StatusText(http.StatusOK),
		StatusCode: http.StatusOK,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header: http.Header{
			"Content-Type":  []string{"text/html; charset=utf-8"},
			"X-Vigil-Cache": []string{"offline-fallback"},
		},
		Body:          io.NopCloser(bytes.NewReader(t.offlinePage)),
		ContentLength: int64(len(t.offlinePage)),
		Request:       req,
	}, nil
}

// cachedResponse materializes a stored entry as an HTTP response.
func cachedResponse(req *http.Request, entry *cache.Entry) *http.Response {
	header := http.Header{
		"X-Vigil-Cache": []string{"hit"},
	}
	if entry.ContentType != "" {
		header.Set("Content-Type", entry.ContentType)
	}
	return &http.Response{
		Status:        http.StatusText(http.StatusOK),
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(entry.Body)),
		ContentLength: int64(len(entry.Body)),
		Request:       req,
	}
}
