package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/phrazzld/vigil/internal/api/shared"
)

// FetchHandler proxies application fetches through the caching transport.
// The embedding shell routes its outbound requests here so they pick up the
// partition strategies and the offline fallback.
type FetchHandler struct {
	client *http.Client
	logger *slog.Logger
}

// NewFetchHandler creates a FetchHandler. The client's transport is
// expected to be the interception transport.
func NewFetchHandler(client *http.Client, logger *slog.Logger) *FetchHandler {
	return &FetchHandler{
		client: client,
		logger: logger.With("component", "fetch_handler"),
	}
}

// Fetch handles GET /fetch?url=...: it performs the request through the
// caching transport and relays status, content type and body.
func (h *FetchHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "url query parameter is required")
		return
	}
	parsed, err := url.Parse(target)
	if err != nil || !parsed.IsAbs() {
		shared.RespondWithError(w, r, http.StatusBadRequest, "url must be absolute")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, http.NoBody)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid url")
		return
	}
	// Forward the Accept header so navigation requests classify correctly.
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadGateway, "Fetch failed", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	if cacheState := resp.Header.Get("X-Vigil-Cache"); cacheState != "" {
		w.Header().Set("X-Vigil-Cache", cacheState)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Warn("relay interrupted", "error", err)
	}
}
