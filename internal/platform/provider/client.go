// Package provider implements the HTTP client for the push-delivery
// provider: registration fetch for the token manager, message delivery for
// the notification dispatcher, and the messaging-handle semantics the
// supervisor re-validates.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/vigil/internal/config"
	"github.com/phrazzld/vigil/internal/domain"
)

// ErrTokenGone is returned by Send when the provider reports the
// registration no longer exists. Dispatchers deactivate the token.
var ErrTokenGone = errors.New("push registration no longer exists")

// Client talks to the push provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger

	// The messaging handle is a short-lived in-memory resource: the host
	// may tear the agent down between events, so it is reconstructed on
	// demand rather than assumed to survive.
	mu          sync.Mutex
	initialized bool
}

// New creates a provider client from configuration.
func New(cfg config.PushConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.ProviderURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
		logger: logger.With("component", "push_provider"),
	}
}

// FetchRegistration requests a fresh registration value from the provider.
func (c *Client) FetchRegistration(ctx context.Context) (string, error) {
	if err := c.ensureInitialized(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/registrations", http.NoBody)
	if err != nil {
		return "", fmt.Errorf("build registration request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("registration request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode registration response: %w", err)
	}
	if payload.Token == "" {
		return "", fmt.Errorf("provider returned an empty token")
	}
	return payload.Token, nil
}

// Send delivers a notification intent to one registration value.
func (c *Client) Send(ctx context.Context, registration string, intent domain.NotificationIntent) error {
	body, err := json.Marshal(struct {
		To     string                    `json:"to"`
		Intent domain.NotificationIntent `json:"notification"`
	}{To: registration, Intent: intent})
	if err != nil {
		return fmt.Errorf("encode send payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: status %d", ErrTokenGone, resp.StatusCode)
	default:
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
}

// Ready implements supervisor.Messaging.
func (c *Client) Ready(_ context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// Initialize implements supervisor.Messaging. It performs a cheap probe so
// a broken configuration is caught by the self-healing loop instead of the
// next user-visible operation.
func (c *Client) Initialize(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.baseURL+"/v1/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider probe failed: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("provider unhealthy: status %d", resp.StatusCode)
	}

	c.mu.Lock()
	c.initialized = true
	c.mu.Unlock()
	c.logger.Debug("push messaging initialized")
	return nil
}

func (c *Client) ensureInitialized(ctx context.Context) error {
	c.mu.Lock()
	ok := c.initialized
	c.mu.Unlock()
	if ok {
		return nil
	}
	return c.Initialize(ctx)
}
