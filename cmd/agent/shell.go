package main

import (
	"context"
	"log/slog"
	"strings"

	"github.com/phrazzld/vigil/internal/config"
	"github.com/phrazzld/vigil/internal/domain"
	"github.com/phrazzld/vigil/internal/notify"
	"github.com/phrazzld/vigil/internal/platform/provider"
	"github.com/phrazzld/vigil/internal/token"
)

// The types in this file are the agent's default host-shell integration.
// An embedding application replaces them with real platform surfaces; the
// standalone binary runs with these so every code path stays reachable.

// configCapabilities derives platform capabilities from configuration.
type configCapabilities struct {
	cfg config.PushConfig
}

func (c configCapabilities) PushSupported(_ context.Context) bool {
	return c.cfg.ProviderURL != "" && c.cfg.APIKey != ""
}

func (c configCapabilities) SecureTransport(_ context.Context) bool {
	return strings.HasPrefix(c.cfg.ProviderURL, "https://") ||
		strings.HasPrefix(c.cfg.ProviderURL, "http://localhost")
}

// grantedPermissions treats the standalone deployment as pre-authorized.
// The permission prompt belongs to an embedding shell with a user present.
type grantedPermissions struct{}

func (grantedPermissions) Status(_ context.Context) (token.PermissionState, error) {
	return token.PermissionGranted, nil
}

func (grantedPermissions) Request(_ context.Context) (token.PermissionState, error) {
	return token.PermissionGranted, nil
}

// providerReadiness gates token generation on the provider handle being
// initialized, reconstructing it when the host tore it down.
type providerReadiness struct {
	client *provider.Client
}

func (r providerReadiness) AwaitReady(ctx context.Context) error {
	if r.client.Ready(ctx) {
		return nil
	}
	return r.client.Initialize(ctx)
}

// logRenderer surfaces notifications through the structured log. The
// standalone binary has no display to draw on.
type logRenderer struct {
	logger *slog.Logger
}

func (r logRenderer) Show(_ context.Context, intent domain.NotificationIntent) error {
	r.logger.Info("notification",
		"title", intent.Title,
		"body", intent.Body,
		"tag", intent.Tag,
		"target_url", intent.TargetURL)
	return nil
}

// logWindowClient records window operations without a windowing system.
type logWindowClient struct {
	logger *slog.Logger
}

func (c logWindowClient) Windows(_ context.Context) ([]notify.Window, error) {
	return nil, nil
}

func (c logWindowClient) Open(_ context.Context, url string) error {
	c.logger.Info("open window", "url", url)
	return nil
}
