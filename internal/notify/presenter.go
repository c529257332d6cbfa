package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/phrazzld/vigil/internal/domain"
)

// Renderer is the system-notification surface the application shell
// provides. Rendering can fail on unsupported platforms; failures are
// swallowed and logged because a failed notification must never crash the
// agent.
type Renderer interface {
	Show(ctx context.Context, intent domain.NotificationIntent) error
}

// Window is one open application window.
type Window interface {
	// URL returns the window's current location.
	URL() string

	// Focus brings the window to the front.
	Focus(ctx context.Context) error

	// Navigate points the window at the given URL.
	Navigate(ctx context.Context, url string) error
}

// WindowClient enumerates and opens application windows.
type WindowClient interface {
	// Windows lists the currently open application windows.
	Windows(ctx context.Context) ([]Window, error)

	// Open opens a new window at the given URL.
	Open(ctx context.Context, url string) error
}

// ForegroundSink receives in-app notification events when the application
// is visible: operating-system notifications for a foregrounded app are
// suppressed on visibility grounds, so the shell renders its own alert.
type ForegroundSink interface {
	Notify(ctx context.Context, intent domain.NotificationIntent)
}

// Presenter renders incoming push payloads and routes notification clicks.
type Presenter struct {
	renderer   Renderer
	windows    WindowClient
	foreground ForegroundSink
	origin     string
	logger     *slog.Logger
}

// NewPresenter creates a Presenter. The origin is the application's base
// URL, used to recognize our own windows during click routing.
func NewPresenter(renderer Renderer, windows WindowClient, foreground ForegroundSink, origin string, logger *slog.Logger) *Presenter {
	return &Presenter{
		renderer:   renderer,
		windows:    windows,
		foreground: foreground,
		origin:     strings.TrimRight(origin, "/"),
		logger:     logger.With("component", "notify"),
	}
}

// OnPush handles a push arriving while the agent runs in the background: it
// constructs an intent and renders it as a system notification. Render
// errors are swallowed and logged.
func (p *Presenter) OnPush(ctx context.Context, raw []byte) {
	payload, err := ParsePayload(raw)
	if err != nil {
		p.logger.Warn("discarding malformed push payload", "error", err)
		return
	}

	intent := payload.Intent()
	if err := p.renderer.Show(ctx, intent); err != nil {
		p.logger.Warn("failed to render notification",
			"tag", intent.Tag,
			"error", err)
	}
}

// OnForegroundMessage handles a push arriving while the application is
// visible: instead of a system notification it triggers an in-app event.
func (p *Presenter) OnForegroundMessage(ctx context.Context, raw []byte) {
	payload, err := ParsePayload(raw)
	if err != nil {
		p.logger.Warn("discarding malformed foreground payload", "error", err)
		return
	}
	if p.foreground == nil {
		return
	}
	p.foreground.Notify(ctx, payload.Intent())
}

// OnNotificationClick resolves the intent's target route and routes the
// user there: an already open application window is focused and navigated;
// otherwise a new window opens at the target.
func (p *Presenter) OnNotificationClick(ctx context.Context, intent domain.NotificationIntent) {
	target := intent.TargetURL
	if target == "" {
		target = "/"
	}

	windows, err := p.windows.Windows(ctx)
	if err != nil {
		p.logger.Warn("failed to enumerate windows", "error", err)
		windows = nil
	}

	for _, w := range windows {
		if !strings.HasPrefix(w.URL(), p.origin) {
			continue
		}
		if err := w.Focus(ctx); err != nil {
			p.logger.Warn("failed to focus window", "error", err)
			continue
		}
		if err := w.Navigate(ctx, target); err != nil {
			p.logger.Warn("failed to navigate window", "error", err)
			continue
		}
		return
	}

	if err := p.windows.Open(ctx, p.origin+target); err != nil {
		p.logger.Warn("failed to open window",
			"target", target,
			"error", err)
	}
}
