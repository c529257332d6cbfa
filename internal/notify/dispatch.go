package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/vigil/internal/domain"
	"github.com/phrazzld/vigil/internal/platform/provider"
	"github.com/phrazzld/vigil/internal/store"
)

// Sender delivers an intent to one registration value.
type Sender interface {
	Send(ctx context.Context, registration string, intent domain.NotificationIntent) error
}

// SectionResolver expands a section into its member user IDs. The CRUD
// collaborator owns the user directory and registers this at wiring time;
// the agent itself never decides targeting.
type SectionResolver func(ctx context.Context, sectionID string) ([]uuid.UUID, error)

// DispatchRequest is the collaborator contract: exactly one targeting mode
// is used per request.
type DispatchRequest struct {
	TargetUserIDs   []uuid.UUID       `json:"target_user_ids,omitempty"`
	TargetSectionID string            `json:"target_section_id,omitempty"`
	BroadcastToAll  bool              `json:"broadcast_to_all,omitempty"`
	Title           string            `json:"title"`
	Body            string            `json:"body"`
	Data            map[string]string `json:"data,omitempty"`
}

// DispatchResult reports how a dispatch went.
type DispatchResult struct {
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// Dispatcher resolves active tokens for a dispatch request and sends the
// notification through the provider. Per-token failures are logged, never
// propagated; a registration the provider reports gone is deactivated so it
// is not retried forever.
type Dispatcher struct {
	tokens   store.TokenStore
	sender   Sender
	sections SectionResolver
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher. sections may be nil when no
// collaborator provides a directory; section dispatches then fail cleanly.
func NewDispatcher(tokens store.TokenStore, sender Sender, sections SectionResolver, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		tokens:   tokens,
		sender:   sender,
		sections: sections,
		logger:   logger.With("component", "dispatcher"),
	}
}

// Dispatch sends the notification described by the request to every active
// token its targeting resolves to.
func (d *Dispatcher) Dispatch(ctx context.Context, req DispatchRequest) (DispatchResult, error) {
	intent := domain.NotificationIntent{
		Title:     req.Title,
		Body:      req.Body,
		Data:      req.Data,
		TargetURL: req.Data["url"],
	}
	if err := intent.Validate(); err != nil {
		return DispatchResult{}, fmt.Errorf("invalid dispatch: %w", err)
	}

	tokens, err := d.resolve(ctx, req)
	if err != nil {
		return DispatchResult{}, err
	}

	var result DispatchResult
	for _, t := range tokens {
		if err := d.sender.Send(ctx, t.Value, intent); err != nil {
			result.Failed++
			if errors.Is(err, provider.ErrTokenGone) {
				d.retire(ctx, t)
				continue
			}
			d.logger.Warn("notification delivery failed",
				"user_id", t.UserID,
				"error", err)
			continue
		}
		result.Delivered++
	}

	d.logger.Info("dispatch complete",
		"delivered", result.Delivered,
		"failed", result.Failed)
	return result, nil
}

func (d *Dispatcher) resolve(ctx context.Context, req DispatchRequest) ([]*domain.PushToken, error) {
	switch {
	case req.BroadcastToAll:
		return d.tokens.ActiveAll(ctx)
	case req.TargetSectionID != "":
		if d.sections == nil {
			return nil, fmt.Errorf("no section resolver configured")
		}
		userIDs, err := d.sections(ctx, req.TargetSectionID)
		if err != nil {
			return nil, fmt.Errorf("resolve section %s: %w", req.TargetSectionID, err)
		}
		return d.tokens.ActiveForUsers(ctx, userIDs)
	case len(req.TargetUserIDs) > 0:
		return d.tokens.ActiveForUsers(ctx, req.TargetUserIDs)
	default:
		return nil, fmt.Errorf("dispatch request has no target")
	}
}

// retire deactivates a token the provider no longer recognizes.
func (d *Dispatcher) retire(ctx context.Context, t *domain.PushToken) {
	d.logger.Info("retiring dead registration", "user_id", t.UserID)
	t.Deactivate()
	if err := d.tokens.UpdateByValue(ctx, t); err != nil {
		d.logger.Warn("failed to retire dead registration", "error", err)
	}
}
