package events

import (
	"context"
	"log/slog"
	"sync"
)

// InMemoryEventEmitter fans entity events out to handlers registered in
// process. It is the only emitter the agent needs: collaborators post events
// over HTTP and everything downstream runs in the same binary.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	handlers []EventHandler
	logger   *slog.Logger
}

func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	return &InMemoryEventEmitter{
		logger: logger.With("component", "event_emitter"),
	}
}

// RegisterHandler subscribes a handler to all subsequent events.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.mu.Lock()
	e.handlers = append(e.handlers, handler)
	count := len(e.handlers)
	e.mu.Unlock()

	e.logger.Debug("event handler registered", "handler_count", count)
}

// EmitEvent delivers the event to every registered handler. A failing
// handler does not stop delivery to the rest; the first error is returned
// so the caller can surface it.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *EntityEvent) error {
	e.mu.RLock()
	handlers := make([]EventHandler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	if len(handlers) == 0 {
		e.logger.Warn("event dropped, no handlers registered",
			"event_id", event.ID,
			"entity", event.Entity,
			"action", event.Action)
		return nil
	}

	var firstErr error
	for _, handler := range handlers {
		err := handler.HandleEvent(ctx, event)
		if err == nil {
			continue
		}
		e.logger.Error("event handler failed",
			"error", err,
			"event_id", event.ID,
			"entity", event.Entity,
			"action", event.Action)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
