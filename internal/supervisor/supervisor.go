// Package supervisor tracks the agent's liveness and heals it after long
// dormancy. The liveness record is durable: the host may tear the agent
// down between any two events, so "when did we last do useful work" lives
// in the agent store, not in a package variable.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/vigil/internal/domain"
	"github.com/phrazzld/vigil/internal/store"
)

// Messaging is the push-messaging handle the supervisor keeps alive. The
// concrete object is a short-lived in-memory resource, safely reconstructed
// on demand.
type Messaging interface {
	// Ready reports whether push messaging is currently initialized.
	Ready(ctx context.Context) bool

	// Initialize (re-)initializes push messaging without requiring the
	// user to reload anything.
	Initialize(ctx context.Context) error
}

// CacheJanitor is the slice of the cache manager the supervisor drives at
// activation.
type CacheJanitor interface {
	PurgeStale(ctx context.Context) ([]string, error)
}

// Status is the health-check reply sent back over the channel the ping
// arrived on.
type Status struct {
	IsResponding bool      `json:"is_responding"`
	Timestamp    time.Time `json:"timestamp"`
	LastActivity time.Time `json:"last_activity"`
}

// Config holds supervisor tuning.
type Config struct {
	// DormancyThreshold is the idle gap beyond which the next activation
	// is treated as a recovery event.
	DormancyThreshold time.Duration

	// RevalidateInterval is how often the background loop re-checks that
	// push messaging is still initialized.
	RevalidateInterval time.Duration
}

// DefaultConfig returns the observed production settings: a 45 minute
// dormancy threshold and hourly revalidation.
func DefaultConfig() Config {
	return Config{
		DormancyThreshold:  45 * time.Minute,
		RevalidateInterval: time.Hour,
	}
}

// Supervisor is the liveness and self-healing component.
type Supervisor struct {
	meta      store.MetaStore
	messaging Messaging
	caches    CacheJanitor
	config    Config
	clock     func() time.Time
	logger    *slog.Logger

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Option customizes a Supervisor.
type Option func(*Supervisor)

// WithClock overrides the time source. Used by tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Supervisor) {
		s.clock = clock
	}
}

// New creates a Supervisor.
func New(meta store.MetaStore, messaging Messaging, caches CacheJanitor, config Config, logger *slog.Logger, opts ...Option) *Supervisor {
	if config.DormancyThreshold <= 0 {
		config.DormancyThreshold = DefaultConfig().DormancyThreshold
	}
	if config.RevalidateInterval <= 0 {
		config.RevalidateInterval = DefaultConfig().RevalidateInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		meta:       meta,
		messaging:  messaging,
		caches:     caches,
		config:     config,
		clock:      time.Now,
		logger:     logger.With("component", "supervisor"),
		ctx:        ctx,
		cancelFunc: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Activate runs the activation sequence: detect dormancy, recover from it,
// and drop cache partitions left behind by older code versions. Called once
// whenever the agent comes up.
func (s *Supervisor) Activate(ctx context.Context) error {
	now := s.clock()

	record, err := s.meta.Liveness(ctx)
	switch {
	case store.IsNotFoundError(err):
		// First ever activation.
		s.logger.Info("no liveness record found, starting fresh")
	case err != nil:
		return fmt.Errorf("failed to read liveness record: %w", err)
	default:
		if gap := record.DormantFor(now); gap > s.config.DormancyThreshold {
			// Long dormancy is a recovery event: stamp fresh activity and
			// make sure messaging still works before anything depends on it.
			s.logger.Warn("recovering from dormancy",
				"dormant_for", gap.String(),
				"threshold", s.config.DormancyThreshold.String())
			if err := s.CheckMessaging(ctx); err != nil {
				s.logger.Error("messaging self-check failed during recovery",
					"error", err)
			}
		}
	}

	if err := s.meta.SetLiveness(ctx, domain.LivenessRecord{LastActivity: now}); err != nil {
		return fmt.Errorf("failed to write liveness record: %w", err)
	}

	purged, err := s.caches.PurgeStale(ctx)
	if err != nil {
		s.logger.Error("stale partition cleanup failed", "error", err)
	} else if len(purged) > 0 {
		s.logger.Info("activation cache cleanup done", "purged", purged)
	}

	return nil
}

// Touch records activity now. Called on every intercepted request, received
// push and keep-alive ping.
func (s *Supervisor) Touch(ctx context.Context) {
	if err := s.meta.SetLiveness(ctx, domain.LivenessRecord{LastActivity: s.clock()}); err != nil {
		s.logger.Warn("failed to persist liveness record", "error", err)
	}
}

// HealthCheck answers a health-check ping.
func (s *Supervisor) HealthCheck(ctx context.Context) Status {
	status := Status{
		IsResponding: true,
		Timestamp:    s.clock(),
	}
	if record, err := s.meta.Liveness(ctx); err == nil {
		status.LastActivity = record.LastActivity
	}
	return status
}

// KeepAlive records activity and returns the stamp for the reply.
func (s *Supervisor) KeepAlive(ctx context.Context) time.Time {
	now := s.clock()
	if err := s.meta.SetLiveness(ctx, domain.LivenessRecord{LastActivity: now}); err != nil {
		s.logger.Warn("failed to persist liveness record", "error", err)
	}
	return now
}

// CheckMessaging re-validates that push messaging is initialized and
// re-initializes it if not. Pure of timers so it is testable directly; the
// background loop and the periodic-sync hook both call it.
func (s *Supervisor) CheckMessaging(ctx context.Context) error {
	if s.messaging == nil {
		return nil
	}
	if s.messaging.Ready(ctx) {
		return nil
	}
	s.logger.Info("push messaging not initialized, repairing")
	if err := s.messaging.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to re-initialize messaging: %w", err)
	}
	return nil
}

// Start launches the periodic revalidation loop.
func (s *Supervisor) Start() {
	s.wg.Add(1)
	go s.revalidateLoop()
}

// Stop gracefully shuts down the background loop.
func (s *Supervisor) Stop() {
	s.cancelFunc()
	s.wg.Wait()
}

func (s *Supervisor) revalidateLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.RevalidateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.CheckMessaging(s.ctx); err != nil {
				s.logger.Error("periodic messaging check failed", "error", err)
			}
		}
	}
}
