package store

import (
	"context"

	"github.com/phrazzld/vigil/internal/domain"
)

// MetaStore is the agent's durable key-value capability. It remembers the
// agent's own liveness timestamp and a single cached push-registration value
// across restarts. Everything else the agent holds in memory is disposable
// and reconstructed on demand.
type MetaStore interface {
	// Liveness returns the persisted liveness record.
	// Returns ErrNotFound if the agent has never recorded activity.
	Liveness(ctx context.Context) (domain.LivenessRecord, error)

	// SetLiveness persists the liveness record.
	SetLiveness(ctx context.Context, record domain.LivenessRecord) error

	// CachedRegistration returns the locally cached push-registration value.
	// Returns ErrNotFound if no value has been cached.
	CachedRegistration(ctx context.Context) (string, error)

	// SetCachedRegistration stores the current push-registration value.
	// An empty value clears the cache (used on deactivation).
	SetCachedRegistration(ctx context.Context, value string) error
}
