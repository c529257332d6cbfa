// Package store defines the persistence interfaces the agent depends on and
// the sentinel errors their implementations return. Concrete
// implementations live under internal/platform: postgres for the push-token
// system of record, sqlite for the agent-local durable store.
package store
