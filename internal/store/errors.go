package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. This is a generic version of the entity-specific not found
	// errors (e.g., ErrTokenNotFound, ErrEntryNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate of
	// a unique entity (e.g., a push token with the same value).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrQuotaExceeded is returned when the agent-local store rejects a
	// write for lack of space. The cache manager handles it by purging the
	// offending partition; it is never propagated to the request caller.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// Entity-specific errors

	// ErrTokenNotFound indicates that the requested push token does not
	// exist in the store.
	ErrTokenNotFound = fmt.Errorf("%w: push token", ErrNotFound)

	// ErrEntryNotFound indicates a cache miss: no stored entry matches the
	// requested key, or the matching entry has expired.
	ErrEntryNotFound = fmt.Errorf("%w: cache entry", ErrNotFound)

	// ErrTokenValueExists indicates that a push token with the given value
	// already exists. Callers resolve this by updating the existing row
	// instead of failing (the insert/update conflict fallback).
	ErrTokenValueExists = fmt.Errorf("%w: token value", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsQuotaError checks if the error indicates an exhausted storage quota.
func IsQuotaError(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}
