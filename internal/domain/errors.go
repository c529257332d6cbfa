// Package domain defines the core entities managed by the agent and the
// validation errors they can produce.
package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is returned when a domain entity fails validation. The
// specific errors below all wrap it, so callers can match the category
// with errors.Is(err, ErrValidation).
var ErrValidation = errors.New("validation failed")

var (
	// ErrEmptyUserID is returned when a token is missing its owner.
	ErrEmptyUserID = fmt.Errorf("%w: user ID cannot be empty", ErrValidation)

	// ErrEmptyTokenValue is returned when a push token has no value.
	ErrEmptyTokenValue = fmt.Errorf("%w: token value cannot be empty", ErrValidation)

	// ErrEmptyDeviceFingerprint is returned when a push token is missing
	// its device fingerprint.
	ErrEmptyDeviceFingerprint = fmt.Errorf("%w: device fingerprint cannot be empty", ErrValidation)

	// ErrEmptyPartitionName is returned when a cache partition has no name.
	ErrEmptyPartitionName = fmt.Errorf("%w: partition name cannot be empty", ErrValidation)

	// ErrInvalidPartitionVersion is returned when a cache partition version
	// is zero or negative.
	ErrInvalidPartitionVersion = fmt.Errorf("%w: partition version must be positive", ErrValidation)

	// ErrEmptyNotificationTitle is returned when a notification intent has
	// no title and no content to synthesize one from.
	ErrEmptyNotificationTitle = fmt.Errorf("%w: notification title cannot be empty", ErrValidation)
)
