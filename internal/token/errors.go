package token

import "errors"

// Failure causes surfaced by the public contract. Registration never
// panics past it; callers get a nil token plus one of these so the UI can
// tell the user notifications are unavailable.
var (
	// ErrUnsupported means the platform lacks push messaging or secure
	// transport. Non-retryable; returned without side effects.
	ErrUnsupported = errors.New("push messaging not supported on this platform")

	// ErrPermissionDenied means the user declined notification permission.
	// Non-retryable until the user changes their settings; the agent never
	// re-prompts automatically.
	ErrPermissionDenied = errors.New("notification permission denied")

	// ErrRetriesExhausted means every token-fetch attempt failed
	// transiently and the attempt cap was reached.
	ErrRetriesExhausted = errors.New("token fetch retries exhausted")
)
