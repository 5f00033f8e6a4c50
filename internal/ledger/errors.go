package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors callers branch on. Validation and connectivity conditions
// are always returned, never panicked, so the station UI can surface them
// without ceremony.
var (
	// ErrNoStrategy means a facade operation ran before any storage
	// strategy was selected. That is a caller bug, not a runtime
	// condition.
	ErrNoStrategy = errors.New("no storage strategy selected")

	// ErrNotConnected is returned by networked mutations while the
	// transport does not believe itself connected.
	ErrNotConnected = errors.New("transport not connected")

	ErrNoSession          = errors.New("no active session")
	ErrSessionPaused      = errors.New("session is paused")
	ErrSessionCompleted   = errors.New("session has ended")
	ErrDuplicateToken     = errors.New("token already scanned this session")
	ErrTransactionMissing = errors.New("transaction not found")
)

// ValidationError marks malformed input: a missing team ID, an empty
// adjustment reason, and the like.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
