package models

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrCredentialInactive = errors.New("credential is inactive")
	ErrSyncInProgress     = errors.New("sync already in progress")
	ErrSyncDisabled       = errors.New("sync is disabled")
	ErrDecryptionFailed   = errors.New("decryption failed")
	ErrConflictResolved   = errors.New("conflict already resolved")
	ErrNotFound           = errors.New("not found")
)

// InputError reports missing or invalid arguments. Never retried.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid input %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// AuthError reports rejected credentials or tokens. The HTTP layer
// performs exactly one token invalidation and retry before surfacing it.
type AuthError struct {
	Op      string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: authentication failed: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: authentication failed", e.Op)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TemporaryError reports a failure the remote declared transient.
type TemporaryError struct {
	Op      string
	Message string
}

func (e *TemporaryError) Error() string {
	return fmt.Sprintf("%s: temporary error: %s", e.Op, e.Message)
}

// ValidationError reports a payload the remote rejected. The remote
// message is surfaced verbatim.
type ValidationError struct {
	Op      string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation failed: %s", e.Op, e.Message)
}

// FatalError reports an unrecoverable remote failure.
type FatalError struct {
	Op      string
	Message string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: fatal error: %s", e.Op, e.Message)
}

// UnknownError reports a response code outside the documented taxonomy.
type UnknownError struct {
	Op      string
	Code    int
	Message string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("%s: unexpected response code %d: %s", e.Op, e.Code, e.Message)
}

// NetworkError reports a transport-level failure.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError reports an expired request deadline.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// DecryptError wraps ErrDecryptionFailed. The reason stays generic so
// callers cannot distinguish bad format from a wrong key.
type DecryptError struct {
	Err error
}

func (e *DecryptError) Error() string { return fmt.Sprintf("decrypt: %v", e.Err) }

func (e *DecryptError) Unwrap() error { return e.Err }

// IsRetryable reports whether the retry policy should attempt the
// request again. Only transient remote errors, network failures and
// timeouts qualify; everything else surfaces immediately.
func IsRetryable(err error) bool {
	var (
		tmp *TemporaryError
		net *NetworkError
		to  *TimeoutError
	)
	return errors.As(err, &tmp) || errors.As(err, &net) || errors.As(err, &to)
}
