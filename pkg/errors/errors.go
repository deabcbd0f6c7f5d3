package errors

import (
	"errors"
	"fmt"
)

var (
	ErrAuthenticationFailed  = errors.New("authentication failed")
	ErrBundleVersionNotFound = errors.New("bundle version not found")
	ErrStudentNotFound       = errors.New("student not found")
	ErrMultipleAccounts      = errors.New("multiple school accounts available")
	ErrRefreshInProgress     = errors.New("refresh already in progress")
)

// TransportError covers network failures, non-200 statuses and non-JSON
// bodies from the portal. It is never retried by the client itself.
type TransportError struct {
	Operation string
	Status    int
	Err       error
}

func (e TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport error during %s: status %d", e.Operation, e.Status)
	}
	return fmt.Sprintf("transport error during %s: %s", e.Operation, e.Err.Error())
}

func (e TransportError) Unwrap() error {
	return e.Err
}

func NewTransportError(operation string, status int, err error) error {
	return TransportError{
		Operation: operation,
		Status:    status,
		Err:       err,
	}
}

// AuthError marks failures that require re-entry of credentials rather
// than a retry: missing token, unusable salt, explicit login rejection.
type AuthError struct {
	Reason string
	Err    error
}

func (e AuthError) Error() string {
	return fmt.Sprintf("auth error: %s", e.Reason)
}

func (e AuthError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrAuthenticationFailed
}

func NewAuthError(reason string, err error) error {
	return AuthError{Reason: reason, Err: err}
}

// CooldownError rejects a manual refresh that arrives before the cooldown
// has elapsed. RemainingSeconds is exposed to the caller so the UI can
// tell the user how long to wait.
type CooldownError struct {
	RemainingSeconds int
}

func (e CooldownError) Error() string {
	return fmt.Sprintf("manual refresh blocked for another %d seconds", e.RemainingSeconds)
}

func IsCooldown(err error) (CooldownError, bool) {
	var ce CooldownError
	if errors.As(err, &ce) {
		return ce, true
	}
	return CooldownError{}, false
}

func IsAuth(err error) bool {
	var ae AuthError
	return errors.As(err, &ae) || errors.Is(err, ErrAuthenticationFailed)
}
