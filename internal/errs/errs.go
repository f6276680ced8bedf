// Package errs holds the sentinel errors shared by the bot's services and
// handlers. Callers wrap them with fmt.Errorf("...: %w") and match with errors.Is.
package errs

import "errors"

var (
	// ErrInvalidInput marks free text or arguments that do not match anything known.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned when the caller lacks the required role.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	ErrAlreadyBlocked = errors.New("user already blocked")
	ErrNotBlocked     = errors.New("user not blocked")
	ErrAlreadyAdmin   = errors.New("user already admin")
	ErrNotAdmin       = errors.New("user not admin")

	// ErrBlockedTarget is returned when promoting a blocked user.
	ErrBlockedTarget = errors.New("target user is blocked")
	// ErrPrivilegedTarget is returned when blocking an admin or super admin.
	ErrPrivilegedTarget = errors.New("target user is privileged")
	// ErrSuperAdminTarget is returned when demoting a configured super admin.
	ErrSuperAdminTarget = errors.New("target user is a super admin")

	// ErrLookupFailure is returned when a target identity does not resolve via the gateway.
	ErrLookupFailure = errors.New("lookup failed")
	// ErrDeliveryFailure wraps gateway send errors.
	ErrDeliveryFailure = errors.New("delivery failed")
	// ErrQuotaExceeded is returned when a user spent the download quota for the current window.
	ErrQuotaExceeded = errors.New("download quota exceeded")
)
