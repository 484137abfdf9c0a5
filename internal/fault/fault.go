// Package fault defines the error taxonomy shared by every module that
// touches tenant data. Callers match with errors.Is; the HTTP layer maps each
// kind to a distinct status so "no access", "does not exist" and "try again"
// stay distinguishable.
package fault

import "errors"

var (
	// ErrUnauthenticated means no valid actor could be resolved.
	ErrUnauthenticated = errors.New("fault: unauthenticated")
	// ErrAccountDisabled means the actor exists but has been deactivated.
	ErrAccountDisabled = errors.New("fault: account disabled")
	// ErrNoStoreAccess means the actor has no active assignment to the
	// resource's store.
	ErrNoStoreAccess = errors.New("fault: no store access")
	// ErrPermissionNotGranted means an assignment exists but lacks the
	// requested capability.
	ErrPermissionNotGranted = errors.New("fault: permission not granted")
	// ErrNotFound covers both "does not exist" and "belongs to another
	// tenant". The two are indistinguishable on purpose.
	ErrNotFound = errors.New("fault: not found")
	// ErrIllegalTransition means the state machine rejected the move.
	ErrIllegalTransition = errors.New("fault: illegal transition")
	// ErrValidationFailed means malformed input was caught before storage.
	ErrValidationFailed = errors.New("fault: validation failed")
	// ErrConcurrentModification means an atomic conditional update lost the
	// race. Safe to retry once at the call site, never inside the core.
	ErrConcurrentModification = errors.New("fault: concurrent modification")
	// ErrConflict means a uniqueness constraint was violated.
	ErrConflict = errors.New("fault: resource conflict")
)
