package keyvalue

import (
	"errors"
	"fmt"
)

// Sentinel errors for the host-side taxonomy. Access-control and capacity
// errors are always resolved locally, before any backend call.
var (
	// ErrAccessDenied: the store name is not in the caller's allow-list.
	// Checked first, so it never reveals whether the name exists.
	ErrAccessDenied = errors.New("access denied")

	// ErrNoSuchStore: the name passed the allow-list but no manager can
	// resolve it.
	ErrNoSuchStore = errors.New("no such store")

	// ErrStoreTableFull: the handle table is at capacity.
	ErrStoreTableFull = errors.New("store table full")

	// ErrInvalidHandle: the handle is unknown or already closed. Local and
	// non-retryable; never forwarded from a backend.
	ErrInvalidHandle = errors.New("invalid store handle")

	// ErrNoSuchKey is returned only by the legacy surface, whose get has
	// no way to express an absent key.
	ErrNoSuchKey = errors.New("no such key")

	// ErrUnsupported: the operation is not implemented by the resolved
	// store (extension interface missing) or the feature was requested in
	// a form the host does not implement (e.g. a real list-keys cursor).
	ErrUnsupported = errors.New("operation not supported")

	// ErrCasMismatch: a compare-and-swap lost the race.
	ErrCasMismatch = errors.New("compare-and-swap value mismatch")
)

// StoreError is an opaque backend failure, the catch-all arm of the
// taxonomy. The caching layer also uses it to surface failures that were
// deferred from an earlier asynchronous write.
type StoreError struct {
	Msg string
	Err error // optional underlying cause
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("store error: %s: %v", e.Msg, e.Err)
	}
	return "store error: " + e.Msg
}

func (e *StoreError) Unwrap() error { return e.Err }

// Otherf builds a StoreError from a format string, mirroring how backend
// failures collapse into an opaque message at the host boundary.
func Otherf(format string, args ...any) error {
	return &StoreError{Msg: fmt.Sprintf(format, args...)}
}
