// Package errs defines the domain error kinds shared across storage,
// redirect, the click pipeline and the IPC channel. Callers compare
// against these sentinels with errors.Is; storage implementations wrap
// the underlying driver error with github.com/pkg/errors before
// returning one of them so a stack trace survives to the log line.
package errs

import "errors"

var (
	// ErrNotFound means the code is not present in storage.
	ErrNotFound = errors.New("shortlinker: not found")
	// ErrGone means the code is present but expired.
	ErrGone = errors.New("shortlinker: gone")
	// ErrPasswordRequired means the link is password protected and either
	// no password was supplied or the supplied one did not match.
	ErrPasswordRequired = errors.New("shortlinker: password required")
	// ErrDatabaseTransient covers connection loss, timeout, deadlock —
	// safe to retry.
	ErrDatabaseTransient = errors.New("shortlinker: transient database error")
	// ErrDatabaseFatal covers schema mismatch or migration failure.
	ErrDatabaseFatal = errors.New("shortlinker: fatal database error")
	// ErrValidation covers invalid URL, invalid expiry, empty code, an
	// oversized batch, or malformed CSV.
	ErrValidation = errors.New("shortlinker: validation error")
	// ErrAlreadyReloading is returned when a reload is requested while one
	// is already in flight.
	ErrAlreadyReloading = errors.New("shortlinker: reload already in progress")
	// ErrServerNotRunning is a client-side IPC error: the socket refused
	// the connection or does not exist.
	ErrServerNotRunning = errors.New("shortlinker: server not running")
	// ErrTimeout means an IPC call exceeded its budget.
	ErrTimeout = errors.New("shortlinker: ipc call timed out")
	// ErrProtocol means malformed IPC framing or JSON.
	ErrProtocol = errors.New("shortlinker: ipc protocol error")
)
