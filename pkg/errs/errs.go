// Package errs holds the sentinel error kinds shared across the core. Every
// package wraps one of these with fmt.Errorf's %w so callers can dispatch on
// kind with errors.Is while still getting a specific message, and so the CLI
// front end can map a kind to an exit code without string matching.
package errs

import "errors"

var (
	// ErrConfig marks a configuration value that failed validation at load
	// time: an out-of-range threshold, a missing required path, and so on.
	ErrConfig = errors.New("config error")

	// ErrAuthFailure marks a signature or AEAD authentication failure:
	// verify() returned false, or decrypt() hit a bad tag.
	ErrAuthFailure = errors.New("authentication failure")

	// ErrChainIntegrity marks a Merkle chain whose recomputed root doesn't
	// match the stored root, at any link.
	ErrChainIntegrity = errors.New("chain integrity compromised")

	// ErrKillSwitchTripped marks a request made after the kill-switch has
	// already tripped for this process. It never resets.
	ErrKillSwitchTripped = errors.New("kill-switch tripped")

	// ErrAdmissionDenied marks an action refused at admission: Ω fell below
	// the configured threshold, or the action's quality fell below the
	// Stabilizer's current Ψ-target.
	ErrAdmissionDenied = errors.New("admission denied")

	// ErrRotationStalled marks a key rotation that failed and could not be
	// retried into success before the next scheduled rotation was due.
	ErrRotationStalled = errors.New("key rotation stalled")

	// ErrSerialization marks a canonical-JSON encode/decode failure,
	// almost always a Metadata value outside the scalar/nested-map
	// contract types.Metadata documents.
	ErrSerialization = errors.New("serialization error")
)
