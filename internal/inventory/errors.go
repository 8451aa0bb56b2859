package inventory

import "errors"

// Collection error taxonomy. Probe and channel errors are isolated at
// the per-target boundary and never abort a fan-out; they surface as
// Failure entries instead.
var (
	// ErrInvalidTarget marks a malformed target identifier, rejected
	// before any execution attempt.
	ErrInvalidTarget = errors.New("invalid target identifier")

	// ErrProbe marks a failed local system query for a target.
	ErrProbe = errors.New("probe failed")

	// ErrChannel marks a failed remote dispatch (unreachable host,
	// authentication, timeout).
	ErrChannel = errors.New("channel dispatch failed")
)

// Failure records one target whose probe did not produce records.
type Failure struct {
	Target string
	Cause  error
}

func (f Failure) Error() string {
	return f.Target + ": " + f.Cause.Error()
}

// Unwrap exposes the cause for errors.Is checks against the taxonomy.
func (f Failure) Unwrap() error {
	return f.Cause
}
