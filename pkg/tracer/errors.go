package tracer

import "errors"

var (
	// ErrMissingTracingContext marks a record without trace identity. The
	// record is skipped, the run goes on.
	ErrMissingTracingContext = errors.New("missing tracing context")

	// ErrDuplicateCorrelation is returned when an identifier is cached twice
	// on the same side while the first entry is still unresolved.
	ErrDuplicateCorrelation = errors.New("duplicate correlation identifier")

	// ErrNoRootRecord means the trace has no unparented record yet.
	ErrNoRootRecord = errors.New("no root record")

	// ErrProfileNotFound is returned by a ProfileFinder for an unseen function.
	ErrProfileNotFound = errors.New("profile not found")
)
