// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Storage failure kinds.
var (
	// ErrNotFound indicates a point lookup matched no record owned by the caller.
	ErrNotFound = errors.New("record not found")

	// ErrCreationImpossible indicates the backend refused to create the record
	// (missing owner, no identity returned).
	ErrCreationImpossible = errors.New("creation impossible")

	// ErrNotImplemented is returned by capability methods a backend does not provide.
	ErrNotImplemented = errors.New("not implemented")

	// ErrIO indicates a filesystem or connection level failure.
	ErrIO = errors.New("i/o failure")

	// ErrSerialization indicates a record could not be encoded or decoded.
	ErrSerialization = errors.New("serialization failure")

	// ErrBackend indicates the engine itself rejected the operation (bad query, constraint).
	ErrBackend = errors.New("backend failure")
)

// Search failure kinds.
var (
	// ErrSearchService wraps transport, auth and query errors from the remote index.
	ErrSearchService = errors.New("search service failure")
)

// Domain failure kinds.
var (
	// ErrValidation indicates the caller supplied an unusable argument.
	ErrValidation = errors.New("validation")

	// ErrUnauthorized indicates failed authentication at the boundary.
	ErrUnauthorized = errors.New("unauthorized")
)
