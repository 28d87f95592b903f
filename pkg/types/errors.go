// Package types defines the core domain model for the Hippos memory engine:
// memories, profiles, patterns, entities, and relationships, plus the error
// taxonomy every layer above the repositories converts its failures into.
package types

import "errors"

// Sentinel errors forming the taxonomy described in the error handling design.
// Every repository, index, and service method surfaces one of these (wrapped
// with context via fmt.Errorf("...: %w", err)) — never a bare backend error.
var (
	// ErrValidation means caller-supplied input violates a contract. Never retried.
	ErrValidation = errors.New("hippos: validation error")

	// ErrNotFound means no entity with the given id exists within the caller's tenant.
	// A tenant mismatch also surfaces as ErrNotFound, never as a permission error,
	// so that tenant existence cannot be probed from the outside.
	ErrNotFound = errors.New("hippos: not found")

	// ErrConflict means an optimistic-concurrency version check failed, or a
	// unique-key constraint (e.g. profile (tenant_id, user_id)) was violated.
	// Retriable by the caller after a fresh read.
	ErrConflict = errors.New("hippos: conflict")

	// ErrTimeout means a downstream deadline (repository, index, embedding
	// provider) expired. Ingestion surfaces it; maintenance swallows and retries
	// next cycle.
	ErrTimeout = errors.New("hippos: timeout")

	// ErrBackend means an unexpected failure from a repository or index that
	// isn't any of the above. The cause is always wrapped, never discarded.
	ErrBackend = errors.New("hippos: backend error")

	// ErrCancelled means the caller requested cancellation. This is normal
	// termination, not a failure — callers that triggered it must never see
	// this as an error.
	ErrCancelled = errors.New("hippos: cancelled")
)
