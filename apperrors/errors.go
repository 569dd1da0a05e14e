// Package apperrors collects the error taxonomy shared by every
// package in this module (spec.md §7). Each sentinel is wrapped with
// fmt.Errorf("...: %w", ...) at the call site so callers can still
// errors.Is/errors.As against the sentinel while getting a
// human-readable message.
package apperrors

import "errors"

var (
	// ErrReadOnlyStorage is raised by a mutation attempted on a View or
	// Lazy storage backend.
	ErrReadOnlyStorage = errors.New("read-only storage")

	// ErrTimeOutOfRange is raised when a write targets a time outside
	// the associated TimeFrame's bounds.
	ErrTimeOutOfRange = errors.New("time out of range")

	// ErrDuplicateEntityID is raised by an append whose entity id is
	// already present in the storage.
	ErrDuplicateEntityID = errors.New("duplicate entity id")

	// ErrEntityNotFound is raised by a lookup against an unknown id.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrBackendTypeMismatch is raised when materialisation or a cast
	// expects a different payload type than the one actually stored.
	ErrBackendTypeMismatch = errors.New("backend type mismatch")

	// ErrUnknownTransform is raised by a registry lookup for an
	// unregistered transform name.
	ErrUnknownTransform = errors.New("unknown transform")

	// ErrUnknownReduction is raised by a registry lookup for an
	// unregistered reduction name.
	ErrUnknownReduction = errors.New("unknown reduction")

	// ErrParameterParse is raised when a transform or reduction's JSON
	// parameters fail to deserialise or validate.
	ErrParameterParse = errors.New("parameter parse error")

	// ErrBindingMissingKey is raised when a parameter binding names a
	// value-store key that was never populated.
	ErrBindingMissingKey = errors.New("binding missing key")

	// ErrBindingTypeMismatch is raised when a bound value store scalar
	// cannot be JSON-coerced into the target parameter field.
	ErrBindingTypeMismatch = errors.New("binding type mismatch")

	// ErrShapeMismatch is raised by multi-input zipping when two inputs
	// disagree on cardinality at a shared time and neither broadcasts.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrTimeFrameMismatch is raised when two operands are expressed in
	// incompatible time frames and no converter was supplied.
	ErrTimeFrameMismatch = errors.New("time frame mismatch")

	// ErrCancelled is raised when a Context's cancellation token fired
	// during pipeline execution.
	ErrCancelled = errors.New("cancelled")

	// ErrInvariantViolation marks an internal consistency failure. It is
	// not meant to be recovered from by callers.
	ErrInvariantViolation = errors.New("invariant violation")
)
