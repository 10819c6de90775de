// Package status defines the error taxonomy shared across the engine.
//
// The network's tensor/node construction, compile, and checkpoint-load
// paths return these sentinel errors wrapped with context via
// fmt.Errorf and %w, checked by callers with errors.Is. Layer
// constructors (NewConv2D, NewFC, ...) return plain errors that wrap no
// sentinel, and checkpoint writes and header reads return the underlying
// I/O error as is. Forward/backward/update do not return status:
// preconditions are validated at compile time so a compiled network cannot
// fault at step time barring a memory fault.
package status

import "errors"

var (
	// ErrInvalidParameter covers bad shapes, unknown tensor names,
	// out-of-range indices, and unsupported options.
	ErrInvalidParameter = errors.New("status: invalid parameter")

	// ErrInvalidData covers corrupt input, out-of-range labels, and
	// checkpoint/layer length mismatches.
	ErrInvalidData = errors.New("status: invalid data")

	// ErrFailedAlloc is a host allocation failure.
	ErrFailedAlloc = errors.New("status: failed allocation")

	// ErrAcceleratorAlloc is a device allocation failure.
	ErrAcceleratorAlloc = errors.New("status: accelerator allocation failed")

	// ErrInternal is an invariant violation the engine cannot recover from.
	ErrInternal = errors.New("status: internal error")

	// ErrUnknown is the fallback for unclassified failures.
	ErrUnknown = errors.New("status: unknown error")
)
