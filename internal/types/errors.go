package types

import "errors"

// Sentinel errors for notifeed operations.
var (
	// ErrFeed is the fixed user-facing failure for feed retrieval. Callers
	// wrap the underlying cause alongside it so errors.Is matches both.
	ErrFeed = errors.New("failed to get the list of notifications")

	// ErrCompile indicates an expression node the active compiler backend
	// cannot translate. Fatal: no partial query is ever executed.
	ErrCompile = errors.New("expression cannot be compiled")

	// ErrUnknownProperty indicates a property reference the backend cannot
	// map to a stored field.
	ErrUnknownProperty = errors.New("unknown event property")

	// ErrBadLiteral indicates a literal value outside the supported kinds
	// (string, bool, date, entity reference).
	ErrBadLiteral = errors.New("unsupported literal value")

	// ErrWrongQueryKind indicates a store adapter received a query in the
	// representation of the other backend.
	ErrWrongQueryKind = errors.New("query representation not supported by this store")
)
