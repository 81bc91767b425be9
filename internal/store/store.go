// Package store defines the event-store boundary of the feed engine and
// hosts its backend adapters.
//
// Each adapter owns one compiler backend: the relational adapter compiles
// filter expressions to parameterized SQL, the Mongo and in-memory
// adapters compile to the structured representation. The engine only sees
// the EventStore interface.
package store

import (
	"context"

	"github.com/soliform/notifeed/internal/expr"
	"github.com/soliform/notifeed/internal/types"
)

// EventStore executes compiled filter expressions against a backing event
// log.
type EventStore interface {
	// Search returns events matching the filter, newest first, at most
	// limit of them. A result set never contains duplicate event ids.
	Search(ctx context.Context, filter expr.Node, limit int) ([]types.Event, error)
}
