// Package memory provides an embedded in-process event store. It consumes
// the structured query representation and is the reference backend for
// functional tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/soliform/notifeed/internal/expr"
	"github.com/soliform/notifeed/internal/query"
	"github.com/soliform/notifeed/internal/types"
)

// Store is an in-memory event log. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	events []types.Event
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Add appends events to the log. Events with ids already present are
// ignored, preserving the no-duplicate guarantee.
func (s *Store) Add(events ...types.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[types.EventID]struct{}, len(s.events))
	for _, got := range s.events {
		known[got.ID] = struct{}{}
	}
	for _, e := range events {
		if _, dup := known[e.ID]; dup {
			continue
		}
		known[e.ID] = struct{}{}
		s.events = append(s.events, e)
	}
}

// Search implements store.EventStore by compiling the filter with the
// structured backend and evaluating it in process.
func (s *Store) Search(ctx context.Context, filter expr.Node, limit int) ([]types.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q, err := query.CompileStructured(filter)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	snapshot := make([]types.Event, len(s.events))
	copy(snapshot, s.events)
	s.mu.RUnlock()

	var matched []types.Event
	for _, e := range snapshot {
		ok, err := evalAll(q.Conditions, e)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, e)
		}
	}

	applySorts(matched, q.Sorts)

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// applySorts orders events by the query's sort clauses. Keys are applied
// last to first with a stable sort so earlier clauses dominate.
func applySorts(events []types.Event, sorts []query.Sort) {
	for i := len(sorts) - 1; i >= 0; i-- {
		clause := sorts[i]
		sort.SliceStable(events, func(a, b int) bool {
			cmp, _ := compareOrder(fieldValue(events[a], clause.Property), fieldValue(events[b], clause.Property))
			if clause.Descending {
				return cmp > 0
			}
			return cmp < 0
		})
	}
}
