package feed

import (
	"context"
	"log/slog"

	"github.com/soliform/notifeed/internal/expr"
	"github.com/soliform/notifeed/internal/store"
	"github.com/soliform/notifeed/internal/types"
)

/*
 * Count-driven search loop.
 *
 * The target bounds composite events, not raw events, and how many raw
 * events produce one composite is unknowable up front. So the searcher
 * fetches fixed-size batches, re-groups the whole accumulated buffer each
 * round, and stops when the composite count reaches the target or the
 * store runs dry. Every round re-runs the same query minus the ids
 * already buffered, so the buffer grows monotonically and a composite is
 * never split across rounds.
 */

// batchSize is the raw-event page requested per store round trip. Any
// finite value preserves correctness; it only trades round trips against
// over-fetch.
const batchSize = 50

// Searcher drives the iterative fetch loop against an event store.
type Searcher struct {
	store store.EventStore
	log   *slog.Logger
}

// NewSearcher creates a searcher. A nil logger falls back to the default.
func NewSearcher(eventStore store.EventStore, log *slog.Logger) *Searcher {
	if log == nil {
		log = slog.Default()
	}
	return &Searcher{store: eventStore, log: log}
}

// Search executes the query until target composite events are produced or
// the store is exhausted. Results preserve the store's newest-first
// order of first appearance.
func (s *Searcher) Search(ctx context.Context, root expr.Node, target int) ([]*types.CompositeEvent, error) {
	var (
		buffer     []types.Event
		seen       = map[types.EventID]struct{}{}
		seenOrder  []types.EventID
		composites []*types.CompositeEvent
	)

	for round := 0; ; round++ {
		batch, err := s.store.Search(ctx, excludeIDs(root, seenOrder), batchSize)
		if err != nil {
			return nil, err
		}

		for _, e := range batch {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			seenOrder = append(seenOrder, e.ID)
			buffer = append(buffer, e)
		}

		composites = Group(buffer)
		s.log.Debug("search round done",
			"round", round,
			"fetched", len(batch),
			"buffered", len(buffer),
			"composites", len(composites),
		)

		if len(composites) >= target {
			return composites[:target], nil
		}
		if len(batch) < batchSize {
			return composites, nil
		}
	}
}

// CountRaw counts the raw events matched by the query, without grouping,
// up to the cap.
func (s *Searcher) CountRaw(ctx context.Context, root expr.Node, cap int) (int, error) {
	var (
		seen      = map[types.EventID]struct{}{}
		seenOrder []types.EventID
	)

	for {
		batch, err := s.store.Search(ctx, excludeIDs(root, seenOrder), batchSize)
		if err != nil {
			return 0, err
		}

		for _, e := range batch {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			seenOrder = append(seenOrder, e.ID)
		}

		if len(seen) >= cap {
			return cap, nil
		}
		if len(batch) < batchSize {
			return len(seen), nil
		}
	}
}

// excludeIDs threads an id-exclusion condition under the root's ordering
// wrappers so re-queries skip already-buffered events.
func excludeIDs(root expr.Node, ids []types.EventID) expr.Node {
	if len(ids) == 0 {
		return root
	}
	values := make([]expr.Node, 0, len(ids))
	for _, id := range ids {
		values = append(values, expr.String(string(id)))
	}
	exclusion := expr.NotInValues(expr.Prop("id"), values...)

	if ob, ok := root.(expr.OrderBy); ok {
		ob.Child = excludeIDs(ob.Child, ids)
		return ob
	}
	return expr.AndOf(root, exclusion)
}
