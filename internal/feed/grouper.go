package feed

import "github.com/soliform/notifeed/internal/types"

/*
 * Similarity grouping.
 *
 * Folds a chronologically ordered event stream into composite events. An
 * event merges into the first open composite that already holds an event
 * with the same document AND (same type OR same group id); otherwise it
 * starts a new composite. Composites stay open for the remainder of the
 * scan: two "update" events on one document that share no group id stay
 * separate, while an "update" followed by an "addComment" carrying the
 * same group id merge (the comment action also emits an update that must
 * not show as its own entry).
 *
 * Determinism: for a fixed input order the output is stable, and a
 * composite's position is the position of its first event.
 */

// Group folds an ordered event sequence into composite events, preserving
// first-appearance order.
func Group(events []types.Event) []*types.CompositeEvent {
	var out []*types.CompositeEvent

	for _, e := range events {
		merged := false
		for _, composite := range out {
			if composite.Matches(e) {
				composite.Add(e)
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, types.NewCompositeEvent(e))
		}
	}

	return out
}
