package feed

import (
	"github.com/soliform/notifeed/internal/expr"
	"github.com/soliform/notifeed/internal/types"
)

/*
 * Built-in filters.
 *
 * Each filter is a plain capability record; no behavior hides behind an
 * implementation class. The own-events filter is toggled by a stored
 * filter preference, the read-events filter is attached only when the
 * caller asks for unread events, and the addressee filter always runs in
 * the pre-filtering phase.
 */

// Filter names referenced by stored filter preferences.
const (
	OwnEventsFilterName  = "ownEvents"
	ReadEventsFilterName = "readEvents"
	AddresseeFilterName  = "eventAddressee"
)

// readEventsStatement selects the event ids the user has already read.
// Embedded verbatim as a subquery by the textual backend; stores without
// a relational status table reject it.
const readEventsStatement = "SELECT status.event_id FROM event_status status" +
	" WHERE status.user_id = :status_user AND status.read = true"

// OwnEventsFilter excludes activity performed by the requesting user,
// when the user's stored preference enables it.
func OwnEventsFilter() Filter {
	return Filter{
		Name:   OwnEventsFilterName,
		Phases: []Phase{PhasePre},
		AndExpression: func(p *Parameters, _ types.Preference) expr.Node {
			fp, ok := p.filterPreference(OwnEventsFilterName)
			if !ok || !fp.Enabled {
				return expr.Empty{}
			}
			return expr.Neq(expr.Prop("user"), expr.String(p.User))
		},
	}
}

// ReadEventsFilter excludes events already marked read by the user. The
// manager attaches it only for unread-only requests.
func ReadEventsFilter() Filter {
	return Filter{
		Name:   ReadEventsFilterName,
		Phases: []Phase{PhasePre},
		GlobalExpression: func(p *Parameters) expr.Node {
			return expr.NotInSubquery(expr.Prop("id"), readEventsStatement,
				map[string]any{"status_user": p.User})
		},
	}
}

// AddresseeFilter restricts the feed to events with no target or targeted
// at the requesting user. Stores read an absent target attribute as the
// empty string, so untargeted events pass either way.
func AddresseeFilter() Filter {
	return Filter{
		Name:   AddresseeFilterName,
		Phases: []Phase{PhasePre},
		GlobalExpression: func(p *Parameters) expr.Node {
			return expr.OrOf(
				expr.Eq(expr.Prop("target"), expr.String("")),
				expr.Eq(expr.Prop("target"), expr.String(p.User)),
			)
		},
	}
}
