package feed

import (
	"context"

	"github.com/soliform/notifeed/internal/expr"
)

/*
 * Query generation.
 *
 * Builds one filter expression per request: an OR group of per-preference
 * sub-expressions followed by global constraints in a fixed order
 * (blacklist exclusion, upper date bound, hidden-content exclusion,
 * pre-filter contributions, wiki scoping), sorted by event date
 * descending.
 *
 * A disabled preference, or one whose event type has no registered
 * descriptor, contributes nothing; its presence never alters what the
 * remaining preferences generate. A preference whose sub-expression
 * collapses to Empty likewise contributes nothing to the OR group rather
 * than matching everything.
 */

// Generator builds the filter expression for one request.
type Generator struct {
	descriptors DescriptorRegistry
}

// NewGenerator creates a generator backed by the given descriptor
// registry.
func NewGenerator(descriptors DescriptorRegistry) *Generator {
	return &Generator{descriptors: descriptors}
}

// Generate returns the filter expression for the request and the number
// of preferences that contributed a sub-expression. Callers must not
// execute the query when no preference contributed: an absent OR group is
// not a licence to match everything.
func (g *Generator) Generate(ctx context.Context, p *Parameters) (expr.Node, int, error) {
	descriptors := newDescriptorCache(g.descriptors, p.User)

	parts := []expr.Node{}
	if !p.FromDate.IsZero() {
		parts = append(parts, expr.Gte(expr.Prop("date"), expr.Date(p.FromDate)))
	}

	group, contributed, err := g.preferenceGroup(ctx, p, descriptors)
	if err != nil {
		return nil, 0, err
	}
	parts = append(parts, group)

	if len(p.Blacklist) > 0 {
		ids := make([]expr.Node, 0, len(p.Blacklist))
		for _, id := range p.Blacklist {
			ids = append(ids, expr.String(string(id)))
		}
		parts = append(parts, expr.NotInValues(expr.Prop("id"), ids...))
	}

	if !p.UntilDate.IsZero() {
		until := expr.Date(p.UntilDate)
		if p.UntilIncluded {
			parts = append(parts, expr.Lte(expr.Prop("date"), until))
		} else {
			parts = append(parts, expr.Lt(expr.Prop("date"), until))
		}
	}

	if !p.ShowHidden {
		parts = append(parts, expr.ImplicitEq(expr.Prop("hidden"), expr.Bool(false)))
	}

	for _, f := range p.Filters {
		if !f.InPhase(PhasePre) || f.GlobalExpression == nil {
			continue
		}
		parts = append(parts, f.GlobalExpression(p))
	}

	if p.OwnWiki != "" && p.OwnWiki != p.MainWiki {
		parts = append(parts, expr.Eq(expr.Prop("wiki"), expr.String(p.OwnWiki)))
	}

	root := expr.SortBy(expr.AndOf(parts...), "date", expr.SortDesc)
	return root, contributed, nil
}

// preferenceGroup OR-combines the per-preference sub-expressions and
// reports how many preferences contributed one.
func (g *Generator) preferenceGroup(ctx context.Context, p *Parameters, descriptors *descriptorCache) (expr.Node, int, error) {
	subs := []expr.Node{}
	for _, pref := range p.Preferences {
		if !pref.Enabled {
			continue
		}
		known, err := descriptors.has(ctx, pref.EventType)
		if err != nil {
			return nil, 0, err
		}
		if !known {
			continue
		}

		sub := expr.AndOf(
			expr.Eq(expr.Prop("type"), expr.String(pref.EventType)),
			expr.Gte(expr.Prop("date"), expr.Date(pref.StartDate)),
		)

		orParts := []expr.Node{}
		andParts := []expr.Node{}
		for _, f := range p.Filters {
			if !f.Matches(pref) {
				continue
			}
			if f.OrExpression != nil {
				orParts = append(orParts, f.OrExpression(p, pref))
			}
			if f.AndExpression != nil {
				andParts = append(andParts, f.AndExpression(p, pref))
			}
		}
		sub = expr.AndOf(sub, expr.OrOf(orParts...), expr.AndOf(andParts...))

		if expr.IsEmpty(sub) {
			continue
		}
		subs = append(subs, sub)
	}
	return expr.OrOf(subs...), len(subs), nil
}
