// Package feed implements the notification-feed engine: query generation
// from preferences and filters, similarity grouping of raw events, the
// count-driven search loop, and the orchestration façade.
package feed

import (
	"context"
	"time"

	"github.com/soliform/notifeed/internal/expr"
	"github.com/soliform/notifeed/internal/types"
)

// Phase distinguishes where a filter's effect applies.
type Phase int

const (
	// PhasePre filters are folded into the query sent to the store.
	PhasePre Phase = iota

	// PhasePost filters run over fetched events, outside this engine.
	PhasePost
)

// Parameters is the per-request configuration. Built once per request,
// then read-only.
type Parameters struct {
	// User is the serialized reference of the requesting user.
	User string

	// Format is the output channel being rendered.
	Format types.Format

	// FromDate is the global lower date bound; zero means unset.
	FromDate time.Time

	// UntilDate is the upper date bound; zero means unset.
	UntilDate time.Time

	// UntilIncluded selects an inclusive upper bound.
	UntilIncluded bool

	// ExpectedCount is the requested composite-event count.
	ExpectedCount int

	// Blacklist lists event ids that must never appear in results.
	Blacklist []types.EventID

	// Preferences is the ordered preference list for the user.
	Preferences []types.Preference

	// Filters is the ordered list of registered filters.
	Filters []Filter

	// FilterPreferences are the user's stored filter settings.
	FilterPreferences []types.FilterPreference

	// OwnWiki is the user's home wiki; MainWiki is the farm's main wiki.
	// Results are scoped to OwnWiki when the two differ.
	OwnWiki  string
	MainWiki string

	// ShowHidden is set when the user prefers to see hidden content.
	ShowHidden bool
}

// filterPreference returns the user's stored setting for a filter name.
func (p *Parameters) filterPreference(filterName string) (types.FilterPreference, bool) {
	for _, fp := range p.FilterPreferences {
		if fp.FilterName == filterName {
			return fp, true
		}
	}
	return types.FilterPreference{}, false
}

// Filter is a predicate contributor described by an explicit capability
// record: which phases it participates in and which preference types and
// formats it matches. Contribution funcs may be nil when a filter has
// nothing to add for that slot.
type Filter struct {
	// Name identifies the filter; filter preferences reference it.
	Name string

	// Phases lists the phases the filter participates in.
	Phases []Phase

	// EventTypes restricts matching to these preference event types;
	// empty matches all.
	EventTypes []string

	// Formats restricts matching to these output formats; empty matches
	// all.
	Formats []types.Format

	// OrExpression contributes a per-preference expression OR-combined
	// with other filters' contributions.
	OrExpression func(p *Parameters, pref types.Preference) expr.Node

	// AndExpression contributes a per-preference expression AND-combined
	// with other filters' contributions.
	AndExpression func(p *Parameters, pref types.Preference) expr.Node

	// GlobalExpression contributes a query-wide pre-filtering condition.
	GlobalExpression func(p *Parameters) expr.Node
}

// Matches reports whether the filter applies to a preference, per its
// capability record.
func (f Filter) Matches(pref types.Preference) bool {
	if len(f.Formats) > 0 && !containsFormat(f.Formats, pref.Format) {
		return false
	}
	if len(f.EventTypes) > 0 && !containsString(f.EventTypes, pref.EventType) {
		return false
	}
	return true
}

// InPhase reports whether the filter participates in a phase.
func (f Filter) InPhase(phase Phase) bool {
	for _, got := range f.Phases {
		if got == phase {
			return true
		}
	}
	return false
}

func containsFormat(haystack []types.Format, needle types.Format) bool {
	for _, got := range haystack {
		if got == needle {
			return true
		}
	}
	return false
}

func containsString(haystack []string, needle string) bool {
	for _, got := range haystack {
		if got == needle {
			return true
		}
	}
	return false
}

// User is the resolved identity of the requesting user.
type User struct {
	// ID is the serialized user reference.
	ID string

	// Wiki is the user's home wiki.
	Wiki string

	// ShowHidden is the user's hidden-content preference.
	ShowHidden bool
}

// UserResolver resolves a user identifier to its identity record.
type UserResolver interface {
	Resolve(ctx context.Context, userID string) (User, error)
}

// PreferenceResolver supplies the ordered notification preferences of a
// user for one output format.
type PreferenceResolver interface {
	Preferences(ctx context.Context, user string, enabledOnly bool, format types.Format) ([]types.Preference, error)
}

// FilterResolver supplies the registered filters and the user's stored
// filter preferences.
type FilterResolver interface {
	Filters(ctx context.Context, user string, onlyEnabled bool) ([]Filter, error)
	FilterPreferences(ctx context.Context, user string) ([]types.FilterPreference, error)
}

// DescriptorRegistry reports whether an event type has a registered
// descriptor for a user. Preferences referencing unknown types are
// silently skipped.
type DescriptorRegistry interface {
	HasDescriptor(ctx context.Context, eventType, user string) (bool, error)
}
