package feed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soliform/notifeed/internal/expr"
	"github.com/soliform/notifeed/internal/store"
	"github.com/soliform/notifeed/internal/types"
)

/*
 * Orchestration façade.
 *
 * Resolves the user, preferences and filters, generates the query, runs
 * the searcher, and returns composite events. Every failure along the way
 * surfaces as the fixed-message domain error wrapping the original
 * cause; nothing is swallowed and no partial result escapes a failed
 * round.
 *
 * Short circuits: an empty enabled-preference set, or preferences that
 * all failed the descriptor check, return an empty result without ever
 * querying the store.
 */

// ManagerConfig wires the engine's collaborators.
type ManagerConfig struct {
	Store       store.EventStore
	Users       UserResolver
	Preferences PreferenceResolver
	Filters     FilterResolver
	Descriptors DescriptorRegistry

	// MainWiki is the farm's main wiki; feeds of users homed elsewhere
	// are scoped to their own wiki.
	MainWiki string

	// Log is optional; nil falls back to the default logger.
	Log *slog.Logger
}

// Manager exposes the notification feed to callers.
type Manager struct {
	store       store.EventStore
	users       UserResolver
	preferences PreferenceResolver
	filters     FilterResolver
	descriptors DescriptorRegistry
	mainWiki    string
	log         *slog.Logger
}

// NewManager creates the orchestration façade from its collaborators.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg.Users == nil || cfg.Preferences == nil || cfg.Filters == nil || cfg.Descriptors == nil {
		return nil, fmt.Errorf("resolvers cannot be nil")
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		store:       cfg.Store,
		users:       cfg.Users,
		preferences: cfg.Preferences,
		filters:     cfg.Filters,
		descriptors: cfg.Descriptors,
		mainWiki:    cfg.MainWiki,
		log:         log,
	}, nil
}

// GetEvents returns up to maxCount composite events for the user, newest
// first. With onlyUnread set, events already marked read are excluded in
// the query itself.
func (m *Manager) GetEvents(ctx context.Context, userID string, onlyUnread bool, maxCount int) ([]*types.CompositeEvent, error) {
	if maxCount <= 0 {
		return nil, nil
	}
	if maxCount > types.MaxCompositeEvents {
		maxCount = types.MaxCompositeEvents
	}

	root, ok, err := m.prepare(ctx, userID, onlyUnread, maxCount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrFeed, err)
	}
	if !ok {
		return nil, nil
	}

	composites, err := NewSearcher(m.store, m.log).Search(ctx, root, maxCount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrFeed, err)
	}
	return composites, nil
}

// GetEventsCount returns the raw (non-grouped) count of matching events,
// capped at maxCount. The count can legitimately exceed the composite
// count the same data would group into.
func (m *Manager) GetEventsCount(ctx context.Context, userID string, onlyUnread bool, maxCount int) (int, error) {
	if maxCount <= 0 {
		return 0, nil
	}
	if maxCount > types.MaxCountedEvents {
		maxCount = types.MaxCountedEvents
	}

	root, ok, err := m.prepare(ctx, userID, onlyUnread, maxCount)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", types.ErrFeed, err)
	}
	if !ok {
		return 0, nil
	}

	count, err := NewSearcher(m.store, m.log).CountRaw(ctx, root, maxCount)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", types.ErrFeed, err)
	}
	return count, nil
}

// prepare resolves collaborators and generates the query. The boolean
// result is false when the request short-circuits to an empty feed.
func (m *Manager) prepare(ctx context.Context, userID string, onlyUnread bool, expectedCount int) (expr.Node, bool, error) {
	user, err := m.users.Resolve(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("resolving user %q: %w", userID, err)
	}

	preferences, err := m.preferences.Preferences(ctx, user.ID, true, types.FormatAlert)
	if err != nil {
		return nil, false, fmt.Errorf("resolving preferences: %w", err)
	}
	if !anyEnabled(preferences) {
		m.log.Debug("no enabled preference, skipping feed", "user", user.ID)
		return nil, false, nil
	}

	filters, err := m.filters.Filters(ctx, user.ID, true)
	if err != nil {
		return nil, false, fmt.Errorf("resolving filters: %w", err)
	}
	filterPreferences, err := m.filters.FilterPreferences(ctx, user.ID)
	if err != nil {
		return nil, false, fmt.Errorf("resolving filter preferences: %w", err)
	}
	if onlyUnread {
		filters = append(filters, ReadEventsFilter())
	}

	p := &Parameters{
		User:              user.ID,
		Format:            types.FormatAlert,
		ExpectedCount:     expectedCount,
		Preferences:       preferences,
		Filters:           filters,
		FilterPreferences: filterPreferences,
		OwnWiki:           user.Wiki,
		MainWiki:          m.mainWiki,
		ShowHidden:        user.ShowHidden,
	}

	root, contributed, err := NewGenerator(m.descriptors).Generate(ctx, p)
	if err != nil {
		return nil, false, fmt.Errorf("generating query: %w", err)
	}
	if contributed == 0 {
		m.log.Debug("no preference contributed to the query", "user", user.ID)
		return nil, false, nil
	}
	return root, true, nil
}

func anyEnabled(preferences []types.Preference) bool {
	for _, pref := range preferences {
		if pref.Enabled {
			return true
		}
	}
	return false
}
