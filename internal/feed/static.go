package feed

import (
	"context"
	"fmt"

	"github.com/soliform/notifeed/internal/types"
)

// Static bundles in-memory implementations of the resolver interfaces for
// deployments that configure users and preferences statically (the CLI,
// functional tests). The zero value resolves nothing.
type Static struct {
	// Users maps user id to identity.
	Users map[string]User

	// UserPreferences maps user id to the ordered preference list.
	UserPreferences map[string][]types.Preference

	// RegisteredFilters is the global filter registry.
	RegisteredFilters []Filter

	// StoredFilterPreferences maps user id to stored filter settings.
	StoredFilterPreferences map[string][]types.FilterPreference

	// KnownTypes is the descriptor registry. A nil map registers every
	// type; a non-nil map registers exactly its true entries.
	KnownTypes map[string]bool
}

// Resolve implements UserResolver.
func (s *Static) Resolve(_ context.Context, userID string) (User, error) {
	user, ok := s.Users[userID]
	if !ok {
		return User{}, fmt.Errorf("user %q not found", userID)
	}
	return user, nil
}

// Preferences implements PreferenceResolver.
func (s *Static) Preferences(_ context.Context, user string, enabledOnly bool, format types.Format) ([]types.Preference, error) {
	var out []types.Preference
	for _, pref := range s.UserPreferences[user] {
		if enabledOnly && !pref.Enabled {
			continue
		}
		if pref.Format != format {
			continue
		}
		out = append(out, pref)
	}
	return out, nil
}

// Filters implements FilterResolver.
func (s *Static) Filters(_ context.Context, _ string, _ bool) ([]Filter, error) {
	return s.RegisteredFilters, nil
}

// FilterPreferences implements FilterResolver.
func (s *Static) FilterPreferences(_ context.Context, user string) ([]types.FilterPreference, error) {
	return s.StoredFilterPreferences[user], nil
}

// HasDescriptor implements DescriptorRegistry.
func (s *Static) HasDescriptor(_ context.Context, eventType, _ string) (bool, error) {
	if s.KnownTypes == nil {
		return true, nil
	}
	return s.KnownTypes[eventType], nil
}
