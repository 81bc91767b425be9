package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/soliform/notifeed/internal/expr"
	"github.com/soliform/notifeed/internal/store"
	"github.com/soliform/notifeed/internal/store/memory"
	"github.com/soliform/notifeed/internal/types"
)

// failingStore errors on every search; tests use it to prove a request
// short-circuited before touching the store.
type failingStore struct{}

func (failingStore) Search(context.Context, expr.Node, int) ([]types.Event, error) {
	return nil, errors.New("store must not be queried")
}

func staticSetup(prefs ...types.Preference) *Static {
	return &Static{
		Users:           map[string]User{"alice": {ID: "alice", Wiki: "main"}},
		UserPreferences: map[string][]types.Preference{"alice": prefs},
	}
}

func newTestManager(t *testing.T, eventStore store.EventStore, static *Static) *Manager {
	t.Helper()
	m, err := NewManager(ManagerConfig{
		Store:       eventStore,
		Users:       static,
		Preferences: static,
		Filters:     static,
		Descriptors: static,
		MainWiki:    "main",
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func TestManager_GetEvents(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := memory.New()
	s.Add(
		types.Event{ID: "e1", Type: "update", Document: "A", Date: base},
		types.Event{ID: "e2", Type: "update", Document: "A", Date: base.Add(-time.Minute)},
		types.Event{ID: "e3", Type: "update", Document: "B", Date: base.Add(-2 * time.Minute)},
		types.Event{ID: "e4", Type: "addComment", Document: "B", Date: base.Add(-3 * time.Minute)},
	)

	m := newTestManager(t, s, staticSetup(
		types.Preference{EventType: "update", Enabled: true, Format: types.FormatAlert},
	))

	composites, err := m.GetEvents(context.Background(), "alice", false, 10)
	if err != nil {
		t.Fatalf("GetEvents() error = %v", err)
	}
	// e4 is filtered out by the preference; e1+e2 group, e3 stands alone.
	if len(composites) != 2 {
		t.Fatalf("len(composites) = %d, want 2", len(composites))
	}
	if composites[0].Document != "A" || len(composites[0].Events) != 2 {
		t.Errorf("first composite = %s with %d events, want A with 2",
			composites[0].Document, len(composites[0].Events))
	}
}

func TestManager_ShortCircuits(t *testing.T) {
	t.Run("no preferences", func(t *testing.T) {
		m := newTestManager(t, failingStore{}, staticSetup())
		composites, err := m.GetEvents(context.Background(), "alice", false, 10)
		if err != nil {
			t.Fatalf("GetEvents() error = %v", err)
		}
		if composites != nil {
			t.Errorf("composites = %v, want nil without store access", composites)
		}
	})

	t.Run("no preference contributes", func(t *testing.T) {
		static := staticSetup(types.Preference{EventType: "retired", Enabled: true, Format: types.FormatAlert})
		static.KnownTypes = map[string]bool{}
		m := newTestManager(t, failingStore{}, static)

		composites, err := m.GetEvents(context.Background(), "alice", false, 10)
		if err != nil {
			t.Fatalf("GetEvents() error = %v", err)
		}
		if composites != nil {
			t.Errorf("composites = %v, want nil without store access", composites)
		}
	})

	t.Run("non-positive count", func(t *testing.T) {
		m := newTestManager(t, failingStore{}, staticSetup())
		if _, err := m.GetEvents(context.Background(), "alice", false, 0); err != nil {
			t.Errorf("GetEvents() error = %v, want nil for zero count", err)
		}
		if _, err := m.GetEventsCount(context.Background(), "alice", false, -1); err != nil {
			t.Errorf("GetEventsCount() error = %v, want nil for negative count", err)
		}
	})
}

func TestManager_ErrorWrapping(t *testing.T) {
	t.Run("store failure", func(t *testing.T) {
		static := staticSetup(types.Preference{EventType: "update", Enabled: true, Format: types.FormatAlert})
		m := newTestManager(t, failingStore{}, static)

		_, err := m.GetEvents(context.Background(), "alice", false, 10)
		if !errors.Is(err, types.ErrFeed) {
			t.Errorf("error = %v, want ErrFeed", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		m := newTestManager(t, failingStore{}, staticSetup())
		_, err := m.GetEvents(context.Background(), "mallory", false, 10)
		if !errors.Is(err, types.ErrFeed) {
			t.Errorf("error = %v, want ErrFeed", err)
		}
	})
}

func TestManager_GetEventsCount(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := memory.New()
	for i := 0; i < 7; i++ {
		s.Add(types.Event{
			ID:       types.EventID(string(rune('a' + i))),
			Type:     "update",
			Document: "A",
			Date:     base.Add(time.Duration(-i) * time.Minute),
		})
	}

	m := newTestManager(t, s, staticSetup(
		types.Preference{EventType: "update", Enabled: true, Format: types.FormatAlert},
	))

	count, err := m.GetEventsCount(context.Background(), "alice", false, 100)
	if err != nil {
		t.Fatalf("GetEventsCount() error = %v", err)
	}
	if count != 7 {
		t.Errorf("GetEventsCount() = %d, want raw count 7", count)
	}
}

func TestNewManager_Validation(t *testing.T) {
	static := staticSetup()
	if _, err := NewManager(ManagerConfig{Users: static, Preferences: static, Filters: static, Descriptors: static}); err == nil {
		t.Error("NewManager() should reject a nil store")
	}
	if _, err := NewManager(ManagerConfig{Store: memory.New()}); err == nil {
		t.Error("NewManager() should reject nil resolvers")
	}
}
