package feed

import (
	"context"
	"testing"
	"time"

	"github.com/soliform/notifeed/internal/store/memory"
	"github.com/soliform/notifeed/internal/types"
)

func TestFilter_Matches(t *testing.T) {
	pref := types.Preference{EventType: "update", Enabled: true, Format: types.FormatAlert}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"unrestricted matches all", Filter{}, true},
		{"matching event type", Filter{EventTypes: []string{"update"}}, true},
		{"other event type", Filter{EventTypes: []string{"addComment"}}, false},
		{"matching format", Filter{Formats: []types.Format{types.FormatAlert}}, true},
		{"other format", Filter{Formats: []types.Format{types.FormatEmail}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(pref); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_InPhase(t *testing.T) {
	f := Filter{Phases: []Phase{PhasePre}}
	if !f.InPhase(PhasePre) {
		t.Error("InPhase(PhasePre) = false, want true")
	}
	if f.InPhase(PhasePost) {
		t.Error("InPhase(PhasePost) = true, want false")
	}
}

// TestAddresseeFilter runs the filter end to end over the embedded store:
// untargeted events, with or without the attribute present, and events
// targeted at the user pass; others drop.
func TestAddresseeFilter(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := memory.New()
	s.Add(
		types.Event{ID: "e1", Type: "update", Document: "A", Date: base,
			Attributes: map[string]any{"target": ""}},
		types.Event{ID: "e2", Type: "update", Document: "B", Date: base.Add(-time.Minute),
			Attributes: map[string]any{"target": "alice"}},
		types.Event{ID: "e3", Type: "update", Document: "C", Date: base.Add(-2 * time.Minute),
			Attributes: map[string]any{"target": "bob"}},
		types.Event{ID: "e4", Type: "update", Document: "D", Date: base.Add(-3 * time.Minute)},
	)

	g := NewGenerator(&Static{})
	root, contributed, err := g.Generate(context.Background(), &Parameters{
		User:        "alice",
		Preferences: []types.Preference{enabledPref("update", time.Time{})},
		Filters:     []Filter{AddresseeFilter()},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if contributed != 1 {
		t.Fatalf("contributed = %d, want 1", contributed)
	}

	events, err := s.Search(context.Background(), root, 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want untargeted and own-target only", len(events))
	}
	seen := map[types.EventID]bool{}
	for _, e := range events {
		seen[e.ID] = true
	}
	if seen["e3"] {
		t.Error("event targeted at another user must not appear")
	}
	if !seen["e4"] {
		t.Error("event without a target attribute must pass")
	}
}
