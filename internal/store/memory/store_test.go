package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/soliform/notifeed/internal/expr"
	"github.com/soliform/notifeed/internal/types"
)

func fixtureStore() *Store {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New()
	s.Add(
		types.Event{ID: "e1", Type: "update", Document: "Main.Welcome", Date: base,
			Wiki: "main", User: "alice", GroupID: "g1"},
		types.Event{ID: "e2", Type: "addComment", Document: "Main.Welcome", Date: base.Add(-time.Minute),
			Wiki: "main", User: "bob", GroupID: "g1",
			Attributes: map[string]any{"target": "alice", "mentions": 2}},
		types.Event{ID: "e3", Type: "update", Document: "Dev.Roadmap", Date: base.Add(-2 * time.Minute),
			Wiki: "dev", User: "alice", Hidden: true},
		types.Event{ID: "e4", Type: "create", Document: "HR.Handbook", Date: base.Add(-3 * time.Minute),
			Wiki: "main", User: "carol",
			Attributes: map[string]any{"creator": "carol"}},
	)
	return s
}

func search(t *testing.T, s *Store, filter expr.Node) []types.Event {
	t.Helper()
	events, err := s.Search(context.Background(), filter, 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	return events
}

func ids(events []types.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, string(e.ID))
	}
	return out
}

func TestSearch_Filters(t *testing.T) {
	s := fixtureStore()

	tests := []struct {
		name   string
		filter expr.Node
		want   []string
	}{
		{
			name:   "equality",
			filter: expr.Eq(expr.Prop("type"), expr.String("update")),
			want:   []string{"e1", "e3"},
		},
		{
			name:   "inequality",
			filter: expr.Neq(expr.Prop("user"), expr.String("alice")),
			want:   []string{"e2", "e4"},
		},
		{
			name: "date lower bound",
			filter: expr.Gte(expr.Prop("date"),
				expr.Date(time.Date(2026, 3, 1, 11, 59, 0, 0, time.UTC))),
			want: []string{"e1", "e2"},
		},
		{
			name:   "hidden exclusion",
			filter: expr.ImplicitEq(expr.Prop("hidden"), expr.Bool(false)),
			want:   []string{"e1", "e2", "e4"},
		},
		{
			name:   "membership",
			filter: expr.InValues(expr.Prop("type"), expr.String("update"), expr.String("create")),
			want:   []string{"e1", "e3", "e4"},
		},
		{
			name:   "negated membership",
			filter: expr.NotInValues(expr.Prop("id"), expr.String("e1"), expr.String("e3")),
			want:   []string{"e2", "e4"},
		},
		{
			name:   "prefix match",
			filter: expr.Prefix(expr.Prop("document"), expr.String("Main.")),
			want:   []string{"e1", "e2"},
		},
		{
			name: "or group",
			filter: expr.AndOf(
				expr.Eq(expr.Prop("wiki"), expr.String("main")),
				expr.OrOf(
					expr.Eq(expr.Prop("type"), expr.String("create")),
					expr.Eq(expr.Prop("user"), expr.String("bob")),
				),
			),
			want: []string{"e2", "e4"},
		},
		{
			name:   "attribute equality",
			filter: expr.Eq(expr.Prop("target"), expr.String("alice")),
			want:   []string{"e2"},
		},
		{
			name:   "absent attribute reads as empty string",
			filter: expr.Eq(expr.Prop("target"), expr.String("")),
			want:   []string{"e1", "e3", "e4"},
		},
		{
			name:   "non-empty attribute fails the empty comparison",
			filter: expr.Neq(expr.Prop("target"), expr.String("")),
			want:   []string{"e2"},
		},
		{
			name:   "ordering against an absent attribute matches nothing",
			filter: expr.Lte(expr.Prop("target"), expr.String("zzz")),
			want:   []string{"e2"},
		},
		{
			name:   "ordering over mixed types matches nothing",
			filter: expr.Gte(expr.Prop("mentions"), expr.String("1")),
			want:   []string{},
		},
		{
			name:   "property operand resolves against the event",
			filter: expr.Eq(expr.Prop("user"), expr.Prop("creator")),
			want:   []string{"e4"},
		},
		{
			name:   "empty filter matches all",
			filter: expr.Empty{},
			want:   []string{"e1", "e2", "e3", "e4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(search(t, s, tt.filter))
			if len(got) != len(tt.want) {
				t.Fatalf("matched %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("matched %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestSearch_SortAndLimit(t *testing.T) {
	s := fixtureStore()
	root := expr.SortBy(expr.Empty{}, "date", expr.SortDesc)

	events, err := s.Search(context.Background(), root, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := ids(events); len(got) != 2 || got[0] != "e1" || got[1] != "e2" {
		t.Errorf("Search() = %v, want two newest events", got)
	}

	asc, err := s.Search(context.Background(), expr.SortBy(expr.Empty{}, "date", expr.SortAsc), 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := ids(asc); got[0] != "e4" {
		t.Errorf("ascending Search() starts with %v, want e4", got[0])
	}
}

func TestSearch_SubqueryRejected(t *testing.T) {
	s := fixtureStore()
	root := expr.NotInSubquery(expr.Prop("id"), "SELECT event_id FROM event_status", nil)

	_, err := s.Search(context.Background(), root, 0)
	if !errors.Is(err, types.ErrWrongQueryKind) {
		t.Errorf("error = %v, want ErrWrongQueryKind", err)
	}
}

func TestSearch_CancelledContext(t *testing.T) {
	s := fixtureStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Search(ctx, expr.Empty{}, 0); err == nil {
		t.Error("Search() should fail on a cancelled context")
	}
}

func TestAdd_DeduplicatesIDs(t *testing.T) {
	s := New()
	e := types.Event{ID: "e1", Type: "update", Document: "A", Date: time.Now()}
	s.Add(e)
	s.Add(e)

	events := search(t, s, expr.Empty{})
	if len(events) != 1 {
		t.Errorf("len(events) = %d, want duplicate id ignored", len(events))
	}
}
