package feed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/soliform/notifeed/internal/expr"
	"github.com/soliform/notifeed/internal/store/memory"
	"github.com/soliform/notifeed/internal/types"
)

// seedStore fills a memory store with n "update" events per document,
// newest first by construction.
func seedStore(documents []string, perDocument int) *memory.Store {
	s := memory.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	i := 0
	for _, document := range documents {
		for j := 0; j < perDocument; j++ {
			s.Add(types.Event{
				ID:       types.EventID(fmt.Sprintf("e%03d", i)),
				Type:     "update",
				Document: document,
				Date:     base.Add(time.Duration(-i) * time.Minute),
			})
			i++
		}
	}
	return s
}

func feedQuery() expr.Node {
	return expr.SortBy(expr.Eq(expr.Prop("type"), expr.String("update")), "date", expr.SortDesc)
}

func TestSearch_ReachesTarget(t *testing.T) {
	// 120 events over 3 documents group into 3 composites; asking for 2
	// must stop early and return exactly 2.
	s := seedStore([]string{"A", "B", "C"}, 40)

	composites, err := NewSearcher(s, nil).Search(context.Background(), feedQuery(), 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(composites) != 2 {
		t.Fatalf("len(composites) = %d, want 2", len(composites))
	}
}

func TestSearch_Exhaustion(t *testing.T) {
	// 10 events on one document group into a single composite; a target
	// of 5 drains the store and returns what exists.
	s := seedStore([]string{"A"}, 10)

	composites, err := NewSearcher(s, nil).Search(context.Background(), feedQuery(), 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(composites) != 1 {
		t.Fatalf("len(composites) = %d, want 1", len(composites))
	}
	if len(composites[0].Events) != 10 {
		t.Errorf("composite holds %d events, want all 10", len(composites[0].Events))
	}
}

func TestSearch_BufferSpansBatches(t *testing.T) {
	// More events than one batch on a single document: rounds beyond the
	// first must extend the same composite, never split it.
	s := seedStore([]string{"A"}, batchSize*2+7)

	composites, err := NewSearcher(s, nil).Search(context.Background(), feedQuery(), 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(composites) != 1 {
		t.Fatalf("len(composites) = %d, want 1", len(composites))
	}
	if len(composites[0].Events) != batchSize*2+7 {
		t.Errorf("composite holds %d events, want %d", len(composites[0].Events), batchSize*2+7)
	}
}

func TestSearch_NewestFirst(t *testing.T) {
	s := seedStore([]string{"A", "B"}, 3)

	composites, err := NewSearcher(s, nil).Search(context.Background(), feedQuery(), 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(composites) != 2 {
		t.Fatalf("len(composites) = %d, want 2", len(composites))
	}
	if composites[0].Document != "A" || composites[1].Document != "B" {
		t.Errorf("composite order = %s, %s; want newest document first",
			composites[0].Document, composites[1].Document)
	}
	if composites[0].LatestDate.Before(composites[1].LatestDate) {
		t.Error("first composite should hold the newest event")
	}
}

func TestCountRaw(t *testing.T) {
	t.Run("counts raw events not composites", func(t *testing.T) {
		s := seedStore([]string{"A"}, 12)

		count, err := NewSearcher(s, nil).CountRaw(context.Background(), feedQuery(), 100)
		if err != nil {
			t.Fatalf("CountRaw() error = %v", err)
		}
		if count != 12 {
			t.Errorf("CountRaw() = %d, want 12", count)
		}
	})

	t.Run("cap applies", func(t *testing.T) {
		s := seedStore([]string{"A", "B"}, batchSize)

		count, err := NewSearcher(s, nil).CountRaw(context.Background(), feedQuery(), 30)
		if err != nil {
			t.Fatalf("CountRaw() error = %v", err)
		}
		if count != 30 {
			t.Errorf("CountRaw() = %d, want capped at 30", count)
		}
	})

	t.Run("count can exceed composite count", func(t *testing.T) {
		s := seedStore([]string{"A"}, 9)
		searcher := NewSearcher(s, nil)

		count, err := searcher.CountRaw(context.Background(), feedQuery(), 100)
		if err != nil {
			t.Fatalf("CountRaw() error = %v", err)
		}
		composites, err := searcher.Search(context.Background(), feedQuery(), 100)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if count <= len(composites) {
			t.Errorf("raw count %d should exceed composite count %d", count, len(composites))
		}
	})
}

func TestExcludeIDs(t *testing.T) {
	root := feedQuery()

	t.Run("no ids returns root unchanged", func(t *testing.T) {
		if got := excludeIDs(root, nil); got != expr.Node(root) {
			t.Error("excludeIDs() must return the root unchanged for no ids")
		}
	})

	t.Run("exclusion lands under ordering", func(t *testing.T) {
		got := excludeIDs(root, []types.EventID{"e1"})
		ob, ok := got.(expr.OrderBy)
		if !ok {
			t.Fatalf("excludeIDs() = %T, want ordering preserved at the root", got)
		}
		and, ok := ob.Child.(expr.And)
		if !ok {
			t.Fatalf("ordering child = %T, want And", ob.Child)
		}
		not, ok := and.Right.(expr.Not)
		if !ok {
			t.Fatalf("And right = %T, want Not(In)", and.Right)
		}
		if _, ok := not.Child.(expr.In); !ok {
			t.Errorf("Not child = %T, want In", not.Child)
		}
	})
}
