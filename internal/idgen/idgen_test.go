package idgen

import (
	"sort"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func TestGenerator_NewLogID_Width(t *testing.T) {
	g := New(nil)
	for i := 0; i < 100; i++ {
		id := g.NewLogID()
		if len(id) != LogIDWidth {
			t.Fatalf("len(%q) = %d, want %d", id, len(id), LogIDWidth)
		}
	}
}

func TestGenerator_NewLogID_TimestampPrefix(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 34, 56, 789*int(time.Millisecond), time.UTC)}
	g := New(clock)

	id := g.NewLogID()
	if got, want := id[:15], "250601123456789"; got != want {
		t.Errorf("prefix = %q, want %q", got, want)
	}
}

func TestGenerator_NewLogID_Unique(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	g := New(clock)

	// Same tick: the random suffix must keep IDs distinct
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := g.NewLogID()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestGenerator_NewLogID_TimeOrdered(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	g := New(clock)

	var ids []string
	for i := 0; i < 10; i++ {
		ids = append(ids, g.NewLogID())
		clock.t = clock.t.Add(time.Second)
	}

	if !sort.StringsAreSorted(ids) {
		t.Errorf("ids across distinct ticks are not lexicographically ordered: %v", ids)
	}
}
