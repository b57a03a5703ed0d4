package cache

import "testing"

func TestSetGetRoundTrip(t *testing.T) {
	c := New[int](4)
	c.Set("a", 1)
	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Fatalf("Get(a) = %v, %v; want 1, true", v, ok)
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string](2)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // a is now MRU, b is LRU
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to survive eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("expected c to be present")
	}
}

func TestGetOrComputeCachesOnlyOnSuccess(t *testing.T) {
	c := New[int](4)
	calls := 0
	compute := func() (int, error) {
		calls++
		return 42, nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute("k", compute)
		if err != nil || v != 42 {
			t.Fatalf("unexpected result: %v, %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected compute to run once, ran %d times", calls)
	}
}

func TestStatsTracksHitsAndMisses(t *testing.T) {
	c := New[int](4)
	c.Get("missing")
	c.Set("k", 1)
	c.Get("k")
	c.Get("k")

	s := c.Stats()
	if s.Misses != 1 || s.Hits != 2 || s.Len != 1 {
		t.Fatalf("unexpected stats: %+v", s)
	}

	c.ResetStats()
	s = c.Stats()
	if s.Hits != 0 || s.Misses != 0 {
		t.Fatalf("expected reset counters, got %+v", s)
	}
}

func TestClearRemovesAllEntries(t *testing.T) {
	c := New[int](4)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after Clear, got %d entries", c.Len())
	}
}
