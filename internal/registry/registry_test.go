package registry

import (
	"errors"
	"sync"
	"testing"

	"flyhard/pkg/types"
)

func TestRegistry_ResolveAllocatesFreshIDs(t *testing.T) {
	r := New(DefaultCapacity, nil)

	var prev int64
	for i := 0; i < 5; i++ {
		c := r.Resolve(types.UnresolvedID, "player", false, 0, 0)
		if c == nil {
			t.Fatalf("allocation %d failed", i)
		}
		if c.ID() <= prev {
			t.Fatalf("id %d not increasing (prev %d)", c.ID(), prev)
		}
		prev = c.ID()
	}
	if r.Live() != 5 {
		t.Errorf("Live() = %d, want 5", r.Live())
	}
}

func TestRegistry_ResolveKnownIDUpdatesAttributes(t *testing.T) {
	r := New(DefaultCapacity, nil)
	c := r.Resolve(types.UnresolvedID, "original", true, 3, 100)

	got := r.Resolve(c.ID(), "renamed", false, 2, 250)
	if got != c {
		t.Fatal("resolving a known id returned a different client")
	}
	if got.Name() != "renamed" || got.Host() || got.Lives() != 2 || got.Score() != 250 {
		t.Errorf("attributes not refreshed: name=%q host=%v lives=%d score=%d",
			got.Name(), got.Host(), got.Lives(), got.Score())
	}
	if r.Live() != 1 {
		t.Errorf("Live() = %d, want 1", r.Live())
	}
}

func TestRegistry_ResolveUnknownIDFails(t *testing.T) {
	r := New(DefaultCapacity, nil)
	r.Resolve(types.UnresolvedID, "player", false, 0, 0)

	// An id the registry never issued must not resolve, and must not
	// allocate either.
	if c := r.Resolve(100, "impostor", false, 0, 0); c != nil {
		t.Fatalf("unknown id resolved to client %d", c.ID())
	}
	if r.Live() != 1 {
		t.Errorf("Live() = %d, want 1", r.Live())
	}
}

func TestRegistry_CapacityEnforced(t *testing.T) {
	r := New(DefaultCapacity, nil)

	for i := 0; i < DefaultCapacity; i++ {
		if c := r.Resolve(types.UnresolvedID, "player", false, 0, 0); c == nil {
			t.Fatalf("allocation %d failed below capacity", i)
		}
	}
	if c := r.Resolve(types.UnresolvedID, "overflow", false, 0, 0); c != nil {
		t.Fatalf("overflow allocation succeeded with id %d", c.ID())
	}
	if r.Live() != DefaultCapacity {
		t.Errorf("Live() = %d, want %d", r.Live(), DefaultCapacity)
	}
}

func TestRegistry_CapacityEnforcedUnderContention(t *testing.T) {
	r := New(DefaultCapacity, nil)

	var wg sync.WaitGroup
	results := make(chan *Client, DefaultCapacity*2)
	for i := 0; i < DefaultCapacity*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- r.Resolve(types.UnresolvedID, "racer", false, 0, 0)
		}()
	}
	wg.Wait()
	close(results)

	created := 0
	seen := make(map[int64]bool)
	for c := range results {
		if c == nil {
			continue
		}
		created++
		if seen[c.ID()] {
			t.Fatalf("id %d allocated twice", c.ID())
		}
		seen[c.ID()] = true
	}
	if created != DefaultCapacity {
		t.Errorf("%d allocations succeeded, want exactly %d", created, DefaultCapacity)
	}
}

func TestRegistry_FindByIDSkipsHoles(t *testing.T) {
	r := New(DefaultCapacity, nil)
	a := r.Resolve(types.UnresolvedID, "a", false, 0, 0)
	b := r.Resolve(types.UnresolvedID, "b", false, 0, 0)
	c := r.Resolve(types.UnresolvedID, "c", false, 0, 0)

	// Punch a hole in the middle slot.
	r.Remove(b.ID())

	if got := r.FindByID(a.ID()); got != a {
		t.Error("client before the hole not found")
	}
	if got := r.FindByID(b.ID()); got != nil {
		t.Error("removed client still found")
	}
	if got := r.FindByID(c.ID()); got != c {
		t.Error("client after the hole not found")
	}

	// The hole is reusable without exceeding capacity accounting.
	d := r.Resolve(types.UnresolvedID, "d", false, 0, 0)
	if d == nil {
		t.Fatal("allocation into hole failed")
	}
	if d.ID() == b.ID() {
		t.Error("removed id was recycled")
	}
}

func TestRegistry_RemoveMarksClosing(t *testing.T) {
	r := New(DefaultCapacity, nil)
	c := r.Resolve(types.UnresolvedID, "doomed", false, 0, 0)

	if !r.Remove(c.ID()) {
		t.Fatal("Remove returned false for a live client")
	}
	if !c.Closing() {
		t.Error("removed client not marked closing")
	}
	// A closing client's id never resolves again.
	if got := r.Resolve(c.ID(), "ghost", false, 0, 0); got != nil {
		t.Error("removed id resolved to a client")
	}
	if r.Remove(c.ID()) {
		t.Error("second Remove returned true")
	}
}

func TestRegistry_PairValidation(t *testing.T) {
	r := New(DefaultCapacity, nil)
	a := r.Resolve(types.UnresolvedID, "a", true, 0, 0)
	b := r.Resolve(types.UnresolvedID, "b", false, 0, 0)
	c := r.Resolve(types.UnresolvedID, "c", false, 0, 0)

	if err := r.Pair(a.ID(), a.ID(), "s"); !errors.Is(err, ErrSelfPair) {
		t.Errorf("self pair error = %v, want ErrSelfPair", err)
	}
	if err := r.Pair(a.ID(), 999, "s"); !errors.Is(err, ErrClientNotFound) {
		t.Errorf("unknown partner error = %v, want ErrClientNotFound", err)
	}

	if err := r.Pair(a.ID(), b.ID(), "s1"); err != nil {
		t.Fatalf("valid pair failed: %v", err)
	}
	if err := r.Pair(c.ID(), a.ID(), "s2"); !errors.Is(err, ErrAlreadyPaired) {
		t.Errorf("pairing against a taken client = %v, want ErrAlreadyPaired", err)
	}

	if got := r.Partner(a.ID()); got != b {
		t.Error("a's partner is not b")
	}
	if got := r.Partner(b.ID()); got != a {
		t.Error("b's partner is not a")
	}
	if got := r.PairSession(a.ID()); got != "s1" || r.PairSession(b.ID()) != "s1" {
		t.Errorf("pair session not shared: a=%q b=%q", got, r.PairSession(b.ID()))
	}
}

func TestRegistry_PairRaceHasOneWinner(t *testing.T) {
	r := New(DefaultCapacity, nil)
	host := r.Resolve(types.UnresolvedID, "host", true, 0, 0)

	joiners := make([]*Client, 10)
	for i := range joiners {
		joiners[i] = r.Resolve(types.UnresolvedID, "joiner", false, 0, 0)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(joiners))
	for _, j := range joiners {
		wg.Add(1)
		go func(j *Client) {
			defer wg.Done()
			errs <- r.Pair(j.ID(), host.ID(), "race")
		}(j)
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
		} else if !errors.Is(err, ErrAlreadyPaired) {
			t.Errorf("unexpected pair error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("%d joins succeeded, want exactly 1", wins)
	}
}

func TestRegistry_RemoveUnpairsPartner(t *testing.T) {
	r := New(DefaultCapacity, nil)
	a := r.Resolve(types.UnresolvedID, "a", true, 0, 0)
	b := r.Resolve(types.UnresolvedID, "b", false, 0, 0)
	if err := r.Pair(a.ID(), b.ID(), "s"); err != nil {
		t.Fatal(err)
	}

	r.Remove(a.ID())

	if got := r.Partner(b.ID()); got != nil {
		t.Error("surviving partner still paired after removal")
	}
	if got := r.PairSession(b.ID()); got != "" {
		t.Errorf("surviving partner keeps session %q", got)
	}
}

func TestRegistry_OpenHosts(t *testing.T) {
	r := New(DefaultCapacity, nil)
	h1 := r.Resolve(types.UnresolvedID, "h1", true, 0, 0)
	r.Resolve(types.UnresolvedID, "guest", false, 0, 0)
	h2 := r.Resolve(types.UnresolvedID, "h2", true, 0, 0)
	h3 := r.Resolve(types.UnresolvedID, "h3", true, 0, 0)

	joiner := r.Resolve(types.UnresolvedID, "j", false, 0, 0)
	if err := r.Pair(joiner.ID(), h2.ID(), "s"); err != nil {
		t.Fatal(err)
	}

	open := r.OpenHosts()
	if len(open) != 2 {
		t.Fatalf("OpenHosts() returned %d clients, want 2", len(open))
	}
	if open[0] != h1 || open[1] != h3 {
		t.Errorf("OpenHosts() = [%d %d], want [%d %d]",
			open[0].ID(), open[1].ID(), h1.ID(), h3.ID())
	}
}

func TestRegistry_ResetKeepsIDMonotonic(t *testing.T) {
	r := New(DefaultCapacity, nil)
	c := r.Resolve(types.UnresolvedID, "before", false, 0, 0)

	r.Reset()

	if r.Live() != 0 {
		t.Errorf("Live() after reset = %d, want 0", r.Live())
	}
	next := r.Resolve(types.UnresolvedID, "after", false, 0, 0)
	if next.ID() <= c.ID() {
		t.Errorf("id %d issued after reset is not greater than %d", next.ID(), c.ID())
	}
}

func TestRegistry_OnCreateHookFires(t *testing.T) {
	r := New(DefaultCapacity, nil)

	calls := 0
	r.OnCreate(func() { calls++ })

	r.Resolve(types.UnresolvedID, "a", false, 0, 0)
	b := r.Resolve(types.UnresolvedID, "b", false, 0, 0)
	r.Resolve(b.ID(), "b", false, 0, 0) // check-in, not a creation

	if calls != 2 {
		t.Errorf("hook fired %d times, want 2", calls)
	}
}
