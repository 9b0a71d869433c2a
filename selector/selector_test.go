package selector

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeLedger struct {
	scores   map[string]float64
	counts   map[string]int
	recorded []string
	failAll  bool
}

func (f *fakeLedger) WindowScores(since int64) (map[string]float64, error) {
	if f.failAll {
		return nil, fmt.Errorf("ledger down")
	}
	return f.scores, nil
}

func (f *fakeLedger) SelectionCountsSince(since int64) (map[string]int, error) {
	if f.failAll {
		return nil, fmt.Errorf("ledger down")
	}
	// Copy so the selector's in-call bookkeeping doesn't alias our state.
	counts := map[string]int{}
	for k, v := range f.counts {
		counts[k] = v
	}
	return counts, nil
}

func (f *fakeLedger) RecordSelection(hotkey string, uid int64) error {
	f.recorded = append(f.recorded, hotkey)
	if f.counts == nil {
		f.counts = map[string]int{}
	}
	f.counts[hotkey]++
	return nil
}

type fakeProber struct {
	down map[int64]bool
}

func (f *fakeProber) Ping(ctx context.Context, candidates []Candidate, timeout time.Duration) map[int64]bool {
	reachable := map[int64]bool{}
	for _, c := range candidates {
		if !f.down[c.UID] {
			reachable[c.UID] = true
		}
	}
	return reachable
}

func testPool(n int) []Candidate {
	var pool []Candidate
	for i := 0; i < n; i++ {
		pool = append(pool, Candidate{
			UID:     int64(i),
			Hotkey:  fmt.Sprintf("hk-%d", i),
			Coldkey: fmt.Sprintf("ck-%d", i),
			Addr:    fmt.Sprintf("10.0.0.%d:8091", i),
		})
	}
	return pool
}

// noShuffle keeps pool order deterministic in tests.
func noShuffle(n int, swap func(i, j int)) {}

func newTestSelector(store Ledger, probe Prober) *Selector {
	return New(store, probe, zap.NewNop().Sugar(), Config{Shuffle: noShuffle})
}

func TestSelectReturnsRequested(t *testing.T) {
	store := &fakeLedger{}
	sel := newTestSelector(store, &fakeProber{})

	chosen, err := sel.Select(context.Background(), testPool(10), 4, nil)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(chosen) != 4 {
		t.Fatalf("Expected 4 participants, got %d", len(chosen))
	}

	seen := map[int64]bool{}
	for _, c := range chosen {
		if seen[c.UID] {
			t.Errorf("UID %d selected twice", c.UID)
		}
		seen[c.UID] = true
	}
}

func TestSelectEqualizesCountsOverFullCycle(t *testing.T) {
	store := &fakeLedger{}
	sel := newTestSelector(store, &fakeProber{})
	pool := testPool(8)

	// Two rounds of 4 touch every pool member exactly once.
	first, err := sel.Select(context.Background(), pool, 4, nil)
	if err != nil {
		t.Fatalf("First select failed: %v", err)
	}
	second, err := sel.Select(context.Background(), pool, 4, nil)
	if err != nil {
		t.Fatalf("Second select failed: %v", err)
	}

	seen := map[int64]bool{}
	for _, c := range append(first, second...) {
		if seen[c.UID] {
			t.Errorf("UID %d selected twice in one cycle", c.UID)
		}
		seen[c.UID] = true
	}
	if len(seen) != 8 {
		t.Errorf("Expected all 8 pool members selected once, got %d", len(seen))
	}

	for hotkey, count := range store.counts {
		if count != 1 {
			t.Errorf("Expected count 1 for %s after a full cycle, got %d", hotkey, count)
		}
	}
}

func TestSelectPrefersMinimumCount(t *testing.T) {
	store := &fakeLedger{counts: map[string]int{
		"hk-0": 3, "hk-1": 3, "hk-2": 3, "hk-3": 3,
		"hk-4": 1, "hk-5": 1, "hk-6": 1, "hk-7": 1,
	}}
	sel := newTestSelector(store, &fakeProber{})

	chosen, err := sel.Select(context.Background(), testPool(8), 4, nil)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	for _, c := range chosen {
		if c.UID < 4 {
			t.Errorf("UID %d picked while lower-count candidates were available", c.UID)
		}
	}
}

func TestSelectExcludesDuplicateAddresses(t *testing.T) {
	pool := testPool(10)
	pool[1].Addr = pool[0].Addr // two candidates behind one host

	store := &fakeLedger{}
	sel := newTestSelector(store, &fakeProber{})

	chosen, err := sel.Select(context.Background(), pool, 4, nil)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(chosen) != 4 {
		t.Fatalf("Expected 4 participants, got %d", len(chosen))
	}

	hosts := map[string]bool{}
	for _, c := range chosen {
		if hosts[c.Host()] {
			t.Errorf("Two selected candidates share host %s", c.Host())
		}
		hosts[c.Host()] = true
	}
}

func TestSelectExcludesDuplicateColdkeys(t *testing.T) {
	pool := testPool(5)
	pool[1].Coldkey = pool[0].Coldkey

	store := &fakeLedger{}
	sel := newTestSelector(store, &fakeProber{})

	chosen, err := sel.Select(context.Background(), pool, 4, nil)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	coldkeys := map[string]bool{}
	for _, c := range chosen {
		if coldkeys[c.Coldkey] {
			t.Errorf("Two selected candidates share coldkey %s", c.Coldkey)
		}
		coldkeys[c.Coldkey] = true
	}
}

func TestSelectEnforcesScoreFloor(t *testing.T) {
	store := &fakeLedger{scores: map[string]float64{"hk-0": -3.0}}
	sel := newTestSelector(store, &fakeProber{})

	chosen, err := sel.Select(context.Background(), testPool(5), 4, nil)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	for _, c := range chosen {
		if c.UID == 0 {
			t.Error("Candidate below the score floor was selected")
		}
	}
}

func TestSelectFiltersUnreachable(t *testing.T) {
	store := &fakeLedger{}
	sel := newTestSelector(store, &fakeProber{down: map[int64]bool{2: true}})

	chosen, err := sel.Select(context.Background(), testPool(5), 4, nil)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	for _, c := range chosen {
		if c.UID == 2 {
			t.Error("Unreachable candidate was selected")
		}
	}
}

func TestSelectionEventsCoverRejectedCandidates(t *testing.T) {
	// UID 0 is unreachable; it still burns a selection event once it
	// clears the fairness gate, so its fairness count moves with everyone
	// else's.
	store := &fakeLedger{}
	sel := newTestSelector(store, &fakeProber{down: map[int64]bool{0: true}})

	chosen, err := sel.Select(context.Background(), testPool(6), 4, nil)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(chosen) != 4 {
		t.Fatalf("Expected 4 participants, got %d", len(chosen))
	}

	recorded := map[string]bool{}
	for _, hk := range store.recorded {
		recorded[hk] = true
	}
	if !recorded["hk-0"] {
		t.Error("Rejected candidate hk-0 has no selection event")
	}
	for _, c := range chosen {
		if !recorded[c.Hotkey] {
			t.Errorf("Accepted candidate %s has no selection event", c.Hotkey)
		}
	}
}

func TestSelectShortfall(t *testing.T) {
	store := &fakeLedger{}
	sel := newTestSelector(store, &fakeProber{down: map[int64]bool{0: true, 1: true}})

	chosen, err := sel.Select(context.Background(), testPool(5), 4, nil)
	if err == nil {
		t.Fatal("Expected shortfall error")
	}
	if !errors.Is(err, ErrSelectionShortfall) {
		t.Errorf("Expected ErrSelectionShortfall, got %v", err)
	}
	if len(chosen) != 3 {
		t.Errorf("Expected partial roster of 3, got %d", len(chosen))
	}
}

func TestSelectHonorsExclusions(t *testing.T) {
	store := &fakeLedger{}
	sel := newTestSelector(store, &fakeProber{})

	chosen, err := sel.Select(context.Background(), testPool(5), 4, []int64{0})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	for _, c := range chosen {
		if c.UID == 0 {
			t.Error("Excluded candidate was selected")
		}
	}
	for _, hk := range store.recorded {
		if hk == "hk-0" {
			t.Error("Excluded candidate burned a selection event")
		}
	}
}

func TestSelectSurvivesLedgerReadFailure(t *testing.T) {
	// Window reads failing degrades to empty aggregates rather than
	// blocking selection.
	store := &fakeLedger{failAll: true}
	sel := newTestSelector(store, &fakeProber{})

	chosen, err := sel.Select(context.Background(), testPool(6), 4, nil)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(chosen) != 4 {
		t.Errorf("Expected 4 participants despite ledger failure, got %d", len(chosen))
	}
}
