package cashoutService

import "testing"

func TestTrendClassifySequence(t *testing.T) {
	tracker := NewTrendTracker()

	amounts := []int64{100, 150, 150, 90}
	expected := []string{TrendStable, TrendUp, TrendStable, TrendDown}

	for i, amount := range amounts {
		got := tracker.Classify(7, amount)
		if got != expected[i] {
			t.Errorf("step %d (amount %d): expected %s, got %s", i, amount, expected[i], got)
		}
	}
}

func TestTrendTrackerIsolatesWagers(t *testing.T) {
	tracker := NewTrendTracker()

	tracker.Classify(1, 100)
	if got := tracker.Classify(2, 50); got != TrendStable {
		t.Errorf("first observation of another wager should be stable, got %s", got)
	}
	if got := tracker.Classify(1, 120); got != TrendUp {
		t.Errorf("expected up, got %s", got)
	}
}

func TestTrendResetClearsHistory(t *testing.T) {
	tracker := NewTrendTracker()

	tracker.Classify(1, 100)
	tracker.Reset(1)
	if got := tracker.Classify(1, 50); got != TrendStable {
		t.Errorf("after reset the first observation is stable again, got %s", got)
	}
}

func TestTrendCompareDoesNotRecord(t *testing.T) {
	tracker := NewTrendTracker()

	tracker.Classify(1, 100)
	if got := tracker.Compare(1, 150); got != TrendUp {
		t.Errorf("expected up, got %s", got)
	}
	// Compare must not have moved the last-seen amount.
	if got := tracker.Classify(1, 120); got != TrendUp {
		t.Errorf("expected up against 100, got %s", got)
	}
}

func TestTrendPruneDropsClosedWagers(t *testing.T) {
	tracker := NewTrendTracker()

	tracker.Classify(1, 100)
	tracker.Classify(2, 200)
	tracker.Prune(map[uint]bool{2: true})

	if got := tracker.Classify(1, 50); got != TrendStable {
		t.Errorf("pruned wager should restart stable, got %s", got)
	}
	if got := tracker.Classify(2, 250); got != TrendUp {
		t.Errorf("active wager should keep history, got %s", got)
	}
}
