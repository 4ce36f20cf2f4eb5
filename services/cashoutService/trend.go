package cashoutService

import "sync"

// TrendTracker keeps the last-seen cash-out amount per wager, in
// memory only. It belongs to an orchestrator instance rather than the
// package so concurrent sessions and tests stay isolated.
type TrendTracker struct {
	mu   sync.Mutex
	last map[uint]int64
}

func NewTrendTracker() *TrendTracker {
	return &TrendTracker{last: make(map[uint]int64)}
}

// Classify records amount as the latest for the wager and returns the
// direction of travel. The first observation is always stable.
func (t *TrendTracker) Classify(wagerID uint, amount int64) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	previous, seen := t.last[wagerID]
	t.last[wagerID] = amount
	return compare(previous, amount, seen)
}

// Compare returns the direction without recording the amount, for
// on-demand valuations that must not disturb the polling sequence.
func (t *TrendTracker) Compare(wagerID uint, amount int64) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	previous, seen := t.last[wagerID]
	return compare(previous, amount, seen)
}

// Reset clears a wager's history when it leaves the pending state.
func (t *TrendTracker) Reset(wagerID uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.last, wagerID)
}

// Prune drops every wager not in the active set, so closed wagers do
// not leak stale trend state into a future wager with the same id.
func (t *TrendTracker) Prune(active map[uint]bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id := range t.last {
		if !active[id] {
			delete(t.last, id)
		}
	}
}

func compare(previous, amount int64, seen bool) string {
	switch {
	case !seen || amount == previous:
		return TrendStable
	case amount > previous:
		return TrendUp
	default:
		return TrendDown
	}
}
