package core

import (
	"fmt"
	"sync"
)

// Budget bounds a per-turn counter such as model calls or handoff hops.
// Spending past the bound fails closed with the configured sentinel.
type Budget struct {
	mu       sync.Mutex
	max      int
	spent    int
	exceeded error
}

// NewBudget creates a budget allowing max units. max <= 0 means unbounded.
// exceeded is wrapped into the error returned once the bound is crossed.
func NewBudget(max int, exceeded error) *Budget {
	return &Budget{max: max, exceeded: exceeded}
}

// Spend records one unit. The attempt that crosses the bound is still
// counted, so Spent reports max+1 after a failure.
func (b *Budget) Spend() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.spent++
	if b.max > 0 && b.spent > b.max {
		return fmt.Errorf("%w: limit %d", b.exceeded, b.max)
	}
	return nil
}

// Spent returns the number of recorded units.
func (b *Budget) Spent() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spent
}

// Used returns the recorded units capped at the bound.
func (b *Budget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.max > 0 && b.spent > b.max {
		return b.max
	}
	return b.spent
}

// Remaining returns how many units are left, or -1 when unbounded.
func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.max <= 0 {
		return -1
	}
	return max(b.max-b.spent, 0)
}
