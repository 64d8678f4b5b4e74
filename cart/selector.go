package cart

import "sync"

// Selector keeps the per-item quantity pickers shown before an item is
// added. Every counter starts at 1 and never drops below it.
type Selector struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewSelector() *Selector {
	return &Selector{counts: make(map[string]int)}
}

func (sel *Selector) Qty(itemCode string) int {
	sel.mu.Lock()
	defer sel.mu.Unlock()
	return sel.qty(itemCode)
}

func (sel *Selector) qty(itemCode string) int {
	if n, ok := sel.counts[itemCode]; ok {
		return n
	}
	return 1
}

// Step moves the counter for itemCode by delta and returns the new value.
func (sel *Selector) Step(itemCode string, delta int) int {
	sel.mu.Lock()
	defer sel.mu.Unlock()
	n := sel.qty(itemCode) + delta
	if n < 1 {
		n = 1
	}
	sel.counts[itemCode] = n
	return n
}

// AddSelected adds the selected quantity to store and resets the counter
// when the add went through.
func (sel *Selector) AddSelected(store *Store, itemCode string) bool {
	if !store.Add(itemCode, sel.Qty(itemCode)) {
		return false
	}
	sel.mu.Lock()
	delete(sel.counts, itemCode)
	sel.mu.Unlock()
	return true
}

// Reset drops every counter, as when the customer leaves the menu view.
func (sel *Selector) Reset() {
	sel.mu.Lock()
	sel.counts = make(map[string]int)
	sel.mu.Unlock()
}
