package domain

import "sync"

// CandidateStore is the distinct set of inputs that produced a hit. It is safe
// for concurrent use and keeps first-insertion order. Growth is unbounded
// unless a capacity is set.
type CandidateStore struct {
	mu       sync.Mutex
	index    map[string]struct{}
	order    []string
	capacity int
	dropped  map[string]struct{}
}

// NewCandidateStore creates an empty store. capacity <= 0 means unbounded.
func NewCandidateStore(capacity int) *CandidateStore {
	return &CandidateStore{
		index:    make(map[string]struct{}),
		capacity: capacity,
		dropped:  make(map[string]struct{}),
	}
}

// SetCapacity changes the capacity. Candidates already stored are kept.
func (c *CandidateStore) SetCapacity(capacity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.capacity = capacity
}

// Record inserts candidate and reports whether it was not stored before.
// When the store is full a new candidate is remembered as dropped until a
// later Record with room stores it.
func (c *CandidateStore) Record(candidate string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[candidate]; ok {
		return false
	}

	if c.capacity > 0 && len(c.order) >= c.capacity {
		c.dropped[candidate] = struct{}{}
		return false
	}

	delete(c.dropped, candidate)
	c.index[candidate] = struct{}{}
	c.order = append(c.order, candidate)

	return true
}

// Contains reports whether candidate is stored.
func (c *CandidateStore) Contains(candidate string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.index[candidate]

	return ok
}

// All returns a copy of the stored candidates in insertion order.
func (c *CandidateStore) All() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, len(c.order))
	copy(out, c.order)

	return out
}

// Len returns the number of stored candidates.
func (c *CandidateStore) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.order)
}

// Dropped returns how many distinct candidates were refused because the store
// was full and are still not stored.
func (c *CandidateStore) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return uint64(len(c.dropped))
}
