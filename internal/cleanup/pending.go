// Package cleanup removes groups that stay empty past a grace period.
package cleanup

import (
	"sort"
	"sync"
	"time"
)

// Coordinator tracks when each candidate group was first seen empty.
// Marks live only in memory; a restart restarts every grace timer.
type Coordinator struct {
	mu      sync.Mutex
	pending map[int]time.Time
	now     func() time.Time
}

// NewCoordinator creates a Coordinator. A nil clock uses time.Now.
func NewCoordinator(now func() time.Time) *Coordinator {
	if now == nil {
		now = time.Now
	}
	return &Coordinator{pending: make(map[int]time.Time), now: now}
}

// MarkPending records groupID as empty and returns when it was first seen
// empty. An existing mark is kept.
func (c *Coordinator) MarkPending(groupID int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ts, ok := c.pending[groupID]; ok {
		return ts
	}
	ts := c.now()
	c.pending[groupID] = ts
	return ts
}

// ClearPending forgets groupID.
func (c *Coordinator) ClearPending(groupID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, groupID)
}

// Timestamp returns when groupID was first seen empty.
func (c *Coordinator) Timestamp(groupID int) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, ok := c.pending[groupID]
	return ts, ok
}

// Pending returns the ids of every pending group in ascending order.
func (c *Coordinator) Pending() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len returns the number of pending groups.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
