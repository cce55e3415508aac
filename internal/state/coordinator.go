// Package state owns the category -> color and category -> group id mapping.
//
// The in-memory copy is the source of truth between writes. Every mutation
// writes the whole mapping to the store; a failed write is reported to the
// caller but the in-memory change is kept, and the next successful write
// carries it.
package state

import (
	"context"
	"sort"
	"sync"

	"pkt.systems/pslog"

	"github.com/hpungsan/tabsort/internal/errors"
	"github.com/hpungsan/tabsort/internal/host"
)

// GroupingState is the persisted mapping.
type GroupingState struct {
	CategoryColors   map[string]host.Color `json:"category_colors"`
	CategoryGroupIDs map[string]int        `json:"category_group_ids"`
}

// Entry is one category row of the mapping.
type Entry struct {
	Category string     `json:"category"`
	Color    host.Color `json:"color,omitempty"`
	GroupID  *int       `json:"group_id,omitempty"`
}

// Entries flattens the state into rows sorted by category.
func (s GroupingState) Entries() []Entry {
	seen := make(map[string]bool, len(s.CategoryColors)+len(s.CategoryGroupIDs))
	for c := range s.CategoryColors {
		seen[c] = true
	}
	for c := range s.CategoryGroupIDs {
		seen[c] = true
	}
	out := make([]Entry, 0, len(seen))
	for c := range seen {
		e := Entry{Category: c, Color: s.CategoryColors[c]}
		if id, ok := s.CategoryGroupIDs[c]; ok {
			e.GroupID = &id
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// Store persists the grouping state. Writes replace the whole mapping.
type Store interface {
	ReadGroupingState(ctx context.Context) (GroupingState, error)
	WriteGroupingState(ctx context.Context, st GroupingState) error
}

// Coordinator is the only writer of the grouping state.
type Coordinator struct {
	store Store

	// writeMu orders snapshot+write pairs so a stale snapshot never lands after a newer one.
	writeMu sync.Mutex

	mu          sync.Mutex
	initialized bool
	colors      map[string]host.Color
	groupIDs    map[string]int
}

// NewCoordinator creates a Coordinator. Initialize must be called before use.
func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{
		store:    store,
		colors:   make(map[string]host.Color),
		groupIDs: make(map[string]int),
	}
}

// Initialize loads the persisted mapping. Calling it again is a no-op.
func (c *Coordinator) Initialize(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	st, err := c.store.ReadGroupingState(ctx)
	if err != nil {
		return errors.NewPersistence("readGroupingState", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range st.CategoryColors {
		c.colors[k] = v
	}
	for k, v := range st.CategoryGroupIDs {
		c.groupIDs[k] = v
	}
	c.initialized = true
	pslog.Ctx(ctx).Debug("grouping state loaded", "categories", len(c.colors), "groups", len(c.groupIDs))
	return nil
}

// Persist records that category is shown as groupID with color and writes the mapping.
func (c *Coordinator) Persist(ctx context.Context, category string, groupID int, color host.Color) error {
	return c.mutate(ctx, func() bool {
		c.colors[category] = color
		c.groupIDs[category] = groupID
		return true
	})
}

// PruneGroup drops every category that points at groupID. Writes only if
// something was removed.
func (c *Coordinator) PruneGroup(ctx context.Context, groupID int) error {
	return c.mutate(ctx, func() bool {
		changed := false
		for category, id := range c.groupIDs {
			if id == groupID {
				delete(c.groupIDs, category)
				delete(c.colors, category)
				changed = true
			}
		}
		return changed
	})
}

// ApplyGroupUpdate reconciles a rename or recolor the host reported for a
// tracked group. A renamed group moves to its new title; an untitled group stops
// being tracked; untracked groups are ignored.
func (c *Coordinator) ApplyGroupUpdate(ctx context.Context, group host.Group) error {
	return c.mutate(ctx, func() bool {
		category, ok := c.categoryForGroupLocked(group.ID)
		if !ok {
			return false
		}

		if group.Title == "" {
			delete(c.groupIDs, category)
			delete(c.colors, category)
			return true
		}

		color := c.colors[category]
		if _, valid := host.ParseColor(string(group.Color)); valid {
			color = group.Color
		}

		if category != group.Title {
			delete(c.groupIDs, category)
			delete(c.colors, category)
			c.groupIDs[group.Title] = group.ID
			if color != "" {
				c.colors[group.Title] = color
			}
			return true
		}

		if color != "" && color != c.colors[category] {
			c.colors[category] = color
			return true
		}
		return false
	})
}

// mutate applies fn under the state lock and writes the mapping if fn reports a change.
func (c *Coordinator) mutate(ctx context.Context, fn func() bool) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return errors.NewPrecondition("grouping state not initialized").WithDomain(errors.DomainState)
	}
	if !fn() {
		c.mu.Unlock()
		return nil
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if err := c.store.WriteGroupingState(ctx, snapshot); err != nil {
		return errors.NewPersistence("writeGroupingState", err)
	}
	return nil
}

// CachedColor implements color.Cache.
func (c *Coordinator) CachedColor(category string) (host.Color, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, ok := c.colors[category]
	return col, ok
}

// CacheColor implements color.Cache. The color is kept in memory and written
// with the next mutation.
func (c *Coordinator) CacheColor(category string, color host.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.colors[category] = color
}

// GroupID returns the group id tracked for category.
func (c *Coordinator) GroupID(category string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.groupIDs[category]
	return id, ok
}

// CategoryForGroup returns the category tracked for groupID.
func (c *Coordinator) CategoryForGroup(groupID int) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.categoryForGroupLocked(groupID)
}

func (c *Coordinator) categoryForGroupLocked(groupID int) (string, bool) {
	for category, id := range c.groupIDs {
		if id == groupID {
			return category, true
		}
	}
	return "", false
}

// Snapshot returns a copy of the in-memory mapping.
func (c *Coordinator) Snapshot() GroupingState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() GroupingState {
	st := GroupingState{
		CategoryColors:   make(map[string]host.Color, len(c.colors)),
		CategoryGroupIDs: make(map[string]int, len(c.groupIDs)),
	}
	for k, v := range c.colors {
		st.CategoryColors[k] = v
	}
	for k, v := range c.groupIDs {
		st.CategoryGroupIDs[k] = v
	}
	return st
}
