package host

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Op names a Host method, used for failure injection and call counting.
type Op string

const (
	OpQueryTabs   Op = "queryTabs"
	OpQueryGroups Op = "queryGroups"
	OpGetGroup    Op = "getGroup"
	OpGroupTabs   Op = "groupTabs"
	OpUpdateGroup Op = "updateGroup"
	OpRemoveGroup Op = "removeGroup"
)

// Memory is an in-process Host. It backs the MCP bridge, where the browser side
// reports tabs through bridge methods (OpenTab, CloseTab, ActivateTab) and reads
// groups back, and it is the host used throughout the tests.
//
// Empty groups are kept until RemoveGroup is called so that the cleanup sweep has
// something to do. Listeners are notified synchronously after the host lock is
// released.
type Memory struct {
	mu          sync.Mutex
	tabs        map[int]*Tab
	groups      map[int]*Group
	nextTabID   int
	nextGroupID int
	failures    map[Op]error
	calls       map[Op]int
	listeners   []Listener
}

// NewMemory creates an empty in-process host.
func NewMemory() *Memory {
	return &Memory{
		tabs:        make(map[int]*Tab),
		groups:      make(map[int]*Group),
		nextTabID:   1,
		nextGroupID: 1,
		failures:    make(map[Op]error),
		calls:       make(map[Op]int),
	}
}

// Subscribe registers a listener for group-removed and group-updated events.
func (m *Memory) Subscribe(l Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// FailOn makes every later call of op return err. A nil err clears the failure.
func (m *Memory) FailOn(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Calls returns how many times op has been invoked.
func (m *Memory) Calls(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// enter records the call and returns the injected failure, if any. Caller holds mu.
func (m *Memory) enter(op Op) error {
	m.calls[op]++
	return m.failures[op]
}

// OpenTab adds a tab to the host. A tab opened active deactivates the other tabs of
// its window.
func (m *Memory) OpenTab(windowID int, title, url string, active bool) Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	tab := &Tab{
		ID:       m.nextTabID,
		WindowID: windowID,
		GroupID:  NoGroup,
		Title:    title,
		URL:      url,
	}
	m.nextTabID++
	m.tabs[tab.ID] = tab
	if active {
		m.activateLocked(tab)
	}
	return *tab
}

// CloseTab removes a tab. Its group, if any, stays behind even when emptied.
func (m *Memory) CloseTab(tabID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tabs[tabID]; !ok {
		return fmt.Errorf("no tab with id %d", tabID)
	}
	delete(m.tabs, tabID)
	return nil
}

// ActivateTab makes the tab the active tab of its window.
func (m *Memory) ActivateTab(tabID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tab, ok := m.tabs[tabID]
	if !ok {
		return fmt.Errorf("no tab with id %d", tabID)
	}
	m.activateLocked(tab)
	return nil
}

func (m *Memory) activateLocked(tab *Tab) {
	for _, other := range m.tabs {
		if other.WindowID == tab.WindowID {
			other.Active = false
		}
	}
	tab.Active = true
}

// UngroupTab moves a tab out of its group, leaving the group in place.
func (m *Memory) UngroupTab(tabID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tab, ok := m.tabs[tabID]
	if !ok {
		return fmt.Errorf("no tab with id %d", tabID)
	}
	tab.GroupID = NoGroup
	return nil
}

// Tab returns a copy of the tab with the given id.
func (m *Memory) Tab(tabID int) (Tab, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tab, ok := m.tabs[tabID]
	if !ok {
		return Tab{}, false
	}
	return *tab, true
}

// QueryTabs implements Host.
func (m *Memory) QueryTabs(ctx context.Context, filter TabFilter) ([]Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpQueryTabs); err != nil {
		return nil, err
	}
	out := make([]Tab, 0, len(m.tabs))
	for _, tab := range m.tabs {
		if filter.WindowID != nil && tab.WindowID != *filter.WindowID {
			continue
		}
		if filter.GroupID != nil && tab.GroupID != *filter.GroupID {
			continue
		}
		if filter.Active != nil && tab.Active != *filter.Active {
			continue
		}
		out = append(out, *tab)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// QueryGroups implements Host.
func (m *Memory) QueryGroups(ctx context.Context, filter GroupFilter) ([]Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpQueryGroups); err != nil {
		return nil, err
	}
	out := make([]Group, 0, len(m.groups))
	for _, g := range m.groups {
		if filter.WindowID != nil && g.WindowID != *filter.WindowID {
			continue
		}
		if filter.Title != nil && g.Title != *filter.Title {
			continue
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetGroup implements Host.
func (m *Memory) GetGroup(ctx context.Context, groupID int) (Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpGetGroup); err != nil {
		return Group{}, err
	}
	g, ok := m.groups[groupID]
	if !ok {
		return Group{}, fmt.Errorf("no group with id %d", groupID)
	}
	return *g, nil
}

// GroupTabs implements Host.
func (m *Memory) GroupTabs(ctx context.Context, tabID int, existingGroupID *int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpGroupTabs); err != nil {
		return 0, err
	}
	tab, ok := m.tabs[tabID]
	if !ok {
		return 0, fmt.Errorf("no tab with id %d", tabID)
	}
	if existingGroupID != nil {
		g, ok := m.groups[*existingGroupID]
		if !ok {
			return 0, fmt.Errorf("no group with id %d", *existingGroupID)
		}
		if g.WindowID != tab.WindowID {
			return 0, fmt.Errorf("group %d is in window %d, tab %d is in window %d", g.ID, g.WindowID, tab.ID, tab.WindowID)
		}
		tab.GroupID = g.ID
		return g.ID, nil
	}
	g := &Group{
		ID:       m.nextGroupID,
		WindowID: tab.WindowID,
		Color:    Grey,
	}
	m.nextGroupID++
	m.groups[g.ID] = g
	tab.GroupID = g.ID
	return g.ID, nil
}

// UpdateGroup implements Host. Listeners receive the updated group.
func (m *Memory) UpdateGroup(ctx context.Context, groupID int, update GroupUpdate) (Group, error) {
	m.mu.Lock()
	if err := m.enter(OpUpdateGroup); err != nil {
		m.mu.Unlock()
		return Group{}, err
	}
	g, ok := m.groups[groupID]
	if !ok {
		m.mu.Unlock()
		return Group{}, fmt.Errorf("no group with id %d", groupID)
	}
	if update.Title != nil {
		g.Title = *update.Title
	}
	if update.Color != nil {
		g.Color = *update.Color
	}
	updated := *g
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	for _, l := range listeners {
		l.OnGroupUpdated(ctx, updated)
	}
	return updated, nil
}

// RemoveGroup implements Host. Tabs in the group become ungrouped.
func (m *Memory) RemoveGroup(ctx context.Context, groupID int) error {
	m.mu.Lock()
	if err := m.enter(OpRemoveGroup); err != nil {
		m.mu.Unlock()
		return err
	}
	if _, ok := m.groups[groupID]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("no group with id %d", groupID)
	}
	delete(m.groups, groupID)
	for _, tab := range m.tabs {
		if tab.GroupID == groupID {
			tab.GroupID = NoGroup
		}
	}
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	for _, l := range listeners {
		l.OnGroupRemoved(ctx, groupID)
	}
	return nil
}
