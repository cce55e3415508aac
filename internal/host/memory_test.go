package host

import (
	"context"
	"errors"
	"testing"
)

type recordingListener struct {
	removed []int
	updated []Group
}

func (r *recordingListener) OnGroupRemoved(_ context.Context, groupID int) {
	r.removed = append(r.removed, groupID)
}

func (r *recordingListener) OnGroupUpdated(_ context.Context, group Group) {
	r.updated = append(r.updated, group)
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		input string
		want  Color
		ok    bool
	}{
		{"blue", Blue, true},
		{" Red ", Red, true},
		{"ORANGE", Orange, true},
		{"magenta", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseColor(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseColor(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestMemory_GroupTabsCreatesAndReuses(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := m.OpenTab(1, "a", "https://a.example", true)
	b := m.OpenTab(1, "b", "https://b.example", false)

	gid, err := m.GroupTabs(ctx, a.ID, nil)
	if err != nil {
		t.Fatalf("GroupTabs failed: %v", err)
	}
	again, err := m.GroupTabs(ctx, b.ID, IntPtr(gid))
	if err != nil {
		t.Fatalf("GroupTabs(existing) failed: %v", err)
	}
	if again != gid {
		t.Errorf("group id = %d, want %d", again, gid)
	}

	tabs, err := m.QueryTabs(ctx, TabFilter{GroupID: IntPtr(gid)})
	if err != nil {
		t.Fatalf("QueryTabs failed: %v", err)
	}
	if len(tabs) != 2 {
		t.Errorf("tabs in group = %d, want 2", len(tabs))
	}
}

func TestMemory_GroupTabsRejectsOtherWindow(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := m.OpenTab(1, "a", "", false)
	b := m.OpenTab(2, "b", "", false)

	gid, err := m.GroupTabs(ctx, a.ID, nil)
	if err != nil {
		t.Fatalf("GroupTabs failed: %v", err)
	}
	if _, err := m.GroupTabs(ctx, b.ID, IntPtr(gid)); err == nil {
		t.Error("expected cross-window grouping to fail")
	}
}

func TestMemory_UpdateGroupNotifies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	l := &recordingListener{}
	m.Subscribe(l)
	tab := m.OpenTab(1, "a", "", false)
	gid, _ := m.GroupTabs(ctx, tab.ID, nil)

	g, err := m.UpdateGroup(ctx, gid, GroupUpdate{Title: StringPtr("Music"), Color: ColorPtr(Pink)})
	if err != nil {
		t.Fatalf("UpdateGroup failed: %v", err)
	}
	if g.Title != "Music" || g.Color != Pink {
		t.Errorf("group = %+v, want Music/pink", g)
	}
	if len(l.updated) != 1 || l.updated[0].Title != "Music" {
		t.Errorf("updated events = %+v", l.updated)
	}
}

func TestMemory_RemoveGroupUngroupsTabs(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	l := &recordingListener{}
	m.Subscribe(l)
	tab := m.OpenTab(1, "a", "", false)
	gid, _ := m.GroupTabs(ctx, tab.ID, nil)

	if err := m.RemoveGroup(ctx, gid); err != nil {
		t.Fatalf("RemoveGroup failed: %v", err)
	}
	got, _ := m.Tab(tab.ID)
	if got.Grouped() {
		t.Error("tab should be ungrouped after its group is removed")
	}
	if len(l.removed) != 1 || l.removed[0] != gid {
		t.Errorf("removed events = %v, want [%d]", l.removed, gid)
	}
	if _, err := m.GetGroup(ctx, gid); err == nil {
		t.Error("GetGroup should fail for a removed group")
	}
}

func TestMemory_ActivateTab(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := m.OpenTab(1, "a", "", true)
	b := m.OpenTab(1, "b", "", false)
	c := m.OpenTab(2, "c", "", true)

	if err := m.ActivateTab(b.ID); err != nil {
		t.Fatalf("ActivateTab failed: %v", err)
	}
	active, _ := m.QueryTabs(ctx, TabFilter{Active: BoolPtr(true)})
	if len(active) != 2 {
		t.Fatalf("active tabs = %d, want 2", len(active))
	}
	if active[0].ID != b.ID || active[1].ID != c.ID {
		t.Errorf("active = %+v, want tabs %d and %d", active, b.ID, c.ID)
	}
	got, _ := m.Tab(a.ID)
	if got.Active {
		t.Error("tab a should no longer be active")
	}
}

func TestMemory_FailOn(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("boom")
	m.FailOn(OpQueryGroups, boom)

	if _, err := m.QueryGroups(ctx, GroupFilter{}); !errors.Is(err, boom) {
		t.Errorf("QueryGroups error = %v, want boom", err)
	}
	m.FailOn(OpQueryGroups, nil)
	if _, err := m.QueryGroups(ctx, GroupFilter{}); err != nil {
		t.Errorf("QueryGroups after clear = %v", err)
	}
	if m.Calls(OpQueryGroups) != 2 {
		t.Errorf("calls = %d, want 2", m.Calls(OpQueryGroups))
	}
}

func TestMemory_QueryGroupsFilters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := m.OpenTab(1, "a", "", false)
	b := m.OpenTab(2, "b", "", false)
	ga, _ := m.GroupTabs(ctx, a.ID, nil)
	gb, _ := m.GroupTabs(ctx, b.ID, nil)
	_, _ = m.UpdateGroup(ctx, ga, GroupUpdate{Title: StringPtr("News")})
	_, _ = m.UpdateGroup(ctx, gb, GroupUpdate{Title: StringPtr("News")})

	groups, err := m.QueryGroups(ctx, GroupFilter{WindowID: IntPtr(2), Title: StringPtr("News")})
	if err != nil {
		t.Fatalf("QueryGroups failed: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != gb {
		t.Errorf("groups = %+v, want only group %d", groups, gb)
	}
}
