// Package host defines the tab/group API the grouping engine consumes and an
// in-process implementation of it.
//
// The engine never creates or destroys tabs. It reads tabs, and creates, updates and
// removes groups. Every call may fail with a host-specific error; callers normalize
// those into the engine's error envelope.
package host

import (
	"context"
	"strings"
)

// NoGroup is the GroupID of a tab that is not in any group.
const NoGroup = -1

// Color is a group color name as understood by the host.
type Color string

const (
	Grey   Color = "grey"
	Blue   Color = "blue"
	Red    Color = "red"
	Yellow Color = "yellow"
	Green  Color = "green"
	Pink   Color = "pink"
	Purple Color = "purple"
	Cyan   Color = "cyan"
	Orange Color = "orange"
)

// Palette lists every color the host supports, in display order.
var Palette = []Color{Grey, Blue, Red, Yellow, Green, Pink, Purple, Cyan, Orange}

// ParseColor returns the palette color matching s (case-insensitive).
func ParseColor(s string) (Color, bool) {
	c := Color(strings.ToLower(strings.TrimSpace(s)))
	for _, p := range Palette {
		if p == c {
			return c, true
		}
	}
	return "", false
}

// Tab is a host-owned tab record.
type Tab struct {
	ID       int    `json:"id"`
	WindowID int    `json:"window_id"`
	GroupID  int    `json:"group_id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Active   bool   `json:"active"`
}

// Grouped reports whether the tab belongs to a group.
func (t Tab) Grouped() bool {
	return t.GroupID != NoGroup
}

// Group is a host-owned group record.
type Group struct {
	ID       int    `json:"id"`
	WindowID int    `json:"window_id"`
	Title    string `json:"title"`
	Color    Color  `json:"color"`
}

// TabFilter narrows QueryTabs. Nil fields match everything.
type TabFilter struct {
	WindowID *int
	GroupID  *int
	Active   *bool
}

// GroupFilter narrows QueryGroups. Nil fields match everything.
type GroupFilter struct {
	WindowID *int
	Title    *string
}

// GroupUpdate carries the properties to change on a group. Nil fields are left as is.
type GroupUpdate struct {
	Title *string
	Color *Color
}

// Host is the tab/group API.
type Host interface {
	QueryTabs(ctx context.Context, filter TabFilter) ([]Tab, error)
	QueryGroups(ctx context.Context, filter GroupFilter) ([]Group, error)
	GetGroup(ctx context.Context, groupID int) (Group, error)
	// GroupTabs adds the tab to existingGroupID, or to a new group in the tab's
	// window when existingGroupID is nil. It returns the group id.
	GroupTabs(ctx context.Context, tabID int, existingGroupID *int) (int, error)
	UpdateGroup(ctx context.Context, groupID int, update GroupUpdate) (Group, error)
	RemoveGroup(ctx context.Context, groupID int) error
}

// Listener receives group lifecycle notifications from a host.
type Listener interface {
	OnGroupRemoved(ctx context.Context, groupID int)
	OnGroupUpdated(ctx context.Context, group Group)
}

// IntPtr returns a pointer to v. Handy for filters.
func IntPtr(v int) *int { return &v }

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 { return &v }

// StringPtr returns a pointer to v.
func StringPtr(v string) *string { return &v }

// ColorPtr returns a pointer to v.
func ColorPtr(v Color) *Color { return &v }
