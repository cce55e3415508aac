package mcp

import "github.com/mark3labs/mcp-go/mcp"

var tabGroupToolDef = mcp.NewTool("tab_group",
	mcp.WithDescription("Group one tab under its resolved category. The category comes from the explicit override, the channel map, keyword scoring, the platform category label, or the fallback, in that order."),
	mcp.WithNumber("tab_id", mcp.Required(), mcp.Description("Host tab id")),
	mcp.WithString("category", mcp.Description("Explicit category override")),
	mcp.WithObject("metadata", mcp.Description("Page metadata: title, channel, description, keywords, external_category")),
)

var tabBatchGroupToolDef = mcp.NewTool("tab_batch_group",
	mcp.WithDescription("Group every ungrouped, eligible tab of a window. Failing tabs are counted and skipped."),
	mcp.WithNumber("window_id", mcp.Required(), mcp.Description("Host window id")),
)

var groupRemovedToolDef = mcp.NewTool("group_removed",
	mcp.WithDescription("Report that the browser removed a group."),
	mcp.WithNumber("group_id", mcp.Required(), mcp.Description("Removed group id")),
)

var groupUpdatedToolDef = mcp.NewTool("group_updated",
	mcp.WithDescription("Report that the browser renamed or recolored a group."),
	mcp.WithNumber("group_id", mcp.Required(), mcp.Description("Updated group id")),
	mcp.WithString("title", mcp.Description("New group title")),
	mcp.WithString("color", mcp.Description("New group color"),
		mcp.Enum("grey", "blue", "red", "yellow", "green", "pink", "purple", "cyan", "orange")),
)

var cleanupSweepToolDef = mcp.NewTool("cleanup_sweep",
	mcp.WithDescription("Run one empty-group cleanup pass now and report what it did."),
)

var statsGetToolDef = mcp.NewTool("stats_get",
	mcp.WithDescription("Return grouping statistics."),
)

var statsResetToolDef = mcp.NewTool("stats_reset",
	mcp.WithDescription("Reset grouping statistics to zero."),
)

var stateGetToolDef = mcp.NewTool("state_get",
	mcp.WithDescription("Return the category to color and group id mapping."),
)

var tabOpenToolDef = mcp.NewTool("tab_open",
	mcp.WithDescription("Report a tab opened in the browser."),
	mcp.WithNumber("window_id", mcp.Required(), mcp.Description("Host window id")),
	mcp.WithString("title", mcp.Description("Tab title")),
	mcp.WithString("url", mcp.Description("Tab URL")),
	mcp.WithBoolean("active", mcp.Description("Whether the tab is the active tab of its window")),
)

var tabCloseToolDef = mcp.NewTool("tab_close",
	mcp.WithDescription("Report a tab closed in the browser."),
	mcp.WithNumber("tab_id", mcp.Required(), mcp.Description("Host tab id")),
)

var tabActivateToolDef = mcp.NewTool("tab_activate",
	mcp.WithDescription("Report that a tab became the active tab of its window."),
	mcp.WithNumber("tab_id", mcp.Required(), mcp.Description("Host tab id")),
)

var groupListToolDef = mcp.NewTool("group_list",
	mcp.WithDescription("List host groups, optionally for one window."),
	mcp.WithNumber("window_id", mcp.Description("Only groups of this window")),
)
