package mcp

import (
	"context"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"pkt.systems/pslog"

	"github.com/hpungsan/tabsort/internal/config"
	"github.com/hpungsan/tabsort/internal/grouping"
	"github.com/hpungsan/tabsort/internal/host"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"tab_group": {
		def:     tabGroupToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabGroup },
	},
	"tab_batch_group": {
		def:     tabBatchGroupToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabBatchGroup },
	},
	"group_removed": {
		def:     groupRemovedToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGroupRemoved },
	},
	"group_updated": {
		def:     groupUpdatedToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGroupUpdated },
	},
	"cleanup_sweep": {
		def:     cleanupSweepToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCleanupSweep },
	},
	"stats_get": {
		def:     statsGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStatsGet },
	},
	"stats_reset": {
		def:     statsResetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStatsReset },
	},
	"state_get": {
		def:     stateGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStateGet },
	},
	"tab_open": {
		def:     tabOpenToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabOpen },
	},
	"tab_close": {
		def:     tabCloseToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabClose },
	},
	"tab_activate": {
		def:     tabActivateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabActivate },
	},
	"group_list": {
		def:     groupListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGroupList },
	},
}

// AllToolNames returns every tool name in sorted order.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with the tabsort tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(svc *grouping.Service, mem *host.Memory, cfg *config.Config, version string) *server.MCPServer {
	return newServer(NewHandlers(svc, mem, cfg), cfg, version)
}

func newServer(h *Handlers, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"tabsort",
		version,
		server.WithToolCapabilities(true),
	)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, h.withLogger(name, entry.handler(h)))
	}

	return s
}

// Run starts the MCP server using stdio transport. Tool calls log through the
// logger carried by ctx.
func Run(ctx context.Context, svc *grouping.Service, mem *host.Memory, cfg *config.Config, version string) error {
	h := NewHandlers(svc, mem, cfg)
	h.logger = pslog.Ctx(ctx)
	return server.ServeStdio(newServer(h, cfg, version))
}
