package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"pkt.systems/pslog"

	"github.com/hpungsan/tabsort/internal/category"
	"github.com/hpungsan/tabsort/internal/config"
	"github.com/hpungsan/tabsort/internal/errors"
	"github.com/hpungsan/tabsort/internal/grouping"
	"github.com/hpungsan/tabsort/internal/host"
	"github.com/hpungsan/tabsort/internal/state"
	"github.com/hpungsan/tabsort/internal/stats"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	svc    *grouping.Service
	host   *host.Memory
	cfg    *config.Config
	logger pslog.Logger
}

// NewHandlers creates a new Handlers instance. mem is the in-process host the
// browser bridge tools feed.
func NewHandlers(svc *grouping.Service, mem *host.Memory, cfg *config.Config) *Handlers {
	return &Handlers{svc: svc, host: mem, cfg: cfg}
}

// withLogger attaches the server logger, tagged with the tool name, to every call.
func (h *Handlers) withLogger(tool string, next server.ToolHandlerFunc) server.ToolHandlerFunc {
	if h.logger == nil {
		return next
	}
	log := h.logger.With("tool", tool)
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return next(pslog.ContextWithLogger(ctx, log), req)
	}
}

// Request types for each tool

// TabGroupRequest represents the arguments for tab_group.
type TabGroupRequest struct {
	TabID    int               `json:"tab_id"`
	Category string            `json:"category,omitempty"`
	Metadata category.Metadata `json:"metadata,omitempty"`
}

// TabBatchGroupRequest represents the arguments for tab_batch_group.
type TabBatchGroupRequest struct {
	WindowID int `json:"window_id"`
}

// GroupRemovedRequest represents the arguments for group_removed.
type GroupRemovedRequest struct {
	GroupID int `json:"group_id"`
}

// GroupUpdatedRequest represents the arguments for group_updated.
type GroupUpdatedRequest struct {
	GroupID int     `json:"group_id"`
	Title   *string `json:"title,omitempty"`
	Color   *string `json:"color,omitempty"`
}

// TabOpenRequest represents the arguments for tab_open.
type TabOpenRequest struct {
	WindowID int    `json:"window_id"`
	Title    string `json:"title,omitempty"`
	URL      string `json:"url,omitempty"`
	Active   bool   `json:"active,omitempty"`
}

// TabRefRequest represents the arguments for tab_close and tab_activate.
type TabRefRequest struct {
	TabID int `json:"tab_id"`
}

// GroupListRequest represents the arguments for group_list.
type GroupListRequest struct {
	WindowID *int `json:"window_id,omitempty"`
}

// StatsOutput is the stats_get result.
type StatsOutput struct {
	stats.Stats
	AverageDurationMs int64 `json:"average_duration_ms"`
}

// StateOutput is the state_get result.
type StateOutput struct {
	Entries []state.Entry `json:"entries"`
}

// GroupListOutput is the group_list result.
type GroupListOutput struct {
	Groups []host.Group `json:"groups"`
}

// Handler implementations

// HandleTabGroup handles the tab_group tool call. A failed grouping is a
// successful tool call whose payload has success=false.
func (h *Handlers) HandleTabGroup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TabGroupRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if err := requireID("tab_id", input.TabID); err != nil {
		return errorResult(err), nil
	}
	resp := h.svc.HandleGroupTab(ctx, grouping.GroupTabRequest{
		TabID:    input.TabID,
		Category: input.Category,
		Metadata: input.Metadata,
	})
	return successResult(resp)
}

// HandleTabBatchGroup handles the tab_batch_group tool call.
func (h *Handlers) HandleTabBatchGroup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TabBatchGroupRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if err := requireID("window_id", input.WindowID); err != nil {
		return errorResult(err), nil
	}
	return successResult(h.svc.BatchGroup(ctx, grouping.BatchGroupRequest{WindowID: input.WindowID}))
}

// HandleGroupRemoved handles the group_removed tool call. A group still present
// in the host mirror is removed there, which fires the removal event; otherwise
// the event is delivered directly.
func (h *Handlers) HandleGroupRemoved(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GroupRemovedRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if err := requireID("group_id", input.GroupID); err != nil {
		return errorResult(err), nil
	}

	if _, err := h.host.GetGroup(ctx, input.GroupID); err == nil {
		if err := h.host.RemoveGroup(ctx, input.GroupID); err != nil {
			return errorResult(errors.NewHostOperation("removeGroup", err)), nil
		}
	} else {
		h.svc.OnGroupRemoved(ctx, input.GroupID)
	}
	return successResult(map[string]any{"group_id": input.GroupID, "removed": true})
}

// HandleGroupUpdated handles the group_updated tool call. The update is applied
// to the host mirror, which fires the update event.
func (h *Handlers) HandleGroupUpdated(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GroupUpdatedRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if err := requireID("group_id", input.GroupID); err != nil {
		return errorResult(err), nil
	}

	update := host.GroupUpdate{Title: input.Title}
	if input.Color != nil {
		c, ok := host.ParseColor(*input.Color)
		if !ok {
			return errorResult(errors.NewInvalidRequest("unknown color: " + *input.Color)), nil
		}
		update.Color = host.ColorPtr(c)
	}
	if _, err := h.host.GetGroup(ctx, input.GroupID); err != nil {
		return errorResult(errors.NewNotFound("group", input.GroupID)), nil
	}

	g, err := h.host.UpdateGroup(ctx, input.GroupID, update)
	if err != nil {
		return errorResult(errors.NewHostOperation("updateGroup", err)), nil
	}
	return successResult(g)
}

// HandleCleanupSweep handles the cleanup_sweep tool call.
func (h *Handlers) HandleCleanupSweep(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(h.svc.Sweeper().Sweep(ctx))
}

// HandleStatsGet handles the stats_get tool call.
func (h *Handlers) HandleStatsGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, err := h.svc.Stats().Snapshot(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(StatsOutput{Stats: s, AverageDurationMs: s.AverageDurationMs()})
}

// HandleStatsReset handles the stats_reset tool call.
func (h *Handlers) HandleStatsReset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.svc.Stats().Reset(ctx); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"reset": true})
}

// HandleStateGet handles the state_get tool call.
func (h *Handlers) HandleStateGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(StateOutput{Entries: h.svc.State().Snapshot().Entries()})
}

// HandleTabOpen handles the tab_open tool call.
func (h *Handlers) HandleTabOpen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TabOpenRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if err := requireID("window_id", input.WindowID); err != nil {
		return errorResult(err), nil
	}
	return successResult(h.host.OpenTab(input.WindowID, input.Title, input.URL, input.Active))
}

// HandleTabClose handles the tab_close tool call.
func (h *Handlers) HandleTabClose(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TabRefRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if _, ok := h.host.Tab(input.TabID); !ok {
		return errorResult(errors.NewNotFound("tab", input.TabID)), nil
	}
	if err := h.host.CloseTab(input.TabID); err != nil {
		return errorResult(errors.NewHostOperation("closeTab", err)), nil
	}
	return successResult(map[string]any{"tab_id": input.TabID, "closed": true})
}

// HandleTabActivate handles the tab_activate tool call.
func (h *Handlers) HandleTabActivate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TabRefRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if _, ok := h.host.Tab(input.TabID); !ok {
		return errorResult(errors.NewNotFound("tab", input.TabID)), nil
	}
	if err := h.host.ActivateTab(input.TabID); err != nil {
		return errorResult(errors.NewHostOperation("activateTab", err)), nil
	}
	tab, _ := h.host.Tab(input.TabID)
	return successResult(tab)
}

// HandleGroupList handles the group_list tool call.
func (h *Handlers) HandleGroupList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GroupListRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	groups, err := h.host.QueryGroups(ctx, host.GroupFilter{WindowID: input.WindowID})
	if err != nil {
		return errorResult(errors.NewHostOperation("queryGroups", err)), nil
	}
	return successResult(GroupListOutput{Groups: groups})
}

// errorResult creates an MCP error result from an error.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var tErr *errors.TabsortError
	if errors.As(err, &tErr) {
		msg := tErr.Message
		if err != error(tErr) {
			// Keep the wrapper's context.
			msg = err.Error()
		}
		errorObj := map[string]any{
			"code":    tErr.Code,
			"message": msg,
			"status":  tErr.Status,
		}
		if tErr.Domain != "" {
			errorObj["domain"] = tErr.Domain
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if tErr.Code != errors.ErrInternal && tErr.Details != nil {
			errorObj["details"] = tErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
