package grouping

import (
	"context"
	"strings"

	"github.com/hpungsan/tabsort/internal/category"
	"github.com/hpungsan/tabsort/internal/color"
	"github.com/hpungsan/tabsort/internal/errors"
	"github.com/hpungsan/tabsort/internal/host"
	"github.com/hpungsan/tabsort/internal/logx"
)

// GroupTabRequest asks for one tab to be grouped.
type GroupTabRequest struct {
	TabID    int               `json:"tab_id"`
	Category string            `json:"category,omitempty"`
	Metadata category.Metadata `json:"metadata,omitempty"`
}

// GroupTabResponse is the result of a GroupTabRequest.
type GroupTabResponse struct {
	Success  bool             `json:"success"`
	Category string           `json:"category,omitempty"`
	Color    host.Color       `json:"color,omitempty"`
	GroupID  int              `json:"group_id,omitempty"`
	Code     errors.ErrorCode `json:"code,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// BatchGroupRequest asks for every eligible tab of a window to be grouped.
type BatchGroupRequest struct {
	WindowID int `json:"window_id"`
}

// BatchGroupResponse is the result of a BatchGroupRequest. Success reports that
// the batch ran; Failed counts tabs that could not be grouped.
type BatchGroupResponse struct {
	Success bool             `json:"success"`
	Count   int              `json:"count"`
	Failed  int              `json:"failed"`
	BatchID string           `json:"batch_id,omitempty"`
	Code    errors.ErrorCode `json:"code,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// HandleGroupTab resolves the category of a tab and groups it. Page metadata
// without a title falls back to the tab title.
func (s *Service) HandleGroupTab(ctx context.Context, req GroupTabRequest) GroupTabResponse {
	ctx = logx.ContextWithRequestLogger(ctx, newID())

	if req.TabID <= 0 {
		return groupTabFailure("", errors.NewPrecondition("tab_id is required").WithDomain(errors.DomainGrouping))
	}
	tab, err := s.findTab(ctx, req.TabID)
	if err != nil {
		return groupTabFailure("", err)
	}

	cfg := s.config()
	meta := req.Metadata
	if meta.Title == "" {
		meta.Title = tab.Title
	}
	resolved := category.Explain(meta, cfg.Settings, req.Category)
	logx.WithTab(logx.Ctx(ctx), tab).Debug("category resolved",
		"category", resolved.Category, "source", resolved.Source, "score", resolved.Score)

	result, err := s.GroupTab(ctx, tab, resolved.Category, color.EnabledColors(cfg.Settings.EnabledColors))
	if err != nil {
		return groupTabFailure(resolved.Category, err)
	}

	// The tab may have left a group that is now empty.
	if tab.Grouped() && tab.GroupID != result.GroupID {
		s.sweep(ctx)
	}

	return GroupTabResponse{
		Success:  true,
		Category: resolved.Category,
		Color:    result.Color,
		GroupID:  result.GroupID,
	}
}

// BatchGroup groups every eligible tab of a window one after another. A failing
// tab is counted and the batch moves on.
func (s *Service) BatchGroup(ctx context.Context, req BatchGroupRequest) BatchGroupResponse {
	batchID := newID()
	ctx = logx.ContextWithRequestLogger(ctx, batchID)
	log := logx.Ctx(ctx).With("window", req.WindowID)

	if req.WindowID <= 0 {
		return batchFailure(batchID, errors.NewPrecondition("window_id is required").WithDomain(errors.DomainGrouping))
	}

	tabs, err := s.host.QueryTabs(ctx, host.TabFilter{WindowID: host.IntPtr(req.WindowID)})
	if err != nil {
		return batchFailure(batchID, errors.NewHostOperation("queryTabs", err).WithDomain(errors.DomainGrouping))
	}

	cfg := s.config()
	enabled := color.EnabledColors(cfg.Settings.EnabledColors)
	resp := BatchGroupResponse{Success: true, BatchID: batchID}

	for _, tab := range tabs {
		if ctx.Err() != nil {
			break
		}
		if tab.Grouped() || !eligibleURL(tab.URL, cfg.EligibleURLPrefixes) {
			continue
		}
		cat := category.Resolve(category.Metadata{Title: tab.Title}, cfg.Settings, "")
		if _, err := s.GroupTab(ctx, tab, cat, enabled); err != nil {
			resp.Failed++
			continue
		}
		resp.Count++
	}

	log.Info("batch grouped", "count", resp.Count, "failed", resp.Failed, "tabs", len(tabs))
	s.sweep(ctx)
	return resp
}

func (s *Service) findTab(ctx context.Context, tabID int) (host.Tab, error) {
	tabs, err := s.host.QueryTabs(ctx, host.TabFilter{})
	if err != nil {
		return host.Tab{}, errors.NewHostOperation("queryTabs", err).WithDomain(errors.DomainGrouping)
	}
	for _, t := range tabs {
		if t.ID == tabID {
			return t, nil
		}
	}
	return host.Tab{}, errors.NewNotFound("tab", tabID).WithDomain(errors.DomainGrouping)
}

// eligibleURL reports whether url starts with one of prefixes. No prefixes
// means every url is eligible.
func eligibleURL(url string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(url, p) {
			return true
		}
	}
	return false
}

func groupTabFailure(category string, err error) GroupTabResponse {
	resp := GroupTabResponse{Success: false, Category: category, Error: err.Error()}
	var tErr *errors.TabsortError
	if errors.As(err, &tErr) {
		resp.Code = tErr.Code
	}
	return resp
}

func batchFailure(batchID string, err *errors.TabsortError) BatchGroupResponse {
	return BatchGroupResponse{Success: false, BatchID: batchID, Code: err.Code, Error: err.Error()}
}
