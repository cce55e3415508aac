// Package color picks a group color for a category.
package color

import (
	"context"
	"math/rand/v2"

	"pkt.systems/pslog"

	"github.com/hpungsan/tabsort/internal/config"
	"github.com/hpungsan/tabsort/internal/errors"
	"github.com/hpungsan/tabsort/internal/host"
	"github.com/hpungsan/tabsort/internal/lock"
)

// Cache is the category -> color memory the assigner reads and fills.
// The grouping state coordinator implements it, so a reconciled rename is
// visible here.
type Cache interface {
	CachedColor(category string) (host.Color, bool)
	CacheColor(category string, color host.Color)
}

// Assigner chooses a color per category, avoiding colors used by neighbor groups.
type Assigner struct {
	host  host.Host
	cache Cache
	locks *lock.Keyed
	scope string
	pick  func(n int) int
}

// Option configures an Assigner.
type Option func(*Assigner)

// WithNeighborScope selects which groups count as neighbors: config.NeighborScopeWindow
// (the requesting window) or config.NeighborScopeAll.
func WithNeighborScope(scope string) Option {
	return func(a *Assigner) {
		if scope != "" {
			a.scope = scope
		}
	}
}

// WithPicker replaces the uniform random index source. pick(n) must return a
// value in [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(a *Assigner) {
		if pick != nil {
			a.pick = pick
		}
	}
}

// NewAssigner creates an Assigner.
func NewAssigner(h host.Host, cache Cache, opts ...Option) *Assigner {
	a := &Assigner{
		host:  h,
		cache: cache,
		locks: lock.NewKeyed(),
		scope: config.NeighborScopeWindow,
		pick:  rand.IntN,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AssignColor returns the color for category, choosing one if the category has
// none yet. Concurrent calls for the same uncolored category agree on one color
// and query the host once.
func (a *Assigner) AssignColor(ctx context.Context, category string, tabID, windowID int, enabled []host.Color) (host.Color, error) {
	if c, ok := a.cache.CachedColor(category); ok {
		return c, nil
	}

	var chosen host.Color
	err := a.locks.RunExclusive(ctx, category, func(ctx context.Context) error {
		// A caller queued ahead of us may have assigned it.
		if c, ok := a.cache.CachedColor(category); ok {
			chosen = c
			return nil
		}
		if len(enabled) == 0 {
			return errors.NewConfiguration("no enabled colors").WithDomain(errors.DomainColor)
		}

		neighbors, err := a.neighborColors(ctx, tabID, windowID)
		if err != nil {
			return err
		}

		available := make([]host.Color, 0, len(enabled))
		for _, c := range enabled {
			if !neighbors[c] {
				available = append(available, c)
			}
		}
		if len(available) == 0 {
			available = enabled
		}

		chosen = available[a.pick(len(available))]
		a.cache.CacheColor(category, chosen)

		pslog.Ctx(ctx).Debug("color assigned",
			"category", category, "color", chosen,
			"neighbors", len(neighbors), "available", len(available))
		return nil
	})
	if err != nil {
		return "", err
	}
	return chosen, nil
}

// neighborColors returns the colors of groups other than the requesting tab's own.
func (a *Assigner) neighborColors(ctx context.Context, tabID, windowID int) (map[host.Color]bool, error) {
	ownGroup := host.NoGroup
	tabs, err := a.host.QueryTabs(ctx, host.TabFilter{WindowID: host.IntPtr(windowID)})
	if err != nil {
		return nil, errors.NewHostOperation("queryTabs", err)
	}
	for _, t := range tabs {
		if t.ID == tabID {
			ownGroup = t.GroupID
			break
		}
	}

	filter := host.GroupFilter{}
	if a.scope != config.NeighborScopeAll {
		filter.WindowID = host.IntPtr(windowID)
	}
	groups, err := a.host.QueryGroups(ctx, filter)
	if err != nil {
		return nil, errors.NewHostOperation("queryGroups", err)
	}

	used := make(map[host.Color]bool, len(groups))
	for _, g := range groups {
		if g.ID == ownGroup {
			continue
		}
		used[g.Color] = true
	}
	return used, nil
}

// EnabledColors returns the enabled palette colors in palette order. When every
// color is disabled it returns the full palette, so a user who switched all
// colors off still gets grouping.
func EnabledColors(enabled map[host.Color]bool) []host.Color {
	out := make([]host.Color, 0, len(host.Palette))
	for _, c := range host.Palette {
		if enabled[c] {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return append(out, host.Palette...)
	}
	return out
}
