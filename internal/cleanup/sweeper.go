package cleanup

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"pkt.systems/pslog"

	"github.com/hpungsan/tabsort/internal/config"
	"github.com/hpungsan/tabsort/internal/errors"
	"github.com/hpungsan/tabsort/internal/host"
	"github.com/hpungsan/tabsort/internal/lock"
)

// Pruner drops mapping entries for a removed group.
type Pruner interface {
	PruneGroup(ctx context.Context, groupID int) error
}

// Report summarizes one sweep.
type Report struct {
	Skipped bool  `json:"skipped,omitempty"`
	Scanned int   `json:"scanned"`
	Pending int   `json:"pending"`
	Removed []int `json:"removed"`
	Rescued int   `json:"rescued"`
	Errors  int   `json:"errors"`
}

// Sweeper removes groups that have been empty for longer than the grace period.
// Every failure is logged and counted; a sweep never aborts part way because of
// one group.
//
// The re-check, removal and prune of a group run under the lock of the group's
// title in locks, the same lock grouping takes for that category. A sweep must
// therefore never run on a goroutine that already holds a category lock; use
// Trigger from such paths.
type Sweeper struct {
	host     host.Host
	pending  *Coordinator
	state    Pruner
	locks    *lock.Keyed
	settings func() config.Settings
	now      func() time.Time
	trigger  chan struct{}

	// running prevents overlapping sweeps; an overlapping trigger is skipped.
	running sync.Mutex
}

// NewSweeper creates a Sweeper. settings is read at the start of every sweep.
// locks must be the category lock manager shared with grouping.
func NewSweeper(h host.Host, pending *Coordinator, state Pruner, locks *lock.Keyed, settings func() config.Settings) *Sweeper {
	return &Sweeper{
		host:     h,
		pending:  pending,
		state:    state,
		locks:    locks,
		settings: settings,
		now:      pending.now,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger asks Run for a sweep without waiting for it. Triggers that arrive
// while one is already queued are merged.
func (s *Sweeper) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Sweep runs one pass over every host group.
func (s *Sweeper) Sweep(ctx context.Context) Report {
	report := Report{Removed: []int{}}
	settings := s.settings()
	if !settings.CleanupEnabled() {
		report.Skipped = true
		return report
	}
	if !s.running.TryLock() {
		report.Skipped = true
		return report
	}
	defer s.running.Unlock()

	log := pslog.Ctx(ctx)
	grace := settings.Grace()

	groups, err := s.host.QueryGroups(ctx, host.GroupFilter{})
	if err != nil {
		log.Warn("cleanup sweep: list groups failed", "err", errors.NewHostOperation("queryGroups", err))
		report.Errors++
		return report
	}

	present := make(map[int]bool, len(groups))
	for _, g := range groups {
		present[g.ID] = true
	}
	for _, id := range s.pending.Pending() {
		if !present[id] {
			s.pending.ClearPending(id)
		}
	}

	for _, g := range groups {
		if ctx.Err() != nil {
			break
		}
		report.Scanned++
		s.sweepGroup(ctx, g, grace, &report)
	}

	if len(report.Removed) > 0 || report.Errors > 0 {
		log.Info("cleanup sweep done",
			"scanned", report.Scanned, "removed", len(report.Removed),
			"pending", report.Pending, "errors", report.Errors)
	}
	return report
}

func (s *Sweeper) sweepGroup(ctx context.Context, g host.Group, grace time.Duration, report *Report) {
	log := pslog.Ctx(ctx).With("group", g.ID, "window", g.WindowID)

	tabs, err := s.host.QueryTabs(ctx, host.TabFilter{GroupID: host.IntPtr(g.ID)})
	if err != nil {
		log.Warn("cleanup sweep: count tabs failed", "err", errors.NewHostOperation("queryTabs", err))
		report.Errors++
		return
	}
	if len(tabs) > 0 {
		// Refilled groups restart their grace timer next time they empty.
		s.pending.ClearPending(g.ID)
		return
	}

	first := s.pending.MarkPending(g.ID)
	if s.now().Sub(first) < grace {
		report.Pending++
		return
	}

	var removed bool
	err = s.locks.RunExclusive(ctx, g.Title, func(ctx context.Context) error {
		empty, active, err := s.recheck(ctx, g)
		if err != nil {
			return err
		}
		if !empty || active {
			s.pending.ClearPending(g.ID)
			report.Rescued++
			log.Debug("cleanup sweep: group rescued", "empty", empty, "active", active)
			return nil
		}
		if err := s.host.RemoveGroup(ctx, g.ID); err != nil {
			return errors.NewHostOperation("removeGroup", err)
		}
		if err := s.state.PruneGroup(ctx, g.ID); err != nil {
			log.Warn("cleanup sweep: prune state failed", "err", err)
		}
		removed = true
		return nil
	})
	if err != nil {
		log.Warn("cleanup sweep: group not removed", "err", err)
		report.Errors++
		return
	}
	if !removed {
		return
	}
	s.pending.ClearPending(g.ID)
	report.Removed = append(report.Removed, g.ID)
	log.Info("empty group removed", "title", g.Title, "empty_for", s.now().Sub(first).String())
}

// recheck re-reads emptiness and whether the group holds its window's active
// tab. Both reads run concurrently.
func (s *Sweeper) recheck(ctx context.Context, g host.Group) (empty, active bool, err error) {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		tabs, err := s.host.QueryTabs(egCtx, host.TabFilter{GroupID: host.IntPtr(g.ID)})
		if err != nil {
			return errors.NewHostOperation("queryTabs", err)
		}
		empty = len(tabs) == 0
		return nil
	})
	eg.Go(func() error {
		tabs, err := s.host.QueryTabs(egCtx, host.TabFilter{WindowID: host.IntPtr(g.WindowID), Active: host.BoolPtr(true)})
		if err != nil {
			return errors.NewHostOperation("queryTabs", err)
		}
		for _, t := range tabs {
			if t.GroupID == g.ID {
				active = true
			}
		}
		return nil
	})
	err = eg.Wait()
	return empty, active, err
}

// Run sweeps every interval and on every Trigger until ctx is done. A
// non-positive interval disables the periodic sweep only.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			s.Sweep(ctx)
		case <-s.trigger:
			s.Sweep(ctx)
		}
	}
}
