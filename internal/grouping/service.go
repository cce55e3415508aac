// Package grouping puts tabs into category groups. It owns the per-category
// lock that makes find-or-create plus persist atomic for each category, and it
// is the entry point for inbound requests and host events.
package grouping

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/tabsort/internal/cleanup"
	"github.com/hpungsan/tabsort/internal/color"
	"github.com/hpungsan/tabsort/internal/config"
	"github.com/hpungsan/tabsort/internal/errors"
	"github.com/hpungsan/tabsort/internal/host"
	"github.com/hpungsan/tabsort/internal/lock"
	"github.com/hpungsan/tabsort/internal/logx"
	"github.com/hpungsan/tabsort/internal/state"
	"github.com/hpungsan/tabsort/internal/stats"
)

// Store persists both the grouping state and the stats.
type Store interface {
	state.Store
	stats.Store
}

// GroupResult is the outcome of a successful GroupTab.
type GroupResult struct {
	GroupID int        `json:"group_id"`
	Color   host.Color `json:"color"`
	Created bool       `json:"created"`
}

// Service wires the grouping components together.
type Service struct {
	host    host.Host
	config  func() *config.Config
	colors  *color.Assigner
	state   *state.Coordinator
	stats   *stats.Tracker
	pending *cleanup.Coordinator
	sweeper *cleanup.Sweeper
	locks   *lock.Keyed
	now     func() time.Time
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	now          func() time.Time
	colorOptions []color.Option
}

// WithClock sets the clock used for durations and the cleanup grace period.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) {
		o.now = now
	}
}

// WithColorOptions passes options through to the color assigner.
func WithColorOptions(opts ...color.Option) Option {
	return func(o *serviceOptions) {
		o.colorOptions = append(o.colorOptions, opts...)
	}
}

// NewService creates a Service. cfg is read at the start of every request, so
// settings changes apply to the next request. Initialize must be called before
// the first request.
func NewService(h host.Host, store Store, cfg func() *config.Config, opts ...Option) *Service {
	o := serviceOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	st := state.NewCoordinator(store)
	colorOpts := append([]color.Option{color.WithNeighborScope(cfg().NeighborScope)}, o.colorOptions...)
	pending := cleanup.NewCoordinator(o.now)
	locks := lock.NewKeyed()

	return &Service{
		host:    h,
		config:  cfg,
		colors:  color.NewAssigner(h, st, colorOpts...),
		state:   st,
		stats:   stats.NewTracker(store),
		pending: pending,
		sweeper: cleanup.NewSweeper(h, pending, st, locks, func() config.Settings { return cfg().Settings }),
		locks:   locks,
		now:     o.now,
	}
}

// Initialize loads the persisted grouping state.
func (s *Service) Initialize(ctx context.Context) error {
	return s.state.Initialize(ctx)
}

// State returns the grouping state coordinator.
func (s *Service) State() *state.Coordinator { return s.state }

// Stats returns the stats tracker.
func (s *Service) Stats() *stats.Tracker { return s.stats }

// Sweeper returns the empty-group sweeper.
func (s *Service) Sweeper() *cleanup.Sweeper { return s.sweeper }

// Pending returns the cleanup coordinator.
func (s *Service) Pending() *cleanup.Coordinator { return s.pending }

// GroupTab puts tab into the group for category in the tab's window, creating
// the group if the window has none, and applies the category color.
//
// The whole operation runs under the category lock, so concurrent calls for the
// same category create at most one group per window and agree on its color.
// Failures abort the remaining steps; nothing already applied to the host is
// rolled back.
func (s *Service) GroupTab(ctx context.Context, tab host.Tab, category string, enabled []host.Color) (*GroupResult, error) {
	if tab.ID <= 0 || tab.WindowID <= 0 {
		return nil, errors.NewPrecondition("tab id and window id are required").WithDomain(errors.DomainGrouping)
	}
	if category == "" {
		return nil, errors.NewPrecondition("category is required").WithDomain(errors.DomainGrouping)
	}

	log := logx.WithCategory(logx.WithTab(logx.Ctx(ctx), tab), category)
	start := s.now()

	var result *GroupResult
	err := s.locks.RunExclusive(ctx, category, func(ctx context.Context) error {
		r, err := s.groupLocked(ctx, tab, category, enabled)
		if err != nil {
			return err
		}
		result = r
		if err := s.stats.RecordSuccess(ctx, category, s.now().Sub(start)); err != nil {
			log.Warn("record grouping success failed", "err", err)
		}
		return nil
	})
	if err != nil {
		wrapped := errors.Wrap(errors.DomainGrouping, err)
		log.Error("group tab failed", "err", wrapped)
		if serr := s.stats.RecordFailure(ctx, category, s.now().Sub(start)); serr != nil {
			log.Warn("record grouping failure failed", "err", serr)
		}
		return nil, wrapped
	}

	if result.Created {
		log.Info("group created", "group", result.GroupID, "color", result.Color)
	} else {
		log.Debug("tab added to group", "group", result.GroupID, "color", result.Color)
	}
	return result, nil
}

func (s *Service) groupLocked(ctx context.Context, tab host.Tab, category string, enabled []host.Color) (*GroupResult, error) {
	col, err := s.colors.AssignColor(ctx, category, tab.ID, tab.WindowID, enabled)
	if err != nil {
		return nil, err
	}

	groups, err := s.host.QueryGroups(ctx, host.GroupFilter{
		WindowID: host.IntPtr(tab.WindowID),
		Title:    host.StringPtr(category),
	})
	if err != nil {
		return nil, errors.NewHostOperation("queryGroups", err)
	}

	var existing *int
	if len(groups) > 0 {
		existing = host.IntPtr(groups[0].ID)
	}
	groupID, err := s.host.GroupTabs(ctx, tab.ID, existing)
	if err != nil {
		return nil, errors.NewHostOperation("groupTabs", err)
	}

	if _, err := s.host.UpdateGroup(ctx, groupID, host.GroupUpdate{
		Title: host.StringPtr(category),
		Color: host.ColorPtr(col),
	}); err != nil {
		return nil, errors.NewHostOperation("updateGroup", err)
	}

	if err := s.state.Persist(ctx, category, groupID, col); err != nil {
		return nil, err
	}

	return &GroupResult{GroupID: groupID, Color: col, Created: existing == nil}, nil
}

// sweep runs an opportunistic cleanup pass on the caller's goroutine. It is
// skipped when a pass is already running. Callers must not hold a category lock.
func (s *Service) sweep(ctx context.Context) {
	s.sweeper.Sweep(ctx)
}

func newID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
